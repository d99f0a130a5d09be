// Package selection implements the selection engine: given a batch of
// requested instance names and a reaction policy, it partitions the names
// into operative / deleted / missing subsets and produces a composite
// status, per §4.3 of the design.
package selection

// Group selects the default set of names used when the caller's requested
// list is empty.
type Group int

const (
	// GroupOperative defaults to every operative name.
	GroupOperative Group = iota
	// GroupDeleted defaults to every deleted name.
	GroupDeleted
	// GroupAll defaults to the union of operative and deleted.
	GroupAll
	// GroupNone has no default: an empty request resolves to nothing,
	// degenerating to an empty (vacuously missing) selection. Operations
	// that require exactly one name validate non-emptiness themselves
	// before calling Partition.
	GroupNone
)

// Registry is the minimal view of the instance tables the selection engine
// needs: name membership and, for defaulting, full name lists.
type Registry interface {
	IsOperative(name string) bool
	IsDeleted(name string) bool
	OperativeNames() []string
	DeletedNames() []string
}

// Partition splits requested into its operative, deleted, and missing
// subsets against reg. Duplicate names are removed, the first occurrence
// winning. An empty requested list is defaulted per group.
func Partition(requested []string, group Group, reg Registry) (operative, deleted, missing []string) {
	if len(requested) == 0 {
		return defaultSelection(group, reg)
	}

	seen := make(map[string]struct{}, len(requested))
	for _, name := range requested {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		switch {
		case reg.IsOperative(name):
			operative = append(operative, name)
		case reg.IsDeleted(name):
			deleted = append(deleted, name)
		default:
			missing = append(missing, name)
		}
	}
	return operative, deleted, missing
}

func defaultSelection(group Group, reg Registry) (operative, deleted, missing []string) {
	switch group {
	case GroupOperative:
		return reg.OperativeNames(), nil, nil
	case GroupDeleted:
		return nil, reg.DeletedNames(), nil
	case GroupAll:
		return reg.OperativeNames(), reg.DeletedNames(), nil
	default: // GroupNone
		return nil, nil, nil
	}
}
