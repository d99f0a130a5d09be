package selection

import (
	"fmt"

	"github.com/corraldev/corral/corralerr"
)

// Reaction is one partition's contribution to a batch's composite status.
// When OK is false, every name in that partition contributes a line built
// from Template (a single %q verb for the name) tagged with Kind. Template
// may also be set when OK is true purely for caller-side logging; it never
// contributes to the composite error.
type Reaction struct {
	OK       bool
	Kind     corralerr.Kind
	Template string
}

// Policy pairs a reaction with each of the three partitions a Selection
// produces.
type Policy struct {
	Operative Reaction
	Deleted   Reaction
	Missing   Reaction
}

var (
	// RequireOperative accepts operative targets; rejects deleted ones as
	// invalid-argument and missing ones as not-found.
	RequireOperative = Policy{
		Operative: Reaction{OK: true},
		Deleted:   Reaction{Kind: corralerr.InvalidArgument, Template: "instance %q is deleted"},
		Missing:   Reaction{Kind: corralerr.NotFound, Template: "instance %q does not exist"},
	}

	// RequireExisting accepts operative and deleted targets; rejects only
	// missing ones as not-found.
	RequireExisting = Policy{
		Operative: Reaction{OK: true},
		Deleted:   Reaction{OK: true},
		Missing:   Reaction{Kind: corralerr.NotFound, Template: "instance %q does not exist"},
	}

	// RequireMissing accepts only names that exist nowhere; rejects
	// operative and deleted targets as already-exists.
	RequireMissing = Policy{
		Operative: Reaction{Kind: corralerr.AlreadyExists, Template: "instance %q already exists"},
		Deleted:   Reaction{Kind: corralerr.AlreadyExists, Template: "instance %q already exists"},
		Missing:   Reaction{OK: true},
	}

	// StartPolicy is start's custom policy (§4.4): operative targets
	// proceed; deleted or missing targets abort the whole batch.
	StartPolicy = Policy{
		Operative: Reaction{OK: true},
		Deleted:   Reaction{Kind: corralerr.Aborted, Template: "instance %q is deleted"},
		Missing:   Reaction{Kind: corralerr.Aborted, Template: "instance %q does not exist"},
	}

	// RecoverPolicy is recover's policy: existing targets (operative or
	// deleted) proceed — an already-operative target is a logged no-op,
	// carried via Template for the caller to log rather than as an error —
	// and missing targets fail as not-found.
	RecoverPolicy = Policy{
		Operative: Reaction{OK: true, Template: "instance %q is already operative"},
		Deleted:   Reaction{OK: true},
		Missing:   Reaction{Kind: corralerr.NotFound, Template: "instance %q does not exist"},
	}
)

// Evaluate folds a policy's reactions over the three partitions produced by
// Partition into a composite *corralerr.Status, per the propagation policy:
// OK iff every non-empty partition reacted OK, otherwise the last non-OK
// kind with every message concatenated.
func Evaluate(policy Policy, operative, deleted, missing []string) *corralerr.Status {
	status := corralerr.NewStatus()
	applyReaction(status, policy.Operative, operative)
	applyReaction(status, policy.Deleted, deleted)
	applyReaction(status, policy.Missing, missing)
	return status
}

func applyReaction(status *corralerr.Status, reaction Reaction, names []string) {
	if reaction.OK || len(names) == 0 {
		return
	}
	for _, name := range names {
		status.Add(reaction.Kind, fmt.Sprintf(reaction.Template, name))
	}
}
