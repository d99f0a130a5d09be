package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corraldev/corral/corralerr"
)

type fakeRegistry struct {
	operative map[string]bool
	deleted   map[string]bool
}

func (r fakeRegistry) IsOperative(name string) bool { return r.operative[name] }
func (r fakeRegistry) IsDeleted(name string) bool    { return r.deleted[name] }
func (r fakeRegistry) OperativeNames() []string {
	names := make([]string, 0, len(r.operative))
	for n := range r.operative {
		names = append(names, n)
	}
	return names
}
func (r fakeRegistry) DeletedNames() []string {
	names := make([]string, 0, len(r.deleted))
	for n := range r.deleted {
		names = append(names, n)
	}
	return names
}

func TestPartitionDedupesFirstOccurrenceWins(t *testing.T) {
	reg := fakeRegistry{operative: map[string]bool{"a": true}}
	operative, deleted, missing := Partition([]string{"a", "a", "b"}, GroupOperative, reg)
	assert.Equal(t, []string{"a"}, operative)
	assert.Empty(t, deleted)
	assert.Equal(t, []string{"b"}, missing)
}

func TestPartitionEmptyRequestDefaultsByGroup(t *testing.T) {
	reg := fakeRegistry{
		operative: map[string]bool{"a": true},
		deleted:   map[string]bool{"b": true},
	}

	operative, deleted, missing := Partition(nil, GroupAll, reg)
	assert.ElementsMatch(t, []string{"a"}, operative)
	assert.ElementsMatch(t, []string{"b"}, deleted)
	assert.Empty(t, missing)

	operative, deleted, missing = Partition(nil, GroupNone, reg)
	assert.Empty(t, operative)
	assert.Empty(t, deleted)
	assert.Empty(t, missing)
}

func TestEvaluateRequireOperative(t *testing.T) {
	status := Evaluate(RequireOperative, []string{"a"}, nil, nil)
	require.True(t, status.OK())
	require.NoError(t, status.Err())

	status = Evaluate(RequireOperative, nil, []string{"b"}, []string{"c"})
	require.False(t, status.OK())
	assert.Equal(t, corralerr.NotFound, status.Kind())
	err := status.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `instance "b" is deleted`)
	assert.Contains(t, err.Error(), `instance "c" does not exist`)
}

func TestEvaluateRequireMissing(t *testing.T) {
	status := Evaluate(RequireMissing, []string{"a"}, nil, nil)
	require.False(t, status.OK())
	assert.Equal(t, corralerr.AlreadyExists, status.Kind())
}

func TestEvaluateStartPolicy(t *testing.T) {
	status := Evaluate(StartPolicy, []string{"a"}, []string{"b"}, nil)
	require.False(t, status.OK())
	assert.Equal(t, corralerr.Aborted, status.Kind())
}
