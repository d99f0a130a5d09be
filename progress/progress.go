package progress

// Tracker receives progress events during long-running operations such as
// an imagevault.Vault image fetch. Implementations must be safe for
// concurrent use from multiple goroutines.
type Tracker interface {
	OnEvent(any)
}

// NewTracker creates a Tracker from a typed callback function.
// The caller works with a concrete event type (e.g. imagevault.PullEvent);
// the Tracker interface stays non-generic so it can be used in interfaces
// like imagevault.Vault without becoming generic itself.
func NewTracker[E any](fn func(E)) Tracker {
	return funcTracker(func(v any) { fn(v.(E)) })
}

type funcTracker func(any)

func (f funcTracker) OnEvent(e any) { f(e) }

// Nop is a no-op tracker for callers that don't need progress, such as
// daemon-side creation requests with no interactive client to report to.
var Nop Tracker = funcTracker(func(any) {})
