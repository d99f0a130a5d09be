// Package imagevault declares the boundary to image acquisition, caching,
// and preparation: an external collaborator per §1/§6. This package owns
// the interface plus a default OCI-backed implementation.
package imagevault

import (
	"context"

	"github.com/corraldev/corral/progress"
)

// PullEvent reports image fetch/prepare progress as a percentage, 0-100.
// Vault implementations have no finer-grained signal than a handful of
// milestones, so a single percent field is all the event carries.
type PullEvent struct {
	Percent int
}

// Resolved describes an image ready to back a new instance.
type Resolved struct {
	// LocalPath is the prepared image file on disk.
	LocalPath string
	// MinDiskBytes is the minimum disk size the image requires.
	MinDiskBytes int64
	// Release names the OS release, used by the creation pipeline's
	// per-image bridging policy (§4.5).
	Release string
}

// Vault fetches, caches, and prepares images referenced by the image
// reference grammar in §6: file://, http(s)://, or a bare alias optionally
// qualified with <remote>:.
type Vault interface {
	// Resolve fetches and prepares ref, reporting PullEvents to tracker as
	// work proceeds. tracker is never nil; callers with nothing to show the
	// user pass progress.Nop.
	Resolve(ctx context.Context, ref string, tracker progress.Tracker) (Resolved, error)
	// Exists reports whether localPath still names a valid prepared image.
	Exists(ctx context.Context, localPath string) bool
	// Prune removes cached images with no remaining instance references.
	Prune(ctx context.Context, inUse map[string]struct{}) error
}
