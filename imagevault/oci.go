package imagevault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-containerregistry/pkg/crane"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/projecteru2/core/log"

	"github.com/corraldev/corral/progress"
	"github.com/corraldev/corral/utils"
)

const defaultMinDiskBytes = 5 << 30 // 5 × 2^30 bytes; persist.DefaultDisk parses to 5 × 10^9 via units.FromHumanSize

// OCI is the default Vault backend for image references resolved as
// container-registry aliases (the image reference grammar's "anything
// else" case, §6), exported as a single-layer tarball to cacheDir.
type OCI struct {
	cacheDir string
}

var _ Vault = (*OCI)(nil)

// NewOCI returns an OCI-backed vault caching prepared images under cacheDir.
func NewOCI(cacheDir string) (*OCI, error) {
	if err := utils.EnsureDirs(cacheDir); err != nil {
		return nil, fmt.Errorf("ensure image cache dir: %w", err)
	}
	return &OCI{cacheDir: cacheDir}, nil
}

// Resolve pulls ref from a container registry and exports it as a tarball
// under the vault's cache directory, reporting 0/50/100 progress (crane has
// no incremental progress callback for a single pull).
func (v *OCI) Resolve(ctx context.Context, ref string, tracker progress.Tracker) (Resolved, error) {
	logger := log.WithFunc("imagevault.Resolve")
	report(tracker, 0)

	img, err := crane.Pull(ref, crane.WithContext(ctx))
	if err != nil {
		return Resolved{}, fmt.Errorf("pull image %s: %w", ref, err)
	}
	report(tracker, 50)

	digest, err := img.Digest()
	if err != nil {
		return Resolved{}, fmt.Errorf("digest image %s: %w", ref, err)
	}

	localPath := filepath.Join(v.cacheDir, digest.Hex+".tar")
	if err := crane.SaveLegacy(img, ref, localPath); err != nil {
		return Resolved{}, fmt.Errorf("export image %s: %w", ref, err)
	}
	report(tracker, 100)

	logger.Infof(ctx, "prepared image %s -> %s", ref, localPath)
	return Resolved{
		LocalPath:    localPath,
		MinDiskBytes: minDiskBytesOf(img),
		Release:      releaseOf(ref),
	}, nil
}

// Exists reports whether localPath is still present on disk.
func (v *OCI) Exists(_ context.Context, localPath string) bool {
	return utils.ValidFile(localPath)
}

// Prune removes every cached tarball not named in inUse.
func (v *OCI) Prune(ctx context.Context, inUse map[string]struct{}) error {
	logger := log.WithFunc("imagevault.Prune")
	entries, err := os.ReadDir(v.cacheDir)
	if err != nil {
		return fmt.Errorf("read image cache dir: %w", err)
	}
	for _, entry := range entries {
		path := filepath.Join(v.cacheDir, entry.Name())
		if _, keep := inUse[path]; keep {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warnf(ctx, "failed to prune cached image %s: %v", path, err)
			continue
		}
		logger.Infof(ctx, "pruned cached image %s", path)
	}
	return nil
}

func minDiskBytesOf(img v1.Image) int64 {
	size, err := img.Size()
	if err != nil || size <= 0 {
		return defaultMinDiskBytes
	}
	return size
}

// releaseOf extracts a best-effort release tag from ref's tag component,
// used by the creation pipeline's per-image bridging policy.
func releaseOf(ref string) string {
	if idx := strings.LastIndex(ref, ":"); idx >= 0 {
		return ref[idx+1:]
	}
	return ""
}

func report(tracker progress.Tracker, percent int) {
	if tracker != nil {
		tracker.OnEvent(PullEvent{Percent: percent})
	}
}
