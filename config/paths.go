package config

import (
	"path/filepath"

	"github.com/corraldev/corral/utils"
)

// EnsureDataDirs creates the static directories the daemon writes to.
// Per-instance artifact directories are created on demand.
func (c *Config) EnsureDataDirs() error {
	return utils.EnsureDirs(
		c.backendDataDir(),
		c.InstanceArtifactRoot(),
	)
}

func (c *Config) backendDataDir() string  { return filepath.Join(c.DataDir, c.Backend) }
func (c *Config) backendCacheDir() string { return filepath.Join(c.CacheDir, c.Backend) }

// InstancesFile is the authoritative persisted-registry path:
// <data>/<backend>/multipassd-vm-instances.json, per §6.
func (c *Config) InstancesFile() string {
	return filepath.Join(c.backendDataDir(), "multipassd-vm-instances.json")
}

// LegacyInstancesFile is the pre-migration location read when
// InstancesFile does not exist, per §6.
func (c *Config) LegacyInstancesFile() string {
	return filepath.Join(c.backendCacheDir(), "multipassd-vm-instances.json")
}

func (c *Config) InstancesLockFile() string {
	return filepath.Join(c.backendDataDir(), "multipassd-vm-instances.lock")
}

// InstanceArtifactRoot holds per-instance artifact subdirectories
// (cloud-init-config.iso, console logs, ...).
func (c *Config) InstanceArtifactRoot() string {
	return filepath.Join(c.backendDataDir(), "vault", "instances")
}

func (c *Config) InstanceArtifactDir(name string) string {
	return filepath.Join(c.InstanceArtifactRoot(), name)
}

// CloudInitISOPath is the per-instance cloud-init NoCloud seed image path.
func (c *Config) CloudInitISOPath(name string) string {
	return filepath.Join(c.InstanceArtifactDir(name), "cloud-init-config.iso")
}

func (c *Config) SettingsFile() string {
	return filepath.Join(c.backendDataDir(), "settings.json")
}

func (c *Config) SettingsLockFile() string {
	return filepath.Join(c.backendDataDir(), "settings.lock")
}

func (c *Config) ImageVaultDir() string {
	return filepath.Join(c.CacheDir, "images")
}

// BlueprintsDir holds the blueprint.FileProvider's named-template YAML
// files, distinct from the image cache despite both living under CacheDir.
func (c *Config) BlueprintsDir() string {
	return filepath.Join(c.CacheDir, "blueprints")
}
