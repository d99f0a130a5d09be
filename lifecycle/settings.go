package lifecycle

import "context"

// GetSetting returns the value of key, delegating to the settings store and
// propagating its error taxonomy (e.g. attempting to read back the
// passphrase key yields FailedPrecondition).
func (m *Manager) GetSetting(ctx context.Context, key string) (string, error) {
	return m.Settings.Get(ctx, key)
}

// SetSetting sets key to value, delegating to the settings store.
func (m *Manager) SetSetting(ctx context.Context, key, value string) error {
	return m.Settings.Set(ctx, key, value)
}

// SettingKeys lists every known setting key.
func (m *Manager) SettingKeys(ctx context.Context) ([]string, error) {
	return m.Settings.Keys(ctx)
}

// Authenticate checks passphrase against the stored, hashed passphrase.
func (m *Manager) Authenticate(ctx context.Context, passphrase string) error {
	return m.Settings.Authenticate(ctx, passphrase)
}
