// Package settings is the "get"/"set"/"keys"/"authenticate" command group,
// wrapping the settings store boundary and its authenticate flow (§4.4).
package settings

import "github.com/spf13/cobra"

// Actions defines the settings-group operations.
type Actions interface {
	Get(cmd *cobra.Command, args []string) error
	Set(cmd *cobra.Command, args []string) error
	Keys(cmd *cobra.Command, args []string) error
	Authenticate(cmd *cobra.Command, args []string) error
}

// Commands builds the "get", "set", "keys", and "authenticate" top-level
// subcommands.
func Commands(h Actions) []*cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Read a setting's value",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Get,
	}

	setCmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Write a setting's value",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE:  h.Set,
	}

	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List every stored setting key",
		RunE:  h.Keys,
	}

	authCmd := &cobra.Command{
		Use:   "authenticate PASSPHRASE",
		Short: "Verify a passphrase against the one previously set",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Authenticate,
	}

	return []*cobra.Command{getCmd, setCmd, keysCmd, authCmd}
}
