// Package mount is the "mount"/"umount" command group, wrapping
// lifecycle.Manager.Mount/Umount (§4.4).
package mount

import "github.com/spf13/cobra"

// Actions defines the mount-group operations.
type Actions interface {
	Mount(cmd *cobra.Command, args []string) error
	Umount(cmd *cobra.Command, args []string) error
}

// Commands builds the "mount" and "umount" top-level subcommands.
func Commands(h Actions) []*cobra.Command {
	mountCmd := &cobra.Command{
		Use:   "mount SOURCE INSTANCE:TARGET",
		Short: "Mount a local directory into an instance",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE:  h.Mount,
	}
	mountCmd.Flags().StringSlice("uid-map", nil, "host:guest UID mapping, repeatable")
	mountCmd.Flags().StringSlice("gid-map", nil, "host:guest GID mapping, repeatable")
	mountCmd.Flags().Bool("native", false, "use the hypervisor's native mount mechanism instead of classic SSHFS-style transfer")

	umountCmd := &cobra.Command{
		Use:   "umount INSTANCE:TARGET",
		Short: "Remove a mount from an instance",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Umount,
	}

	return []*cobra.Command{mountCmd, umountCmd}
}
