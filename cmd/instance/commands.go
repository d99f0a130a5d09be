// Package instance is the "instance" command group: create, launch,
// start, stop, restart, suspend, recover, delete, purge, list, info,
// snapshot, restore, and shell — the lifecycle.Manager/create.Pipeline
// operation surface of §4.4/§4.5, shaped like the teacher's cmd/vm.
package instance

import "github.com/spf13/cobra"

// Actions defines every instance-group operation, mirroring cmd/vm's
// Actions interface in the teacher.
type Actions interface {
	Create(cmd *cobra.Command, args []string) error
	Launch(cmd *cobra.Command, args []string) error
	Start(cmd *cobra.Command, args []string) error
	Stop(cmd *cobra.Command, args []string) error
	Restart(cmd *cobra.Command, args []string) error
	Suspend(cmd *cobra.Command, args []string) error
	Recover(cmd *cobra.Command, args []string) error
	Delete(cmd *cobra.Command, args []string) error
	Purge(cmd *cobra.Command, args []string) error
	List(cmd *cobra.Command, args []string) error
	Info(cmd *cobra.Command, args []string) error
	Snapshot(cmd *cobra.Command, args []string) error
	Restore(cmd *cobra.Command, args []string) error
	Shell(cmd *cobra.Command, args []string) error
}

// Commands builds every top-level subcommand this group contributes,
// returned flat rather than nested under a parent "instance" command, so
// they read like multipass's own top-level verbs (launch, start, stop,
// list, ...) rather than "corral instance launch".
func Commands(h Actions) []*cobra.Command {
	createCmd := &cobra.Command{
		Use:   "create [flags] IMAGE",
		Short: "Create an instance from an image or blueprint, without starting it",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Create,
	}
	addCreateFlags(createCmd)

	launchCmd := &cobra.Command{
		Use:   "launch [flags] IMAGE",
		Short: "Create and start an instance from an image or blueprint",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Launch,
	}
	addCreateFlags(launchCmd)

	startCmd := &cobra.Command{
		Use:   "start [INSTANCE...]",
		Short: "Start instances (all operative instances if none named)",
		RunE:  h.Start,
	}

	stopCmd := &cobra.Command{
		Use:   "stop [flags] [INSTANCE...]",
		Short: "Stop running instances, or cancel a pending delayed stop",
		RunE:  h.Stop,
	}
	stopCmd.Flags().Duration("delay", 0, "delay before stopping (0 = immediate)")
	stopCmd.Flags().Bool("cancel", false, "cancel a pending delayed stop instead of stopping")

	restartCmd := &cobra.Command{
		Use:   "restart [INSTANCE...]",
		Short: "Reboot running instances",
		RunE:  h.Restart,
	}

	suspendCmd := &cobra.Command{
		Use:   "suspend [INSTANCE...]",
		Short: "Suspend running instances",
		RunE:  h.Suspend,
	}

	recoverCmd := &cobra.Command{
		Use:   "recover INSTANCE [INSTANCE...]",
		Short: "Recover deleted-but-not-purged instances",
		Args:  cobra.MinimumNArgs(1),
		RunE:  h.Recover,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [flags] INSTANCE [INSTANCE...]",
		Short: "Delete instances (--purge to also release resources immediately)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  h.Delete,
	}
	deleteCmd.Flags().Bool("purge", false, "also release resources and remove permanently")

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Permanently remove all deleted instances and release their resources",
		RunE:  h.Purge,
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List instances with state and IPv4 addresses",
		RunE:    h.List,
	}

	infoCmd := &cobra.Command{
		Use:   "info INSTANCE [INSTANCE...]",
		Short: "Show detailed instance info (JSON)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  h.Info,
	}

	snapshotCmd := &cobra.Command{
		Use:   "snapshot INSTANCE",
		Short: "Take a snapshot of a stopped instance",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Snapshot,
	}
	snapshotCmd.Flags().String("name", "", "snapshot name (auto-generated if omitted)")
	snapshotCmd.Flags().String("comment", "", "snapshot comment")

	restoreCmd := &cobra.Command{
		Use:   "restore INSTANCE SNAPSHOT",
		Short: "Restore a stopped instance to a prior snapshot",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE:  h.Restore,
	}
	restoreCmd.Flags().Bool("destructive", false, "skip the automatic pre-restore snapshot")

	shellCmd := &cobra.Command{
		Use:   "shell INSTANCE",
		Short: "Open an interactive shell on a running instance",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Shell,
	}
	shellCmd.Flags().String("escape-char", "", "escape character (single char or ^X caret notation, default ^])")

	return []*cobra.Command{
		createCmd, launchCmd, startCmd, stopCmd, restartCmd, suspendCmd,
		recoverCmd, deleteCmd, purgeCmd, listCmd, infoCmd,
		snapshotCmd, restoreCmd, shellCmd,
	}
}

func addCreateFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "instance name (generated if omitted)")
	cmd.Flags().String("remote", "", "image remote/alias namespace")
	cmd.Flags().Int("cpus", 0, "number of CPU cores (blueprint/default if 0)")
	cmd.Flags().String("memory", "", "memory size, e.g. 1GiB (blueprint/default if empty)")
	cmd.Flags().String("disk", "", "disk size, e.g. 10GiB (blueprint/default if empty)")
	cmd.Flags().String("ssh-username", "", "guest SSH username (default if empty)")
	cmd.Flags().String("network", "", "extra network to attach, name[,mac=AA:BB:..][,mode=manual]")
	cmd.Flags().String("cloud-init", "", "path to a cloud-init user-data file to merge in")
	cmd.Flags().Bool("bridged", false, "authorize any networks this create touches that need host bridging")
	cmd.Flags().Duration("timeout", 0, "overall operation timeout (0 = no timeout)")
}
