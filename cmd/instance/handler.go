package instance

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"

	"github.com/corraldev/corral/cmd/corral/cmdcore"
	"github.com/corraldev/corral/create"
	"github.com/corraldev/corral/imagevault"
	"github.com/corraldev/corral/progress"
)

// Handler implements Actions against a running daemon.
type Handler struct {
	cmdcore.BaseHandler
}

func (h Handler) createOrLaunch(cmd *cobra.Command, args []string, launch bool) error {
	ctx, d, err := h.Init(cmd)
	if err != nil {
		return err
	}
	logger := log.WithFunc("cmd.instance")

	req, err := requestFromFlags(cmd, args[0], launch)
	if err != nil {
		return err
	}

	// The pipeline itself takes no deadline; --timeout is enforced here, at
	// the CLI boundary, by bounding the context passed to Create.
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	tracker := progress.NewTracker(func(e imagevault.PullEvent) {
		fmt.Fprintf(os.Stderr, "\rFetching image... %d%%", e.Percent)
	})
	result, auth, err := d.Pipeline.Create(ctx, req, tracker)
	if err != nil {
		return err
	}
	if len(auth.Networks) > 0 {
		return fmt.Errorf("networks %s need host-side bridging authorization; re-run with --bridged", strings.Join(auth.Networks, ", "))
	}

	fmt.Fprintln(os.Stderr)
	logger.Infof(ctx, "created instance %s (mac %s)", result.Name, result.MACAddress)
	if launch {
		logger.Infof(ctx, "launched: %s", result.Name)
	} else {
		logger.Infof(ctx, "start with: corral start %s", result.Name)
	}
	return nil
}

func (h Handler) Create(cmd *cobra.Command, args []string) error { return h.createOrLaunch(cmd, args, false) }
func (h Handler) Launch(cmd *cobra.Command, args []string) error { return h.createOrLaunch(cmd, args, true) }

func (h Handler) Start(cmd *cobra.Command, args []string) error {
	ctx, d, err := h.Init(cmd)
	if err != nil {
		return err
	}
	return d.Manager.Start(ctx, args)
}

func (h Handler) Stop(cmd *cobra.Command, args []string) error {
	ctx, d, err := h.Init(cmd)
	if err != nil {
		return err
	}
	delay, _ := cmd.Flags().GetDuration("delay")
	cancel, _ := cmd.Flags().GetBool("cancel")
	return d.Manager.Stop(ctx, args, delay, cancel)
}

func (h Handler) Restart(cmd *cobra.Command, args []string) error {
	ctx, d, err := h.Init(cmd)
	if err != nil {
		return err
	}
	return d.Manager.Restart(ctx, args)
}

func (h Handler) Suspend(cmd *cobra.Command, args []string) error {
	ctx, d, err := h.Init(cmd)
	if err != nil {
		return err
	}
	return d.Manager.Suspend(ctx, args)
}

func (h Handler) Recover(cmd *cobra.Command, args []string) error {
	ctx, d, err := h.Init(cmd)
	if err != nil {
		return err
	}
	return d.Manager.Recover(ctx, args)
}

func (h Handler) Delete(cmd *cobra.Command, args []string) error {
	ctx, d, err := h.Init(cmd)
	if err != nil {
		return err
	}
	purge, _ := cmd.Flags().GetBool("purge")
	return d.Manager.Delete(ctx, args, purge)
}

func (h Handler) Purge(cmd *cobra.Command, _ []string) error {
	ctx, d, err := h.Init(cmd)
	if err != nil {
		return err
	}
	return d.Manager.Purge(ctx)
}

func (h Handler) List(cmd *cobra.Command, _ []string) error {
	ctx, d, err := h.Init(cmd)
	if err != nil {
		return err
	}
	summaries, err := d.Manager.List(ctx)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Println("No instances found.")
		return nil
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0) //nolint:mnd
	_, _ = fmt.Fprintln(w, "NAME\tSTATE\tDELETED\tIPV4")
	for _, s := range summaries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%v\t%s\n", s.Name, s.State, s.Deleted, strings.Join(s.IPv4, ","))
	}
	return w.Flush()
}

func (h Handler) Info(cmd *cobra.Command, args []string) error {
	ctx, d, err := h.Init(cmd)
	if err != nil {
		return err
	}
	infos, err := d.Manager.Info(ctx, args)
	if err != nil {
		return fmt.Errorf("info: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ") //nolint:mnd
	return enc.Encode(infos)
}

func (h Handler) Snapshot(cmd *cobra.Command, args []string) error {
	ctx, d, err := h.Init(cmd)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	comment, _ := cmd.Flags().GetString("comment")
	assigned, err := d.Manager.Snapshot(ctx, args[0], name, comment)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	fmt.Println(assigned)
	return nil
}

func (h Handler) Restore(cmd *cobra.Command, args []string) error {
	ctx, d, err := h.Init(cmd)
	if err != nil {
		return err
	}
	destructive, _ := cmd.Flags().GetBool("destructive")
	return d.Manager.Restore(ctx, args[0], args[1], destructive)
}

func (h Handler) Shell(cmd *cobra.Command, args []string) error {
	ctx, d, err := h.Init(cmd)
	if err != nil {
		return err
	}
	info, err := d.Manager.SSHInfo(ctx, args[0])
	if err != nil {
		return fmt.Errorf("shell: %w", err)
	}
	escapeRaw, _ := cmd.Flags().GetString("escape-char")
	escapeChar, err := cmdcore.ParseEscapeChar(escapeRaw)
	if err != nil {
		return err
	}
	return cmdcore.Shell(ctx, info, escapeChar)
}

// requestFromFlags builds a create.Request from the create/launch
// subcommands' shared flags, mirroring cmdcore.VMConfigFromFlags's role in
// the teacher.
func requestFromFlags(cmd *cobra.Command, image string, launch bool) (create.Request, error) {
	name, _ := cmd.Flags().GetString("name")
	remote, _ := cmd.Flags().GetString("remote")
	cores, _ := cmd.Flags().GetInt("cpus")
	memory, _ := cmd.Flags().GetString("memory")
	disk, _ := cmd.Flags().GetString("disk")
	sshUsername, _ := cmd.Flags().GetString("ssh-username")
	networkRaw, _ := cmd.Flags().GetString("network")
	cloudInitPath, _ := cmd.Flags().GetString("cloud-init")
	bridged, _ := cmd.Flags().GetBool("bridged")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	var networks []create.NetworkOption
	if networkRaw != "" {
		net, err := parseNetworkOption(networkRaw)
		if err != nil {
			return create.Request{}, err
		}
		networks = append(networks, net)
	}

	var cloudInitUserData string
	if cloudInitPath != "" {
		data, err := os.ReadFile(cloudInitPath) //nolint:gosec // path from CLI flag
		if err != nil {
			return create.Request{}, fmt.Errorf("read cloud-init file: %w", err)
		}
		cloudInitUserData = string(data)
	}

	return create.Request{
		Name:               name,
		ImageRef:           image,
		Remote:             remote,
		Cores:              cores,
		Memory:             memory,
		Disk:               disk,
		SSHUsername:        sshUsername,
		CloudInitUserData:  cloudInitUserData,
		Networks:           networks,
		PermissionToBridge: bridged,
		Timeout:            timeout,
		Launch:             launch,
	}, nil
}

// parseNetworkOption parses "name[,mac=AA:BB:..][,mode=manual]".
func parseNetworkOption(raw string) (create.NetworkOption, error) {
	parts := strings.Split(raw, ",")
	opt := create.NetworkOption{Name: parts[0], AutoMode: true}
	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return create.NetworkOption{}, fmt.Errorf("invalid --network clause %q", part)
		}
		switch key {
		case "mac":
			opt.MACAddress = value
		case "mode":
			opt.AutoMode = value != "manual"
		default:
			return create.NetworkOption{}, fmt.Errorf("unknown --network clause %q", key)
		}
	}
	return opt, nil
}
