package mount

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corraldev/corral/cmd/corral/cmdcore"
	"github.com/corraldev/corral/types"
)

// Handler implements Actions against a running daemon.
type Handler struct {
	cmdcore.BaseHandler
}

func (h Handler) Mount(cmd *cobra.Command, args []string) error {
	ctx, d, err := h.Init(cmd)
	if err != nil {
		return err
	}
	source := args[0]
	instance, target, err := splitInstanceTarget(args[1])
	if err != nil {
		return err
	}

	uidMapsRaw, _ := cmd.Flags().GetStringSlice("uid-map")
	gidMapsRaw, _ := cmd.Flags().GetStringSlice("gid-map")
	native, _ := cmd.Flags().GetBool("native")

	uidMaps, err := parseIDMappings(uidMapsRaw)
	if err != nil {
		return fmt.Errorf("--uid-map: %w", err)
	}
	gidMaps, err := parseIDMappings(gidMapsRaw)
	if err != nil {
		return fmt.Errorf("--gid-map: %w", err)
	}

	kind := types.MountClassic
	if native {
		kind = types.MountNative
	}

	return d.Manager.Mount(ctx, instance, target, types.MountDescription{
		SourcePath:  source,
		UIDMappings: uidMaps,
		GIDMappings: gidMaps,
		MountKind:   kind,
	})
}

func (h Handler) Umount(cmd *cobra.Command, args []string) error {
	ctx, d, err := h.Init(cmd)
	if err != nil {
		return err
	}
	instance, target, err := splitInstanceTarget(args[0])
	if err != nil {
		return err
	}
	return d.Manager.Umount(ctx, instance, target)
}

func splitInstanceTarget(raw string) (instance, target string, err error) {
	instance, target, ok := strings.Cut(raw, ":")
	if !ok || instance == "" || target == "" {
		return "", "", fmt.Errorf("expected INSTANCE:TARGET, got %q", raw)
	}
	return instance, target, nil
}

// parseIDMappings parses a list of "host:guest" pairs.
func parseIDMappings(raw []string) ([]types.IDMapping, error) {
	out := make([]types.IDMapping, 0, len(raw))
	for _, entry := range raw {
		hostStr, guestStr, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("expected host:guest, got %q", entry)
		}
		hostID, err := strconv.Atoi(hostStr)
		if err != nil {
			return nil, fmt.Errorf("invalid host id %q: %w", hostStr, err)
		}
		guestID, err := strconv.Atoi(guestStr)
		if err != nil {
			return nil, fmt.Errorf("invalid guest id %q: %w", guestStr, err)
		}
		out = append(out, types.IDMapping{HostID: hostID, GuestID: guestID})
	}
	return out, nil
}
