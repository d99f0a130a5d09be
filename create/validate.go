package create

import (
	"context"
	"strings"

	"github.com/corraldev/corral/corralerr"
	"github.com/corraldev/corral/hypervisor"
	"github.com/corraldev/corral/validate"
)

const (
	minMemoryBytes = 128 << 20 // 128MiB, below which the guest cannot boot
	minDiskBytes   = 512 << 20 // 512MiB
)

// disallowedAutoModeReleases hard-codes the image aliases multipass-style
// releases that may not use network auto mode, per §4.4.1's "per-image
// bridging policy" — these are snap/core base images whose networking is
// managed entirely by the guest's own snapd, not cloud-init.
var disallowedAutoModeReleases = map[string]bool{
	"core18": true,
	"core20": true,
	"core22": true,
}

// Validate performs §4.5 phase 1, synchronously: it checks numeric
// minimums, the hostname grammar, resolves every requested network against
// the hypervisor's network list, and separates networks that need host
// authorization from those that don't. It returns the authorization list
// unconditionally; the caller rejects the request on a non-empty list only
// when req.PermissionToBridge is false.
func Validate(ctx context.Context, req Request, hv hypervisor.Hypervisor, memoryBytes, diskBytes int64) (BridgeAuthorization, error) {
	if memoryBytes < minMemoryBytes {
		return BridgeAuthorization{}, corralerr.Coded(corralerr.InvalidArgument, "INVALID_MEM_SIZE", "requested memory is below the minimum")
	}
	if req.Disk != "" && diskBytes < minDiskBytes {
		return BridgeAuthorization{}, corralerr.Coded(corralerr.InvalidArgument, "INVALID_DISK_SIZE", "requested disk is below the minimum")
	}
	if req.Name != "" && !validate.Hostname(req.Name) {
		return BridgeAuthorization{}, corralerr.Coded(corralerr.InvalidArgument, "INVALID_HOSTNAME", "requested name is not a valid hostname")
	}

	known, err := hv.NetworkNames(ctx)
	if err != nil {
		return BridgeAuthorization{}, corralerr.Wrap(corralerr.FailedPrecondition, err)
	}
	knownSet := make(map[string]bool, len(known))
	for _, n := range known {
		knownSet[n] = true
	}

	var auth BridgeAuthorization
	for _, net := range req.Networks {
		if !knownSet[net.Name] {
			return BridgeAuthorization{}, corralerr.Newf(corralerr.InvalidArgument, "network %q is not known to the hypervisor back-end", net.Name)
		}
		if net.AutoMode && requiresBridgeAuthorization(net.Name) {
			auth.Networks = append(auth.Networks, net.Name)
		}
	}

	if imageDisallowsAutoMode(req.ImageRef) {
		for _, net := range req.Networks {
			if net.AutoMode {
				return BridgeAuthorization{}, corralerr.Newf(corralerr.InvalidArgument, "image %q does not support network auto mode", req.ImageRef)
			}
		}
	}

	return auth, nil
}

// requiresBridgeAuthorization reports whether attaching to name requires
// explicit host-side authorization. The default network never does; any
// other (bridged) network does.
func requiresBridgeAuthorization(name string) bool {
	return name != "default"
}

func imageDisallowsAutoMode(ref string) bool {
	alias := ref
	if i := strings.LastIndex(alias, ":"); i >= 0 {
		alias = alias[i+1:]
	}
	return disallowedAutoModeReleases[alias]
}
