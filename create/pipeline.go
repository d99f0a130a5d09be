package create

import (
	"context"
	"fmt"
	"os"
	"strings"

	units "github.com/docker/go-units"

	"github.com/corraldev/corral/cloudinit"
	"github.com/corraldev/corral/config"
	"github.com/corraldev/corral/corralerr"
	"github.com/corraldev/corral/hypervisor"
	"github.com/corraldev/corral/lifecycle"
	"github.com/corraldev/corral/macaddr"
	"github.com/corraldev/corral/persist"
	"github.com/corraldev/corral/progress"
	"github.com/corraldev/corral/types"
	"github.com/corraldev/corral/utils"
)

const defaultCores = 1

// Pipeline drives the §4.5 creation sequence: validate, name, reserve,
// prepare, commit, and — for a launch — start. It wires lifecycle.Manager's
// reservation primitives together with blueprint resolution, image fetch,
// MAC allocation, and cloud-init document generation.
type Pipeline struct {
	Manager *lifecycle.Manager
	Config  *config.Config

	// Version, BackendVersion, and HostVersion are folded into vendor-data's
	// pollinate user-agent record (§6).
	Version        string
	BackendVersion string
	HostVersion    string
}

// New returns a Pipeline wired to m and cfg.
func New(m *lifecycle.Manager, cfg *config.Config) *Pipeline {
	return &Pipeline{Manager: m, Config: cfg, Version: "1.0", BackendVersion: "1.0", HostVersion: "1.0"}
}

// Create runs the full pipeline. When req touches a network that needs
// host-side authorization and req.PermissionToBridge is false, it returns a
// non-empty BridgeAuthorization and creates nothing; the caller re-submits
// once authorization is granted.
func (p *Pipeline) Create(ctx context.Context, req Request, tracker progress.Tracker) (Result, BridgeAuthorization, error) {
	if tracker == nil {
		tracker = progress.Nop
	}

	memoryBytes, err := parseHumanSize(req.Memory, "INVALID_MEM_SIZE")
	if err != nil {
		return Result{}, BridgeAuthorization{}, err
	}
	var diskBytes int64
	if req.Disk != "" {
		diskBytes, err = parseHumanSize(req.Disk, "INVALID_DISK_SIZE")
		if err != nil {
			return Result{}, BridgeAuthorization{}, err
		}
	}

	bp, _ := p.Manager.Blueprints.Resolve(ctx, req.ImageRef)
	imageRef := req.ImageRef
	cores := req.Cores
	var rawUserData, blueprintDerivedName string
	if bp != nil {
		blueprintDerivedName = bp.Name
		if bp.Image != "" {
			imageRef = bp.Image
		}
		if cores == 0 {
			cores = bp.Cores
		}
		if memoryBytes == 0 {
			memoryBytes = bp.MemoryBytes
		}
		if diskBytes == 0 {
			diskBytes = bp.DiskBytes
		}
		rawUserData = bp.UserData
	}
	if req.CloudInitUserData != "" {
		rawUserData = req.CloudInitUserData
	}
	if cores == 0 {
		cores = defaultCores
	}
	if memoryBytes == 0 {
		memoryBytes, _ = units.FromHumanSize(persist.DefaultMemory)
	}

	auth, err := Validate(ctx, req, p.Manager.Hypervisor, memoryBytes, diskBytes)
	if err != nil {
		return Result{}, BridgeAuthorization{}, err
	}
	if len(auth.Networks) > 0 && !req.PermissionToBridge {
		return Result{}, auth, nil
	}

	fixedName, generate := resolveName(req.Name, blueprintDerivedName)
	var name, token string
	if generate {
		name, token, err = p.Manager.GenerateName(generatedCandidate)
	} else {
		name = fixedName
		token, err = p.Manager.ReserveName(fixedName)
	}
	if err != nil {
		return Result{}, BridgeAuthorization{}, err
	}

	committed := false
	defer func() {
		if !committed {
			p.Manager.RollbackCreate(name, token)
		}
	}()

	spec, defaultMAC, extraMACs, tentative, err := p.prepare(ctx, req, name, imageRef, cores, memoryBytes, diskBytes, rawUserData, tracker)
	if err != nil {
		return Result{}, BridgeAuthorization{}, err
	}

	if err := p.Manager.PromoteMACs(tentative); err != nil {
		p.releasePartial(ctx, name)
		return Result{}, BridgeAuthorization{}, fail(err)
	}

	if err := p.Manager.CommitCreate(ctx, name, token, spec); err != nil {
		p.Manager.ReleaseMACs(tentative)
		p.releasePartial(ctx, name)
		return Result{}, BridgeAuthorization{}, fail(err)
	}
	committed = true

	result := Result{Name: name, MACAddress: defaultMAC, ExtraMACs: extraMACs}
	if bp != nil {
		result.Aliases = bp.Aliases
		result.Workspaces = bp.Workspaces
	}

	if req.Launch {
		if err := p.Manager.Launch(ctx, name); err != nil {
			// A start failure here only erases the operative entry, per §4.5
			// step 6 — unlike a step 4/5 failure it does not release the MAC
			// set or delete the prepared image: the instance is fully formed
			// and recoverable, just not running.
			p.Manager.RollbackCreate(name, token)
			_ = p.Manager.Persist(ctx)
			return Result{}, BridgeAuthorization{}, corralerr.Newf(corralerr.Aborted, "start instance %q after creation: %s", name, err.Error())
		}
	}

	return result, BridgeAuthorization{}, nil
}

// releasePartial best-effort tears down a VM and its cloud-init artifact
// directory created during prepare but never successfully committed — the
// "releases any partial resources" clause of §4.5's steps 4-5 failure
// policy.
func (p *Pipeline) releasePartial(ctx context.Context, name string) {
	_ = p.Manager.Hypervisor.Delete(ctx, name)
	_ = os.RemoveAll(p.Config.InstanceArtifactDir(name))
}

// prepare runs §4.5 step 4: resolve the image, compute the final disk size,
// allocate a tentative MAC set, build the cloud-init documents and ISO, and
// hand the result to the hypervisor back-end. It never mutates the
// manager's admitted MAC set or table membership — the caller promotes the
// tentative set and commits on success.
func (p *Pipeline) prepare(
	ctx context.Context,
	req Request,
	name, imageRef string,
	cores int,
	memoryBytes, requestedDiskBytes int64,
	rawUserData string,
	tracker progress.Tracker,
) (spec *types.InstanceSpec, defaultMAC string, extraMACs []string, tentative macaddr.Set, err error) {
	if dupMAC := duplicateRequestedMAC(req.Networks); dupMAC != "" {
		return nil, "", nil, nil, corralerr.Newf(corralerr.FailedPrecondition, "Repeated MAC address %s in create request", dupMAC)
	}

	requestedExtra := make([]string, len(req.Networks))
	for i, n := range req.Networks {
		requestedExtra[i] = n.MACAddress
	}
	defaultMAC, extraMACs, tentative, err = p.Manager.AllocateMACs(ctx, req.DefaultMACAddress, requestedExtra)
	if err != nil {
		return nil, "", nil, nil, fail(err)
	}

	resolved, err := p.Manager.Vault.Resolve(ctx, imageRef, tracker)
	if err != nil {
		return nil, "", nil, nil, fail(err)
	}

	builtinDefaultDisk, _ := units.FromHumanSize(persist.DefaultDisk)
	diskBytes := maxInt64(requestedDiskBytes, resolved.MinDiskBytes, builtinDefaultDisk)
	if available, aerr := utils.AvailableBytes(p.Config.InstanceArtifactRoot()); aerr == nil && diskBytes > available {
		return nil, "", nil, nil, corralerr.Newf(corralerr.FailedPrecondition,
			"requested disk size %s exceeds %s available on the host", units.HumanSize(float64(diskBytes)), units.HumanSize(float64(available)))
	}

	username := req.SSHUsername
	if username == "" {
		username = persist.DefaultSSHUsername
	}
	keys, err := generateSSHKeyPair()
	if err != nil {
		return nil, "", nil, nil, fail(err)
	}

	vendorInput := cloudinit.VendorDataInput{
		PublicKeyMaterial: keys.PublicKeyAuthorized,
		Username:          username,
		Timezone:          "UTC",
		Version:           p.Version,
		BackendVersion:    p.BackendVersion,
		HostVersion:       p.HostVersion,
		ImageAlias:        imageAliasLabel(req.Remote, imageRef),
	}
	vendorData, err := cloudinit.GenerateVendorData(vendorInput)
	if err != nil {
		return nil, "", nil, nil, fail(err)
	}
	metaData, err := cloudinit.GenerateMetaData(name)
	if err != nil {
		return nil, "", nil, nil, fail(err)
	}
	userData, err := cloudinit.GenerateUserData(rawUserData, username, vendorInput.VendorKey())
	if err != nil {
		return nil, "", nil, nil, fail(err)
	}

	extraInterfaces := make([]types.ExtraInterface, len(req.Networks))
	cloudinitExtras := make([]cloudinit.ExtraInterface, len(req.Networks))
	for i, n := range req.Networks {
		extraInterfaces[i] = types.ExtraInterface{ID: n.Name, MACAddress: extraMACs[i], AutoMode: n.AutoMode}
		cloudinitExtras[i] = cloudinit.ExtraInterface{MACAddress: extraMACs[i], AutoMode: n.AutoMode}
	}
	networkData, err := cloudinit.GenerateNetworkData(defaultMAC, cloudinitExtras)
	if err != nil {
		return nil, "", nil, nil, fail(err)
	}

	isoBytes, err := cloudinit.BuildISO(cloudinit.Documents{
		VendorData:  vendorData,
		MetaData:    metaData,
		UserData:    userData,
		NetworkData: networkData,
	})
	if err != nil {
		return nil, "", nil, nil, fail(err)
	}
	if err := utils.EnsureDirs(p.Config.InstanceArtifactDir(name)); err != nil {
		return nil, "", nil, nil, fail(err)
	}
	isoPath := p.Config.CloudInitISOPath(name)
	if err := os.WriteFile(isoPath, isoBytes, 0o640); err != nil { //nolint:gosec // instance-scoped artifact dir
		return nil, "", nil, nil, fail(fmt.Errorf("write cloud-init ISO: %w", err))
	}

	if err := p.Manager.Hypervisor.Create(ctx, name, hypervisor.CreateSpec{
		Cores:         cores,
		MemoryBytes:   memoryBytes,
		DiskBytes:     diskBytes,
		MACAddress:    defaultMAC,
		ExtraMACs:     extraMACs,
		CloudInitISO:  isoPath,
		BaseImagePath: resolved.LocalPath,
	}); err != nil {
		_ = os.RemoveAll(p.Config.InstanceArtifactDir(name))
		return nil, "", nil, nil, fail(err)
	}

	spec = &types.InstanceSpec{
		Cores:           cores,
		MemoryBytes:     memoryBytes,
		DiskBytes:       diskBytes,
		MACAddress:      defaultMAC,
		ExtraInterfaces: extraInterfaces,
		SSHUsername:     username,
		State:           types.StateOff,
		Mounts:          map[string]types.MountDescription{},
		Metadata: map[string]any{
			"ssh_private_key":           string(keys.PrivateKeyPEM),
			types.MetadataImageLocalPath: resolved.LocalPath,
		},
	}
	return spec, defaultMAC, extraMACs, tentative, nil
}

func duplicateRequestedMAC(networks []NetworkOption) string {
	seen := make(map[string]bool, len(networks))
	for _, n := range networks {
		if n.MACAddress == "" {
			continue
		}
		mac := strings.ToLower(n.MACAddress)
		if seen[mac] {
			return n.MACAddress
		}
		seen[mac] = true
	}
	return ""
}

// fail normalizes any phase-4/5 collaborator failure to FailedPrecondition,
// per §4.5's "any failure during steps 4-5 ... surfaces FailedPrecondition".
func fail(err error) error {
	return corralerr.Newf(corralerr.FailedPrecondition, "%s", err.Error())
}

func parseHumanSize(raw, code string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := units.FromHumanSize(raw)
	if err != nil {
		return 0, corralerr.Coded(corralerr.InvalidArgument, code, fmt.Sprintf("could not parse %q: %s", raw, err.Error()))
	}
	return n, nil
}

func maxInt64(values ...int64) int64 {
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// imageAliasLabel renders ref as the "<remote>:alias" form vendor-data's
// pollinate record expects, per §6.
func imageAliasLabel(remote, ref string) string {
	switch {
	case strings.HasPrefix(ref, "file://"), strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref
	case remote != "":
		return remote + ":" + ref
	default:
		return ref
	}
}
