// Package create implements the instance creation pipeline (§4.5):
// validate, name, reserve, prepare, commit, and — for a launch — start.
package create

import "time"

// NetworkOption is one requested network attachment.
type NetworkOption struct {
	Name       string
	MACAddress string
	AutoMode   bool
}

// Request is everything the creation pipeline's inputs enumerate in §4.5.
type Request struct {
	Name               string
	ImageRef           string
	Remote             string
	Cores              int
	Memory             string // decimal byte string, e.g. "2GiB"
	Disk               string // decimal byte string; "" means unset
	SSHUsername        string
	DefaultMACAddress  string
	CloudInitUserData  string
	Networks           []NetworkOption
	PermissionToBridge bool
	Timeout            time.Duration
	Verbose            bool
	// Launch distinguishes launch (create + start) from a bare create.
	Launch bool
}

// BridgeAuthorization lists the network names a create request touched
// that require host-side authorization before they may be used, returned
// to the client when PermissionToBridge is false.
type BridgeAuthorization struct {
	Networks []string
}

// Result is the pipeline's reply on success.
type Result struct {
	Name        string
	Aliases     []string
	Workspaces  []string
	MACAddress  string
	ExtraMACs   []string
}
