// Package macaddr allocates and validates the MAC addresses recorded on
// instance specifications, guaranteeing uniqueness across every known
// record, per the MAC allocator design.
package macaddr

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/projecteru2/core/log"

	"github.com/corraldev/corral/corralerr"
)

const maxAttempts = 5

// Set is the global allocated-MAC set: every MAC used by any operative,
// deleted, or preparing spec. It is not safe for concurrent use; callers
// hold the lifecycle manager's global mutex while mutating it.
type Set map[string]struct{}

// NewSet returns an empty allocated-MAC set.
func NewSet() Set { return make(Set) }

// Clone returns an independent copy, used to build the tentative set a
// create operation mutates before promoting it on success.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// MergeIfDisjoint inserts every MAC in t into s iff s and t share no
// element, returning whether the merge happened.
func MergeIfDisjoint(s, t Set) bool {
	for mac := range t {
		if _, ok := s[mac]; ok {
			return false
		}
	}
	for mac := range t {
		s[mac] = struct{}{}
	}
	return true
}

// MACsOf returns the default plus extra-interface MACs of specs that expose
// a MACs() []string method, mirroring mac_set_of in the allocator design.
// Kept generic over anything with that shape so both types.InstanceSpec and
// test fakes can use it without an import cycle on types.
func MACsOf(spec interface{ MACs() []string }) Set {
	out := make(Set)
	for _, mac := range spec.MACs() {
		out[mac] = struct{}{}
	}
	return out
}

// Normalize lower-cases and validates a user-supplied MAC string against the
// IEEE 48-bit colon-separated grammar. Empty input is untouched — the caller
// interprets "" as "generate".
func Normalize(mac string) (string, error) {
	if mac == "" {
		return "", nil
	}
	mac = strings.ToLower(mac)
	if !isValid(mac) {
		return "", corralerr.Coded(corralerr.InvalidArgument, "INVALID_MAC_ADDRESS", fmt.Sprintf("invalid MAC address %q", mac))
	}
	return mac, nil
}

func isValid(mac string) bool {
	parts := strings.Split(mac, ":")
	if len(parts) != 6 {
		return false
	}
	for _, p := range parts {
		if len(p) != 2 {
			return false
		}
		for _, c := range p {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
				return false
			}
		}
	}
	return true
}

// Generate draws a unicast, locally-administered MAC address at random.
func Generate() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate MAC: %w", err)
	}
	// Locally administered (bit 1) unicast (bit 0 clear) per the first octet.
	buf[0] = (buf[0] | 0x02) &^ 0x01
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", buf[0], buf[1], buf[2], buf[3], buf[4], buf[5]), nil
}

// Allocate resolves a user-requested MAC (possibly empty) against set: an
// empty request generates a fresh address, retrying up to maxAttempts times
// against collisions with set before failing with ResourceExhausted. A
// non-empty request is validated and must be absent from set.
func Allocate(ctx context.Context, set Set, requested string) (string, error) {
	logger := log.WithFunc("macaddr.Allocate")
	mac, err := Normalize(requested)
	if err != nil {
		return "", err
	}
	if mac != "" {
		if _, taken := set[mac]; taken {
			return "", corralerr.Newf(corralerr.InvalidArgument, "MAC address %s is already in use", mac)
		}
		return mac, nil
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate, err := Generate()
		if err != nil {
			return "", err
		}
		if _, taken := set[candidate]; !taken {
			return candidate, nil
		}
		logger.Warnf(ctx, "generated MAC %s collided with allocated set, retrying", candidate)
	}
	return "", corralerr.New(corralerr.ResourceExhausted, "exhausted MAC address generation attempts")
}
