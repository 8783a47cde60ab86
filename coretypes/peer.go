package coretypes

import "github.com/solidusnet/solidus/crypto"

// Role is the closed set of overlay tiers (spec.md §4.6, §9: "represent as a
// tagged variant", not open inheritance).
type Role int

const (
	RoleSeed Role = iota
	RoleSeedGateway
	RoleServiceProvider
	RoleUser
	roleCount
)

func (r Role) String() string {
	switch r {
	case RoleSeed:
		return "seed"
	case RoleSeedGateway:
		return "seed_gateway"
	case RoleServiceProvider:
		return "service_provider"
	case RoleUser:
		return "user"
	default:
		return "unknown"
	}
}

// ParseRole maps a config string onto a Role (spec.md §6 peer_type).
func ParseRole(s string) Role {
	switch s {
	case "seed":
		return RoleSeed
	case "seed_gateway":
		return RoleSeedGateway
	case "service_provider":
		return RoleServiceProvider
	default:
		return RoleUser
	}
}

// RoleCount is the number of roles, used to size fixed-size per-role arrays
// (spec.md §9: "fixed-size array indexed by the role enum").
const RoleCount = int(roleCount)

// Identity is a peer's declared public key, username and proof that the
// peer controls both (spec.md §3 Peer.identity).
type Identity struct {
	PublicKey         string `json:"public_key"`
	Username          string `json:"username"`
	UsernameSignature string `json:"username_signature"`
}

// Verify checks that UsernameSignature is a valid signature of Username
// under PublicKey (spec.md §3 Peer invariant).
func (id Identity) Verify() bool {
	pub, err := crypto.PublicKeyFromHex(id.PublicKey)
	if err != nil {
		return false
	}
	return crypto.Verify(pub, []byte(id.Username), id.UsernameSignature)
}

// Peer describes a remote node in the overlay (spec.md §3 Peer).
type Peer struct {
	Host            string   `json:"host"`
	Port            int      `json:"port"`
	Identity        Identity `json:"identity"`
	Role            Role     `json:"role"`
	ProtocolVersion int      `json:"protocol_version"`

	// RID uniquely identifies this peer within a process's tables (spec.md
	// §3 Consensus-staging entry key, §4.6 route bridging markers).
	RID string `json:"rid"`
}

// Address is host:port, used as a map/log key.
func (p Peer) Address() string {
	return p.Host + ":" + portString(p.Port)
}

func portString(port int) string {
	// small, alloc-light int->string without importing strconv twice across
	// call sites; kept local since it's only used for the log-friendly key.
	if port == 0 {
		return "0"
	}
	neg := port < 0
	if neg {
		port = -port
	}
	var buf [8]byte
	i := len(buf)
	for port > 0 {
		i--
		buf[i] = byte('0' + port%10)
		port /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
