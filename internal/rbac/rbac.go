package rbac

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Role constants, hashed the same way on-chain access control does.
var (
	DefaultAdminRole = common.Hash{}
	ValidatorRole    = crypto.Keccak256Hash([]byte("VALIDATOR_ROLE"))
	MinterRole       = crypto.Keccak256Hash([]byte("MINTER_ROLE"))
	DeveloperRole    = crypto.Keccak256Hash([]byte("DEVELOPER_ROLE"))
)

var roleNames = map[common.Hash]string{
	DefaultAdminRole: "DEFAULT_ADMIN_ROLE",
	ValidatorRole:    "VALIDATOR_ROLE",
	MinterRole:       "MINTER_ROLE",
	DeveloperRole:    "DEVELOPER_ROLE",
}

// AdminOf returns the role allowed to grant and revoke role. Every role is
// administered by the default admin.
func AdminOf(role common.Hash) common.Hash {
	return DefaultAdminRole
}

// Name returns the human name of a known role, or its hex hash.
func Name(role common.Hash) string {
	if n, ok := roleNames[role]; ok {
		return n
	}
	return role.Hex()
}

// Parse accepts a role name ("validator", "VALIDATOR_ROLE") or a 0x-prefixed hash.
func Parse(s string) (common.Hash, bool) {
	if strings.HasPrefix(s, "0x") && len(s) == 66 {
		return common.HexToHash(s), true
	}
	name := strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasSuffix(name, "_ROLE") {
		name += "_ROLE"
	}
	for h, n := range roleNames {
		if n == name {
			return h, true
		}
	}
	return common.Hash{}, false
}
