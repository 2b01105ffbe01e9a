package shared

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Principal identifies an actor by its 20-byte address.
type Principal struct {
	addr common.Address
}

// ZeroPrincipal is the unset address.
var ZeroPrincipal = Principal{}

// ParsePrincipal accepts a 0x-prefixed hex address in any letter case.
func ParsePrincipal(raw string) (Principal, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return Principal{}, fmt.Errorf("%w: malformed address %q", ErrInvalidInput, raw)
	}
	p := Principal{addr: common.HexToAddress(raw)}
	if p.IsZero() {
		return Principal{}, fmt.Errorf("%w: zero address", ErrInvalidInput)
	}
	return p, nil
}

// MustPrincipal parses raw and panics on failure. Intended for tests and constants.
func MustPrincipal(raw string) Principal {
	p, err := ParsePrincipal(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// PrincipalFromBytes builds a principal from the low 20 bytes of b.
func PrincipalFromBytes(b []byte) Principal {
	return Principal{addr: common.BytesToAddress(b)}
}

// String renders the EIP-55 checksummed form.
func (p Principal) String() string {
	return p.addr.Hex()
}

// IsZero reports whether p is the unset address.
func (p Principal) IsZero() bool {
	return p.addr == (common.Address{})
}

// MarshalText implements encoding.TextMarshaler. The zero principal encodes
// as an empty string.
func (p Principal) MarshalText() ([]byte, error) {
	if p.IsZero() {
		return []byte{}, nil
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Principal) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = Principal{}
		return nil
	}
	parsed, err := ParsePrincipal(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
