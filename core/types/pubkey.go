package types

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
)

// PubkeySize is the byte length of an account address.
const PubkeySize = 32

// Pubkey identifies an account on the ledger. Its text form is base58.
type Pubkey [PubkeySize]byte

// SystemProgramID is the address of the built-in system program.
var SystemProgramID = Pubkey{}

// ParsePubkey decodes a base58 address.
func ParsePubkey(s string) (Pubkey, error) {
	var key Pubkey
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return key, fmt.Errorf("pubkey: empty address")
	}
	decoded := base58.Decode(trimmed)
	if len(decoded) != PubkeySize {
		return key, fmt.Errorf("pubkey: %q must decode to %d bytes (got %d)", trimmed, PubkeySize, len(decoded))
	}
	copy(key[:], decoded)
	return key, nil
}

// MustPubkey is ParsePubkey for package-level constants. It panics on bad input.
func MustPubkey(s string) Pubkey {
	key, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return key
}

// PubkeyFromBytes copies a raw 32-byte address.
func PubkeyFromBytes(b []byte) (Pubkey, error) {
	var key Pubkey
	if len(b) != PubkeySize {
		return key, fmt.Errorf("pubkey: expected %d bytes, got %d", PubkeySize, len(b))
	}
	copy(key[:], b)
	return key, nil
}

func (k Pubkey) String() string { return base58.Encode(k[:]) }

func (k Pubkey) Bytes() []byte { return append([]byte(nil), k[:]...) }

func (k Pubkey) IsZero() bool { return k == Pubkey{} }

// Compare orders keys bytewise.
func (k Pubkey) Compare(other Pubkey) int { return bytes.Compare(k[:], other[:]) }

func (k Pubkey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Pubkey) UnmarshalText(text []byte) error {
	parsed, err := ParsePubkey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
