// Package derive computes program-derived addresses: deterministic account
// addresses that no private key can sign for.
package derive

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const (
	MaxSeeds      = 16
	MaxSeedLength = 32
	pdaMarker     = "ProgramDerivedAddress"
)

var (
	ErrInvalidProgramID = errors.New("invalid program id")
	ErrTooManySeeds     = errors.New("too many seeds")
	ErrNoViableBump     = errors.New("no viable bump seed")
)

// PDA derives addresses under one program id.
type PDA struct {
	programID [32]byte
}

// New parses a base58 program id.
func New(programID string) (*PDA, error) {
	raw, err := base58.Decode(programID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProgramID, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidProgramID, len(raw))
	}
	p := &PDA{}
	copy(p.programID[:], raw)
	return p, nil
}

// FromNamespace builds a program id by hashing an arbitrary name. Useful for
// local deployments that have no real program id.
func FromNamespace(namespace string) *PDA {
	return &PDA{programID: sha256.Sum256([]byte(namespace))}
}

// Resolve parses programID when set and falls back to FromNamespace.
func Resolve(programID, namespace string) (*PDA, error) {
	if programID != "" {
		return New(programID)
	}
	return FromNamespace(namespace), nil
}

func (p *PDA) ProgramID() string {
	return base58.Encode(p.programID[:])
}

// Derive searches bumps from 255 down and returns the first address that is
// not a valid ed25519 point.
func (p *PDA) Derive(seeds ...[]byte) (string, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return "", 0, fmt.Errorf("%w: %d", ErrTooManySeeds, len(seeds))
	}
	normalized := normalizeSeeds(seeds)
	for bump := 255; bump >= 0; bump-- {
		addr := p.hash(normalized, uint8(bump))
		if !onCurve(addr) {
			return base58.Encode(addr[:]), uint8(bump), nil
		}
	}
	return "", 0, ErrNoViableBump
}

// CreateAddress hashes seeds with an explicit bump. It fails when the result
// lands on the curve.
func (p *PDA) CreateAddress(bump uint8, seeds ...[]byte) (string, error) {
	if len(seeds) >= MaxSeeds {
		return "", fmt.Errorf("%w: %d", ErrTooManySeeds, len(seeds))
	}
	addr := p.hash(normalizeSeeds(seeds), bump)
	if onCurve(addr) {
		return "", fmt.Errorf("%w: bump %d", ErrNoViableBump, bump)
	}
	return base58.Encode(addr[:]), nil
}

func (p *PDA) hash(seeds [][]byte, bump uint8) [32]byte {
	h := sha256.New()
	for _, s := range seeds {
		h.Write(s)
	}
	h.Write([]byte{bump})
	h.Write(p.programID[:])
	h.Write([]byte(pdaMarker))

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func normalizeSeeds(seeds [][]byte) [][]byte {
	out := make([][]byte, len(seeds))
	for i, s := range seeds {
		out[i] = normalizeSeed(s)
	}
	return out
}

// A seed that is itself a base58 encoded 32-byte key is used in raw form, the
// same way on-chain programs seed with public keys. Any other seed longer than
// MaxSeedLength is replaced by its sha256 digest.
func normalizeSeed(seed []byte) []byte {
	if len(seed) <= MaxSeedLength {
		return seed
	}
	if raw, err := base58.Decode(string(seed)); err == nil && len(raw) == 32 {
		return raw
	}
	sum := sha256.Sum256(seed)
	return sum[:]
}

func onCurve(b [32]byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b[:])
	return err == nil
}
