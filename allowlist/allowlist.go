// Package allowlist gates pool entry behind a Merkle root. Leaves are
// SHA-256 hashes of player addresses; internal nodes hash the byte-sorted
// concatenation of their children, so proofs do not need position bits.
package allowlist

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// List verifies membership proofs against a fixed root.
type List struct {
	root [sha256.Size]byte
}

// New parses a hex-encoded Merkle root.
func New(rootHex string) (*List, error) {
	raw, err := hex.DecodeString(rootHex)
	if err != nil {
		return nil, fmt.Errorf("decode merkle root: %w", err)
	}
	if len(raw) != sha256.Size {
		return nil, fmt.Errorf("merkle root must be %d bytes, got %d", sha256.Size, len(raw))
	}
	var l List
	copy(l.root[:], raw)
	return &l, nil
}

// Root returns the hex-encoded root.
func (l *List) Root() string {
	return hex.EncodeToString(l.root[:])
}

// Verify checks a proof (hex-encoded sibling hashes, leaf to root) for address.
func (l *List) Verify(address string, proof []string) bool {
	node := leafHash(address)
	for _, sibHex := range proof {
		sib, err := hex.DecodeString(sibHex)
		if err != nil || len(sib) != sha256.Size {
			return false
		}
		node = parentHash(node, sib)
	}
	return bytes.Equal(node, l.root[:])
}

func leafHash(address string) []byte {
	h := sha256.Sum256([]byte(address))
	return h[:]
}

func parentHash(a, b []byte) []byte {
	if bytes.Compare(a, b) > 0 {
		a, b = b, a
	}
	h := sha256.New()
	h.Write(a)
	h.Write(b)
	return h.Sum(nil)
}

// Build computes the root and per-address proofs for a set of addresses.
// Odd nodes are promoted unpaired. Used by operators preparing a gated game
// and by tests.
func Build(addresses []string) (rootHex string, proofs map[string][]string) {
	proofs = make(map[string][]string, len(addresses))
	if len(addresses) == 0 {
		return "", proofs
	}

	level := make([][]byte, len(addresses))
	// index of each address's node within the current level
	pos := make(map[string]int, len(addresses))
	for i, a := range addresses {
		level[i] = leafHash(a)
		pos[a] = i
		proofs[a] = []string{}
	}

	for len(level) > 1 {
		var next [][]byte
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, parentHash(level[i], level[i+1]))
		}
		for a, p := range pos {
			i := p
			if i%2 == 0 && i+1 < len(level) {
				proofs[a] = append(proofs[a], hex.EncodeToString(level[i+1]))
			} else if i%2 == 1 {
				proofs[a] = append(proofs[a], hex.EncodeToString(level[i-1]))
			}
			pos[a] = i / 2
		}
		level = next
	}
	return hex.EncodeToString(level[0]), proofs
}
