// Package idgen generates deterministic, collision-resistant compound ids
// for plans, actions, and patterns: "{kind}_{sequence:06d}_{hash8}" where
// hash8 is the first 8 hex characters of the SHA-256 digest of the
// caller-supplied content. The sequence component gives temporal ordering;
// the hash component gives content uniqueness, together sufficient for
// collision-free operation at >=10^4 entities (spec.md §7).
package idgen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"
)

// Generator issues compound ids for a single kind prefix, maintaining its
// own monotonic sequence counter. It is safe for concurrent use.
type Generator struct {
	seq atomic.Uint64
}

// New constructs an id Generator whose sequence starts at zero.
func New() *Generator {
	return &Generator{}
}

// Next returns the next id for kind, hashing content to derive the
// collision-resistant suffix. content is typically a canonical string
// encoding of the entity being identified (e.g. a JSON- or tuple-rendered
// action sequence).
func (g *Generator) Next(kind string, content []byte) string {
	seq := g.seq.Add(1)
	return Format(kind, seq, content)
}

// Format renders the compound id for an explicit sequence number, letting
// callers reproduce an id deterministically (e.g. in tests, or when the
// sequence is tracked externally rather than by this Generator).
func Format(kind string, sequence uint64, content []byte) string {
	sum := sha256.Sum256(content)
	hash8 := hex.EncodeToString(sum[:])[:8]
	return fmt.Sprintf("%s_%06d_%s", kind, sequence, hash8)
}

// ContentHash8 returns the first 8 hex characters of the SHA-256 digest of
// content, the same suffix Format embeds. Exposed so callers can derive a
// pattern id's collision-resistant component independent of a sequence
// number (e.g. PatternMap id generation, which is keyed on signature alone).
func ContentHash8(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:8]
}
