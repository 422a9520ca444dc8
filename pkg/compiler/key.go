package compiler

import (
	"encoding/base32"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/kdlang/karelc/pkg/proto"
)

// baseEncoding renders a key's hash as a short, filesystem- and
// TGT-identifier-safe tail.
var baseEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// emittedBaseName computes an Instance's deterministic, collision-free
// emitted_name from its dedup key, before its body has been compiled —
// callers need this up front so a push site can name a continuation
// segment before that segment exists. top_level_implicit prototypes are
// the one exception: their name is simply their source name, unadorned
// (spec.md §4.5), since they are already guaranteed unique.
func emittedBaseName(p *proto.Prototype, key proto.Key, debug bool) string {
	if p.TopLevelImplicit {
		return p.Name
	}
	if debug {
		return fmt.Sprintf("%s<%x|%s>", p.Name, key.ArgHash, key.ContinuationName)
	}
	// Fold the continuation's name into the encoded hash too, matching
	// numka's gen_comp_name, which hashes ch{hash(commit_dest.comp_name)}
	// alongside the arg hash — two Instances that differ only by
	// continuation must not collide on BaseName (spec.md §3, §8).
	combined := xxhash.Sum64String(fmt.Sprintf("%x|%s", key.ArgHash, key.ContinuationName))
	tail := baseEncoding.EncodeToString([]byte{
		byte(combined >> 56), byte(combined >> 48), byte(combined >> 40),
		byte(combined >> 32), byte(combined >> 24), byte(combined >> 16),
	})
	return fmt.Sprintf("%s_%s", p.Name, tail)
}
