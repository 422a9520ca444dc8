package proto

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Key is the dedup key an Instance is memoized under: the prototype
// name, the continuation it resumes into (empty string when it has
// none), and a hash of its template arguments composed with whatever
// template values it inherited from its lexically enclosing instances
// (for a lambda). Two calls that
// produce equal keys share one compiled Instance.
//
// numka.py computes the hash component with Python's builtin hash(),
// which is salted per-process and is not stable across runs — it never
// needed to be, since numka.py never compared keys across invocations.
// karelc's determinism property (spec.md §8) requires byte-identical
// output across runs of the same input, so the hash component here uses
// cespare/xxhash/v2 over a canonical encoding of the argument values
// instead. This is a deliberate deviation from the original, not an
// oversight: see DESIGN.md.
type Key struct {
	PrototypeName    string
	ContinuationName string
	ArgHash          uint64
}

// NewKey builds a dedup key from a prototype name, an optional
// continuation (nil for none), and the ordered list of resolved
// template values (the fn's own template args concatenated with any
// inherited values carried in from lexically enclosing instances).
func NewKey(protoName string, continuation *Callable, values []string) Key {
	return Key{
		PrototypeName:    protoName,
		ContinuationName: continuation.Name(),
		ArgHash:          hashValues(values),
	}
}

// hashValues canonically encodes an ordered string list and hashes it
// with xxhash so the same values always yield the same Key regardless
// of process, machine, or run.
func hashValues(values []string) uint64 {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return xxhash.Sum64String(b.String())
}
