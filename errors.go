package art

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Get when the key has no entry in the trie.
var ErrNotFound = errors.New("art: key not found")

// ErrNilValue is returned by Set when called with a nil value; leaves
// distinguish "absent" from "present with an empty value" by pointer
// identity in the value log, so a nil value is rejected rather than
// silently coerced to an empty one.
var ErrNilValue = errors.New("art: value must not be nil")

// contractViolation panics with a location-tagged message. Every
// precondition and postcondition listed in this package's node
// implementations is a programming-error contract, not a recoverable
// runtime failure: callers that trip one have already corrupted their
// own call sequence, and continuing would corrupt the trie silently.
func contractViolation(format string, args ...any) {
	panic(fmt.Sprintf("art: contract violation: "+format, args...))
}

// unreachable marks a switch arm that every exhaustive tag dispatch
// must never reach. Reaching it means a nodeKind value escaped the
// package's construction sites.
func unreachable(where string) {
	panic("art: unreachable: " + where)
}
