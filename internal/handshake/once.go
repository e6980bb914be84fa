package handshake

import (
	"fmt"

	"github.com/dmarkov/parley/internal/common"
)

// cell is a write-once container. Every mutable field of a Handshake lives
// in one, so a buggy or hostile peer message can never overwrite
// in-progress state: the second write is rejected and the original value
// stands.
type cell[T any] struct {
	set bool
	v   T
}

// Set stores v on first use and returns common.ErrPolicyViolation on any
// later attempt.
func (c *cell[T]) Set(v T) error {
	if c.set {
		return common.ErrPolicyViolation
	}
	c.set = true
	c.v = v
	return nil
}

// Get returns the stored value and whether it was ever set.
func (c *cell[T]) Get() (T, bool) {
	return c.v, c.set
}

// value returns the stored value, zero if unset.
func (c *cell[T]) value() T {
	return c.v
}

// setField writes v into c, converting a double write into the handshake's
// sticky error state. It reports whether the write took.
func setField[T any](h *Handshake, c *cell[T], name string, v T) bool {
	if err := c.Set(v); err != nil {
		h.fail(fmt.Errorf("%w: field %q written twice", common.ErrPolicyViolation, name))
		return false
	}
	return true
}
