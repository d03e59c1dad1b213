package vcican

import "sync/atomic"

// CancelFlag is the stop signal shared by the activities of a run. Once set
// it stays set.
type CancelFlag struct {
	v atomic.Bool
}

func NewCancelFlag() *CancelFlag {
	return &CancelFlag{}
}

// Set raises the flag and reports whether this call did it.
func (c *CancelFlag) Set() bool {
	return c.v.CompareAndSwap(false, true)
}

func (c *CancelFlag) IsSet() bool {
	return c.v.Load()
}
