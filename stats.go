package vcican

import (
	"fmt"
	"sync/atomic"
)

type Stats struct {
	Sent          uint64
	SendErrors    uint64
	Received      uint64
	EmptyPolls    uint64
	ReceiveErrors uint64
	InvalidFrames uint64
}

func (st Stats) String() string {
	return fmt.Sprintf("sent: %d send errors: %d recv: %d empty polls: %d recv errors: %d invalid: %d",
		st.Sent, st.SendErrors, st.Received, st.EmptyPolls, st.ReceiveErrors, st.InvalidFrames)
}

// counters are updated concurrently by the activities of a run
type counters struct {
	sent, sendErrors                    atomic.Uint64
	received, emptyPolls, receiveErrors atomic.Uint64
	invalidFrames                       atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Sent:          c.sent.Load(),
		SendErrors:    c.sendErrors.Load(),
		Received:      c.received.Load(),
		EmptyPolls:    c.emptyPolls.Load(),
		ReceiveErrors: c.receiveErrors.Load(),
		InvalidFrames: c.invalidFrames.Load(),
	}
}
