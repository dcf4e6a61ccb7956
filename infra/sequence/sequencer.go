package sequence

import "sync/atomic"

// Sequencer hands out strictly increasing event sequence numbers.
// The first call to Next after New(start) returns start+1.
type Sequencer struct {
	next atomic.Uint64
}

func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence number.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset moves the sequencer to v. It is used when an outbox already holds
// events so numbering resumes after them.
func (s *Sequencer) Reset(v uint64) {
	s.next.Store(v)
}
