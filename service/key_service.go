package service

import (
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"rbstore/domain/rbtree"
	"rbstore/infra/logging"
	"rbstore/infra/metrics"
	"rbstore/infra/outbox"
	"rbstore/infra/sequence"
)

/*
KeyService is the ONLY entry point into the tree.

The tree is single-writer, so every call goes through mu: mutations take
the write lock, queries the read lock. Each mutation is also recorded as
an event in the outbox, when one is configured.
*/

type KeyService struct {
	mu      sync.RWMutex
	tree    *rbtree.Tree[int64]
	seqGen  *sequence.Sequencer
	outbox  *outbox.Outbox
	metrics *metrics.Metrics
	log     *logrus.Entry
}

// Event is the payload published for every mutation.
type Event struct {
	V    int    `json:"v"`
	Type string `json:"type"`
	Key  int64  `json:"key"`
	Seq  uint64 `json:"seq"`
}

const (
	EventInsert = "insert"
	EventErase  = "erase"
)

// NewKeyService wires all dependencies. ob may be nil to skip events.
func NewKeyService(
	tree *rbtree.Tree[int64],
	seqGen *sequence.Sequencer,
	ob *outbox.Outbox,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) *KeyService {
	return &KeyService{
		tree:    tree,
		seqGen:  seqGen,
		outbox:  ob,
		metrics: m,
		log:     logging.Component(log, "service"),
	}
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// Insert stores key and returns the event sequence assigned to it.
func (s *KeyService) Insert(key int64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := s.tree.Insert(key)
	if err != nil {
		s.metrics.Op("insert", "error")
		return 0, err
	}

	seq := s.seqGen.Next()
	if err := s.record(EventInsert, key, seq); err != nil {
		s.metrics.Op("insert", "error")
		return 0, s.rollback(ref, err)
	}

	s.metrics.Op("insert", "ok")
	s.metrics.Keys.Set(float64(s.tree.Len()))
	s.log.WithFields(logrus.Fields{"key": key, "seq": seq}).Debug("insert")
	return seq, nil
}

// Erase removes one copy of key. found is false when key is absent.
func (s *KeyService) Erase(key int64) (seq uint64, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.tree.Find(key)
	if !ok {
		s.metrics.Op("erase", "miss")
		return 0, false, nil
	}

	seq = s.seqGen.Next()
	if err := s.record(EventErase, key, seq); err != nil {
		s.metrics.Op("erase", "error")
		return 0, true, err
	}
	if err := s.tree.Erase(ref); err != nil {
		s.metrics.Op("erase", "error")
		return 0, true, err
	}

	s.metrics.Op("erase", "ok")
	s.metrics.Keys.Set(float64(s.tree.Len()))
	s.log.WithFields(logrus.Fields{"key": key, "seq": seq}).Debug("erase")
	return seq, true, nil
}

//
// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────
//

func (s *KeyService) Find(key int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.tree.Find(key)
	s.metrics.Op("find", hitOrMiss(ok))
	return ok
}

func (s *KeyService) Count(key int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Count(key)
}

// Min returns rbtree.ErrEmptyTree on an empty store.
func (s *KeyService) Min() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := s.tree.Min()
	if err != nil {
		s.metrics.Op("min", "empty")
		return 0, err
	}
	s.metrics.Op("min", "ok")
	return r.Key(), nil
}

// Max returns rbtree.ErrEmptyTree on an empty store.
func (s *KeyService) Max() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := s.tree.Max()
	if err != nil {
		s.metrics.Op("max", "empty")
		return 0, err
	}
	s.metrics.Op("max", "ok")
	return r.Key(), nil
}

// Export returns up to capacity keys in ascending order.
func (s *KeyService) Export(capacity int) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.metrics.Op("export", "ok")
	if capacity <= 0 {
		return nil
	}
	out := make([]int64, min(capacity, s.tree.Len()))
	return out[:s.tree.ToSortedArray(out)]
}

func (s *KeyService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// Verify checks the tree invariants and refreshes the shape gauges.
func (s *KeyService) Verify() (rbtree.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.tree.Verify(); err != nil {
		return rbtree.Stats{}, err
	}
	st := s.tree.Stats()
	s.metrics.Keys.Set(float64(st.Nodes))
	s.metrics.Height.Set(float64(st.Height))
	return st, nil
}

// Stats reports the tree shape without checking invariants.
func (s *KeyService) Stats() rbtree.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Stats()
}

// Close destroys the tree. The service must not be used afterwards.
func (s *KeyService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.tree.Destroy()
	s.metrics.Keys.Set(0)
	s.log.WithField("released", n).Info("tree destroyed")
}

//
// ──────────────────────────────────────────────────────────
// Events
// ──────────────────────────────────────────────────────────
//

func (s *KeyService) record(typ string, key int64, seq uint64) error {
	if s.outbox == nil {
		return nil
	}
	payload, err := json.Marshal(Event{V: 1, Type: typ, Key: key, Seq: seq})
	if err != nil {
		return errors.Wrap(err, "service: encode event")
	}
	if err := s.outbox.PutNew(seq, payload); err != nil {
		return errors.Wrapf(err, "service: record %s seq=%d", typ, seq)
	}
	return nil
}

// rollback removes a node whose event could not be recorded, keeping the
// tree and the outbox in step. A failed rollback is logged and attached to
// cause.
func (s *KeyService) rollback(ref rbtree.Ref[int64], cause error) error {
	if err := s.tree.Erase(ref); err != nil {
		s.log.WithError(err).WithField("key", ref.Key()).Error("rollback failed, tree holds an unrecorded key")
		return errors.CombineErrors(cause, errors.Wrap(err, "service: rollback"))
	}
	return cause
}

func hitOrMiss(ok bool) string {
	if ok {
		return "hit"
	}
	return "miss"
}
