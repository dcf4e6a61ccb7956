package outbox

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

const (
	keyPrefix = "event/"
	// highest sequence ever stored; survives truncation of the events
	lastSeqKey = "meta/last_seq"
)

var ErrNotFound = errors.New("outbox: record not found")

type Config struct {
	// Dir holds the pebble store. Empty keeps the outbox in memory.
	Dir string
	// NoSync skips fsync on writes.
	NoSync bool
}

// Outbox stores mutation events until they are published.
type Outbox struct {
	db    *pebble.DB
	write *pebble.WriteOptions

	mu      sync.Mutex
	lastSeq uint64
}

func Open(cfg Config) (*Outbox, error) {
	opts := &pebble.Options{}
	if cfg.Dir == "" {
		opts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(cfg.Dir, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "outbox: open %q", cfg.Dir)
	}
	write := pebble.Sync
	if cfg.NoSync {
		write = pebble.NoSync
	}
	o := &Outbox{db: db, write: write}
	if o.lastSeq, err = o.loadLastSeq(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return o, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// -------------------- API --------------------

// PutNew stores a NEW record for seq and raises the stored high-water
// mark in the same batch.
func (o *Outbox) PutNew(seq uint64, payload []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	b := o.db.NewBatch()
	defer b.Close()

	rec := Record{Seq: seq, State: StateNew, Payload: payload}
	if err := b.Set(keyFor(seq), encodeRecord(rec), nil); err != nil {
		return err
	}
	if seq > o.lastSeq {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], seq)
		if err := b.Set([]byte(lastSeqKey), buf[:], nil); err != nil {
			return err
		}
	}
	if err := b.Commit(o.write); err != nil {
		return errors.Wrapf(err, "outbox: put seq %d", seq)
	}
	if seq > o.lastSeq {
		o.lastSeq = seq
	}
	return nil
}

// MarkSent records a publish attempt.
func (o *Outbox) MarkSent(seq uint64) error {
	return o.update(seq, func(r *Record) {
		r.State = StateSent
		r.Retries++
		r.LastAttempt = time.Now().UnixNano()
	})
}

func (o *Outbox) MarkAcked(seq uint64) error {
	return o.update(seq, func(r *Record) { r.State = StateAcked })
}

// MarkFailed parks a record that exhausted its retries.
func (o *Outbox) MarkFailed(seq uint64) error {
	return o.update(seq, func(r *Record) { r.State = StateFailed })
}

// Requeue moves a SENT record back to NEW so the next pass retries it.
func (o *Outbox) Requeue(seq uint64) error {
	return o.update(seq, func(r *Record) { r.State = StateNew })
}

func (o *Outbox) Get(seq uint64) (Record, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if errors.Is(err, pebble.ErrNotFound) {
		return Record{}, errors.Wrapf(ErrNotFound, "seq %d", seq)
	}
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()

	return decodeRecord(seq, val)
}

// LastSeq returns the highest sequence ever stored, including records
// already truncated, or 0 for a fresh outbox.
func (o *Outbox) LastSeq() (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastSeq, nil
}

func (o *Outbox) loadLastSeq() (uint64, error) {
	var mark uint64
	val, closer, err := o.db.Get([]byte(lastSeqKey))
	switch {
	case errors.Is(err, pebble.ErrNotFound):
	case err != nil:
		return 0, errors.Wrap(err, "outbox: read last seq")
	default:
		if len(val) != 8 {
			_ = closer.Close()
			return 0, errors.Wrapf(ErrCorrupt, "last seq has %d bytes", len(val))
		}
		mark = binary.BigEndian.Uint64(val)
		_ = closer.Close()
	}

	iter, err := o.newIter()
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return mark, iter.Error()
	}
	last, err := parseKey(iter.Key())
	if err != nil {
		return 0, err
	}
	return max(mark, last), nil
}

// -------------------- Scan --------------------

// ScanByState calls fn, in sequence order, for every record in state.
func (o *Outbox) ScanByState(state State, fn func(Record) error) error {
	iter, err := o.newIter()
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec, err := decodeRecord(seq, iter.Value())
		if err != nil {
			return err
		}
		if rec.State != state {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// TruncateAckedUpTo deletes ACKED records with seq <= upTo and returns
// how many were removed.
func (o *Outbox) TruncateAckedUpTo(upTo uint64) (int, error) {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: keyFor(upTo + 1),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	b := o.db.NewBatch()
	defer b.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		val := iter.Value()
		if len(val) == 0 || State(val[0]) != StateAcked {
			continue
		}
		if err := b.Delete(iter.Key(), nil); err != nil {
			return 0, err
		}
		n++
	}
	if err := iter.Error(); err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return n, b.Commit(o.write)
}

// -------------------- Helpers --------------------

func (o *Outbox) update(seq uint64, fn func(*Record)) error {
	rec, err := o.Get(seq)
	if err != nil {
		return err
	}
	fn(&rec)
	return o.db.Set(keyFor(seq), encodeRecord(rec), o.write)
}

func (o *Outbox) newIter() (*pebble.Iterator, error) {
	return o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
}

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	s := string(b)
	if !strings.HasPrefix(s, keyPrefix) {
		return 0, errors.Newf("outbox: unexpected key %q", s)
	}
	return strconv.ParseUint(strings.TrimPrefix(s, keyPrefix), 10, 64)
}
