package outbox

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/cockroachdb/errors"
)

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Record --------------------

// Record is one mutation event waiting to be published.
type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

const headerLen = 1 + 4 + 8 + 4

var ErrCorrupt = errors.New("outbox: corrupt record")

// binary encoding: [state:1][retries:4][lastAttempt:8][len:4][payload][crc:4]
func encodeRecord(r Record) []byte {
	n := len(r.Payload)
	buf := make([]byte, headerLen+n+4)
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	binary.BigEndian.PutUint32(buf[13:17], uint32(n))
	copy(buf[headerLen:], r.Payload)
	binary.BigEndian.PutUint32(buf[headerLen+n:], crc32.ChecksumIEEE(buf[:headerLen+n]))
	return buf
}

// decodeRecord copies the payload out of b; b may be reused by the caller.
func decodeRecord(seq uint64, b []byte) (Record, error) {
	if len(b) < headerLen+4 {
		return Record{}, errors.Wrapf(ErrCorrupt, "seq %d: short record (%d bytes)", seq, len(b))
	}
	n := int(binary.BigEndian.Uint32(b[13:17]))
	if len(b) != headerLen+n+4 {
		return Record{}, errors.Wrapf(ErrCorrupt, "seq %d: length %d does not match %d", seq, n, len(b))
	}
	if crc32.ChecksumIEEE(b[:headerLen+n]) != binary.BigEndian.Uint32(b[headerLen+n:]) {
		return Record{}, errors.Wrapf(ErrCorrupt, "seq %d: crc mismatch", seq)
	}
	payload := make([]byte, n)
	copy(payload, b[headerLen:headerLen+n])
	return Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     payload,
	}, nil
}
