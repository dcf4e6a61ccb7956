package broadcaster

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"rbstore/infra/logging"
	"rbstore/infra/metrics"
	"rbstore/infra/outbox"
)

type fakePublisher struct {
	mu     sync.Mutex
	keys   []string
	sent   []string
	failN  int
	failOn map[string]int // payload -> remaining failures
	closed bool
}

func (p *fakePublisher) Publish(_ context.Context, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failN > 0 {
		p.failN--
		return errors.New("broker down")
	}
	if p.failOn[string(value)] > 0 {
		p.failOn[string(value)]--
		return errors.Newf("broker rejected %s", value)
	}
	p.keys = append(p.keys, string(key))
	p.sent = append(p.sent, string(value))
	return nil
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func setup(t *testing.T, pub *fakePublisher, retries uint32) (*Broadcaster, *outbox.Outbox, *metrics.Metrics) {
	t.Helper()
	ob, err := outbox.Open(outbox.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ob.Close() })
	m := metrics.New(nil)
	b := New(ob, pub, Config{Interval: 5 * time.Millisecond, MaxRetries: retries}, m, logging.Discard())
	return b, ob, m
}

func TestRunOncePublishesAndTruncates(t *testing.T) {
	pub := &fakePublisher{}
	b, ob, m := setup(t, pub, 3)

	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, ob.PutNew(seq, []byte(fmt.Sprintf(`{"seq":%d}`, seq))))
	}

	n, err := b.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []string{`{"seq":1}`, `{"seq":2}`, `{"seq":3}`}, pub.sent)
	require.Equal(t, []string{"rbstore.events", "rbstore.events", "rbstore.events"}, pub.keys)
	require.Equal(t, 3.0, testutil.ToFloat64(m.Published.WithLabelValues("ok")))

	for seq := uint64(1); seq <= 3; seq++ {
		_, err := ob.Get(seq)
		require.True(t, errors.Is(err, outbox.ErrNotFound), "seq %d truncated", seq)
	}

	n, err = b.RunOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRunOnceKeepsOrderAcrossFailure(t *testing.T) {
	pub := &fakePublisher{failOn: map[string]int{`{"seq":2}`: 1}}
	b, ob, _ := setup(t, pub, 5)
	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, ob.PutNew(seq, []byte(fmt.Sprintf(`{"seq":%d}`, seq))))
	}

	n, err := b.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []string{`{"seq":1}`}, pub.sent)

	rec, err := ob.Get(3)
	require.NoError(t, err)
	require.Equal(t, outbox.StateNew, rec.State)
	require.Zero(t, rec.Retries)

	n, err = b.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []string{`{"seq":1}`, `{"seq":2}`, `{"seq":3}`}, pub.sent)
}

func TestRunOnceSkipsDroppedRecord(t *testing.T) {
	pub := &fakePublisher{failOn: map[string]int{"a": 1}}
	b, ob, _ := setup(t, pub, 1)
	require.NoError(t, ob.PutNew(1, []byte("a")))
	require.NoError(t, ob.PutNew(2, []byte("b")))

	n, err := b.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []string{"b"}, pub.sent)

	rec, err := ob.Get(1)
	require.NoError(t, err)
	require.Equal(t, outbox.StateFailed, rec.State)
}

func TestRunOnceRetriesThenFails(t *testing.T) {
	pub := &fakePublisher{failN: 100}
	b, ob, _ := setup(t, pub, 2)
	require.NoError(t, ob.PutNew(1, []byte("x")))

	_, err := b.RunOnce(context.Background())
	require.NoError(t, err)
	rec, err := ob.Get(1)
	require.NoError(t, err)
	require.Equal(t, outbox.StateNew, rec.State)
	require.Equal(t, uint32(1), rec.Retries)

	_, err = b.RunOnce(context.Background())
	require.NoError(t, err)
	rec, err = ob.Get(1)
	require.NoError(t, err)
	require.Equal(t, outbox.StateFailed, rec.State)
}

func TestRunRecoversSentAndStops(t *testing.T) {
	pub := &fakePublisher{}
	b, ob, _ := setup(t, pub, 3)
	require.NoError(t, ob.PutNew(1, []byte("a")))
	require.NoError(t, ob.PutNew(2, []byte("b")))
	require.NoError(t, ob.MarkSent(1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return pub.count() == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}

	require.NoError(t, b.Close())
	require.True(t, pub.closed)
}
