package broadcaster

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"rbstore/infra/kafka"
	"rbstore/infra/logging"
	"rbstore/infra/metrics"
	"rbstore/infra/outbox"
)

// streamKey is the message key of every event. One key means one
// partition, so consumers see events in sequence order. The sequence
// itself travels in the payload.
var streamKey = []byte("rbstore.events")

type outcome uint8

const (
	published outcome = iota
	retryLater
	dropped
)

type Config struct {
	Interval   time.Duration
	MaxRetries uint32
}

// Broadcaster drains NEW outbox records to the message bus.
type Broadcaster struct {
	outbox    *outbox.Outbox
	publisher kafka.Publisher
	cfg       Config
	metrics   *metrics.Metrics
	log       *logrus.Entry
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

func New(
	ob *outbox.Outbox,
	pub kafka.Publisher,
	cfg Config,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) *Broadcaster {
	if cfg.Interval <= 0 {
		cfg.Interval = 250 * time.Millisecond
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	return &Broadcaster{
		outbox:    ob,
		publisher: pub,
		cfg:       cfg,
		metrics:   m,
		log:       logging.Component(log, "broadcaster"),
	}
}

// ------------------------------------------------
// LOOP
// ------------------------------------------------

// Run publishes on every tick until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.WithField("interval", b.cfg.Interval).Info("started")
	if err := b.recoverSent(); err != nil {
		b.log.WithError(err).Warn("recover sent records")
	}

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.log.Info("stopped")
			return
		case <-ticker.C:
			if _, err := b.RunOnce(ctx); err != nil && ctx.Err() == nil {
				b.log.WithError(err).Warn("pass failed")
			}
		}
	}
}

// RunOnce makes one pass over NEW records, in sequence order, and returns
// how many were acked. The pass stops at the first record the bus rejects
// so later events are never delivered ahead of it.
func (b *Broadcaster) RunOnce(ctx context.Context) (int, error) {
	var pending []outbox.Record
	err := b.outbox.ScanByState(outbox.StateNew, func(rec outbox.Record) error {
		pending = append(pending, rec)
		return nil
	})
	if err != nil {
		return 0, err
	}
	b.metrics.OutboxPending.Set(float64(len(pending)))

	acked := 0
	var lastAcked uint64
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return acked, err
		}
		res, err := b.publish(ctx, rec)
		if err != nil {
			return acked, err
		}
		if res == retryLater {
			break
		}
		if res == published {
			acked++
			lastAcked = rec.Seq
		}
	}

	if acked > 0 {
		n, err := b.outbox.TruncateAckedUpTo(lastAcked)
		if err != nil {
			return acked, err
		}
		b.log.WithFields(logrus.Fields{"acked": acked, "truncated": n}).Debug("pass done")
	}
	return acked, nil
}

// publish sends one record. A record out of retries is parked as FAILED
// and reported as dropped; the error is only for outbox failures.
func (b *Broadcaster) publish(ctx context.Context, rec outbox.Record) (outcome, error) {
	if err := b.outbox.MarkSent(rec.Seq); err != nil {
		return retryLater, err
	}

	if err := b.publisher.Publish(ctx, streamKey, rec.Payload); err != nil {
		b.metrics.Published.WithLabelValues("error").Inc()
		entry := b.log.WithError(err).WithField("seq", rec.Seq)
		if rec.Retries+1 >= b.cfg.MaxRetries {
			entry.Error("giving up")
			return dropped, b.outbox.MarkFailed(rec.Seq)
		}
		entry.Debug("retry later")
		return retryLater, b.outbox.Requeue(rec.Seq)
	}

	b.metrics.Published.WithLabelValues("ok").Inc()
	return published, b.outbox.MarkAcked(rec.Seq)
}

// recoverSent requeues records left SENT by an interrupted pass.
func (b *Broadcaster) recoverSent() error {
	var stuck []uint64
	err := b.outbox.ScanByState(outbox.StateSent, func(rec outbox.Record) error {
		stuck = append(stuck, rec.Seq)
		return nil
	})
	if err != nil {
		return err
	}
	for _, seq := range stuck {
		if err := b.outbox.Requeue(seq); err != nil {
			return err
		}
	}
	if len(stuck) > 0 {
		b.log.WithField("count", len(stuck)).Info("requeued sent records")
	}
	return nil
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	return b.publisher.Close()
}
