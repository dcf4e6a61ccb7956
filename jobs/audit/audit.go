package audit

import (
	"context"
	"time"

	"github.com/aptible/supercronic/cronexpr"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"rbstore/domain/rbtree"
	"rbstore/infra/logging"
	"rbstore/infra/metrics"
)

// Verifier is the part of the key service the auditor needs.
type Verifier interface {
	Verify() (rbtree.Stats, error)
}

// Auditor checks the tree invariants on a cron schedule.
type Auditor struct {
	expr    *cronexpr.Expression
	svc     Verifier
	metrics *metrics.Metrics
	log     *logrus.Entry
}

func New(schedule string, svc Verifier, m *metrics.Metrics, log logrus.FieldLogger) (*Auditor, error) {
	expr, err := cronexpr.Parse(schedule)
	if err != nil {
		return nil, errors.Wrapf(err, "audit: parse schedule %q", schedule)
	}
	return &Auditor{
		expr:    expr,
		svc:     svc,
		metrics: m,
		log:     logging.Component(log, "audit"),
	}, nil
}

// Next returns the first run time after t, or the zero time if the
// schedule never fires again.
func (a *Auditor) Next(t time.Time) time.Time {
	return a.expr.Next(t)
}

// Run audits at every scheduled time until ctx is done.
func (a *Auditor) Run(ctx context.Context) {
	for {
		now := time.Now()
		next := a.expr.Next(now)
		if next.IsZero() {
			a.log.Warn("schedule exhausted")
			return
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			_ = a.RunOnce()
		}
	}
}

// RunOnce verifies the tree once and records the outcome.
func (a *Auditor) RunOnce() error {
	start := time.Now()
	st, err := a.svc.Verify()
	if err != nil {
		a.metrics.AuditRuns.WithLabelValues("violation").Inc()
		a.log.WithError(err).Error("invariant violation")
		return err
	}

	a.metrics.AuditRuns.WithLabelValues("ok").Inc()
	a.log.WithFields(logrus.Fields{
		"nodes":        st.Nodes,
		"height":       st.Height,
		"black_height": st.BlackHeight,
		"took":         time.Since(start),
	}).Debug("tree ok")
	return nil
}
