package jobs

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/egpaydcx/egpay-backend/internal/model"
	"github.com/egpaydcx/egpay-backend/internal/monitoring"
	"github.com/egpaydcx/egpay-backend/internal/notifier"
	"github.com/egpaydcx/egpay-backend/internal/store"
	"github.com/egpaydcx/egpay-backend/internal/utils/config"
	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
)

const (
	StaleOrderDigestJob = "stale_order_digest"
	UptimePingJob       = "uptime_ping"

	digestListLimit = 50
	jobTimeout      = time.Minute
)

// Scheduler runs the read-only maintenance jobs. None of them changes an order.
type Scheduler struct {
	cron     *cron.Cron
	cfg      config.JobsConfig
	store    *store.Store
	notifier notifier.INotifier
	metrics  *monitoring.BackgroundJobMetrics
	logger   *logger.Logger
	now      func() time.Time
}

func New(
	cfg config.JobsConfig,
	store *store.Store,
	notifier notifier.INotifier,
	jsm *monitoring.JobStatusManager,
	metrics *monitoring.BackgroundJobMetrics,
	pinger monitoring.UptimePinger,
	logger *logger.Logger,
) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}

	digest := monitoring.NewInstrumentedJob(StaleOrderDigestJob, s.StaleOrderDigest, jsm, logger, jobTimeout)
	if _, err := s.cron.AddJob(cfg.StaleDigestSpec, digest); err != nil {
		return nil, errors.Wrapf(err, "schedule %s", StaleOrderDigestJob)
	}

	if cfg.UptimeWebhookURL != "" {
		ping := monitoring.NewInstrumentedJobWithWebhook(UptimePingJob, s.Heartbeat, jsm, logger, jobTimeout, pinger, cfg.UptimeWebhookURL)
		if _, err := s.cron.AddJob(cfg.UptimeSpec, ping); err != nil {
			return nil, errors.Wrapf(err, "schedule %s", UptimePingJob)
		}
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("[jobs.Start] scheduler started", map[string]string{
		"entries": strconv.Itoa(len(s.cron.Entries())),
	})
}

// Stop prevents new runs and returns a context that ends when running jobs finish
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// StaleOrderDigest reports orders waiting too long on an operator or on settlement
func (s *Scheduler) StaleOrderDigest(ctx context.Context) (map[string]interface{}, error) {
	now := s.now().UTC()
	pendingBefore := now.Add(-s.cfg.PendingStaleAfter)
	approvedBefore := now.Add(-s.cfg.ApprovedStaleAfter)

	if err := s.recordUnsettled(ctx); err != nil {
		return nil, err
	}

	pending, pendingTotal, err := s.store.Order.List(ctx, model.OrderFilter{
		Status:        model.OrderStatusPendingConfirmation,
		CreatedBefore: &pendingBefore,
		Limit:         digestListLimit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "database: list stale pending orders")
	}

	approved, approvedTotal, err := s.store.Order.List(ctx, model.OrderFilter{
		Status:         model.OrderStatusApproved,
		ApprovedBefore: &approvedBefore,
		OnlyUnsettled:  true,
		Limit:          digestListLimit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "database: list stale approved orders")
	}

	metadata := map[string]interface{}{
		"stale_pending":  pendingTotal,
		"stale_approved": approvedTotal,
	}
	if len(pending) == 0 && len(approved) == 0 {
		return metadata, nil
	}

	if err := s.notifier.StaleDigest(ctx, pending, approved); err != nil {
		return metadata, errors.Wrap(err, "telegram: send stale digest")
	}
	return metadata, nil
}

func (s *Scheduler) recordUnsettled(ctx context.Context) error {
	for _, status := range []model.OrderStatus{model.OrderStatusPendingConfirmation, model.OrderStatusApproved} {
		_, total, err := s.store.Order.List(ctx, model.OrderFilter{
			Status:        status,
			OnlyUnsettled: true,
			Limit:         1,
		})
		if err != nil {
			return errors.Wrapf(err, "database: count %s orders", status)
		}
		s.metrics.SetUnsettledOrders(status.String(), int(total))
	}
	return nil
}

// Heartbeat succeeds while the ledger answers, so the uptime monitor only hears from a working service
func (s *Scheduler) Heartbeat(ctx context.Context) (map[string]interface{}, error) {
	_, total, err := s.store.Order.List(ctx, model.OrderFilter{Limit: 1})
	if err != nil {
		return nil, errors.Wrap(err, "database: heartbeat")
	}
	return map[string]interface{}{"orders": total}, nil
}
