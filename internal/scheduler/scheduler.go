// Package scheduler runs the periodic jobs that move seller funds
// through the pipeline: settlement builds, payout scheduling and
// execution, retry sweeps, and invoice issuance.
package scheduler

import (
	"context"
	"errors"
	"strings"
	"time"

	billingdomain "github.com/smallbiznis/sellerledger/internal/billingdoc/domain"
	"github.com/smallbiznis/sellerledger/internal/clock"
	escrowdomain "github.com/smallbiznis/sellerledger/internal/escrow/domain"
	obsmetrics "github.com/smallbiznis/sellerledger/internal/observability/metrics"
	payoutdomain "github.com/smallbiznis/sellerledger/internal/payout/domain"
	settlementdomain "github.com/smallbiznis/sellerledger/internal/settlement/domain"
	"github.com/smallbiznis/sellerledger/internal/transfer"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	Log            *zap.Logger
	EscrowRepo     escrowdomain.Repository
	SettlementSvc  settlementdomain.Service
	SettlementRepo settlementdomain.Repository
	PayoutSvc      payoutdomain.Service
	Issuer         billingdomain.Issuer
	Transfers      *transfer.Registry
	Clock          clock.Clock
	Config         Config `optional:"true"`
}

type Scheduler struct {
	log            *zap.Logger
	cfg            Config
	clock          clock.Clock
	escrowRepo     escrowdomain.Repository
	settlementSvc  settlementdomain.Service
	settlementRepo settlementdomain.Repository
	payoutSvc      payoutdomain.Service
	issuer         billingdomain.Issuer
	transfers      *transfer.Registry
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.EscrowRepo == nil || p.SettlementSvc == nil || p.SettlementRepo == nil || p.PayoutSvc == nil || p.Issuer == nil || p.Transfers == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:            p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:            p.Config.withDefaults(),
		clock:          p.Clock,
		escrowRepo:     p.EscrowRepo,
		settlementSvc:  p.SettlementSvc,
		settlementRepo: p.SettlementRepo,
		payoutSvc:      p.PayoutSvc,
		issuer:         p.Issuer,
		transfers:      p.Transfers,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	log := s.log.With(zap.String("job", name))
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	schedMetrics.IncJobError(name, err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		// Soft timeout, the next tick picks up the remainder.
		schedMetrics.IncJobTimeout(name)
		log.Warn("job timed out", zap.Duration("timeout", timeout), zap.Error(err))
		return nil
	}

	log.Error("job failed", zap.Error(err))
	return err
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{"settlement_run", s.isJobEnabled("settlement_run"), func(ctx context.Context) error {
			return s.runJob(ctx, "settlement_run", 60*time.Second, s.SettlementRunJob)
		}},
		{"payout_schedule", s.isJobEnabled("payout_schedule"), func(ctx context.Context) error {
			return s.runJob(ctx, "payout_schedule", 30*time.Second, s.PayoutScheduleJob)
		}},
		{"payout_process", s.isJobEnabled("payout_process"), func(ctx context.Context) error {
			return s.runJob(ctx, "payout_process", 5*time.Minute, s.PayoutProcessJob)
		}},
		{"payout_retry", s.isJobEnabled("payout_retry"), func(ctx context.Context) error {
			return s.runJob(ctx, "payout_retry", 30*time.Second, s.PayoutRetryJob)
		}},
		{"invoice_issue", s.isJobEnabled("invoice_issue"), func(ctx context.Context) error {
			return s.runJob(ctx, "invoice_issue", 30*time.Second, s.InvoiceIssueJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// An empty EnabledJobs list enables everything (monolith mode).
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
