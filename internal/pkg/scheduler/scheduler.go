package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/backend"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/env"
)

const (
	defaultOrgRefresh   = 10 * time.Minute
	defaultReceiptRetry = 30 * time.Minute
	defaultMaxAttempts  = 5
	receiptRetryBatch   = 50
	jobTimeout          = 30 * time.Second
	orgRefreshJobName   = "organization-refresh"
	receiptRetryJobName = "receipt-retry"
)

type OrganizationRefresher interface {
	RefreshOrganization(ctx context.Context) (*backend.Organization, error)
}

type ReceiptRetrier interface {
	RetryFailed(ctx context.Context, maxAttempts, limit int) (int, error)
}

type Config struct {
	OrgRefreshInterval   time.Duration
	ReceiptRetryInterval time.Duration
	MaxEmailAttempts     int
}

// LoadConfig reads ORG_REFRESH_MINUTES, RECEIPT_RETRY_MINUTES and
// RECEIPT_MAX_ATTEMPTS. A zero interval disables that job.
func LoadConfig() Config {
	return Config{
		OrgRefreshInterval:   minutes("ORG_REFRESH_MINUTES", defaultOrgRefresh),
		ReceiptRetryInterval: minutes("RECEIPT_RETRY_MINUTES", defaultReceiptRetry),
		MaxEmailAttempts:     env.GetEnvInt("RECEIPT_MAX_ATTEMPTS", defaultMaxAttempts),
	}
}

func minutes(key string, def time.Duration) time.Duration {
	n := env.GetEnvInt(key, int(def/time.Minute))
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Minute
}

// Scheduler runs the background jobs of the BFF.
type Scheduler struct {
	s gocron.Scheduler
}

// New registers the jobs. A nil dependency skips its job.
func New(cfg Config, orgs OrganizationRefresher, receipts ReceiptRetrier) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if orgs != nil && cfg.OrgRefreshInterval > 0 {
		_, err = s.NewJob(
			gocron.DurationJob(cfg.OrgRefreshInterval),
			gocron.NewTask(refreshOrganization, orgs),
			gocron.WithName(orgRefreshJobName),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			_ = s.Shutdown()
			return nil, err
		}
	}

	if receipts != nil && cfg.ReceiptRetryInterval > 0 {
		maxAttempts := cfg.MaxEmailAttempts
		if maxAttempts <= 0 {
			maxAttempts = defaultMaxAttempts
		}
		_, err = s.NewJob(
			gocron.DurationJob(cfg.ReceiptRetryInterval),
			gocron.NewTask(retryReceipts, receipts, maxAttempts),
			gocron.WithName(receiptRetryJobName),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = s.Shutdown()
			return nil, err
		}
	}

	return &Scheduler{s: s}, nil
}

func (s *Scheduler) Start() {
	s.s.Start()
	log.Infof("[Scheduler] started with %d jobs", len(s.s.Jobs()))
}

func (s *Scheduler) Shutdown() error {
	return s.s.Shutdown()
}

func refreshOrganization(orgs OrganizationRefresher) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	org, err := orgs.RefreshOrganization(ctx)
	if err != nil {
		log.Warnf("[Scheduler] organization refresh failed: %v", err)
		return
	}
	log.Debugf("[Scheduler] organization %s refreshed (credit price %.2f %s)", org.ID, org.CreditPrice, org.Currency)
}

func retryReceipts(receipts ReceiptRetrier, maxAttempts int) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	sent, err := receipts.RetryFailed(ctx, maxAttempts, receiptRetryBatch)
	if err != nil {
		log.Warnf("[Scheduler] receipt retry failed: %v", err)
		return
	}
	if sent > 0 {
		log.Infof("[Scheduler] resent %d receipts", sent)
	}
}
