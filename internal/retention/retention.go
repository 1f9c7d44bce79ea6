package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"livechat/pkg/config"
	"livechat/pkg/logger"
	"livechat/pkg/reactions"
	"livechat/pkg/store"
)

// Start starts the ledger retention scheduler if enabled. Returns a cancel
// func. Each run purges messages older than the configured period and drops
// the reaction state owned by the deleted messages.
func Start(ctx context.Context, eff config.EffectiveConfigResult, reacts *reactions.Aggregator) (context.CancelFunc, error) {
	ret := eff.Config.Retention

	if !ret.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}

	period, err := time.ParseDuration(ret.Period)
	if err != nil || period <= 0 {
		return nil, fmt.Errorf("invalid retention period %q: %v", ret.Period, err)
	}

	cronExpr := ret.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", ret.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", ret.Cron)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "period", ret.Period, "dry_run", ret.DryRun)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr, period, ret.DryRun, reacts)
	return cancel, nil
}

// runScheduler uses gronx to compute the next tick for the configured cron
// expression and sleeps until that time.
func runScheduler(ctx context.Context, cronExpr string, period time.Duration, dryRun bool, reacts *reactions.Aggregator) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if err := RunOnce(period, dryRun, reacts); err != nil {
				logger.Error("retention_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
	}
}

// RunOnce performs a single retention sweep. Exported so admin triggers and
// tests can invoke a run on demand.
func RunOnce(period time.Duration, dryRun bool, reacts *reactions.Aggregator) error {
	cutoff := time.Now().UTC().Add(-period).UnixNano()

	if dryRun {
		msgs, err := store.ListMessages()
		if err != nil {
			return err
		}
		n := 0
		for _, m := range msgs {
			if m.TS < cutoff {
				n++
			}
		}
		logger.Info("retention_dry_run", "cutoff", cutoff, "would_delete", n)
		return nil
	}

	deleted, err := store.PurgeMessagesBefore(cutoff)
	if err != nil {
		return err
	}
	// reaction state is owned by its message and goes with it
	for _, id := range deleted {
		if err := reacts.Drop(id); err != nil {
			logger.Warn("retention_reaction_drop_failed", "id", id, "error", err)
		}
	}
	logger.Info("retention_run_complete", "cutoff", cutoff, "deleted", len(deleted))
	return nil
}
