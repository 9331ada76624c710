package mining

import (
	"context"

	"github.com/yieldland/production-core/internal/logger"
)

// SettlementJob settles all active sessions on each scheduler tick.
type SettlementJob struct {
	manager Manager
}

// NewSettlementJob creates the periodic settlement job.
func NewSettlementJob(manager Manager) *SettlementJob {
	return &SettlementJob{manager: manager}
}

func (j *SettlementJob) Name() string { return "settlement-tick" }

func (j *SettlementJob) Execute(ctx context.Context) error {
	settled, err := j.manager.SettleDue(ctx)
	if err != nil {
		return err
	}
	if settled > 0 {
		logger.FromContext(ctx).Debug("Scheduled settlement pass complete", "settled", settled)
	}
	return nil
}
