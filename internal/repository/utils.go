package repository

import (
	"context"
	"strings"

	"github.com/yieldland/production-core/internal/logger"
)

// SafeRollback rolls back a transaction and logs any error
func SafeRollback(ctx context.Context, tx Tx) {
	if err := tx.Rollback(ctx); err != nil {
		// Check for common "closed" errors to avoid noise
		if !strings.Contains(err.Error(), "closed") {
			logger.FromContext(ctx).Error("Failed to rollback transaction", "error", err)
		}
	}
}
