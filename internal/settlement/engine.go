// Package settlement materializes time-windowed accrual for mining sessions:
// output, tax, user share, grain consumption and tool wear. It is the single
// path through which mining production reaches the ledger.
package settlement

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yieldland/production-core/internal/concurrency"
	"github.com/yieldland/production-core/internal/domain"
	"github.com/yieldland/production-core/internal/ledger"
	"github.com/yieldland/production-core/internal/logger"
	"github.com/yieldland/production-core/internal/metrics"
	"github.com/yieldland/production-core/internal/repository"
	"github.com/yieldland/production-core/internal/tool"
)

// Outcome reports one settled window.
type Outcome struct {
	Covered       time.Duration
	GrossOutput   float64
	Tax           float64
	UserOutput    float64
	OwnerOutput   float64
	GrainConsumed float64

	// BrokenTools lists tools whose durability reached zero in this window.
	// They are already unbound from the session; the caller must recompute
	// the output rate and publish the break events after commit.
	BrokenTools []domain.Tool

	// ForcedPause is set when grain ran out mid-window and the session was
	// transitioned to paused. Surfaced to callers as a warning, not an error.
	ForcedPause bool
}

// Zero reports whether the window produced no movement at all.
func (o *Outcome) Zero() bool {
	return o.Covered == 0 && len(o.BrokenTools) == 0 && !o.ForcedPause
}

// Engine computes and applies settlements.
type Engine struct {
	locks *concurrency.LockManager
}

// NewEngine creates a new settlement engine
func NewEngine(locks *concurrency.LockManager) *Engine {
	return &Engine{locks: locks}
}

// Settle brings sess current as of now. The session, the ledger rows and the
// bound tools are all mutated through tx so the whole window commits or rolls
// back as one. The caller holds the session lock and the ledger key locks
// from LockKeys (acquired before tx was begun), saves sess, and commits.
//
// Only active sessions accrue. A zero or negative elapsed window is a no-op:
// settling twice at the same instant never double-counts.
func (e *Engine) Settle(ctx context.Context, tx repository.Tx, sess *domain.MiningSession, now time.Time) (*Outcome, error) {
	out := &Outcome{}
	if sess.Status != domain.SessionActive {
		return out, nil
	}

	elapsed := now.Sub(sess.LastSettlementTime)
	if elapsed <= 0 {
		return out, nil
	}

	covered, grainConsumed, forced, err := e.coverage(ctx, tx, sess, elapsed)
	if err != nil {
		return nil, err
	}

	hours := covered.Hours()
	out.Covered = covered
	out.GrossOutput = sess.OutputRate * hours
	out.Tax = out.GrossOutput * sess.TaxRate
	out.UserOutput = out.GrossOutput * sess.UserShareRate
	out.GrainConsumed = grainConsumed
	out.ForcedPause = forced
	if rem := out.GrossOutput - out.Tax - out.UserOutput; rem > 0 {
		out.OwnerOutput = rem
	}

	if err := e.applyLedger(ctx, tx, sess, out); err != nil {
		return nil, err
	}
	if err := e.applyWear(ctx, tx, sess, covered, out); err != nil {
		return nil, err
	}

	sess.AccumulatedOutput += out.UserOutput
	sess.AccumulatedTax += out.Tax
	sess.LastSettlementTime = sess.LastSettlementTime.Add(covered)
	if forced {
		sess.Status = domain.SessionPaused
		metrics.GrainExhaustedPauses.Inc()
	}

	metrics.OutputCredited.WithLabelValues(string(sess.Produced)).Add(out.UserOutput)
	metrics.TaxAccrued.Add(out.Tax)
	metrics.GrainConsumed.Add(out.GrainConsumed)

	logger.FromContext(ctx).Debug("Session settled",
		"session", sess.ID,
		"covered", covered,
		"gross", out.GrossOutput,
		"user", out.UserOutput,
		"tax", out.Tax,
		"grain", out.GrainConsumed,
		"forced_pause", forced)
	return out, nil
}

// AcquireLocks takes every ledger key lock a settlement of sess needs,
// returning the release function.
func (e *Engine) AcquireLocks(ctx context.Context, sess *domain.MiningSession) (func(), error) {
	return e.locks.AcquireAll(ctx, e.LockKeys(sess))
}

// coverage determines how much of the elapsed window the user's grain can
// sustain. When grain falls short the window is truncated to the covered
// fraction and the session is force-paused.
func (e *Engine) coverage(ctx context.Context, tx repository.Tx, sess *domain.MiningSession, elapsed time.Duration) (time.Duration, float64, bool, error) {
	if sess.GrainRate <= 0 {
		return elapsed, 0, false, nil
	}

	grain, err := tx.GetResource(ctx, sess.UserID, domain.ResourceGrain)
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to get grain balance: %w", err)
	}

	needed := sess.GrainRate * elapsed.Hours()
	available := grain.Available()
	if available >= needed {
		return elapsed, needed, false, nil
	}

	coveredHours := available / sess.GrainRate
	covered := time.Duration(coveredHours * float64(time.Hour))
	return covered, available, true, nil
}

func (e *Engine) applyLedger(ctx context.Context, tx repository.Tx, sess *domain.MiningSession, out *Outcome) error {
	if out.GrainConsumed > 0 {
		if _, err := ledger.ApplyDebit(ctx, tx, sess.UserID, domain.ResourceGrain, out.GrainConsumed); err != nil {
			return fmt.Errorf("failed to debit grain: %w", err)
		}
	}
	if out.UserOutput > 0 {
		if _, err := ledger.ApplyCredit(ctx, tx, sess.UserID, sess.Produced, out.UserOutput); err != nil {
			return fmt.Errorf("failed to credit output: %w", err)
		}
	}
	if out.OwnerOutput > 0 && sess.LandOwner != "" && sess.LandOwner != sess.UserID {
		if _, err := ledger.ApplyCredit(ctx, tx, sess.LandOwner, sess.Produced, out.OwnerOutput); err != nil {
			return fmt.Errorf("failed to credit land owner: %w", err)
		}
	}
	return nil
}

// applyWear wears every bound tool for the covered time. A tool that breaks
// is dropped from the session's bound set in the same call.
func (e *Engine) applyWear(ctx context.Context, tx repository.Tx, sess *domain.MiningSession, covered time.Duration, out *Outcome) error {
	if covered <= 0 || len(sess.ToolIDs) == 0 {
		return nil
	}

	for _, toolID := range append([]string(nil), sess.ToolIDs...) {
		t, err := tx.GetTool(ctx, toolID)
		if err != nil {
			return err
		}
		_, broke := tool.Wear(t, covered)
		t.UpdatedAt = time.Now()
		if err := tx.SaveTool(ctx, *t); err != nil {
			return fmt.Errorf("failed to save tool: %w", err)
		}
		if broke {
			sess.RemoveTool(toolID)
			out.BrokenTools = append(out.BrokenTools, *t)
			metrics.ToolsBroken.WithLabelValues(string(t.Type)).Inc()
		}
	}
	return nil
}

// LockKeys returns the sorted ledger key locks a settlement of sess needs:
// the user's grain, the user's produced resource, and the land owner's
// produced resource when the remainder routes there. Callers acquire these
// before beginning the transaction; named locks always precede store
// transactions so overlapping ledger operations cannot deadlock.
func (e *Engine) LockKeys(sess *domain.MiningSession) []string {
	seen := map[string]struct{}{
		ledger.LockKey(sess.UserID, domain.ResourceGrain): {},
		ledger.LockKey(sess.UserID, sess.Produced):        {},
	}
	if sess.LandOwner != "" && sess.LandOwner != sess.UserID {
		seen[ledger.LockKey(sess.LandOwner, sess.Produced)] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
