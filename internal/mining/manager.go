// Package mining owns the session state machine: start, add/remove tool,
// pause/resume, collect and stop. Every balance-affecting read settles the
// session first so rate changes never apply retroactively.
package mining

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yieldland/production-core/internal/concurrency"
	"github.com/yieldland/production-core/internal/domain"
	"github.com/yieldland/production-core/internal/event"
	"github.com/yieldland/production-core/internal/land"
	"github.com/yieldland/production-core/internal/logger"
	"github.com/yieldland/production-core/internal/metrics"
	"github.com/yieldland/production-core/internal/repository"
	"github.com/yieldland/production-core/internal/settlement"
	"github.com/yieldland/production-core/internal/tool"
)

// Share of gross output credited to the miner, by mining type. The remainder
// after tax routes to the land owner's ledger entry.
const (
	userShareSelf  = 1.0
	userShareHired = 0.7
)

// StartResult is the payload of a successful start command. Warning carries
// domain.ErrGrainInsufficient when the miner has no grain to sustain the
// session.
type StartResult struct {
	Session *domain.MiningSession
	Warning error
}

// CollectResult reports output realized by an on-demand settlement.
type CollectResult struct {
	SessionID  string
	Collected  float64
	Resource   domain.ResourceType
	NewBalance float64
	Warning    error
}

// RemoveToolResult reports the removed tool's durability state.
type RemoveToolResult struct {
	Session             *domain.MiningSession
	ToolID              string
	DurabilityConsumed  float64
	RemainingDurability float64
}

// Manager defines the mining session operations.
type Manager interface {
	// StartSelf starts a session where the user works their own tools and
	// keeps the full user share.
	StartSelf(ctx context.Context, userID, landID string, kind domain.LandKind, landOwner string, toolIDs []string) (*StartResult, error)

	// StartHiredWithTool starts a hired session where the user brings tools
	// to someone else's land; the remainder after tax routes to the owner.
	StartHiredWithTool(ctx context.Context, userID, landID string, kind domain.LandKind, landOwner string, toolIDs []string) (*StartResult, error)

	// StartHiredWithoutTool starts a hired session working the tools
	// deposited on the land.
	StartHiredWithoutTool(ctx context.Context, userID, landID string, kind domain.LandKind, landOwner string) (*StartResult, error)

	// AddTool settles pending accrual, binds the tool and recomputes rates.
	AddTool(ctx context.Context, userID, sessionID, toolID string) (*domain.MiningSession, error)

	// RemoveTool settles pending accrual, unbinds the tool and recomputes rates.
	RemoveTool(ctx context.Context, userID, sessionID, toolID string) (*RemoveToolResult, error)

	// Pause settles, then freezes accrual. Tools stay bound but stop wearing.
	Pause(ctx context.Context, userID, sessionID string) (*domain.MiningSession, error)

	// Resume reactivates a paused session from now.
	Resume(ctx context.Context, userID, sessionID string) (*domain.MiningSession, error)

	// Collect settles and reports the output realized by this call.
	Collect(ctx context.Context, userID, sessionID string) (*CollectResult, error)

	// Stop performs a final settlement, unbinds all tools and completes the
	// session. Completed is terminal.
	Stop(ctx context.Context, userID, sessionID string) (*domain.MiningSession, error)

	// DepositTools parks idle tools on a land for later hired sessions.
	DepositTools(ctx context.Context, userID, landID string, toolIDs []string) error

	GetSession(ctx context.Context, userID, sessionID string) (*domain.MiningSession, error)
	ListSessions(ctx context.Context, userID string, limit, offset int) ([]domain.MiningSession, int, error)

	// SettleDue settles every active session; invoked by the scheduler tick.
	// Returns the number of sessions settled.
	SettleDue(ctx context.Context) (int, error)
}

type manager struct {
	store   repository.Store
	locks   *concurrency.LockManager
	tools   tool.Registry
	engine  *settlement.Engine
	catalog *land.Catalog
	bus     event.Bus
	now     func() time.Time
}

// NewManager creates a new mining session manager
func NewManager(store repository.Store, locks *concurrency.LockManager, tools tool.Registry, engine *settlement.Engine, catalog *land.Catalog, bus event.Bus) Manager {
	return NewManagerWithClock(store, locks, tools, engine, catalog, bus, time.Now)
}

// NewManagerWithClock injects the clock, for deterministic tests.
func NewManagerWithClock(store repository.Store, locks *concurrency.LockManager, tools tool.Registry, engine *settlement.Engine, catalog *land.Catalog, bus event.Bus, now func() time.Time) Manager {
	return &manager{
		store:   store,
		locks:   locks,
		tools:   tools,
		engine:  engine,
		catalog: catalog,
		bus:     bus,
		now:     now,
	}
}

func sessionLockKey(sessionID string) string {
	return "session:" + sessionID
}

func (m *manager) StartSelf(ctx context.Context, userID, landID string, kind domain.LandKind, landOwner string, toolIDs []string) (*StartResult, error) {
	return m.start(ctx, userID, landID, kind, landOwner, domain.MiningSelf, toolIDs)
}

func (m *manager) StartHiredWithTool(ctx context.Context, userID, landID string, kind domain.LandKind, landOwner string, toolIDs []string) (*StartResult, error) {
	return m.start(ctx, userID, landID, kind, landOwner, domain.MiningHiredWithTool, toolIDs)
}

func (m *manager) StartHiredWithoutTool(ctx context.Context, userID, landID string, kind domain.LandKind, landOwner string) (*StartResult, error) {
	return m.start(ctx, userID, landID, kind, landOwner, domain.MiningHiredWithoutTool, nil)
}

func (m *manager) start(ctx context.Context, userID, landID string, kind domain.LandKind, landOwner string, miningType domain.MiningType, toolIDs []string) (*StartResult, error) {
	log := logger.FromContext(ctx)

	profile, ok := m.catalog.Profile(kind)
	if !ok {
		return nil, fmt.Errorf("%w: unknown land kind %q", domain.ErrLandUnavailable, kind)
	}
	if miningType != domain.MiningHiredWithoutTool && len(toolIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one tool required", domain.ErrInvalidInput)
	}

	release, err := m.locks.Acquire(ctx, "land:"+landID)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := m.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer repository.SafeRollback(ctx, tx)

	occupied, err := tx.LandOccupied(ctx, landID)
	if err != nil {
		return nil, fmt.Errorf("failed to check land occupancy: %w", err)
	}
	if occupied {
		return nil, fmt.Errorf("%w: %s already has a running session", domain.ErrLandUnavailable, landID)
	}

	now := m.now()
	sess := &domain.MiningSession{
		ID:                 uuid.New().String(),
		UserID:             userID,
		LandID:             landID,
		LandKind:           kind,
		LandOwner:          landOwner,
		Type:               miningType,
		Status:             domain.SessionActive,
		TaxRate:            profile.TaxRate,
		UserShareRate:      userShare(miningType),
		Produced:           profile.Produces,
		StartTime:          now,
		LastSettlementTime: now,
	}

	boundTools, err := m.bindStartTools(ctx, tx, sess, userID, landID, miningType, toolIDs)
	if err != nil {
		return nil, err
	}
	applyRates(sess, profile, boundTools)

	if err := tx.CreateSession(ctx, *sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// Grain check is advisory at start: the session starts either way and
	// the first settlement force-pauses it if grain stays at zero.
	var warning error
	grain, err := tx.GetResource(ctx, userID, domain.ResourceGrain)
	if err != nil {
		return nil, fmt.Errorf("failed to get grain balance: %w", err)
	}
	if sess.GrainRate > 0 && grain.Available() <= 0 {
		warning = domain.ErrGrainInsufficient
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, id := range sess.ToolIDs {
		m.tools.Invalidate(id)
	}
	metrics.SessionsStarted.WithLabelValues(string(miningType)).Inc()
	log.Info("Mining session started",
		"session", sess.ID,
		"user", userID,
		"land", landID,
		"type", miningType,
		"tools", len(sess.ToolIDs),
		"rate", sess.OutputRate)
	return &StartResult{Session: sess, Warning: warning}, nil
}

// bindStartTools binds the session's initial tool set. For hired-without-tool
// sessions the set is whatever is deposited on the land.
func (m *manager) bindStartTools(ctx context.Context, tx repository.Tx, sess *domain.MiningSession, userID, landID string, miningType domain.MiningType, toolIDs []string) ([]domain.Tool, error) {
	var bound []domain.Tool

	if miningType == domain.MiningHiredWithoutTool {
		deposited, err := tx.ListDepositedTools(ctx, landID)
		if err != nil {
			return nil, fmt.Errorf("failed to list deposited tools: %w", err)
		}
		if len(deposited) == 0 {
			return nil, fmt.Errorf("%w: no tools deposited on %s", domain.ErrToolNotFound, landID)
		}
		for i := range deposited {
			t := deposited[i]
			t.BoundSessionID = sess.ID
			t.UpdatedAt = m.now()
			if err := tx.SaveTool(ctx, t); err != nil {
				return nil, fmt.Errorf("failed to save tool: %w", err)
			}
			sess.ToolIDs = append(sess.ToolIDs, t.ID)
			bound = append(bound, t)
		}
		return bound, nil
	}

	for _, toolID := range toolIDs {
		t, err := tx.GetTool(ctx, toolID)
		if err != nil {
			return nil, err
		}
		if t.Owner != userID {
			return nil, fmt.Errorf("%w: %s", domain.ErrToolNotFound, toolID)
		}
		if t.Durability <= 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrToolDamaged, toolID)
		}
		if err := tool.BindTool(t, sess.ID); err != nil {
			return nil, err
		}
		if err := tx.SaveTool(ctx, *t); err != nil {
			return nil, fmt.Errorf("failed to save tool: %w", err)
		}
		sess.ToolIDs = append(sess.ToolIDs, t.ID)
		bound = append(bound, *t)
	}
	return bound, nil
}

func (m *manager) AddTool(ctx context.Context, userID, sessionID, toolID string) (*domain.MiningSession, error) {
	sess, _, err := m.mutateSession(ctx, userID, sessionID, func(ctx context.Context, tx repository.Tx, sess *domain.MiningSession) error {
		if sess.Status != domain.SessionActive {
			return fmt.Errorf("%w: %s is %s", domain.ErrSessionNotActive, sess.ID, sess.Status)
		}
		t, err := tx.GetTool(ctx, toolID)
		if err != nil {
			return err
		}
		if t.Owner != userID {
			return fmt.Errorf("%w: %s", domain.ErrToolNotFound, toolID)
		}
		if t.Durability <= 0 {
			return fmt.Errorf("%w: %s", domain.ErrToolDamaged, toolID)
		}
		if err := tool.BindTool(t, sess.ID); err != nil {
			return err
		}
		if err := tx.SaveTool(ctx, *t); err != nil {
			return fmt.Errorf("failed to save tool: %w", err)
		}
		sess.ToolIDs = append(sess.ToolIDs, t.ID)
		return m.recomputeRates(ctx, tx, sess)
	})
	if err != nil {
		return nil, err
	}
	m.tools.Invalidate(toolID)
	return sess, nil
}

func (m *manager) RemoveTool(ctx context.Context, userID, sessionID, toolID string) (*RemoveToolResult, error) {
	result := &RemoveToolResult{ToolID: toolID}
	sess, _, err := m.mutateSession(ctx, userID, sessionID, func(ctx context.Context, tx repository.Tx, sess *domain.MiningSession) error {
		if sess.Status == domain.SessionCompleted {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotActive, sess.ID)
		}
		if !sess.HasTool(toolID) {
			return fmt.Errorf("%w: %s", domain.ErrToolNotBound, toolID)
		}
		t, err := tx.GetTool(ctx, toolID)
		if err != nil {
			return err
		}
		if err := tool.UnbindTool(t, sess.ID); err != nil {
			return err
		}
		if err := tx.SaveTool(ctx, *t); err != nil {
			return fmt.Errorf("failed to save tool: %w", err)
		}
		sess.RemoveTool(toolID)
		result.DurabilityConsumed = t.MaxDurability - t.Durability
		result.RemainingDurability = t.Durability
		return m.recomputeRates(ctx, tx, sess)
	})
	if err != nil {
		return nil, err
	}
	m.tools.Invalidate(toolID)
	result.Session = sess
	return result, nil
}

func (m *manager) Pause(ctx context.Context, userID, sessionID string) (*domain.MiningSession, error) {
	sess, _, err := m.mutateSession(ctx, userID, sessionID, func(ctx context.Context, tx repository.Tx, sess *domain.MiningSession) error {
		switch sess.Status {
		case domain.SessionActive:
			sess.Status = domain.SessionPaused
			return nil
		case domain.SessionPaused:
			// Settlement may have force-paused in this same call.
			return nil
		default:
			return fmt.Errorf("%w: %s", domain.ErrSessionNotActive, sess.ID)
		}
	})
	if err != nil {
		return nil, err
	}
	if err := m.bus.Publish(ctx, event.NewSessionPausedEvent(sess, false)); err != nil {
		logger.FromContext(ctx).Warn("Failed to publish pause event", "error", err)
	}
	return sess, nil
}

func (m *manager) Resume(ctx context.Context, userID, sessionID string) (*domain.MiningSession, error) {
	sess, _, err := m.mutateSession(ctx, userID, sessionID, func(ctx context.Context, tx repository.Tx, sess *domain.MiningSession) error {
		if sess.Status != domain.SessionPaused {
			return fmt.Errorf("%w: %s is %s", domain.ErrSessionNotActive, sess.ID, sess.Status)
		}
		sess.Status = domain.SessionActive
		// Paused time never accrues.
		sess.LastSettlementTime = m.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (m *manager) Collect(ctx context.Context, userID, sessionID string) (*CollectResult, error) {
	result := &CollectResult{SessionID: sessionID}
	_, out, err := m.mutateSession(ctx, userID, sessionID, func(ctx context.Context, tx repository.Tx, sess *domain.MiningSession) error {
		if sess.Status == domain.SessionCompleted {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotActive, sess.ID)
		}
		res, err := tx.GetResource(ctx, sess.UserID, sess.Produced)
		if err != nil {
			return fmt.Errorf("failed to get balance: %w", err)
		}
		result.Resource = sess.Produced
		result.NewBalance = res.Amount
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Collected = out.UserOutput
	if out.ForcedPause {
		result.Warning = domain.ErrGrainInsufficient
	}
	return result, nil
}

func (m *manager) Stop(ctx context.Context, userID, sessionID string) (*domain.MiningSession, error) {
	var unbound []string
	sess, _, err := m.mutateSession(ctx, userID, sessionID, func(ctx context.Context, tx repository.Tx, sess *domain.MiningSession) error {
		if sess.Status == domain.SessionCompleted {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotActive, sess.ID)
		}
		for _, toolID := range append([]string(nil), sess.ToolIDs...) {
			t, err := tx.GetTool(ctx, toolID)
			if err != nil {
				return err
			}
			if err := tool.UnbindTool(t, sess.ID); err != nil {
				return err
			}
			if err := tx.SaveTool(ctx, *t); err != nil {
				return fmt.Errorf("failed to save tool: %w", err)
			}
			unbound = append(unbound, toolID)
		}
		sess.ToolIDs = nil
		sess.Status = domain.SessionCompleted
		now := m.now()
		sess.EndTime = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, id := range unbound {
		m.tools.Invalidate(id)
	}
	metrics.SessionsCompleted.Inc()
	if err := m.bus.Publish(ctx, event.NewSessionCompletedEvent(sess)); err != nil {
		logger.FromContext(ctx).Warn("Failed to publish completion event", "error", err)
	}
	logger.FromContext(ctx).Info("Mining session completed",
		"session", sess.ID,
		"output", sess.AccumulatedOutput,
		"tax", sess.AccumulatedTax)
	return sess, nil
}

func (m *manager) DepositTools(ctx context.Context, userID, landID string, toolIDs []string) error {
	if len(toolIDs) == 0 {
		return fmt.Errorf("%w: no tools given", domain.ErrInvalidInput)
	}
	return m.tools.Deposit(ctx, userID, landID, toolIDs)
}

func (m *manager) GetSession(ctx context.Context, userID, sessionID string) (*domain.MiningSession, error) {
	sess, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	return sess, nil
}

func (m *manager) ListSessions(ctx context.Context, userID string, limit, offset int) ([]domain.MiningSession, int, error) {
	return m.store.ListSessionsByUser(ctx, userID, limit, offset)
}

func (m *manager) SettleDue(ctx context.Context) (int, error) {
	sessions, err := m.store.ListActiveSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active sessions: %w", err)
	}

	settled := 0
	for _, s := range sessions {
		if _, _, err := m.settleOne(ctx, s.ID); err != nil {
			// A busy session will be caught on the next tick.
			logger.FromContext(ctx).Warn("Scheduled settlement skipped", "session", s.ID, "error", err)
			continue
		}
		metrics.SettlementsTotal.WithLabelValues("tick").Inc()
		settled++
	}
	return settled, nil
}

// settleOne runs a bare settlement with no further mutation.
func (m *manager) settleOne(ctx context.Context, sessionID string) (*domain.MiningSession, *settlement.Outcome, error) {
	return m.mutateSession(ctx, "", sessionID, func(ctx context.Context, tx repository.Tx, sess *domain.MiningSession) error {
		return nil
	})
}

// mutateSession is the shared command path: take the session lock, settle
// pending accrual, apply fn, persist, then publish whatever the settlement
// produced. userID may be empty for internal callers.
func (m *manager) mutateSession(ctx context.Context, userID, sessionID string, fn func(ctx context.Context, tx repository.Tx, sess *domain.MiningSession) error) (*domain.MiningSession, *settlement.Outcome, error) {
	release, err := m.locks.Acquire(ctx, sessionLockKey(sessionID))
	if err != nil {
		return nil, nil, err
	}
	defer release()

	// The session lock serializes mutations, so a pre-transaction peek is
	// stable enough to compute the ledger keys the settlement will touch.
	// Ledger key locks must be held before the transaction begins.
	peek, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if userID != "" && peek.UserID != userID {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	releaseLedger, err := m.engine.AcquireLocks(ctx, peek)
	if err != nil {
		return nil, nil, err
	}
	defer releaseLedger()

	tx, err := m.store.BeginTx(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer repository.SafeRollback(ctx, tx)

	sess, err := tx.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	out, err := m.engine.Settle(ctx, tx, sess, m.now())
	if err != nil {
		return nil, nil, err
	}
	if len(out.BrokenTools) > 0 {
		if err := m.recomputeRates(ctx, tx, sess); err != nil {
			return nil, nil, err
		}
	}

	if err := fn(ctx, tx, sess); err != nil {
		return nil, nil, err
	}

	if err := tx.SaveSession(ctx, *sess); err != nil {
		return nil, nil, fmt.Errorf("failed to save session: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if userID != "" && out.Covered > 0 {
		metrics.SettlementsTotal.WithLabelValues("command").Inc()
	}
	m.afterSettle(ctx, sess, out)
	return sess, out, nil
}

// afterSettle publishes settlement side effects after the commit.
func (m *manager) afterSettle(ctx context.Context, sess *domain.MiningSession, out *settlement.Outcome) {
	log := logger.FromContext(ctx)
	for i := range out.BrokenTools {
		t := out.BrokenTools[i]
		m.tools.Invalidate(t.ID)
		if err := m.bus.Publish(ctx, event.NewToolBrokenEvent(&t, sess.ID)); err != nil {
			log.Warn("Failed to publish tool broken event", "toolID", t.ID, "error", err)
		}
	}
	if out.Covered > 0 {
		for _, id := range sess.ToolIDs {
			m.tools.Invalidate(id)
		}
	}
	if out.ForcedPause {
		if err := m.bus.Publish(ctx, event.NewSessionPausedEvent(sess, true)); err != nil {
			log.Warn("Failed to publish forced pause event", "session", sess.ID, "error", err)
		}
	}
}

// recomputeRates recalculates output and grain rates from the currently
// bound tool set. Called only after settlement, so already-elapsed time is
// unaffected.
func (m *manager) recomputeRates(ctx context.Context, tx repository.Tx, sess *domain.MiningSession) error {
	profile, ok := m.catalog.Profile(sess.LandKind)
	if !ok {
		return fmt.Errorf("%w: unknown land kind %q", domain.ErrLandUnavailable, sess.LandKind)
	}
	bound := make([]domain.Tool, 0, len(sess.ToolIDs))
	for _, toolID := range sess.ToolIDs {
		t, err := tx.GetTool(ctx, toolID)
		if err != nil {
			return err
		}
		bound = append(bound, *t)
	}
	applyRates(sess, profile, bound)
	return nil
}

// applyRates sets output and grain rates from the bound tool set. Each bound
// tool produces its base rate scaled by the land multiplier and costs the
// land's base grain rate per hour.
func applyRates(sess *domain.MiningSession, profile domain.LandProfile, bound []domain.Tool) {
	var rate float64
	for i := range bound {
		rate += tool.BaseRate(bound[i].Type) * profile.OutputMultiplier
	}
	sess.OutputRate = rate
	sess.GrainRate = profile.BaseGrainRate * float64(len(bound))
}

func userShare(t domain.MiningType) float64 {
	if t == domain.MiningSelf {
		return userShareSelf
	}
	return userShareHired
}
