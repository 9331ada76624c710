package postgres

import (
	"context"
	"fmt"

	"github.com/yieldland/production-core/internal/domain"
)

const sessionColumns = `session_id, user_id, land_id, land_kind, land_owner, mining_type, status,
	output_rate, tax_rate, user_share_rate, grain_rate, produced, tool_ids,
	accumulated_output, accumulated_tax, start_time, end_time, last_settlement_time`

func scanSession(row interface{ Scan(...any) error }) (*domain.MiningSession, error) {
	var s domain.MiningSession
	var landKind, miningType, status, produced string
	if err := row.Scan(
		&s.ID, &s.UserID, &s.LandID, &landKind, &s.LandOwner, &miningType, &status,
		&s.OutputRate, &s.TaxRate, &s.UserShareRate, &s.GrainRate, &produced, &s.ToolIDs,
		&s.AccumulatedOutput, &s.AccumulatedTax, &s.StartTime, &s.EndTime, &s.LastSettlementTime,
	); err != nil {
		return nil, err
	}
	s.LandKind = domain.LandKind(landKind)
	s.Type = domain.MiningType(miningType)
	s.Status = domain.SessionStatus(status)
	s.Produced = domain.ResourceType(produced)
	return &s, nil
}

func sessionArgs(s domain.MiningSession) []any {
	toolIDs := s.ToolIDs
	if toolIDs == nil {
		toolIDs = []string{}
	}
	return []any{
		s.ID, s.UserID, s.LandID, string(s.LandKind), s.LandOwner, string(s.Type), string(s.Status),
		s.OutputRate, s.TaxRate, s.UserShareRate, s.GrainRate, string(s.Produced), toolIDs,
		s.AccumulatedOutput, s.AccumulatedTax, s.StartTime, s.EndTime, s.LastSettlementTime,
	}
}

// CreateSession inserts a new session row.
func (o ops) CreateSession(ctx context.Context, sess domain.MiningSession) error {
	const query = `
		INSERT INTO mining_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	if _, err := o.q.Exec(ctx, query, sessionArgs(sess)...); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession returns domain.ErrSessionNotFound when the session does not exist.
func (o ops) GetSession(ctx context.Context, sessionID string) (*domain.MiningSession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM mining_sessions WHERE session_id = $1`

	s, err := scanSession(o.q.QueryRow(ctx, query, sessionID))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// SaveSession updates a session row.
func (o ops) SaveSession(ctx context.Context, sess domain.MiningSession) error {
	const query = `
		UPDATE mining_sessions
		SET status = $2, output_rate = $3, tax_rate = $4, user_share_rate = $5, grain_rate = $6,
		    tool_ids = $7, accumulated_output = $8, accumulated_tax = $9,
		    end_time = $10, last_settlement_time = $11
		WHERE session_id = $1`

	toolIDs := sess.ToolIDs
	if toolIDs == nil {
		toolIDs = []string{}
	}
	tag, err := o.q.Exec(ctx, query,
		sess.ID, string(sess.Status), sess.OutputRate, sess.TaxRate, sess.UserShareRate, sess.GrainRate,
		toolIDs, sess.AccumulatedOutput, sess.AccumulatedTax, sess.EndTime, sess.LastSettlementTime)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sess.ID)
	}
	return nil
}

// ListSessionsByUser returns a page of the user's sessions plus the total count.
func (o ops) ListSessionsByUser(ctx context.Context, userID string, limit, offset int) ([]domain.MiningSession, int, error) {
	var total int
	if err := o.q.QueryRow(ctx, `SELECT COUNT(*) FROM mining_sessions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	const query = `
		SELECT ` + sessionColumns + `
		FROM mining_sessions
		WHERE user_id = $1
		ORDER BY start_time DESC, session_id
		LIMIT $2 OFFSET $3`

	rows, err := o.q.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.MiningSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}

// ListActiveSessions returns every active session, for the settlement tick.
func (o ops) ListActiveSessions(ctx context.Context) ([]domain.MiningSession, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM mining_sessions
		WHERE status = 'active'
		ORDER BY last_settlement_time`

	rows, err := o.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.MiningSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// LandOccupied reports whether a running session already references the land.
func (o ops) LandOccupied(ctx context.Context, landID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM mining_sessions
			WHERE land_id = $1 AND status IN ('active', 'paused')
		)`

	var occupied bool
	if err := o.q.QueryRow(ctx, query, landID).Scan(&occupied); err != nil {
		return false, fmt.Errorf("failed to check land occupancy: %w", err)
	}
	return occupied, nil
}
