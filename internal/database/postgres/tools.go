package postgres

import (
	"context"
	"fmt"

	"github.com/yieldland/production-core/internal/domain"
)

const toolColumns = `tool_id, tool_type, owner_id, durability, max_durability, status, bound_session_id, created_at, updated_at`

func scanTool(row interface{ Scan(...any) error }) (*domain.Tool, error) {
	var t domain.Tool
	var toolType, status string
	if err := row.Scan(&t.ID, &toolType, &t.Owner, &t.Durability, &t.MaxDurability, &status, &t.BoundSessionID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Type = domain.ToolType(toolType)
	t.Status = domain.ToolStatus(status)
	return &t, nil
}

// CreateTool inserts a new tool row.
func (o ops) CreateTool(ctx context.Context, tool domain.Tool) error {
	const query = `
		INSERT INTO tools (` + toolColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := o.q.Exec(ctx, query,
		tool.ID, string(tool.Type), tool.Owner, tool.Durability, tool.MaxDurability,
		string(tool.Status), tool.BoundSessionID, tool.CreatedAt, tool.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tool: %w", err)
	}
	return nil
}

// GetTool returns domain.ErrToolNotFound when the tool does not exist.
func (o ops) GetTool(ctx context.Context, toolID string) (*domain.Tool, error) {
	const query = `SELECT ` + toolColumns + ` FROM tools WHERE tool_id = $1`

	t, err := scanTool(o.q.QueryRow(ctx, query, toolID))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrToolNotFound, toolID)
		}
		return nil, fmt.Errorf("failed to get tool: %w", err)
	}
	return t, nil
}

// SaveTool updates a tool row.
func (o ops) SaveTool(ctx context.Context, tool domain.Tool) error {
	const query = `
		UPDATE tools
		SET durability = $2, status = $3, bound_session_id = $4, updated_at = $5
		WHERE tool_id = $1`

	tag, err := o.q.Exec(ctx, query, tool.ID, tool.Durability, string(tool.Status), tool.BoundSessionID, tool.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save tool: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrToolNotFound, tool.ID)
	}
	return nil
}

// ListToolsByOwner returns a page of the owner's tools plus the total count.
func (o ops) ListToolsByOwner(ctx context.Context, owner string, limit, offset int) ([]domain.Tool, int, error) {
	var total int
	if err := o.q.QueryRow(ctx, `SELECT COUNT(*) FROM tools WHERE owner_id = $1`, owner).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tools: %w", err)
	}

	const query = `
		SELECT ` + toolColumns + `
		FROM tools
		WHERE owner_id = $1
		ORDER BY created_at, tool_id
		LIMIT $2 OFFSET $3`

	rows, err := o.q.Query(ctx, query, owner, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tools: %w", err)
	}
	defer rows.Close()

	var out []domain.Tool
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan tool: %w", err)
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}

// NextToolSequence reserves the next per-day sequence for the kind code.
func (o ops) NextToolSequence(ctx context.Context, kindCode, day string) (int, error) {
	const query = `
		INSERT INTO tool_sequences (kind_code, day, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (kind_code, day)
		DO UPDATE SET seq = tool_sequences.seq + 1
		RETURNING seq`

	var seq int
	if err := o.q.QueryRow(ctx, query, kindCode, day).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to reserve tool sequence: %w", err)
	}
	return seq, nil
}

// ListDepositedTools returns tools parked on the land.
func (o ops) ListDepositedTools(ctx context.Context, landID string) ([]domain.Tool, error) {
	const query = `
		SELECT ` + toolColumns + `
		FROM tools
		WHERE bound_session_id = $1
		ORDER BY created_at, tool_id`

	rows, err := o.q.Query(ctx, query, domain.DepositBinding(landID))
	if err != nil {
		return nil, fmt.Errorf("failed to list deposited tools: %w", err)
	}
	defer rows.Close()

	var out []domain.Tool
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tool: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
