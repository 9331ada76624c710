package repository

import (
	"context"

	"github.com/yieldland/production-core/internal/domain"
)

// Ops is the set of entity operations available both on the base store and
// inside a transaction.
type Ops interface {
	LedgerOps
	ToolOps
	SessionOps
}

// LedgerOps persists (user, resource_type) balance rows.
type LedgerOps interface {
	// GetResource returns the balance row, or a zero row with the requested
	// key if none exists yet.
	GetResource(ctx context.Context, userID string, rt domain.ResourceType) (*domain.UserResource, error)

	// SaveResource upserts the balance row.
	SaveResource(ctx context.Context, res domain.UserResource) error

	// ListResources returns every balance row for the user.
	ListResources(ctx context.Context, userID string) ([]domain.UserResource, error)
}

// ToolOps persists tools.
type ToolOps interface {
	CreateTool(ctx context.Context, tool domain.Tool) error

	// GetTool returns domain.ErrToolNotFound when the tool does not exist.
	GetTool(ctx context.Context, toolID string) (*domain.Tool, error)

	SaveTool(ctx context.Context, tool domain.Tool) error

	// ListToolsByOwner returns a page of the owner's tools plus the total count.
	ListToolsByOwner(ctx context.Context, owner string, limit, offset int) ([]domain.Tool, int, error)

	// NextToolSequence reserves the next per-day sequence number for the
	// given tool kind code, used to build tool IDs.
	NextToolSequence(ctx context.Context, kindCode, day string) (int, error)

	// ListDepositedTools returns tools deposited on the given land and not
	// yet bound into a session.
	ListDepositedTools(ctx context.Context, landID string) ([]domain.Tool, error)
}

// SessionOps persists mining sessions.
type SessionOps interface {
	CreateSession(ctx context.Context, sess domain.MiningSession) error

	// GetSession returns domain.ErrSessionNotFound when the session does not exist.
	GetSession(ctx context.Context, sessionID string) (*domain.MiningSession, error)

	SaveSession(ctx context.Context, sess domain.MiningSession) error

	// ListSessionsByUser returns a page of the user's sessions plus the total count.
	ListSessionsByUser(ctx context.Context, userID string, limit, offset int) ([]domain.MiningSession, int, error)

	// ListActiveSessions returns every session in status active, for the
	// settlement scheduler.
	ListActiveSessions(ctx context.Context) ([]domain.MiningSession, error)

	// LandOccupied reports whether an active or paused session already
	// references the land.
	LandOccupied(ctx context.Context, landID string) (bool, error)
}

// Tx is a transaction over the store. Mutations inside a Tx become visible
// only on Commit.
type Tx interface {
	Ops
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the persistence interface the services are built on.
type Store interface {
	Ops
	BeginTx(ctx context.Context) (Tx, error)
}
