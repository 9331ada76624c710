// Package memory provides an in-memory repository.Store implementation.
// It backs the package tests and local development without postgres;
// semantics (zero rows, not-found errors, tx visibility) mirror the
// postgres implementation.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/yieldland/production-core/internal/domain"
	"github.com/yieldland/production-core/internal/repository"
)

// Store is an in-memory repository.Store. A transaction holds the store
// lock from BeginTx until Commit/Rollback, which makes every tx fully
// serializable.
type Store struct {
	mu sync.Mutex

	resources map[string]map[domain.ResourceType]domain.UserResource
	tools     map[string]domain.Tool
	toolOrder []string
	sessions  map[string]domain.MiningSession
	sessOrder []string
	sequences map[string]int
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		resources: make(map[string]map[domain.ResourceType]domain.UserResource),
		tools:     make(map[string]domain.Tool),
		sessions:  make(map[string]domain.MiningSession),
		sequences: make(map[string]int),
	}
}

// BeginTx starts a transaction. The store lock is held until the tx ends.
func (s *Store) BeginTx(ctx context.Context) (repository.Tx, error) {
	s.mu.Lock()
	return &tx{store: s}, nil
}

func (s *Store) GetResource(ctx context.Context, userID string, rt domain.ResourceType) (*domain.UserResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getResource(userID, rt), nil
}

func (s *Store) SaveResource(ctx context.Context, res domain.UserResource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveResource(res)
	return nil
}

func (s *Store) ListResources(ctx context.Context, userID string) ([]domain.UserResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listResources(userID), nil
}

func (s *Store) CreateTool(ctx context.Context, tool domain.Tool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createTool(tool)
}

func (s *Store) GetTool(ctx context.Context, toolID string) (*domain.Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getTool(toolID)
}

func (s *Store) SaveTool(ctx context.Context, tool domain.Tool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveTool(tool)
}

func (s *Store) ListToolsByOwner(ctx context.Context, owner string, limit, offset int) ([]domain.Tool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listToolsByOwner(owner, limit, offset)
}

func (s *Store) NextToolSequence(ctx context.Context, kindCode, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextToolSequence(kindCode, day), nil
}

func (s *Store) ListDepositedTools(ctx context.Context, landID string) ([]domain.Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listDepositedTools(landID), nil
}

func (s *Store) CreateSession(ctx context.Context, sess domain.MiningSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createSession(sess)
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*domain.MiningSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getSession(sessionID)
}

func (s *Store) SaveSession(ctx context.Context, sess domain.MiningSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveSession(sess)
}

func (s *Store) ListSessionsByUser(ctx context.Context, userID string, limit, offset int) ([]domain.MiningSession, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listSessionsByUser(userID, limit, offset)
}

func (s *Store) ListActiveSessions(ctx context.Context) ([]domain.MiningSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listActiveSessions(), nil
}

func (s *Store) LandOccupied(ctx context.Context, landID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.landOccupied(landID), nil
}

// Unlocked internals, shared by the store methods and the tx.

func (s *Store) getResource(userID string, rt domain.ResourceType) *domain.UserResource {
	if byType, ok := s.resources[userID]; ok {
		if res, ok := byType[rt]; ok {
			copied := res
			return &copied
		}
	}
	return &domain.UserResource{UserID: userID, ResourceType: rt}
}

func (s *Store) saveResource(res domain.UserResource) {
	byType, ok := s.resources[res.UserID]
	if !ok {
		byType = make(map[domain.ResourceType]domain.UserResource)
		s.resources[res.UserID] = byType
	}
	byType[res.ResourceType] = res
}

func (s *Store) listResources(userID string) []domain.UserResource {
	byType := s.resources[userID]
	out := make([]domain.UserResource, 0, len(byType))
	for _, rt := range domain.AllResourceTypes {
		if res, ok := byType[rt]; ok {
			out = append(out, res)
		}
	}
	return out
}

func (s *Store) createTool(tool domain.Tool) error {
	if _, exists := s.tools[tool.ID]; exists {
		return fmt.Errorf("tool already exists: %s", tool.ID)
	}
	s.tools[tool.ID] = tool
	s.toolOrder = append(s.toolOrder, tool.ID)
	return nil
}

func (s *Store) getTool(toolID string) (*domain.Tool, error) {
	tool, ok := s.tools[toolID]
	if !ok {
		return nil, domain.ErrToolNotFound
	}
	copied := tool
	return &copied, nil
}

func (s *Store) saveTool(tool domain.Tool) error {
	if _, ok := s.tools[tool.ID]; !ok {
		return domain.ErrToolNotFound
	}
	s.tools[tool.ID] = tool
	return nil
}

func (s *Store) listToolsByOwner(owner string, limit, offset int) ([]domain.Tool, int, error) {
	var owned []domain.Tool
	for _, id := range s.toolOrder {
		if tool := s.tools[id]; tool.Owner == owner {
			owned = append(owned, tool)
		}
	}
	total := len(owned)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return owned[offset:end], total, nil
}

func (s *Store) nextToolSequence(kindCode, day string) int {
	key := kindCode + ":" + day
	s.sequences[key]++
	return s.sequences[key]
}

func (s *Store) listDepositedTools(landID string) []domain.Tool {
	binding := domain.DepositBinding(landID)
	var deposited []domain.Tool
	for _, id := range s.toolOrder {
		if tool := s.tools[id]; tool.BoundSessionID == binding {
			deposited = append(deposited, tool)
		}
	}
	return deposited
}

func copySession(sess domain.MiningSession) domain.MiningSession {
	copied := sess
	copied.ToolIDs = append([]string(nil), sess.ToolIDs...)
	if sess.EndTime != nil {
		end := *sess.EndTime
		copied.EndTime = &end
	}
	return copied
}

func (s *Store) createSession(sess domain.MiningSession) error {
	if _, exists := s.sessions[sess.ID]; exists {
		return fmt.Errorf("session already exists: %s", sess.ID)
	}
	s.sessions[sess.ID] = copySession(sess)
	s.sessOrder = append(s.sessOrder, sess.ID)
	return nil
}

func (s *Store) getSession(sessionID string) (*domain.MiningSession, error) {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	copied := copySession(sess)
	return &copied, nil
}

func (s *Store) saveSession(sess domain.MiningSession) error {
	if _, ok := s.sessions[sess.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	s.sessions[sess.ID] = copySession(sess)
	return nil
}

func (s *Store) listSessionsByUser(userID string, limit, offset int) ([]domain.MiningSession, int, error) {
	var owned []domain.MiningSession
	for _, id := range s.sessOrder {
		if sess := s.sessions[id]; sess.UserID == userID {
			owned = append(owned, copySession(sess))
		}
	}
	total := len(owned)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return owned[offset:end], total, nil
}

func (s *Store) listActiveSessions() []domain.MiningSession {
	var active []domain.MiningSession
	for _, id := range s.sessOrder {
		if sess := s.sessions[id]; sess.Status == domain.SessionActive {
			active = append(active, copySession(sess))
		}
	}
	return active
}

func (s *Store) landOccupied(landID string) bool {
	for _, sess := range s.sessions {
		if sess.LandID == landID && sess.Status != domain.SessionCompleted {
			return true
		}
	}
	return false
}
