package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/yieldland/production-core/internal/domain"
)

var errTxClosed = errors.New("tx is closed")

// tx stages writes and applies them on Commit, so a rolled-back transaction
// leaves the store untouched (the partial-settlement guarantee the services
// rely on).
type tx struct {
	store *Store
	done  bool

	resources map[string]domain.UserResource // key: userID|type
	tools     map[string]domain.Tool
	newTools  []string
	sessions  map[string]domain.MiningSession
	newSess   []string
	sequences map[string]int
}

func resourceKey(userID string, rt domain.ResourceType) string {
	return userID + "|" + string(rt)
}

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return errTxClosed
	}
	t.done = true
	defer t.store.mu.Unlock()

	for _, res := range t.resources {
		t.store.saveResource(res)
	}
	for _, id := range t.newTools {
		t.store.tools[id] = t.tools[id]
		t.store.toolOrder = append(t.store.toolOrder, id)
		delete(t.tools, id)
	}
	for id, tool := range t.tools {
		t.store.tools[id] = tool
	}
	for _, id := range t.newSess {
		t.store.sessions[id] = t.sessions[id]
		t.store.sessOrder = append(t.store.sessOrder, id)
		delete(t.sessions, id)
	}
	for id, sess := range t.sessions {
		t.store.sessions[id] = sess
	}
	for key, seq := range t.sequences {
		t.store.sequences[key] = seq
	}
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	if t.done {
		return errTxClosed
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

func (t *tx) GetResource(ctx context.Context, userID string, rt domain.ResourceType) (*domain.UserResource, error) {
	if t.resources != nil {
		if res, ok := t.resources[resourceKey(userID, rt)]; ok {
			copied := res
			return &copied, nil
		}
	}
	return t.store.getResource(userID, rt), nil
}

func (t *tx) SaveResource(ctx context.Context, res domain.UserResource) error {
	if t.resources == nil {
		t.resources = make(map[string]domain.UserResource)
	}
	t.resources[resourceKey(res.UserID, res.ResourceType)] = res
	return nil
}

func (t *tx) ListResources(ctx context.Context, userID string) ([]domain.UserResource, error) {
	merged := make(map[domain.ResourceType]domain.UserResource)
	for _, res := range t.store.listResources(userID) {
		merged[res.ResourceType] = res
	}
	for _, res := range t.resources {
		if res.UserID == userID {
			merged[res.ResourceType] = res
		}
	}
	out := make([]domain.UserResource, 0, len(merged))
	for _, rt := range domain.AllResourceTypes {
		if res, ok := merged[rt]; ok {
			out = append(out, res)
		}
	}
	return out, nil
}

func (t *tx) CreateTool(ctx context.Context, tool domain.Tool) error {
	if _, exists := t.store.tools[tool.ID]; exists {
		return fmt.Errorf("tool already exists: %s", tool.ID)
	}
	if t.tools == nil {
		t.tools = make(map[string]domain.Tool)
	}
	if _, exists := t.tools[tool.ID]; exists {
		return fmt.Errorf("tool already exists: %s", tool.ID)
	}
	t.tools[tool.ID] = tool
	t.newTools = append(t.newTools, tool.ID)
	return nil
}

func (t *tx) GetTool(ctx context.Context, toolID string) (*domain.Tool, error) {
	if t.tools != nil {
		if tool, ok := t.tools[toolID]; ok {
			copied := tool
			return &copied, nil
		}
	}
	return t.store.getTool(toolID)
}

func (t *tx) SaveTool(ctx context.Context, tool domain.Tool) error {
	if t.tools == nil {
		t.tools = make(map[string]domain.Tool)
	}
	if _, staged := t.tools[tool.ID]; !staged {
		if _, exists := t.store.tools[tool.ID]; !exists {
			return domain.ErrToolNotFound
		}
	}
	t.tools[tool.ID] = tool
	return nil
}

func (t *tx) ListToolsByOwner(ctx context.Context, owner string, limit, offset int) ([]domain.Tool, int, error) {
	// Pagination inside a tx reads committed state plus staged updates.
	tools, total, err := t.store.listToolsByOwner(owner, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for i, tool := range tools {
		if staged, ok := t.tools[tool.ID]; ok {
			tools[i] = staged
		}
	}
	return tools, total, nil
}

func (t *tx) NextToolSequence(ctx context.Context, kindCode, day string) (int, error) {
	key := kindCode + ":" + day
	if t.sequences == nil {
		t.sequences = make(map[string]int)
	}
	if _, ok := t.sequences[key]; !ok {
		t.sequences[key] = t.store.sequences[key]
	}
	t.sequences[key]++
	return t.sequences[key], nil
}

func (t *tx) ListDepositedTools(ctx context.Context, landID string) ([]domain.Tool, error) {
	binding := domain.DepositBinding(landID)
	seen := make(map[string]bool)
	var deposited []domain.Tool
	for _, tool := range t.store.listDepositedTools(landID) {
		if staged, ok := t.tools[tool.ID]; ok {
			seen[tool.ID] = true
			if staged.BoundSessionID == binding {
				deposited = append(deposited, staged)
			}
			continue
		}
		deposited = append(deposited, tool)
	}
	for id, staged := range t.tools {
		if !seen[id] && staged.BoundSessionID == binding {
			deposited = append(deposited, staged)
		}
	}
	return deposited, nil
}

func (t *tx) CreateSession(ctx context.Context, sess domain.MiningSession) error {
	if _, exists := t.store.sessions[sess.ID]; exists {
		return fmt.Errorf("session already exists: %s", sess.ID)
	}
	if t.sessions == nil {
		t.sessions = make(map[string]domain.MiningSession)
	}
	if _, exists := t.sessions[sess.ID]; exists {
		return fmt.Errorf("session already exists: %s", sess.ID)
	}
	t.sessions[sess.ID] = copySession(sess)
	t.newSess = append(t.newSess, sess.ID)
	return nil
}

func (t *tx) GetSession(ctx context.Context, sessionID string) (*domain.MiningSession, error) {
	if t.sessions != nil {
		if sess, ok := t.sessions[sessionID]; ok {
			copied := copySession(sess)
			return &copied, nil
		}
	}
	return t.store.getSession(sessionID)
}

func (t *tx) SaveSession(ctx context.Context, sess domain.MiningSession) error {
	if t.sessions == nil {
		t.sessions = make(map[string]domain.MiningSession)
	}
	if _, staged := t.sessions[sess.ID]; !staged {
		if _, exists := t.store.sessions[sess.ID]; !exists {
			return domain.ErrSessionNotFound
		}
	}
	t.sessions[sess.ID] = copySession(sess)
	return nil
}

func (t *tx) ListSessionsByUser(ctx context.Context, userID string, limit, offset int) ([]domain.MiningSession, int, error) {
	sessions, total, err := t.store.listSessionsByUser(userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for i, sess := range sessions {
		if staged, ok := t.sessions[sess.ID]; ok {
			sessions[i] = copySession(staged)
		}
	}
	return sessions, total, nil
}

func (t *tx) ListActiveSessions(ctx context.Context) ([]domain.MiningSession, error) {
	active := t.store.listActiveSessions()
	for i, sess := range active {
		if staged, ok := t.sessions[sess.ID]; ok {
			active[i] = copySession(staged)
		}
	}
	return active, nil
}

func (t *tx) LandOccupied(ctx context.Context, landID string) (bool, error) {
	for _, sess := range t.sessions {
		if sess.LandID == landID && sess.Status != domain.SessionCompleted {
			return true, nil
		}
	}
	return t.store.landOccupied(landID), nil
}
