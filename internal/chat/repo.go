package chat

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"boneai-backend/internal/shared/storage/db"
)

// Interaction is one user message and the assistant reply. Interactions are append-only.
type Interaction struct {
	ID          string    `json:"id"`
	AnalysisID  string    `json:"analysisId"`
	UserID      string    `json:"userId"`
	UserMessage string    `json:"userMessage"`
	AIResponse  string    `json:"aiResponse"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Repo appends and lists chat interactions for an analysis.
type Repo interface {
	Append(ctx context.Context, in Interaction) error
	ListByAnalysis(ctx context.Context, analysisID string) ([]Interaction, error)
}

// MemoryRepo keeps interactions in memory.
type MemoryRepo struct {
	mu         sync.RWMutex
	byAnalysis map[string][]Interaction
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byAnalysis: make(map[string][]Interaction)}
}

func (r *MemoryRepo) Append(ctx context.Context, in Interaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byAnalysis[in.AnalysisID] = append(r.byAnalysis[in.AnalysisID], in)
	return nil
}

func (r *MemoryRepo) ListByAnalysis(ctx context.Context, analysisID string) ([]Interaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Interaction, len(r.byAnalysis[analysisID]))
	copy(out, r.byAnalysis[analysisID])
	return out, nil
}

// SQLRepo stores interactions in the chat_interactions table.
type SQLRepo struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func (r *SQLRepo) Append(ctx context.Context, in Interaction) error {
	const query = `
INSERT INTO chat_interactions (id, analysis_id, user_id, user_message, ai_response, created_at)
VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.DB.ExecContext(ctx, db.Rebind(r.Dialect, query),
		in.ID, in.AnalysisID, in.UserID, in.UserMessage, in.AIResponse, in.CreatedAt)
	return err
}

func (r *SQLRepo) ListByAnalysis(ctx context.Context, analysisID string) ([]Interaction, error) {
	const query = `
SELECT id, analysis_id, user_id, user_message, ai_response, created_at
FROM chat_interactions WHERE analysis_id = ? ORDER BY created_at ASC`
	rows, err := r.DB.QueryContext(ctx, db.Rebind(r.Dialect, query), analysisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Interaction{}
	for rows.Next() {
		var in Interaction
		if err := rows.Scan(&in.ID, &in.AnalysisID, &in.UserID, &in.UserMessage, &in.AIResponse, &in.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

var (
	_ Repo = (*MemoryRepo)(nil)
	_ Repo = (*SQLRepo)(nil)
)
