package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/service/workflow"
)

// WorkflowRepo implements workflow.Repository against PostgreSQL. Config
// is stored as JSONB.
type WorkflowRepo struct{ db *sql.DB }

// NewWorkflowRepo creates a Postgres-backed workflow repository.
func NewWorkflowRepo(db *sql.DB) *WorkflowRepo { return &WorkflowRepo{db: db} }

const workflowColumns = `id, name, description, status, config, user_id, last_error, created_at, updated_at`

func (r *WorkflowRepo) Save(ctx context.Context, w *domain.Workflow) error {
	cfg := w.Config
	if cfg == nil {
		cfg = map[string]any{}
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode workflow config: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflows (`+workflowColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			config = EXCLUDED.config,
			last_error = EXCLUDED.last_error,
			updated_at = EXCLUDED.updated_at
	`, w.ID, w.Name, w.Description, w.Status, raw, w.UserID, w.LastError, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save workflow: %w", err)
	}
	return nil
}

func (r *WorkflowRepo) GetByID(ctx context.Context, id string) (*domain.Workflow, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id)
	w, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	return w, nil
}

func (r *WorkflowRepo) List(ctx context.Context, f workflow.ListFilter) ([]*domain.Workflow, error) {
	var lq listQuery
	if f.OwnerID != "" {
		lq.eq("user_id", f.OwnerID)
	}
	if f.Status != "" {
		lq.eq("status", f.Status)
	}
	q := lq.build(`SELECT `+workflowColumns+` FROM workflows`, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, lq.args...)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var out []*domain.Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func scanWorkflow(s scanner) (*domain.Workflow, error) {
	var (
		w    domain.Workflow
		desc sql.NullString
		raw  []byte
	)
	if err := s.Scan(&w.ID, &w.Name, &desc, &w.Status, &raw, &w.UserID, &w.LastError, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	if desc.Valid {
		w.Description = &desc.String
	}
	w.Config = map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &w.Config); err != nil {
			return nil, fmt.Errorf("decode workflow %s config: %w", w.ID, err)
		}
	}
	w.CreatedAt, w.UpdatedAt = w.CreatedAt.UTC(), w.UpdatedAt.UTC()
	return &w, nil
}
