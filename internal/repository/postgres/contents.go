package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/service/content"
)

// ContentRepo implements content.Repository against PostgreSQL.
type ContentRepo struct{ db *sql.DB }

// NewContentRepo creates a Postgres-backed content repository.
func NewContentRepo(db *sql.DB) *ContentRepo { return &ContentRepo{db: db} }

const contentColumns = `id, title, content_type, content_body, user_id, status, created_at, updated_at, published_at`

func (r *ContentRepo) Save(ctx context.Context, c *domain.Content) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contents (`+contentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			content_body = EXCLUDED.content_body,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			published_at = EXCLUDED.published_at
	`, c.ID, c.Title, c.Type, c.Body, c.UserID, c.Status, c.CreatedAt, c.UpdatedAt, c.PublishedAt)
	if err != nil {
		return fmt.Errorf("save content: %w", err)
	}
	return nil
}

func (r *ContentRepo) GetByID(ctx context.Context, id string) (*domain.Content, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM contents WHERE id = $1`, id)
	c, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}
	return c, nil
}

func (r *ContentRepo) List(ctx context.Context, f content.ListFilter) ([]*domain.Content, error) {
	var lq listQuery
	if f.OwnerID != "" {
		lq.eq("user_id", f.OwnerID)
	}
	if f.Type != "" {
		lq.eq("content_type", f.Type)
	}
	if f.Status != "" {
		lq.eq("status", f.Status)
	}
	q := lq.build(`SELECT `+contentColumns+` FROM contents`, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, lq.args...)
	if err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	defer rows.Close()

	var out []*domain.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanContent(s scanner) (*domain.Content, error) {
	var (
		c         domain.Content
		published sql.NullTime
	)
	if err := s.Scan(&c.ID, &c.Title, &c.Type, &c.Body, &c.UserID, &c.Status, &c.CreatedAt, &c.UpdatedAt, &published); err != nil {
		return nil, err
	}
	c.CreatedAt, c.UpdatedAt = c.CreatedAt.UTC(), c.UpdatedAt.UTC()
	if published.Valid {
		at := published.Time.UTC()
		c.PublishedAt = &at
	}
	return &c, nil
}
