package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/uptrace/bun"

	contractx "github.com/scribadev/scriba/agent/contract"
)

// Template is a named docx template available to every user.
type Template struct {
	ID        string
	Name      string
	Content   []byte
	CreatedAt time.Time
}

// TemplateStore is the named-template catalog. Templates are global; the
// documents generated from them are owner-scoped artifacts.
type TemplateStore interface {
	GetByName(ctx context.Context, name string) (*Template, error)
	Put(ctx context.Context, name string, content []byte) (string, error)
	List(ctx context.Context) ([]string, error)
}

type PGTemplateStore struct {
	db  *bun.DB
	now func() time.Time
}

var _ TemplateStore = (*PGTemplateStore)(nil)

func NewPGTemplateStore(db *bun.DB) *PGTemplateStore {
	return &PGTemplateStore{db: db, now: time.Now}
}

func (s *PGTemplateStore) GetByName(ctx context.Context, name string) (*Template, error) {
	var row templateRow
	err := s.db.NewSelect().
		Model(&row).
		Where("tp.name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: template %s", contractx.ErrNotFound, name)
		}
		return nil, fmt.Errorf("load template: %w", err)
	}
	return &Template{
		ID:        row.ID,
		Name:      row.Name,
		Content:   row.Content,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (s *PGTemplateStore) Put(ctx context.Context, name string, content []byte) (string, error) {
	if name == "" || len(content) == 0 {
		return "", fmt.Errorf("%w: template name and content are required", contractx.ErrValidation)
	}

	row := &templateRow{
		ID:        xid.New().String(),
		Name:      name,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (name) DO UPDATE").
		Set("content = EXCLUDED.content").
		Exec(ctx)
	if err != nil {
		return "", fmt.Errorf("store template: %w", err)
	}
	return row.ID, nil
}

func (s *PGTemplateStore) List(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.NewSelect().
		Model((*templateRow)(nil)).
		Column("tp.name").
		Order("tp.name ASC").
		Scan(ctx, &names)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return names, nil
}
