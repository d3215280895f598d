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

// Artifact is a stored binary document owned by exactly one user.
type Artifact struct {
	ID         string
	OwnerID    string
	Filename   string
	Kind       contractx.ArtifactKind
	TemplateID string
	Content    []byte
	CreatedAt  time.Time
}

// ArtifactInfo is artifact metadata without the payload, for query results.
type ArtifactInfo struct {
	ID        string                 `json:"id"`
	Filename  string                 `json:"filename"`
	Kind      contractx.ArtifactKind `json:"kind"`
	CreatedAt time.Time              `json:"created_at"`
}

// ArtifactStore is the owner-scoped binary document boundary. Cross-owner
// access always reads as ErrNotFound.
type ArtifactStore interface {
	Get(ctx context.Context, id, ownerID string) (*Artifact, error)
	Put(ctx context.Context, artifact *Artifact) (string, error)
	Delete(ctx context.Context, id, ownerID string) error
	Query(ctx context.Context, ownerID, nameContains string) ([]ArtifactInfo, error)
}

type PGArtifactStore struct {
	db  *bun.DB
	now func() time.Time
}

var _ ArtifactStore = (*PGArtifactStore)(nil)

func NewPGArtifactStore(db *bun.DB) *PGArtifactStore {
	return &PGArtifactStore{db: db, now: time.Now}
}

func (s *PGArtifactStore) Get(ctx context.Context, id, ownerID string) (*Artifact, error) {
	var row artifactRow
	err := s.db.NewSelect().
		Model(&row).
		Where("a.id = ?", id).
		Where("a.owner_id = ?", ownerID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: artifact %s", contractx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("load artifact: %w", err)
	}
	return &Artifact{
		ID:         row.ID,
		OwnerID:    row.OwnerID,
		Filename:   row.Filename,
		Kind:       contractx.ArtifactKind(row.Kind),
		TemplateID: row.TemplateID,
		Content:    row.Content,
		CreatedAt:  row.CreatedAt,
	}, nil
}

// Put stores a new artifact, or overwrites an existing one when the id is set
// and owned by the same user.
func (s *PGArtifactStore) Put(ctx context.Context, artifact *Artifact) (string, error) {
	if artifact == nil || len(artifact.Content) == 0 {
		return "", fmt.Errorf("%w: artifact content is empty", contractx.ErrValidation)
	}

	row := &artifactRow{
		ID:         artifact.ID,
		OwnerID:    artifact.OwnerID,
		Filename:   artifact.Filename,
		Kind:       string(artifact.Kind),
		TemplateID: artifact.TemplateID,
		Content:    artifact.Content,
		CreatedAt:  artifact.CreatedAt,
	}
	if row.ID == "" {
		row.ID = xid.New().String()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = s.now().UTC()
	}

	res, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("content = EXCLUDED.content").
		Set("filename = EXCLUDED.filename").
		Where("a.owner_id = EXCLUDED.owner_id").
		Exec(ctx)
	if err != nil {
		return "", fmt.Errorf("store artifact: %w", err)
	}
	// the conflict update is owner-guarded; zero rows means the id belongs to
	// someone else
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return "", fmt.Errorf("%w: artifact %s", contractx.ErrNotFound, row.ID)
	}
	return row.ID, nil
}

func (s *PGArtifactStore) Delete(ctx context.Context, id, ownerID string) error {
	res, err := s.db.NewDelete().
		Model((*artifactRow)(nil)).
		Where("id = ?", id).
		Where("owner_id = ?", ownerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: artifact %s", contractx.ErrNotFound, id)
	}
	return nil
}

func (s *PGArtifactStore) Query(ctx context.Context, ownerID, nameContains string) ([]ArtifactInfo, error) {
	var rows []artifactRow
	q := s.db.NewSelect().
		Model(&rows).
		Column("a.id", "a.filename", "a.kind", "a.created_at").
		Where("a.owner_id = ?", ownerID).
		Order("a.created_at DESC")
	if nameContains != "" {
		q = q.Where("a.filename ILIKE ?", "%"+nameContains+"%")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}

	infos := make([]ArtifactInfo, 0, len(rows))
	for _, r := range rows {
		infos = append(infos, ArtifactInfo{
			ID:        r.ID,
			Filename:  r.Filename,
			Kind:      contractx.ArtifactKind(r.Kind),
			CreatedAt: r.CreatedAt,
		})
	}
	return infos, nil
}
