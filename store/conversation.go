// Package store holds the persistence boundaries: conversations and turns,
// artifacts and templates (Postgres via bun), and the per-conversation memory
// summary (Upstash Redis REST).
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

// ConversationStore is the turn persistence contract used by the orchestrator.
type ConversationStore interface {
	Create(ctx context.Context, ownerID, title string) (string, error)
	Load(ctx context.Context, conversationID, ownerID string) ([]contractx.Turn, error)
	AppendTurns(ctx context.Context, conversationID, ownerID string, turns ...contractx.Turn) error
}

// PGConversationStore persists conversations and turns in Postgres. Appends
// within one conversation are serialized by a FOR UPDATE row lock, held only
// for the append transaction, never across model or tool calls.
type PGConversationStore struct {
	db  *bun.DB
	now func() time.Time
}

var _ ConversationStore = (*PGConversationStore)(nil)

func NewPGConversationStore(db *bun.DB) *PGConversationStore {
	return &PGConversationStore{db: db, now: time.Now}
}

func (s *PGConversationStore) Create(ctx context.Context, ownerID, title string) (string, error) {
	now := s.now().UTC()
	row := &conversationRow{
		ID:        xid.New().String(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return "", fmt.Errorf("insert conversation: %w", err)
	}
	return row.ID, nil
}

// Load returns the ordered turn sequence. Unknown id and owner mismatch are
// both ErrNotFound.
func (s *PGConversationStore) Load(ctx context.Context, conversationID, ownerID string) ([]contractx.Turn, error) {
	var conv conversationRow
	err := s.db.NewSelect().
		Model(&conv).
		Where("c.id = ?", conversationID).
		Where("c.owner_id = ?", ownerID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: conversation %s", contractx.ErrNotFound, conversationID)
		}
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	var rows []turnRow
	err = s.db.NewSelect().
		Model(&rows).
		Where("t.conversation_id = ?", conversationID).
		Order("t.seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}

	turns := make([]contractx.Turn, 0, len(rows))
	for _, r := range rows {
		turns = append(turns, r.toTurn())
	}
	return turns, nil
}

// AppendTurns persists all given turns in one transaction: either every turn
// lands, in order, or none does.
func (s *PGConversationStore) AppendTurns(ctx context.Context, conversationID, ownerID string, turns ...contractx.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var conv conversationRow
		err := tx.NewSelect().
			Model(&conv).
			Where("c.id = ?", conversationID).
			Where("c.owner_id = ?", ownerID).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: conversation %s", contractx.ErrNotFound, conversationID)
			}
			return fmt.Errorf("lock conversation: %w", err)
		}

		var maxSeq sql.NullInt64
		err = tx.NewSelect().
			Model((*turnRow)(nil)).
			ColumnExpr("max(t.seq)").
			Where("t.conversation_id = ?", conversationID).
			Scan(ctx, &maxSeq)
		if err != nil {
			return fmt.Errorf("read turn sequence: %w", err)
		}

		seq := maxSeq.Int64
		now := s.now().UTC()
		for _, turn := range turns {
			seq++
			id := turn.ID
			if id == "" {
				id = xid.New().String()
			}
			createdAt := turn.CreatedAt
			if createdAt.IsZero() {
				createdAt = now
			}
			row := &turnRow{
				ID:             id,
				ConversationID: conversationID,
				Seq:            seq,
				Role:           string(turn.Role),
				Content:        turn.Content,
				ArtifactID:     turn.ArtifactID,
				CreatedAt:      createdAt,
			}
			if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
				return fmt.Errorf("insert turn: %w", err)
			}
		}

		_, err = tx.NewUpdate().
			Model((*conversationRow)(nil)).
			Set("updated_at = ?", now).
			Where("id = ?", conversationID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		return nil
	})
}
