package store

import (
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/scribadev/scriba/agent/contract"
)

type conversationRow struct {
	bun.BaseModel `bun:"table:conversations,alias:c"`

	ID        string    `bun:"id,pk"`
	OwnerID   string    `bun:"owner_id,notnull"`
	Title     string    `bun:"title"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type turnRow struct {
	bun.BaseModel `bun:"table:turns,alias:t"`

	ID             string    `bun:"id,pk"`
	ConversationID string    `bun:"conversation_id,notnull"`
	Seq            int64     `bun:"seq,notnull"`
	Role           string    `bun:"role,notnull"`
	Content        string    `bun:"content,notnull"`
	ArtifactID     string    `bun:"artifact_id"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
}

func (r turnRow) toTurn() contractx.Turn {
	return contractx.Turn{
		ID:         r.ID,
		Role:       contractx.Role(r.Role),
		Content:    r.Content,
		ArtifactID: r.ArtifactID,
		CreatedAt:  r.CreatedAt,
	}
}

type artifactRow struct {
	bun.BaseModel `bun:"table:artifacts,alias:a"`

	ID         string    `bun:"id,pk"`
	OwnerID    string    `bun:"owner_id,notnull"`
	Filename   string    `bun:"filename,notnull"`
	Kind       string    `bun:"kind,notnull"`
	TemplateID string    `bun:"template_id"`
	Content    []byte    `bun:"content,type:bytea,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

type templateRow struct {
	bun.BaseModel `bun:"table:templates,alias:tp"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name,notnull,unique"`
	Content   []byte    `bun:"content,type:bytea,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}
