package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Conversation holds the schema definition for the Conversation entity.
// One row per C7 ConversationState's durable identity: owner, title seed,
// and the timestamps the eviction sweep and lazy-load path read.
//
// This schema is retained as declarative documentation of the reference
// persistence layer's shape (internal/storage); no generated ent client is
// vendored in this module (see DESIGN.md), so internal/storage implements
// the same columns directly over pgx/database/sql.
type Conversation struct {
	ent.Schema
}

// Fields of the Conversation.
func (Conversation) Fields() []ent.Field {
	return []ent.Field{
		field.Int64("id").
			Immutable(),
		field.String("owner_id").
			Immutable(),
		field.String("title").
			Comment("First 50 chars of the triggering user message, per spec.md §4.8 step 1"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("last_updated").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the Conversation.
func (Conversation) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("messages", Message.Type),
	}
}

// Indexes of the Conversation.
func (Conversation) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("owner_id", "last_updated").
			Annotations(entsql.Desc("last_updated")),
	}
}
