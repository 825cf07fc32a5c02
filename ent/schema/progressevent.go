package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ProgressEvent holds the schema definition for the ProgressEvent entity:
// the durable backing store for internal/transport/pgnotify's NOTIFY/
// LISTEN fanout, so a C10 activity/clarification/response/error message
// published while a subscriber is briefly disconnected is not lost across
// a reconnect in a multi-process deployment.
type ProgressEvent struct {
	ent.Schema
}

// Fields of the ProgressEvent.
func (ProgressEvent) Fields() []ent.Field {
	return []ent.Field{
		field.Int64("id").
			Immutable(),
		field.String("user_id").
			Immutable(),
		field.String("channel").
			Immutable().
			Comment("activity | clarification | response | error | pong"),
		field.Text("payload_json").
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the ProgressEvent.
func (ProgressEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id", "created_at"),
	}
}
