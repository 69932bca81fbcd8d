package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AccountEvent struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	EventType  string          `db:"event_type" json:"eventType"`
	UserID     uuid.UUID       `db:"user_id" json:"userId"`
	Payload    json.RawMessage `db:"payload" json:"payload"`
	OccurredAt time.Time       `db:"occurred_at" json:"occurredAt"`
	CreatedAt  time.Time       `db:"created_at" json:"-"`
}
