package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"account-service/internal/model"
)

type AccountEventRepository interface {
	Save(ctx context.Context, event *model.AccountEvent) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.AccountEvent, error)
}

type postgresAccountEventRepository struct {
	db *sqlx.DB
}

func NewPostgresAccountEventRepository(db *sqlx.DB) AccountEventRepository {
	return &postgresAccountEventRepository{db: db}
}

func (r *postgresAccountEventRepository) Save(ctx context.Context, event *model.AccountEvent) error {
	query := `INSERT INTO account_events (event_type, user_id, payload, occurred_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, event.EventType, event.UserID, string(event.Payload), event.OccurredAt)
	return err
}

func (r *postgresAccountEventRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.AccountEvent, error) {
	var events []model.AccountEvent
	query := `SELECT id, event_type, user_id, payload, occurred_at, created_at FROM account_events WHERE user_id = $1 ORDER BY occurred_at DESC LIMIT $2`
	err := r.db.SelectContext(ctx, &events, query, userID, limit)
	return events, err
}
