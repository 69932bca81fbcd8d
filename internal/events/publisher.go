package events

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	SubjectRegistered     = "account.registered"
	SubjectLoggedIn       = "account.logged_in"
	SubjectLoggedOut      = "account.logged_out"
	SubjectTokenRefreshed = "account.token_refreshed"
	SubjectAll            = "account.>"
	SubjectFailed         = "account.events.failed"
)

type EventPublisher interface {
	PublishUserRegistered(userID uuid.UUID, username string) error
	PublishUserLoggedIn(userID uuid.UUID) error
	PublishUserLoggedOut(userID uuid.UUID) error
	PublishTokenRefreshed(userID uuid.UUID) error
}

type AccountEvent struct {
	EventType  string    `json:"event_type"`
	UserID     uuid.UUID `json:"user_id"`
	Username   string    `json:"username,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type NatsPublisher struct {
	conn *nats.Conn
}

func NewNatsPublisher(natsURL string) (*NatsPublisher, error) {
	nc, err := nats.Connect(natsURL, nats.Name("account-service"))
	if err != nil {
		return nil, err
	}

	return &NatsPublisher{conn: nc}, nil
}

func (p *NatsPublisher) Close() {
	p.conn.Close()
}

func (p *NatsPublisher) PublishUserRegistered(userID uuid.UUID, username string) error {
	return p.publish(AccountEvent{EventType: SubjectRegistered, UserID: userID, Username: username, OccurredAt: time.Now()})
}

func (p *NatsPublisher) PublishUserLoggedIn(userID uuid.UUID) error {
	return p.publish(AccountEvent{EventType: SubjectLoggedIn, UserID: userID, OccurredAt: time.Now()})
}

func (p *NatsPublisher) PublishUserLoggedOut(userID uuid.UUID) error {
	return p.publish(AccountEvent{EventType: SubjectLoggedOut, UserID: userID, OccurredAt: time.Now()})
}

func (p *NatsPublisher) PublishTokenRefreshed(userID uuid.UUID) error {
	return p.publish(AccountEvent{EventType: SubjectTokenRefreshed, UserID: userID, OccurredAt: time.Now()})
}

// The event type doubles as the subject.
func (p *NatsPublisher) publish(event AccountEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		slog.Error("Error marshalling event JSON", slog.String("error", err.Error()))
		return err
	}

	if err := p.conn.Publish(event.EventType, eventJSON); err != nil {
		slog.Error("Error publishing to NATS", slog.String("subject", event.EventType), slog.String("error", err.Error()))
		return err
	}

	slog.Debug("Published account event", slog.String("subject", event.EventType), slog.String("user_id", event.UserID.String()))

	return nil
}

// NopPublisher drops every event. Used when NATS is not configured.
type NopPublisher struct{}

func (NopPublisher) PublishUserRegistered(uuid.UUID, string) error { return nil }
func (NopPublisher) PublishUserLoggedIn(uuid.UUID) error           { return nil }
func (NopPublisher) PublishUserLoggedOut(uuid.UUID) error          { return nil }
func (NopPublisher) PublishTokenRefreshed(uuid.UUID) error         { return nil }
