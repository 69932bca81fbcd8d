package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"account-service/internal/model"
	"account-service/internal/repository"

	"github.com/nats-io/nats.go"
)

const (
	maxRetries = 3
	retryDelay = 2 * time.Second
)

// AccountEventSubscriber persists every account.* event into the audit table.
type AccountEventSubscriber struct {
	natsConn      *nats.Conn
	subscription  *nats.Subscription
	eventRepo     repository.AccountEventRepository
	retryDelay    time.Duration
	publishFailed func(subject string, data []byte) error
}

func NewAccountEventSubscriber(natsURL string, eventRepo repository.AccountEventRepository) (*AccountEventSubscriber, error) {
	nc, err := nats.Connect(natsURL, nats.Name("account-event-worker"))
	if err != nil {
		return nil, err
	}
	slog.Info("Account event subscriber connected to NATS")

	subscriber := &AccountEventSubscriber{
		natsConn:      nc,
		eventRepo:     eventRepo,
		retryDelay:    retryDelay,
		publishFailed: nc.Publish,
	}

	subscriber.subscription, err = nc.Subscribe(SubjectAll, subscriber.handleMessage)
	if err != nil {
		nc.Close()
		return nil, err
	}
	slog.Info("Account event subscriber listening", slog.String("subject", SubjectAll))

	return subscriber, nil
}

func (s *AccountEventSubscriber) Close() {
	if s.subscription != nil {
		if err := s.subscription.Drain(); err != nil {
			slog.Warn("Failed to drain subscription", slog.String("error", err.Error()))
		}
	}
	s.natsConn.Close()
}

func (s *AccountEventSubscriber) handleMessage(msg *nats.Msg) {
	if msg.Subject == SubjectFailed {
		return
	}

	var event AccountEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("Failed to unmarshal account event", slog.String("subject", msg.Subject), slog.String("error", err.Error()))
		return
	}

	record := &model.AccountEvent{
		EventType:  event.EventType,
		UserID:     event.UserID,
		Payload:    json.RawMessage(msg.Data),
		OccurredAt: event.OccurredAt,
	}
	if record.EventType == "" {
		record.EventType = msg.Subject
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}

	var saveErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		saveErr = s.eventRepo.Save(context.Background(), record)
		if saveErr == nil {
			slog.Debug("Account event stored", slog.String("event_type", record.EventType), slog.Int("attempt", attempt))
			return
		}

		slog.Warn("Failed saving account event",
			slog.Int("attempt", attempt),
			slog.String("event_type", record.EventType),
			slog.String("error", saveErr.Error()),
		)
		if attempt < maxRetries {
			time.Sleep(s.retryDelay)
		}
	}

	slog.Error("Giving up on account event",
		slog.String("event_type", record.EventType),
		slog.String("user_id", record.UserID.String()),
		slog.String("error", saveErr.Error()),
	)

	if err := s.publishFailed(SubjectFailed, msg.Data); err != nil {
		slog.Error("Failed to publish to DLQ", slog.String("subject", SubjectFailed), slog.String("error", err.Error()))
	}
}
