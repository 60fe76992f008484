package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/inkpress/core/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Event is the wire shape of one workflow notification.
type Event struct {
	RecipientID string `json:"recipient_id"`
	ActorID     string `json:"actor_id"`
	Verb        string `json:"verb"`
	TargetType  string `json:"target_type"`
	TargetID    string `json:"target_id"`
}

// Service is the notification sink. It persists notifications, deduplicating
// identical (actor, recipient, verb, target) events inside the dedup window so
// at-least-once dispatch stays idempotent.
type Service struct {
	db     *gorm.DB
	dedup  Deduper
	logger *zap.Logger
}

func NewService(db *gorm.DB, dedup Deduper, logger *zap.Logger) *Service {
	return &Service{db: db, dedup: dedup, logger: logger}
}

// Deliver implements dispatch.Sink.
func (s *Service) Deliver(ctx context.Context, payload json.RawMessage) error {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		// Malformed payloads are dropped, retrying cannot fix them.
		s.logger.Warn("notify: dropping malformed event", zap.Error(err))
		return nil
	}
	return s.Handle(ctx, ev)
}

// Handle applies dedup and persists the event. An empty recipient addresses
// the editorial desk: every manager receives a copy.
func (s *Service) Handle(ctx context.Context, ev Event) error {
	if ev.Verb == "" || ev.TargetID == "" {
		return nil
	}
	if ev.TargetType == "" {
		ev.TargetType = "article"
	}

	recipients := []string{ev.RecipientID}
	if ev.RecipientID == "" {
		var err error
		recipients, err = s.deskRecipients(ctx)
		if err != nil {
			return err
		}
	}

	for _, recipient := range recipients {
		if recipient == "" || recipient == ev.ActorID {
			continue
		}
		fresh, err := s.dedup.FirstSeen(ctx, dedupKey(ev, recipient))
		if err != nil {
			return fmt.Errorf("notify: dedup check: %w", err)
		}
		if !fresh {
			continue
		}
		n := models.NotificationModel{
			RecipientID: recipient,
			ActorID:     ev.ActorID,
			Verb:        ev.Verb,
			TargetType:  ev.TargetType,
			TargetID:    ev.TargetID,
			Lifecycle:   models.LifecycleActive,
		}
		if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
			return fmt.Errorf("notify: persist: %w", err)
		}
	}
	return nil
}

func (s *Service) deskRecipients(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("is_admin = ?", true).
		Pluck("id", &ids).Error
	return ids, err
}

func dedupKey(ev Event, recipient string) string {
	return fmt.Sprintf("%s|%s|%s|%s:%s", ev.ActorID, recipient, ev.Verb, ev.TargetType, ev.TargetID)
}
