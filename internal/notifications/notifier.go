package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/diegodemontetech/boneheal-messaging/pkg/logging"
)

// NotificationStore persists pending notifications.
type NotificationStore interface {
	Insert(ctx context.Context, rec NotificationRecord) (uuid.UUID, error)
}

// EscalatedLead is the slice of lead data the notifier needs.
type EscalatedLead struct {
	ID    string
	Name  string
	Phone string
}

// Service emits "needs human attention" notifications to administrators.
type Service struct {
	store      NotificationStore
	email      EmailSender
	alertEmail string
	logger     *logging.Logger
}

func NewService(store NotificationStore, email EmailSender, alertEmail string, logger *logging.Logger) *Service {
	if store == nil {
		panic("notifications: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, email: email, alertEmail: alertEmail, logger: logger}
}

// NotifyHandoff writes the notification row and, when configured, emails
// the admin inbox. The email is best-effort; only the row insert can
// fail the call.
func (s *Service) NotifyHandoff(ctx context.Context, lead EscalatedLead) error {
	name := lead.Name
	if name == "" {
		name = "Lead sem nome"
	}
	msg := fmt.Sprintf("%s (%s) aguarda atendimento humano no WhatsApp", name, lead.Phone)

	id, err := s.store.Insert(ctx, NotificationRecord{
		LeadID:  lead.ID,
		Type:    TypeHumanHandoff,
		Message: msg,
		Status:  StatusPending,
	})
	if err != nil {
		return err
	}
	s.logger.Info("handoff notification created", "notification_id", id, "lead_id", lead.ID)

	if s.email != nil && s.alertEmail != "" {
		emailMsg := EmailMessage{
			To:      s.alertEmail,
			Subject: "Atendimento humano solicitado - " + name,
			Body:    msg,
		}
		if err := s.email.Send(ctx, emailMsg); err != nil {
			s.logger.Warn("failed to send escalation email", "error", err, "lead_id", lead.ID)
		}
	}

	return nil
}
