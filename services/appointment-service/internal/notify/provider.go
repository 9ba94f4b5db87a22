package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pubike/pubike/services/appointment-service/internal/model"
	"github.com/pubike/pubike/services/appointment-service/internal/outbox"
	"github.com/pubike/pubike/services/appointment-service/internal/sms"
	"github.com/segmentio/kafka-go"
)

const codeLength = 8

// ProviderHandler sends one SMS to the provider per new appointment document.
// Documents from other collections are ignored.
func ProviderHandler(sender sms.Sender, phone string, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var ev outbox.DocumentCreated
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", outbox.EventDocumentCreated, err)
		}
		if !strings.HasSuffix(ev.Collection, "/appointments") {
			return nil
		}
		var appt model.Appointment
		if err := json.Unmarshal(ev.Data, &appt); err != nil {
			return fmt.Errorf("decode appointment %s: %w", ev.ID, err)
		}
		if phone == "" {
			logger.Debug("provider phone not configured; skipping notification", "appointment_id", ev.ID)
			return nil
		}
		if err := sender.Send(ctx, phone, ProviderMessage(ev.ID, appt)); err != nil {
			return fmt.Errorf("notify provider: %w", err)
		}
		logger.Info("provider notified", "appointment_id", ev.ID, "sender", sender.ProviderID())
		return nil
	}
}

// ProviderMessage is the SMS text announcing a new appointment.
func ProviderMessage(id string, a model.Appointment) string {
	code := id
	if len(code) > codeLength {
		code = code[:codeLength]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Novo agendamento %s: %s para %s em %s às %s. Contato: %s.",
		code, a.ServiceType, a.UserName, a.PreferredDate, a.PreferredTime, a.ContactInfo)
	if a.Notes != "" {
		fmt.Fprintf(&b, " Obs: %s", a.Notes)
	}
	return b.String()
}
