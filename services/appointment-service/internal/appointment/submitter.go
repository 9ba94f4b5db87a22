package appointment

import (
	"context"
	"log/slog"

	otelx "github.com/pubike/pubike/libs/otel"
	"github.com/pubike/pubike/services/appointment-service/internal/model"
	"github.com/pubike/pubike/services/appointment-service/internal/session"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ConfirmationCodeLength is how much of the record id is shown to the visitor.
const ConfirmationCodeLength = 8

type Confirmation struct {
	AppointmentID string `json:"appointmentId"`
	Code          string `json:"confirmationCode"`
}

type Submitter struct {
	logger  *slog.Logger
	metrics *Metrics
}

func NewSubmitter(logger *slog.Logger, metrics *Metrics) *Submitter {
	return &Submitter{logger: logger, metrics: metrics}
}

// Submit validates in and writes exactly one appointment record through the
// session's store. Nothing is written unless every check passes.
func (s *Submitter) Submit(ctx context.Context, sess *session.Context, in FormInput) (Confirmation, error) {
	ctx, span := otelx.Tracer("appointment").Start(ctx, "appointment.submit")
	defer span.End()

	if !sess.Ready() {
		s.metrics.observe(outcomeNotReady)
		span.SetStatus(codes.Error, "not ready")
		return Confirmation{}, ErrNotReady
	}

	in = in.Normalize()
	if err := Validate(in); err != nil {
		s.metrics.observe(outcomeValidation)
		s.logger.Info("appointment rejected", "user_id", sess.UserID, "err", err)
		span.SetStatus(codes.Error, "validation")
		return Confirmation{}, err
	}
	if !model.WithinServiceHours(in.PreferredTime) {
		s.logger.Warn("preferred time outside service hours", "user_id", sess.UserID, "preferred_time", in.PreferredTime)
	}

	record := model.Appointment{
		ServiceType:     model.ServiceType(in.ServiceType),
		UserName:        in.UserName,
		ContactInfo:     in.ContactInfo,
		PreferredDate:   in.PreferredDate,
		PreferredTime:   in.PreferredTime,
		Notes:           in.Notes,
		Status:          model.StatusPending,
		UserID:          sess.UserID,
		Condominio:      model.Condominio,
		ServiceProvider: model.ServiceProvider,
	}

	collection := model.CollectionPath(sess.AppID)
	span.SetAttributes(attribute.String("pubike.collection", collection))
	id, err := sess.Store.Create(ctx, collection, record)
	if err != nil {
		s.metrics.observe(outcomeWriteError)
		s.logger.Error("appointment write failed", "user_id", sess.UserID, "collection", collection, "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return Confirmation{}, &WriteError{Err: err}
	}

	s.metrics.observe(outcomeSuccess)
	s.logger.Info("appointment created", "appointment_id", id, "user_id", sess.UserID, "service_type", record.ServiceType)
	return Confirmation{AppointmentID: id, Code: shortCode(id)}, nil
}

func shortCode(id string) string {
	if len(id) <= ConfirmationCodeLength {
		return id
	}
	return id[:ConfirmationCodeLength]
}
