package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Event types published on the grading subject.
const (
	EventFinalGradesCalculated = "final-grades.calculated"
	EventGradingModelStale     = "grading-model.stale"
)

// GradeEvent notifies downstream consumers (exporters, dashboards) that
// grading state changed. Delivery is best effort; grading never blocks on it.
type GradeEvent struct {
	Type           string    `json:"type"`
	CourseID       uint      `json:"course_id"`
	GradingModelID uint      `json:"grading_model_id,omitempty"`
	UserIDs        []uint    `json:"user_ids,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// EventPublisher emits grade events.
type EventPublisher interface {
	Publish(event GradeEvent) error
}

type natsEventPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
	now     func() time.Time
}

// NewNATSEventPublisher builds a publisher over the given NATS connection.
// A nil connection yields a publisher that drops every event, which keeps
// the service usable without a broker.
func NewNATSEventPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) EventPublisher {
	if subject == "" {
		subject = "grades"
	}
	return &natsEventPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
		now:     time.Now,
	}
}

func (p *natsEventPublisher) Publish(event GradeEvent) error {
	if p.conn == nil {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode grade event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", p.subject, event.Type)
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish grade event")
		return err
	}
	return nil
}
