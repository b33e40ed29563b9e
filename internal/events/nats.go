package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// SubjectRoot is the top of the progress subject tree.
const SubjectRoot = "projects"

// Subject returns the NATS subject for a project and event type.
func Subject(projectID, eventType string) string {
	return fmt.Sprintf("%s.%s.progress.%s", SubjectRoot, projectID, eventType)
}

// SubscribeSubject returns the wildcard subject covering every progress
// event for a project.
func SubscribeSubject(projectID string) string {
	return fmt.Sprintf("%s.%s.progress.*", SubjectRoot, projectID)
}

// NATSPublisher publishes progress events to a NATS connection.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// Connect dials NATS and returns a publisher over the connection.
func Connect(url string, logger *zap.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	logger.Info("connected to NATS", zap.String("url", url))
	return NewNATSPublisher(nc, logger), nil
}

// NewNATSPublisher wraps an existing connection. The caller keeps ownership
// of connections it passes in only if it skips Close.
func NewNATSPublisher(conn *nats.Conn, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: conn, logger: logger}
}

// Conn exposes the underlying connection for SSE subscribers.
func (p *NATSPublisher) Conn() *nats.Conn { return p.conn }

func (p *NATSPublisher) Publish(_ context.Context, event ProgressEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := Subject(event.ProjectID, event.Type())
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Debug("progress event published",
		zap.String("subject", subject),
		zap.String("project_id", event.ProjectID))
	return nil
}

func (p *NATSPublisher) Close() {
	p.conn.Close()
}
