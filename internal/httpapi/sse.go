package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nats-io/nats.go"

	"github.com/fyrsmithlabs/roadmapd/internal/events"
)

// sseSubscriber is the slice of a NATS connection the SSE handler needs.
type sseSubscriber interface {
	ChanSubscribe(subject string, ch chan *nats.Msg) (*nats.Subscription, error)
}

// handleSSE streams progress events for one project via Server-Sent Events.
//
// The handler subscribes to the project's NATS subject tree and forwards
// each event with its type as the SSE event name:
//
//	event: substep_completed
//	data: {"project_id":"...","new_position":{...},...}
//
// The stream stays open until the project completes or the client
// disconnects. A heartbeat comment goes out every 30s to keep proxies from
// reaping idle connections.
func (s *Server) handleSSE(c echo.Context) error {
	if s.sseConn == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "event streaming is disabled")
	}

	projectID := c.Param("id")
	if _, err := s.projects.Get(c.Request().Context(), projectID); err != nil {
		return httpError(err)
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no") // disable nginx buffering
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	msgChan := make(chan *nats.Msg, 16)
	sub, err := s.sseConn.ChanSubscribe(events.SubscribeSubject(projectID), msgChan)
	if err != nil {
		return err
	}
	defer func() {
		_ = sub.Unsubscribe()
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg := <-msgChan:
			// projects.<id>.progress.<type>
			parts := strings.Split(msg.Subject, ".")
			if len(parts) < 4 {
				continue
			}
			eventType := parts[3]

			fmt.Fprintf(c.Response(), "event: %s\n", eventType)
			fmt.Fprintf(c.Response(), "data: %s\n\n", string(msg.Data))
			c.Response().Flush()

			if eventType == "project_completed" {
				return nil
			}

		case <-ticker.C:
			fmt.Fprintf(c.Response(), ": heartbeat\n\n")
			c.Response().Flush()

		case <-c.Request().Context().Done():
			return nil
		}
	}
}
