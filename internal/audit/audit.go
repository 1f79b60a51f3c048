package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type EventType string

const (
	EventAccess EventType = "ACCESS"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
	EventLogin  EventType = "LOGIN"
	EventLogout EventType = "LOGOUT"
	EventExport EventType = "EXPORT"
)

type AuditEvent struct {
	Timestamp   time.Time       `json:"timestamp"`
	EventType   EventType       `json:"event_type"`
	UserID      string          `json:"user_id"`
	Action      string          `json:"action"`
	Resource    string          `json:"resource"`
	ResourceID  string          `json:"resource_id"`
	SessionID   string          `json:"session_id"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details,omitempty"`
	Sensitivity string          `json:"sensitivity,omitempty"`
	Message     string          `json:"msg,omitempty"`
}

type Service interface {
	LogEvent(ctx context.Context, event *AuditEvent) error
	QueryEvents(ctx context.Context, filters map[string]interface{}, from, size int) ([]AuditEvent, error)
	Close() error
}

type actorKey struct{}

// WithActor records who is acting for the events logged under ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok {
		return actor
	}
	return "system"
}

type service struct {
	path    string
	file    *os.File
	session string
	logger  *logrus.Logger
}

// NewService appends audit events, one JSON object per line, to the file at
// path. Every event logged by the returned service carries the same session
// id.
func NewService(path string) (Service, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.InfoLevel)
	logger.SetOutput(file)

	return &service{
		path:    path,
		file:    file,
		session: uuid.New().String(),
		logger:  logger,
	}, nil
}

func (s *service) LogEvent(ctx context.Context, event *AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.UserID == "" {
		event.UserID = ActorFrom(ctx)
	}
	event.SessionID = s.session

	fields := logrus.Fields{
		"timestamp":   event.Timestamp.Format(time.RFC3339Nano),
		"event_type":  event.EventType,
		"user_id":     event.UserID,
		"action":      event.Action,
		"resource":    event.Resource,
		"resource_id": event.ResourceID,
		"session_id":  event.SessionID,
		"status":      event.Status,
	}
	if event.Sensitivity != "" {
		fields["sensitivity"] = event.Sensitivity
	}
	if len(event.Details) > 0 {
		fields["details"] = event.Details
	}

	msg := event.Message
	if msg == "" {
		msg = "Audit event logged"
	}

	entry := s.logger.WithFields(fields)
	if event.Status == "failure" {
		entry.Warn(msg)
	} else {
		entry.Info(msg)
	}
	return nil
}

// QueryEvents reads the audit log back, newest first. A filter matches when
// the stored field renders to the same text as the filter value.
func (s *service) QueryEvents(ctx context.Context, filters map[string]interface{}, from, size int) ([]AuditEvent, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	events, err := readEvents(ctx, f, filters)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})

	if from < 0 {
		from = 0
	}
	if from >= len(events) {
		return []AuditEvent{}, nil
	}
	events = events[from:]
	if size > 0 && size < len(events) {
		events = events[:size]
	}
	return events, nil
}

func (s *service) Close() error {
	return s.file.Close()
}

func readEvents(ctx context.Context, r io.Reader, filters map[string]interface{}) ([]AuditEvent, error) {
	var events []AuditEvent

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var raw map[string]interface{}
		if err := json.Unmarshal(line, &raw); err != nil {
			// lines written by something other than this service
			continue
		}
		if !matches(raw, filters) {
			continue
		}

		var event AuditEvent
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	return events, nil
}

func matches(raw map[string]interface{}, filters map[string]interface{}) bool {
	for field, want := range filters {
		got, ok := raw[field]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

type discard struct{}

// Discard returns a Service that drops every event. It stands in when the
// audit log cannot be opened.
func Discard() Service { return discard{} }

func (discard) LogEvent(context.Context, *AuditEvent) error { return nil }

func (discard) QueryEvents(context.Context, map[string]interface{}, int, int) ([]AuditEvent, error) {
	return nil, errors.New("audit log is not available")
}

func (discard) Close() error { return nil }
