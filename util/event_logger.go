package util

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/ariebrainware/physio-pain-assessment/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventType classifies assessment and endpoint events.
type EventType string

const (
	EventSessionStarted     EventType = "SESSION_STARTED"
	EventSessionCompleted   EventType = "SESSION_COMPLETED"
	EventSessionDeleted     EventType = "SESSION_DELETED"
	EventAnalysisRequested  EventType = "ANALYSIS_REQUESTED"
	EventAnalysisFailed     EventType = "ANALYSIS_FAILED"
	EventTestsGenerated     EventType = "TESTS_GENERATED"
	EventFollowUpAsked      EventType = "FOLLOW_UP_ASKED"
	EventRateLimitExceeded  EventType = "RATE_LIMIT_EXCEEDED"
	EventRateLimitUnchecked EventType = "RATE_LIMIT_UNCHECKED"
	EventEndpointCall       EventType = "ENDPOINT_CALL"
)

// Event is one loggable occurrence.
type Event struct {
	EventType EventType
	SessionID string
	IP        string
	UserAgent string
	Message   string
	Details   map[string]interface{}
}

var (
	eventMu  sync.RWMutex
	eventLog = zap.NewNop()
	eventDB  *gorm.DB
)

// SetEventLogger sets the zap logger events are written to.
func SetEventLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	eventMu.Lock()
	eventLog = l.Named("event")
	eventMu.Unlock()
}

// SetEventLoggerDB sets a gorm DB instance used to persist events.
// Call this during application startup after DB initialization.
func SetEventLoggerDB(db *gorm.DB) {
	eventMu.Lock()
	eventDB = db
	eventMu.Unlock()
}

func eventLogger() *zap.Logger {
	eventMu.RLock()
	defer eventMu.RUnlock()
	return eventLog
}

func eventStore() *gorm.DB {
	eventMu.RLock()
	defer eventMu.RUnlock()
	return eventDB
}

// sanitizeLogValue removes newlines and other characters that could break log parsing
func sanitizeLogValue(value string) string {
	value = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(value)
	// Truncate very long values to prevent log flooding
	if len(value) > 200 {
		value = value[:200] + "..."
	}
	return value
}

// LogEvent writes an event to the logger and, when a DB is configured, to the event_logs table.
// Persistence is best effort.
func LogEvent(event Event) {
	fields := []zap.Field{
		zap.String("event", string(event.EventType)),
		zap.String("ip", sanitizeLogValue(event.IP)),
	}
	if event.SessionID != "" {
		fields = append(fields, zap.String("session_id", sanitizeLogValue(event.SessionID)))
	}
	if event.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", sanitizeLogValue(event.UserAgent)))
	}
	if len(event.Details) > 0 {
		fields = append(fields, zap.Int("details_count", len(event.Details)))
	}
	eventLogger().Info(sanitizeLogValue(event.Message), fields...)

	db := eventStore()
	if db == nil {
		return
	}
	var details datatypes.JSON
	if event.Details != nil {
		if b, err := json.Marshal(event.Details); err == nil {
			details = datatypes.JSON(b)
		}
	}
	entry := model.EventLog{
		EventType: string(event.EventType),
		SessionID: sanitizeLogValue(event.SessionID),
		IP:        sanitizeLogValue(event.IP),
		Location:  sanitizeLogValue(GetIPLocation(event.IP).String()),
		UserAgent: sanitizeLogValue(event.UserAgent),
		Message:   sanitizeLogValue(event.Message),
		Details:   details,
	}
	if err := db.Create(&entry).Error; err != nil {
		eventLogger().Warn("failed to persist event", zap.Error(err))
	}
}

// RequestMeta identifies the client behind an event.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// LogSessionEvent logs a session lifecycle event.
func LogSessionEvent(eventType EventType, sessionID string, meta RequestMeta, message string) {
	LogEvent(Event{
		EventType: eventType,
		SessionID: sessionID,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Message:   message,
	})
}

// AIRequestParams describes one call to an AI operation.
type AIRequestParams struct {
	Operation string
	SessionID string
	Markers   int
	Images    int
	Err       error
	Meta      RequestMeta
}

// LogAIRequest logs the outcome of an AI operation. Failed calls are logged as EventAnalysisFailed.
func LogAIRequest(eventType EventType, p AIRequestParams) {
	details := map[string]interface{}{
		"operation": p.Operation,
		"markers":   p.Markers,
		"images":    p.Images,
	}
	msg := p.Operation + " succeeded"
	if p.Err != nil {
		eventType = EventAnalysisFailed
		details["error"] = p.Err.Error()
		msg = p.Operation + " failed"
	}
	LogEvent(Event{
		EventType: eventType,
		SessionID: p.SessionID,
		IP:        p.Meta.IP,
		UserAgent: p.Meta.UserAgent,
		Message:   msg,
		Details:   details,
	})
}

// LogRateLimitExceeded logs when rate limit is exceeded
func LogRateLimitExceeded(ip, endpoint string) {
	LogEvent(Event{
		EventType: EventRateLimitExceeded,
		IP:        ip,
		Message:   "Rate limit exceeded for endpoint: " + endpoint,
	})
}
