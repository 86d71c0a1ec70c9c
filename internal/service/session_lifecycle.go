package service

import (
	"context"
	"fmt"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/internal/pkg/logger"
	"ai-interviewer-be/pkg/events"

	"github.com/google/uuid"
)

// ReportOnCompletion generates the report in-process when a session completes.
func ReportOnCompletion(reports IReportService, log logger.ILogger) TransitionListener {
	return func(ctx context.Context, session *entity.Session, t *entity.SessionTransition) {
		if t.To != entity.SessionStatusCompleted {
			return
		}
		if _, err := reports.Generate(ctx, session.Id); err != nil {
			log.Error("REPORT", "Report generation failed", map[string]interface{}{"session_id": session.Id, "error": err})
		}
	}
}

// ReportEventHandler generates the report from a session.completed bus event.
// A returned error asks the bus to redeliver.
func ReportEventHandler(reports IReportService, log logger.ILogger) func(ctx context.Context, event events.Event) error {
	return func(ctx context.Context, event events.Event) error {
		raw, _ := event.Payload()["sessionId"].(string)
		sessionId, err := uuid.Parse(raw)
		if err != nil {
			log.Warn("REPORT", "Completion event without session id", map[string]interface{}{"event": event.EventType()})
			return nil
		}
		if _, err := reports.Generate(ctx, sessionId); err != nil {
			return fmt.Errorf("generate report for %s: %w", sessionId, err)
		}
		return nil
	}
}

// FlushMetricsOnTerminal stores the latency roll-up once a session ends.
func FlushMetricsOnTerminal(metrics IMetricsService, log logger.ILogger) TransitionListener {
	return func(ctx context.Context, session *entity.Session, t *entity.SessionTransition) {
		if !t.To.IsTerminal() {
			return
		}
		if _, err := metrics.FlushSession(ctx, session); err != nil {
			log.Error("METRICS", "Failed to flush session metrics", map[string]interface{}{"session_id": session.Id, "error": err})
		}
	}
}
