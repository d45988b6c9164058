package alerts

import (
	"context"
	"encoding/json"
	"log/slog"

	"collegeattend/internal/attendance"
	"collegeattend/internal/queue"
)

// Consume evaluates every attendance.marked message from q until ctx is
// done, and re-evaluates all students when the thresholds change. Failed
// evaluations are logged and skipped; the next mark for the same students
// re-evaluates them.
func Consume(ctx context.Context, q queue.Queue, ev *Evaluator) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	slog.Info("alerts worker started")
	for msg := range messages {
		if msg.Type == queue.TypeThresholdsChanged {
			if err := ev.EvaluateAll(ctx); err != nil {
				slog.Error("alerts re-evaluation failed", "error", err)
				continue
			}
			slog.Info("alerts re-evaluated after threshold change")
			continue
		}
		if msg.Type != queue.TypeAttendanceMarked {
			slog.Debug("alerts worker skipped message", "type", msg.Type)
			continue
		}
		var evt attendance.MarkedEvent
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			slog.Warn("alerts worker dropped malformed event", "error", err)
			continue
		}
		if err := ev.Evaluate(ctx, evt); err != nil {
			slog.Error("alerts evaluation failed", "session_id", evt.SessionID, "error", err)
			continue
		}
		slog.Debug("alerts evaluated", "session_id", evt.SessionID, "students", len(evt.StudentIDs))
	}
	slog.Info("alerts worker stopped")
	return nil
}
