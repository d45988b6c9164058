package alerts

import (
	"context"
	"fmt"
	"log/slog"

	"collegeattend/internal/aggregate"
	"collegeattend/internal/attendance"
	"collegeattend/internal/directory"
	"collegeattend/internal/metrics"
	"collegeattend/internal/settings"
)

// Evaluator re-classifies students after their attendance changes.
type Evaluator struct {
	ledger   attendance.Ledger
	store    Store
	settings settings.Store
	dir      directory.Store
}

func NewEvaluator(ledger attendance.Ledger, store Store, st settings.Store, dir directory.Store) *Evaluator {
	return &Evaluator{ledger: ledger, store: store, settings: st, dir: dir}
}

// Evaluate recomputes the overall attendance of every student in evt and
// raises or clears their alerts.
func (e *Evaluator) Evaluate(ctx context.Context, evt attendance.MarkedEvent) error {
	th, err := e.settings.Thresholds(ctx)
	if err != nil {
		return fmt.Errorf("load thresholds: %w", err)
	}
	var lookup directory.Lookup
	if e.dir != nil {
		if snap, err := e.dir.Snapshot(ctx); err == nil {
			lookup = snap
		} else {
			slog.Warn("alerts: directory unavailable", "error", err)
		}
	}

	seen := make(map[string]struct{}, len(evt.StudentIDs))
	for _, id := range evt.StudentIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if err := e.student(ctx, id, th, lookup); err != nil {
			return fmt.Errorf("student %s: %w", id, err)
		}
	}
	return nil
}

// EvaluateAll re-classifies every student with recorded attendance or an
// open alert, as needed after the thresholds change.
func (e *Evaluator) EvaluateAll(ctx context.Context) error {
	sessions, err := e.ledger.Sessions(ctx, attendance.Filter{})
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	open, err := e.store.List(ctx, false)
	if err != nil {
		return fmt.Errorf("load alerts: %w", err)
	}
	var evt attendance.MarkedEvent
	for _, t := range aggregate.Tallies(sessions) {
		evt.StudentIDs = append(evt.StudentIDs, t.StudentID)
	}
	for _, a := range open {
		evt.StudentIDs = append(evt.StudentIDs, a.StudentID)
	}
	return e.Evaluate(ctx, evt)
}

func (e *Evaluator) student(ctx context.Context, id string, th aggregate.Thresholds, lookup directory.Lookup) error {
	sessions, err := e.ledger.StudentSessions(ctx, id, attendance.Filter{})
	if err != nil {
		return err
	}
	sa := aggregate.Student(id, sessions, attendance.Filter{})
	// A student with no recorded classes left has nothing to flag.
	if sa.Total == 0 {
		return e.store.Clear(ctx, id)
	}
	band := aggregate.Classify(sa.Percentage, th)
	if band == aggregate.BandNormal {
		return e.store.Clear(ctx, id)
	}

	name := id
	if lookup != nil {
		if st, ok := lookup.Student(id); ok {
			name = fmt.Sprintf("%s (%s)", st.Name, st.RollNo)
		}
	}
	limit := th.MinAttendance
	if band == aggregate.BandWarning {
		limit = th.WarningThreshold
	}
	created, err := e.store.Raise(ctx, Alert{
		StudentID:  id,
		Band:       band,
		Percentage: sa.Percentage,
		Attended:   sa.Attended,
		Total:      sa.Total,
		Message:    fmt.Sprintf("%s attendance is %d%%, below the %d%% %s threshold", name, sa.Percentage, limit, band),
	})
	if err != nil {
		return err
	}
	if created {
		metrics.AlertsRaised.WithLabelValues(string(band)).Inc()
		slog.Info("attendance alert raised", "student_id", id, "band", band, "percentage", sa.Percentage)
	}
	return nil
}
