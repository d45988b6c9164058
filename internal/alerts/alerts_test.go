package alerts

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collegeattend/internal/aggregate"
	"collegeattend/internal/attendance"
	"collegeattend/internal/directory"
	"collegeattend/internal/queue"
	"collegeattend/internal/settings"
)

func TestMemoryRaiseKeepsOneAlertPerStudent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	created, err := m.Raise(ctx, Alert{StudentID: "S1", Band: aggregate.BandWarning, Percentage: 78})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = m.Raise(ctx, Alert{StudentID: "S1", Band: aggregate.BandWarning, Percentage: 77})
	require.NoError(t, err)
	assert.False(t, created)

	list, err := m.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 77, list[0].Percentage)
	assert.NotEmpty(t, list[0].ID)
	assert.False(t, list[0].CreatedAt.IsZero())

	created, err = m.Raise(ctx, Alert{StudentID: "S1", Band: aggregate.BandLow, Percentage: 60})
	require.NoError(t, err)
	assert.True(t, created)
	list, err = m.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, aggregate.BandLow, list[0].Band)

	require.NoError(t, m.Clear(ctx, "S1"))
	list, err = m.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryReadFlags(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, id := range []string{"S1", "S2", "S3"} {
		_, err := m.Raise(ctx, Alert{StudentID: id, Band: aggregate.BandLow})
		require.NoError(t, err)
	}

	list, err := m.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "S3", list[0].StudentID, "newest first")

	require.NoError(t, m.MarkRead(ctx, list[0].ID))
	unread, err := m.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	assert.ErrorIs(t, m.MarkRead(ctx, "missing"), ErrNotFound)

	require.NoError(t, m.MarkAllRead(ctx))
	unread, err = m.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

type evaluatorFixture struct {
	ledger   *attendance.MemoryLedger
	store    *Memory
	settings *settings.Memory
	ev       *Evaluator
}

func newEvaluatorFixture(t *testing.T) evaluatorFixture {
	t.Helper()
	ctx := context.Background()
	dir := directory.NewMemoryStore()
	require.NoError(t, dir.SaveStudent(ctx, directory.Student{ID: "S1", RollNo: "CS001", Name: "Asha", DepartmentID: "D1", Status: "active"}))

	f := evaluatorFixture{
		ledger:   attendance.NewMemoryLedger(),
		store:    NewMemory(),
		settings: settings.NewMemory(aggregate.DefaultThresholds),
	}
	f.ev = NewEvaluator(f.ledger, f.store, f.settings, dir)
	return f
}

func (f evaluatorFixture) mark(t *testing.T, date, course string, marks ...attendance.Mark) attendance.MarkedEvent {
	t.Helper()
	d, err := civil.ParseDate(date)
	require.NoError(t, err)
	s, created, err := f.ledger.Upsert(context.Background(), attendance.Session{Date: d, CourseID: course, Marks: marks})
	require.NoError(t, err)
	evt := attendance.MarkedEvent{SessionID: s.ID, Date: d, CourseID: course, Created: created}
	for _, m := range marks {
		evt.StudentIDs = append(evt.StudentIDs, m.StudentID)
	}
	return evt
}

func present(id string) attendance.Mark {
	return attendance.Mark{StudentID: id, Status: attendance.StatusPresent}
}

func absent(id string) attendance.Mark {
	return attendance.Mark{StudentID: id, Status: attendance.StatusAbsent}
}

func TestEvaluatorRaisesAndClears(t *testing.T) {
	ctx := context.Background()
	f := newEvaluatorFixture(t)

	require.NoError(t, f.ev.Evaluate(ctx, f.mark(t, "2026-02-23", "C1", present("S1"), absent("S2"))))
	list, err := f.store.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "S2", list[0].StudentID)
	assert.Equal(t, aggregate.BandLow, list[0].Band)
	assert.Equal(t, "S2 attendance is 0%, below the 75% low threshold", list[0].Message)

	// S1 falls to 1/2.
	require.NoError(t, f.ev.Evaluate(ctx, f.mark(t, "2026-02-24", "C1", absent("S1"), present("S2"), present("S2"))))
	list, err = f.store.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	byStudent := map[string]Alert{}
	for _, a := range list {
		byStudent[a.StudentID] = a
	}
	assert.Equal(t, "Asha (CS001) attendance is 50%, below the 75% low threshold", byStudent["S1"].Message)
	assert.Equal(t, 50, byStudent["S2"].Percentage)

	// Four more presents take S1 to 5/6 = 83, back to normal.
	for _, d := range []string{"2026-02-25", "2026-02-26", "2026-02-27", "2026-02-28"} {
		require.NoError(t, f.ev.Evaluate(ctx, f.mark(t, d, "C1", present("S1"))))
	}
	list, err = f.store.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "S2", list[0].StudentID)
}

func TestEvaluatorClearsStudentRemovedFromSession(t *testing.T) {
	ctx := context.Background()
	f := newEvaluatorFixture(t)

	require.NoError(t, f.ev.Evaluate(ctx, f.mark(t, "2026-02-23", "C1", present("S1"), absent("S2"))))
	list, err := f.store.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 1)

	evt := f.mark(t, "2026-02-23", "C1", present("S1"))
	evt.StudentIDs = append(evt.StudentIDs, "S2")
	require.NoError(t, f.ev.Evaluate(ctx, evt))
	list, err = f.store.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEvaluatorWarningBand(t *testing.T) {
	ctx := context.Background()
	f := newEvaluatorFixture(t)
	var evt attendance.MarkedEvent
	// 4 of 5 = 80 is normal; 3 of 4 = 75 is warning.
	for i, d := range []string{"2026-02-23", "2026-02-24", "2026-02-25", "2026-02-26"} {
		m := present("S1")
		if i == 0 {
			m = absent("S1")
		}
		evt = f.mark(t, d, "C1", m)
	}
	require.NoError(t, f.ev.Evaluate(ctx, evt))

	list, err := f.store.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, aggregate.BandWarning, list[0].Band)
	assert.Equal(t, 75, list[0].Percentage)
	assert.Contains(t, list[0].Message, "below the 80% warning threshold")
}

func TestConsumeEvaluatesMarkedEvents(t *testing.T) {
	f := newEvaluatorFixture(t)
	q := queue.NewInMemory(4)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Consume(ctx, q, f.ev) }()

	require.NoError(t, q.Publish(ctx, queue.Message{Type: "something.else"}))
	require.NoError(t, q.Publish(ctx, queue.Message{Type: queue.TypeAttendanceMarked, Body: []byte("{broken")}))
	msg, err := queue.NewMessage(queue.TypeAttendanceMarked, f.mark(t, "2026-02-23", "C1", absent("S1")))
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, msg))

	assert.Eventually(t, func() bool {
		list, err := f.store.List(ctx, false)
		return err == nil && len(list) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestConsumeReevaluatesOnThresholdChange(t *testing.T) {
	f := newEvaluatorFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// S1 at 3 of 4 = 75 is a warning, S2 at 4 of 4 is normal.
	for i, d := range []string{"2026-02-23", "2026-02-24", "2026-02-25", "2026-02-26"} {
		m := present("S1")
		if i == 0 {
			m = absent("S1")
		}
		require.NoError(t, f.ev.Evaluate(ctx, f.mark(t, d, "C1", m, present("S2"))))
	}
	list, err := f.store.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, aggregate.BandWarning, list[0].Band)

	th := aggregate.Thresholds{MinAttendance: 80, WarningThreshold: 100}
	require.NoError(t, f.settings.SaveThresholds(ctx, th))
	q := queue.NewInMemory(4)
	go func() { _ = Consume(ctx, q, f.ev) }()
	msg, err := queue.NewMessage(queue.TypeThresholdsChanged, th)
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, msg))

	assert.Eventually(t, func() bool {
		list, err := f.store.List(ctx, false)
		if err != nil || len(list) != 1 {
			return false
		}
		return list[0].StudentID == "S1" && list[0].Band == aggregate.BandLow
	}, 2*time.Second, 10*time.Millisecond)
}
