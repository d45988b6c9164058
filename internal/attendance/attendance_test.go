package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collegeattend/internal/queue"
)

func day(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func strp(s string) *string { return &s }

func TestParseStatus(t *testing.T) {
	for raw, want := range map[string]Status{
		"":        StatusAbsent,
		"present": StatusPresent,
		"absent":  StatusAbsent,
		"late":    StatusLate,
	} {
		got, err := ParseStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseStatus("excused")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestNormalizeMarks(t *testing.T) {
	now := time.Date(2026, 2, 25, 9, 7, 0, 0, time.UTC)
	marks, err := NormalizeMarks([]MarkInput{
		{StudentID: "S1", Status: "present", TimeIn: strp("09:02")},
		{StudentID: "S2", Status: "late"},
		{StudentID: "S3", Status: "absent", TimeIn: strp("09:00")},
		{StudentID: "S4"},
	}, now)
	require.NoError(t, err)
	require.Len(t, marks, 4)

	assert.Equal(t, "09:02", *marks[0].TimeIn)
	assert.Equal(t, StatusLate, marks[1].Status)
	assert.Equal(t, "09:07", *marks[1].TimeIn)
	assert.Equal(t, StatusAbsent, marks[2].Status)
	assert.Nil(t, marks[2].TimeIn)
	assert.Equal(t, StatusAbsent, marks[3].Status)
	assert.Nil(t, marks[3].TimeIn)
}

func TestNormalizeMarksRejectsUnknownStatus(t *testing.T) {
	_, err := NormalizeMarks([]MarkInput{{StudentID: "S1", Status: "sick"}}, time.Now())
	require.ErrorIs(t, err, ErrInvalidStatus)
	assert.Contains(t, err.Error(), "S1")
}

func TestNormalizeMarksRejectsDuplicateStudent(t *testing.T) {
	_, err := NormalizeMarks([]MarkInput{
		{StudentID: "S1", Status: "present"},
		{StudentID: "S2", Status: "present"},
		{StudentID: "S1", Status: "absent"},
	}, time.Now())
	require.ErrorIs(t, err, ErrDuplicateMark)
	assert.Contains(t, err.Error(), "mark 2 (S1)")
}

func TestFilterMatchInclusiveRange(t *testing.T) {
	s := Session{Date: day("2026-02-24"), CourseID: "C1", ClassID: "K1", FacultyID: "F1"}

	assert.True(t, Filter{}.Match(s))
	assert.True(t, Filter{From: day("2026-02-24"), To: day("2026-02-24")}.Match(s))
	assert.False(t, Filter{From: day("2026-02-25")}.Match(s))
	assert.False(t, Filter{To: day("2026-02-23")}.Match(s))
	assert.False(t, Filter{CourseID: "C2"}.Match(s))
	assert.False(t, Filter{ClassID: "K2"}.Match(s))
	assert.True(t, Filter{FacultyID: "F1", CourseID: "C1"}.Match(s))
}

func TestSessionMarkForUsesFirstMark(t *testing.T) {
	s := Session{Marks: []Mark{
		{StudentID: "S1", Status: StatusAbsent},
		{StudentID: "S1", Status: StatusPresent, TimeIn: strp("10:00")},
	}}
	m, ok := s.MarkFor("S1")
	require.True(t, ok)
	assert.Equal(t, StatusAbsent, m.Status)

	_, ok = s.MarkFor("S9")
	assert.False(t, ok)
}

func TestMemoryLedgerUpsertReplacesByKey(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	first, created, err := l.Upsert(ctx, Session{
		Date: day("2026-02-25"), CourseID: "C1", ClassID: "K1", FacultyID: "F1",
		Marks: []Mark{{StudentID: "S1", Status: StatusPresent, TimeIn: strp("09:00")}, {StudentID: "S2", Status: StatusAbsent}},
	})
	require.NoError(t, err)
	assert.True(t, created)
	require.NotEmpty(t, first.ID)

	second, created, err := l.Upsert(ctx, Session{
		Date: day("2026-02-25"), CourseID: "C1", ClassID: "K2", FacultyID: "F2",
		Marks: []Mark{{StudentID: "S3", Status: StatusLate, TimeIn: strp("09:20")}},
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, l.Len())

	got, err := l.Session(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "K2", got.ClassID)
	assert.Equal(t, "F2", got.FacultyID)
	require.Len(t, got.Marks, 1)
	assert.Equal(t, "S3", got.Marks[0].StudentID)

	// The replaced students drop out of the student index.
	old, err := l.StudentSessions(ctx, "S1", Filter{})
	require.NoError(t, err)
	assert.Empty(t, old)
	now, err := l.StudentSessions(ctx, "S3", Filter{})
	require.NoError(t, err)
	assert.Len(t, now, 1)
}

func TestMemoryLedgerReturnsCopies(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	s, _, err := l.Upsert(ctx, Session{Date: day("2026-02-25"), CourseID: "C1",
		Marks: []Mark{{StudentID: "S1", Status: StatusPresent, TimeIn: strp("09:00")}}})
	require.NoError(t, err)

	list, err := l.Sessions(ctx, Filter{})
	require.NoError(t, err)
	list[0].Marks[0].Status = StatusAbsent
	*list[0].Marks[0].TimeIn = "23:59"

	got, err := l.Session(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPresent, got.Marks[0].Status)
	assert.Equal(t, "09:00", *got.Marks[0].TimeIn)
}

func TestMemoryLedgerStudentSessionsFilter(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	for i, d := range []string{"2026-02-23", "2026-02-24", "2026-02-25"} {
		_, _, err := l.Upsert(ctx, Session{Date: day(d), CourseID: fmt.Sprintf("C%d", i),
			Marks: []Mark{{StudentID: "S1", Status: StatusAbsent}}})
		require.NoError(t, err)
	}
	got, err := l.StudentSessions(ctx, "S1", Filter{From: day("2026-02-24")})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "C1", got[0].CourseID)
	assert.Equal(t, "C2", got[1].CourseID)
}

func TestMemoryLedgerSessionNotFound(t *testing.T) {
	_, err := NewMemoryLedger().Session(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeyLockerSerialisesAndCleansUp(t *testing.T) {
	l := newKeyLocker()
	k := Key{Date: day("2026-02-25"), CourseID: "C1"}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock(k)
			mu.Lock()
			inside++
			maxSeen = max(maxSeen, inside)
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, l.size())
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, queue.Message) error {
	return errors.New("broker down")
}

func newTestService(pub Publisher) *Service {
	svc := NewService(NewMemoryLedger(), pub, time.UTC)
	svc.now = func() time.Time { return time.Date(2026, 2, 25, 10, 30, 0, 0, time.UTC) }
	return svc
}

func TestServiceMarkCreatesThenReplaces(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemory(4)
	svc := newTestService(q)

	s1, created, err := svc.Mark(ctx, MarkRequest{
		CourseID: "C1", ClassID: "K1", FacultyID: "F1",
		Marks: []MarkInput{{StudentID: "S1", Status: "present"}, {StudentID: "S2", Status: "absent"}},
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, day("2026-02-25"), s1.Date)
	assert.Equal(t, "10:30", *s1.Marks[0].TimeIn)

	s2, created, err := svc.Mark(ctx, MarkRequest{
		Date: day("2026-02-25"), CourseID: "C1", ClassID: "K1", FacultyID: "F1",
		Marks: []MarkInput{{StudentID: "S1", Status: "late", TimeIn: strp("10:40")}},
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, s1.ID, s2.ID)

	all, err := svc.Ledger().Sessions(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Len(t, all[0].Marks, 1)
	assert.Equal(t, StatusLate, all[0].Marks[0].Status)

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	msg := <-ch
	assert.Equal(t, queue.TypeAttendanceMarked, msg.Type)
	var evt MarkedEvent
	require.NoError(t, json.Unmarshal(msg.Body, &evt))
	assert.Equal(t, s1.ID, evt.SessionID)
	assert.True(t, evt.Created)
	assert.Equal(t, []string{"S1", "S2"}, evt.StudentIDs)

	// S2 was dropped by the re-mark and still needs re-evaluating.
	msg = <-ch
	evt = MarkedEvent{}
	require.NoError(t, json.Unmarshal(msg.Body, &evt))
	assert.False(t, evt.Created)
	assert.Equal(t, []string{"S1", "S2"}, evt.StudentIDs)
}

func TestServiceReplaceAnnouncesRemovedStudents(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemory(4)
	svc := newTestService(q)
	s, _, err := svc.Mark(ctx, MarkRequest{CourseID: "C1", Marks: []MarkInput{
		{StudentID: "S1", Status: "present"}, {StudentID: "S2", Status: "absent"}, {StudentID: "S3", Status: "late"},
	}})
	require.NoError(t, err)

	_, err = svc.Replace(ctx, s.ID, []MarkInput{{StudentID: "S3", Status: "absent"}, {StudentID: "S4", Status: "present"}})
	require.NoError(t, err)

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	<-ch
	msg := <-ch
	var evt MarkedEvent
	require.NoError(t, json.Unmarshal(msg.Body, &evt))
	assert.Equal(t, s.ID, evt.SessionID)
	assert.Equal(t, []string{"S3", "S4", "S1", "S2"}, evt.StudentIDs)
}

func TestServiceMarkValidation(t *testing.T) {
	svc := newTestService(nil)
	_, _, err := svc.Mark(context.Background(), MarkRequest{Marks: []MarkInput{{StudentID: "S1"}}})
	assert.Error(t, err)

	_, _, err = svc.Mark(context.Background(), MarkRequest{CourseID: "C1", Marks: []MarkInput{{StudentID: "S1", Status: "gone"}}})
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Equal(t, 0, svc.Ledger().(*MemoryLedger).Len())
}

func TestServiceMarkSurvivesPublishFailure(t *testing.T) {
	svc := newTestService(failingPublisher{})
	_, created, err := svc.Mark(context.Background(), MarkRequest{CourseID: "C1", Marks: []MarkInput{{StudentID: "S1"}}})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestServiceReplace(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(nil)
	s, _, err := svc.Mark(ctx, MarkRequest{CourseID: "C1", Marks: []MarkInput{{StudentID: "S1", Status: "present"}}})
	require.NoError(t, err)

	got, err := svc.Replace(ctx, s.ID, []MarkInput{{StudentID: "S1", Status: "absent"}, {StudentID: "S2", Status: "present", TimeIn: strp("11:00")}})
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	require.Len(t, got.Marks, 2)
	assert.Nil(t, got.Marks[0].TimeIn)

	_, err = svc.Replace(ctx, "missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceConcurrentMarksKeepOneSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := svc.Mark(ctx, MarkRequest{
				Date: day("2026-02-25"), CourseID: "C1",
				Marks: []MarkInput{{StudentID: fmt.Sprintf("S%d", i), Status: "present"}},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, err := svc.Ledger().Sessions(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Len(t, all[0].Marks, 1)
}
