package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSnapshot(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.SaveDepartment(ctx, Department{ID: "D1", Name: "Computing", Code: "CS"}))
	require.NoError(t, m.SaveStudent(ctx, Student{ID: "S2", Name: "Ben", DepartmentID: "D1", Year: 2, Status: StatusActive}))
	require.NoError(t, m.SaveStudent(ctx, Student{ID: "S1", Name: "Asha", DepartmentID: "D1", Year: 2, Status: StatusActive}))
	require.NoError(t, m.SaveStudent(ctx, Student{ID: "S3", Name: "Cai", DepartmentID: "D1", Year: 2, Status: StatusInactive}))
	require.NoError(t, m.SaveCourse(ctx, Course{ID: "C1", DepartmentID: "D1", Semester: 3, FacultyID: "F1"}))
	require.NoError(t, m.SaveClass(ctx, Class{ID: "K1", DepartmentID: "D1", Year: 2, Semester: 3}))

	before, err := m.Snapshot(ctx)
	require.NoError(t, err)

	require.NoError(t, m.SaveStudent(ctx, Student{ID: "S2", Name: "Benjamin", DepartmentID: "D1", Year: 2, Status: StatusActive}))
	require.NoError(t, m.DeleteStudent(ctx, "S1"))
	assert.ErrorIs(t, m.DeleteStudent(ctx, "S1"), ErrNotFound)

	st, ok := before.Student("S1")
	require.True(t, ok, "snapshots do not see later writes")
	assert.Equal(t, "Asha", st.Name)

	after, err := m.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, after.Students(), 2)
	assert.Equal(t, "Benjamin", after.Students()[0].Name, "updates keep insertion order")
	_, ok = after.Student("S1")
	assert.False(t, ok)

	crs, ok := after.Course("C1")
	require.True(t, ok)
	cls, ok := after.ClassForCourse(crs)
	require.True(t, ok)
	assert.Equal(t, "K1", cls.ID)

	roster := after.Roster(cls)
	require.Len(t, roster, 1)
	assert.Equal(t, "S2", roster[0].ID)
	assert.Len(t, after.StudentsIn("D1"), 2)
	assert.Len(t, after.CoursesTaughtBy("F1"), 1)
}
