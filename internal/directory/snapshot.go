package directory

// Snapshot is an immutable, indexed copy of every entity table. It
// implements Lookup.
type Snapshot struct {
	students    []Student
	faculty     []Faculty
	departments []Department
	courses     []Course
	classes     []Class

	studentIdx    map[string]int
	facultyIdx    map[string]int
	departmentIdx map[string]int
	courseIdx     map[string]int
	classIdx      map[string]int
}

// NewSnapshot indexes the given tables. Slices are retained, not copied.
func NewSnapshot(students []Student, faculty []Faculty, departments []Department, courses []Course, classes []Class) *Snapshot {
	s := &Snapshot{
		students:    students,
		faculty:     faculty,
		departments: departments,
		courses:     courses,
		classes:     classes,
	}
	s.studentIdx = index(students, func(v Student) string { return v.ID })
	s.facultyIdx = index(faculty, func(v Faculty) string { return v.ID })
	s.departmentIdx = index(departments, func(v Department) string { return v.ID })
	s.courseIdx = index(courses, func(v Course) string { return v.ID })
	s.classIdx = index(classes, func(v Class) string { return v.ID })
	return s
}

func index[T any](rows []T, id func(T) string) map[string]int {
	m := make(map[string]int, len(rows))
	for i, r := range rows {
		m[id(r)] = i
	}
	return m
}

func lookup[T any](rows []T, idx map[string]int, id string) (T, bool) {
	i, ok := idx[id]
	if !ok {
		var zero T
		return zero, false
	}
	return rows[i], true
}

func (s *Snapshot) Student(id string) (Student, bool) {
	return lookup(s.students, s.studentIdx, id)
}

func (s *Snapshot) Faculty(id string) (Faculty, bool) {
	return lookup(s.faculty, s.facultyIdx, id)
}

func (s *Snapshot) Department(id string) (Department, bool) {
	return lookup(s.departments, s.departmentIdx, id)
}

func (s *Snapshot) Course(id string) (Course, bool) {
	return lookup(s.courses, s.courseIdx, id)
}

func (s *Snapshot) Class(id string) (Class, bool) {
	return lookup(s.classes, s.classIdx, id)
}

func (s *Snapshot) Students() []Student       { return s.students }
func (s *Snapshot) AllFaculty() []Faculty     { return s.faculty }
func (s *Snapshot) Departments() []Department { return s.departments }
func (s *Snapshot) Courses() []Course         { return s.courses }
func (s *Snapshot) Classes() []Class          { return s.classes }

// CoursesTaughtBy returns the courses assigned to a faculty member.
func (s *Snapshot) CoursesTaughtBy(facultyID string) []Course {
	var out []Course
	for _, c := range s.courses {
		if c.FacultyID == facultyID {
			out = append(out, c)
		}
	}
	return out
}

// ClassForCourse finds the class of the course's department running in the
// course's semester.
func (s *Snapshot) ClassForCourse(c Course) (Class, bool) {
	for _, cls := range s.classes {
		if cls.DepartmentID == c.DepartmentID && cls.Semester == c.Semester {
			return cls, true
		}
	}
	return Class{}, false
}

// Roster returns the active students of the class's department and year.
func (s *Snapshot) Roster(cls Class) []Student {
	var out []Student
	for _, st := range s.students {
		if st.DepartmentID == cls.DepartmentID && st.Year == cls.Year && st.Status == StatusActive {
			out = append(out, st)
		}
	}
	return out
}

// StudentsIn returns every student whose department matches.
func (s *Snapshot) StudentsIn(departmentID string) []Student {
	var out []Student
	for _, st := range s.students {
		if st.DepartmentID == departmentID {
			out = append(out, st)
		}
	}
	return out
}
