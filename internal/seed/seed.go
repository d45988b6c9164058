// Package seed loads the demo college used for local development.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/civil"

	"collegeattend/internal/attendance"
	"collegeattend/internal/auth"
	"collegeattend/internal/directory"
)

var departments = []directory.Department{
	{ID: "DEP001", Name: "Computer Science", Code: "CSE", HOD: "Dr. John Smith"},
	{ID: "DEP002", Name: "Electronics", Code: "ECE", HOD: "Prof. Sarah Johnson"},
	{ID: "DEP003", Name: "Mechanical", Code: "MECH", HOD: "Dr. Michael Brown"},
	{ID: "DEP004", Name: "Civil", Code: "CIVIL", HOD: "Prof. Emily Davis"},
	{ID: "DEP005", Name: "Mathematics", Code: "MATH", HOD: "Prof. Lisa Chen"},
	{ID: "DEP006", Name: "Physics", Code: "PHY", HOD: "Dr. James Taylor"},
}

var faculty = []directory.Faculty{
	{ID: "FAC001", Name: "Dr. John Smith", Email: "john.smith@abcce.edu", Phone: "+1 234 567 8901", DepartmentID: "DEP001", Designation: "Professor", Qualification: "Ph.D. in Computer Science", JoiningDate: "2020-01-15", Status: "active"},
	{ID: "FAC002", Name: "Prof. Sarah Johnson", Email: "sarah.j@abcce.edu", Phone: "+1 234 567 8902", DepartmentID: "DEP002", Designation: "Associate Professor", Qualification: "M.Tech in Electronics", JoiningDate: "2019-06-20", Status: "active"},
	{ID: "FAC003", Name: "Dr. Michael Brown", Email: "michael.b@abcce.edu", Phone: "+1 234 567 8903", DepartmentID: "DEP003", Designation: "Assistant Professor", Qualification: "Ph.D. in Mechanical Engineering", JoiningDate: "2021-03-10", Status: "on-leave"},
	{ID: "FAC004", Name: "Prof. Emily Davis", Email: "emily.d@abcce.edu", Phone: "+1 234 567 8904", DepartmentID: "DEP004", Designation: "Professor", Qualification: "Ph.D. in Civil Engineering", JoiningDate: "2018-08-01", Status: "active"},
	{ID: "FAC005", Name: "Dr. Robert Wilson", Email: "robert.w@abcce.edu", Phone: "+1 234 567 8905", DepartmentID: "DEP001", Designation: "Associate Professor", Qualification: "Ph.D. in Computer Networks", JoiningDate: "2017-07-15", Status: "active"},
}

var students = []directory.Student{
	{ID: "STU001", RollNo: "CSE001", Name: "John Doe", Email: "john.doe@abcce.edu", Phone: "+1 234 567 1001", DepartmentID: "DEP001", Year: 2, Semester: 3, Batch: "2024-2028", Status: "active"},
	{ID: "STU002", RollNo: "CSE002", Name: "Jane Smith", Email: "jane.smith@abcce.edu", Phone: "+1 234 567 1002", DepartmentID: "DEP001", Year: 2, Semester: 3, Batch: "2024-2028", Status: "active"},
	{ID: "STU003", RollNo: "CSE003", Name: "Mike Johnson", Email: "mike.j@abcce.edu", Phone: "+1 234 567 1003", DepartmentID: "DEP001", Year: 1, Semester: 1, Batch: "2025-2029", Status: "active"},
	{ID: "STU004", RollNo: "CSE004", Name: "Sarah Wilson", Email: "sarah.w@abcce.edu", Phone: "+1 234 567 1004", DepartmentID: "DEP001", Year: 3, Semester: 5, Batch: "2023-2027", Status: "active"},
	{ID: "STU005", RollNo: "CSE005", Name: "David Brown", Email: "david.b@abcce.edu", Phone: "+1 234 567 1005", DepartmentID: "DEP001", Year: 2, Semester: 3, Batch: "2024-2028", Status: "inactive"},
	{ID: "STU006", RollNo: "ECE001", Name: "Emily Davis", Email: "emily.d@abcce.edu", Phone: "+1 234 567 1006", DepartmentID: "DEP002", Year: 2, Semester: 3, Batch: "2024-2028", Status: "active"},
	{ID: "STU007", RollNo: "ECE002", Name: "Chris Lee", Email: "chris.l@abcce.edu", Phone: "+1 234 567 1007", DepartmentID: "DEP002", Year: 3, Semester: 5, Batch: "2023-2027", Status: "active"},
	{ID: "STU008", RollNo: "MECH001", Name: "Anna Taylor", Email: "anna.t@abcce.edu", Phone: "+1 234 567 1008", DepartmentID: "DEP003", Year: 1, Semester: 1, Batch: "2025-2029", Status: "active"},
	{ID: "STU009", RollNo: "MECH002", Name: "Robert Martin", Email: "robert.m@abcce.edu", Phone: "+1 234 567 1009", DepartmentID: "DEP003", Year: 4, Semester: 7, Batch: "2022-2026", Status: "active"},
	{ID: "STU010", RollNo: "CIVIL001", Name: "Lisa Anderson", Email: "lisa.a@abcce.edu", Phone: "+1 234 567 1010", DepartmentID: "DEP004", Year: 2, Semester: 3, Batch: "2024-2028", Status: "active"},
}

var courses = []directory.Course{
	{ID: "CRS001", Code: "CS201", Name: "Data Structures", DepartmentID: "DEP001", Semester: 3, Credits: 4, FacultyID: "FAC001"},
	{ID: "CRS002", Code: "CS101", Name: "Programming Fundamentals", DepartmentID: "DEP001", Semester: 1, Credits: 4, FacultyID: "FAC001"},
	{ID: "CRS003", Code: "CS301", Name: "Database Management", DepartmentID: "DEP001", Semester: 5, Credits: 4, FacultyID: "FAC001"},
	{ID: "CRS004", Code: "CS202", Name: "Algorithms", DepartmentID: "DEP001", Semester: 3, Credits: 3, FacultyID: "FAC001"},
	{ID: "CRS005", Code: "EC201", Name: "Digital Electronics", DepartmentID: "DEP002", Semester: 3, Credits: 4, FacultyID: "FAC002"},
	{ID: "CRS006", Code: "EC301", Name: "Signal Processing", DepartmentID: "DEP002", Semester: 5, Credits: 3, FacultyID: "FAC002"},
	{ID: "CRS007", Code: "ME201", Name: "Thermodynamics", DepartmentID: "DEP003", Semester: 3, Credits: 4, FacultyID: "FAC003"},
	{ID: "CRS008", Code: "ME301", Name: "Fluid Mechanics", DepartmentID: "DEP003", Semester: 5, Credits: 4, FacultyID: "FAC003"},
	{ID: "CRS009", Code: "CE201", Name: "Structural Analysis", DepartmentID: "DEP004", Semester: 3, Credits: 4, FacultyID: "FAC004"},
	{ID: "CRS010", Code: "CS401", Name: "Cloud Computing", DepartmentID: "DEP001", Semester: 7, Credits: 3, FacultyID: "FAC005"},
}

var classes = []directory.Class{
	{ID: "CLS001", Name: "CSE - 1st Year", DepartmentID: "DEP001", Year: 1, Semester: 1, TotalStudents: 42},
	{ID: "CLS002", Name: "CSE - 2nd Year", DepartmentID: "DEP001", Year: 2, Semester: 3, TotalStudents: 35},
	{ID: "CLS003", Name: "CSE - 3rd Year", DepartmentID: "DEP001", Year: 3, Semester: 5, TotalStudents: 28},
	{ID: "CLS004", Name: "CSE - 4th Year", DepartmentID: "DEP001", Year: 4, Semester: 7, TotalStudents: 30},
	{ID: "CLS005", Name: "ECE - 2nd Year", DepartmentID: "DEP002", Year: 2, Semester: 3, TotalStudents: 38},
	{ID: "CLS006", Name: "ECE - 3rd Year", DepartmentID: "DEP002", Year: 3, Semester: 5, TotalStudents: 32},
	{ID: "CLS007", Name: "MECH - 1st Year", DepartmentID: "DEP003", Year: 1, Semester: 1, TotalStudents: 45},
	{ID: "CLS008", Name: "CIVIL - 2nd Year", DepartmentID: "DEP004", Year: 2, Semester: 3, TotalStudents: 36},
}

type demoUser struct {
	auth.User
	password string
}

var users = []demoUser{
	{User: auth.User{ID: "USR001", Username: "admin", Email: "admin@abcce.edu", Role: auth.RoleAdmin, Name: "System Administrator", Status: "active"}, password: "admin123"},
	{User: auth.User{ID: "USR002", Username: "john.smith", Email: "john.smith@abcce.edu", Role: auth.RoleFaculty, FacultyID: "FAC001", Name: "Dr. John Smith", Status: "active"}, password: "faculty123"},
	{User: auth.User{ID: "USR003", Username: "sarah.j", Email: "sarah.j@abcce.edu", Role: auth.RoleFaculty, FacultyID: "FAC002", Name: "Prof. Sarah Johnson", Status: "active"}, password: "faculty123"},
}

func present(id, at string) attendance.Mark {
	return attendance.Mark{StudentID: id, Status: attendance.StatusPresent, TimeIn: &at}
}

// Sessions returns the demo attendance sessions.
func Sessions() []attendance.Session {
	late := "16:15"
	return []attendance.Session{
		{ID: "ATT001", Date: civil.Date{Year: 2026, Month: 2, Day: 25}, CourseID: "CRS001", ClassID: "CLS002", FacultyID: "FAC001", Marks: []attendance.Mark{
			present("STU001", "09:02"),
			present("STU002", "09:05"),
			{StudentID: "STU005", Status: attendance.StatusAbsent},
		}},
		{ID: "ATT002", Date: civil.Date{Year: 2026, Month: 2, Day: 25}, CourseID: "CRS002", ClassID: "CLS001", FacultyID: "FAC001", Marks: []attendance.Mark{
			present("STU003", "11:00"),
		}},
		{ID: "ATT003", Date: civil.Date{Year: 2026, Month: 2, Day: 24}, CourseID: "CRS003", ClassID: "CLS003", FacultyID: "FAC001", Marks: []attendance.Mark{
			present("STU004", "14:03"),
		}},
		{ID: "ATT004", Date: civil.Date{Year: 2026, Month: 2, Day: 24}, CourseID: "CRS004", ClassID: "CLS002", FacultyID: "FAC001", Marks: []attendance.Mark{
			{StudentID: "STU001", Status: attendance.StatusLate, TimeIn: &late},
			present("STU002", "16:00"),
		}},
		{ID: "ATT005", Date: civil.Date{Year: 2026, Month: 2, Day: 23}, CourseID: "CRS005", ClassID: "CLS005", FacultyID: "FAC002", Marks: []attendance.Mark{
			present("STU006", "10:00"),
		}},
	}
}

// Load writes the demo dataset. Re-running it overwrites the same records.
func Load(ctx context.Context, dir directory.Store, ledger attendance.Ledger, accounts auth.UserStore) error {
	for _, d := range departments {
		if err := dir.SaveDepartment(ctx, d); err != nil {
			return fmt.Errorf("seed department %s: %w", d.ID, err)
		}
	}
	for _, f := range faculty {
		if err := dir.SaveFaculty(ctx, f); err != nil {
			return fmt.Errorf("seed faculty %s: %w", f.ID, err)
		}
	}
	for _, s := range students {
		if err := dir.SaveStudent(ctx, s); err != nil {
			return fmt.Errorf("seed student %s: %w", s.ID, err)
		}
	}
	for _, c := range courses {
		if err := dir.SaveCourse(ctx, c); err != nil {
			return fmt.Errorf("seed course %s: %w", c.ID, err)
		}
	}
	for _, c := range classes {
		if err := dir.SaveClass(ctx, c); err != nil {
			return fmt.Errorf("seed class %s: %w", c.ID, err)
		}
	}
	for _, u := range users {
		hash, err := auth.HashPassword(u.password)
		if err != nil {
			return err
		}
		u.User.PasswordHash = hash
		if err := accounts.SaveUser(ctx, u.User); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
	}
	for _, s := range Sessions() {
		if _, _, err := ledger.Upsert(ctx, s); err != nil {
			return fmt.Errorf("seed session %s: %w", s.ID, err)
		}
	}
	slog.Info("demo data loaded", "students", len(students), "sessions", len(Sessions()))
	return nil
}
