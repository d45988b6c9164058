// Package directory holds the reference entities attendance is recorded
// against: students, faculty, departments, courses and classes.
package directory

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an entity id is unknown.
var ErrNotFound = errors.New("entity not found")

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Student struct {
	ID           string `json:"id"`
	RollNo       string `json:"rollNo" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone"`
	DepartmentID string `json:"departmentId" binding:"required"`
	Year         int    `json:"year" binding:"gte=0,lte=6"`
	Semester     int    `json:"semester" binding:"gte=0,lte=12"`
	Batch        string `json:"batch"`
	Status       string `json:"status" binding:"omitempty,oneof=active inactive"`
}

type Faculty struct {
	ID            string `json:"id"`
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	Phone         string `json:"phone"`
	DepartmentID  string `json:"departmentId" binding:"required"`
	Designation   string `json:"designation"`
	Qualification string `json:"qualification"`
	JoiningDate   string `json:"joiningDate" binding:"omitempty,isodate"`
	Status        string `json:"status" binding:"omitempty,oneof=active inactive on-leave"`
}

type Department struct {
	ID   string `json:"id"`
	Name string `json:"name" binding:"required"`
	Code string `json:"code" binding:"required"`
	HOD  string `json:"hod"`
}

type Course struct {
	ID           string `json:"id"`
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	DepartmentID string `json:"departmentId" binding:"required"`
	Semester     int    `json:"semester" binding:"gte=0,lte=12"`
	Credits      int    `json:"credits" binding:"gte=0"`
	FacultyID    string `json:"facultyId"`
}

type Class struct {
	ID            string `json:"id"`
	Name          string `json:"name" binding:"required"`
	DepartmentID  string `json:"departmentId" binding:"required"`
	Year          int    `json:"year"`
	Semester      int    `json:"semester"`
	TotalStudents int    `json:"totalStudents"`
}

// Lookup is the read-only view the aggregation and report code joins
// against for display names and department membership.
type Lookup interface {
	Student(id string) (Student, bool)
	Faculty(id string) (Faculty, bool)
	Department(id string) (Department, bool)
	Course(id string) (Course, bool)
	Class(id string) (Class, bool)
	Students() []Student
	Departments() []Department
}

// Store persists the entities. Save* upserts by ID; Delete* returns
// ErrNotFound for unknown ids.
type Store interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
	SaveStudent(ctx context.Context, s Student) error
	DeleteStudent(ctx context.Context, id string) error
	SaveFaculty(ctx context.Context, f Faculty) error
	DeleteFaculty(ctx context.Context, id string) error
	SaveDepartment(ctx context.Context, d Department) error
	DeleteDepartment(ctx context.Context, id string) error
	SaveCourse(ctx context.Context, c Course) error
	SaveClass(ctx context.Context, c Class) error
}
