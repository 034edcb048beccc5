// Package school holds the canonical school entities, the normalizers that build them
// from heterogeneous wire records and the input forms validated before anything is sent.
package school

import "time"

type StudentStatus string

const (
	StatusActive   StudentStatus = "Active"
	StatusInactive StudentStatus = "Inactive"
)

type ExamType string

const (
	ExamQuiz       ExamType = "quiz"
	ExamAssignment ExamType = "assignment"
	ExamMidterm    ExamType = "midterm"
	ExamFinal      ExamType = "final"
	ExamProject    ExamType = "project"
)

var ExamTypes = []ExamType{ExamQuiz, ExamAssignment, ExamMidterm, ExamFinal, ExamProject}

type AttendanceStatus string

const (
	Present AttendanceStatus = "present"
	Absent  AttendanceStatus = "absent"
	Late    AttendanceStatus = "late"
)

var AttendanceStatuses = []AttendanceStatus{Present, Absent, Late}

type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionLate      SubmissionStatus = "late"
	SubmissionGraded    SubmissionStatus = "graded"
)

var SubmissionStatuses = []SubmissionStatus{SubmissionPending, SubmissionSubmitted, SubmissionLate, SubmissionGraded}

// Canonical entities. Date-only fields are "2006-01-02" strings, "" when unknown.
type (
	Ref struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Student struct {
		ID            string        `json:"id"`
		StudentID     string        `json:"studentId"`
		Name          string        `json:"name"`
		ClassID       string        `json:"classId,omitempty"`
		SectionID     string        `json:"sectionId,omitempty"`
		ParentID      string        `json:"parentId,omitempty"`
		DateOfBirth   string        `json:"dateOfBirth,omitempty"`
		Gender        string        `json:"gender,omitempty"`
		ContactPhone  string        `json:"contactPhone,omitempty"`
		ContactEmail  string        `json:"contactEmail,omitempty"`
		Address       string        `json:"address,omitempty"`
		AdmissionDate string        `json:"admissionDate,omitempty"`
		Status        StudentStatus `json:"status"`
	}

	Section struct {
		ID       string `json:"id"`
		ClassID  string `json:"classId"`
		Name     string `json:"name"`
		Capacity int    `json:"capacity"`
		Active   bool   `json:"active"`
	}

	ClassEntity struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		Description string    `json:"description,omitempty"`
		Active      bool      `json:"active"`
		Sections    []Section `json:"sections"`
	}

	Mark struct {
		ID            string   `json:"id"`
		Student       Ref      `json:"student"`
		Subject       Ref      `json:"subject"`
		Class         Ref      `json:"class"`
		ExamType      ExamType `json:"examType"` // "" when missing or unrecognised
		MarksObtained float64  `json:"marksObtained"`
		TotalMarks    float64  `json:"totalMarks"`
		ExamDate      string   `json:"examDate,omitempty"`
		Remarks       string   `json:"remarks,omitempty"`
	}

	Attendance struct {
		ID        string           `json:"id"`
		StudentID string           `json:"studentId"`
		ClassID   string           `json:"classId"`
		SectionID string           `json:"sectionId"`
		Date      string           `json:"date"`
		Status    AttendanceStatus `json:"status"` // "" when missing or unrecognised
		Remarks   string           `json:"remarks,omitempty"`
		MarkedBy  string           `json:"markedBy"`
	}

	Submission struct {
		ID          string           `json:"id"`
		HomeworkID  string           `json:"homeworkId"`
		StudentID   string           `json:"studentId"`
		Status      SubmissionStatus `json:"status"`
		SubmittedAt time.Time        `json:"submittedAt,omitempty"`
	}

	Homework struct {
		ID           string       `json:"id"`
		Title        string       `json:"title"`
		Description  string       `json:"description,omitempty"`
		ClassID      string       `json:"classId"`
		SectionID    string       `json:"sectionId"`
		SubjectID    string       `json:"subjectId"`
		AssignedDate time.Time    `json:"assignedDate"`
		DueDate      time.Time    `json:"dueDate"`
		Submissions  []Submission `json:"submissions"`
	}

	// Parent references its children, it does not own them.
	Parent struct {
		ID         string `json:"id"`
		FullName   string `json:"full_name"`
		Email      string `json:"email"`
		Phone      string `json:"phone,omitempty"`
		Occupation string `json:"occupation,omitempty"`
		Address    string `json:"address,omitempty"`
		Children   []Ref  `json:"children"`
	}

	Teacher struct {
		ID              string   `json:"id"`
		Name            string   `json:"name"`
		Email           string   `json:"email"`
		Phone           string   `json:"phone,omitempty"`
		Qualification   string   `json:"qualification,omitempty"`
		ExperienceYears int      `json:"experienceYears"`
		Subjects        []string `json:"subjects"`
		Active          bool     `json:"active"`
	}

	Subject struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Code    string `json:"code,omitempty"`
		ClassID string `json:"classId,omitempty"`
		Active  bool   `json:"active"`
	}

	Message struct {
		ID        string    `json:"id"`
		Sender    Ref       `json:"sender"`
		Recipient Ref       `json:"recipient"`
		Subject   string    `json:"subject"`
		Body      string    `json:"body"`
		SentAt    time.Time `json:"sentAt"`
		Read      bool      `json:"read"`
	}
)

func (s Student) Active() bool { return s.Status == StatusActive }

func (t ExamType) Valid() bool {
	for _, et := range ExamTypes {
		if et == t {
			return true
		}
	}
	return false
}

func (s AttendanceStatus) Valid() bool {
	for _, st := range AttendanceStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func (s SubmissionStatus) Valid() bool {
	for _, st := range SubmissionStatuses {
		if st == s {
			return true
		}
	}
	return false
}
