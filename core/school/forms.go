package school

import (
	"github.com/go-playground/validator/v10"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
)

// Input forms. They are validated before anything is sent to the backend,
// and again by the backend before anything is stored.
type (
	NewStudent struct {
		StudentID     string `json:"student_id" validate:"required,notblank,max=32"`
		Name          string `json:"name" validate:"required,notblank,max=100"`
		ClassID       string `json:"class_id,omitempty"`
		SectionID     string `json:"section_id,omitempty"`
		ParentID      string `json:"parent_id,omitempty"`
		DateOfBirth   string `json:"date_of_birth,omitempty" validate:"omitempty,isodate"`
		Gender        string `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
		ContactPhone  string `json:"contact_phone,omitempty" validate:"max=32"`
		ContactEmail  string `json:"contact_email,omitempty" validate:"omitempty,email"`
		Address       string `json:"address,omitempty" validate:"max=255"`
		AdmissionDate string `json:"admission_date,omitempty" validate:"omitempty,isodate"`
		IsActive      bool   `json:"is_active"`
	}

	NewSection struct {
		// ID names an existing section of the class on update.
		ID       string `json:"id,omitempty" validate:"max=64"`
		Name     string `json:"name" validate:"required,notblank,max=32"`
		Capacity int    `json:"capacity" validate:"gte=0"`
	}

	NewClass struct {
		Name        string       `json:"name" validate:"required,notblank,max=100"`
		Description string       `json:"description,omitempty" validate:"max=255"`
		IsActive    bool         `json:"is_active"`
		Sections    []NewSection `json:"sections" validate:"dive"`
	}

	NewParent struct {
		FullName   string   `json:"full_name" validate:"required,notblank,max=100"`
		Email      string   `json:"email" validate:"required,email"`
		Phone      string   `json:"phone,omitempty" validate:"max=32"`
		Occupation string   `json:"occupation,omitempty" validate:"max=100"`
		Address    string   `json:"address,omitempty" validate:"max=255"`
		Children   []string `json:"children" validate:"dive,notblank"`
	}

	NewTeacher struct {
		Name            string   `json:"name" validate:"required,notblank,max=100"`
		Email           string   `json:"email" validate:"required,email"`
		Phone           string   `json:"phone,omitempty" validate:"max=32"`
		Qualification   string   `json:"qualification,omitempty" validate:"max=100"`
		ExperienceYears int      `json:"experience_years" validate:"gte=0,lte=60"`
		Subjects        []string `json:"subjects" validate:"dive,notblank"`
		IsActive        bool     `json:"is_active"`
	}

	NewSubject struct {
		Name     string `json:"name" validate:"required,notblank,max=100"`
		Code     string `json:"code,omitempty" validate:"omitempty,alphanum_,max=16"`
		ClassID  string `json:"class_id,omitempty"`
		IsActive bool   `json:"is_active"`
	}

	// NewMark is a mark entry; marks obtained may not exceed the total.
	NewMark struct {
		StudentID     string   `json:"student_id" validate:"required,notblank"`
		SubjectID     string   `json:"subject_id" validate:"required,notblank"`
		ClassID       string   `json:"class_id" validate:"required,notblank"`
		ExamType      ExamType `json:"exam_type" validate:"required,examtype"`
		MarksObtained float64  `json:"marks_obtained" validate:"gte=0,ltefield=TotalMarks"`
		TotalMarks    float64  `json:"total_marks" validate:"gt=0"`
		ExamDate      string   `json:"exam_date,omitempty" validate:"omitempty,isodate"`
		Remarks       string   `json:"remarks,omitempty" validate:"max=255"`
	}

	NewAttendance struct {
		StudentID string           `json:"student_id" validate:"required,notblank"`
		ClassID   string           `json:"class_id" validate:"required,notblank"`
		SectionID string           `json:"section_id" validate:"required,notblank"`
		Date      string           `json:"date" validate:"required,isodate"`
		Status    AttendanceStatus `json:"status" validate:"required,attstatus"`
		Remarks   string           `json:"remarks,omitempty" validate:"max=255"`
	}

	NewHomework struct {
		Title       string `json:"title" validate:"required,notblank,max=200"`
		Description string `json:"description,omitempty"`
		ClassID     string `json:"class_id" validate:"required,notblank"`
		SectionID   string `json:"section_id" validate:"required,notblank"`
		SubjectID   string `json:"subject_id" validate:"required,notblank"`
		DueDate     string `json:"due_date" validate:"required,isodate"`
	}

	NewMessage struct {
		RecipientID string `json:"recipient_id" validate:"required,notblank"`
		Subject     string `json:"subject" validate:"required,notblank,max=200"`
		Body        string `json:"body" validate:"required,notblank"`
	}
)

func (f *NewStudent) Validate(validate *validator.Validate) error {
	f.StudentID = core.CleanString(f.StudentID)
	f.Name = core.CleanString(f.Name)
	f.Gender = core.CleanString(f.Gender, true /* lower */)
	f.ContactEmail = core.CleanString(f.ContactEmail, true /* lower */)
	return validate.Struct(f)
}

func (f *NewClass) Validate(validate *validator.Validate) error {
	f.Name = core.CleanString(f.Name)
	for i := range f.Sections {
		f.Sections[i].Name = core.CleanString(f.Sections[i].Name)
	}
	return validate.Struct(f)
}

func (f *NewParent) Validate(validate *validator.Validate) error {
	f.FullName = core.CleanString(f.FullName)
	f.Email = core.CleanString(f.Email, true /* lower */)
	if f.Children == nil {
		f.Children = []string{}
	}
	return validate.Struct(f)
}

func (f *NewTeacher) Validate(validate *validator.Validate) error {
	f.Name = core.CleanString(f.Name)
	f.Email = core.CleanString(f.Email, true /* lower */)
	if f.Subjects == nil {
		f.Subjects = []string{}
	}
	return validate.Struct(f)
}

func (f *NewSubject) Validate(validate *validator.Validate) error {
	f.Name = core.CleanString(f.Name)
	f.Code = core.CleanString(f.Code)
	return validate.Struct(f)
}

func (f *NewMark) Validate(validate *validator.Validate) error {
	f.ExamType = ExamType(core.CleanString(string(f.ExamType), true /* lower */))
	f.ExamDate = core.CleanString(f.ExamDate)
	return validate.Struct(f)
}

func (f *NewAttendance) Validate(validate *validator.Validate) error {
	f.Status = AttendanceStatus(core.CleanString(string(f.Status), true /* lower */))
	f.Date = core.CleanString(f.Date)
	return validate.Struct(f)
}

func (f *NewHomework) Validate(validate *validator.Validate) error {
	f.Title = core.CleanString(f.Title)
	f.DueDate = core.CleanString(f.DueDate)
	return validate.Struct(f)
}

func (f *NewMessage) Validate(validate *validator.Validate) error {
	f.Subject = core.CleanString(f.Subject)
	f.Body = core.CleanString(f.Body)
	return validate.Struct(f)
}
