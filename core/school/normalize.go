package school

import (
	"fmt"
	"strings"
)

// Field aliases in priority order, canonical name first.
var (
	idKeys     = []string{"id", "_id", "pk"}
	activeKeys = []string{"active", "is_active", "isActive", "status"}

	studentKeys = struct {
		studentID, name, firstName, lastName, classID, sectionID, parentID,
		dateOfBirth, gender, phone, email, address, admissionDate []string
	}{
		studentID:     []string{"studentId", "student_id", "admission_no", "admissionNumber", "roll_no"},
		name:          []string{"name", "studentName", "student_name", "full_name", "fullName"},
		firstName:     []string{"first_name", "firstName"},
		lastName:      []string{"last_name", "lastName"},
		classID:       []string{"classId", "class_id"},
		sectionID:     []string{"sectionId", "section_id"},
		parentID:      []string{"parentId", "parent_id"},
		dateOfBirth:   []string{"dateOfBirth", "date_of_birth", "dob"},
		gender:        []string{"gender", "sex"},
		phone:         []string{"contactPhone", "contact_phone", "phone"},
		email:         []string{"contactEmail", "contact_email", "email"},
		address:       []string{"address"},
		admissionDate: []string{"admissionDate", "admission_date"},
	}

	studentRefKeys = []string{"studentId", "student_id"}
	sectionsKeys   = []string{"sections", "class_sections", "classSections"}
	capacityKeys   = []string{"capacity", "max_students", "maxStudents"}
	childrenKeys   = []string{"children", "students"}
	subjectsKeys   = []string{"subjects", "subject_names"}
	submitKeys     = []string{"submissions", "homework_submissions"}
	descKeys       = []string{"description", "desc"}
	remarksKeys    = []string{"remarks", "remark", "comment"}
	markedByKeys   = []string{"markedBy", "marked_by", "teacher_id"}
	homeworkIDKey  = []string{"homeworkId", "homework_id"}
)

// refOf resolves a {id, name} reference either from a nested object under one of objKeys
// or from flat id/name fields.
func refOf(r Record, objKeys, idAliases, nameAliases []string) Ref {
	ref := Ref{ID: r.ID(idAliases...), Name: r.String(nameAliases...)}
	if nested := r.Record(objKeys...); nested != nil {
		if ref.ID == "" {
			ref.ID = nested.ID(idKeys...)
		}
		if ref.Name == "" {
			ref.Name = nested.String("name", "full_name", "title")
		}
	}
	return ref
}

func fullName(r Record, nameKeys []string) string {
	if name := r.String(nameKeys...); name != "" {
		return name
	}
	return strings.TrimSpace(r.String(studentKeys.firstName...) + " " + r.String(studentKeys.lastName...))
}

func NormalizeStudent(r Record) (Student, error) {
	id := r.ID(idKeys...)
	if id == "" {
		return Student{}, gap("student", "id")
	}
	keys := studentKeys
	status := StatusInactive
	if r.Bool(activeKeys...) {
		status = StatusActive
	}
	return Student{
		ID:            id,
		StudentID:     r.ID(keys.studentID...),
		Name:          fullName(r, keys.name),
		ClassID:       refOf(r, []string{"class"}, keys.classID, nil).ID,
		SectionID:     refOf(r, []string{"section"}, keys.sectionID, nil).ID,
		ParentID:      refOf(r, []string{"parent"}, keys.parentID, nil).ID,
		DateOfBirth:   r.Date(keys.dateOfBirth...),
		Gender:        strings.ToLower(r.String(keys.gender...)),
		ContactPhone:  r.String(keys.phone...),
		ContactEmail:  strings.ToLower(r.String(keys.email...)),
		Address:       r.String(keys.address...),
		AdmissionDate: r.Date(keys.admissionDate...),
		Status:        status,
	}, nil
}

// NormalizeClass builds a class and its ordered sections.
// Sections that are not a list count as none; a section without id is a gap of the class.
func NormalizeClass(r Record) (ClassEntity, error) {
	id := r.ID(idKeys...)
	if id == "" {
		return ClassEntity{}, gap("class", "id")
	}
	recs := r.List(sectionsKeys...)
	sections := make([]Section, 0, len(recs))
	for i, sr := range recs {
		sid := sr.ID(idKeys...)
		if sid == "" {
			return ClassEntity{}, gap("class", fmt.Sprintf("sections[%d].id", i))
		}
		classID := sr.ID("classId", "class_id")
		if classID == "" {
			classID = id
		}
		capacity := sr.Int(capacityKeys...)
		if capacity < 0 {
			capacity = 0
		}
		active := true
		if sr.Has(activeKeys...) {
			active = sr.Bool(activeKeys...)
		}
		sections = append(sections, Section{
			ID:       sid,
			ClassID:  classID,
			Name:     sr.String("name", "sectionName", "section_name"),
			Capacity: capacity,
			Active:   active,
		})
	}
	return ClassEntity{
		ID:          id,
		Name:        r.String("name", "className", "class_name"),
		Description: r.String(descKeys...),
		Active:      r.Bool(activeKeys...),
		Sections:    sections,
	}, nil
}

func NormalizeMark(r Record) (Mark, error) {
	id := r.ID(idKeys...)
	if id == "" {
		return Mark{}, gap("mark", "id")
	}
	examType := ExamType(strings.ToLower(r.String("examType", "exam_type", "type")))
	if !examType.Valid() {
		examType = ""
	}
	return Mark{
		ID:            id,
		Student:       refOf(r, []string{"student"}, studentRefKeys, []string{"student_name", "studentName"}),
		Subject:       refOf(r, []string{"subject"}, []string{"subjectId", "subject_id"}, []string{"subject_name", "subjectName"}),
		Class:         refOf(r, []string{"class"}, studentKeys.classID, []string{"class_name", "className"}),
		ExamType:      examType,
		MarksObtained: r.Float("marksObtained", "marks_obtained", "marks", "score"),
		TotalMarks:    r.Float("totalMarks", "total_marks", "max_marks", "out_of"),
		ExamDate:      r.Date("examDate", "exam_date", "date"),
		Remarks:       r.String(remarksKeys...),
	}, nil
}

func NormalizeAttendance(r Record) (Attendance, error) {
	id := r.ID(idKeys...)
	if id == "" {
		return Attendance{}, gap("attendance", "id")
	}
	status := AttendanceStatus(strings.ToLower(r.String("status", "attendance_status")))
	if !status.Valid() && r.Has("present", "is_present") {
		status = Absent
		if r.Bool("present", "is_present") {
			status = Present
		}
	}
	if !status.Valid() {
		status = ""
	}
	return Attendance{
		ID:        id,
		StudentID: refOf(r, []string{"student"}, studentRefKeys, nil).ID,
		ClassID:   refOf(r, []string{"class"}, studentKeys.classID, nil).ID,
		SectionID: refOf(r, []string{"section"}, studentKeys.sectionID, nil).ID,
		Date:      r.Date("date", "attendance_date", "attendanceDate"),
		Status:    status,
		Remarks:   r.String(remarksKeys...),
		MarkedBy:  refOf(r, []string{"teacher"}, markedByKeys, nil).ID,
	}, nil
}

// NormalizeHomework builds a homework and its submissions.
// A submission without id is a gap of the homework.
func NormalizeHomework(r Record) (Homework, error) {
	id := r.ID(idKeys...)
	if id == "" {
		return Homework{}, gap("homework", "id")
	}
	recs := r.List(submitKeys...)
	subs := make([]Submission, 0, len(recs))
	for i, sr := range recs {
		sid := sr.ID(idKeys...)
		if sid == "" {
			return Homework{}, gap("homework", fmt.Sprintf("submissions[%d].id", i))
		}
		hwID := sr.ID(homeworkIDKey...)
		if hwID == "" {
			hwID = id
		}
		status := SubmissionStatus(strings.ToLower(sr.String("status", "submission_status")))
		if !status.Valid() {
			status = SubmissionPending
		}
		subs = append(subs, Submission{
			ID:          sid,
			HomeworkID:  hwID,
			StudentID:   refOf(sr, []string{"student"}, studentRefKeys, nil).ID,
			Status:      status,
			SubmittedAt: sr.Time("submittedAt", "submitted_at", "submission_date"),
		})
	}
	return Homework{
		ID:           id,
		Title:        r.String("title", "name"),
		Description:  r.String(descKeys...),
		ClassID:      refOf(r, []string{"class"}, studentKeys.classID, nil).ID,
		SectionID:    refOf(r, []string{"section"}, studentKeys.sectionID, nil).ID,
		SubjectID:    refOf(r, []string{"subject"}, []string{"subjectId", "subject_id"}, nil).ID,
		AssignedDate: r.Time("assignedDate", "assigned_date", "created_at"),
		DueDate:      r.Time("dueDate", "due_date", "deadline"),
		Submissions:  subs,
	}, nil
}

// NormalizeParent builds a parent; children may be student objects or bare ids.
func NormalizeParent(r Record) (Parent, error) {
	id := r.ID(idKeys...)
	if id == "" {
		return Parent{}, gap("parent", "id")
	}
	recs := r.List(childrenKeys...)
	children := make([]Ref, 0, len(recs))
	for i, cr := range recs {
		cid := cr.ID(idKeys...)
		if cid == "" {
			return Parent{}, gap("parent", fmt.Sprintf("children[%d].id", i))
		}
		children = append(children, Ref{ID: cid, Name: fullName(cr, studentKeys.name)})
	}
	return Parent{
		ID:         id,
		FullName:   fullName(r, []string{"full_name", "fullName", "name", "parentName", "parent_name"}),
		Email:      strings.ToLower(r.String("email", "contact_email")),
		Phone:      r.String("phone", "contact_phone", "phoneNumber", "phone_number"),
		Occupation: r.String("occupation", "profession"),
		Address:    r.String(studentKeys.address...),
		Children:   children,
	}, nil
}

// NormalizeTeacher builds a teacher; subjects may be names or subject objects.
func NormalizeTeacher(r Record) (Teacher, error) {
	id := r.ID(idKeys...)
	if id == "" {
		return Teacher{}, gap("teacher", "id")
	}
	recs := r.List(subjectsKeys...)
	subjects := make([]string, 0, len(recs))
	for _, sr := range recs {
		// scalar subjects end up under "id"
		if name := sr.String("name", "subject_name", "id"); name != "" {
			subjects = append(subjects, name)
		}
	}
	return Teacher{
		ID:              id,
		Name:            fullName(r, []string{"name", "teacherName", "teacher_name", "full_name", "fullName"}),
		Email:           strings.ToLower(r.String("email", "contact_email")),
		Phone:           r.String("phone", "contact_phone", "phoneNumber", "phone_number"),
		Qualification:   r.String("qualification", "qualifications"),
		ExperienceYears: r.Int("experienceYears", "experience_years", "experience"),
		Subjects:        subjects,
		Active:          r.Bool(activeKeys...),
	}, nil
}

func NormalizeSubject(r Record) (Subject, error) {
	id := r.ID(idKeys...)
	if id == "" {
		return Subject{}, gap("subject", "id")
	}
	return Subject{
		ID:      id,
		Name:    r.String("name", "subjectName", "subject_name"),
		Code:    strings.ToUpper(r.String("code", "subject_code", "subjectCode")),
		ClassID: refOf(r, []string{"class"}, studentKeys.classID, nil).ID,
		Active:  r.Bool(activeKeys...),
	}, nil
}

func NormalizeMessage(r Record) (Message, error) {
	id := r.ID(idKeys...)
	if id == "" {
		return Message{}, gap("message", "id")
	}
	return Message{
		ID:        id,
		Sender:    refOf(r, []string{"sender", "from"}, []string{"senderId", "sender_id"}, []string{"senderName", "sender_name"}),
		Recipient: refOf(r, []string{"recipient", "to"}, []string{"recipientId", "recipient_id"}, []string{"recipientName", "recipient_name"}),
		Subject:   r.String("subject", "title"),
		Body:      r.String("body", "message", "content"),
		SentAt:    r.Time("sentAt", "sent_at", "created_at"),
		Read:      r.Bool("read", "is_read", "isRead"),
	}, nil
}
