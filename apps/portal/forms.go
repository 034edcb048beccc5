package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/rainbowkidsrealm/jaja2-sub000/core/access"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/metrics"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/school"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/session"
)

// submit creates a record once the role is allowed to and the form is valid.
// body is sent as it stands after validate, which may clean it.
func (cli *commandLine) submit(
	ctx context.Context,
	sess session.Session,
	target access.Target,
	action access.Action,
	validate func() error,
	body interface{},
) (school.Record, error) {
	if !access.CanPerform(sess.User.Role, target, action) {
		return nil, errors.Wrapf(errForbidden, "%s cannot %s on %s", sess.User.Role, action, target.Label())
	}
	if err := validate(); err != nil {
		return nil, err
	}
	return cli.client.Create(ctx, target.Resource(), body)
}

func (cli *commandLine) today() string {
	return cli.now().Format("2006-01-02")
}

func (cli *commandLine) addMark(ctx context.Context, sess session.Session, args []string) error {
	fs := cli.newFlagSet("add-mark")
	var f school.NewMark
	fs.StringVar(&f.StudentID, "student", "", "The student id.")
	fs.StringVar(&f.SubjectID, "subject", "", "The subject id.")
	fs.StringVar(&f.ClassID, "class", "", "The class id.")
	exam := fs.String("exam", "", "The exam type: quiz, assignment, midterm, final or project.")
	fs.Float64Var(&f.MarksObtained, "obtained", 0, "The marks obtained.")
	fs.Float64Var(&f.TotalMarks, "total", 0, "The total marks.")
	fs.StringVar(&f.ExamDate, "date", cli.today(), "The exam date, YYYY-MM-DD.")
	fs.StringVar(&f.Remarks, "remarks", "", "Optional remarks.")
	if err := parse(fs, args); err != nil {
		return err
	}
	f.ExamType = school.ExamType(*exam)

	rec, err := cli.submit(ctx, sess, access.Marks, access.Create, func() error { return f.Validate(cli.validate) }, &f)
	if err != nil {
		return err
	}
	score := metrics.ScoreOf(school.Mark{MarksObtained: f.MarksObtained, TotalMarks: f.TotalMarks})
	fmt.Fprintf(cli.out, "Mark %s saved: %s/%s (%d%%, %s)\n",
		rec.ID("id", "_id"), number(f.MarksObtained), number(f.TotalMarks), score.Percentage, score.Grade)
	return nil
}

func (cli *commandLine) markAttendance(ctx context.Context, sess session.Session, args []string) error {
	fs := cli.newFlagSet("mark-attendance")
	var f school.NewAttendance
	fs.StringVar(&f.StudentID, "student", "", "The student id.")
	fs.StringVar(&f.ClassID, "class", "", "The class id.")
	fs.StringVar(&f.SectionID, "section", "", "The section id.")
	fs.StringVar(&f.Date, "date", cli.today(), "The day, YYYY-MM-DD.")
	status := fs.String("status", "", "present, absent or late.")
	fs.StringVar(&f.Remarks, "remarks", "", "Optional remarks.")
	if err := parse(fs, args); err != nil {
		return err
	}
	f.Status = school.AttendanceStatus(*status)

	rec, err := cli.submit(ctx, sess, access.Attendance, access.MarkAttendance, func() error { return f.Validate(cli.validate) }, &f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Attendance %s saved: %s %s on %s\n", rec.ID("id", "_id"), f.StudentID, f.Status, f.Date)
	return nil
}

func (cli *commandLine) sendMessage(ctx context.Context, sess session.Session, args []string) error {
	fs := cli.newFlagSet("send-message")
	var f school.NewMessage
	fs.StringVar(&f.RecipientID, "to", "", "The user id of the recipient.")
	fs.StringVar(&f.Subject, "subject", "", "The subject.")
	fs.StringVar(&f.Body, "body", "", "The message.")
	if err := parse(fs, args); err != nil {
		return err
	}

	rec, err := cli.submit(ctx, sess, access.Messages, access.SendMessage, func() error { return f.Validate(cli.validate) }, &f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Message %s sent to %s\n", rec.ID("id", "_id"), f.RecipientID)
	return nil
}
