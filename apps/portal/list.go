package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"

	"github.com/rainbowkidsrealm/jaja2-sub000/core/access"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/metrics"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/school"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/session"
)

// view renders a fetched collection as a table.
type view struct {
	header []string
	render func(recs []school.Record, policy school.GapPolicy, now time.Time) (rows [][]string, items interface{}, gaps []*school.GapError, err error)
}

func viewOf[T any](normalize func(school.Record) (T, error), row func(T, time.Time) []string, header ...string) view {
	return view{
		header: header,
		render: func(recs []school.Record, policy school.GapPolicy, now time.Time) ([][]string, interface{}, []*school.GapError, error) {
			items, gaps, err := school.NormalizeAll(recs, normalize, policy)
			if err != nil {
				return nil, nil, nil, err
			}
			rows := make([][]string, 0, len(items))
			for _, it := range items {
				rows = append(rows, row(it, now))
			}
			return rows, items, gaps, nil
		},
	}
}

var views = map[access.Target]view{
	access.Students: viewOf(school.NormalizeStudent, func(s school.Student, _ time.Time) []string {
		return []string{s.ID, s.StudentID, s.Name, s.ClassID, s.SectionID, string(s.Status)}
	}, "ID", "STUDENT ID", "NAME", "CLASS", "SECTION", "STATUS"),

	access.Teachers: viewOf(school.NormalizeTeacher, func(t school.Teacher, _ time.Time) []string {
		return []string{t.ID, t.Name, t.Email, plural(t.ExperienceYears, "year"), strings.Join(t.Subjects, ", "), yesNo(t.Active)}
	}, "ID", "NAME", "EMAIL", "EXPERIENCE", "SUBJECTS", "ACTIVE"),

	access.Parents: viewOf(school.NormalizeParent, func(p school.Parent, _ time.Time) []string {
		children := make([]string, 0, len(p.Children))
		for _, c := range p.Children {
			children = append(children, refName(c))
		}
		return []string{p.ID, p.FullName, p.Email, p.Phone, strings.Join(children, ", ")}
	}, "ID", "NAME", "EMAIL", "PHONE", "CHILDREN"),

	access.Classes: viewOf(school.NormalizeClass, func(c school.ClassEntity, _ time.Time) []string {
		return []string{
			c.ID, c.Name,
			strconv.Itoa(metrics.SectionCount(c)),
			strconv.Itoa(metrics.TotalCapacity(c)),
			metrics.CapacityStateOf(c).String(),
			yesNo(c.Active),
		}
	}, "ID", "NAME", "SECTIONS", "CAPACITY", "SEATING", "ACTIVE"),

	access.Subjects: viewOf(school.NormalizeSubject, func(s school.Subject, _ time.Time) []string {
		return []string{s.ID, s.Name, s.Code, s.ClassID, yesNo(s.Active)}
	}, "ID", "NAME", "CODE", "CLASS", "ACTIVE"),

	access.Marks: viewOf(school.NormalizeMark, func(m school.Mark, _ time.Time) []string {
		score := metrics.ScoreOf(m)
		grade := string(score.Grade)
		if score.Clamped {
			grade += "*"
		}
		return []string{
			m.ID, refName(m.Student), refName(m.Subject), string(m.ExamType),
			fmt.Sprintf("%s/%s", number(m.MarksObtained), number(m.TotalMarks)),
			fmt.Sprintf("%d%%", score.Percentage), grade,
		}
	}, "ID", "STUDENT", "SUBJECT", "EXAM", "MARKS", "SCORE", "GRADE"),

	access.Attendance: viewOf(school.NormalizeAttendance, func(a school.Attendance, _ time.Time) []string {
		return []string{a.ID, a.Date, a.StudentID, a.ClassID, a.SectionID, string(a.Status)}
	}, "ID", "DATE", "STUDENT", "CLASS", "SECTION", "STATUS"),

	access.Homework: viewOf(school.NormalizeHomework, func(hw school.Homework, now time.Time) []string {
		due := "-"
		if !hw.DueDate.IsZero() {
			due = hw.DueDate.Format("2006-01-02") + " (" + metrics.DueLabel(hw.DueDate, now) + ")"
		}
		subs := "none yet"
		if s := metrics.SubmissionSummaryOf(hw); !s.NotAssigned() {
			subs = fmt.Sprintf("%d/%d (%d%%)", s.Submitted, s.Total, s.Rate)
		}
		return []string{hw.ID, hw.Title, hw.ClassID, hw.SubjectID, due, subs}
	}, "ID", "TITLE", "CLASS", "SUBJECT", "DUE", "SUBMITTED"),

	access.Messages: viewOf(school.NormalizeMessage, func(m school.Message, _ time.Time) []string {
		sent := "-"
		if !m.SentAt.IsZero() {
			sent = m.SentAt.Format("2006-01-02 15:04")
		}
		return []string{m.ID, refName(m.Sender), refName(m.Recipient), m.Subject, sent, yesNo(m.Read)}
	}, "ID", "FROM", "TO", "SUBJECT", "SENT", "READ"),
}

// matchFlag collects repeated `-match field=value` flags.
type matchFlag map[string]string

func (m matchFlag) String() string {
	parts := make([]string, 0, len(m))
	for k, v := range m {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (m matchFlag) Set(s string) error {
	kv := strings.SplitN(s, "=", 2)
	if len(kv) != 2 || strings.TrimSpace(kv[0]) == "" {
		return fmt.Errorf("%q: expected FIELD=VALUE", s)
	}
	m[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	return nil
}

// resolveTarget maps a resource name to a target the role may view.
func resolveTarget(sess session.Session, resource string) (access.Target, error) {
	target, ok := access.ParseTarget(resource)
	if _, listable := views[target]; !ok || !listable {
		return "", fmt.Errorf("%q: unknown resource", resource)
	}
	if !access.CanView(sess.User.Role, target) {
		return "", errors.Wrapf(errForbidden, "%s cannot view %s", sess.User.Role, target.Label())
	}
	return target, nil
}

func (cli *commandLine) list(ctx context.Context, sess session.Session, args []string) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		cli.printUsage()
		return errHelp
	}
	target, err := resolveTarget(sess, args[0])
	if err != nil {
		return err
	}

	fs := cli.newFlagSet("list")
	search := fs.String("search", "", "Only show records containing this text.")
	ordering := fs.String("ordering", "", "Comma separated fields to order by; prefix with - for descending order.")
	match := matchFlag{}
	fs.Var(match, "match", "Only show records whose FIELD equals VALUE; may be repeated.")
	strict := fs.Bool("strict", false, "Fail instead of skipping incomplete records.")
	asJSON := fs.Bool("json", false, "Print the records as JSON.")
	if err = parse(fs, args[1:]); err != nil {
		return err
	}

	params := make(map[string]string, len(match)+2)
	for k, v := range match {
		params[k] = v
	}
	if *search != "" {
		params["search"] = *search
	}
	if *ordering != "" {
		params["ordering"] = *ordering
	}

	recs, err := cli.client.List(ctx, target.Resource(), params)
	if err != nil {
		return err
	}

	v := views[target]
	rows, items, gaps, err := v.render(recs, policyOf(*strict), cli.now())
	if err != nil {
		return errors.Wrapf(err, "normalizing %s", target.Resource())
	}
	cli.warnGaps(target, gaps)

	if *asJSON {
		enc := json.NewEncoder(cli.out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	if len(rows) == 0 {
		fmt.Fprintf(cli.out, "No %s found.\n", strings.ToLower(target.Label()))
		return nil
	}
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(v.header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

func policyOf(strict bool) school.GapPolicy {
	if strict {
		return school.FailOnGap
	}
	return school.SkipGaps
}

func (cli *commandLine) warnGaps(target access.Target, gaps []*school.GapError) {
	if len(gaps) == 0 {
		return
	}
	for _, g := range gaps {
		cli.logger.Warn("skipped incomplete record", g)
	}
	fmt.Fprintf(cli.out, "warning: skipped %s\n", plural(len(gaps), "incomplete "+strings.ToLower(target.Label())+" record"))
}

func refName(r school.Ref) string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func number(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
