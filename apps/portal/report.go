package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rainbowkidsrealm/jaja2-sub000/core/access"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/metrics"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/school"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/session"
)

// maxConcurrentFetches bounds the requests the dashboard issues at once.
const maxConcurrentFetches = 4

// dashboardTargets are fetched in this order and printed in this order.
var dashboardTargets = []access.Target{
	access.Students, access.Teachers, access.Parents, access.Classes,
	access.Marks, access.Attendance, access.Homework, access.Messages,
}

// fetch is the outcome of one dashboard request; one failing does not spoil the others.
type fetch struct {
	target access.Target
	recs   []school.Record
	err    error
}

func (cli *commandLine) report(ctx context.Context, sess session.Session, args []string) error {
	fs := cli.newFlagSet("report")
	strict := fs.Bool("strict", false, "Fail a section instead of skipping incomplete records.")
	if err := parse(fs, args); err != nil {
		return err
	}

	fetches := cli.fetchAll(ctx, sess)

	fmt.Fprintf(cli.out, "Dashboard for %s (%s)\n\n", sess.User.Name, sess.User.Role)
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	for _, f := range fetches {
		if f.err != nil {
			fmt.Fprintf(w, "%s:\tunavailable (%s)\n", f.target.Label(), cli.describe(f.err))
			continue
		}
		if err := cli.summarize(w, sess, f, policyOf(*strict)); err != nil {
			fmt.Fprintf(w, "%s:\tunavailable (%s)\n", f.target.Label(), err)
		}
	}
	return w.Flush()
}

// fetchAll fetches every collection of the dashboard the role may view, concurrently.
func (cli *commandLine) fetchAll(ctx context.Context, sess session.Session) []fetch {
	var fetches []fetch
	for _, t := range dashboardTargets {
		if access.CanView(sess.User.Role, t) {
			fetches = append(fetches, fetch{target: t})
		}
	}

	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)
	for i := range fetches {
		f := &fetches[i]
		g.Go(func() error {
			f.recs, f.err = cli.client.List(ctx, f.target.Resource(), nil)
			return nil
		})
	}
	_ = g.Wait() // errors are kept per fetch
	return fetches
}

func (cli *commandLine) summarize(w io.Writer, sess session.Session, f fetch, policy school.GapPolicy) error {
	label := f.target.Label()
	switch f.target {
	case access.Students:
		students, gaps, err := school.NormalizeAll(f.recs, school.NormalizeStudent, policy)
		if err != nil {
			return err
		}
		cli.warnGaps(f.target, gaps)
		var active int
		for _, s := range students {
			if s.Active() {
				active++
			}
		}
		fmt.Fprintf(w, "%s:\t%d (%d active)\n", label, len(students), active)

	case access.Teachers:
		teachers, gaps, err := school.NormalizeAll(f.recs, school.NormalizeTeacher, policy)
		if err != nil {
			return err
		}
		cli.warnGaps(f.target, gaps)
		fmt.Fprintf(w, "%s:\t%d\n", label, len(teachers))

	case access.Parents:
		parents, gaps, err := school.NormalizeAll(f.recs, school.NormalizeParent, policy)
		if err != nil {
			return err
		}
		cli.warnGaps(f.target, gaps)
		fmt.Fprintf(w, "%s:\t%d\n", label, len(parents))

	case access.Classes:
		classes, gaps, err := school.NormalizeAll(f.recs, school.NormalizeClass, policy)
		if err != nil {
			return err
		}
		cli.warnGaps(f.target, gaps)
		var sections, seats int
		for _, c := range classes {
			sections += metrics.SectionCount(c)
			seats += metrics.TotalCapacity(c)
		}
		fmt.Fprintf(w, "%s:\t%d (%s, %s)\n", label, len(classes), plural(sections, "section"), plural(seats, "seat"))

	case access.Marks:
		marks, gaps, err := school.NormalizeAll(f.recs, school.NormalizeMark, policy)
		if err != nil {
			return err
		}
		cli.warnGaps(f.target, gaps)
		dist := metrics.GradeDistribution(marks)
		grades := make([]string, 0, len(metrics.Grades))
		for _, g := range metrics.Grades {
			grades = append(grades, fmt.Sprintf("%s:%d", g, dist[g]))
		}
		fmt.Fprintf(w, "%s:\t%d, average %d%% (%s)\n", label, len(marks), metrics.AverageScore(marks), strings.Join(grades, " "))

	case access.Attendance:
		records, gaps, err := school.NormalizeAll(f.recs, school.NormalizeAttendance, policy)
		if err != nil {
			return err
		}
		cli.warnGaps(f.target, gaps)
		s := metrics.AttendanceSummaryOf(records)
		fmt.Fprintf(w, "%s:\t%d%% present (%d present, %d absent, %d late)\n", label, s.Rate, s.Present, s.Absent, s.Late)

	case access.Homework:
		homework, gaps, err := school.NormalizeAll(f.recs, school.NormalizeHomework, policy)
		if err != nil {
			return err
		}
		cli.warnGaps(f.target, gaps)
		fmt.Fprintf(w, "%s:\t%s\n", label, homeworkSummary(homework, cli.now()))

	case access.Messages:
		messages, gaps, err := school.NormalizeAll(f.recs, school.NormalizeMessage, policy)
		if err != nil {
			return err
		}
		cli.warnGaps(f.target, gaps)
		var unread int
		for _, m := range messages {
			if !m.Read && m.Recipient.ID == sess.User.ID {
				unread++
			}
		}
		fmt.Fprintf(w, "%s:\t%d (%d unread)\n", label, len(messages), unread)
	}
	return nil
}

func homeworkSummary(homework []school.Homework, now time.Time) string {
	var completed, overdue int
	for _, hw := range homework {
		switch {
		case metrics.IsCompleted(hw):
			completed++
		case metrics.IsOverdue(hw, now):
			overdue++
		}
	}
	return fmt.Sprintf("%d (%d completed, %d overdue)", len(homework), completed, overdue)
}
