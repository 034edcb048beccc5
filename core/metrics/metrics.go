// Package metrics computes the display statistics of the portal screens.
// Every function is pure, deterministic and total: empty inputs give zero values.
package metrics

import (
	"fmt"
	"math"
	"time"

	"github.com/rainbowkidsrealm/jaja2-sub000/core/school"
)

const day = 24 * time.Hour

// Percentage returns round(100 * obtained / total), 0 when total is not positive.
// The result is clamped to [0, 100]; use Score to know whether clamping happened.
func Percentage(obtained, total float64) int {
	p, _ := percentage(obtained, total)
	return p
}

func percentage(obtained, total float64) (int, bool) {
	if total <= 0 || math.IsNaN(obtained) || math.IsNaN(total) {
		return 0, false
	}
	p := math.Round(100 * obtained / total)
	switch {
	case p > 100:
		return 100, true
	case p < 0:
		return 0, true
	default:
		return int(p), false
	}
}

type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
	GradeF     Grade = "F"
)

// Grades in descending order.
var Grades = []Grade{GradeAPlus, GradeA, GradeB, GradeC, GradeD, GradeF}

// GradeOf bands a percentage; lower bounds are inclusive.
func GradeOf(percentage int) Grade {
	switch {
	case percentage >= 90:
		return GradeAPlus
	case percentage >= 80:
		return GradeA
	case percentage >= 70:
		return GradeB
	case percentage >= 60:
		return GradeC
	case percentage >= 50:
		return GradeD
	default:
		return GradeF
	}
}

// Score is the read-side view of a mark.
type Score struct {
	Percentage int
	Grade      Grade
	// Clamped is set for corrupt marks whose obtained marks fall outside [0, total].
	Clamped bool
}

func ScoreOf(m school.Mark) Score {
	p, clamped := percentage(m.MarksObtained, m.TotalMarks)
	return Score{Percentage: p, Grade: GradeOf(p), Clamped: clamped}
}

// AverageScore is the rounded mean percentage of the marks, 0 for none.
func AverageScore(marks []school.Mark) int {
	if len(marks) == 0 {
		return 0
	}
	var sum int
	for _, m := range marks {
		sum += ScoreOf(m).Percentage
	}
	return int(math.Round(float64(sum) / float64(len(marks))))
}

// GradeDistribution counts the marks per grade; every grade is present.
func GradeDistribution(marks []school.Mark) map[Grade]int {
	dist := make(map[Grade]int, len(Grades))
	for _, g := range Grades {
		dist[g] = 0
	}
	for _, m := range marks {
		dist[ScoreOf(m).Grade]++
	}
	return dist
}

func rate(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(count) / float64(total)))
}

// AttendanceRate returns round(100 * present / all), 0 for no records.
func AttendanceRate(records []school.Attendance) int {
	return AttendanceSummaryOf(records).Rate
}

type AttendanceSummary struct {
	Total   int
	Present int
	Absent  int
	Late    int
	Rate    int
}

func AttendanceSummaryOf(records []school.Attendance) AttendanceSummary {
	s := AttendanceSummary{Total: len(records)}
	for _, r := range records {
		switch r.Status {
		case school.Present:
			s.Present++
		case school.Absent:
			s.Absent++
		case school.Late:
			s.Late++
		}
	}
	s.Rate = rate(s.Present, s.Total)
	return s
}

// SubmissionRate returns round(100 * submitted / all submissions), 0 when there are none.
// Use SubmissionSummaryOf to tell "no submissions yet" from a 0% rate.
func SubmissionRate(hw school.Homework) int {
	return SubmissionSummaryOf(hw).Rate
}

type SubmissionSummary struct {
	Total     int
	Pending   int
	Submitted int
	Late      int
	Graded    int
	Rate      int
}

// NotAssigned reports that the homework has no submission recorded at all.
func (s SubmissionSummary) NotAssigned() bool { return s.Total == 0 }

func SubmissionSummaryOf(hw school.Homework) SubmissionSummary {
	s := SubmissionSummary{Total: len(hw.Submissions)}
	for _, sub := range hw.Submissions {
		switch sub.Status {
		case school.SubmissionPending:
			s.Pending++
		case school.SubmissionSubmitted:
			s.Submitted++
		case school.SubmissionLate:
			s.Late++
		case school.SubmissionGraded:
			s.Graded++
		}
	}
	s.Rate = rate(s.Submitted, s.Total)
	return s
}

// IsCompleted reports whether every submission has been submitted.
// A homework without submissions is not completed.
func IsCompleted(hw school.Homework) bool {
	s := SubmissionSummaryOf(hw)
	return s.Total > 0 && s.Submitted == s.Total
}

// IsOverdue reports whether the due date is strictly before now.
func IsOverdue(hw school.Homework, now time.Time) bool {
	return !hw.DueDate.IsZero() && hw.DueDate.Before(now)
}

// TotalCapacity sums the capacity of the sections, 0 for a class without sections.
func TotalCapacity(c school.ClassEntity) int {
	var total int
	for _, s := range c.Sections {
		total += s.Capacity
	}
	return total
}

func SectionCount(c school.ClassEntity) int { return len(c.Sections) }

type CapacityState int

const (
	NoSections CapacityState = iota
	NoSeats                  // sections exist but none has a seat
	Seats
)

func (s CapacityState) String() string {
	switch s {
	case NoSections:
		return "no sections"
	case NoSeats:
		return "no seats"
	default:
		return "seats"
	}
}

// CapacityStateOf tells a class without sections from one whose sections have no seat.
func CapacityStateOf(c school.ClassEntity) CapacityState {
	switch {
	case len(c.Sections) == 0:
		return NoSections
	case TotalCapacity(c) == 0:
		return NoSeats
	default:
		return Seats
	}
}

// DaysUntilDue returns ceil((due - now) / 1 day).
// Zero means due today, negative values are days overdue.
func DaysUntilDue(due, now time.Time) int {
	d := math.Ceil(float64(due.Sub(now)) / float64(day))
	if d == 0 {
		return 0 // no negative zero
	}
	return int(d)
}

// DueLabel renders DaysUntilDue: "due today", "1 day left", "3 days overdue".
func DueLabel(due, now time.Time) string {
	days := DaysUntilDue(due, now)
	switch {
	case days == 0:
		return "due today"
	case days > 0:
		return fmt.Sprintf("%s left", plural(days, "day"))
	default:
		return fmt.Sprintf("%s overdue", plural(-days, "day"))
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
