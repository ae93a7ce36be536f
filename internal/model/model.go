// Package model defines the core data structures for giskard.
package model

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// DateLayout is the on-disk representation of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day. The zero Date means "no date".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD string into a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current local date.
func Today() Date {
	return DateOf(time.Now())
}

// IsZero reports whether d is unset.
func (d Date) IsZero() bool {
	return d == Date{}
}

// String formats the date as YYYY-MM-DD, or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after other.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return compareInt(d.Year, other.Year)
	case d.Month != other.Month:
		return compareInt(int(d.Month), int(other.Month))
	default:
		return compareInt(d.Day, other.Day)
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Priority is a task priority. The zero value means no priority; A through Z
// are stored as 1 through 26 so that higher letters compare greater.
type Priority uint8

// NoPriority marks a task without priority.
const NoPriority Priority = 0

// PriorityFromLetter converts an upper case letter A-Z into a Priority.
func PriorityFromLetter(c byte) (Priority, bool) {
	if c < 'A' || c > 'Z' {
		return NoPriority, false
	}
	return Priority(c-'A') + 1, true
}

// Letter returns the priority letter, or false when the priority is unset.
func (p Priority) Letter() (byte, bool) {
	if p == NoPriority || p > 26 {
		return 0, false
	}
	return 'A' + byte(p-1), true
}

// Status is either Started or Finished with an optional finish date.
// Build values with Started and Finished; the zero Status is Started.
type Status struct {
	finished   bool
	finishDate Date
}

// Started returns the status of a task that is not done yet.
func Started() Status {
	return Status{}
}

// Finished returns the status of a done task. A zero date means the finish
// date is unknown.
func Finished(on Date) Status {
	return Status{finished: true, finishDate: on}
}

// StatusFromFields builds a Status from the flat on-disk representation.
// The finish date is ignored for unfinished tasks.
func StatusFromFields(finished bool, finishDate Date) Status {
	if !finished {
		return Started()
	}
	return Finished(finishDate)
}

// Fields returns the flat on-disk representation of the status.
func (s Status) Fields() (finished bool, finishDate Date) {
	if !s.finished {
		return false, Date{}
	}
	return true, s.finishDate
}

// IsFinished reports whether the task is done.
func (s Status) IsFinished() bool {
	return s.finished
}

// FinishDate returns the finish date. ok is false for started tasks and for
// finished tasks without a recorded date.
func (s Status) FinishDate() (Date, bool) {
	if !s.finished || s.finishDate.IsZero() {
		return Date{}, false
	}
	return s.finishDate, true
}

func (s Status) String() string {
	if !s.finished {
		return "started"
	}
	if s.finishDate.IsZero() {
		return "finished"
	}
	return "finished " + s.finishDate.String()
}

// Task is one parsed todo.txt record.
//
// Contexts, projects, hashtags and tags are extracted from the subject text,
// which keeps them embedded.
type Task struct {
	Subject       string
	Priority      Priority
	CreationDate  Date
	ThresholdDate Date
	DueDate       Date
	Status        Status
	Contexts      []string
	Projects      []string
	Hashtags      []string
	Tags          map[string]string
}

// IsDone reports whether the task is finished.
func (t Task) IsDone() bool {
	return t.Status.IsFinished()
}

// Equal reports whether t and other hold the same values. Nil and empty
// collections are considered equal.
func (t Task) Equal(other Task) bool {
	return t.Subject == other.Subject &&
		t.Priority == other.Priority &&
		t.CreationDate == other.CreationDate &&
		t.ThresholdDate == other.ThresholdDate &&
		t.DueDate == other.DueDate &&
		t.Status == other.Status &&
		slices.Equal(t.Contexts, other.Contexts) &&
		slices.Equal(t.Projects, other.Projects) &&
		slices.Equal(t.Hashtags, other.Hashtags) &&
		maps.Equal(t.Tags, other.Tags)
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	t.Contexts = slices.Clone(t.Contexts)
	t.Projects = slices.Clone(t.Projects)
	t.Hashtags = slices.Clone(t.Hashtags)
	t.Tags = maps.Clone(t.Tags)
	return t
}

// IndexedTask pairs a task with its position in the active list.
type IndexedTask struct {
	Index int
	Task
}
