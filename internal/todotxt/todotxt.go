// Package todotxt converts between single todo.txt records and model.Task values.
package todotxt

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bryan-cox/giskard/internal/model"
)

// ErrMalformedRecord is matched by every error returned from Parse.
var ErrMalformedRecord = errors.New("malformed record")

// MalformedRecordError describes a line that does not follow the record grammar.
type MalformedRecordError struct {
	Line   string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %q: %s", e.Line, e.Reason)
}

// Unwrap returns ErrMalformedRecord.
func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}

// Tag keys holding dates that are lifted into dedicated task fields.
const (
	DueTag       = "due"
	ThresholdTag = "t"
)

var (
	priorityRegex = regexp.MustCompile(`^\(([A-Z])\)$`)
	// Values starting with "//" are left alone so that URLs stay plain text.
	tagRegex = regexp.MustCompile(`^([A-Za-z0-9_-]+):(\S+)$`)
)

// Parse converts one line into a Task.
//
// The line is read as: an optional "x" completion marker, an optional "(A)"
// priority, the finish date and creation date of a finished task (or the
// creation date of a started one), then the subject. Anything the grammar
// does not recognize stays in the subject. Contexts (@word), projects
// (+word), hashtags (#word) and key:value tags are collected from the subject
// without removing them from it.
func Parse(line string) (model.Task, error) {
	if err := checkLine(line); err != nil {
		return model.Task{}, err
	}

	var task model.Task
	tokens := strings.Fields(line)

	finished := false
	if len(tokens) > 0 && tokens[0] == "x" {
		finished = true
		tokens = tokens[1:]
	}

	if len(tokens) > 0 {
		if m := priorityRegex.FindStringSubmatch(tokens[0]); m != nil {
			task.Priority, _ = model.PriorityFromLetter(m[1][0])
			tokens = tokens[1:]
		}
	}

	var finishDate model.Date
	if finished {
		if d, ok := leadingDate(tokens); ok {
			finishDate = d
			tokens = tokens[1:]
		}
	}
	if d, ok := leadingDate(tokens); ok {
		task.CreationDate = d
		tokens = tokens[1:]
	}
	task.Status = model.StatusFromFields(finished, finishDate)

	task.Subject = strings.Join(tokens, " ")
	collectMarkers(&task, tokens)
	return task, nil
}

// Render produces the canonical single-line form of a task.
//
// A finished task without finish date loses its creation date: written
// alone, that date would read back as the finish date.
func Render(task model.Task) string {
	parts := make([]string, 0, 5)

	finished, finishDate := task.Status.Fields()
	if finished {
		parts = append(parts, "x")
	}
	if letter, ok := task.Priority.Letter(); ok {
		parts = append(parts, "("+string(letter)+")")
	}
	switch {
	case finished && !finishDate.IsZero():
		parts = append(parts, finishDate.String())
		if !task.CreationDate.IsZero() {
			parts = append(parts, task.CreationDate.String())
		}
	case !finished && !task.CreationDate.IsZero():
		parts = append(parts, task.CreationDate.String())
	}
	if subject := cleanSubject(task.Subject); subject != "" {
		parts = append(parts, subject)
	}

	return strings.Join(parts, " ")
}

func checkLine(line string) error {
	if !utf8.ValidString(line) {
		return &MalformedRecordError{Line: line, Reason: "invalid UTF-8"}
	}
	for _, r := range line {
		if r != '\t' && unicode.IsControl(r) {
			return &MalformedRecordError{Line: line, Reason: fmt.Sprintf("control character %U", r)}
		}
	}
	return nil
}

func cleanSubject(subject string) string {
	subject = strings.ToValidUTF8(subject, string(utf8.RuneError))
	subject = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, subject)
	return strings.Join(strings.Fields(subject), " ")
}

func leadingDate(tokens []string) (model.Date, bool) {
	if len(tokens) == 0 {
		return model.Date{}, false
	}
	d, err := model.ParseDate(tokens[0])
	if err != nil {
		return model.Date{}, false
	}
	return d, true
}

func collectMarkers(task *model.Task, tokens []string) {
	for _, tok := range tokens {
		if len(tok) > 1 {
			switch tok[0] {
			case '@':
				task.Contexts = append(task.Contexts, tok[1:])
				continue
			case '+':
				task.Projects = append(task.Projects, tok[1:])
				continue
			case '#':
				task.Hashtags = append(task.Hashtags, tok[1:])
				continue
			}
		}

		m := tagRegex.FindStringSubmatch(tok)
		if m == nil || strings.HasPrefix(m[2], "//") {
			continue
		}
		key, value := m[1], m[2]
		if liftDate(task, key, value) {
			continue
		}
		if task.Tags == nil {
			task.Tags = make(map[string]string)
		}
		task.Tags[key] = value
	}
}

// liftDate stores the first valid due or threshold date in its task field.
func liftDate(task *model.Task, key, value string) bool {
	var field *model.Date
	switch key {
	case DueTag:
		field = &task.DueDate
	case ThresholdTag:
		field = &task.ThresholdDate
	default:
		return false
	}
	if !field.IsZero() {
		return false
	}
	d, err := model.ParseDate(value)
	if err != nil {
		return false
	}
	*field = d
	return true
}
