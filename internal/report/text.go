package report

import (
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/bryan-cox/giskard/internal/model"
)

// Section header used for tasks without a project.
const TextHeaderUnassigned = "(no project)"

var (
	indexColor    = color.New(color.Faint)
	priorityColor = map[byte]*color.Color{
		'A': color.New(color.FgRed, color.Bold),
		'B': color.New(color.FgYellow),
		'C': color.New(color.FgGreen),
	}
	headerColor = color.New(color.Bold, color.Underline)
)

// PriorityLabel returns "(A)" style labels, or blanks of the same width when
// the priority is unset.
func PriorityLabel(p model.Priority) string {
	letter, ok := p.Letter()
	if !ok {
		return "( )"
	}
	return "(" + string(letter) + ")"
}

// Collect gathers the indexed tasks of a sequence.
func Collect(tasks iter.Seq2[int, model.Task]) []model.IndexedTask {
	var out []model.IndexedTask
	for i, task := range tasks {
		out = append(out, model.IndexedTask{Index: i, Task: task})
	}
	return out
}

// PrintList prints one line per task: index, priority and subject.
func PrintList(out io.Writer, tasks []model.IndexedTask) {
	if len(tasks) == 0 {
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	for _, task := range tasks {
		tbl.AddRow(indexColor.Sprint(strconv.Itoa(task.Index)), colorPriority(task.Priority), task.Subject)
	}
	tbl.RightAlign(0)
	fmt.Fprintln(out, tbl)
}

// PlainList renders the list without colors, as PrintList lays it out.
func PlainList(tasks []model.IndexedTask) string {
	var b strings.Builder
	for _, task := range tasks {
		fmt.Fprintf(&b, "%4d  %s  %s\n", task.Index, PriorityLabel(task.Priority), task.Subject)
	}
	return b.String()
}

// PrintProjectReport prints a section per project followed by the tasks
// without project.
func PrintProjectReport(out io.Writer, title string, groups ProjectGroups) {
	fmt.Fprintln(out, headerColor.Sprint(title))

	for _, project := range groups.Projects {
		printSection(out, "+"+project, groups.ByProject[project])
	}
	printSection(out, TextHeaderUnassigned, groups.Unassigned)
}

func printSection(out io.Writer, header string, tasks []model.IndexedTask) {
	if len(tasks) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s\n", headerColor.Sprint(header))
	for _, task := range tasks {
		fmt.Fprintf(out, "    • %s %s\n", colorPriority(task.Priority), describe(task))
	}
}

// describe renders the part of a task shown in reports. Finished tasks carry
// their finish date, started ones their index.
func describe(task model.IndexedTask) string {
	if task.IsDone() {
		if d, ok := task.Status.FinishDate(); ok {
			return d.String() + " " + task.Subject
		}
		return task.Subject
	}
	return fmt.Sprintf("[%d] %s", task.Index, task.Subject)
}

func colorPriority(p model.Priority) string {
	label := PriorityLabel(p)
	letter, ok := p.Letter()
	if !ok {
		return label
	}
	if c, found := priorityColor[letter]; found {
		return c.Sprint(label)
	}
	return label
}
