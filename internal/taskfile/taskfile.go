// Package taskfile keeps a todo.txt task file, and the done file it archives
// finished tasks into, in memory.
//
// A Store reflects the task file as it was at the last Reload and buffers
// every change until Flush. Callers own synchronization with the disk: the
// store never reloads or flushes on its own and does not lock the files.
package taskfile

import (
	"bufio"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bryan-cox/giskard/internal/model"
	"github.com/bryan-cox/giskard/internal/todotxt"
)

// MalformedPolicy selects what Reload does with a line that fails to parse.
type MalformedPolicy int

const (
	// MalformedAbort fails the whole reload on the first malformed line.
	MalformedAbort MalformedPolicy = iota
	// MalformedSkip sets malformed lines aside. They are written back
	// unchanged after the active tasks on Flush.
	MalformedSkip
)

// Options configures where finished tasks go and how strict loading is.
type Options struct {
	// ArchivePath is the done file finished tasks are appended to on Flush.
	// Empty discards finished tasks; the task file path itself keeps them
	// at the end of the task file.
	ArchivePath string
	Malformed   MalformedPolicy
}

// ErrIndexOutOfRange is matched by errors for task indices outside the active list.
var ErrIndexOutOfRange = errors.New("task index out of range")

// IndexError reports an index outside the active list.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("task index %d out of range (%d tasks)", e.Index, e.Len)
}

// Unwrap returns ErrIndexOutOfRange.
func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}

// RecordError locates a malformed record in a task file.
type RecordError struct {
	Path string
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

// Unwrap returns the parse error, which matches todotxt.ErrMalformedRecord.
func (e *RecordError) Unwrap() error {
	return e.Err
}

// RejectedLine is a raw line that failed to parse under MalformedSkip.
type RejectedLine struct {
	Line int
	Text string
	Err  error
}

// Store is the in-memory state of one task file and its optional done file.
type Store struct {
	path     string
	opts     Options
	active   []model.Task
	archive  []model.Task
	rejected []RejectedLine
}

// Open reads the task file at path.
func Open(path string, opts Options) (*Store, error) {
	s := &Store{path: path, opts: opts}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the task file path.
func (s *Store) Path() string {
	return s.path
}

// ArchivePath returns the done file path, or "" when finished tasks are discarded.
func (s *Store) ArchivePath() string {
	return s.opts.ArchivePath
}

// Reload reads the task file again, dropping every change made to the active
// tasks since the last reload. Indices handed out before are invalid afterwards.
//
// Finished tasks found in the file join the pending archive, which keeps
// whatever was not flushed yet. On error the store is left untouched.
func (s *Store) Reload() error {
	lines, err := readLines(s.path)
	if err != nil {
		return err
	}

	var active, finished []model.Task
	var rejected []RejectedLine
	for i, line := range lines {
		task, err := todotxt.Parse(line)
		if err != nil {
			if s.opts.Malformed == MalformedSkip {
				rejected = append(rejected, RejectedLine{Line: i + 1, Text: line, Err: err})
				continue
			}
			return &RecordError{Path: s.path, Line: i + 1, Err: err}
		}
		if task.IsDone() {
			finished = append(finished, task)
		} else {
			active = append(active, task)
		}
	}

	s.active = active
	s.rejected = rejected
	s.archive = mergeArchive(s.archive, finished)
	return nil
}

// Flush writes the active tasks over the task file, then appends the pending
// archive to the done file.
//
// The task file is rewritten in full: anything on disk that is not in memory
// is lost. After a successful append to a separate done file the pending
// archive is cleared, so flushing again does not archive the same tasks twice.
// When the done file is the task file itself the archive is kept, since the
// rewrite just dropped those tasks from the file and only the append puts them
// back. Without a done file, finished tasks are discarded.
func (s *Store) Flush() error {
	if err := s.writeActive(); err != nil {
		return err
	}

	if s.opts.ArchivePath == "" {
		s.archive = nil
		return nil
	}

	if err := appendTasks(s.opts.ArchivePath, s.archive); err != nil {
		return err
	}
	if !s.archivesInPlace() {
		s.archive = nil
	}
	return nil
}

// Tasks iterates over the active tasks with their index. Indices are only
// valid until the next Reload, and shift down after a Delete or Finish.
func (s *Store) Tasks() iter.Seq2[int, model.Task] {
	return func(yield func(int, model.Task) bool) {
		for i, task := range s.active {
			if !yield(i, task) {
				return
			}
		}
	}
}

// Len returns the number of active tasks.
func (s *Store) Len() int {
	return len(s.active)
}

// Get returns the active task at index.
func (s *Store) Get(index int) (model.Task, error) {
	if err := s.checkIndex(index); err != nil {
		return model.Task{}, err
	}
	return s.active[index], nil
}

// Add appends a started task to the active list and returns its index.
// A finished task joins the pending archive instead and Add returns -1.
func (s *Store) Add(task model.Task) int {
	if task.IsDone() {
		s.archive = mergeArchive(s.archive, []model.Task{task})
		return -1
	}
	s.active = append(s.active, task)
	return len(s.active) - 1
}

// Delete removes the active task at index. Later tasks move down by one.
func (s *Store) Delete(index int) error {
	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.active = slices.Delete(s.active, index, index+1)
	return nil
}

// Finish marks the active task at index as done on the given date and moves
// it to the pending archive. Later tasks move down by one.
func (s *Store) Finish(index int, on model.Date) (model.Task, error) {
	if err := s.checkIndex(index); err != nil {
		return model.Task{}, err
	}
	task := s.active[index]
	task.Status = model.Finished(on)
	s.active = slices.Delete(s.active, index, index+1)
	s.archive = mergeArchive(s.archive, []model.Task{task})
	return task, nil
}

// Archive returns a copy of the finished tasks waiting for the next Flush,
// in archive order.
func (s *Store) Archive() []model.Task {
	return slices.Clone(s.archive)
}

// Rejected returns the lines set aside by the last Reload under MalformedSkip.
func (s *Store) Rejected() []RejectedLine {
	return slices.Clone(s.rejected)
}

func (s *Store) checkIndex(index int) error {
	if index < 0 || index >= len(s.active) {
		return &IndexError{Index: index, Len: len(s.active)}
	}
	return nil
}

// archivesInPlace reports whether the done file is the task file.
func (s *Store) archivesInPlace() bool {
	if filepath.Clean(s.path) == filepath.Clean(s.opts.ArchivePath) {
		return true
	}
	a, errA := os.Stat(s.path)
	b, errB := os.Stat(s.opts.ArchivePath)
	return errA == nil && errB == nil && os.SameFile(a, b)
}

func (s *Store) writeActive() error {
	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("could not write task file '%s': %w", s.path, err)
	}

	w := bufio.NewWriter(file)
	for _, task := range s.active {
		fmt.Fprintln(w, todotxt.Render(task))
	}
	for _, r := range s.rejected {
		fmt.Fprintln(w, r.Text)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("could not write task file '%s': %w", s.path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("could not write task file '%s': %w", s.path, err)
	}
	return nil
}

func appendTasks(path string, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("could not open done file '%s': %w", path, err)
	}

	w := bufio.NewWriter(file)
	for _, task := range tasks {
		fmt.Fprintln(w, todotxt.Render(task))
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("could not append to done file '%s': %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("could not append to done file '%s': %w", path, err)
	}
	return nil
}

const maxLineSize = 1024 * 1024

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not read task file '%s': %w", path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read task file '%s': %w", path, err)
	}
	return lines, nil
}

// mergeArchive folds finished tasks into the archive, sorts it and drops
// duplicates. Tasks enter the archive in the form they read back from disk,
// so a task kept in memory across a same-file Flush and Reload matches its
// written copy.
func mergeArchive(archive, finished []model.Task) []model.Task {
	merged := slices.Clip(archive)
	for _, task := range finished {
		if !task.IsDone() {
			panic(fmt.Sprintf("BUG: found unfinished task %q in the archive", task.Subject))
		}
		merged = append(merged, canonical(task))
	}
	slices.SortStableFunc(merged, compareArchived)
	return slices.CompactFunc(merged, model.Task.Equal)
}

// canonical returns task as Parse reads back its rendered record.
func canonical(task model.Task) model.Task {
	parsed, err := todotxt.Parse(todotxt.Render(task))
	if err != nil {
		panic(fmt.Sprintf("BUG: rendered task %q does not parse: %v", task.Subject, err))
	}
	return parsed
}

// compareArchived orders finished tasks by finish date, undated tasks last,
// then by subject. The rendered record breaks remaining ties. Equal tasks end
// up next to each other only when equal records mean equal tasks, which holds
// for canonical tasks but not for arbitrary values built in code.
func compareArchived(a, b model.Task) int {
	da, okA := a.Status.FinishDate()
	db, okB := b.Status.FinishDate()
	switch {
	case okA && okB:
		if c := da.Compare(db); c != 0 {
			return c
		}
	case okA:
		return -1
	case okB:
		return 1
	}
	if c := strings.Compare(a.Subject, b.Subject); c != 0 {
		return c
	}
	return strings.Compare(todotxt.Render(a), todotxt.Render(b))
}
