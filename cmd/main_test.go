package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/bryan-cox/giskard/internal/model"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	clock = func() model.Date { return model.Date{Year: 2024, Month: time.March, Day: 5} }
	os.Exit(m.Run())
}

// --- Test Setup ---

type fixture struct {
	config string
	todo   string
	done   string
}

// setupTests writes a task file, a done file and a config with two profiles:
// "main" archives into the done file, "inplace" keeps finished tasks in the
// task file.
func setupTests(t *testing.T, todo string) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		config: filepath.Join(dir, "config.toml"),
		todo:   filepath.Join(dir, "todo.txt"),
		done:   filepath.Join(dir, "done.txt"),
	}

	config := `
[[taskfiles]]
name = "main"
task_file = "` + f.todo + `"
done_file = "` + f.done + `"

[[taskfiles]]
name = "inplace"
task_file = "` + f.todo + `"
`
	if err := os.WriteFile(f.config, []byte(config), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if err := os.WriteFile(f.todo, []byte(todo), 0o644); err != nil {
		t.Fatalf("Failed to write task file: %v", err)
	}
	return f
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

// executeCommand runs a fresh root command and captures its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	b := new(bytes.Buffer)

	rootCmd := newRootCmd()
	rootCmd.SetOut(b)
	rootCmd.SetErr(b)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return b.String(), err
}

func executeCommandText(t *testing.T, args ...string) string {
	t.Helper()
	out, err := executeCommand(t, args...)
	if err != nil {
		t.Fatalf("command execution failed: %v\n%s", err, out)
	}
	return out
}

// --- Test Functions ---

func TestLsCommand(t *testing.T) {
	f := setupTests(t, "call mom\n(A) buy milk +home\nx 2024-01-01 feed cat\n")

	t.Run("lists active tasks in file order", func(t *testing.T) {
		output := executeCommandText(t, "ls", "-c", f.config)
		lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), output)
		}
		if !strings.Contains(lines[0], "0") || !strings.Contains(lines[0], "( )") || !strings.Contains(lines[0], "call mom") {
			t.Errorf("unexpected first line %q", lines[0])
		}
		if !strings.Contains(lines[1], "1") || !strings.Contains(lines[1], "(A)") || !strings.Contains(lines[1], "buy milk +home") {
			t.Errorf("unexpected second line %q", lines[1])
		}
		if strings.Contains(output, "feed cat") {
			t.Error("finished task should not be listed")
		}
	})

	t.Run("orders by priority", func(t *testing.T) {
		output := executeCommandText(t, "ls", "-p", "-c", f.config)
		if strings.Index(output, "buy milk") > strings.Index(output, "call mom") {
			t.Errorf("expected prioritized task first:\n%s", output)
		}
	})

	t.Run("copies the plain listing", func(t *testing.T) {
		var copied string
		orig := copyText
		copyText = func(text string) error {
			copied = text
			return nil
		}
		defer func() { copyText = orig }()

		executeCommandText(t, "ls", "--copy", "-c", f.config)
		want := "   0  ( )  call mom\n   1  (A)  buy milk +home\n"
		if copied != want {
			t.Errorf("copied %q, want %q", copied, want)
		}
	})

	t.Run("does not write the task file", func(t *testing.T) {
		if got := readFile(t, f.todo); got != "call mom\n(A) buy milk +home\nx 2024-01-01 feed cat\n" {
			t.Errorf("task file changed: %q", got)
		}
	})
}

func TestAddCommand(t *testing.T) {
	t.Run("stamps the creation date", func(t *testing.T) {
		f := setupTests(t, "call mom\n")
		output := executeCommandText(t, "add", "-c", f.config, "(B)", "pay", "rent", "+home")
		if output != "Added task 1: (B) 2024-03-05 pay rent +home\n" {
			t.Errorf("unexpected output %q", output)
		}
		if got := readFile(t, f.todo); got != "call mom\n(B) 2024-03-05 pay rent +home\n" {
			t.Errorf("task file = %q", got)
		}
	})

	t.Run("keeps an explicit date or none", func(t *testing.T) {
		f := setupTests(t, "")
		executeCommandText(t, "add", "-c", f.config, "2023-12-31 old thing")
		executeCommandText(t, "add", "--no-date", "-c", f.config, "undated")
		if got := readFile(t, f.todo); got != "2023-12-31 old thing\nundated\n" {
			t.Errorf("task file = %q", got)
		}
	})

	t.Run("creates a missing task file", func(t *testing.T) {
		f := setupTests(t, "")
		if err := os.Remove(f.todo); err != nil {
			t.Fatal(err)
		}
		executeCommandText(t, "add", "-c", f.config, "first")
		if got := readFile(t, f.todo); got != "2024-03-05 first\n" {
			t.Errorf("task file = %q", got)
		}
	})

	t.Run("refuses finished tasks", func(t *testing.T) {
		f := setupTests(t, "")
		if _, err := executeCommand(t, "add", "-c", f.config, "x done already"); err == nil {
			t.Fatal("expected an error")
		}
		if got := readFile(t, f.todo); got != "" {
			t.Errorf("task file = %q, want it untouched", got)
		}
	})
}

func TestRmCommand(t *testing.T) {
	f := setupTests(t, "a\nb\nc\n")

	output := executeCommandText(t, "rm", "-c", f.config, "1")
	if output != "Removed task 1: b\n" {
		t.Errorf("unexpected output %q", output)
	}
	if got := readFile(t, f.todo); got != "a\nc\n" {
		t.Errorf("task file = %q", got)
	}

	for _, arg := range []string{"2", "-1", "one"} {
		t.Run("rejects "+arg, func(t *testing.T) {
			if _, err := executeCommand(t, "rm", "-c", f.config, "--", arg); err == nil {
				t.Errorf("rm %s: expected an error", arg)
			}
			if got := readFile(t, f.todo); got != "a\nc\n" {
				t.Errorf("task file changed: %q", got)
			}
		})
	}
}

func TestDoCommand(t *testing.T) {
	t.Run("archives into the done file", func(t *testing.T) {
		f := setupTests(t, "a\nb\nc\n")
		output := executeCommandText(t, "do", "-c", f.config, "0", "2")
		if !strings.Contains(output, "Finished task 2: c") || !strings.Contains(output, "Finished task 0: a") {
			t.Errorf("unexpected output %q", output)
		}
		if got := readFile(t, f.todo); got != "b\n" {
			t.Errorf("task file = %q", got)
		}
		if got := readFile(t, f.done); got != "x 2024-03-05 a\nx 2024-03-05 c\n" {
			t.Errorf("done file = %q", got)
		}
	})

	t.Run("keeps finished tasks in place", func(t *testing.T) {
		f := setupTests(t, "a\nb\n")
		executeCommandText(t, "do", "-c", f.config, "-t", "inplace", "0")
		if got := readFile(t, f.todo); got != "b\nx 2024-03-05 a\n" {
			t.Errorf("task file = %q", got)
		}
	})

	t.Run("checks every index first", func(t *testing.T) {
		f := setupTests(t, "a\nb\n")
		if _, err := executeCommand(t, "do", "-c", f.config, "0", "5"); err == nil {
			t.Fatal("expected an error")
		}
		if got := readFile(t, f.todo); got != "a\nb\n" {
			t.Errorf("task file changed: %q", got)
		}
	})
}

func TestArchiveCommand(t *testing.T) {
	f := setupTests(t, "x C\n(A) buy milk\nx 2024-01-02 wash car\nx A\nx 2024-01-01 feed cat\nx B\n")

	output := executeCommandText(t, "archive", "-c", f.config)
	if output != "Archived 5 finished task(s) to "+f.done+".\n" {
		t.Errorf("unexpected output %q", output)
	}
	if got := readFile(t, f.todo); got != "(A) buy milk\n" {
		t.Errorf("task file = %q", got)
	}
	want := "x 2024-01-01 feed cat\nx 2024-01-02 wash car\nx A\nx B\nx C\n"
	if got := readFile(t, f.done); got != want {
		t.Errorf("done file = %q, want %q", got, want)
	}

	output = executeCommandText(t, "archive", "-c", f.config)
	if output != "Nothing to archive.\n" {
		t.Errorf("second archive: unexpected output %q", output)
	}
	if got := readFile(t, f.done); got != want {
		t.Errorf("second archive changed the done file: %q", got)
	}
}

func TestReportCommand(t *testing.T) {
	f := setupTests(t, "(A) buy milk +home\nfix bike +home +garage\ncall mom\nx 2024-01-01 feed cat +home\n")

	t.Run("groups active tasks by project", func(t *testing.T) {
		output := executeCommandText(t, "report", "-c", f.config)
		if !strings.Contains(output, "Tasks in "+f.todo) {
			t.Error("Report missing title")
		}
		garage := strings.Index(output, "+garage")
		home := strings.Index(output, "+home")
		unassigned := strings.Index(output, "(no project)")
		if garage < 0 || home < 0 || unassigned < 0 || !(garage < home && home < unassigned) {
			t.Errorf("unexpected section order:\n%s", output)
		}
		if !strings.Contains(output, "• (A) [0] buy milk +home") {
			t.Errorf("Report missing prioritized task:\n%s", output)
		}
		if strings.Count(output, "fix bike") != 2 {
			t.Errorf("task with two projects should appear twice:\n%s", output)
		}
		if strings.Contains(output, "feed cat") {
			t.Error("finished task should not be reported")
		}
	})

	t.Run("reports the archive", func(t *testing.T) {
		output := executeCommandText(t, "report", "--archive", "-c", f.config)
		if !strings.Contains(output, "• ( ) 2024-01-01 feed cat +home") {
			t.Errorf("Report missing finished task:\n%s", output)
		}
		if strings.Contains(output, "buy milk") {
			t.Error("active task should not be in the archive report")
		}
	})
}

func TestSkipMalformed(t *testing.T) {
	f := setupTests(t, "a\nbad\x01line\nb\n")

	if _, err := executeCommand(t, "ls", "-c", f.config); err == nil {
		t.Fatal("expected malformed record to fail by default")
	}

	t.Setenv("GISKARD_SKIP_MALFORMED", "true")
	output := executeCommandText(t, "rm", "-c", f.config, "0")
	if !strings.Contains(output, "skipping malformed record") {
		t.Errorf("expected a warning, got %q", output)
	}
	if got := readFile(t, f.todo); got != "b\nbad\x01line\n" {
		t.Errorf("task file = %q", got)
	}
}

func TestUnknownTaskFile(t *testing.T) {
	f := setupTests(t, "a\n")
	if _, err := executeCommand(t, "ls", "-c", f.config, "-t", "nope"); err == nil {
		t.Fatal("expected an error for an unknown profile")
	}
}

func TestLogFlags(t *testing.T) {
	f := setupTests(t, "a\n")
	if _, err := executeCommand(t, "ls", "-c", f.config, "--log-level", "loud"); err == nil {
		t.Error("expected an error for an invalid log level")
	}
	if _, err := executeCommand(t, "ls", "-c", f.config, "--log-format", "xml"); err == nil {
		t.Error("expected an error for an invalid log format")
	}

	output := executeCommandText(t, "ls", "-c", f.config, "--log-level", "debug", "--log-format", "logfmt")
	if !strings.Contains(output, "opened task file") {
		t.Errorf("expected debug log output, got %q", output)
	}
}

func TestVersionCommand(t *testing.T) {
	output := executeCommandText(t, "version", "-s")
	if !strings.Contains(output, version) {
		t.Errorf("expected version %q in %q", version, output)
	}
}
