package main

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bryan-cox/giskard/internal/clipboard"
	"github.com/bryan-cox/giskard/internal/report"
	"github.com/bryan-cox/giskard/internal/todotxt"
)

// copyText is swapped out in tests.
var copyText = clipboard.CopyText

func (a *app) newLsCmd() *cobra.Command {
	var copyList, byPriority bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List the active tasks.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(false)
			if err != nil {
				return err
			}

			tasks := report.Collect(store.Tasks())
			if byPriority {
				report.SortByPriority(tasks)
			}
			report.PrintList(cmd.OutOrStdout(), tasks)

			if copyList {
				if err := copyText(report.PlainList(tasks)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "Task list copied to clipboard.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&copyList, "copy", false, "Also copy the listing to the clipboard.")
	cmd.Flags().BoolVarP(&byPriority, "priority", "p", false, "Order by priority instead of file order.")
	return cmd
}

func (a *app) newAddCmd() *cobra.Command {
	var noDate bool
	cmd := &cobra.Command{
		Use:   "add <task...>",
		Short: "Add a task.",
		Long: `Add a task written in todo.txt format, for example:

  giskard add '(A) call mom @phone +family due:2024-06-01'

Today's date is recorded as the creation date unless the task carries one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := todotxt.Parse(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if task.IsDone() {
				return errors.New("refusing to add a finished task: add it first, then use 'giskard do'")
			}
			if strings.TrimSpace(task.Subject) == "" {
				return errors.New("task text is empty")
			}
			if task.CreationDate.IsZero() && !noDate {
				task.CreationDate = a.today()
			}

			store, err := a.openStore(true)
			if err != nil {
				return err
			}
			index := store.Add(task)
			if err := flush(store); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added task %d: %s\n", index, todotxt.Render(task))
			return nil
		},
	}
	cmd.Flags().BoolVar(&noDate, "no-date", false, "Do not record a creation date.")
	return cmd
}

func (a *app) newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <index>",
		Aliases: []string{"del"},
		Short:   "Delete a task without archiving it.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}

			store, err := a.openStore(false)
			if err != nil {
				return err
			}
			task, err := store.Get(index)
			if err != nil {
				return err
			}
			if err := store.Delete(index); err != nil {
				return err
			}
			if err := flush(store); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed task %d: %s\n", index, task.Subject)
			return nil
		},
	}
}

func (a *app) newDoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "do <index...>",
		Short: "Mark tasks as finished today.",
		Long: `Mark tasks as finished today. Finished tasks leave the active list and go
wherever the profile sends them: the done file, the end of the task file, or
nowhere.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			indices := make([]int, 0, len(args))
			for _, arg := range args {
				index, err := parseIndex(arg)
				if err != nil {
					return err
				}
				indices = append(indices, index)
			}
			// Highest first, so finishing one task does not shift the next.
			slices.Sort(indices)
			indices = slices.Compact(indices)
			slices.Reverse(indices)

			store, err := a.openStore(false)
			if err != nil {
				return err
			}
			for _, index := range indices {
				if _, err := store.Get(index); err != nil {
					return err
				}
			}

			today := a.today()
			for _, index := range indices {
				task, err := store.Finish(index, today)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Finished task %d: %s\n", index, task.Subject)
			}
			return flush(store)
		},
	}
}

func (a *app) newArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Move finished tasks out of the task file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(false)
			if err != nil {
				return err
			}

			pending := len(store.Archive())
			if err := flush(store); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case pending == 0:
				fmt.Fprintln(out, "Nothing to archive.")
			case store.ArchivePath() == "":
				fmt.Fprintf(out, "Discarded %d finished task(s).\n", pending)
			default:
				fmt.Fprintf(out, "Archived %d finished task(s) to %s.\n", pending, store.ArchivePath())
			}
			return nil
		},
	}
}

func parseIndex(arg string) (int, error) {
	index, err := strconv.Atoi(arg)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid task index %q: expected a number from 'giskard ls'", arg)
	}
	return index, nil
}
