package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bryan-cox/giskard/internal/model"
	"github.com/bryan-cox/giskard/internal/report"
)

func (a *app) newReportCmd() *cobra.Command {
	var archived bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize tasks by project.",
		Long: `Summarize tasks by +project. Tasks without a project are listed last.
With --archive, the finished tasks still in the task file are reported instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(false)
			if err != nil {
				return err
			}

			var tasks []model.IndexedTask
			var title string
			if archived {
				for i, task := range store.Archive() {
					tasks = append(tasks, model.IndexedTask{Index: i, Task: task})
				}
				title = fmt.Sprintf("Finished tasks in %s", store.Path())
			} else {
				tasks = report.Collect(store.Tasks())
				title = fmt.Sprintf("Tasks in %s", store.Path())
			}

			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks.")
				return nil
			}
			report.PrintProjectReport(cmd.OutOrStdout(), title, report.GroupByProject(tasks))
			return nil
		},
	}
	cmd.Flags().BoolVar(&archived, "archive", false, "Report the finished tasks instead of the active ones.")
	return cmd
}
