// Package report renders task lists for the terminal.
package report

import (
	"sort"

	"github.com/bryan-cox/giskard/internal/model"
)

// ProjectGroups holds tasks organized by their +project markers.
type ProjectGroups struct {
	Projects   []string                       // sorted project names
	ByProject  map[string][]model.IndexedTask // project -> tasks, in list order
	Unassigned []model.IndexedTask            // tasks without any project
}

// GroupByProject files every task under each project it names. A task with
// several projects shows up in each of them; a repeated project only once.
func GroupByProject(tasks []model.IndexedTask) ProjectGroups {
	groups := ProjectGroups{ByProject: make(map[string][]model.IndexedTask)}

	for _, task := range tasks {
		if len(task.Projects) == 0 {
			groups.Unassigned = append(groups.Unassigned, task)
			continue
		}
		seen := make(map[string]bool, len(task.Projects))
		for _, project := range task.Projects {
			if seen[project] {
				continue
			}
			seen[project] = true
			groups.ByProject[project] = append(groups.ByProject[project], task)
		}
	}

	for project := range groups.ByProject {
		groups.Projects = append(groups.Projects, project)
	}
	sort.Strings(groups.Projects)
	return groups
}

// SortByPriority orders tasks by priority, A first and unprioritized last,
// keeping list order within a priority.
func SortByPriority(tasks []model.IndexedTask) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return priorityRank(tasks[i].Priority) < priorityRank(tasks[j].Priority)
	})
}

func priorityRank(p model.Priority) int {
	if p == model.NoPriority {
		return 27
	}
	return int(p)
}
