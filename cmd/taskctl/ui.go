package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"

	"taskboard/internal/models"
)

var (
	colorPass   = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	colorFail   = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	colorAccent = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}

	passStyle   = lipgloss.NewStyle().Foreground(colorPass)
	failStyle   = lipgloss.NewStyle().Foreground(colorFail)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

const (
	iconPass = "✓"
	iconFail = "✗"
	iconInfo = "ℹ"
)

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, passStyle.Render(iconPass+" "+fmt.Sprintf(format, args...)))
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, failStyle.Render(iconFail+" "+err.Error()))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, mutedStyle.Render(iconInfo+" "+fmt.Sprintf(format, args...)))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

func renderTasks(w io.Writer, tasks []models.TaskView) {
	if len(tasks) == 0 {
		printInfo(w, "no tasks found")
		return
	}
	rows := lo.Map(tasks, func(t models.TaskView, _ int) []string {
		return []string{t.ID, t.Title, t.AssignedToName, t.StatusName, t.PriorityName}
	})
	fmt.Fprintln(w, renderTable([]string{"ID", "Title", "Assigned To", "Status", "Priority"}, rows))
}

func renderTask(w io.Writer, t models.TaskView) {
	rows := [][]string{
		{"ID", t.ID},
		{"Title", t.Title},
		{"Description", t.Description},
		{"Status", t.StatusName},
		{"Priority", t.PriorityName},
		{"Assigned To", t.AssignedToName},
		{"Story Points", strconv.Itoa(t.StoryPoints)},
		{"Estimated Hours", strconv.Itoa(t.EstimatedHours)},
		{"Due", t.DueDate.Format(dateLayout)},
		{"Epic", t.EpicName},
		{"Sprint", t.SprintName},
	}
	if t.CompletedAt != nil {
		rows = append(rows, []string{"Completed", t.CompletedAt.Format("2006-01-02 15:04")})
	}
	fmt.Fprintln(w, renderTable([]string{"Field", "Value"}, rows))
}

func renderEpics(w io.Writer, epics []models.Epic) {
	if len(epics) == 0 {
		printInfo(w, "no epics found")
		return
	}
	rows := lo.Map(epics, func(e models.Epic, _ int) []string {
		return []string{e.ID, e.Name, strconv.Itoa(e.StoryPoints), e.StartDate.Format(dateLayout), e.TargetEndDate.Format(dateLayout)}
	})
	fmt.Fprintln(w, renderTable([]string{"ID", "Name", "Points", "Start", "Target End"}, rows))
}

func renderSprints(w io.Writer, sprints []models.Sprint) {
	if len(sprints) == 0 {
		printInfo(w, "no sprints found")
		return
	}
	rows := lo.Map(sprints, func(sp models.Sprint, _ int) []string {
		state := "planned"
		if sp.Active {
			state = "active"
		}
		return []string{sp.ID, sp.Name, state, strconv.Itoa(sp.CapacityPoints), sp.StartDate.Format(dateLayout), sp.EndDate.Format(dateLayout)}
	})
	fmt.Fprintln(w, renderTable([]string{"ID", "Name", "State", "Capacity", "Start", "End"}, rows))
}

func renderStats(w io.Writer, stats map[string]int64) {
	names := lo.Keys(stats)
	sort.Strings(names)
	rows := lo.Map(names, func(name string, _ int) []string {
		return []string{name, strconv.FormatInt(stats[name], 10)}
	})
	fmt.Fprintln(w, renderTable([]string{"Status", "Tasks"}, rows))
}
