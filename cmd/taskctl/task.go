package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"taskboard/internal/client"
	"taskboard/internal/models"
)

// taskFields are the editable task fields shared by create and update.
type taskFields struct {
	title       string
	description string
	assignee    string
	status      string
	priority    string
	points      int
	hours       int
	due         string
	epic        string
	sprint      string
}

func (f *taskFields) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Task title")
	cmd.Flags().StringVar(&f.description, "description", "", "Task description")
	cmd.Flags().StringVar(&f.assignee, "assignee", "me", "Assignee user id, or \"me\"")
	cmd.Flags().StringVar(&f.status, "status", models.StatusBacklog, "Status name or id")
	cmd.Flags().StringVar(&f.priority, "priority", "MEDIUM", "Priority name or id")
	cmd.Flags().IntVar(&f.points, "points", 0, "Story points")
	cmd.Flags().IntVar(&f.hours, "hours", 0, "Estimated hours")
	cmd.Flags().StringVar(&f.due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.epic, "epic", "", "Epic id, empty for none")
	cmd.Flags().StringVar(&f.sprint, "sprint", "", "Sprint id, empty for none")
}

// apply overlays the flags that were set on in. With all=true every flag is applied.
func (f *taskFields) apply(ctx context.Context, a *app, api *client.Client, cmd *cobra.Command, in *models.TaskInput, all bool) error {
	set := func(name string) bool { return all || cmd.Flags().Changed(name) }

	if set("title") {
		in.Title = f.title
	}
	if set("description") {
		in.Description = f.description
	}
	if set("assignee") {
		in.AssignedToID = a.userRef(f.assignee)
	}
	if set("status") {
		id, err := resolveStatus(ctx, api, f.status)
		if err != nil {
			return err
		}
		in.StatusID = id
	}
	if set("priority") {
		id, err := resolvePriority(ctx, api, f.priority)
		if err != nil {
			return err
		}
		in.PriorityID = id
	}
	if set("points") {
		in.StoryPoints = f.points
	}
	if set("hours") {
		in.EstimatedHours = f.hours
	}
	if set("due") {
		due, err := parseDate(f.due)
		if err != nil {
			return fmt.Errorf("--due: %w", err)
		}
		in.DueDate = due
	}
	if set("epic") {
		in.EpicID = optional(f.epic)
	}
	if set("sprint") {
		in.SprintID = optional(f.sprint)
	}
	return nil
}

func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		GroupID: "work",
		Short:   "Create, change and query tasks",
	}
	cmd.AddCommand(
		newTaskListCmd(a),
		newTaskGetCmd(a),
		newTaskCreateCmd(a),
		newTaskUpdateCmd(a),
		newTaskDeleteCmd(a),
		newTaskFilterCmd(a),
		taskQueryCmd(a, "my", "List your unfinished tasks", func(ctx context.Context, api *client.Client) ([]models.TaskView, error) {
			return api.MyTasks(ctx)
		}),
		taskQueryCmd(a, "overdue", "List unfinished tasks past their due date", func(ctx context.Context, api *client.Client) ([]models.TaskView, error) {
			return api.Overdue(ctx)
		}),
		newTaskRecentCmd(a),
		newSprintStatsCmd(a),
		taskChangeCmd(a, "status <task-id> <status>", "Move a task to another status", 2,
			func(ctx context.Context, api *client.Client, args []string) (models.TaskView, error) {
				statusID, err := resolveStatus(ctx, api, args[1])
				if err != nil {
					return models.TaskView{}, err
				}
				return api.ChangeStatus(ctx, args[0], statusID)
			}),
		taskChangeCmd(a, "assign <task-id> <user-id|me>", "Assign a task to a user", 2,
			func(ctx context.Context, api *client.Client, args []string) (models.TaskView, error) {
				return api.Assign(ctx, args[0], a.userRef(args[1]))
			}),
		taskChangeCmd(a, "add-to-sprint <task-id> <sprint-id>", "Add a task to an active sprint", 2,
			func(ctx context.Context, api *client.Client, args []string) (models.TaskView, error) {
				return api.AddToSprint(ctx, args[0], args[1])
			}),
		taskChangeCmd(a, "remove-from-sprint <task-id>", "Remove a task from its sprint", 1,
			func(ctx context.Context, api *client.Client, args []string) (models.TaskView, error) {
				return api.RemoveFromSprint(ctx, args[0])
			}),
		taskChangeCmd(a, "add-to-epic <task-id> <epic-id>", "Attach a task to an epic", 2,
			func(ctx context.Context, api *client.Client, args []string) (models.TaskView, error) {
				return api.AddToEpic(ctx, args[0], args[1])
			}),
		taskChangeCmd(a, "remove-from-epic <task-id>", "Detach a task from its epic", 1,
			func(ctx context.Context, api *client.Client, args []string) (models.TaskView, error) {
				return api.RemoveFromEpic(ctx, args[0])
			}),
	)
	return cmd
}

func newTaskListCmd(a *app) *cobra.Command {
	var assignee, epic, sprint string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, optionally for one assignee, epic or sprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			var tasks []models.TaskView
			switch {
			case assignee != "":
				tasks, err = api.TasksByAssignee(ctx, a.userRef(assignee))
			case epic != "":
				tasks, err = api.TasksByEpic(ctx, epic)
			case sprint != "":
				tasks, err = api.TasksBySprint(ctx, sprint)
			default:
				tasks, err = api.ListTasks(ctx)
			}
			if err != nil {
				return err
			}
			return a.emit(tasks, func() { renderTasks(a.out, tasks) })
		},
	}
	cmd.Flags().StringVar(&assignee, "assignee", "", "Only tasks assigned to this user id, or \"me\"")
	cmd.Flags().StringVar(&epic, "epic", "", "Only tasks of this epic")
	cmd.Flags().StringVar(&sprint, "sprint", "", "Only tasks of this sprint")
	cmd.MarkFlagsMutuallyExclusive("assignee", "epic", "sprint")
	return cmd
}

func newTaskGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <task-id>",
		Short: "Show one task",
		Args:  requireArgs("task-id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			t, err := api.GetTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.emit(t, func() { renderTask(a.out, t) })
		},
	}
}

func newTaskCreateCmd(a *app) *cobra.Command {
	var fields taskFields
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			var in models.TaskInput
			if err := fields.apply(cmd.Context(), a, api, cmd, &in, true); err != nil {
				return err
			}
			t, err := api.CreateTask(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.emit(t, func() { printSuccess(a.out, "created task %s", t.ID) })
		},
	}
	fields.register(cmd)
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func newTaskUpdateCmd(a *app) *cobra.Command {
	var fields taskFields
	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Change task fields; flags that are not given keep their value",
		Args:  requireArgs("task-id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			current, err := api.GetTask(ctx, args[0])
			if err != nil {
				return err
			}
			in := inputFromView(current)
			if err := fields.apply(ctx, a, api, cmd, &in, false); err != nil {
				return err
			}
			t, err := api.UpdateTask(ctx, args[0], in)
			if err != nil {
				return err
			}
			return a.emit(t, func() { printSuccess(a.out, "updated task %s", t.ID) })
		},
	}
	fields.register(cmd)
	return cmd
}

func newTaskDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task permanently",
		Args:  requireArgs("task-id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			if err := api.DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.emit(map[string]string{"deleted": args[0]}, func() { printSuccess(a.out, "deleted task %s", args[0]) })
		},
	}
}

func newTaskFilterCmd(a *app) *cobra.Command {
	var assignee, status, priority, sprint, epic string
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "List tasks matching every given criterion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			f := models.TaskFilter{SprintID: optional(sprint), EpicID: optional(epic)}
			if assignee != "" {
				f.AssignedToID = lo.ToPtr(a.userRef(assignee))
			}
			if status != "" {
				id, err := resolveStatus(ctx, api, status)
				if err != nil {
					return err
				}
				f.StatusID = &id
			}
			if priority != "" {
				id, err := resolvePriority(ctx, api, priority)
				if err != nil {
					return err
				}
				f.PriorityID = &id
			}
			tasks, err := api.FilterTasks(ctx, f)
			if err != nil {
				return err
			}
			return a.emit(tasks, func() { renderTasks(a.out, tasks) })
		},
	}
	cmd.Flags().StringVar(&assignee, "assignee", "", "Assignee user id, or \"me\"")
	cmd.Flags().StringVar(&status, "status", "", "Status name or id")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority name or id")
	cmd.Flags().StringVar(&sprint, "sprint", "", "Sprint id")
	cmd.Flags().StringVar(&epic, "epic", "", "Epic id")
	return cmd
}

func newTaskRecentCmd(a *app) *cobra.Command {
	var hours int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently updated tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			tasks, err := api.Recent(cmd.Context(), hours)
			if err != nil {
				return err
			}
			return a.emit(tasks, func() { renderTasks(a.out, tasks) })
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 24, "Look-back window in hours")
	return cmd
}

func newSprintStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sprint-stats <sprint-id>",
		Short: "Count a sprint's tasks per status",
		Args:  requireArgs("sprint-id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			stats, err := api.SprintStats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.emit(stats, func() { renderStats(a.out, stats) })
		},
	}
}

func taskQueryCmd(a *app, use, short string, query func(context.Context, *client.Client) ([]models.TaskView, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			tasks, err := query(cmd.Context(), api)
			if err != nil {
				return err
			}
			return a.emit(tasks, func() { renderTasks(a.out, tasks) })
		},
	}
}

func taskChangeCmd(a *app, use, short string, nargs int, change func(context.Context, *client.Client, []string) (models.TaskView, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			t, err := change(cmd.Context(), api, args)
			if err != nil {
				return err
			}
			return a.emit(t, func() {
				printSuccess(a.out, "task %s: status=%s assignee=%s sprint=%s epic=%s",
					t.ID, t.StatusName, t.AssignedToName, orNone(t.SprintName), orNone(t.EpicName))
			})
		},
	}
}

func inputFromView(t models.TaskView) models.TaskInput {
	return models.TaskInput{
		Title:          t.Title,
		Description:    t.Description,
		AssignedToID:   t.AssignedToID,
		StatusID:       t.StatusID,
		PriorityID:     t.PriorityID,
		StoryPoints:    t.StoryPoints,
		EstimatedHours: t.EstimatedHours,
		DueDate:        t.DueDate,
		EpicID:         t.EpicID,
		SprintID:       t.SprintID,
	}
}

// userRef turns "me" into the signed-in user's id.
func (a *app) userRef(v string) string {
	if v == "" || strings.EqualFold(v, "me") {
		return a.session.UserID
	}
	return v
}

func resolveStatus(ctx context.Context, api *client.Client, v string) (string, error) {
	if _, err := uuid.Parse(v); err == nil {
		return v, nil
	}
	statuses, err := api.ListStatuses(ctx)
	if err != nil {
		return "", err
	}
	st, ok := lo.Find(statuses, func(st models.TaskStatus) bool { return sameName(st.Name, v) })
	if !ok {
		return "", fmt.Errorf("unknown status %q, one of: %s", v,
			strings.Join(lo.Map(statuses, func(st models.TaskStatus, _ int) string { return st.Name }), ", "))
	}
	return st.ID, nil
}

func resolvePriority(ctx context.Context, api *client.Client, v string) (string, error) {
	if _, err := uuid.Parse(v); err == nil {
		return v, nil
	}
	priorities, err := api.ListPriorities(ctx)
	if err != nil {
		return "", err
	}
	p, ok := lo.Find(priorities, func(p models.TaskPriority) bool { return sameName(p.Name, v) })
	if !ok {
		return "", fmt.Errorf("unknown priority %q, one of: %s", v,
			strings.Join(lo.Map(priorities, func(p models.TaskPriority, _ int) string { return p.Name }), ", "))
	}
	return p.ID, nil
}

// sameName matches "in progress", "in-progress" and "IN_PROGRESS".
func sameName(name, v string) bool {
	norm := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.TrimSpace(v))
	return strings.EqualFold(name, norm)
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("want YYYY-MM-DD or RFC 3339, got %q", v)
	}
	return t.UTC(), nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func orNone(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
