package main

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"taskboard/internal/models"
)

func newEpicCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "epic",
		GroupID: "plan",
		Short:   "List and create epics",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List epics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			epics, err := api.ListEpics(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(epics, func() { renderEpics(a.out, epics) })
		},
	}

	var in models.EpicInput
	var start, targetEnd string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an epic owned by you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			if in.StartDate, err = parseDate(start); err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			if in.TargetEndDate, err = parseDate(targetEnd); err != nil {
				return fmt.Errorf("--target-end: %w", err)
			}
			e, err := api.CreateEpic(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.emit(e, func() { printSuccess(a.out, "created epic %s (%s)", e.Name, e.ID) })
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "Epic name")
	create.Flags().StringVar(&in.Description, "description", "", "Epic description")
	create.Flags().IntVar(&in.StoryPoints, "points", 0, "Story points")
	create.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD)")
	create.Flags().StringVar(&targetEnd, "target-end", "", "Target end date (YYYY-MM-DD)")
	for _, name := range []string{"name", "description", "start", "target-end"} {
		_ = create.MarkFlagRequired(name)
	}

	cmd.AddCommand(list, create)
	return cmd
}

func newSprintCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sprint",
		GroupID: "plan",
		Short:   "List, create, start and end sprints",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List sprints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			sprints, err := api.ListSprints(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(sprints, func() { renderSprints(a.out, sprints) })
		},
	}

	var in models.SprintInput
	var start, end string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a sprint with you as scrum master",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			if in.StartDate, err = parseDate(start); err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			if in.EndDate, err = parseDate(end); err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			sp, err := api.CreateSprint(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.emit(sp, func() { printSuccess(a.out, "created sprint %s (%s)", sp.Name, sp.ID) })
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "Sprint name")
	create.Flags().StringVar(&in.Goal, "goal", "", "Sprint goal")
	create.Flags().IntVar(&in.CapacityPoints, "capacity", 0, "Capacity in story points")
	create.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD)")
	create.Flags().StringVar(&end, "end", "", "End date (YYYY-MM-DD)")
	for _, name := range []string{"name", "start", "end"} {
		_ = create.MarkFlagRequired(name)
	}

	startCmd := &cobra.Command{
		Use:   "start <sprint-id>",
		Short: "Activate a sprint so tasks can be added to it",
		Args:  requireArgs("sprint-id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			sp, err := api.StartSprint(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.emit(sp, func() { printSuccess(a.out, "sprint %s started", sp.Name) })
		},
	}

	endCmd := &cobra.Command{
		Use:   "end <sprint-id>",
		Short: "Close a sprint",
		Args:  requireArgs("sprint-id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			sp, err := api.EndSprint(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.emit(sp, func() { printSuccess(a.out, "sprint %s ended", sp.Name) })
		},
	}

	cmd.AddCommand(list, create, startCmd, endCmd)
	return cmd
}

func newRefCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ref",
		GroupID: "plan",
		Short:   "Show reference data",
	}
	statuses := &cobra.Command{
		Use:   "statuses",
		Short: "List task statuses in board order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			list, err := api.ListStatuses(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(list, func() {
				rows := lo.Map(list, func(s models.TaskStatus, _ int) []string {
					return []string{s.ID, s.Name, fmt.Sprint(s.DisplayOrder)}
				})
				fmt.Fprintln(a.out, renderTable([]string{"ID", "Name", "Order"}, rows))
			})
		},
	}
	priorities := &cobra.Command{
		Use:   "priorities",
		Short: "List task priorities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			list, err := api.ListPriorities(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(list, func() {
				rows := lo.Map(list, func(p models.TaskPriority, _ int) []string {
					return []string{p.ID, p.Name, fmt.Sprint(p.Value)}
				})
				fmt.Fprintln(a.out, renderTable([]string{"ID", "Name", "Value"}, rows))
			})
		},
	}
	cmd.AddCommand(statuses, priorities)
	return cmd
}

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "user",
		GroupID: "plan",
		Short:   "List users and manage roles",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			users, err := api.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(users, func() {
				rows := lo.Map(users, func(u models.User, _ int) []string {
					return []string{u.ID, u.Name, u.Email, u.RoleName}
				})
				fmt.Fprintln(a.out, renderTable([]string{"ID", "Name", "Email", "Role"}, rows))
			})
		},
	}
	role := &cobra.Command{
		Use:   "role <user-id> <role>",
		Short: "Change a user's role (admin only)",
		Args:  requireArgs("user-id", "role"),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			u, err := api.ChangeUserRole(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.emit(u, func() { printSuccess(a.out, "%s is now %s", u.Name, u.RoleName) })
		},
	}
	cmd.AddCommand(list, role)
	return cmd
}
