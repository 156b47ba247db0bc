package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/metalagman/clawpm/internal/backlog"
)

func backlogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backlog",
		Short: "Manage the backlog pool",
	}
	cmd.AddCommand(backlogAddCmd())
	cmd.AddCommand(backlogListCmd())
	cmd.AddCommand(backlogScheduleCmd())
	return cmd
}

func backlogAddCmd() *cobra.Command {
	var p backlog.CreateParams
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Pool a requirement",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, _, err := openServices()
			if err != nil {
				return err
			}
			defer svcs.Close()

			p.Title = strings.TrimSpace(strings.Join(args, " "))
			item, err := svcs.backlog.Create(cmd.Context(), p)
			if err != nil {
				return err
			}
			log.Info().Msgf("backlog item %s added", item.BacklogID)
			return nil
		},
	}
	cmd.Flags().StringVar(&p.Domain, "domain", "", "domain name")
	cmd.Flags().StringVar(&p.Priority, "priority", "", "priority (P0-P3)")
	cmd.Flags().StringVar(&p.Source, "source", "", "where the requirement came from")
	cmd.Flags().StringArrayVar(&p.Tags, "tag", nil, "tag (repeatable)")
	return cmd
}

func backlogListCmd() *cobra.Command {
	var f backlog.Filters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backlog items",
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, _, err := openServices()
			if err != nil {
				return err
			}
			defer svcs.Close()

			items, err := svcs.backlog.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				log.Info().Msg("backlog is empty")
				return nil
			}
			for _, item := range items {
				_, _ = io.WriteString(os.Stdout, fmt.Sprintf("%s\t%s\t%s\t%s\n",
					item.BacklogID, item.Priority, item.Status, item.Title))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.Domain, "domain", "", "filter by domain")
	cmd.Flags().StringVar(&f.Priority, "priority", "", "filter by priority")
	cmd.Flags().StringVar(&f.Status, "status", "", "filter by status")
	return cmd
}

func backlogScheduleCmd() *cobra.Command {
	var p backlog.ScheduleParams
	cmd := &cobra.Command{
		Use:   "schedule <backlog-id>",
		Short: "Promote a backlog item into a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, _, err := openServices()
			if err != nil {
				return err
			}
			defer svcs.Close()

			t, err := svcs.backlog.Schedule(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}
			log.Info().Msgf("backlog item %s scheduled as task %s", args[0], t.TaskID)
			return nil
		},
	}
	cmd.Flags().StringVar(&p.Milestone, "milestone", "", "milestone name")
	cmd.Flags().StringVar(&p.Owner, "owner", "", "owner identifier")
	cmd.Flags().StringVar(&p.DueDate, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&p.Priority, "priority", "", "priority override")
	return cmd
}
