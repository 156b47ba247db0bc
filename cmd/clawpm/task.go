package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/metalagman/clawpm/internal/task"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(taskAddCmd())
	cmd.AddCommand(taskShowCmd())
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskTreeCmd())
	cmd.AddCommand(taskProgressCmd())
	cmd.AddCommand(taskDoneCmd())
	cmd.AddCommand(taskBlockCmd())
	cmd.AddCommand(taskMoveCmd())
	cmd.AddCommand(taskNextCmd())
	cmd.AddCommand(taskLinkCmd())
	return cmd
}

func taskAddCmd() *cobra.Command {
	var p task.CreateParams
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, _, err := openServices()
			if err != nil {
				return err
			}
			defer svcs.Close()

			p.Title = strings.TrimSpace(strings.Join(args, " "))
			created, err := svcs.tasks.Create(cmd.Context(), p)
			if err != nil {
				return err
			}
			log.Info().Msgf("task %s added", created.TaskID)
			return nil
		},
	}
	cmd.Flags().StringVar(&p.Domain, "domain", "", "domain name")
	cmd.Flags().StringVar(&p.Milestone, "milestone", "", "milestone name")
	cmd.Flags().StringVar(&p.Priority, "priority", "", "priority (P0-P3)")
	cmd.Flags().StringVar(&p.Owner, "owner", "", "owner identifier")
	cmd.Flags().StringVar(&p.DueDate, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&p.ParentTaskID, "parent", "", "parent task id")
	cmd.Flags().StringArrayVar(&p.Labels, "label", nil, "label (repeatable)")
	cmd.Flags().StringArrayVar(&p.Tags, "tag", nil, "tag (repeatable)")
	return cmd
}

func taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, _, err := openServices()
			if err != nil {
				return err
			}
			defer svcs.Close()

			t, err := svcs.tasks.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(t)
		},
	}
}

func taskListCmd() *cobra.Command {
	var f task.Filters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, _, err := openServices()
			if err != nil {
				return err
			}
			defer svcs.Close()

			tasks, err := svcs.tasks.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				log.Info().Msg("no tasks")
				return nil
			}
			for _, t := range tasks {
				owner := t.Owner
				if owner == "" {
					owner = "-"
				}
				_, _ = io.WriteString(os.Stdout, fmt.Sprintf("%s\t%s\t%s\t%3d%%\t%s\t%s\n",
					t.TaskID, t.Priority, t.Status, t.Progress, owner, t.Title))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.Domain, "domain", "", "filter by domain")
	cmd.Flags().StringVar(&f.Milestone, "milestone", "", "filter by milestone")
	cmd.Flags().StringVar(&f.Status, "status", "", "filter by status")
	cmd.Flags().StringVar(&f.Owner, "owner", "", "filter by owner")
	cmd.Flags().StringVar(&f.Priority, "priority", "", "filter by priority")
	cmd.Flags().StringVar(&f.Label, "label", "", "filter by label")
	return cmd
}

func taskTreeCmd() *cobra.Command {
	var f task.Filters
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the task hierarchy",
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, _, err := openServices()
			if err != nil {
				return err
			}
			defer svcs.Close()

			roots, err := svcs.tasks.GetTree(cmd.Context(), f)
			if err != nil {
				return err
			}
			if len(roots) == 0 {
				log.Info().Msg("no tasks")
				return nil
			}
			printTree(roots, 0)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "filter by status")
	cmd.Flags().StringVar(&f.Domain, "domain", "", "filter by domain")
	cmd.Flags().StringVar(&f.Label, "label", "", "filter by label")
	return cmd
}

func printTree(nodes []*task.TreeNode, depth int) {
	for _, n := range nodes {
		_, _ = io.WriteString(os.Stdout, fmt.Sprintf("%s%s\t%s\t%s\n",
			strings.Repeat("  ", depth), n.TaskID, n.Status, n.Title))
		printTree(n.Children, depth+1)
	}
}

func taskProgressCmd() *cobra.Command {
	var summary string
	var progress int
	cmd := &cobra.Command{
		Use:   "progress <task-id>",
		Short: "Record progress on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, _, err := openServices()
			if err != nil {
				return err
			}
			defer svcs.Close()

			t, err := svcs.tasks.UpdateProgress(cmd.Context(), args[0], progress, summary)
			if err != nil {
				return err
			}
			log.Info().Msgf("task %s at %d%% (%s)", t.TaskID, t.Progress, t.Status)
			return nil
		},
	}
	cmd.Flags().IntVar(&progress, "percent", 0, "progress percentage (0-100)")
	cmd.Flags().StringVar(&summary, "summary", "", "what was done")
	_ = cmd.MarkFlagRequired("percent")
	return cmd
}

func taskDoneCmd() *cobra.Command {
	var summary string
	cmd := &cobra.Command{
		Use:   "done <task-id>",
		Short: "Complete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, _, err := openServices()
			if err != nil {
				return err
			}
			defer svcs.Close()

			t, err := svcs.tasks.Complete(cmd.Context(), args[0], summary)
			if err != nil {
				return err
			}
			log.Info().Msgf("task %s done", t.TaskID)
			return nil
		},
	}
	cmd.Flags().StringVar(&summary, "summary", "", "completion summary")
	return cmd
}

func taskBlockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "block <task-id> <blocker>",
		Short: "Report a blocker on a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, _, err := openServices()
			if err != nil {
				return err
			}
			defer svcs.Close()

			t, err := svcs.tasks.ReportBlocker(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			log.Info().Msgf("task %s blocked (health %d)", t.TaskID, t.HealthScore)
			return nil
		},
	}
	return cmd
}

func taskMoveCmd() *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "move <task-id>",
		Short: "Move a task under a new parent (or detach it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, _, err := openServices()
			if err != nil {
				return err
			}
			defer svcs.Close()

			t, err := svcs.tasks.Reparent(cmd.Context(), args[0], parent)
			if err != nil {
				return err
			}
			if t.ParentID == nil {
				log.Info().Msgf("task %s detached", t.TaskID)
			} else {
				log.Info().Msgf("task %s moved under %s", t.TaskID, parent)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "new parent task id, empty to detach")
	return cmd
}

func taskNextCmd() *cobra.Command {
	var owner, domain string
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Recommend the next task to work on",
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, _, err := openServices()
			if err != nil {
				return err
			}
			defer svcs.Close()

			t, err := svcs.tasks.RecommendNext(cmd.Context(), owner, domain)
			if err != nil {
				return err
			}
			if t == nil {
				log.Info().Msg("no open tasks match")
				return nil
			}
			_, _ = io.WriteString(os.Stdout, fmt.Sprintf("%s\t%s\t%s\n", t.TaskID, t.Priority, t.Title))
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner identifier")
	cmd.Flags().StringVar(&domain, "domain", "", "domain name")
	return cmd
}

func taskLinkCmd() *cobra.Command {
	var linkType string
	cmd := &cobra.Command{
		Use:   "link <source-id> <target-id>",
		Short: "Link two tasks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, _, err := openServices()
			if err != nil {
				return err
			}
			defer svcs.Close()

			l, err := svcs.links.Create(cmd.Context(), args[0], args[1], linkType)
			if err != nil {
				return err
			}
			log.Info().Msgf("link %d: %s %s %s", l.ID, args[0], linkType, args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&linkType, "type", "relates", "link type (blocks|precedes|relates)")
	return cmd
}
