package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/metalagman/clawpm/internal/backlog"
	"github.com/metalagman/clawpm/internal/task"
)

type seedFile struct {
	Domains []struct {
		Name       string   `yaml:"name"`
		TaskPrefix string   `yaml:"task_prefix"`
		Keywords   []string `yaml:"keywords"`
		Color      string   `yaml:"color"`
	} `yaml:"domains"`
	Milestones []struct {
		Name        string `yaml:"name"`
		TargetDate  string `yaml:"target_date"`
		Description string `yaml:"description"`
	} `yaml:"milestones"`
	Members []struct {
		Name       string `yaml:"name"`
		Identifier string `yaml:"identifier"`
		Type       string `yaml:"type"`
	} `yaml:"members"`
	Tasks   []seedTask `yaml:"tasks"`
	Backlog []struct {
		Title    string   `yaml:"title"`
		Domain   string   `yaml:"domain"`
		Priority string   `yaml:"priority"`
		Tags     []string `yaml:"tags"`
	} `yaml:"backlog"`
}

type seedTask struct {
	Title     string     `yaml:"title"`
	Domain    string     `yaml:"domain"`
	Milestone string     `yaml:"milestone"`
	Priority  string     `yaml:"priority"`
	Owner     string     `yaml:"owner"`
	DueDate   string     `yaml:"due_date"`
	Labels    []string   `yaml:"labels"`
	Tags      []string   `yaml:"tags"`
	Children  []seedTask `yaml:"children"`
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Import domains, milestones, members and tasks from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			var seed seedFile
			if err := yaml.Unmarshal(raw, &seed); err != nil {
				return fmt.Errorf("parse seed file: %w", err)
			}

			svcs, _, err := openServices()
			if err != nil {
				return err
			}
			defer svcs.Close()

			ctx := cmd.Context()
			for _, d := range seed.Domains {
				if _, err := svcs.catalog.CreateDomain(ctx, d.Name, d.TaskPrefix, d.Keywords, d.Color); err != nil {
					return fmt.Errorf("domain %s: %w", d.Name, err)
				}
			}
			for _, m := range seed.Milestones {
				if _, err := svcs.catalog.CreateMilestone(ctx, m.Name, m.TargetDate, m.Description); err != nil {
					return fmt.Errorf("milestone %s: %w", m.Name, err)
				}
			}
			for _, m := range seed.Members {
				if _, err := svcs.catalog.CreateMember(ctx, m.Name, m.Identifier, m.Type, "", ""); err != nil {
					return fmt.Errorf("member %s: %w", m.Identifier, err)
				}
			}
			count := 0
			for _, st := range seed.Tasks {
				if err := seedTaskTree(ctx, svcs.tasks, st, "", &count); err != nil {
					return err
				}
			}
			for _, b := range seed.Backlog {
				if _, err := svcs.backlog.Create(ctx, backlog.CreateParams{
					Title:    b.Title,
					Domain:   b.Domain,
					Priority: b.Priority,
					Tags:     b.Tags,
				}); err != nil {
					return fmt.Errorf("backlog %q: %w", b.Title, err)
				}
			}
			log.Info().
				Int("domains", len(seed.Domains)).
				Int("milestones", len(seed.Milestones)).
				Int("members", len(seed.Members)).
				Int("tasks", count).
				Int("backlog", len(seed.Backlog)).
				Msg("seed imported")
			return nil
		},
	}
}

func seedTaskTree(ctx context.Context, tasks *task.Service, st seedTask, parentID string, count *int) error {
	created, err := tasks.Create(ctx, task.CreateParams{
		Title:        st.Title,
		Domain:       st.Domain,
		Milestone:    st.Milestone,
		Priority:     st.Priority,
		Owner:        st.Owner,
		DueDate:      st.DueDate,
		Labels:       st.Labels,
		Tags:         st.Tags,
		ParentTaskID: parentID,
	})
	if err != nil {
		return fmt.Errorf("task %q: %w", st.Title, err)
	}
	*count++
	for _, child := range st.Children {
		if err := seedTaskTree(ctx, tasks, child, created.TaskID, count); err != nil {
			return err
		}
	}
	return nil
}
