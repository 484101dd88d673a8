package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/keyward/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the background tasks",
	Long: `Show when each background task last ran, when it runs next and how
its last cycle ended, as recorded by 'keyward run'.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var (
	// historyLimit is how many past cycles status prints per task.
	historyLimit int

	// statusOutput selects the output format: text or yaml.
	statusOutput string
)

func init() {
	statusCmd.Flags().IntVarP(&historyLimit, "history", "n", 0, "also print the last N cycles of each task")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "text", "output format (text, yaml)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if statusService == nil {
		return errors.New("status service not configured")
	}

	switch statusOutput {
	case "text", "":
	case "yaml":
		return printStatusYAML(cmd)
	default:
		return fmt.Errorf("%w: unknown output format %q", domain.ErrInvalidInput, statusOutput)
	}

	tasks, err := statusService.Tasks(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if i > 0 {
			cmd.Println()
		}
		cmd.Printf("[%s]\n", task.Name)
		cmd.Printf("  Last run: %s\n", formatRelative(task.LastRun, now))
		cmd.Printf("  Last success: %s\n", formatRelative(task.LastSuccess, now))
		if task.NextRun.IsZero() {
			cmd.Println("  Next run: not scheduled")
		} else {
			cmd.Printf("  Next run: %s (%s)\n", formatDate(task.NextRun), formatRelative(task.NextRun, now))
		}
		if task.LastError != "" {
			cmd.Printf("  Last error: %s (attempt %d)\n", task.LastError, task.Attempt)
		}

		if historyLimit > 0 {
			if err := printHistory(cmd, task.ID, now); err != nil {
				return err
			}
		}
	}

	return nil
}

func printHistory(cmd *cobra.Command, taskID string, now time.Time) error {
	results, err := statusService.History(cmd.Context(), taskID, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(results) == 0 {
		cmd.Println("  History: none")
		return nil
	}

	cmd.Println("  History:")
	for _, result := range results {
		cmd.Printf("    %s  %s\n", formatRelative(result.StartedAt, now), describeResult(result))
	}
	return nil
}

func describeResult(result domain.TaskResult) string {
	if result.Success {
		return result.Detail
	}
	if result.Detail == "" {
		return "failed: " + result.Error
	}
	return result.Detail + ": " + result.Error
}

// taskReport is the machine-readable form of a journalled task.
type taskReport struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	LastRun     *time.Time     `yaml:"last_run,omitempty"`
	LastSuccess *time.Time     `yaml:"last_success,omitempty"`
	NextRun     *time.Time     `yaml:"next_run,omitempty"`
	LastError   string         `yaml:"last_error,omitempty"`
	Attempt     uint           `yaml:"attempt"`
	History     []resultReport `yaml:"history,omitempty"`
}

type resultReport struct {
	StartedAt time.Time `yaml:"started_at"`
	EndedAt   time.Time `yaml:"ended_at"`
	Success   bool      `yaml:"success"`
	Detail    string    `yaml:"detail,omitempty"`
	Error     string    `yaml:"error,omitempty"`
}

func printStatusYAML(cmd *cobra.Command) error {
	tasks, err := statusService.Tasks(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}

	reports := make([]taskReport, 0, len(tasks))
	for i := range tasks {
		task := &tasks[i]
		report := taskReport{
			ID:          task.ID,
			Name:        task.Name,
			LastRun:     optionalTime(task.LastRun),
			LastSuccess: optionalTime(task.LastSuccess),
			NextRun:     optionalTime(task.NextRun),
			LastError:   task.LastError,
			Attempt:     task.Attempt,
		}

		if historyLimit > 0 {
			results, err := statusService.History(cmd.Context(), task.ID, historyLimit)
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}
			for _, result := range results {
				report.History = append(report.History, resultReport{
					StartedAt: result.StartedAt.UTC(),
					EndedAt:   result.EndedAt.UTC(),
					Success:   result.Success,
					Detail:    result.Detail,
					Error:     result.Error,
				})
			}
		}
		reports = append(reports, report)
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(map[string][]taskReport{"tasks": reports}); err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	return enc.Close()
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}
