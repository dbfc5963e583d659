package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var statusTaskID int64

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a task's stage, progress and item breakdown",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Int64Var(&statusTaskID, "task", 0, "task to inspect")
	statusCmd.MarkFlagRequired("task") //nolint:errcheck // flag exists
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	task, err := st.GetTask(ctx, statusTaskID)
	if err != nil {
		return err
	}
	counts, err := st.CountItemsByStatus(ctx, task.ID)
	if err != nil {
		return err
	}

	fmt.Printf("Task %d: %s\n", task.ID, task.Name)
	fmt.Printf("  status:     %s\n", task.Status)
	fmt.Printf("  stage:      %s (%.0f%%)\n", task.SyncStage, task.SyncProgress)
	fmt.Printf("  source:     %s.%s (key %s)\n", task.TableName, task.ColumnName, task.IDColumnName)
	fmt.Printf("  records:    %d total, %d fetched, %d processed\n",
		task.RecordsTotal, task.RecordsFetched, task.RecordsProcessed)
	fmt.Printf("  changes:    %d new, %d updated, %d outdated\n",
		task.RecordsNew, task.RecordsUpdated, task.RecordsDeleted)
	if task.StartedAt != nil {
		fmt.Printf("  started:    %s\n", task.StartedAt.Format(time.RFC3339))
	}
	if task.FinishedAt != nil {
		fmt.Printf("  finished:   %s (%.1fs)\n",
			task.FinishedAt.Format(time.RFC3339), float64(task.TotalTimeMs)/1000)
	}

	if len(counts) > 0 {
		fmt.Println("  items:")
		statuses := make([]string, 0, len(counts))
		for status := range counts {
			statuses = append(statuses, status)
		}
		sort.Strings(statuses)
		for _, status := range statuses {
			fmt.Printf("    %-12s %d\n", status, counts[status])
		}
	}

	if task.ErrorLog != "" {
		fmt.Printf("  errors:\n%s\n", indent(task.ErrorLog, "    "))
	}
	return nil
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
