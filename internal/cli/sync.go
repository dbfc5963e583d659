package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkrawiec/textsync/internal/engine"
	"github.com/mkrawiec/textsync/pkg/models"
)

var syncTaskID int64

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Claim a task and run its reconciliation pass",
	Long: `Claim the oldest eligible task (or the one given with --task) and run
the reconciliation stages against its source database. The AI pass is left
for a later process or run invocation.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().Int64Var(&syncTaskID, "task", 0, "claim this specific task instead of the oldest eligible one")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	eng := newEngine()
	ctx := cmd.Context()

	var (
		task *models.Task
		err  error
	)
	if syncTaskID > 0 {
		task, err = eng.SyncTask(ctx, syncTaskID)
	} else {
		task, err = eng.SyncNext(ctx)
	}

	switch {
	case errors.Is(err, engine.ErrNoTask):
		fmt.Println("No eligible task")
		return nil
	case errors.Is(err, engine.ErrInterrupted):
		fmt.Printf("Task %d interrupted, markers preserved\n", task.ID)
		return nil
	case err != nil:
		return err
	}

	fmt.Printf("Task %d synchronized: %d new, %d updated, %d outdated\n",
		task.ID, task.RecordsNew, task.RecordsUpdated, task.RecordsDeleted)
	return nil
}
