package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkrawiec/textsync/internal/engine"
	"github.com/mkrawiec/textsync/pkg/models"
)

var runTaskID int64

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Claim a task and run a full sync plus AI cycle",
	Long: `Claim the oldest eligible task (or the one given with --task), run the
reconciliation pass and immediately follow up with the AI correction pass.
This is the mode a cron or systemd timer invokes.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Int64Var(&runTaskID, "task", 0, "claim this specific task instead of the oldest eligible one")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	eng := newEngine()
	ctx := cmd.Context()

	var (
		task *models.Task
		err  error
	)
	if runTaskID > 0 {
		task, err = eng.SyncTask(ctx, runTaskID)
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

	if err := eng.Process(ctx, task); err != nil {
		if errors.Is(err, engine.ErrInterrupted) {
			fmt.Printf("Task %d interrupted\n", task.ID)
			return nil
		}
		return err
	}

	if fresh, ferr := st.GetTask(ctx, task.ID); ferr == nil {
		task = fresh
	}
	fmt.Printf("Task %d finished: status %s, %d of %d records done\n",
		task.ID, task.Status, task.RecordsProcessed, task.RecordsFetched)
	return nil
}
