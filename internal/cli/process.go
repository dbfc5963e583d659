package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkrawiec/textsync/internal/engine"
	"github.com/mkrawiec/textsync/pkg/models"
)

var (
	processTaskID int64
	processItemID int64
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the AI correction pass over a synchronized task",
	Long: `Run the AI correction pass over the oldest synchronized task (or the
one given with --task). With --item, reprocess a single pending item of
the given task instead of a batch.`,
	Args: cobra.NoArgs,
	RunE: runProcess,
}

func init() {
	processCmd.Flags().Int64Var(&processTaskID, "task", 0, "process this specific task")
	processCmd.Flags().Int64Var(&processItemID, "item", 0, "process a single item (requires --task)")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	eng := newEngine()
	ctx := cmd.Context()

	if processItemID > 0 {
		if processTaskID == 0 {
			return fmt.Errorf("--item requires --task")
		}
		if err := eng.ProcessItem(ctx, processTaskID, processItemID); err != nil {
			return err
		}
		fmt.Printf("Item %d of task %d processed\n", processItemID, processTaskID)
		return nil
	}

	var (
		task *models.Task
		err  error
	)
	if processTaskID > 0 {
		task, err = st.GetTask(ctx, processTaskID)
		if err == nil {
			err = eng.Process(ctx, task)
		}
	} else {
		task, err = eng.ProcessNext(ctx)
	}

	switch {
	case errors.Is(err, engine.ErrNoTask):
		fmt.Println("No synchronized task waiting for processing")
		return nil
	case errors.Is(err, engine.ErrInterrupted):
		fmt.Printf("Task %d interrupted\n", task.ID)
		return nil
	case err != nil:
		return err
	}

	if fresh, ferr := st.GetTask(ctx, task.ID); ferr == nil {
		task = fresh
	}
	fmt.Printf("Task %d processed: status %s, %d of %d records done\n",
		task.ID, task.Status, task.RecordsProcessed, task.RecordsFetched)
	return nil
}
