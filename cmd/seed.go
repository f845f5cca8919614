package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/container"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/fixtures"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/service"
	"github.com/spf13/cobra"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo data from a YAML fixtures file",
	Long: `Load machines, workers, tasks and maintenance records from a YAML file.
Existing machines and workers are skipped; tasks and maintenance records are
always created, so run it once against an empty database.
With --rebase the fixture times are shifted so that the file's base date
becomes today (UTC).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		file, _ := cmd.Flags().GetString("file")
		fx, err := fixtures.Load(file)
		if err != nil {
			return err
		}
		if rebase, _ := cmd.Flags().GetBool("rebase"); rebase {
			fx.Rebase(time.Now().UTC().Truncate(24 * time.Hour))
		}

		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		svcs := ctr.Services()
		sum, err := fixtures.Apply(context.Background(), fx, fixtures.Services{
			Machine:     svcs.Machine,
			Worker:      svcs.Worker,
			Task:        svcs.Task,
			Maintenance: svcs.Maintenance,
		}, service.SystemActor, logger)
		if err != nil {
			return fmt.Errorf("failed to seed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d machines, %d workers, %d tasks, %d maintenance records (%d skipped)\n",
			sum.Machines, sum.Workers, sum.Tasks, sum.Maintenance, sum.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().String("file", "config/fixtures.yaml", "Fixtures file path")
	seedCmd.Flags().Bool("rebase", false, "Shift fixture times so the base date becomes today")
}
