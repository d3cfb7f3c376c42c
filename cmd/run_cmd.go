package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chromlab/nucleosim/experiment"
)

var runFlags modelFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run trials of one configuration and report observables",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := runFlags.buildConfig()
		if err != nil {
			return err
		}

		recorder := runFlags.buildRecorder()
		if recorder != nil {
			defer recorder.Close()
		}

		monitor := runFlags.buildMonitor()

		builder := experiment.MakeRunnerBuilder().
			WithConfig(cfg).
			WithTrials(runFlags.trials).
			WithName("run")
		if runFlags.workers > 0 {
			builder = builder.WithWorkers(runFlags.workers)
		}
		if recorder != nil {
			builder = builder.WithDataRecorder(recorder)
		}
		if monitor != nil {
			builder = builder.WithMonitor(monitor)
			builder = builder.WithProgressBar(
				monitor.CreateProgressBar("run", uint64(runFlags.trials)))
		}

		results, err := builder.Build().Run()
		if err != nil {
			return err
		}

		printTrialResults(results)

		return nil
	},
}

func printTrialResults(results []experiment.TrialResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w,
		"trial\tend time\tevents\tM\tU\tA\tgap\tswitches\tmean dwell")

	for _, r := range results {
		absorbed := ""
		if r.Run.Absorbed {
			absorbed = " (absorbed)"
		}

		fmt.Fprintf(w, "%d\t%.4f%s\t%d\t%d\t%d\t%d\t%.4f\t%d\t%.4f\n",
			r.Trial, float64(r.Run.EndTime), absorbed,
			r.Run.NumTransitions,
			r.FinalM, r.FinalU, r.FinalA,
			r.GapScore, r.NumSwitches, float64(r.MeanDwell))
	}

	w.Flush()
}

func init() {
	runFlags.register(runCmd)
	rootCmd.AddCommand(runCmd)
}
