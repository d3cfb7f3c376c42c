package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chromlab/nucleosim/experiment"
)

var sweepFlags modelFlags
var sweepFeedbacks []float64

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Sweep the feedback strength and report the gap score",
	Long: `Sweep runs the same configuration at a series of feedback ` +
		`strengths F and reports, per strength, the mean gap score ` +
		`|M-A|/(M+A). The gap rises sharply once F crosses the ` +
		`bistability threshold.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		points, err := runSweep(&sweepFlags, sweepFeedbacks)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "F\ttrials\tmean gap\tswitches\tmean dwell")
		for _, p := range points {
			fmt.Fprintf(w, "%g\t%d\t%.4f\t%d\t%.4f\n",
				p.Feedback, p.Trials, p.MeanGap,
				p.NumSwitches, float64(p.MeanDwell))
		}
		w.Flush()

		return nil
	},
}

func runSweep(
	flags *modelFlags,
	feedbacks []float64,
) ([]experiment.SweepPoint, error) {
	cfg, err := flags.buildConfig()
	if err != nil {
		return nil, err
	}

	recorder := flags.buildRecorder()
	if recorder != nil {
		defer recorder.Close()
	}

	monitor := flags.buildMonitor()

	builder := experiment.MakeSweepBuilder().
		WithConfig(cfg).
		WithFeedbacks(feedbacks).
		WithTrials(flags.trials)
	if flags.workers > 0 {
		builder = builder.WithWorkers(flags.workers)
	}
	if recorder != nil {
		builder = builder.WithDataRecorder(recorder)
	}
	if monitor != nil {
		builder = builder.WithMonitor(monitor)
	}

	return builder.Build().Run()
}

func init() {
	sweepFlags.register(sweepCmd)
	sweepCmd.Flags().Float64SliceVar(&sweepFeedbacks, "feedbacks",
		[]float64{0, 0.5, 1, 2, 4, 8},
		"feedback strengths to sweep")
	rootCmd.AddCommand(sweepCmd)
}
