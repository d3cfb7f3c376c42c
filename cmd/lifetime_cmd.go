package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var lifetimeFlags modelFlags
var lifetimeFeedbacks []float64

var lifetimeCmd = &cobra.Command{
	Use:   "lifetime",
	Short: "Measure macrostate lifetimes across feedback strengths",
	Long: `Lifetime runs trials at a series of feedback strengths and ` +
		`reports how long the region dwells in a dominant macrostate ` +
		`before switching. Lifetimes grow by orders of magnitude with ` +
		`F in the bistable regime, so long horizons are advisable.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		points, err := runSweep(&lifetimeFlags, lifetimeFeedbacks)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "F\ttrials\tswitches\tmean lifetime")
		for _, p := range points {
			lifetime := "-"
			if p.NumSwitches > 0 {
				lifetime = fmt.Sprintf("%.4f", float64(p.MeanDwell))
			}

			fmt.Fprintf(w, "%g\t%d\t%d\t%s\n",
				p.Feedback, p.Trials, p.NumSwitches, lifetime)
		}
		w.Flush()

		return nil
	},
}

func init() {
	lifetimeFlags.register(lifetimeCmd)
	lifetimeCmd.Flags().Float64SliceVar(&lifetimeFeedbacks, "feedbacks",
		[]float64{1, 2, 3, 4},
		"feedback strengths to measure")
	rootCmd.AddCommand(lifetimeCmd)
}
