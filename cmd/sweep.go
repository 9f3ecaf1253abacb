// cmd/sweep.go
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/clam-project/clam-lease/internal/config"
	"github.com/clam-project/clam-lease/internal/sweep"
)

var (
	sweepInput     string
	sweepOutput    string
	sweepMaxCache  uint64
	sweepLLTSize   uint64
	sweepMemSize   uint64
	sweepDiscWidth uint64
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Sweep cache sizes and record the predicted miss ratio at each one",
	Run: func(cmd *cobra.Command, args []string) {
		base := config.Config{
			Input: sweepInput,
			LLT: config.LLTConfig{
				LLTSize:         sweepLLTSize,
				MemSize:         sweepMemSize,
				DiscretizeWidth: sweepDiscWidth,
			},
			Sample: config.SampleConfig{
				EmpiricalSampleRate: "yes",
			},
		}

		file, err := os.Create(sweepOutput)
		if err != nil {
			logrus.Fatalf("creating sweep output %s: %v", sweepOutput, err)
		}
		defer func() { _ = file.Close() }()

		if err := sweep.Run(base, sweepMaxCache, file); err != nil {
			logrus.Fatalf("sweep failed: %v", err)
		}
		logrus.Infof("wrote cache-size sweep to %s", sweepOutput)
	},
}

func init() {
	sweepCmd.Flags().StringVarP(&sweepInput, "input", "i", "", "Sets the input trace file")
	_ = sweepCmd.MarkFlagRequired("input")
	sweepCmd.Flags().StringVarP(&sweepOutput, "output", "o", "miss_curve.csv", "Sets the sweep output CSV path")
	sweepCmd.Flags().Uint64Var(&sweepMaxCache, "max-cache-size", 256, "Largest cache size to sweep up to")
	sweepCmd.Flags().Uint64VarP(&sweepLLTSize, "llt-size", "L", 128, "Number of elements in the lease lookup table")
	sweepCmd.Flags().Uint64VarP(&sweepMemSize, "mem-size", "M", 65536, "Total memory allocated for lease information")
	sweepCmd.Flags().Uint64VarP(&sweepDiscWidth, "discretize-width", "D", 9, "Bit width available for discretized short lease probability")

	rootCmd.AddCommand(sweepCmd)
}
