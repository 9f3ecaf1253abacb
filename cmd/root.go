// cmd/root.go
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/clam-project/clam-lease/internal/compile"
	"github.com/clam-project/clam-lease/internal/config"
)

var (
	configPath string
	cacheSize  uint64
	setAssoc   uint64
	prl        uint64
	cshel      bool
	verbose    bool
	lltSize    uint64
	memSize    uint64
	discWidth  uint64
	debug      bool
	samplingR  uint64
	empiricalR string
)

var rootCmd = &cobra.Command{
	Use:   "clam-lease",
	Short: "Lease assignment generator for phased traces",
}

var runCmd = &cobra.Command{
	Use:   "run <input> <output>",
	Short: "Compile a lease assignment from a sampled trace",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if debug {
			logrus.SetLevel(logrus.DebugLevel)
		} else if verbose {
			logrus.SetLevel(logrus.InfoLevel)
		}

		var cfg config.Config
		hasConfigFile := configPath != ""
		if hasConfigFile {
			loaded, err := config.LoadYAML(configPath)
			if err != nil {
				logrus.Fatalf("loading scenario config: %v", err)
			}
			cfg = loaded
		}

		// Without --config every flag sets cfg outright. With --config,
		// a flag only overrides the value the scenario file loaded when
		// the caller actually passed it on the command line.
		set := func(name string) bool { return !hasConfigFile || cmd.Flags().Changed(name) }
		if set("cache-size") {
			cfg.Cache.CacheSize = cacheSize
		}
		if set("set-associativity") {
			cfg.Cache.SetAssociativity = setAssoc
		}
		if set("prl") {
			cfg.PRL = prl
		}
		if set("cshel") {
			cfg.CSHEL = cshel
		}
		if set("verbose") {
			cfg.Verbose = verbose
		}
		if set("llt-size") {
			cfg.LLT.LLTSize = lltSize
		}
		if set("mem-size") {
			cfg.LLT.MemSize = memSize
		}
		if set("discretize-width") {
			cfg.LLT.DiscretizeWidth = discWidth
		}
		if set("debug") {
			cfg.Debug = debug
		}
		if set("sampling-rate") {
			cfg.Sample.SamplingRate = samplingR
		}
		if set("empirical-sample-rate") {
			cfg.Sample.EmpiricalSampleRate = empiricalR
		}
		cfg.Input = args[0]
		cfg.Output = args[1]

		result, err := compile.Run(cfg, true)
		if err != nil {
			logrus.Fatalf("lease compile failed: %v", err)
		}
		logrus.Infof("%s: wrote lease assignment, trace length %d, predicted miss ratio %.4f",
			result.Algorithm, result.TraceLength, result.MissRate())
	},
}

// Execute runs the root command, exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Load a YAML scenario config; flags passed alongside it override its values")
	runCmd.Flags().Uint64VarP(&cacheSize, "cache-size", "s", 0, "Target cache size for algorithms")
	runCmd.Flags().Uint64VarP(&setAssoc, "set-associativity", "a", 0, "Set associativity of the cache being targeted")
	runCmd.Flags().Uint64VarP(&prl, "prl", "p", 0, "Calculate leases for PRL with this many RI bins (only for non-phased sampling files)")
	runCmd.Flags().BoolVarP(&cshel, "cshel", "c", false, "Calculate leases for CSHEL")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Output information about lease assignment")
	runCmd.Flags().Uint64VarP(&lltSize, "llt-size", "L", 128, "Number of elements in the lease lookup table")
	runCmd.Flags().Uint64VarP(&memSize, "mem-size", "M", 65536, "Total memory allocated for lease information")
	runCmd.Flags().Uint64VarP(&discWidth, "discretize-width", "D", 9, "Bit width available for discretized short lease probability")
	runCmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable even more information about lease assignment")
	runCmd.Flags().Uint64VarP(&samplingR, "sampling-rate", "S", 256, "Benchmark sampling rate")
	runCmd.Flags().StringVarP(&empiricalR, "empirical-sample-rate", "E", "yes", "Use given or empirically derived sampling rate")

	rootCmd.AddCommand(runCmd)
}
