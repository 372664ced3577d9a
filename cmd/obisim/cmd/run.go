package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run write/read-back traffic.",
	Long: `run writes random values to random addresses of the RAM, reads every
address back and compares the data. It exits with a non-zero status if any
access fails.`,
	Run: func(cmd *cobra.Command, _ []string) {
		if err := loadEnvFile(); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
			atexit.Exit(1)
		}

		s, err := settingsFromCommand(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			atexit.Exit(1)
		}

		logger := zap.NewNop()
		if s.Verbose {
			logger = nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		result, err := runTraffic(ctx, s, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			atexit.Exit(1)
		}

		fmt.Println(result)
		atexit.Exit(0)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	d := defaultSettings()
	cmd.Flags().Int64("seed", d.Seed, "Seed of the traffic and the backpressure (OBI_SEED)")
	cmd.Flags().Int("count", d.Count, "Number of writes (OBI_COUNT)")
	cmd.Flags().Int("data-width", d.DataWidth, "Data width in bits (OBI_DATA_WIDTH)")
	cmd.Flags().Uint64("ram-size", d.RAMSize, "RAM size in bytes (OBI_RAM_SIZE)")
	cmd.Flags().Bool("backpressure", false, "Delay responses randomly (OBI_BACKPRESSURE)")
	cmd.Flags().String("record", "", "Record transactions and traces to <path>.sqlite3 (OBI_RECORD)")
	cmd.Flags().String("trace", "", "Write the manager trace to <path>.csv (OBI_TRACE)")
	cmd.Flags().Bool("monitor", false, "Serve the monitoring page (OBI_MONITOR)")
	cmd.Flags().Int("monitor-port", 0, "Port of the monitoring page (OBI_MONITOR_PORT)")
	cmd.Flags().Bool("browser", false, "Open the monitoring page in a browser (OBI_BROWSER)")
	cmd.Flags().BoolP("verbose", "v", false, "Print the driver logs (OBI_VERBOSE)")
}
