package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	httpcmd "github.com/dhwanilabs/dhwani_backend/cmd/http"
	systemcmd "github.com/dhwanilabs/dhwani_backend/cmd/system"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "dhwani",
	Short: "Dhwani audio-course marketplace backend.",
	Long: `Dhwani is the backend for an audio-course marketplace. It handles
course purchases through Razorpay, splits every sale between the platform
and the teacher, and tracks teacher commission balances through payout.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global config flag, available for all commands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	// Attach top-level command trees.
	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
}
