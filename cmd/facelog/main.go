package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abihf/facelog/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "facelog",
	Short: "Capture face training images and face-log attempts from a webcam",
	Long: `facelog captures verified face images from a local webcam and sends them
to the face registration API: training sets for owner accounts and single
face-log snapshots for access verification.

Run without a subcommand to start the interactive menu.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runMenu,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default "+config.DefaultFile+")")
}

func main() {
	err := rootCmd.Execute()
	switch {
	case errors.Is(err, errInterrupted):
		os.Exit(130)
	case err != nil:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
