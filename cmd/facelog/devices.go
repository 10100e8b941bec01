package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/abihf/facelog/config"
	"github.com/abihf/facelog/logging"
	"github.com/abihf/facelog/v4l"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List V4L2 capture devices",
	Long: `Probes every /dev/video* node and prints its index, name and pixel formats.
The index is what the "devices" config entry refers to.`,
	Args: cobra.NoArgs,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, _ []string) error {
	conf := config.Load(configFile)
	log := logging.New(conf, os.Stderr)

	devices, err := v4l.List(log)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No capture devices found")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tPATH\tNAME\tFORMATS")
	for _, d := range devices {
		fmt.Fprintln(w, d.String())
	}
	return w.Flush()
}
