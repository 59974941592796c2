package cmd

import (
	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "0.1.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "hecrelay",
	Short: "HEC batch to UDP relay",
	Long: `hecrelay receives batches of syslog and SNMP events over HTTP and replays
each one as a UDP datagram whose source address is the original device.

Run "hecrelay serve" on a host with raw socket privilege, and point
HEC-style senders at it with a bearer token.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or /etc/hecrelay/config.yaml)")
}
