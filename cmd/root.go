// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/pktpeek/internal/config"
	"firestige.xyz/pktpeek/internal/log"
)

var (
	// Global flags
	configFile string

	// cfg is loaded once per invocation by loadConfig.
	cfg *config.GlobalConfig
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pktpeek",
	Short: "pktpeek - heuristic decoder for opaque binary messages",
	Long: `pktpeek guesses the field layout of undocumented binary messages.
Each packet is split into strings, floats, integers and bytes and written to a
debug session log next to its direction, tag and timing.

Sources:
  - decode: hex given on the command line or stdin
  - replay: TCP/UDP payloads from a pcap or pcapng capture
  - proxy:  a live TCP relay between a client and its server`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Close()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults only when empty)")

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(proxyCmd)
	rootCmd.AddCommand(validateCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := log.Init(loaded.Log); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	cfg = loaded
	return nil
}

