// Package cmd provides the CLI commands for Record Gate.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Record-Gate/Recordgate/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "record-gate",
	Short: "Record Gate - record-level access decision server",
	Long: `Record Gate evaluates expression-based access policies over records.

It answers row visibility, field visibility, and write authorization
questions for a host application, with policy rules expressed as JSON
expression trees evaluated against the record and the requesting identity.

Quick start:
  1. Create a config file: record-gate.yaml
  2. Write a policy bundle and point bundle.path at it
  3. Run: record-gate serve

Configuration:
  Config is loaded from record-gate.yaml in the current directory,
  $HOME/.record-gate/, or /etc/record-gate/.

  Environment variables can override config values with the RECORD_GATE_ prefix.
  Example: RECORD_GATE_SERVER_HTTP_ADDR=:9090

Commands:
  serve       Start the decision server
  check       Evaluate a one-off access decision
  eval        Evaluate an expression against a context file
  lint        Validate a policy bundle
  hash-key    Generate a SHA256 hash for an API key
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./record-gate.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
