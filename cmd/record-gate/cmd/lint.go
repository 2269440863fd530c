package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Record-Gate/Recordgate/internal/adapter/outbound/schema"
	"github.com/Record-Gate/Recordgate/internal/eval"
)

var lintMaxDepth int

var lintCmd = &cobra.Command{
	Use:   "lint [bundle-file]",
	Short: "Validate a policy bundle",
	Long: `Validate a policy bundle file without starting the server.

Every rule expression is decoded and checked against the operation
registry: unknown operations, arity violations, permission checks outside
perm nodes, and excessive nesting all fail here rather than at runtime.

Example:
  record-gate lint policies.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runLint,
}

func init() {
	lintCmd.Flags().IntVar(&lintMaxDepth, "max-depth", 0, "nesting bound to validate against (default: engine default)")
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	evaluator, err := eval.New(eval.Config{})
	if err != nil {
		return err
	}
	validator := schema.NewValidator(evaluator, lintMaxDepth)
	policies, err := schema.LoadBundle(args[0], validator)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d policies OK\n", args[0], len(policies))
	return nil
}
