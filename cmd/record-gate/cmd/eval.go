package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Record-Gate/Recordgate/internal/adapter/outbound/schema"
	"github.com/Record-Gate/Recordgate/internal/domain/expr"
	"github.com/Record-Gate/Recordgate/internal/eval"
)

var evalContextFile string

var evalCmd = &cobra.Command{
	Use:   "eval [expression-file]",
	Short: "Evaluate an expression against a context file",
	Long: `Evaluate a JSON expression tree and print the result.

The expression file holds a single expression node. The optional context
file holds the evaluation context:

  {"record": {...}, "user": {"id": "...", "roles": [...]}, "related": {...}}

Evaluation runs in lenient field-access mode: unresolvable paths yield null.

Example:
  record-gate eval rule.json --context ctx.json`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVar(&evalContextFile, "context", "", "context file (record, user, related)")
	rootCmd.AddCommand(evalCmd)
}

// contextFile is the on-disk evaluation context shape.
type contextFile struct {
	Record  map[string]any `json:"record"`
	User    *expr.Identity `json:"user"`
	Related map[string]any `json:"related"`
}

func runEval(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read expression file: %w", err)
	}
	node, err := schema.DecodeExpression(data)
	if err != nil {
		return err
	}

	evalCtx := &expr.Context{}
	if evalContextFile != "" {
		ctxData, err := os.ReadFile(evalContextFile)
		if err != nil {
			return fmt.Errorf("failed to read context file: %w", err)
		}
		var cf contextFile
		if err := json.Unmarshal(ctxData, &cf); err != nil {
			return fmt.Errorf("invalid context file: %w", err)
		}
		evalCtx = &expr.Context{Record: cf.Record, User: cf.User, Related: cf.Related}
	}

	evaluator, err := eval.New(eval.Config{})
	if err != nil {
		return err
	}
	v, err := evaluator.Evaluate(node, evalCtx)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
