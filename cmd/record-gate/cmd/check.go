package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Record-Gate/Recordgate/internal/adapter/outbound/schema"
	"github.com/Record-Gate/Recordgate/internal/config"
	"github.com/Record-Gate/Recordgate/internal/domain/access"
	"github.com/Record-Gate/Recordgate/internal/domain/expr"
	"github.com/Record-Gate/Recordgate/internal/eval"
	"github.com/Record-Gate/Recordgate/internal/service"
)

var checkCmd = &cobra.Command{
	Use:   "check [row|fields|write] [request-file]",
	Short: "Evaluate a one-off access decision",
	Long: `Evaluate a single access decision against the configured policies.

The store and bundle come from the config file, same as serve. The request
file uses the decision API wire shape:

  row:    {"model": "...", "user": {...}, "record": {...}}
  fields: {"model": "...", "user": {...}, "record": {...}}
  write:  {"model": "...", "action": "write", "user": {...},
           "existing": {...}, "incoming": {...}}

Prints "allow" or "deny" for row/write (exit code 1 on deny), and the
filtered record for fields.

Example:
  record-gate check row request.json`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// checkRequest is the superset of the per-kind request shapes.
type checkRequest struct {
	Model    string         `json:"model"`
	Action   string         `json:"action"`
	User     *expr.Identity `json:"user"`
	Record   map[string]any `json:"record"`
	Existing map[string]any `json:"existing"`
	Incoming map[string]any `json:"incoming"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	kind := args[0]
	if kind != "row" && kind != "fields" && kind != "write" {
		return fmt.Errorf("unknown check kind %q: expected row, fields, or write", kind)
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read request file: %w", err)
	}
	var req checkRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("invalid request file: %w", err)
	}
	if req.Model == "" {
		return fmt.Errorf("request file is missing model")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// Quiet logger: decisions go to stdout, diagnostics are opt-in via config.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))

	evaluator, err := eval.New(eval.Config{MaxDepth: cfg.Engine.MaxDepth})
	if err != nil {
		return err
	}
	store, cleanup, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if cfg.Bundle.Path != "" {
		validator := schema.NewValidator(evaluator, cfg.Engine.MaxDepth)
		policies, err := schema.LoadBundle(cfg.Bundle.Path, validator)
		if err != nil {
			return fmt.Errorf("failed to load policy bundle: %w", err)
		}
		if err := schema.SeedStore(ctx, store, policies); err != nil {
			return fmt.Errorf("failed to seed policy store: %w", err)
		}
	}

	accessService, err := service.NewAccessService(ctx, store, evaluator, logger)
	if err != nil {
		return err
	}

	switch kind {
	case "row":
		return printDecision(accessService.CanReadRow(req.Model, req.Record, req.User))

	case "fields":
		filtered := accessService.FilterFields(req.Model, req.Record, req.User)
		out, err := json.MarshalIndent(filtered, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil

	default: // write
		action := access.Action(req.Action)
		if action == access.ActionRead || !access.ValidAction(action) {
			return fmt.Errorf("request action must be write, create, or delete")
		}
		return printDecision(accessService.CanWrite(req.Model, action, req.Existing, req.Incoming, req.User))
	}
}

func printDecision(allowed bool) error {
	if allowed {
		fmt.Println("allow")
		return nil
	}
	fmt.Println("deny")
	os.Exit(1)
	return nil
}
