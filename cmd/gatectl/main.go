package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-gate/internal/api"
	"github.com/miradorstack/mirador-gate/internal/engine"
	"github.com/miradorstack/mirador-gate/internal/grpc/gatev1"
	"github.com/miradorstack/mirador-gate/internal/models"
	"github.com/miradorstack/mirador-gate/internal/policy"
	"github.com/miradorstack/mirador-gate/internal/utils"
)

// errBlocked is returned by evaluate --fail-on-block when the chain is held.
var errBlocked = errors.New("deployment chain blocked")

var (
	logger   *slog.Logger
	logLevel string
)

func main() {
	root := &cobra.Command{
		Use:           "gatectl",
		Short:         "Evaluate and inspect mirador-gate deployment decisions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = utils.NewLoggerTo(os.Stderr, logLevel, false)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(evaluateCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(actionsCmd())
	root.AddCommand(lastCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func evaluateCmd() *cobra.Command {
	var (
		policyPath  string
		reportPath  string
		unitsPath   string
		failOnBlock bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run a report and unit chain through a policy and print the decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			return evaluate(cmd.Context(), cmd.OutOrStdout(), policyPath, reportPath, unitsPath, failOnBlock)
		},
	}
	cmd.Flags().StringVar(&policyPath, "policy", "", "policy document (YAML or JSON)")
	cmd.Flags().StringVar(&reportPath, "report", "", "upstream report (YAML or JSON); omitted means no alerts")
	cmd.Flags().StringVar(&unitsPath, "units", "", "unit chain as a list of {name, kind, status}")
	cmd.Flags().BoolVar(&failOnBlock, "fail-on-block", false, "exit non-zero when the chain is blocked")
	_ = cmd.MarkFlagRequired("policy")
	return cmd
}

func validateCmd() *cobra.Command {
	var policyPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a policy document for unknown actions and unreachable rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validate(cmd.OutOrStdout(), policyPath)
		},
	}
	cmd.Flags().StringVar(&policyPath, "policy", "", "policy document (YAML or JSON)")
	_ = cmd.MarkFlagRequired("policy")
	return cmd
}

func actionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List known actions with their labels and colors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printActions(cmd.OutOrStdout())
		},
	}
}

func lastCmd() *cobra.Command {
	var (
		addr       string
		tenantID   string
		pipelineID string
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "last",
		Short: "Fetch the latest decision for a pipeline from a running gate-engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("dial %s: %w", addr, err)
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return fetchLast(ctx, cmd.OutOrStdout(), gatev1.NewGateEngineClient(conn), tenantID, pipelineID)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:50061", "gate-engine gRPC address")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant ID")
	cmd.Flags().StringVar(&pipelineID, "pipeline", "", "pipeline ID")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	_ = cmd.MarkFlagRequired("pipeline")
	return cmd
}

func evaluate(ctx context.Context, out io.Writer, policyPath, reportPath, unitsPath string, failOnBlock bool) error {
	store, err := policy.NewStore(policyPath, logger)
	if err != nil {
		return err
	}

	report := models.Report{}
	if reportPath != "" {
		if err := decodeFile(reportPath, &report); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}
	units := []models.Unit{}
	if unitsPath != "" {
		var raw []map[string]any
		if err := decodeFile(unitsPath, &raw); err != nil {
			return fmt.Errorf("units: %w", err)
		}
		for _, fields := range raw {
			units = append(units, models.UnitFromFields(fields))
		}
	}

	gate := engine.NewGate(logger, store, nil, nil, nil, 0)
	decision, err := gate.Decide(ctx, models.DecisionRequest{PipelineID: "local", Report: report, Units: units})
	if err != nil {
		return err
	}
	if err := writeJSON(out, api.NewDecisionResponse(decision)); err != nil {
		return err
	}
	if failOnBlock && decision.Chain.Overall == models.VerdictBlocked {
		return fmt.Errorf("%w: action %s", errBlocked, decision.Action)
	}
	return nil
}

func validate(out io.Writer, policyPath string) error {
	doc, err := policy.LoadFile(policyPath)
	if err != nil {
		return err
	}
	issues := policy.Validate(doc)
	if len(issues) == 0 {
		fmt.Fprintf(out, "%s: %d rules, no issues\n", policyPath, len(doc.Rules))
		return nil
	}
	for _, issue := range issues {
		fmt.Fprintln(out, issue.String())
	}
	return fmt.Errorf("%d policy issue(s) found", len(issues))
}

func printActions(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTION\tLABEL\tBADGE\tCOLOR\tCHAIN")
	for _, d := range models.Actions() {
		chain := "blocked"
		if d.Action.AllowsChain() {
			chain = "evaluated"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Action, d.Label, d.Badge, d.Color, chain)
	}
	return tw.Flush()
}

func fetchLast(ctx context.Context, out io.Writer, client gatev1.GateEngineClient, tenantID, pipelineID string) error {
	req, err := structpb.NewStruct(map[string]any{"tenant_id": tenantID, "pipeline_id": pipelineID})
	if err != nil {
		return err
	}
	resp, err := client.GetLastDecision(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(out, resp.AsMap())
}

// decodeFile reads YAML or JSON (JSON is valid YAML) into v.
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
