package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dev-mohitbeniwal/sentinel/config"
	"github.com/dev-mohitbeniwal/sentinel/pdp/cache"
	"github.com/dev-mohitbeniwal/sentinel/pdp/engine"
	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
	"github.com/dev-mohitbeniwal/sentinel/service"
)

func init() {
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(scoreCmd)
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <request-file>",
	Short: "Evaluate an access request against a policy file",
	Long: `Evaluate one access request and print the decision.

Examples:
  sentinelctl evaluate request.json -p policies.yaml
  sentinelctl evaluate request.yaml -p policies.yaml -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		request, err := readRequest(args[0])
		if err != nil {
			return err
		}
		decision, err := evaluate(cmd.Context(), policyPath, request)
		if err != nil {
			return err
		}
		if outputFormat != "table" {
			return formatOutput(cmd.OutOrStdout(), decision)
		}
		printDecision(cmd.OutOrStdout(), decision)
		return nil
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score <request-file>",
	Short: "Show the trust score breakdown for a request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		request, err := readRequest(args[0])
		if err != nil {
			return err
		}
		breakdown := engine.ScoreBreakdown(request.Context.Normalize())
		if outputFormat != "table" {
			return formatOutput(cmd.OutOrStdout(), breakdown)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DIMENSION\tSCORE")
		fmt.Fprintf(w, "identity\t%d\n", breakdown.Identity)
		fmt.Fprintf(w, "device\t%d\n", breakdown.Device)
		fmt.Fprintf(w, "network\t%d\n", breakdown.Network)
		fmt.Fprintf(w, "behavior\t%d\n", breakdown.Behavior)
		fmt.Fprintf(w, "total\t%d\n", breakdown.Total)
		return w.Flush()
	},
}

// evaluate runs a request through a throwaway engine loaded from policyFile.
func evaluate(ctx context.Context, policyFile string, request pdp_model.AccessRequest) (pdp_model.AccessDecision, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	policies, err := readPolicies(policyFile)
	if err != nil {
		return pdp_model.AccessDecision{}, err
	}
	policyService := service.NewPolicyService(nil, nil)
	if _, err := policyService.LoadPolicies(ctx, policies); err != nil {
		return pdp_model.AccessDecision{}, err
	}
	decisionEngine := engine.NewDecisionEngine(policyService, cache.NewTrustCache(), config.GetEngineConfig())
	return decisionEngine.EvaluateAccess(ctx, request), nil
}

func printDecision(out io.Writer, d pdp_model.AccessDecision) {
	fmt.Fprintf(out, "Decision:    %s\n", decisionColor(d.Decision))
	fmt.Fprintf(out, "Risk score:  %d\n", d.RiskScore)
	fmt.Fprintf(out, "Confidence:  %d\n", d.Confidence)
	fmt.Fprintf(out, "Monitoring:  %s\n", d.MonitoringLevel)
	if len(d.Requirements) > 0 {
		fmt.Fprintf(out, "Requires:    %s\n", strings.Join(d.Requirements, ", "))
	}
	if len(d.MatchedPolicies) > 0 {
		fmt.Fprintf(out, "Policies:    %s\n", strings.Join(d.MatchedPolicies, ", "))
	}
	for _, r := range d.Reasoning {
		fmt.Fprintf(out, "  %s %s\n", dimFmt("-"), r)
	}
	for _, m := range d.Mitigations {
		fmt.Fprintf(out, "  %s %s\n", warnFmt("!"), m)
	}
}
