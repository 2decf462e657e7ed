// Package cmd implements the sentinelctl CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dev-mohitbeniwal/sentinel/model"
	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

var (
	// Version is set at build time
	Version = "0.1.0"

	outputFormat string
	policyPath   string
)

var (
	okFmt   = color.New(color.FgGreen, color.Bold).SprintFunc()
	warnFmt = color.New(color.FgYellow, color.Bold).SprintFunc()
	errFmt  = color.New(color.FgRed, color.Bold).SprintFunc()
	dimFmt  = color.New(color.Faint).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "sentinelctl",
	Short: "Offline tooling for sentinel access policies",
	Long: `sentinelctl evaluates access requests against a policy file without a
running server. It uses the same decision engine as the service.`,
	Version:      Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVarP(&policyPath, "policies", "p", "", "Policy file (YAML or JSON)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func formatOutput(w io.Writer, data interface{}) error {
	switch outputFormat {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	case "yaml":
		out, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
}

func readPolicies(path string) ([]*model.SecurityPolicy, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy file: %w", err)
	}
	defer f.Close()
	return model.ReadPolicies(f)
}

// readRequest decodes a request file. JSON is read through the YAML decoder.
func readRequest(path string) (pdp_model.AccessRequest, error) {
	var request pdp_model.AccessRequest
	f, err := os.Open(path)
	if err != nil {
		return request, fmt.Errorf("failed to open request file: %w", err)
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&request); err != nil {
		return request, fmt.Errorf("failed to decode request: %w", err)
	}
	return request, nil
}

func decisionColor(d pdp_model.Decision) string {
	switch d {
	case pdp_model.DecisionAllow:
		return okFmt(string(d))
	case pdp_model.DecisionDeny:
		return errFmt(string(d))
	default:
		return warnFmt(string(d))
	}
}
