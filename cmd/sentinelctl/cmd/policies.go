package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dev-mohitbeniwal/sentinel/model"
)

func init() {
	rootCmd.AddCommand(policiesCmd)
	policiesCmd.AddCommand(policiesValidateCmd)
	policiesCmd.AddCommand(policiesListCmd)
}

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "Inspect policy files",
}

var policiesValidateCmd = &cobra.Command{
	Use:   "validate <policy-file>",
	Short: "Check that every policy in a file builds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		policies, err := readPolicies(args[0])
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", errFmt("invalid:"), err)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d policies\n", okFmt("valid:"), len(policies))
		return nil
	},
}

var policiesListCmd = &cobra.Command{
	Use:   "list <policy-file>",
	Short: "List the policies in a file in evaluation order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		policies, err := readPolicies(args[0])
		if err != nil {
			return err
		}
		if outputFormat != "table" {
			docs := make([]model.PolicyDocument, 0, len(policies))
			for _, p := range policies {
				docs = append(docs, model.DocumentFromPolicy(p))
			}
			return formatOutput(cmd.OutOrStdout(), docs)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPRIORITY\tENABLED\tCONDITIONS\tACTIONS")
		for _, p := range policies {
			enabled := okFmt("yes")
			if !p.Enabled {
				enabled = dimFmt("no")
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%d\n", p.ID, p.Name, p.Priority, enabled, len(p.Conditions), len(p.Actions))
		}
		return w.Flush()
	},
}
