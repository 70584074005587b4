package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/brokerd/internal/execengine"
)

var (
	execArguments     string
	execTimeoutMS     int
	execDryRun        bool
	execConsent       string
	execIncludeTiming bool
	execIncludeSteps  bool
)

var execCmd = &cobra.Command{
	Use:   "exec <callable_id>",
	Short: "Execute a callable returned by search",
	Args:  cobra.ExactArgs(1),
	RunE:  runExec,
}

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().StringVar(&execArguments, "arguments", "{}", "call arguments as a JSON object")
	execCmd.Flags().IntVar(&execTimeoutMS, "timeout-ms", 0, "per-call timeout in milliseconds")
	execCmd.Flags().BoolVar(&execDryRun, "dry-run", false, "validate and resolve without actually calling the callable")
	execCmd.Flags().StringVar(&execConsent, "consent", "", "consent token for a risk-tiered callable")
	execCmd.Flags().BoolVar(&execIncludeTiming, "include-timing", false, "include a timing trace in the result")
	execCmd.Flags().BoolVar(&execIncludeSteps, "include-steps", false, "include a step-by-step trace in the result")
}

func runExec(cmd *cobra.Command, args []string) error {
	var arguments map[string]interface{}
	if err := json.Unmarshal([]byte(execArguments), &arguments); err != nil {
		return fmt.Errorf("--arguments must be a JSON object: %w", err)
	}

	callArgs := map[string]interface{}{
		"callable_id": args[0],
		"arguments":   arguments,
	}
	if execTimeoutMS > 0 {
		callArgs["timeout_ms"] = execTimeoutMS
	}
	if execDryRun {
		callArgs["dry_run"] = true
	}
	if execConsent != "" {
		callArgs["consent"] = execConsent
	}
	if execIncludeTiming {
		callArgs["include_timing"] = true
	}
	if execIncludeSteps {
		callArgs["include_steps"] = true
	}

	res, err := callMetaTool(cmd.Context(), "exec", callArgs)
	if err != nil {
		return err
	}

	var result execengine.Result
	if err := resultText(res, &result); err != nil {
		return err
	}
	return printJSON(result)
}
