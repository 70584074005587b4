package cmd

import (
	"github.com/spf13/cobra"
)

var (
	schemaFormat              string
	schemaPointer             string
	schemaIncludeOutputSchema bool
	schemaMaxBytes            int
)

var schemaCmd = &cobra.Command{
	Use:   "schema <callable_id>",
	Short: "Fetch the input/output schema or signature for a callable",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().StringVar(&schemaFormat, "format", "", "json_schema|signature|both")
	schemaCmd.Flags().StringVar(&schemaPointer, "pointer", "", "JSON pointer narrowing the returned subtree")
	schemaCmd.Flags().BoolVar(&schemaIncludeOutputSchema, "include-output-schema", false, "include the output schema, when declared")
	schemaCmd.Flags().IntVar(&schemaMaxBytes, "max-bytes", 0, "truncate the response above this many bytes")
}

func runSchema(cmd *cobra.Command, args []string) error {
	callArgs := map[string]interface{}{"callable_id": args[0]}
	if schemaFormat != "" {
		callArgs["format"] = schemaFormat
	}
	if schemaPointer != "" {
		callArgs["pointer"] = schemaPointer
	}
	if schemaIncludeOutputSchema {
		callArgs["include_output_schema"] = true
	}
	if schemaMaxBytes > 0 {
		callArgs["max_bytes"] = schemaMaxBytes
	}

	res, err := callMetaTool(cmd.Context(), "schema", callArgs)
	if err != nil {
		return err
	}

	var out interface{}
	if err := resultText(res, &out); err != nil {
		return err
	}
	return printJSON(out)
}
