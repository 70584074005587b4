package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	manageVersion      string
	manageDescription  string
	manageSkillMDFile  string
	manageTags         []string
	manageBundledFiles string
	manageFilename     string
	manageEditJSON     string
	manageHistoryLimit int
)

var manageCmd = &cobra.Command{
	Use:   "manage <create|get|update|delete|history> <name-or-callable-id>",
	Short: "Create, inspect, update, or delete a locally authored skill, or query a callable's execution history",
	Args:  cobra.ExactArgs(2),
	RunE:  runManage,
}

func init() {
	rootCmd.AddCommand(manageCmd)
	manageCmd.Flags().StringVar(&manageVersion, "version", "", "skill version (create)")
	manageCmd.Flags().StringVar(&manageDescription, "description", "", "skill description (create)")
	manageCmd.Flags().StringVar(&manageSkillMDFile, "skill-md", "", "path to the SKILL.md content to upload (create), '-' reads stdin")
	manageCmd.Flags().StringSliceVar(&manageTags, "tags", nil, "skill tags (create)")
	manageCmd.Flags().StringVar(&manageBundledFiles, "bundled-files", "", "bundled files as a JSON object of filename to content (create)")
	manageCmd.Flags().StringVar(&manageFilename, "filename", "", "bundled file to read instead of SKILL.md (get)")
	manageCmd.Flags().StringVar(&manageEditJSON, "edit", "", `edit operation as JSON, e.g. {"append":"..."} (update)`)
	manageCmd.Flags().IntVar(&manageHistoryLimit, "limit", 0, "maximum number of records to return (history)")
}

func runManage(cmd *cobra.Command, args []string) error {
	operation, name := args[0], args[1]
	callArgs := map[string]interface{}{
		"operation": operation,
	}
	if operation == "history" {
		callArgs["callable_id"] = name
		if manageHistoryLimit > 0 {
			callArgs["limit"] = manageHistoryLimit
		}
	} else {
		callArgs["name"] = name
	}

	switch operation {
	case "create":
		if manageVersion != "" {
			callArgs["version"] = manageVersion
		}
		if manageDescription != "" {
			callArgs["description"] = manageDescription
		}
		if manageSkillMDFile != "" {
			content, err := readSkillMD(manageSkillMDFile)
			if err != nil {
				return err
			}
			callArgs["skill_md"] = content
		}
		if len(manageTags) > 0 {
			callArgs["tags"] = manageTags
		}
		if manageBundledFiles != "" {
			var files map[string]string
			if err := json.Unmarshal([]byte(manageBundledFiles), &files); err != nil {
				return fmt.Errorf("--bundled-files must be a JSON object of string to string: %w", err)
			}
			callArgs["bundled_files"] = files
		}
	case "get":
		if manageFilename != "" {
			callArgs["filename"] = manageFilename
		}
	case "update":
		if manageEditJSON == "" {
			return fmt.Errorf("--edit is required for operation=update")
		}
		var edit map[string]interface{}
		if err := json.Unmarshal([]byte(manageEditJSON), &edit); err != nil {
			return fmt.Errorf("--edit must be a JSON object: %w", err)
		}
		callArgs["edit"] = edit
	case "delete", "history":
		// no extra fields
	default:
		return fmt.Errorf("operation must be one of: create, get, update, delete, history")
	}

	res, err := callMetaTool(cmd.Context(), "manage", callArgs)
	if err != nil {
		return err
	}

	var out interface{}
	if err := resultText(res, &out); err != nil {
		return err
	}
	return printJSON(out)
}

func readSkillMD(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}
