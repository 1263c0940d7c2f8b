package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Server status",
	Long: `Show the server's health and version.

Examples:
  lemedia status             # Check the server is up
  lemedia status --verify    # Also verify open requests against live services`,
	Args: cobra.NoArgs,
	RunE: runStatusCmd,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("verify", false, "Run verification on open requests")
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	withVerify, _ := cmd.Flags().GetBool("verify")

	status, err := client.Status()
	if err != nil {
		return fmt.Errorf("status check failed: %w", err)
	}

	if jsonOutput {
		if withVerify {
			verify, err := client.Verify("")
			if err != nil {
				return fmt.Errorf("verify failed: %w", err)
			}
			printJSON(map[string]any{"status": status, "verify": verify})
		} else {
			printJSON(status)
		}
		return nil
	}

	fmt.Printf("Server:   %s (%s)\n", serverURL, status.Status)
	fmt.Printf("Version:  %s\n", status.Version)

	if withVerify {
		fmt.Println()
		return runVerifyRequests(client, "")
	}
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
