package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [request-id]",
	Short: "Verify request states against live systems",
	Long:  "Compare what lemedia thinks vs reality (media server, automation services)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runVerifyCmd,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerifyCmd(cmd *cobra.Command, args []string) error {
	var id string
	if len(args) > 0 {
		id = args[0]
	}

	client := NewClient(serverURL)
	return runVerifyRequests(client, id)
}

func runVerifyRequests(client *Client, id string) error {
	result, err := client.Verify(id)
	if err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}

	if jsonOutput {
		printJSON(result)
		return nil
	}

	printVerifyResult(result)
	return nil
}

func printVerifyResult(r *VerifyResponse) {
	fmt.Printf("Checking %d requests...\n\n", r.Checked)

	fmt.Printf("  Media server:      %s\n", connStatus(r.Connections.MediaServer, r.Connections.MediaErr))
	fmt.Printf("  Series automation: %s\n", connStatus(r.Connections.Series, r.Connections.SeriesErr))
	fmt.Printf("  Movie automation:  %s\n", connStatus(r.Connections.Movies, r.Connections.MoviesErr))
	fmt.Printf("  Passed:            %d/%d\n", r.Passed, r.Checked)
	fmt.Println()

	if len(r.Problems) == 0 {
		fmt.Println("No problems detected.")
		return
	}

	fmt.Printf("Problems (%d):\n\n", len(r.Problems))

	for _, p := range r.Problems {
		fmt.Printf("  %s | %s | %s\n", p.RequestID, p.Status, p.Title)
		fmt.Printf("    State: %s (%s)\n", p.Status, p.Since)
		fmt.Printf("    Issue: %s\n", p.Issue)
		for _, check := range p.Checks {
			fmt.Printf("    Check: %s\n", check)
		}
		fmt.Printf("    Likely: %s\n", p.Likely)
		fmt.Printf("    Fix: %s\n", strings.Join(p.Fixes, "\n         "))
		fmt.Println()
	}

	fmt.Printf("%d problems found. Run suggested commands or 'lemedia verify --help' for options.\n", len(r.Problems))
}

// connStatus renders one connection line. A failed check with no error
// message means the integration is simply not configured.
func connStatus(ok bool, errMsg string) string {
	switch {
	case ok:
		return "ok"
	case errMsg == "":
		return "not configured"
	default:
		return "FAIL " + errMsg
	}
}
