package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent request events",
	Long: `Show the most recent request lifecycle events, newest first.

Examples:
  lemedia events
  lemedia events -n 50`,
	Args: cobra.NoArgs,
	RunE: runEventsCmd,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
}

func runEventsCmd(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	client := NewClient(serverURL)
	resp, err := client.Events(limit)
	if err != nil {
		return fmt.Errorf("events failed: %w", err)
	}

	if jsonOutput {
		printJSON(resp)
		return nil
	}

	if len(resp.Items) == 0 {
		fmt.Println("No events")
		return nil
	}

	fmt.Printf("Events (%d of %d):\n\n", len(resp.Items), resp.Total)
	fmt.Printf("  %-10s %-21s %-30s %s\n", "TIME", "EVENT", "TITLE", "MESSAGE")
	for _, e := range resp.Items {
		fmt.Printf("  %-10s %-21s %-30s %s\n",
			eventTimeAgo(e.OccurredAt), e.Name, truncate(e.Title, 30), e.Message)
	}
	return nil
}

// eventTimeAgo renders an RFC3339 timestamp relative to now, falling
// back to the raw string when it does not parse.
func eventTimeAgo(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return formatTimeAgo(t)
}
