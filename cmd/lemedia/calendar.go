package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show upcoming and recent releases",
	Long: `Show the merged release calendar.

Sources: catalog, series, movies, premieres, requests.

Examples:
  lemedia calendar
  lemedia calendar --from 2026-08-01 --to 2026-08-31
  lemedia calendar --sources series,premieres --enrich`,
	Args: cobra.NoArgs,
	RunE: runCalendarCmd,
}

func init() {
	rootCmd.AddCommand(calendarCmd)
	calendarCmd.Flags().String("from", "", "Start date (YYYY-MM-DD, default today)")
	calendarCmd.Flags().String("to", "", "End date (YYYY-MM-DD, default 30 days out)")
	calendarCmd.Flags().StringSlice("sources", nil, "Only these sources")
	calendarCmd.Flags().Bool("enrich", false, "Annotate events with library availability")
}

func runCalendarCmd(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	sources, _ := cmd.Flags().GetStringSlice("sources")
	enrich, _ := cmd.Flags().GetBool("enrich")

	client := NewClient(serverURL)
	resp, err := client.Calendar(from, to, sources, enrich)
	if err != nil {
		return fmt.Errorf("calendar failed: %w", err)
	}

	if jsonOutput {
		printJSON(resp)
		return nil
	}

	if len(resp.Events) == 0 {
		fmt.Println("No events")
	} else {
		fmt.Printf("Calendar (%d events):\n\n", len(resp.Events))
		fmt.Printf("  %-11s %-18s %-6s %-44s %s\n", "DATE", "SOURCE", "TYPE", "TITLE", "AVAIL")
		for _, e := range resp.Events {
			avail := "-"
			if e.Available != nil {
				if *e.Available {
					avail = "yes"
				} else {
					avail = "no"
				}
			}
			fmt.Printf("  %-11s %-18s %-6s %-44s %s\n",
				e.Date.Format("2006-01-02"), e.Source, e.MediaType,
				truncate(eventTitle(e), 44), avail)
		}
	}

	if len(resp.Errors) > 0 {
		fmt.Printf("\nSource errors:\n")
		for _, msg := range resp.Errors {
			fmt.Printf("  - %s\n", msg)
		}
	}
	return nil
}

func eventTitle(e CalendarEvent) string {
	if e.Season > 0 && e.Episode > 0 {
		return fmt.Sprintf("%s S%02dE%02d", e.Title, e.Season, e.Episode)
	}
	return e.Title
}
