package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Manage media requests",
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List requests",
	Long: `List requests, newest first.

Examples:
  lemedia requests list
  lemedia requests list -s pending
  lemedia requests list -u alice -t tv`,
	Args: cobra.NoArgs,
	RunE: runRequestsList,
}

var requestsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one request with its items",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequestsShow,
}

var requestsSubmitCmd = &cobra.Command{
	Use:     "submit",
	Aliases: []string{"add"},
	Short:   "Submit a new request",
	Long: `Submit a request for a movie or series.

Movies are identified by catalog ID. Series also need a legacy ID so
the automation service can look them up.

Examples:
  lemedia requests submit -t movie --catalog-id 603 --title "The Matrix" -u alice
  lemedia requests submit -t tv --catalog-id 1399 --legacy-id 121361 -u bob --seasons 1,2`,
	Args: cobra.NoArgs,
	RunE: runRequestsSubmit,
}

var requestsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a request",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequestsDelete,
}

var requestsSetStatusCmd = &cobra.Command{
	Use:   "set-status <id> <status>",
	Short: "Set a request's status",
	Long: `Set a request's status directly.

Statuses: pending, queued, submitted, downloading, available,
failed, already_exists, denied.

Examples:
  lemedia requests set-status 7c9e6679-7425-40de-963d-02d654dbc0e5 queued
  lemedia requests set-status 7c9e6679-7425-40de-963d-02d654dbc0e5 denied`,
	Args: cobra.ExactArgs(2),
	RunE: runRequestsSetStatus,
}

func init() {
	rootCmd.AddCommand(requestsCmd)
	requestsCmd.AddCommand(requestsListCmd, requestsShowCmd, requestsSubmitCmd,
		requestsDeleteCmd, requestsSetStatusCmd)

	requestsListCmd.Flags().StringP("status", "s", "", "Filter by status")
	requestsListCmd.Flags().StringP("user", "u", "", "Filter by requester")
	requestsListCmd.Flags().StringP("type", "t", "", "Filter by media type (movie|tv)")
	requestsListCmd.Flags().IntP("limit", "n", 50, "Maximum results")
	requestsListCmd.Flags().Int("offset", 0, "Pagination offset")

	requestsSubmitCmd.Flags().StringP("type", "t", "movie", "Media type (movie|tv)")
	requestsSubmitCmd.Flags().Int64("catalog-id", 0, "Catalog ID of the title")
	requestsSubmitCmd.Flags().Int64("legacy-id", 0, "Legacy ID (required for tv)")
	requestsSubmitCmd.Flags().String("title", "", "Title, improves library matching")
	requestsSubmitCmd.Flags().StringP("user", "u", "", "Requesting user")
	requestsSubmitCmd.Flags().Bool("privileged", false, "Bypass the request quota")
	requestsSubmitCmd.Flags().IntSlice("seasons", nil, "Seasons to request (tv only; default all regular seasons)")
	_ = requestsSubmitCmd.MarkFlagRequired("catalog-id")
	_ = requestsSubmitCmd.MarkFlagRequired("user")
}

func runRequestsList(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")
	user, _ := cmd.Flags().GetString("user")
	mediaType, _ := cmd.Flags().GetString("type")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")

	client := NewClient(serverURL)
	resp, err := client.Requests(RequestFilters{
		Status: status,
		User:   user,
		Type:   mediaType,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return fmt.Errorf("list requests failed: %w", err)
	}

	if jsonOutput {
		printJSON(resp)
		return nil
	}

	if len(resp.Items) == 0 {
		fmt.Println("No requests")
		return nil
	}

	fmt.Printf("Requests (%d):\n\n", resp.Total)
	fmt.Printf("  %-36s │ %-5s │ %-14s │ %-10s │ %-9s │ %s\n",
		"ID", "TYPE", "STATUS", "BY", "UPDATED", "TITLE")
	fmt.Println("  " + strings.Repeat("─", 104))

	for _, r := range resp.Items {
		fmt.Printf("  %-36s │ %-5s │ %-14s │ %-10s │ %-9s │ %s\n",
			r.ID, r.MediaType, r.Status, truncate(r.RequestedBy, 10),
			formatTimeAgo(r.UpdatedAt), truncate(r.Title, 40))
	}
	return nil
}

func runRequestsShow(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	rec, err := client.Request(args[0])
	if err != nil {
		return fmt.Errorf("get request failed: %w", err)
	}

	if jsonOutput {
		printJSON(rec)
		return nil
	}

	printRequestDetail(rec)
	return nil
}

func runRequestsSubmit(cmd *cobra.Command, args []string) error {
	mediaType, _ := cmd.Flags().GetString("type")
	catalogID, _ := cmd.Flags().GetInt64("catalog-id")
	legacyID, _ := cmd.Flags().GetInt64("legacy-id")
	title, _ := cmd.Flags().GetString("title")
	user, _ := cmd.Flags().GetString("user")
	privileged, _ := cmd.Flags().GetBool("privileged")
	seasons, _ := cmd.Flags().GetIntSlice("seasons")

	client := NewClient(serverURL)
	rec, err := client.SubmitRequest(&SubmitRequest{
		MediaType:   mediaType,
		CatalogID:   catalogID,
		LegacyID:    legacyID,
		Title:       title,
		RequestedBy: user,
		Privileged:  privileged,
		Seasons:     seasons,
	})
	if err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}

	if jsonOutput {
		printJSON(rec)
		return nil
	}

	fmt.Println("Request created:")
	fmt.Println()
	printRequestDetail(rec)
	return nil
}

func runRequestsDelete(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	if err := client.DeleteRequest(args[0]); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	fmt.Printf("Request %s deleted\n", args[0])
	return nil
}

func runRequestsSetStatus(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	rec, err := client.SetRequestStatus(args[0], args[1])
	if err != nil {
		return fmt.Errorf("set-status failed: %w", err)
	}

	if jsonOutput {
		printJSON(rec)
		return nil
	}

	fmt.Printf("Request %s is now %s\n", rec.ID, rec.Status)
	return nil
}

func printRequestDetail(r *RequestResponse) {
	fmt.Printf("Request %s\n", r.ID)
	fmt.Printf("  Title:       %s (%s)\n", r.Title, r.MediaType)
	fmt.Printf("  Catalog ID:  %d\n", r.CatalogID)
	if r.LegacyID != 0 {
		fmt.Printf("  Legacy ID:   %d\n", r.LegacyID)
	}
	fmt.Printf("  Status:      %s\n", r.Status)
	fmt.Printf("  By:          %s\n", r.RequestedBy)
	fmt.Printf("  Created:     %s (%s)\n", r.CreatedAt.Local().Format("2006-01-02 15:04"), formatTimeAgo(r.CreatedAt))
	fmt.Printf("  Updated:     %s (%s)\n", r.UpdatedAt.Local().Format("2006-01-02 15:04"), formatTimeAgo(r.UpdatedAt))

	if len(r.Items) == 0 {
		return
	}
	fmt.Printf("\n  Items (%d):\n", len(r.Items))
	for _, it := range r.Items {
		line := "    " + itemLabel(it)
		if it.ProviderItemID != nil {
			line += "  item " + *it.ProviderItemID
		}
		line += "  " + it.Status
		fmt.Println(line)
	}
}

// itemLabel renders an episode item as SxxEyy, anything else by its
// provider name.
func itemLabel(it RequestItemResponse) string {
	if it.Season != nil && it.Episode != nil {
		return fmt.Sprintf("S%02dE%02d", *it.Season, *it.Episode)
	}
	return it.Provider
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	ago := time.Since(t)
	switch {
	case ago < time.Minute:
		return "just now"
	case ago < time.Hour:
		mins := int(ago.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case ago < 24*time.Hour:
		hours := int(ago.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	default:
		days := int(ago.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	}
}
