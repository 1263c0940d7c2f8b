package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var quotaCmd = &cobra.Command{
	Use:   "quota <user>",
	Short: "Show a user's remaining request quota",
	Long: `Show how many requests a user may still submit in the current window.

Examples:
  lemedia quota alice
  lemedia quota alice -t tv`,
	Args: cobra.ExactArgs(1),
	RunE: runQuotaCmd,
}

func init() {
	rootCmd.AddCommand(quotaCmd)
	quotaCmd.Flags().StringP("type", "t", "movie", "Media type (movie|tv)")
}

func runQuotaCmd(cmd *cobra.Command, args []string) error {
	mediaType, _ := cmd.Flags().GetString("type")

	client := NewClient(serverURL)
	resp, err := client.Quota(args[0], mediaType)
	if err != nil {
		return fmt.Errorf("quota lookup failed: %w", err)
	}

	if jsonOutput {
		printJSON(resp)
		return nil
	}

	fmt.Printf("Quota for %s (%s):\n", resp.User, resp.MediaType)
	if resp.Limit <= 0 {
		fmt.Println("  Limit:     unlimited")
		return nil
	}

	fmt.Printf("  Limit:     %d per %d days\n", resp.Limit, resp.WindowDays)
	if resp.Exhausted {
		fmt.Printf("  Remaining: %d (exhausted)\n", resp.Remaining)
	} else {
		fmt.Printf("  Remaining: %d\n", resp.Remaining)
	}
	return nil
}
