package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var availabilityCmd = &cobra.Command{
	Use:   "availability",
	Short: "Check whether the library already has a title",
}

var availabilityMovieCmd = &cobra.Command{
	Use:   "movie <catalog-id>",
	Short: "Check a movie",
	Long: `Check whether a movie is in the media server library.

Examples:
  lemedia availability movie 603
  lemedia availability movie 603 --title "The Matrix"`,
	Args: cobra.ExactArgs(1),
	RunE: runAvailabilityMovie,
}

var availabilityEpisodeCmd = &cobra.Command{
	Use:   "episode",
	Short: "Check a single episode",
	Long: `Check whether one episode is in the media server library.

Identify the series by catalog ID, legacy ID or title, and the episode
by season/episode numbers. Daily shows match on air date instead.

Examples:
  lemedia availability episode --catalog-id 1399 --season 1 --episode 3
  lemedia availability episode --title "The Daily Show" --daily --air-date 2026-08-20`,
	Args: cobra.NoArgs,
	RunE: runAvailabilityEpisode,
}

func init() {
	rootCmd.AddCommand(availabilityCmd)
	availabilityCmd.AddCommand(availabilityMovieCmd, availabilityEpisodeCmd)

	availabilityMovieCmd.Flags().String("title", "", "Title, used as a fallback match")

	availabilityEpisodeCmd.Flags().Int64("catalog-id", 0, "Catalog ID of the series")
	availabilityEpisodeCmd.Flags().Int64("legacy-id", 0, "Legacy ID of the series")
	availabilityEpisodeCmd.Flags().String("title", "", "Series title")
	availabilityEpisodeCmd.Flags().Int("season", 0, "Season number")
	availabilityEpisodeCmd.Flags().Int("episode", 0, "Episode number")
	availabilityEpisodeCmd.Flags().String("air-date", "", "Air date (YYYY-MM-DD)")
	availabilityEpisodeCmd.Flags().Bool("daily", false, "Match by air date (daily shows)")
}

func runAvailabilityMovie(cmd *cobra.Command, args []string) error {
	catalogID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid catalog ID: %s", args[0])
	}
	title, _ := cmd.Flags().GetString("title")

	client := NewClient(serverURL)
	resp, err := client.MovieAvailability(catalogID, title)
	if err != nil {
		return fmt.Errorf("availability check failed: %w", err)
	}

	printAvailability(resp)
	return nil
}

func runAvailabilityEpisode(cmd *cobra.Command, args []string) error {
	catalogID, _ := cmd.Flags().GetInt64("catalog-id")
	legacyID, _ := cmd.Flags().GetInt64("legacy-id")
	title, _ := cmd.Flags().GetString("title")
	season, _ := cmd.Flags().GetInt("season")
	episode, _ := cmd.Flags().GetInt("episode")
	airDate, _ := cmd.Flags().GetString("air-date")
	daily, _ := cmd.Flags().GetBool("daily")

	client := NewClient(serverURL)
	resp, err := client.EpisodeAvailability(EpisodeQuery{
		CatalogID: catalogID,
		LegacyID:  legacyID,
		Title:     title,
		Season:    season,
		Episode:   episode,
		AirDate:   airDate,
		Daily:     daily,
	})
	if err != nil {
		return fmt.Errorf("availability check failed: %w", err)
	}

	printAvailability(resp)
	return nil
}

func printAvailability(resp *AvailabilityResponse) {
	if jsonOutput {
		printJSON(resp)
		return
	}

	if !resp.Available {
		fmt.Println("Not available")
		return
	}
	if resp.ItemID != "" {
		fmt.Printf("Available (item %s)\n", resp.ItemID)
		return
	}
	fmt.Println("Available")
}
