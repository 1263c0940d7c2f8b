package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leleasley/lemedia/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create a config file",
	Long: `Create a config file interactively.

Prompts for the server, database and integration settings and writes
them to config.toml (or the given path). With --defaults the annotated
template is written instead, with placeholders read from the
environment at startup.

Examples:
  lemedia init
  lemedia init --defaults
  lemedia init /etc/lemedia/config.toml --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInitCmd,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	initCmd.Flags().Bool("defaults", false, "Write the annotated template without prompting")
}

func runInitCmd(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	useDefaults, _ := cmd.Flags().GetBool("defaults")

	path := "config.toml"
	if len(args) > 0 {
		path = args[0]
	}

	var existing *config.Config
	if _, err := os.Stat(path); err == nil {
		if !force {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		// Overwriting: reuse the old values as prompt defaults. A config
		// that no longer parses just means no prefill.
		existing, _ = config.LoadWithoutValidation(path)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}

	if useDefaults {
		if err := config.WriteDefault(path); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("Wrote %s\n", path)
		fmt.Println("Edit it, or export the referenced environment variables, then run 'lemedia config test'.")
		return nil
	}

	content, err := runWizard(existing)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	fmt.Println()
	fmt.Printf("Wrote %s\n", path)
	fmt.Printf("Validate it with 'lemedia config test %s', then start the server with 'lemediad'.\n", path)
	return nil
}

func runWizard(existing *config.Config) (string, error) {
	fmt.Println("lemedia setup wizard")
	fmt.Println("Empty answers keep the default; integrations with no URL are skipped.")
	fmt.Println()

	pre := existing
	if pre == nil {
		pre = &config.Config{}
	}

	fmt.Println("Server")
	portDefault := "5055"
	if pre.Server.Port != 0 {
		portDefault = strconv.Itoa(pre.Server.Port)
	}
	port, err := strconv.Atoi(promptWithDefault("  Listen port", portDefault))
	if err != nil {
		return "", fmt.Errorf("invalid port")
	}
	dbDefault := "./data/lemedia.db"
	if pre.Database.Path != "" {
		dbDefault = pre.Database.Path
	}
	dbPath := promptWithDefault("  Database path", dbDefault)

	var b strings.Builder
	fmt.Fprintf(&b, "# lemedia configuration, generated by 'lemedia init'\n\n")
	fmt.Fprintf(&b, "[server]\nhost = \"0.0.0.0\"\nport = %d\nlog_level = \"info\"\n\n", port)
	fmt.Fprintf(&b, "[database]\npath = %q\n", dbPath)

	fmt.Println()
	fmt.Println("Media server (library availability)")
	msURL, msKey := "", ""
	if pre.MediaServer != nil {
		msURL, msKey = pre.MediaServer.URL, pre.MediaServer.APIKey
	}
	msURL = promptWithDefault("  URL", msURL)
	if msURL != "" {
		if msKey == "" {
			msKey = promptRequired("  API key")
		} else {
			msKey = promptWithDefault("  API key", msKey)
		}
		fmt.Fprintf(&b, "\n[mediaserver]\nurl = %q\napi_key = %q\n", msURL, msKey)
	}

	fmt.Println()
	fmt.Println("Catalog (metadata, release calendar)")
	catKey := ""
	if pre.Catalog != nil {
		catKey = pre.Catalog.APIKey
	}
	catKey = promptWithDefault("  API key", catKey)
	if catKey != "" {
		fmt.Fprintf(&b, "\n[catalog]\napi_key = %q\n", catKey)
	}

	if section, ok := wizardAutomation("Series automation", pre.SeriesAutomation, "/tv"); ok {
		fmt.Fprintf(&b, "\n[series_automation]\n%s", section)
	}
	if section, ok := wizardAutomation("Movie automation", pre.MovieAutomation, "/movies"); ok {
		fmt.Fprintf(&b, "\n[movie_automation]\n%s", section)
	}

	fmt.Println()
	fmt.Println("Quota (requests per user per 7 days, 0 = unlimited)")
	movieLimit, err := strconv.Atoi(promptWithDefault("  Movies", strconv.Itoa(pre.Quota.MovieLimit)))
	if err != nil {
		return "", fmt.Errorf("invalid movie quota")
	}
	tvLimit, err := strconv.Atoi(promptWithDefault("  Series", strconv.Itoa(pre.Quota.TVLimit)))
	if err != nil {
		return "", fmt.Errorf("invalid tv quota")
	}
	if movieLimit > 0 || tvLimit > 0 {
		fmt.Fprintf(&b, "\n[quota]\nmovie_limit = %d\ntv_limit = %d\n", movieLimit, tvLimit)
	}

	fmt.Fprintf(&b, "\n[sweep]\nenabled = true\n")
	return b.String(), nil
}

func wizardAutomation(label string, pre *config.AutomationConfig, rootDefault string) (string, bool) {
	fmt.Println()
	fmt.Println(label)

	url, key, root := "", "", rootDefault
	if pre != nil {
		url, key = pre.URL, pre.APIKey
		if pre.RootFolder != "" {
			root = pre.RootFolder
		}
	}

	url = promptWithDefault("  URL", url)
	if url == "" {
		return "", false
	}
	if key == "" {
		key = promptRequired("  API key")
	} else {
		key = promptWithDefault("  API key", key)
	}
	root = promptWithDefault("  Root folder", root)

	return fmt.Sprintf("url = %q\napi_key = %q\nroot_folder = %q\n", url, key, root), true
}

// promptWithDefault shows a prompt with default value in brackets.
// Returns the user's input, or the default if input is empty.
func promptWithDefault(label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

// promptRequired prompts until a non-empty value is provided.
func promptRequired(label string) string {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("%s: ", label)
		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input != "" {
			return input
		}
		fmt.Println("  Value required")
	}
}
