package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fundingbot/grantscope/pkg/search"
	"github.com/fundingbot/grantscope/pkg/whttp"
)

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve <organization name>",
	Short: "Resolve a foundation's likely official website",
	Long: `Runs the organization name through the configured search backends in
priority order, falling back to a Wikipedia lookup and finally deterministic
domain guessing, and prints the most plausible official website URL.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := strings.Join(args, " ")
		proxy, _ := rootCmd.PersistentFlags().GetString("proxy")

		client := whttp.NewClient(10*time.Second, 500*time.Millisecond)
		if proxy != "" {
			if err := client.SetProxy(proxy); err != nil {
				log.Fatal(err)
			}
		}

		pool := search.FromKeys(client, searchKeys())
		url := pool.FoundationWebsite(name)
		if url == "" {
			fmt.Fprintln(os.Stderr, "no website found for", name)
			os.Exit(1)
		}
		fmt.Println(url)
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
