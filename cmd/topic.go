package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/fundingbot/grantscope/internal/utils"
	"github.com/fundingbot/grantscope/pkg/engine"
	"github.com/fundingbot/grantscope/pkg/extract"
	"github.com/fundingbot/grantscope/pkg/storage"
)

// topicCmd represents the topic command
var topicCmd = &cobra.Command{
	Use:   "topic",
	Short: "Scrape curated search pages for topic-matched funding documents",
	Long: `Scrapes a flat list of search/catalog result pages for document cards,
scores each document against the education/youth keyword sets and keeps only
relevant items at or under the budget ceiling.`,
	Run: func(cmd *cobra.Command, args []string) {
		out, _ := cmd.Flags().GetString("out")
		maxBudget, _ := cmd.Flags().GetFloat64("max-budget")
		rate, _ := cmd.Flags().GetFloat64("rate")
		maxPages, _ := cmd.Flags().GetInt("max-pages")
		delay, _ := cmd.Flags().GetDuration("delay")
		searchURLs, _ := cmd.Flags().GetStringArray("search-url")
		dbPath, _ := cmd.Flags().GetString("db")
		noPDF, _ := cmd.Flags().GetBool("no-pdf")

		cfg := engine.TopicConfig{
			OutDir:     out,
			MaxBudget:  maxBudget,
			Rate:       rate,
			MaxPages:   maxPages,
			Delay:      delay,
			SearchURLs: searchURLs,
		}
		if noPDF {
			cfg.PDFText = extract.NoopExtractor()
		}
		if dbPath != "" {
			db, err := storage.Open(dbPath)
			if err != nil {
				log.Fatal("cannot open archive db: ", err)
			}
			defer db.Close()
			cfg.Archive = db
		}

		result, err := engine.RunTopics(context.Background(), cfg)
		if err != nil {
			log.Fatal(err)
		}
		utils.Log.Infof("run complete: %d of %d documents matched (%v)",
			len(result.Records), result.TotalFound, result.PerTheme)
		fmt.Println(result.CSVPath)
	},
}

func init() {
	rootCmd.AddCommand(topicCmd)

	topicCmd.Flags().StringP("out", "o", "./topic_out", "Output directory for the CSV and downloads")
	topicCmd.Flags().Float64P("max-budget", "", 100000, "Maximum accepted amount in USD")
	topicCmd.Flags().Float64P("rate", "", 83.0, "INR per USD conversion rate")
	topicCmd.Flags().IntP("max-pages", "", 200, "Maximum search pages to scrape")
	topicCmd.Flags().DurationP("delay", "", 1*time.Second, "Polite delay between requests")
	topicCmd.Flags().StringArrayP("search-url", "s", nil, "Search/catalog page to scrape (repeatable; defaults to the built-in list)")
	topicCmd.Flags().StringP("db", "", "", "Path to a sqlite archive db to record results in")
	topicCmd.Flags().BoolP("no-pdf", "", false, "Disable PDF text extraction")
}
