package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fundingbot/grantscope/internal/utils"
	"github.com/fundingbot/grantscope/pkg/engine"
	"github.com/fundingbot/grantscope/pkg/extract"
	"github.com/fundingbot/grantscope/pkg/storage"
	"github.com/fundingbot/grantscope/pkg/whttp"
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl an allow-listed site for budget-band funding documents",
	Long: `Walks allow-listed domains breadth-first from the seed URLs, classifies
discovered links into pages, detail pages and documents, extracts monetary
figures from each candidate and writes the records within the accepted USD
band to a CSV file.`,
	Run: func(cmd *cobra.Command, args []string) {
		out, _ := cmd.Flags().GetString("out")
		minUSD, _ := cmd.Flags().GetFloat64("min")
		maxUSD, _ := cmd.Flags().GetFloat64("max")
		rate, _ := cmd.Flags().GetFloat64("rate")
		maxPages, _ := cmd.Flags().GetInt("max-pages")
		delay, _ := cmd.Flags().GetDuration("delay")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		seeds, _ := cmd.Flags().GetStringArray("seed")
		domains, _ := cmd.Flags().GetStringArray("domain")
		detailPatterns, _ := cmd.Flags().GetStringArray("detail-pattern")
		keepUnknown, _ := cmd.Flags().GetBool("keep-unknown")
		dbPath, _ := cmd.Flags().GetString("db")
		noPDF, _ := cmd.Flags().GetBool("no-pdf")
		folder, _ := cmd.Flags().GetString("upload-folder")
		proxy, _ := rootCmd.PersistentFlags().GetString("proxy")

		if minUSD > maxUSD {
			log.Fatal("--min must not exceed --max")
		}

		cfg := engine.Config{
			OutDir:             out,
			MinUSD:             minUSD,
			MaxUSD:             maxUSD,
			KeepUnknownAmounts: keepUnknown,
			Rate:               rate,
			MaxPages:           maxPages,
			Delay:              delay,
			Timeout:            timeout,
			Seeds:              seeds,
			AllowedDomains:     domains,
			DetailPatterns:     detailPatterns,
			UploadFolderID:     folder,
		}
		if folder == "" {
			cfg.UploadFolderID = viper.GetString("upload.folder")
		}
		if noPDF {
			cfg.PDFText = extract.NoopExtractor()
		}
		if proxy != "" {
			cfg.Client = whttp.NewClient(timeout, delay)
			if err := cfg.Client.SetProxy(proxy); err != nil {
				log.Fatal(err)
			}
		}
		if dbPath != "" {
			db, err := storage.Open(dbPath)
			if err != nil {
				log.Fatal("cannot open archive db: ", err)
			}
			defer db.Close()
			cfg.Archive = db
		}

		result, err := engine.Run(context.Background(), cfg)
		if err != nil {
			log.Fatal(err)
		}
		utils.Log.Infof("run complete: %d records", len(result.Records))
		fmt.Println(result.CSVPath)
	},
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringP("out", "o", "./out", "Output directory for the CSV and downloads")
	crawlCmd.Flags().Float64P("min", "", 30000, "Minimum accepted amount in USD")
	crawlCmd.Flags().Float64P("max", "", 50000, "Maximum accepted amount in USD")
	crawlCmd.Flags().Float64P("rate", "", 83.0, "INR per USD conversion rate")
	crawlCmd.Flags().IntP("max-pages", "", 400, "Maximum HTML pages to crawl")
	crawlCmd.Flags().DurationP("delay", "", 800*time.Millisecond, "Polite delay between requests")
	crawlCmd.Flags().DurationP("timeout", "", 20*time.Second, "Per-request HTTP timeout")
	crawlCmd.Flags().StringArrayP("seed", "s", nil, "Seed URL (repeatable; defaults to the built-in list)")
	crawlCmd.Flags().StringArrayP("domain", "d", nil, "Allowed domain suffix (repeatable; defaults derived from seeds)")
	crawlCmd.Flags().StringArrayP("detail-pattern", "", nil, "URL substring marking a structured detail page (repeatable)")
	crawlCmd.Flags().BoolP("keep-unknown", "", true, "Keep records whose amount could not be parsed")
	crawlCmd.Flags().StringP("db", "", "", "Path to a sqlite archive db to record results in")
	crawlCmd.Flags().BoolP("no-pdf", "", false, "Disable PDF text extraction")
	crawlCmd.Flags().StringP("upload-folder", "", "", "Remote storage folder id to upload the CSV to")
}
