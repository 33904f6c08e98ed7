package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/fundingbot/grantscope/pkg/storage"
)

// dbCmd groups archive inspection commands.
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the local proposal archive",
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print archive totals",
	Run: func(cmd *cobra.Command, args []string) {
		db := openArchive(cmd)
		defer db.Close()

		stats, err := db.Stats(context.Background())
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("proposals: %d\nchanges: %d\nsources: %d\n", stats.Proposals, stats.Changes, stats.Sources)
	},
}

var dbChangesCmd = &cobra.Command{
	Use:   "changes",
	Short: "List recently added or updated proposals",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		db := openArchive(cmd)
		defer db.Close()

		changes, err := db.RecentChanges(context.Background(), limit)
		if err != nil {
			log.Fatal(err)
		}
		for _, ch := range changes {
			fmt.Printf("%s  [%s] %s  %s (%s)\n", ch.OccurredAt.Format("2006-01-02 15:04"), ch.ChangeType, ch.Link, ch.Title, ch.Source)
		}
	},
}

func openArchive(cmd *cobra.Command) *storage.DB {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		log.Fatal("please provide the archive db path (--db flag)")
	}
	db, err := storage.Open(path)
	if err != nil {
		log.Fatal("cannot open archive db: ", err)
	}
	return db
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbStatsCmd)
	dbCmd.AddCommand(dbChangesCmd)

	dbCmd.PersistentFlags().StringP("db", "", "", "Path to the sqlite archive db")
	dbChangesCmd.Flags().IntP("limit", "n", 50, "Maximum changes to list")
}
