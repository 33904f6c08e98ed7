package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/fundingbot/grantscope/internal/utils"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "grantscope",
	Short: "A funding-document discovery engine for grant seekers.",
	Long: `grantscope autonomously finds candidate grant and funding documents across
allow-listed web sources, extracts monetary figures and topic relevance from
noisy HTML/PDF content, and emits budget-filtered CSV records. It can also
resolve a foundation's official website across multiple search backends with
automatic quota failover.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.grantscope.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".grantscope")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.grantscope.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Set default empty values for all keys
	viper.SetDefault("scaleserp.key", "")
	viper.SetDefault("valueserp.key", "")
	viper.SetDefault("zenserp.key", "")
	viper.SetDefault("serpapi.key", "")
	viper.SetDefault("searchapi.key", "")
	viper.SetDefault("rapidapi.key", "")
	viper.SetDefault("bing.key", "")
	viper.SetDefault("upload.folder", "")

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}

// searchKeys collects whatever provider API keys the config carries.
func searchKeys() map[string]string {
	return map[string]string{
		"scaleserp": viper.GetString("scaleserp.key"),
		"valueserp": viper.GetString("valueserp.key"),
		"zenserp":   viper.GetString("zenserp.key"),
		"serpapi":   viper.GetString("serpapi.key"),
		"searchapi": viper.GetString("searchapi.key"),
		"rapidapi":  viper.GetString("rapidapi.key"),
		"bing":      viper.GetString("bing.key"),
	}
}
