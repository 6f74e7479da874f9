package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/franz/tunedex/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "tdx",
		Short: "tunedex - a queryable index of your music library",
		Long: `tdx (tunedex) keeps a SQLite index of a music library stored as nested
directories on disk. It reconciles the index against the filesystem on
demand, extracts and deduplicates tag metadata, and resolves cover artwork
from embedded tags, a disk cache, the album folder or MusicBrainz.`,
		Version:      Version,
		SilenceUsage: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/tdx.yaml or ./tdx.yaml)")
	rootCmd.PersistentFlags().String("db", "tdx.db", "index database file")
	rootCmd.PersistentFlags().StringP("library", "l", "", "music library base path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("library.base_path", rootCmd.PersistentFlags().Lookup("library"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	util.SetConfigDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("tdx")
		viper.SetConfigType("yaml")
	}

	// TDX_LIBRARY_BASE_PATH, TDX_MEDIA_FETCH_ALBUM_ART, ...
	viper.SetEnvPrefix("TDX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
