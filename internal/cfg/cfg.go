// Package cfg provides configuration and command-line setup for fetcharr.
package cfg

import (
	"fmt"
	"os"
	"strings"
	"time"

	"fetcharr/internal/domain/consts"
	"fetcharr/internal/domain/keys"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "fetcharr",
	Short: "Fetcharr is a web tool for downloading and transcribing videos.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if viper.IsSet(keys.ConfigFile) {
			configFile := viper.GetString(keys.ConfigFile)

			info, err := os.Stat(configFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed check for config file path: %v\n", err)
				os.Exit(1)
			} else if info.IsDir() {
				fmt.Fprintln(os.Stderr, "config file entered is a directory, should be a file")
				os.Exit(1)
			}

			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				fmt.Fprintf(os.Stderr, "failed loading config file: %v\n", err)
				os.Exit(1)
			}
		}
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Flags().Lookup("help").Changed {
			return nil
		}
		viper.Set("execute", true)
		return nil
	},
}

// Init registers all flags and environment bindings.
func Init() error {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("FETCHARR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	return initProgramFlags(rootCmd)
}

// Execute parses flags and runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Ready reports whether the root command decided the program should run
// (i.e. help was not requested).
func Ready() bool {
	return viper.GetBool("execute")
}

// initProgramFlags sets up the main program flags and binds them to viper.
func initProgramFlags(cmd *cobra.Command) error {
	flags := cmd.PersistentFlags()

	flags.String(keys.Port, consts.DefaultPort, "Port to serve the web UI and API on")
	flags.String(keys.ConfigFile, "", "Path to a config file (any Viper-supported format)")
	flags.Int(keys.DebugLevel, 0, "Debug level (0 - 5)")
	flags.String(keys.DownloadDir, consts.DefaultDownloadDir, "Directory finished downloads are written to")
	flags.Int(keys.MaxConcurrentDownloads, consts.DefaultMaxConcurrent, "Maximum simultaneous downloads")
	flags.Int(keys.MaxURLsPerRequest, consts.DefaultMaxURLsPerRequest, "Maximum URLs accepted in one submission")
	flags.Int(keys.DownloadRetries, consts.DefaultDownloadRetries, "Retry attempts for transient download failures")
	flags.Duration(keys.MaxTaskDuration, 0, "Per-task time limit (0 disables)")
	flags.String(keys.FFmpegLocation, "", "Path to ffmpeg (defaults to $PATH lookup)")
	flags.String(keys.ExternalDownloader, "", "External transfer program for yt-dlp (e.g. aria2c)")
	flags.String(keys.CookiesFromBrowser, "", "Browser to export YouTube cookies from (e.g. firefox)")
	flags.String(keys.CookieFilePath, "", "Netscape cookie file to pass to yt-dlp")
	flags.String(keys.WhisperModel, consts.DefaultWhisperModel, "Whisper model used for transcription")
	flags.Bool(keys.EnableTranscription, true, "Allow transcription requests")
	flags.String(keys.HistoryDBPath, consts.DefaultHistoryDB, "SQLite file for the download history log")
	flags.String(keys.WebDir, "", "Directory holding the built web frontend")

	return viper.BindPFlags(flags)
}

// Settings is the resolved program configuration.
type Settings struct {
	Port                   string
	DebugLevel             int
	DownloadDir            string
	MaxConcurrentDownloads int
	MaxURLsPerRequest      int
	DownloadRetries        int
	MaxTaskDuration        time.Duration
	FFmpegLocation         string
	ExternalDownloader     string
	CookiesFromBrowser     string
	CookieFilePath         string
	WhisperModel           string
	EnableTranscription    bool
	HistoryDBPath          string
	WebDir                 string
}

// Resolve reads the final settings out of viper.
func Resolve() Settings {
	return Settings{
		Port:                   viper.GetString(keys.Port),
		DebugLevel:             viper.GetInt(keys.DebugLevel),
		DownloadDir:            viper.GetString(keys.DownloadDir),
		MaxConcurrentDownloads: viper.GetInt(keys.MaxConcurrentDownloads),
		MaxURLsPerRequest:      viper.GetInt(keys.MaxURLsPerRequest),
		DownloadRetries:        viper.GetInt(keys.DownloadRetries),
		MaxTaskDuration:        viper.GetDuration(keys.MaxTaskDuration),
		FFmpegLocation:         viper.GetString(keys.FFmpegLocation),
		ExternalDownloader:     viper.GetString(keys.ExternalDownloader),
		CookiesFromBrowser:     viper.GetString(keys.CookiesFromBrowser),
		CookieFilePath:         viper.GetString(keys.CookieFilePath),
		WhisperModel:           viper.GetString(keys.WhisperModel),
		EnableTranscription:    viper.GetBool(keys.EnableTranscription),
		HistoryDBPath:          viper.GetString(keys.HistoryDBPath),
		WebDir:                 viper.GetString(keys.WebDir),
	}
}
