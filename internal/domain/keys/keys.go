// Package keys holds the Viper configuration key constants.
package keys

const (
	Port       = "port"
	ConfigFile = "config-file"
	DebugLevel = "debug-level"

	DownloadDir            = "download-directory"
	MaxConcurrentDownloads = "max-concurrent-downloads"
	MaxURLsPerRequest      = "max-urls-per-request"
	DownloadRetries        = "download-retries"
	MaxTaskDuration        = "max-task-duration"

	FFmpegLocation     = "ffmpeg-location"
	ExternalDownloader = "external-downloader"
	CookiesFromBrowser = "cookies-from-browser"
	CookieFilePath     = "cookie-file"

	WhisperModel        = "whisper-model"
	EnableTranscription = "enable-transcription"

	HistoryDBPath = "history-db"
	WebDir        = "web-directory"
)
