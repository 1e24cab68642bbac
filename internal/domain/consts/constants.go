// Package consts holds program-wide constants.
package consts

import "time"

// Program defaults.
const (
	DefaultPort              = "8280"
	DefaultDownloadDir       = "downloads"
	DefaultMaxConcurrent     = 4
	DefaultMaxURLsPerRequest = 10
	DefaultWhisperModel      = "base"
	DefaultHistoryDB         = "fetcharr.db"
	DefaultAudioQuality      = "high"
	DefaultVideoQuality      = "best"
)

// External program names.
const (
	YtDLP   = "yt-dlp"
	FFmpeg  = "ffmpeg"
	FFprobe = "ffprobe"
	Aria2c  = "aria2c"
	Whisper = "whisper"
)

// Download retry behavior.
const (
	DefaultDownloadRetries = 3
	RetryInterval          = 5 * time.Second
)

// AudioQualityOptions maps quality selectors to MP3 bitrates (kbps).
var AudioQualityOptions = map[string]string{
	"high":   "320",
	"medium": "192",
	"low":    "128",
}

// VideoQualityOptions maps quality selectors to yt-dlp format expressions.
var VideoQualityOptions = map[string]string{
	"best":  "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
	"1080p": "bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/best[height<=1080][ext=mp4]/best[height<=1080]",
	"720p":  "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/best[height<=720][ext=mp4]/best[height<=720]",
	"480p":  "bestvideo[height<=480][ext=mp4]+bestaudio[ext=m4a]/best[height<=480][ext=mp4]/best[height<=480]",
}

// Aria2cArgs are the external downloader arguments used when aria2c is on $PATH.
const Aria2cArgs = "-x16 -s16 -k1M"
