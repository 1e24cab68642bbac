package consts

// yt-dlp flags used when building download and probe commands.
const (
	YtDLPOutput            = "-o"
	YtDLPNoPlaylist        = "--no-playlist"
	YtDLPNewline           = "--newline"
	YtDLPRestrictFilenames = "--restrict-filenames"
	YtDLPContinue          = "--continue"
	YtDLPFormat            = "-f"
	YtDLPExtractAudio      = "--extract-audio"
	YtDLPAudioFormat       = "--audio-format"
	YtDLPAudioQuality      = "--audio-quality"
	YtDLPMergeFormat       = "--merge-output-format"
	YtDLPFFmpegLocation    = "--ffmpeg-location"
	YtDLPExternalDLer      = "--downloader"
	YtDLPExternalDLArgs    = "--downloader-args"
	YtDLPCookies           = "--cookies"
	YtDLPPrint             = "--print"
	YtDLPAfterMovePath     = "after_move:filepath"
	YtDLPDumpJSON          = "-J"
	YtDLPNoWarnings        = "--no-warnings"
	YtDLPRetries           = "--retries"

	YtDLPFilenameSyntax = "%(title)s_%(id)s.%(ext)s"
)
