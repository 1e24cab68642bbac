package downloads

import (
	"context"
	"os/exec"
	"path/filepath"
	"strconv"

	"fetcharr/internal/domain/consts"
	"fetcharr/internal/models"
	"fetcharr/internal/utils/logging"
)

// buildDownloadCommand builds the yt-dlp invocation for one task.
func (e *Engine) buildDownloadCommand(ctx context.Context, task models.Task) *exec.Cmd {
	args := make([]string, 0, 32)

	args = append(args,
		consts.YtDLPNewline,
		consts.YtDLPNoPlaylist,
		consts.YtDLPNoWarnings,
		consts.YtDLPRestrictFilenames,
		consts.YtDLPContinue,
		consts.YtDLPOutput, filepath.Join(e.opts.DownloadDir, consts.YtDLPFilenameSyntax),
		consts.YtDLPPrint, consts.YtDLPAfterMovePath,
	)

	switch task.Format {
	case models.FormatAudio:
		bitrate := consts.AudioQualityOptions[task.Quality]
		if bitrate == "" {
			bitrate = consts.AudioQualityOptions[consts.DefaultAudioQuality]
		}
		args = append(args,
			consts.YtDLPFormat, "bestaudio/best",
			consts.YtDLPExtractAudio,
			consts.YtDLPAudioFormat, "mp3",
			consts.YtDLPAudioQuality, bitrate+"K",
		)
	default:
		expr := consts.VideoQualityOptions[task.Quality]
		if expr == "" {
			expr = consts.VideoQualityOptions[consts.DefaultVideoQuality]
		}
		args = append(args,
			consts.YtDLPFormat, expr,
			consts.YtDLPMergeFormat, "mp4",
		)
	}

	if e.opts.FFmpegLocation != "" {
		args = append(args, consts.YtDLPFFmpegLocation, e.opts.FFmpegLocation)
	}

	if e.opts.CookieFile != "" {
		args = append(args, consts.YtDLPCookies, e.opts.CookieFile)
	}

	if e.opts.ExternalDownloader != "" {
		args = append(args, consts.YtDLPExternalDLer, e.opts.ExternalDownloader)
		if e.opts.ExternalDownloader == consts.Aria2c {
			args = append(args, consts.YtDLPExternalDLArgs, consts.Aria2c+":"+consts.Aria2cArgs)
		}
	}

	if e.opts.MaxRetries > 0 {
		args = append(args, consts.YtDLPRetries, strconv.Itoa(e.opts.MaxRetries))
	}

	// Target URL goes last.
	args = append(args, task.URL)

	cmd := exec.CommandContext(ctx, consts.YtDLP, args...)
	logging.D(1, "Built download command for URL %q:\n%v", task.URL, cmd.String())

	return cmd
}

// buildProbeCommand builds the metadata-only yt-dlp invocation.
func (e *Engine) buildProbeCommand(ctx context.Context, url string) *exec.Cmd {
	args := []string{
		consts.YtDLPDumpJSON,
		consts.YtDLPNoPlaylist,
		consts.YtDLPNoWarnings,
	}
	if e.opts.CookieFile != "" {
		args = append(args, consts.YtDLPCookies, e.opts.CookieFile)
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, consts.YtDLP, args...)
	logging.D(2, "Built metadata probe command for URL %q:\n%v", url, cmd.String())

	return cmd
}
