package downloads

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// progressPattern matches yt-dlp --newline progress output, e.g.
// "[download]  42.5% of 10.00MiB at 1.25MiB/s ETA 00:30".
var progressPattern = regexp.MustCompile(
	`^\[download\]\s+([\d.]+)%(?:\s+of\s+~?\s*\S+)?(?:\s+at\s+(\S+))?(?:\s+ETA\s+(\S+))?`)

// postProcessPrefixes mark lines where yt-dlp has finished the transfer
// and handed off to ffmpeg.
var postProcessPrefixes = []string{
	"[ExtractAudio]",
	"[Merger]",
	"[VideoConvertor]",
	"[VideoRemuxer]",
	"[Fixup",
}

// ProgressReport is the parsed form of one yt-dlp progress line.
type ProgressReport struct {
	Percent float64
	Speed   string
	ETA     string
}

// ParseProgressLine parses a "[download] ..." progress line. The second
// return is false for lines carrying no progress information.
func ParseProgressLine(line string) (ProgressReport, bool) {
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return ProgressReport{}, false
	}

	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return ProgressReport{}, false
	}

	r := ProgressReport{Percent: pct, Speed: m[2], ETA: m[3]}
	if strings.EqualFold(r.Speed, "unknown") {
		r.Speed = ""
	}
	if strings.EqualFold(r.ETA, "unknown") {
		r.ETA = ""
	}
	return r, true
}

// IsPostProcessingLine reports whether the line marks the start of
// ffmpeg post-processing.
func IsPostProcessingLine(line string) bool {
	for _, prefix := range postProcessPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// mediaExtensions are the container extensions the after-move filepath
// print may end with.
var mediaExtensions = map[string]bool{
	".mp3":  true,
	".mp4":  true,
	".m4a":  true,
	".mkv":  true,
	".webm": true,
	".opus": true,
	".wav":  true,
}

// isOutputPathLine reports whether the line is the final file path
// printed by "--print after_move:filepath".
func isOutputPathLine(line string) bool {
	if !filepath.IsAbs(line) && !strings.HasPrefix(line, "./") {
		return false
	}
	return mediaExtensions[strings.ToLower(filepath.Ext(line))]
}
