package models

import "fmt"

// Format is the requested output kind of a task.
type Format string

const (
	// FormatAudio downloads audio only and extracts to MP3.
	FormatAudio Format = "audio"

	// FormatVideo downloads audio+video merged to MP4.
	FormatVideo Format = "video"
)

// Ext returns the container extension for the format.
func (f Format) Ext() string {
	if f == FormatAudio {
		return "mp3"
	}
	return "mp4"
}

// ParseFormat parses a user-supplied format string. Both the API names
// and the container extensions are accepted.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "audio", "mp3":
		return FormatAudio, nil
	case "video", "mp4":
		return FormatVideo, nil
	default:
		return "", fmt.Errorf("invalid format %q, use 'audio' or 'video'", s)
	}
}
