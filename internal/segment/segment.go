package segment

import (
	"regexp"
	"strings"
)

// Segment is a blank-line-delimited unit of script text, optionally tagged
// with a leading [M:SS] timestamp.
type Segment struct {
	Timestamp string // "" when the segment carries no timestamp
	Text      string
}

var (
	blankLines  = regexp.MustCompile(`\n\n+`)
	timestamped = regexp.MustCompile(`^\[(\d+:\d+)\]\s*(.+)$`)
)

// Parse splits a script into segments on runs of blank lines. Each chunk is
// trimmed and empty chunks are dropped, so Parse is lossy-normalizing:
// Format(Parse(s)) reproduces s up to whitespace normalization, not
// byte-for-byte.
func Parse(script string) []Segment {
	var segments []Segment
	for _, chunk := range blankLines.Split(script, -1) {
		trimmed := strings.TrimSpace(chunk)
		if trimmed == "" {
			continue
		}

		if m := timestamped.FindStringSubmatch(trimmed); m != nil {
			segments = append(segments, Segment{Timestamp: m[1], Text: m[2]})
		} else {
			segments = append(segments, Segment{Text: trimmed})
		}
	}
	return segments
}

// Format reassembles segments into script form, re-emitting "[M:SS] text"
// for timestamped segments and joining everything with blank lines.
func Format(segments []Segment) string {
	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = seg.String()
	}
	return strings.Join(parts, "\n\n")
}

func (s Segment) String() string {
	if s.Timestamp != "" {
		return "[" + s.Timestamp + "] " + s.Text
	}
	return s.Text
}
