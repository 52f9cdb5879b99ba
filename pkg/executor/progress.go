package executor

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chicogong/ffgraph/pkg/schemas"
)

var (
	frameRe   = regexp.MustCompile(`frame=\s*(\d+)`)
	fpsRe     = regexp.MustCompile(`fps=\s*([\d.]+)`)
	timeRe    = regexp.MustCompile(`time=\s*(\d+:\d{2}:\d{2}(?:\.\d+)?)`)
	sizeRe    = regexp.MustCompile(`size=\s*(\d+)(kB|KiB)`)
	bitrateRe = regexp.MustCompile(`bitrate=\s*([\d.]+kbits/s|N/A)`)
	speedRe   = regexp.MustCompile(`speed=\s*([\d.]+)x`)
)

// ProgressParser turns ffmpeg progress reports into snapshots. It reads both
// the human-readable stats line on stderr ("frame= 100 fps=30 ...") and the
// key=value blocks written by "-progress".
type ProgressParser struct {
	totalDuration time.Duration

	// pending accumulates the current -progress block
	pending schemas.FFmpegProgress
}

// NewProgressParser creates a new progress parser
func NewProgressParser() *ProgressParser {
	return &ProgressParser{}
}

// SetTotalDuration sets the total duration for percentage calculation
func (pp *ProgressParser) SetTotalDuration(duration time.Duration) {
	pp.totalDuration = duration
}

// ParseLine parses a stats line. It returns nil if the line carries no
// progress information.
func (pp *ProgressParser) ParseLine(line string) *schemas.FFmpegProgress {
	if !strings.Contains(line, "frame=") && !strings.Contains(line, "size=") {
		return nil
	}
	if !strings.Contains(line, "time=") {
		return nil
	}

	p := &schemas.FFmpegProgress{TotalTime: pp.totalDuration}

	if m := frameRe.FindStringSubmatch(line); m != nil {
		p.Frame, _ = strconv.ParseInt(m[1], 10, 64)
	}
	if m := fpsRe.FindStringSubmatch(line); m != nil {
		p.FPS, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := timeRe.FindStringSubmatch(line); m != nil {
		p.CurrentTime = parseFFmpegTime(m[1])
	}
	if m := sizeRe.FindStringSubmatch(line); m != nil {
		kb, _ := strconv.ParseInt(m[1], 10, 64)
		p.TotalSize = kb * 1024
	}
	if m := bitrateRe.FindStringSubmatch(line); m != nil && m[1] != "N/A" {
		p.Bitrate = m[1]
	}
	if m := speedRe.FindStringSubmatch(line); m != nil {
		p.Speed, _ = strconv.ParseFloat(m[1], 64)
	}
	return p
}

// Feed consumes one line of "-progress" output. A block ends with a
// "progress=continue" or "progress=end" line; Feed returns the completed
// snapshot then and nil otherwise.
func (pp *ProgressParser) Feed(line string) *schemas.FFmpegProgress {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return nil
	}
	value = strings.TrimSpace(value)

	switch key {
	case "frame":
		pp.pending.Frame, _ = strconv.ParseInt(value, 10, 64)
	case "fps":
		pp.pending.FPS, _ = strconv.ParseFloat(value, 64)
	case "out_time_us", "out_time_ms":
		// out_time_ms is microseconds as well
		if us, err := strconv.ParseInt(value, 10, 64); err == nil {
			pp.pending.CurrentTime = time.Duration(us) * time.Microsecond
		}
	case "total_size":
		pp.pending.TotalSize, _ = strconv.ParseInt(value, 10, 64)
	case "bitrate":
		if value != "N/A" {
			pp.pending.Bitrate = value
		}
	case "speed":
		pp.pending.Speed, _ = strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64)
	case "progress":
		snapshot := pp.pending
		snapshot.TotalTime = pp.totalDuration
		snapshot.Done = value == "end"
		pp.pending = schemas.FFmpegProgress{}
		return &snapshot
	}
	return nil
}

// ComputePercentage computes completion percentage based on time
func (pp *ProgressParser) ComputePercentage(p *schemas.FFmpegProgress) float64 {
	if p.Done {
		return 100.0
	}
	if pp.totalDuration <= 0 {
		return 0.0
	}

	percentage := float64(p.CurrentTime) / float64(pp.totalDuration) * 100.0
	return min(percentage, 100.0)
}

// parseFFmpegTime parses ffmpeg's HH:MM:SS.frac clock format.
func parseFFmpegTime(timeStr string) time.Duration {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 3 {
		return 0
	}

	hours, _ := strconv.Atoi(parts[0])
	minutes, _ := strconv.Atoi(parts[1])
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second)).Round(time.Millisecond)
}
