// Package prober inspects media files with ffprobe.
package prober

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chicogong/ffgraph/pkg/dag"
)

// DefaultBinary is the ffprobe executable looked up on PATH.
const DefaultBinary = "ffprobe"

// MediaInfo describes a probed file.
type MediaInfo struct {
	Filename string        `json:"filename"`
	Format   string        `json:"format"`
	Duration time.Duration `json:"duration"`
	Size     int64         `json:"size"`
	BitRate  int64         `json:"bit_rate"`
	Streams  []StreamInfo  `json:"streams"`
}

// StreamInfo describes one audio or video stream. Other stream kinds
// (subtitles, data) are not reported.
type StreamInfo struct {
	Index      int            `json:"index"`
	Type       dag.StreamType `json:"type"`
	Codec      string         `json:"codec"`
	Duration   time.Duration  `json:"duration,omitempty"`
	BitRate    int64          `json:"bit_rate,omitempty"`
	Width      int            `json:"width,omitempty"`
	Height     int            `json:"height,omitempty"`
	FrameRate  float64        `json:"frame_rate,omitempty"`
	PixFmt     string         `json:"pix_fmt,omitempty"`
	SampleRate int            `json:"sample_rate,omitempty"`
	Channels   int            `json:"channels,omitempty"`
}

// Count returns the number of streams of type t.
func (m *MediaInfo) Count(t dag.StreamType) int {
	n := 0
	for _, s := range m.Streams {
		if s.Type == t {
			n++
		}
	}
	return n
}

// Prober runs ffprobe.
type Prober struct {
	binary string
	logger *zap.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithBinary sets the ffprobe executable.
func WithBinary(path string) Option {
	return func(p *Prober) { p.binary = path }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Prober) { p.logger = logger }
}

// New creates a Prober.
func New(opts ...Option) *Prober {
	p := &Prober{binary: DefaultBinary, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BinaryFor guesses the ffprobe installed next to an ffmpeg executable.
func BinaryFor(ffmpeg string) string {
	dir, base := filepath.Split(ffmpeg)
	if !strings.HasPrefix(base, "ffmpeg") {
		return DefaultBinary
	}
	return dir + "ffprobe" + strings.TrimPrefix(base, "ffmpeg")
}

// Probe runs ffprobe on path.
func (p *Prober) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	args := []string{"-v", "error", "-print_format", "json", "-show_format", "-show_streams", path}
	p.logger.Debug("probing", zap.String("binary", p.binary), zap.String("path", path))

	cmd := exec.CommandContext(ctx, p.binary, args...)
	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("ffprobe %s: %s", path, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return Parse(out)
}

type probeOutput struct {
	Format struct {
		Filename   string `json:"filename"`
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		Index      int    `json:"index"`
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		PixFmt     string `json:"pix_fmt"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		BitRate    string `json:"bit_rate"`
		Duration   string `json:"duration"`
	} `json:"streams"`
}

// Parse decodes ffprobe's JSON output.
func Parse(data []byte) (*MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}

	info := &MediaInfo{
		Filename: out.Format.Filename,
		Format:   out.Format.FormatName,
		Duration: seconds(out.Format.Duration),
		Size:     integer(out.Format.Size),
		BitRate:  integer(out.Format.BitRate),
	}
	for _, s := range out.Streams {
		si := StreamInfo{
			Index:    s.Index,
			Codec:    s.CodecName,
			Duration: seconds(s.Duration),
			BitRate:  integer(s.BitRate),
		}
		switch s.CodecType {
		case "video":
			si.Type = dag.StreamTypeVideo
			si.Width, si.Height = s.Width, s.Height
			si.FrameRate = frameRate(s.RFrameRate)
			si.PixFmt = s.PixFmt
		case "audio":
			si.Type = dag.StreamTypeAudio
			si.SampleRate = int(integer(s.SampleRate))
			si.Channels = s.Channels
		default:
			continue
		}
		info.Streams = append(info.Streams, si)
		if info.Duration == 0 && si.Duration > info.Duration {
			info.Duration = si.Duration
		}
	}
	return info, nil
}

// seconds parses ffprobe's fractional seconds. "N/A" and garbage read as 0.
func seconds(s string) time.Duration {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

func integer(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// frameRate parses "30000/1001" or "25".
func frameRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
