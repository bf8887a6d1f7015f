package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/media-grab-go/internal/domain"
)

// codecPolicy is fixed per container and not user-overridable
var codecPolicy = map[domain.Container][2]string{
	domain.ContainerWebM: {"libvpx-vp9", "libopus"},
	domain.ContainerMP4:  {"libx264", "aac"},
	domain.ContainerMKV:  {"libx264", "aac"},
}

// Audio extraction always forces these; the video stream is discarded
const (
	audioBitrate    = "192k"
	audioSampleRate = "44100"
)

// FFmpegPostProcessor cuts time ranges and extracts audio from an
// already-downloaded artifact, and probes durations via ffprobe.
// Transcode failures are never retried: they are not transient.
type FFmpegPostProcessor struct {
	config domain.TranscodeConfig
	runner *ProcessRunner
	logger *zap.Logger
}

// NewFFmpegPostProcessor creates a new post-processor
func NewFFmpegPostProcessor(config domain.TranscodeConfig, logger *zap.Logger) *FFmpegPostProcessor {
	return &FFmpegPostProcessor{
		config: config,
		runner: NewProcessRunner(1, 0, logger),
		logger: logger,
	}
}

// Cut re-encodes the given time range into outputDir. The output
// filename is deterministic: <stem>_<start>_<end>.<container> with
// colons in the timestamps replaced by dashes.
func (p *FFmpegPostProcessor) Cut(ctx context.Context, inputPath, outputDir, start, end string, container domain.Container) (string, error) {
	if err := domain.ValidateTimestamp(start); err != nil {
		return "", err
	}
	if err := domain.ValidateTimestamp(end); err != nil {
		return "", err
	}
	if err := domain.ValidateContainer(container); err != nil {
		return "", err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	codecs := codecPolicy[container]
	outputPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s_%s.%s",
		stem(inputPath), dashTime(start), dashTime(end), container))

	args := []string{
		"-i", inputPath,
		"-ss", start,
		"-to", end,
		"-c:v", codecs[0],
		"-c:a", codecs[1],
		"-y",
		outputPath,
	}

	if _, err := p.runner.Run(ctx, p.config.FFmpegBinary, args...); err != nil {
		return "", domain.NewPipelineError(domain.ErrTranscodeFailed, failedCommand(err), err)
	}

	p.logger.Info("Cut produced clip",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.String("range", start+"-"+end))
	return outputPath, nil
}

// ExtractAudio extracts an mp3 audio track, optionally limited to a
// time range. Each boundary is independently optional: a missing start
// means the beginning of the track, a missing end means its end. Without
// a range the output name carries no time suffix; an open boundary is
// rendered as "start" or "end" in the name.
func (p *FFmpegPostProcessor) ExtractAudio(ctx context.Context, inputPath, outputDir, start, end string) (string, error) {
	if start != "" {
		if err := domain.ValidateTimestamp(start); err != nil {
			return "", err
		}
	}
	if end != "" {
		if err := domain.ValidateTimestamp(end); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	name := stem(inputPath) + ".mp3"
	if start != "" || end != "" {
		from, to := "start", "end"
		if start != "" {
			from = dashTime(start)
		}
		if end != "" {
			to = dashTime(end)
		}
		name = fmt.Sprintf("%s_%s_%s.mp3", stem(inputPath), from, to)
	}
	outputPath := filepath.Join(outputDir, name)

	args := []string{"-i", inputPath}
	if start != "" {
		args = append(args, "-ss", start)
	}
	if end != "" {
		args = append(args, "-to", end)
	}
	args = append(args,
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", audioBitrate,
		"-ar", audioSampleRate,
		"-y",
		outputPath,
	)

	if _, err := p.runner.Run(ctx, p.config.FFmpegBinary, args...); err != nil {
		return "", domain.NewPipelineError(domain.ErrTranscodeFailed, failedCommand(err), err)
	}

	p.logger.Info("Extracted audio",
		zap.String("input", inputPath),
		zap.String("output", outputPath))
	return outputPath, nil
}

// ProbeDuration measures a file's duration in seconds via ffprobe
func (p *FFmpegPostProcessor) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	out, err := p.runner.Run(ctx, p.config.FFprobeBinary, args...)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe duration %q: %w", strings.TrimSpace(out), err)
	}
	return duration, nil
}

// stem returns the filename without directory or extension
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// dashTime makes a timestamp filename-safe: 00:01:30 -> 00-01-30
func dashTime(ts string) string {
	return strings.ReplaceAll(ts, ":", "-")
}

// failedCommand pulls the rendered command line out of a ProcessError
func failedCommand(err error) string {
	if perr, ok := err.(*ProcessError); ok {
		return perr.Command
	}
	return ""
}
