// Package media вызывает ffmpeg для постобработки записанных реплеев.
//
// Аргументы командной строки собираются отдельными функциями, чтобы их можно
// было проверить без установленного ffmpeg.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrFFmpegNotFound = errors.New("ffmpeg not found")

type FFmpeg struct {
	path string
	log  *zap.Logger
}

func New(path string, log *zap.Logger) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{path: path, log: log}
}

// GIFOptions — параметры производной анимации
type GIFOptions struct {
	FPS   int
	Width int
}

func (o GIFOptions) withDefaults() GIFOptions {
	if o.FPS <= 0 {
		o.FPS = 10
	}
	if o.Width <= 0 {
		o.Width = 640
	}
	return o
}

// FixMetadataArgs копирует потоки без перекодирования, чтобы в webm появились
// длительность и индекс для перемотки. trim отрезает начало записи.
func FixMetadataArgs(src, dst string, trim time.Duration) []string {
	args := []string{"-y", "-loglevel", "error"}
	if trim > 0 {
		args = append(args, "-ss", formatSeconds(trim))
	}
	return append(args, "-i", src, "-c:v", "copy", "-c:a", "copy", dst)
}

func GIFArgs(src, dst string, opts GIFOptions) []string {
	opts = opts.withDefaults()
	filter := fmt.Sprintf(
		"fps=%d,scale=%d:-1:flags=lanczos,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse",
		opts.FPS, opts.Width,
	)
	return []string{"-y", "-loglevel", "error", "-i", src, "-vf", filter, "-loop", "0", dst}
}

func (f *FFmpeg) FixMetadata(ctx context.Context, src, dst string, trim time.Duration) error {
	if err := f.run(ctx, FixMetadataArgs(src, dst, trim)); err != nil {
		return fmt.Errorf("ошибка исправления метаданных: %w", err)
	}
	return nil
}

func (f *FFmpeg) ToGIF(ctx context.Context, src, dst string, opts GIFOptions) error {
	if err := f.run(ctx, GIFArgs(src, dst, opts)); err != nil {
		return fmt.Errorf("ошибка конвертации в gif: %w", err)
	}
	return nil
}

func (f *FFmpeg) run(ctx context.Context, args []string) error {
	if _, err := exec.LookPath(f.path); err != nil {
		return fmt.Errorf("%w: %v", ErrFFmpegNotFound, err)
	}

	f.log.Debug("ffmpeg", zap.Strings("args", args))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.path, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
