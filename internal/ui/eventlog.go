package ui

import (
	"context"
	"log/slog"

	"github.com/bamsammich/migrate/internal/event"
)

// EventLogger returns a sink that records every event as a structured
// "migrate.event" record at debug level.
func EventLogger(logger *slog.Logger) event.Sink {
	return event.SinkFunc(func(ev event.Event) {
		ctx := context.Background()
		if !logger.Enabled(ctx, slog.LevelDebug) {
			return
		}
		attrs := []slog.Attr{slog.String("type", ev.Type.String())}
		if ev.Src != "" {
			attrs = append(attrs, slog.String("src", ev.Src))
		}
		if ev.Dst != "" {
			attrs = append(attrs, slog.String("dst", ev.Dst))
		}
		if ev.Digest != "" {
			attrs = append(attrs, slog.String("digest", ev.Digest))
		}
		if ev.SrcDigest != "" || ev.DstDigest != "" {
			attrs = append(attrs,
				slog.String("src_digest", ev.SrcDigest),
				slog.String("dst_digest", ev.DstDigest))
		}
		if ev.Algorithm != "" {
			attrs = append(attrs, slog.String("algorithm", ev.Algorithm))
		}
		if ev.Size != 0 {
			attrs = append(attrs, slog.Int64("size", ev.Size))
		}
		if ev.Files != 0 || ev.Errors != 0 {
			attrs = append(attrs, slog.Int64("files", ev.Files), slog.Int64("errors", ev.Errors))
		}
		if ev.Error != nil {
			attrs = append(attrs, slog.String("error", ev.Error.Error()))
		}
		logger.LogAttrs(ctx, slog.LevelDebug, "migrate.event", attrs...)
	})
}
