package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// levelRouter sends records below ERROR to out and the rest to errOut.
// Records under min are dropped.
type levelRouter struct {
	min    slog.Level
	out    slog.Handler
	errOut slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= lr.min
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.errOut.Handle(ctx, r)
	}
	return lr.out.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{min: lr.min, out: lr.out.WithAttrs(attrs), errOut: lr.errOut.WithAttrs(attrs)}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{min: lr.min, out: lr.out.WithGroup(name), errOut: lr.errOut.WithGroup(name)}
}

type logOptions struct {
	path    string
	verbose bool
	json    bool
}

// setupLogger installs the default logger. When opts.path is set every
// record is also appended to that file; the returned cleanup closes it and
// is nil otherwise.
func setupLogger(opts logOptions) (func(), error) {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}

	var cleanup func()
	out, errOut := io.Writer(os.Stdout), io.Writer(os.Stderr)
	if opts.path != "" {
		f, err := os.OpenFile(opts.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		out = io.MultiWriter(os.Stdout, f)
		errOut = io.MultiWriter(os.Stderr, f)
	}

	newHandler := func(w io.Writer) slog.Handler {
		ho := &slog.HandlerOptions{Level: level}
		if opts.json {
			return slog.NewJSONHandler(w, ho)
		}
		return slog.NewTextHandler(w, ho)
	}

	slog.SetDefault(slog.New(&levelRouter{min: level, out: newHandler(out), errOut: newHandler(errOut)}))
	return cleanup, nil
}
