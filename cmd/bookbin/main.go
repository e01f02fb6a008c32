package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/bookbin/internal/api"
	"github.com/erazemk/bookbin/internal/config"
	"github.com/erazemk/bookbin/internal/enrich"
	"github.com/erazemk/bookbin/internal/export"
	"github.com/erazemk/bookbin/internal/ingest"
)

const usage = `Usage: bookbin [flags] <command> [args]

Commands:
  serve                   run the HTTP API
  import-manifest <file>  load a supplier manifest CSV
  import-sales <file>     apply a marketplace sales report CSV
  enrich [identifier...]  enrich the given identifiers, or every pending scan
  export                  write a listing file for enriched scans

Flags:
  -d, -db <dsn>           SQLite path or postgres:// DSN (default: bookbin.sqlite3)
  -a, -addr <host:port>   listen address for serve (default: :8080)
  -o, -out <dir>          export directory (default: current directory)
  -t, -date <day>         export only scans from YYYY-MM-DD or "today"
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -v, -verbose            include debug records
      -json               log as JSON instead of text
  -h, -help               show this help and exit
`

func main() {
	fs := flag.NewFlagSet("bookbin", flag.ContinueOnError)

	var dsn string
	fs.StringVar(&dsn, "db", "bookbin.sqlite3", "")
	fs.StringVar(&dsn, "d", "bookbin.sqlite3", "")

	var addr string
	fs.StringVar(&addr, "addr", ":8080", "")
	fs.StringVar(&addr, "a", ":8080", "")

	var outDir string
	fs.StringVar(&outDir, "out", "", "")
	fs.StringVar(&outDir, "o", "", "")

	var date string
	fs.StringVar(&date, "date", "", "")
	fs.StringVar(&date, "t", "", "")

	var logOpts logOptions
	fs.StringVar(&logOpts.path, "log", "", "")
	fs.StringVar(&logOpts.path, "l", "", "")
	fs.BoolVar(&logOpts.verbose, "verbose", false, "")
	fs.BoolVar(&logOpts.verbose, "v", false, "")
	fs.BoolVar(&logOpts.json, "json", false, "")

	fs.Usage = func() { fmt.Fprint(os.Stdout, usage) }

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}

	closeLog, err := setupLogger(logOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, dsn)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}

	cmd, args := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "serve":
		err = serve(ctx, a, addr, outDir)
	case "import-manifest":
		err = importManifest(ctx, a, args)
	case "import-sales":
		err = importSales(ctx, a, args)
	case "enrich":
		err = runEnrich(ctx, a, args)
	case "export":
		err = runExport(ctx, a, date, outDir)
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	a.Close()

	if err != nil {
		slog.Error(cmd+" failed", "error", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, a *app, addr, exportDir string) error {
	runner := enrich.NewRunner(ctx, a.enricher)
	router := api.NewRouter(api.Deps{
		Store:     a.store,
		Recorder:  a.recorder,
		Enricher:  a.enricher,
		Runner:    runner,
		Exporter:  a.exporter,
		Publisher: a.publisher,
		ExportDir: exportDir,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Single-identifier enrichment can wait on two rate-limited catalogs.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

func openArg(args []string) (*os.File, error) {
	if len(args) != 1 {
		return nil, errors.New("expected exactly one file argument")
	}
	return os.Open(args[0])
}

func importManifest(ctx context.Context, a *app, args []string) error {
	f, err := openArg(args)
	if err != nil {
		return err
	}
	defer f.Close()

	recs, rowErrs, err := ingest.ReadManifest(f)
	if err != nil {
		return err
	}
	for _, re := range rowErrs {
		slog.Warn("skipping manifest row", "line", re.Line, "reason", re.Reason)
	}
	n, err := a.store.UpsertInventory(ctx, recs)
	if err != nil {
		return err
	}
	fmt.Printf("%d inventory record(s) loaded, %d row(s) skipped\n", n, len(rowErrs))
	return nil
}

func importSales(ctx context.Context, a *app, args []string) error {
	f, err := openArg(args)
	if err != nil {
		return err
	}
	defer f.Close()

	sales, rowErrs, err := ingest.ReadSales(f, time.Now())
	if err != nil {
		return err
	}
	for _, re := range rowErrs {
		slog.Warn("skipping sales row", "line", re.Line, "reason", re.Reason)
	}
	res := ingest.ApplySales(ctx, a.store, a.publisher, sales)
	for _, e := range res.Errors {
		slog.Error("applying sale", "error", e)
	}
	fmt.Println(res.Message)
	if !res.Success {
		return fmt.Errorf("%d sales not applied, re-import the report to retry", len(res.Errors))
	}
	return nil
}

func runEnrich(ctx context.Context, a *app, identifiers []string) error {
	if len(identifiers) > 0 {
		failed := 0
		for _, id := range identifiers {
			res := a.enricher.EnrichIdentifier(ctx, id)
			fmt.Printf("%s: %s\n", id, res.Message)
			if !res.Success {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d identifier(s) failed", failed, len(identifiers))
		}
		return nil
	}

	res := a.enricher.EnrichPending(ctx, func(p enrich.Progress) {
		slog.Info("enrichment progress", "current", p.Current, "total", p.Total, "identifier", p.Identifier, "message", p.Message)
	})
	fmt.Println(res.Message)
	if !res.Success {
		return errors.New(res.Message)
	}
	return nil
}

func runExport(ctx context.Context, a *app, date, dir string) error {
	opts := export.Options{Dir: dir}
	switch date {
	case "":
	case "today":
		now := time.Now()
		opts.Date = &now
	default:
		d, err := time.ParseInLocation(time.DateOnly, date, time.Local)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", date, err)
		}
		opts.Date = &d
	}

	res := a.exporter.Run(ctx, opts)
	fmt.Println(res.Message)
	if res.Outcome == export.OutcomeFailed {
		return errors.New(res.Message)
	}
	if res.Path != "" {
		fmt.Println(res.Path)
	}
	return nil
}
