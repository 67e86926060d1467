// Command csvconvert converts a CSV file into JSON, Excel, XML and Parquet
// files without starting the web server.
//
//	csvconvert -in data.csv -out ./converted -formats json,xlsx
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/csvconvert/internal/config"
	"github.com/JonMunkholm/csvconvert/internal/core"
	"github.com/JonMunkholm/csvconvert/internal/export"
	"github.com/JonMunkholm/csvconvert/internal/logging"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	exitNothing = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	in          string
	out         string
	formats     []string
	parse       core.ParseOptions
	export      export.Options
	failOnEmpty bool
}

// parseFlags starts from the environment configuration and lets flags override it.
func parseFlags(args []string, stderr io.Writer) (options, error) {
	cfg, err := config.Load()
	if err != nil {
		return options{}, err
	}

	fs := flag.NewFlagSet("csvconvert", flag.ContinueOnError)
	fs.SetOutput(stderr)

	in := fs.String("in", "", "CSV file to convert (or pass it as the only argument)")
	out := fs.String("out", ".", "directory to write converted files into")
	formats := fs.String("formats", strings.Join(export.Keys(), ","), "comma-separated output formats")
	delimiter := fs.String("delimiter", cfg.Convert.Delimiter, `field delimiter: auto, tab, or one character`)
	extra := fs.String("extra-fields", cfg.Convert.ExtraFields, "rows longer than the header: truncate or reject")
	xmlNames := fs.String("xml-names", cfg.Convert.XMLNames, "columns that are not XML names: sanitize or reject")
	maxSize := fs.Int64("max-size", cfg.Upload.MaxFileSize, "maximum input size in bytes")
	lazy := fs.Bool("lazy-quotes", cfg.Convert.LazyQuotes, "tolerate stray quotes")
	noCoerce := fs.Bool("strings", !cfg.Convert.CoerceNumbers, "keep integers as strings")
	failOnEmpty := fs.Bool("fail-on-empty", false, "exit non-zero when the file has no data rows")
	logLevel := fs.String("log-level", "warn", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts := options{out: *out, in: *in, failOnEmpty: *failOnEmpty}
	if opts.in == "" && fs.NArg() == 1 {
		opts.in = fs.Arg(0)
	}
	if opts.in == "" {
		return options{}, errors.New("no input file: use -in data.csv")
	}

	for _, key := range strings.Split(*formats, ",") {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		if _, ok := export.Get(key); !ok {
			return options{}, fmt.Errorf("%w %q (have %s)", export.ErrUnknownFormat, key, strings.Join(export.Keys(), ", "))
		}
		opts.formats = append(opts.formats, key)
	}
	if len(opts.formats) == 0 {
		return options{}, errors.New("no output formats selected")
	}

	delim, err := core.ParseDelimiter(*delimiter)
	if err != nil {
		return options{}, err
	}
	switch core.ExtraFieldPolicy(*extra) {
	case core.ExtraFieldsTruncate, core.ExtraFieldsReject:
	default:
		return options{}, fmt.Errorf("invalid -extra-fields %q", *extra)
	}
	switch export.NamePolicy(*xmlNames) {
	case export.NamesSanitize, export.NamesReject:
	default:
		return options{}, fmt.Errorf("invalid -xml-names %q", *xmlNames)
	}

	opts.parse = core.ParseOptions{
		Delimiter:     delim,
		CoerceNumbers: !*noCoerce,
		LazyQuotes:    *lazy,
		ExtraFields:   core.ExtraFieldPolicy(*extra),
		MaxFileSize:   *maxSize,
	}
	opts.export = export.Options{XMLNames: export.NamePolicy(*xmlNames)}

	slog.SetDefault(slog.New(logging.NewHandler(stderr, *logLevel, "text")))

	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fail := color.New(color.FgRed, color.Bold)
	warn := color.New(color.FgYellow)
	ok := color.New(color.FgGreen)

	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fail.Fprintf(stderr, "csvconvert: %v\n", err)
		return exitUsage
	}

	sess := core.NewSession("cli", core.SessionConfig{Parse: opts.parse})
	start := time.Now()
	st, err := sess.Ingest(ctx, core.NewFileSource(opts.in))
	switch {
	case errors.Is(err, core.ErrEmptyResult):
		warn.Fprintf(stderr, "%s: %s, nothing written\n", opts.in, st.Message())
		if opts.failOnEmpty {
			return exitNothing
		}
		return exitOK
	case err != nil:
		fail.Fprintf(stderr, "%s: %s\n", opts.in, core.FormatUserError(err))
		return exitFailed
	}

	fmt.Fprintf(stdout, "%s: %d records, %d columns (%s)\n",
		opts.in, st.Dataset.Len(), len(st.Dataset.Columns()), time.Since(start).Round(time.Millisecond))
	if st.Stats.PaddedRows > 0 || st.Stats.TruncatedRows > 0 {
		warn.Fprintf(stdout, "  %d short rows padded, %d long rows truncated\n", st.Stats.PaddedRows, st.Stats.TruncatedRows)
	}

	written, err := writeAll(ctx, st.Dataset, opts)
	for _, w := range written {
		if w.path != "" {
			ok.Fprintf(stdout, "  wrote %s (%d bytes)\n", w.path, w.size)
		}
	}
	if err != nil {
		fail.Fprintf(stderr, "csvconvert: %s\n", core.FormatUserError(err))
		fail.Fprintf(stderr, "  %v\n", err)
		return exitFailed
	}
	return exitOK
}

type writtenFile struct {
	path string
	size int
}

// writeAll renders and writes every selected format concurrently. The
// result is in opts.formats order; entries for formats that failed are empty.
func writeAll(ctx context.Context, ds *core.Dataset, opts options) ([]writtenFile, error) {
	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	written := make([]writtenFile, len(opts.formats))
	g, ctx := errgroup.WithContext(ctx)
	for i, key := range opts.formats {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			art, err := export.Render(key, ds, opts.export)
			if err != nil {
				return err
			}
			if art == nil {
				return nil
			}
			path := filepath.Join(opts.out, art.FileName())
			if err := os.WriteFile(path, art.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			written[i] = writtenFile{path: path, size: len(art.Data)}
			return nil
		})
	}
	return written, g.Wait()
}
