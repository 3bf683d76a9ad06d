// lazyhl highlights source code as HTML.
//
// It highlights files named on the command line,
// or serves highlight requests over HTTP with -http.
// See lazyhl -h for usage.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"braces.dev/errtrace"
	"github.com/alecthomas/chroma/v2/lexers"
	"go.abhg.dev/lazyhl/internal/component"
	"go.abhg.dev/lazyhl/internal/config"
	"go.abhg.dev/lazyhl/internal/errdefer"
	"go.abhg.dev/lazyhl/internal/highlight"
	"go.abhg.dev/lazyhl/internal/server"
	"go.abhg.dev/lazyhl/internal/shine"
	"go.abhg.dev/lazyhl/internal/telemetry"
)

// _shutdownTimeout bounds how long the server waits
// for in-flight requests when it's stopped.
const _shutdownTimeout = 5 * time.Second

func main() {
	cmd := mainCmd{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	os.Exit(cmd.Run(os.Args[1:]))
}

// mainCmd is the actual entry point to the program.
type mainCmd struct {
	Stdin  io.Reader // == os.Stdin
	Stdout io.Writer // == os.Stdout
	Stderr io.Writer // == os.Stderr

	log *log.Logger

	// listening, if set, is told the server's address
	// once it's accepting connections.
	listening func(net.Addr)
}

func (cmd *mainCmd) Run(args []string) (exitCode int) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return cmd.RunContext(ctx, args)
}

// RunContext runs lazyhl until it's done or ctx is canceled.
func (cmd *mainCmd) RunContext(ctx context.Context, args []string) (exitCode int) {
	cmd.log = log.New(cmd.Stderr, "", 0)

	opts, err := (&cliParser{
		Stdout: cmd.Stdout,
		Stderr: cmd.Stderr,
	}).Parse(args)
	if err != nil {
		// '$cmd -h' should exit with zero.
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		// No need to print anything.
		// Parse prints messages.
		return 1
	}

	if err := cmd.run(ctx, opts); err != nil {
		cmd.log.Printf("lazyhl: %v", err)
		return 1
	}
	return 0
}

func (cmd *mainCmd) run(ctx context.Context, opts *params) (err error) {
	debugw, closeDebug, err := opts.Debug.Create(cmd.Stderr)
	if err != nil {
		return errtrace.Wrap(err)
	}
	defer func() {
		err = errors.Join(err, closeDebug())
	}()
	debugLog := log.New(debugw, "", 0)

	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Traces:  opts.Trace,
		Metrics: opts.Metrics,
		Writer:  cmd.Stderr,
	})
	if err != nil {
		return errtrace.Wrap(err)
	}
	defer func() {
		// ctx may be canceled by now. Flush anyway.
		err = errors.Join(err, providers.Shutdown(context.WithoutCancel(ctx)))
	}()

	if providers.Prometheus && opts.HTTP == "" {
		return errtrace.Errorf("-metrics=%v requires -http", opts.Metrics)
	}

	rt := &shine.Runtime{
		Options:   config.Provider(opts.Options),
		Mode:      shine.ModeServer,
		Log:       debugLog,
		Telemetry: providers.Instruments(),
	}
	if err := rt.LoadLanguages(ctx, languageNames(opts.Load)...); err != nil {
		return errtrace.Wrap(err)
	}
	if err := cmd.loadTheme(ctx, rt, opts.Theme); err != nil {
		return errtrace.Wrap(err)
	}

	if opts.HTTP != "" {
		return errtrace.Wrap(cmd.serve(ctx, opts.HTTP, &server.Handler{
			Runtime:    rt,
			Log:        cmd.log,
			Prometheus: providers.Prometheus,
		}))
	}

	files := opts.Files
	if len(files) == 0 {
		files = []string{"-"}
	}
	for _, file := range files {
		if err := cmd.highlightFile(ctx, rt, opts, file); err != nil {
			return errtrace.Wrap(err)
		}
	}
	return nil
}

// loadTheme loads a theme requested with -theme
// if the options file didn't already load it.
func (cmd *mainCmd) loadTheme(ctx context.Context, rt *shine.Runtime, name string) error {
	if name == "" {
		return nil
	}

	h, err := rt.GetHighlighter(ctx)
	if err != nil {
		return errtrace.Wrap(err)
	}

	style, ok := highlight.LookupTheme(name)
	if !ok {
		return errtrace.Errorf("%w: %q", highlight.ErrThemeNotLoaded, name)
	}
	h.LoadTheme(style)
	return nil
}

func (cmd *mainCmd) highlightFile(ctx context.Context, rt *shine.Runtime, opts *params, file string) (err error) {
	code, err := cmd.readFile(file)
	if err != nil {
		return errtrace.Wrap(err)
	}

	lang := opts.Lang
	if lang == "" && file != "-" {
		if l := lexers.Match(filepath.Base(file)); l != nil {
			lang = l.Config().Name
		}
	}
	if lang != "" {
		if err := rt.LoadLanguages(ctx, lang); err != nil {
			return errtrace.Wrap(err)
		}
	}

	out, err := component.Render(ctx, rt, component.Props{
		Code: code,
		Lang: lang,
		As:   opts.As,
		HighlightOptions: highlight.Options{
			Theme: opts.Theme,
		},
		Unwrap: opts.Unwrap,
	})
	if err != nil {
		return errtrace.Errorf("%v: %w", file, err)
	}

	_, err = fmt.Fprintln(cmd.Stdout, out)
	return errtrace.Wrap(err)
}

func (cmd *mainCmd) readFile(file string) (_ string, err error) {
	if file == "-" {
		bs, err := io.ReadAll(cmd.Stdin)
		return string(bs), errtrace.Wrap(err)
	}

	f, err := os.Open(file)
	if err != nil {
		return "", errtrace.Wrap(err)
	}
	defer errdefer.Close(&err, f)

	bs, err := io.ReadAll(f)
	return string(bs), errtrace.Wrap(err)
}

func (cmd *mainCmd) serve(ctx context.Context, addr string, h *server.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errtrace.Wrap(err)
	}

	srv := &http.Server{
		Handler:           h.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	cmd.log.Printf("Serving on http://%v", ln.Addr())
	if cmd.listening != nil {
		cmd.listening(ln.Addr())
	}

	select {
	case err := <-errc:
		return errtrace.Wrap(err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), _shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errtrace.Wrap(err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return errtrace.Wrap(err)
	}
	return nil
}
