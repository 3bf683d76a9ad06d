package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"braces.dev/errtrace"
	"github.com/peterbourgon/ff/v3"
	"go.abhg.dev/lazyhl/internal/flagvalue"
	"go.abhg.dev/lazyhl/internal/ptr"
)

var (
	errHelp             = flag.ErrHelp
	errInvalidArguments = errors.New("invalid arguments")
)

// _envPrefix is the prefix for environment variables
// that set flags: LAZYHL_THEME sets -theme.
const _envPrefix = "LAZYHL"

// params holds all arguments for lazyhl.
type params struct {
	version bool
	help    Help
	config  string

	Lang  string
	Theme string
	As    string

	// Unwrap is nil if -unwrap wasn't passed.
	Unwrap *bool

	Options string
	Load    []language

	HTTP    string
	Trace   string
	Metrics string
	Debug   flagvalue.FileSwitch

	Files []string
}

// cliParser parses the command line arguments for lazyhl.
type cliParser struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (cmd *cliParser) newFlagSet() (*params, *flag.FlagSet, *bool) {
	flag := flag.NewFlagSet("lazyhl", flag.ContinueOnError)
	flag.SetOutput(cmd.Stderr)
	flag.Usage = func() {
		DefaultHelp.Write(cmd.Stderr)
	}

	var (
		p      params
		unwrap bool
	)

	// Highlighting:
	flag.StringVar(&p.Lang, "lang", "", "")
	flag.StringVar(&p.Theme, "theme", "", "")
	flag.StringVar(&p.As, "as", "", "")
	flag.BoolVar(&unwrap, "unwrap", false, "")
	flag.Var(flagvalue.ListOf(&p.Load), "load", "")
	flag.StringVar(&p.Options, "options", "", "")

	// Serving:
	flag.StringVar(&p.HTTP, "http", "", "")
	flag.StringVar(&p.Trace, "trace", "", "")
	flag.StringVar(&p.Metrics, "metrics", "", "")

	// Program-level:
	flag.StringVar(&p.config, "config", "", "")
	flag.Var(&p.Debug, "debug", "")
	flag.BoolVar(&p.version, "version", false, "")
	flag.Var(&p.help, "help", "")
	flag.Var(&p.help, "h", "")

	return &p, flag, &unwrap
}

func (cmd *cliParser) Parse(args []string) (*params, error) {
	p, fset, unwrap := cmd.newFlagSet()
	err := ff.Parse(fset, args,
		ff.WithEnvVarPrefix(_envPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	)
	if err != nil {
		fmt.Fprintln(cmd.Stderr, err)
		return nil, errtrace.Wrap(err)
	}
	args = fset.Args()

	if p.version {
		fmt.Fprintln(cmd.Stdout, "lazyhl", _version)
		return nil, errHelp
	}

	if p.help == DefaultHelp && len(args) > 0 {
		// The user might have done "-h foo"
		// instead of "-h=foo".
		// If the argument is a known help topic,
		// take it.
		var h Help
		if err := h.Set(args[0]); err == nil && h.Known() {
			p.help = h
		}
	}

	switch p.help {
	case NoHelp:
		// proceed as usual
	default:
		if err := p.help.Write(cmd.Stderr); err != nil {
			fmt.Fprintln(cmd.Stderr, err)
		}
		return nil, errHelp
	}

	// -unwrap defaults based on -as,
	// so we need to know whether it was passed at all.
	fset.Visit(func(f *flag.Flag) {
		if f.Name == "unwrap" {
			p.Unwrap = ptr.Of(*unwrap)
		}
	})

	if len(args) > 0 {
		p.Files = args
	}
	if p.HTTP != "" && len(p.Files) > 0 {
		fmt.Fprintln(cmd.Stderr, "Files cannot be used with -http.")
		UsageHelp.Write(cmd.Stderr)
		return nil, errInvalidArguments
	}

	return p, nil
}

// language is the name of a language passed to -load.
type language string

var _ flag.Getter = (*language)(nil)

func (l *language) Get() any { return string(*l) }

func (l *language) String() string { return string(*l) }

func (l *language) Set(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return errors.New("language name must not be empty")
	}
	*l = language(s)
	return nil
}

func languageNames(ls []language) []string {
	names := make([]string, len(ls))
	for i, l := range ls {
		names[i] = string(l)
	}
	return names
}
