package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/saylorsolutions/stubpack/cmd/internal"
	"github.com/saylorsolutions/stubpack/pkg/build"
	"github.com/saylorsolutions/stubpack/pkg/pack"
	"github.com/saylorsolutions/stubpack/pkg/transform"
	flag "github.com/spf13/pflag"
)

var ErrConfig = errors.New("invalid configuration")

type config struct {
	input    string
	output   string
	codec    string
	goBinary string
	goos     string
	goarch   string
	workRoot string
	plain    bool
	logFile  string
	logLevel string
	help     bool
	version  bool
}

func newFlagSet(cfg *config) *flag.FlagSet {
	flags := flag.NewFlagSet("stubpack", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.StringVarP(&cfg.input, "input", "i", "", "The executable to pack. Must be an ELF or PE image.")
	flags.StringVarP(&cfg.output, "output", "o", "", "Where to write the packed executable. Only written if packing succeeds.")
	flags.StringVarP(&cfg.codec, "codec", "c", transform.CodecZlib.String(), "Compression codec, one of "+codecNames()+".")
	flags.StringVar(&cfg.goBinary, "go", build.DefaultGoBinary, "The go command used to build the stub.")
	flags.StringVar(&cfg.goos, "goos", "", "Build the stub for this GOOS instead of the one matching the input.")
	flags.StringVar(&cfg.goarch, "goarch", "", "Build the stub for this GOARCH instead of the one matching the input.")
	flags.StringVar(&cfg.workRoot, "work-root", "", "Directory the temporary build directory is created in. Defaults to the OS temp directory.")
	flags.BoolVar(&cfg.plain, "plain", false, "Print progress as plain lines instead of the interactive display.")
	flags.StringVar(&cfg.logFile, "log-file", "", "Write JSON logs to this file.")
	flags.StringVar(&cfg.logLevel, "log-level", "info", "Minimum log level, one of debug, info, warn, error.")
	flags.BoolVarP(&cfg.help, "help", "h", false, "Prints this usage information.")
	flags.BoolVarP(&cfg.version, "version", "V", false, "Prints the version and exits.")
	flags.Usage = func() {
		printUsage(os.Stdout, flags)
	}
	return flags
}

func printUsage(w io.Writer, flags *flag.FlagSet) {
	_, _ = fmt.Fprintf(w, `
stubpack wraps an executable in a generated stub program. The input is compressed and encrypted with a fresh AES-256 key, embedded in the stub's source, and the stub is built with the Go toolchain.
When the packed executable runs, it decrypts and verifies the original, runs it with the same arguments and standard streams, and exits with its exit code.

USAGE:  stubpack -i INPUT -o OUTPUT [FLAGS]

FLAGS:
%s
NOTES:
    The stub is built for the platform the input targets unless --goos or --goarch are given, so the go command must be able to cross compile for it.
    The kanzi codec makes the stub depend on github.com/flanglet/kanzi-go, which the go command must be able to download.
    Packing is not protection. The key is stored right next to the data it encrypts.
`, flags.FlagUsages())
}

// argsError reports a problem with how the command was invoked, with usage, on the error stream.
func argsError(flags *flag.FlagSet, err error) {
	printUsage(internal.Output, flags)
	internal.Usage("Error: %v", err)
}

func codecNames() string {
	var names []string
	for _, c := range transform.Codecs() {
		names = append(names, c.String())
	}
	return strings.Join(names, ", ")
}

func parseArgs(args []string) (*config, *flag.FlagSet, error) {
	cfg := new(config)
	flags := newFlagSet(cfg)
	if err := flags.Parse(args); err != nil {
		return cfg, flags, err
	}
	if flags.NArg() > 0 {
		return cfg, flags, fmt.Errorf("%w: unexpected arguments %v", ErrConfig, flags.Args())
	}
	return cfg, flags, nil
}

func (c *config) validate() error {
	if len(strings.TrimSpace(c.input)) == 0 {
		return fmt.Errorf("%w: missing required flag --input", ErrConfig)
	}
	if len(strings.TrimSpace(c.output)) == 0 {
		return fmt.Errorf("%w: missing required flag --output", ErrConfig)
	}
	if _, err := transform.ParseCodec(c.codec); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c *config) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.logLevel)); err != nil {
		return lvl, fmt.Errorf("%w: log level '%s'", ErrConfig, c.logLevel)
	}
	return lvl, nil
}

// logger routes logs to the log file if one is given, and otherwise to stderr unless stderr belongs to the interactive display.
func (c *config) logger(interactive bool, stderr io.Writer) (*slog.Logger, func() error, error) {
	lvl, err := c.level()
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if len(c.logFile) > 0 {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return slog.New(slog.NewJSONHandler(f, opts)), f.Close, nil
	}
	noop := func() error { return nil }
	if interactive {
		return slog.New(slog.NewTextHandler(io.Discard, opts)), noop, nil
	}
	return slog.New(slog.NewTextHandler(stderr, opts)), noop, nil
}

func (c *config) jobOpts(logger *slog.Logger) []pack.JobOpt {
	codec, _ := transform.ParseCodec(c.codec)
	opts := []pack.JobOpt{
		pack.WithCodec(codec),
		pack.WithToolchain(&build.GoToolchain{Binary: c.goBinary}),
		pack.WithWorkRoot(c.workRoot),
		pack.WithLogger(logger),
	}
	if len(c.goos) > 0 || len(c.goarch) > 0 {
		opts = append(opts, pack.WithTarget(build.Target{GOOS: c.goos, GOARCH: c.goarch}))
	}
	return opts
}
