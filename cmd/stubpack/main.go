package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/saylorsolutions/stubpack/cmd/internal"
	"github.com/saylorsolutions/stubpack/cmd/stubpack/internal/ui"
	"github.com/saylorsolutions/stubpack/pkg/pack"
	flag "github.com/spf13/pflag"
)

var version = "dev"

func main() {
	cfg, flags, err := parseArgs(os.Args[1:])
	if len(os.Args) == 1 {
		flags.Usage()
		return
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flags.Usage()
			return
		}
		argsError(flags, err)
	}
	if cfg.help {
		flags.Usage()
		return
	}
	if cfg.version {
		fmt.Printf("stubpack %s\n", version)
		return
	}
	if err := cfg.validate(); err != nil {
		argsError(flags, err)
	}

	interactive := !cfg.plain && isTerminal(os.Stdout) && isTerminal(os.Stdin)
	logger, closeLog, err := cfg.logger(interactive, os.Stderr)
	if err != nil {
		internal.Fatal("Failed to set up logging: %v", err)
	}
	defer func() {
		_ = closeLog()
	}()
	logger.Info("Starting stubpack", "version", version, "input", cfg.input, "output", cfg.output, "codec", cfg.codec)

	job, events, err := pack.NewJob(cfg.input, cfg.output, cfg.jobOpts(logger)...)
	if err != nil {
		internal.Usage("%v", err)
	}
	job.Start(context.Background())

	var res *pack.Result
	if interactive {
		res, err = ui.RunTUI(events, ui.Info{
			Input:   cfg.input,
			Output:  cfg.output,
			Codec:   cfg.codec,
			Version: version,
		})
		if err != nil {
			logger.Error("Interactive display failed", "error", err)
			internal.Echo("Interactive display failed, continuing in plain mode: %v", err)
			if res == nil {
				res = ui.RunPlain(os.Stdout, events)
			}
		}
	} else {
		res = ui.RunPlain(os.Stdout, events)
	}

	if res == nil || !res.Succeeded() {
		if res != nil && interactive {
			internal.Echo("%v", res.Err)
		}
		_ = closeLog()
		internal.Exit(internal.ExitFailure)
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
