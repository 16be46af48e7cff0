package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/term"

	twvm "github.com/Becavalier/TWVM"
	"github.com/Becavalier/TWVM/errors"
	"github.com/Becavalier/TWVM/inspector"
	"github.com/Becavalier/TWVM/loader"
	"github.com/Becavalier/TWVM/runtime"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitFatal = 2
)

type options struct {
	wasmFile    string
	verbose     bool
	validate    bool
	multiValue  bool
	skipData    bool
	interactive bool
}

func main() {
	var opts options
	flag.StringVar(&opts.wasmFile, "wasm", "", "Path to core wasm module")
	flag.BoolVar(&opts.verbose, "v", false, "Log every loading phase to stderr")
	flag.BoolVar(&opts.validate, "validate", false, "Cross-validate the module with wazero")
	flag.BoolVar(&opts.multiValue, "multi-value", false, "Accept functions with several results")
	flag.BoolVar(&opts.skipData, "skip-data", false, "Do not copy data segments into memory")
	flag.BoolVar(&opts.interactive, "i", false, "Interactive explorer")
	flag.Parse()

	if opts.wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: twvm -wasm <file.wasm> [-v] [-validate] [-multi-value] [-skip-data]")
		fmt.Fprintln(os.Stderr, "       twvm -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(exitError)
	}

	logger := zap.NewNop()
	if opts.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitError)
		}
		logger = l
		setLoggers(logger)
	}

	code := run(context.Background(), opts, os.Stdout, os.Stderr)
	_ = logger.Sync()
	os.Exit(code)
}

func setLoggers(l *zap.Logger) {
	loader.SetLogger(l.Named("loader"))
	runtime.SetLogger(l.Named("runtime"))
	inspector.SetLogger(l.Named("inspector"))
}

func (o options) pipeline() *twvm.Options {
	return &twvm.Options{
		Loader:    &loader.Config{AllowMultiValue: o.multiValue},
		Runtime:   &runtime.Config{SkipDataInit: o.skipData},
		Inspector: &inspector.Config{CrossValidate: o.validate},
	}
}

// run prepares the module and prints its summary or opens the explorer.
// It returns the process exit code.
func run(ctx context.Context, opts options, stdout, stderr io.Writer) int {
	if opts.interactive && !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(stderr, "Error: interactive mode needs a terminal")
		return exitError
	}

	inst, err := twvm.Prepare(ctx, opts.wasmFile, opts.pipeline())
	if err != nil {
		return fail(stderr, err)
	}

	if opts.interactive {
		if err := runInteractive(opts.wasmFile, inst); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		return exitOK
	}

	fmt.Fprint(stdout, renderSummary(opts.wasmFile, inst, terminalWidth()))
	return exitOK
}

// fail prints every problem in err and picks the exit code.
func fail(w io.Writer, err error) int {
	problems := multierr.Errors(err)
	if len(problems) > 1 {
		fmt.Fprintf(w, "%d problems:\n", len(problems))
		for _, p := range problems {
			fmt.Fprintf(w, "  %v\n", p)
		}
	} else {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	if errors.IsFatal(err) {
		return exitFatal
	}
	return exitError
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}
