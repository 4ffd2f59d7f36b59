// oops CLI - runs programs, the REPL, and the language servers
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/docopt/docopt-go"
	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"

	"github.com/chazu/oops/manifest"
	"github.com/chazu/oops/server"
	"github.com/chazu/oops/vm"

	_ "github.com/tliron/commonlog/simple"
)

const version = "oops 0.1.0"

var usage = `oops

Usage:
  oops [-v...] [options] [FILE...]
  oops -h | --help
  oops --version

Arguments:
  FILE  Source files to load, in order. Without files, the sources named
        by the nearest oops.toml are loaded.

Options:
  -i, --interactive       Start the REPL after loading.
  -e, --eval=SOURCE       Evaluate SOURCE after loading and print the result.
  --serve                 Serve the evaluation API over Connect.
  --addr=ADDR             Address for --serve (default from oops.toml).
  --lsp                   Run the language server on stdio.
  --load-image=PATH       Restore classes from an image before loading.
  --save-image=PATH       Save classes to an image after loading.
  --max-depth=N           Activation depth limit.
  --log=FILE              Write logs to FILE instead of stderr.
  -v, --verbose           Increase log verbosity (repeatable).
  -h, --help              Display this help.
  --version               Print the version.

If stdin is not a terminal and no files or project sources are given, the
program is read from stdin. With a terminal, the REPL starts.
`

// options holds the parsed command line.
type options struct {
	Files       []string
	Interactive bool
	Eval        string
	Serve       bool
	Addr        string
	LSP         bool
	LoadImage   string
	SaveImage   string
	MaxDepth    int
	LogFile     string
	Verbosity   int
}

func parseOptions(p *docopt.Parser, argv []string) (*options, error) {
	opts, err := p.ParseArgs(usage, argv, version)
	if err != nil {
		return nil, err
	}

	o := &options{}
	o.Files, _ = opts["FILE"].([]string)
	o.Interactive, _ = opts.Bool("--interactive")
	o.Eval, _ = opts["--eval"].(string)
	o.Serve, _ = opts.Bool("--serve")
	o.Addr, _ = opts["--addr"].(string)
	o.LSP, _ = opts.Bool("--lsp")
	o.LoadImage, _ = opts["--load-image"].(string)
	o.SaveImage, _ = opts["--save-image"].(string)
	o.LogFile, _ = opts["--log"].(string)
	o.Verbosity, _ = opts["--verbose"].(int)

	if s, ok := opts["--max-depth"].(string); ok {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("--max-depth must be a positive integer, got %q", s)
		}
		o.MaxDepth = n
	}
	return o, nil
}

func main() {
	o, err := parseOptions(docopt.DefaultParser, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	tty := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	os.Exit(run(o, stdio{in: os.Stdin, out: os.Stdout, err: os.Stderr, tty: tty}))
}

// stdio is the process's standard streams; tty reports whether in is a
// terminal.
type stdio struct {
	in  io.Reader
	out io.Writer
	err io.Writer
	tty bool
}

func (s stdio) fail(format string, args ...any) int {
	fmt.Fprintf(s.err, "Error: "+format+"\n", args...)
	return 1
}

// run carries out one invocation and returns the exit code.
func run(o *options, std stdio) int {
	cwd, err := os.Getwd()
	if err != nil {
		return std.fail("%v", err)
	}
	m, err := manifest.FindAndLoad(cwd)
	if err != nil {
		return std.fail("%v", err)
	}
	cfg, err := resolveConfig(o, m)
	if err != nil {
		return std.fail("%v", err)
	}

	if cfg.logFile == "" {
		commonlog.Configure(cfg.verbosity, nil)
	} else {
		commonlog.Configure(cfg.verbosity, &cfg.logFile)
	}
	log := commonlog.GetLogger("oops")

	var vmOpts []vm.Option
	if cfg.maxDepth > 0 {
		vmOpts = append(vmOpts, vm.WithMaxDepth(cfg.maxDepth))
	}

	// The evaluation server builds one interpreter per session; sources
	// and images go into the default session.
	if o.Serve {
		srv := server.New(server.WithInterpreterOptions(vmOpts...))
		defer srv.Stop()
		result, err := srv.Sessions().Default().Worker().Do(func(in *vm.Interpreter) any {
			return prepare(in, cfg)
		})
		if err == nil && result != nil {
			err = result.(error)
		}
		if err != nil {
			return std.fail("%v", err)
		}
		if err := srv.ListenAndServe(cfg.addr); err != nil {
			return std.fail("server: %v", err)
		}
		return 0
	}

	in := vm.New(append(vmOpts, vm.WithOutput(std.out))...)

	fromStdin := len(cfg.files) == 0 && !std.tty && !o.Interactive && !o.LSP && o.Eval == ""
	if fromStdin {
		if err := loadImageIfSet(in, cfg); err != nil {
			return std.fail("%v", err)
		}
		if err := loadReader(in, "<stdin>", std.in); err != nil {
			return std.fail("%v", err)
		}
	} else if err := prepare(in, cfg); err != nil {
		return std.fail("%v", err)
	}

	if cfg.saveImage != "" {
		if err := saveImage(in, cfg.saveImage); err != nil {
			return std.fail("%v", err)
		}
		log.Infof("saved image %s", cfg.saveImage)
	}

	if o.Eval != "" {
		v, err := in.EvalString(o.Eval)
		if err != nil {
			return std.fail("%v", err)
		}
		fmt.Fprintln(std.out, v.String())
	}

	if o.LSP {
		if err := server.NewLSP(in).Run(); err != nil {
			return std.fail("lsp: %v", err)
		}
		return 0
	}

	if o.Interactive || (std.tty && len(cfg.files) == 0 && o.Eval == "" && cfg.saveImage == "") {
		newREPL(in, std.out).Run()
	}
	return 0
}

// config merges command line options over oops.toml settings.
type config struct {
	files     []string
	loadImage string
	saveImage string
	maxDepth  int
	verbosity int
	logFile   string
	addr      string
}

// resolveConfig applies m, which may be nil, under the command line
// options. Project sources are used only when no files were named.
func resolveConfig(o *options, m *manifest.Manifest) (config, error) {
	cfg := config{
		files:     o.Files,
		loadImage: o.LoadImage,
		saveImage: o.SaveImage,
		maxDepth:  o.MaxDepth,
		verbosity: o.Verbosity,
		logFile:   o.LogFile,
		addr:      o.Addr,
	}
	if m == nil {
		if cfg.addr == "" {
			cfg.addr = manifest.DefaultServerAddr
		}
		return cfg, nil
	}

	if cfg.maxDepth == 0 {
		cfg.maxDepth = m.Runtime.MaxDepth
	}
	cfg.verbosity += m.Log.Verbosity
	if cfg.logFile == "" {
		cfg.logFile = m.Log.File
	}
	if cfg.addr == "" {
		cfg.addr = m.Server.Addr
	}
	if len(cfg.files) == 0 {
		files, err := m.LoadOrder()
		if err != nil {
			return cfg, fmt.Errorf("project %s: %w", m.Dir, err)
		}
		cfg.files = files
	}
	return cfg, nil
}
