package vm

import (
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/oops/compiler"
)

// ---------------------------------------------------------------------------
// Construction and configuration
// ---------------------------------------------------------------------------

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithMaxDepth sets the activation depth at which StackOverflow is raised.
func WithMaxDepth(n int) Option {
	return func(in *Interpreter) {
		if n > 0 {
			in.maxDepth = n
		}
	}
}

// WithOutput sets where Transcript writes. The default is stdout.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) {
		if w != nil {
			in.out = w
		}
	}
}

// WithLogger replaces the default "oops.vm" logger.
func WithLogger(log commonlog.Logger) Option {
	return func(in *Interpreter) {
		if log != nil {
			in.log = log
		}
	}
}

// New creates an interpreter with a fresh ClassTable and global frame.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		maxDepth: DefaultMaxDepth,
		out:      os.Stdout,
		log:      commonlog.GetLogger("oops.vm"),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.reset()
	return in
}

// EvaluateProgram runs prog against a fresh interpreter.
func EvaluateProgram(prog *compiler.Program) (Value, error) {
	return New().EvaluateProgram(prog)
}

func (in *Interpreter) reset() {
	in.classes = NewClassTable()
	in.globals = NewFrame(nil)
	in.dispatcher = newDispatcher(in)
	in.depth = 0

	in.globals.Define("Class", ClassValue(in.classes.Root()))
	in.globals.Define("Transcript", NativeValue(newTranscript()))
}

// Reset discards every class and global binding.
func (in *Interpreter) Reset() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.reset()
	in.log.Info("interpreter reset")
}

// Classes returns the interpreter's class table.
func (in *Interpreter) Classes() *ClassTable {
	return in.classes
}

// Globals returns the top-level frame.
func (in *Interpreter) Globals() *Frame {
	return in.globals
}

// Dispatcher returns the interpreter's dispatcher.
func (in *Interpreter) Dispatcher() *Dispatcher {
	return in.dispatcher
}

// Output returns where Transcript writes.
func (in *Interpreter) Output() io.Writer {
	return in.out
}

// MaxDepth returns the configured activation depth limit.
func (in *Interpreter) MaxDepth() int {
	return in.maxDepth
}
