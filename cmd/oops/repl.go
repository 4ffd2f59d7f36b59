package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/chazu/oops/compiler"
	"github.com/chazu/oops/vm"
)

var (
	accentColor  = lipgloss.Color("#3B82F6")
	successColor = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")

	headerStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

const (
	prompt      = "oops> "
	contPrompt  = "  ... "
	historyFile = ".oops_history"
)

// repl is an interactive read-eval-print loop over one interpreter.
type repl struct {
	in  *vm.Interpreter
	out io.Writer
}

func newREPL(in *vm.Interpreter, out io.Writer) *repl {
	return &repl{in: in, out: out}
}

// Run reads input with line editing until EOF or :quit.
func (r *repl) Run() {
	fmt.Fprintln(r.out, headerStyle.Render(version)+mutedStyle.Render("  (:help for commands, :quit to exit)"))

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetWordCompleter(r.completeWord)

	histPath := historyPath()
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	var buf strings.Builder
	for {
		p := prompt
		if buf.Len() > 0 {
			p = contPrompt
		}
		text, err := line.Prompt(p)
		if errors.Is(err, liner.ErrPromptAborted) {
			buf.Reset()
			continue
		}
		if err != nil {
			break
		}

		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(text)
		if needsMore(buf.String()) {
			continue
		}

		input := strings.TrimSpace(buf.String())
		buf.Reset()
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		if r.handle(input) {
			break
		}
	}

	if histPath != "" {
		if f, err := os.Create(histPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}
	fmt.Fprintln(r.out)
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyFile)
}

// handle runs one complete input and reports whether the REPL should exit.
func (r *repl) handle(input string) bool {
	if input == "exit" || input == "quit" {
		return true
	}
	if strings.HasPrefix(input, ":") {
		return r.command(input)
	}
	r.eval(input)
	return false
}

func (r *repl) eval(src string) {
	v, err := r.in.EvalString(src)
	if err != nil {
		fmt.Fprintln(r.out, errorStyle.Render(errorText(err)))
		return
	}
	fmt.Fprintln(r.out, resultStyle.Render(v.String()))
}

// errorText prefixes runtime errors with their kind.
func errorText(err error) string {
	if k := vm.KindOf(err); k != vm.KindNone {
		return k.String() + ": " + err.Error()
	}
	return err.Error()
}

// command handles REPL meta-commands.
func (r *repl) command(input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case ":quit", ":q":
		return true
	case ":help", ":h", ":?":
		fmt.Fprintln(r.out, headerStyle.Render("REPL commands:"))
		for _, c := range [][2]string{
			{":help", "Show this help"},
			{":classes", "List classes with their superclasses"},
			{":class NAME", "Show a class's ivars and selectors"},
			{":globals", "List global bindings"},
			{":reset", "Discard every class and global"},
			{":quit", "Exit (also exit, quit, Ctrl-D)"},
		} {
			fmt.Fprintf(r.out, "  %-14s %s\n", c[0], mutedStyle.Render(c[1]))
		}
	case ":classes":
		for _, c := range r.in.Classes().All() {
			if c.Superclass == "" {
				fmt.Fprintln(r.out, c.Name)
				continue
			}
			fmt.Fprintf(r.out, "%s %s\n", c.Name, mutedStyle.Render("< "+c.Superclass))
		}
	case ":class":
		if len(fields) < 2 {
			fmt.Fprintln(r.out, errorStyle.Render("usage: :class NAME"))
			break
		}
		c := r.in.Classes().Get(fields[1])
		if c == nil {
			fmt.Fprintln(r.out, errorStyle.Render("no class named "+fields[1]))
			break
		}
		fmt.Fprintln(r.out, headerStyle.Render(c.Name))
		fmt.Fprintf(r.out, "  ivars:     %s\n", strings.Join(c.AllIVarNames(), " "))
		fmt.Fprintf(r.out, "  selectors: %s\n", strings.Join(c.Selectors(), " "))
	case ":globals":
		for _, name := range r.in.Globals().Names() {
			v, _ := r.in.Globals().Lookup(name)
			fmt.Fprintf(r.out, "%s %s\n", name, mutedStyle.Render("= "+v.String()))
		}
	case ":reset":
		r.in.Reset()
		fmt.Fprintln(r.out, mutedStyle.Render("interpreter reset"))
	default:
		fmt.Fprintln(r.out, errorStyle.Render("unknown command "+fields[0]+" (type :help for commands)"))
	}
	return false
}

// completeWord offers class, global and selector names for the word
// under the cursor.
func (r *repl) completeWord(line string, pos int) (head string, completions []string, tail string) {
	start := pos
	for start > 0 && isNameByte(line[start-1]) {
		start--
	}
	head, word, tail := line[:start], line[start:pos], line[pos:]
	if word == "" {
		return head, nil, tail
	}

	seen := make(map[string]bool)
	add := func(name string) {
		if strings.HasPrefix(name, word) && !seen[name] {
			seen[name] = true
			completions = append(completions, name)
		}
	}
	for _, name := range r.in.Classes().Names() {
		add(name)
	}
	for _, name := range r.in.Globals().Names() {
		add(name)
	}
	for _, c := range r.in.Classes().All() {
		for _, sel := range c.Selectors() {
			add(sel)
		}
	}
	sort.Strings(completions)
	return head, completions, tail
}

func isNameByte(b byte) bool {
	return b == '_' || b == ':' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// needsMore reports whether src has unclosed brackets, braces, parens or
// an unterminated string, so the REPL should keep reading.
func needsMore(src string) bool {
	depth := 0
	lex := compiler.NewLexer(src)
	for {
		tok := lex.NextToken()
		switch tok.Type {
		case compiler.TokenEOF:
			return depth > 0
		case compiler.TokenLBracket, compiler.TokenLBrace, compiler.TokenLParen:
			depth++
		case compiler.TokenRBracket, compiler.TokenRBrace, compiler.TokenRParen:
			depth--
		case compiler.TokenError:
			if tok.Literal == "unterminated string" {
				return true
			}
		}
	}
}
