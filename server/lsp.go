package server

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/oops/compiler"
	"github.com/chazu/oops/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "oops-lsp"

// LspServer answers editor requests against a workspace interpreter. The
// interpreter holds whatever the caller loaded before Run; open
// documents are parsed for diagnostics but never evaluated.
type LspServer struct {
	worker *Worker
	log    commonlog.Logger

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates an LSP server over in.
func NewLSP(in *vm.Interpreter) *LspServer {
	s := &LspServer{
		worker:  NewWorker(in),
		log:     commonlog.GetLogger("oops.lsp"),
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)
	return s
}

// Run serves on stdio until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- Lifecycle ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.log.Info("initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"@", "#"},
	}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.setDoc(uri, params.TextDocument.Text)
	s.publishDiagnostics(ctx, uri, params.TextDocument.Text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	// Full sync: the last event carries the whole text.
	last := params.ContentChanges[len(params.ContentChanges)-1]
	if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
		s.setDoc(params.TextDocument.URI, whole.Text)
		s.publishDiagnostics(ctx, params.TextDocument.URI, whole.Text)
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) setDoc(uri protocol.DocumentUri, text string) {
	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()
}

func (s *LspServer) doc(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.doc(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}

	result, err := s.worker.Do(func(in *vm.Interpreter) any {
		return completionItems(complete(in, prefix))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.doc(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	result, err := s.worker.Do(func(in *vm.Interpreter) any {
		return hoverText(in, word)
	})
	if err != nil || result.(string) == "" {
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: result.(string),
		},
	}, nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	text, ok := s.doc(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	result, err := s.worker.Do(func(in *vm.Interpreter) any {
		return locations(definitions(in, word))
	})
	if err != nil {
		return nil, nil
	}
	return result, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	text, ok := s.doc(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	result, err := s.worker.Do(func(in *vm.Interpreter) any {
		return locations(senders(in, word))
	})
	if err != nil {
		return nil, nil
	}
	return result.([]protocol.Location), nil
}

// --- Interpreter-backed logic (called on the worker goroutine) ---

func completionItems(cs []Completion) []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, 0, len(cs))
	for _, c := range cs {
		kind := protocol.CompletionItemKindFunction
		switch c.Kind {
		case CompletionClass:
			kind = protocol.CompletionItemKindClass
		case CompletionGlobal:
			kind = protocol.CompletionItemKindVariable
		}
		label, detail := c.Label, c.Detail
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &label,
		})
	}
	return items
}

// matchingSelectors returns the defined selectors word can stand for:
// the word itself, or any keyword selector with word as one of its parts.
func matchingSelectors(in *vm.Interpreter, word string) []string {
	var result []string
	for _, sel := range allSelectors(in) {
		if sel == word {
			result = append(result, sel)
			continue
		}
		if vm.IsKeywordSelector(sel) {
			for _, part := range strings.Split(strings.TrimSuffix(sel, ":"), ":") {
				if part == word {
					result = append(result, sel)
					break
				}
			}
		}
	}
	return result
}

func isClassWord(word string) bool {
	r, _ := utf8.DecodeRuneInString(word)
	return unicode.IsUpper(r)
}

// hoverText renders Markdown for a class or selector name, or "" when
// word names neither.
func hoverText(in *vm.Interpreter, word string) string {
	if isClassWord(word) {
		c := in.Classes().Get(word)
		if c == nil {
			return ""
		}
		var b strings.Builder
		fmt.Fprintf(&b, "**%s**", c.Name)
		if c.Superclass != "" {
			fmt.Fprintf(&b, " < %s", c.Superclass)
		}
		b.WriteString("\n\n")
		if ivars := c.AllIVarNames(); len(ivars) > 0 {
			fmt.Fprintf(&b, "Instance variables: `%s`\n\n", strings.Join(ivars, " "))
		}
		fmt.Fprintf(&b, "%d methods", len(c.Selectors()))

		if supers := c.Superclasses(); len(supers) > 0 {
			names := make([]string, len(supers))
			for i, sup := range supers {
				names[len(supers)-1-i] = sup.Name
			}
			fmt.Fprintf(&b, "\n\n**Hierarchy:** %s → **%s**", strings.Join(names, " → "), c.Name)
		}
		return b.String()
	}

	var b strings.Builder
	for _, sel := range matchingSelectors(in, word) {
		impls := implementors(in, sel)
		if len(impls) == 0 {
			fmt.Fprintf(&b, "**#%s** (built-in)\n\n", sel)
			continue
		}
		fmt.Fprintf(&b, "**#%s**\n\nImplemented by %d classes:\n", sel, len(impls))
		for _, name := range impls {
			fmt.Fprintf(&b, "- %s\n", name)
		}
		if m := in.Classes().Lookup(impls[0], sel); m != nil && m.Source() != "" {
			fmt.Fprintf(&b, "\n```\n%s\n```\n", m.Source())
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// definitions returns virtual URIs for a class or the methods that
// implement a selector.
func definitions(in *vm.Interpreter, word string) []string {
	if isClassWord(word) {
		if !in.Classes().Has(word) {
			return nil
		}
		return []string{classURI(word, "")}
	}
	var uris []string
	for _, sel := range matchingSelectors(in, word) {
		for _, class := range implementors(in, sel) {
			uris = append(uris, classURI(class, sel))
		}
	}
	return uris
}

// senders returns virtual URIs for every method whose source sends word
// or names it.
func senders(in *vm.Interpreter, word string) []string {
	var uris []string
	for _, c := range in.Classes().All() {
		for _, m := range c.Methods() {
			if sourceMentions(m.Source(), word) {
				uris = append(uris, classURI(c.Name, m.Selector))
			}
		}
	}
	return uris
}

// sourceMentions reports whether any identifier, keyword part or binary
// selector in source equals word.
func sourceMentions(source, word string) bool {
	lex := compiler.NewLexer(source)
	for {
		tok := lex.NextToken()
		switch tok.Type {
		case compiler.TokenEOF:
			return false
		case compiler.TokenIdentifier, compiler.TokenKeyword, compiler.TokenBinarySelector:
			if tok.Literal == word {
				return true
			}
		}
	}
}

func classURI(class, selector string) string {
	if selector == "" {
		return "oops://class/" + class
	}
	return "oops://class/" + class + "/" + selector
}

func locations(uris []string) []protocol.Location {
	result := make([]protocol.Location, 0, len(uris))
	for _, uri := range uris {
		result = append(result, protocol.Location{URI: protocol.DocumentUri(uri)})
	}
	return result
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := documentDiagnostics(text)
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// documentDiagnostics parses text and converts every parse error to an
// LSP diagnostic one character wide.
func documentDiagnostics(text string) []protocol.Diagnostic {
	p := compiler.NewParser(text)
	p.ParseProgram()

	diagnostics := []protocol.Diagnostic{}
	for _, d := range p.Diagnostics() {
		severity := protocol.DiagnosticSeverityError
		source := lspName
		start := protocol.Position{
			Line:      protocol.UInteger(max(d.Pos.Line-1, 0)),
			Character: protocol.UInteger(max(d.Pos.Column-1, 0)),
		}
		end := start
		end.Character++
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    protocol.Range{Start: start, End: end},
			Severity: &severity,
			Source:   &source,
			Message:  d.Message,
		})
	}
	return diagnostics
}

// --- Text extraction helpers ---

func cursorLine(text string, pos protocol.Position) (string, int, bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return "", 0, false
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}
	return line, col, true
}

func isWordByte(ch byte) bool {
	r := rune(ch)
	return unicode.IsLetter(r) || unicode.IsDigit(r) || ch == '_'
}

// extractPrefix returns the name fragment before the cursor, keyword
// colons included.
func extractPrefix(text string, pos protocol.Position) string {
	line, col, ok := cursorLine(text, pos)
	if !ok {
		return ""
	}
	start := col
	for start > 0 && (isWordByte(line[start-1]) || line[start-1] == ':') {
		start--
	}
	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line, col, ok := cursorLine(text, pos)
	if !ok {
		return ""
	}
	start := col
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isWordByte(line[end]) {
		end++
	}
	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
