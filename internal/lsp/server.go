package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hightemp/php-lsp/internal/lsp/protocol"
	"github.com/hightemp/php-lsp/internal/phplsp"
	"github.com/sourcegraph/jsonrpc2"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Server is the C12 orchestrator: it owns the process-lifetime workspace
// index and document manager, translates every LSP request/notification
// into calls against the phplsp core (C1-C11), and publishes diagnostics
// and progress notifications back over the JSON-RPC connection. Grounded
// on the teacher's internal/lsp/server.go handle() dispatch-switch shape,
// generalized from its provider-registry indirection (this server has a
// single fixed PHP semantic core, not a per-feature plugin list).
type Server struct {
	rootPath  string
	stubsPath string
	version   string

	conn *jsonrpc2.Conn

	index           *phplsp.WorkspaceIndex
	documentManager *DocumentManager

	nsMu  sync.RWMutex
	nsMap *phplsp.NamespaceMap

	scanMu  sync.Mutex
	scanner *WorkspaceScanner
}

// NewServer allocates a Server. stubsPath is the phpstorm-stubs checkout
// root (may be ""; stub loading is then skipped). version is the version
// string reported to the client as serverInfo.version in the initialize
// response.
func NewServer(stubsPath, version string) *Server {
	return &Server{
		stubsPath:       stubsPath,
		version:         version,
		index:           phplsp.NewWorkspaceIndex(),
		documentManager: NewDocumentManager(),
	}
}

// rwc combines a reader and writer into a single ReadWriteCloser, matching
// the teacher's internal/lsp/server.go rwc.
type rwc struct {
	io.Reader
	io.Writer
}

func (rwc) Close() error { return nil }

// Start runs the server's JSON-RPC loop until the client disconnects.
func (s *Server) Start(in io.Reader, out io.Writer) error {
	stream := jsonrpc2.NewBufferedStream(rwc{in, out}, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(context.Background(), stream, jsonrpc2.HandlerWithError(s.handle))
	s.conn = conn
	<-conn.DisconnectNotify()
	return nil
}

// handle dispatches one incoming JSON-RPC request or notification.
func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	if req.Method == "exit" {
		log.Println("received exit notification, exiting")
		if err := conn.Close(); err != nil {
			log.Printf("error closing connection: %v", err)
		}
		return nil, nil
	}

	switch req.Method {
	case "initialize":
		var params protocol.InitializeParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeParseError, Message: err.Error()}
		}
		var opts struct {
			InitializationOptions struct {
				StubsPath string `json:"stubsPath"`
			} `json:"initializationOptions"`
		}
		if json.Unmarshal(*req.Params, &opts) == nil && opts.InitializationOptions.StubsPath != "" {
			s.stubsPath = opts.InitializationOptions.StubsPath
		}
		return s.initialize(&params), nil

	case "initialized":
		go s.onInitialized(context.Background())
		return nil, nil

	case "textDocument/didOpen":
		var params struct {
			TextDocument struct {
				URI     string `json:"uri"`
				Text    string `json:"text"`
				Version int    `json:"version"`
			} `json:"textDocument"`
		}
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		s.documentManager.OpenDocument(params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version)
		go s.publishDiagnostics(context.Background(), params.TextDocument.URI, params.TextDocument.Version)
		return nil, nil

	case "textDocument/didChange":
		var params struct {
			TextDocument struct {
				URI     string `json:"uri"`
				Version int    `json:"version"`
			} `json:"textDocument"`
			ContentChanges []struct {
				Range *struct {
					Start struct {
						Line      int `json:"line"`
						Character int `json:"character"`
					} `json:"start"`
					End struct {
						Line      int `json:"line"`
						Character int `json:"character"`
					} `json:"end"`
				} `json:"range,omitempty"`
				Text string `json:"text"`
			} `json:"contentChanges"`
		}
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		for _, change := range params.ContentChanges {
			if change.Range != nil {
				s.documentManager.ApplyRangedChange(params.TextDocument.URI,
					change.Range.Start.Line, change.Range.Start.Character,
					change.Range.End.Line, change.Range.End.Character,
					change.Text, params.TextDocument.Version)
			} else {
				s.documentManager.ApplyFullChange(params.TextDocument.URI, change.Text, params.TextDocument.Version)
			}
		}
		uri := params.TextDocument.URI
		if tree := s.documentManager.GetTree(uri); tree != nil {
			if content, ok := s.documentManager.GetDocumentText(uri); ok {
				s.index.UpdateFile(uri, phplsp.ExtractFileSymbols(tree.RootNode(), content, uri))
			}
		}
		go s.publishDiagnostics(context.Background(), params.TextDocument.URI, params.TextDocument.Version)
		return nil, nil

	case "textDocument/didSave":
		var params struct {
			TextDocument struct {
				URI string `json:"uri"`
			} `json:"textDocument"`
		}
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		if content, ok := s.documentManager.GetDocumentText(params.TextDocument.URI); ok {
			s.reindexSavedFile(params.TextDocument.URI, content)
		}
		return nil, nil

	case "textDocument/didClose":
		var params struct {
			TextDocument struct {
				URI string `json:"uri"`
			} `json:"textDocument"`
		}
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		s.documentManager.CloseDocument(params.TextDocument.URI)
		return nil, nil

	case "textDocument/hover":
		var params protocol.HoverParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		return s.hover(&params), nil

	case "textDocument/definition":
		var params protocol.DefinitionParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		return s.definition(&params), nil

	case "textDocument/references":
		var params protocol.ReferenceParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		return s.references(&params), nil

	case "textDocument/documentSymbol":
		var params protocol.DocumentSymbolParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		return s.documentSymbols(&params), nil

	case "workspace/symbol":
		var params protocol.WorkspaceSymbolParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		return s.workspaceSymbols(&params), nil

	case "textDocument/prepareRename":
		var params protocol.PrepareRenameParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		return s.prepareRename(&params)

	case "textDocument/rename":
		var params protocol.RenameParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		return s.rename(&params)

	case "textDocument/completion":
		var params protocol.CompletionParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		return s.completion(&params), nil

	case "completionItem/resolve":
		var item protocol.CompletionItem
		if err := json.Unmarshal(*req.Params, &item); err != nil {
			return nil, err
		}
		return s.resolveCompletionItem(&item), nil

	case "textDocument/diagnostic":
		var params protocol.DiagnosticParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		return s.diagnostic(&params), nil

	case "workspace/didChangeWatchedFiles":
		var params protocol.DidChangeWatchedFilesParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, err
		}
		s.didChangeWatchedFiles(&params)
		return nil, nil

	case "$/cancelRequest":
		// Requests in this server complete synchronously within one handle()
		// call (the only long-running work, the background scan, runs
		// detached and isn't addressed by a request ID); nothing to cancel.
		return nil, nil

	case "shutdown":
		if s.scanner != nil {
			s.scanner.Close()
		}
		s.documentManager.Close()
		log.Println("received shutdown request, waiting for exit notification")
		return nil, nil

	default:
		if req.ID == (jsonrpc2.ID{}) {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not implemented: " + req.Method}
	}
}

// initialize handles the LSP initialize request, per spec §6's capability
// set: incremental sync, hover, definition, references, hierarchical
// document symbols, workspace symbols, rename with prepareProvider,
// completion with resolveProvider, and diagnostic pull support.
func (s *Server) initialize(params *protocol.InitializeParams) interface{} {
	s.extractRootPath(params)
	return map[string]interface{}{
		"capabilities": map[string]interface{}{
			"textDocumentSync": map[string]interface{}{
				"openClose": true,
				"change":    2, // Incremental
				"save":      map[string]interface{}{"includeText": false},
			},
			"hoverProvider":          true,
			"definitionProvider":     true,
			"referencesProvider":     true,
			"documentSymbolProvider": true,
			"workspaceSymbolProvider": true,
			"renameProvider": map[string]interface{}{
				"prepareProvider": true,
			},
			"completionProvider": map[string]interface{}{
				"triggerCharacters": []string{"$", ">", ":", `\`},
				"resolveProvider":   true,
			},
			"diagnosticProvider": map[string]interface{}{
				"interFileDependencies": true,
				"workspaceDiagnostics":  false,
			},
		},
		"serverInfo": map[string]interface{}{
			"name":    "php-lsp",
			"version": s.version,
		},
	}
}

func (s *Server) extractRootPath(params *protocol.InitializeParams) {
	if params.RootPath != "" {
		s.rootPath = params.RootPath
		return
	}
	if params.RootURI != "" {
		s.rootPath = pathForURI(params.RootURI)
		return
	}
	if len(params.WorkspaceFolders) > 0 {
		s.rootPath = pathForURI(params.WorkspaceFolders[0].URI)
		return
	}
	s.rootPath, _ = os.Getwd()
}

// onInitialized runs the composer-parse, stubs-load, background-scan,
// watcher-start sequence, per spec §6. It is invoked detached from the
// `initialized` notification so the JSON-RPC loop is never blocked by a
// large workspace's initial scan.
func (s *Server) onInitialized(ctx context.Context) {
	nsMap := &phplsp.NamespaceMap{}
	composerPath := filepath.Join(s.rootPath, "composer.json")
	if parsed, err := phplsp.ParseComposerJSON(composerPath); err == nil {
		nsMap = parsed
	} else if !os.IsNotExist(err) {
		log.Printf("composer.json: %v", err)
	}
	if err := nsMap.FoldVendorPackages(s.rootPath); err != nil {
		log.Printf("vendor autoload folding: %v", err)
	}
	s.nsMu.Lock()
	s.nsMap = nsMap
	s.nsMu.Unlock()

	if s.stubsPath != "" {
		start := time.Now()
		n := phplsp.LoadStubs(s.index, s.stubsPath, phplsp.DefaultExtensions)
		log.Printf("stubs: loaded %d files in %s", n, time.Since(start))
	}

	dirs := nsMap.SourceDirectories()
	if len(dirs) == 0 {
		dirs = []string{s.rootPath}
	}

	scanner := NewWorkspaceScanner(s.rootPath, s.index)
	scanner.SetOnUpdate(func() { s.republishOpenDiagnostics() })
	s.scanMu.Lock()
	s.scanner = scanner
	s.scanMu.Unlock()

	token := s.beginProgress(ctx, "Indexing workspace")

	start := time.Now()
	scanner.ScanAll(ctx, dirs, func(done, total int) {
		if token == "" {
			return
		}
		pct := 0
		if total > 0 {
			pct = done * 100 / total
		}
		s.reportProgress(ctx, token, fmt.Sprintf("%d/%d files", done, total), pct)
	})
	log.Printf("background scan: indexed workspace in %s", time.Since(start))
	s.endProgress(ctx, token)

	if err := scanner.StartWatcher(dirs); err != nil {
		log.Printf("file watcher: %v", err)
	}

	s.republishOpenDiagnostics()
}

// beginProgress negotiates a Work Done Progress token with the client
// (window/workDoneProgress/create), per spec §6. If the client doesn't
// support it (or the handshake errors), returns "" and callers skip
// further $/progress notifications.
func (s *Server) beginProgress(ctx context.Context, title string) string {
	if s.conn == nil {
		return ""
	}
	token := uuid.NewString()
	if err := s.conn.Call(ctx, "window/workDoneProgress/create", map[string]interface{}{"token": token}, nil); err != nil {
		log.Printf("workDoneProgress/create not supported: %v", err)
		return ""
	}
	_ = s.conn.Notify(ctx, "$/progress", protocol.ProgressParams{
		Token: token,
		Value: protocol.WorkDoneProgressBegin{Kind: "begin", Title: title, Cancellable: false},
	})
	return token
}

func (s *Server) reportProgress(ctx context.Context, token, message string, percentage int) {
	if token == "" || s.conn == nil {
		return
	}
	_ = s.conn.Notify(ctx, "$/progress", protocol.ProgressParams{
		Token: token,
		Value: protocol.WorkDoneProgressReport{Kind: "report", Message: message, Percentage: percentage},
	})
}

func (s *Server) endProgress(ctx context.Context, token string) {
	if token == "" || s.conn == nil {
		return
	}
	_ = s.conn.Notify(ctx, "$/progress", protocol.ProgressParams{
		Token: token,
		Value: protocol.WorkDoneProgressEnd{Kind: "end"},
	})
}

// reindexSavedFile re-extracts and republishes uri's digest immediately on
// save, rather than waiting for the next background-scan/watcher pass, so
// cross-file features (references, completion) see edits as soon as the
// editor persists them.
func (s *Server) reindexSavedFile(uri string, content []byte) {
	parser := phplsp.NewFileParser()
	defer parser.Close()
	parser.ParseFull(content)
	tree := parser.Tree()
	if tree == nil {
		return
	}
	fs := phplsp.ExtractFileSymbols(tree.RootNode(), content, uri)
	s.index.UpdateFile(uri, fs)
	s.republishOpenDiagnostics()
}

func (s *Server) republishOpenDiagnostics() {
	if s.conn == nil {
		return
	}
	ctx := context.Background()
	for _, uri := range s.documentManager.OpenURIs() {
		version, _ := s.documentManager.GetVersion(uri)
		s.publishDiagnostics(ctx, uri, version)
	}
}

// publishDiagnostics runs every spec §4.8 check against uri's current
// (possibly-unsaved) buffer and sends a textDocument/publishDiagnostics
// notification, per spec §6 (diagnostics source tag "phplsp").
func (s *Server) publishDiagnostics(ctx context.Context, uri string, version int) {
	if s.conn == nil {
		return
	}
	tree := s.documentManager.GetTree(uri)
	content, ok := s.documentManager.GetDocumentText(uri)
	if tree == nil || !ok {
		return
	}
	fs := phplsp.ExtractFileSymbols(tree.RootNode(), content, uri)
	diags := phplsp.DiagnoseFile(tree, content, fs, s.index)

	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, diagnosticToProtocol(d))
	}
	if err := s.conn.Notify(ctx, "textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI: uri, Version: version, Diagnostics: out,
	}); err != nil {
		log.Printf("publishDiagnostics: %v", err)
	}
}

// diagnostic handles a textDocument/diagnostic pull request with the same
// check set as publishDiagnostics.
func (s *Server) diagnostic(params *protocol.DiagnosticParams) protocol.DiagnosticResult {
	uri := params.TextDocument.URI
	tree := s.documentManager.GetTree(uri)
	content, ok := s.documentManager.GetDocumentText(uri)
	if tree == nil || !ok {
		return protocol.DiagnosticResult{Items: []protocol.Diagnostic{}}
	}
	fs := phplsp.ExtractFileSymbols(tree.RootNode(), content, uri)
	diags := phplsp.DiagnoseFile(tree, content, fs, s.index)
	items := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		items = append(items, diagnosticToProtocol(d))
	}
	return protocol.DiagnosticResult{Items: items}
}

func diagnosticToProtocol(d phplsp.Diagnostic) protocol.Diagnostic {
	sev := protocol.DiagnosticSeverityWarning
	if d.Severity == phplsp.SeverityError {
		sev = protocol.DiagnosticSeverityError
	}
	return protocol.Diagnostic{
		Range:    rangeToProtocol(d.Range),
		Severity: sev,
		Code:     phplsp.FormatDiagnosticCode(d.Code),
		Source:   phplsp.Source(),
		Message:  d.Message,
	}
}

// didChangeWatchedFiles handles external file create/change/delete events
// (editors outside this server's own fsnotify watcher, e.g. a VCS checkout
// or another tool writing PHP files), reindexing or removing as needed.
func (s *Server) didChangeWatchedFiles(params *protocol.DidChangeWatchedFilesParams) {
	s.scanMu.Lock()
	scanner := s.scanner
	s.scanMu.Unlock()
	if scanner == nil {
		return
	}
	var changed, removed []string
	for _, c := range params.Changes {
		path := pathForURI(c.URI)
		switch protocol.FileChangeType(c.Type) {
		case protocol.FileCreated, protocol.FileChanged:
			changed = append(changed, path)
		case protocol.FileDeleted:
			removed = append(removed, path)
		}
	}
	if len(changed) > 0 {
		scanner.IndexFiles(changed)
	}
	if len(removed) > 0 {
		scanner.RemoveFiles(removed)
	}
}

// --- cursor-resolution helpers shared by hover/definition/references/rename ---

// cursorContext bundles everything ResolveAt needs plus the raw node under
// the cursor, computed once per request.
type cursorContext struct {
	tree              *tree_sitter.Tree
	content           []byte
	node              *tree_sitter.Node
	fs                *phplsp.FileSymbols
	enclosingClassFQN string
}

func (s *Server) resolveCursor(uri string, line, col int) (*cursorContext, bool) {
	tree := s.documentManager.GetTree(uri)
	node, content, ok := s.documentManager.GetNodeAtPosition(uri, line, col)
	if tree == nil || !ok {
		return nil, false
	}
	fs := phplsp.ExtractFileSymbols(tree.RootNode(), content, uri)
	enclosingClassFQN := phplsp.EnclosingClassFQN(node, content, fs.Namespace)
	return &cursorContext{tree: tree, content: content, node: node, fs: fs, enclosingClassFQN: enclosingClassFQN}, true
}

// splitOwnerName splits a member FQN of shape `Owner::name` or `Owner::$name`
// into its owner FQN and bare member name.
func splitOwnerName(fqn string) (owner, name string, ok bool) {
	idx := strings.LastIndex(fqn, "::")
	if idx < 0 {
		return "", "", false
	}
	return fqn[:idx], strings.TrimPrefix(fqn[idx+2:], "$"), true
}

// symbolKindForRef maps a resolved reference kind to the PhpSymbolKind
// FindReferences expects.
func symbolKindForRef(k phplsp.RefKind) (phplsp.PhpSymbolKind, bool) {
	switch k {
	case phplsp.RefClassName:
		return phplsp.KindClass, true
	case phplsp.RefFunctionCall:
		return phplsp.KindFunction, true
	case phplsp.RefMethodCall:
		return phplsp.KindMethod, true
	case phplsp.RefPropertyAccess, phplsp.RefStaticPropertyAccess:
		return phplsp.KindProperty, true
	case phplsp.RefClassConstant:
		return phplsp.KindClassConstant, true
	default:
		return 0, false
	}
}

// resolveTargetSymbol looks up the SymbolInfo a resolved reference points
// at, per spec §4.5's per-kind FQN shapes.
func (s *Server) resolveTargetSymbol(sym *phplsp.SymbolAtPosition) *phplsp.SymbolInfo {
	switch sym.RefKind {
	case phplsp.RefClassName:
		return s.index.ResolveFQN(sym.FQN)
	case phplsp.RefFunctionCall:
		return s.index.ResolveFunction(sym.FQN)
	case phplsp.RefMethodCall, phplsp.RefPropertyAccess, phplsp.RefStaticPropertyAccess, phplsp.RefClassConstant:
		owner, name, ok := splitOwnerName(sym.FQN)
		if !ok {
			return nil
		}
		return s.index.ResolveMember(owner, name)
	default:
		return nil
	}
}

// hover handles textDocument/hover.
func (s *Server) hover(params *protocol.HoverParams) *protocol.Hover {
	uri := params.TextDocument.URI
	line, col := params.Position.Line, params.Position.Character
	cc, ok := s.resolveCursor(uri, line, col)
	if !ok {
		return nil
	}

	if cc.node != nil && cc.node.Kind() == "variable_name" {
		name := strings.TrimPrefix(nodeTextOf(cc.node, cc.content), "$")
		r := rangeToProtocol(phplsp.NodeRange(cc.node))
		return &protocol.Hover{
			Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: fmt.Sprintf("```php\n$%s\n```", name)},
			Range:    &r,
		}
	}

	resolver := phplsp.NewResolver(s.index)
	sym := resolver.ResolveAt(cc.tree, cc.content, line, col, cc.fs, cc.enclosingClassFQN)
	if sym == nil {
		return nil
	}
	info := s.resolveTargetSymbol(sym)
	r := rangeToProtocol(sym.Range)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: renderHoverMarkdown(sym, info)},
		Range:    &r,
	}
}

func renderHoverMarkdown(sym *phplsp.SymbolAtPosition, info *phplsp.SymbolInfo) string {
	if info == nil {
		return fmt.Sprintf("```php\n%s\n```", sym.FQN)
	}
	var b strings.Builder
	b.WriteString("```php\n")
	switch {
	case info.Kind.IsTypeKind():
		b.WriteString(strings.ToLower(info.Kind.String()) + " " + info.FQN)
	case info.Signature != nil:
		prefix := info.FQN
		if info.ParentFQN != "" {
			prefix = info.ParentFQN + "::" + info.Name
		}
		b.WriteString(renderSignatureDoc(prefix, *info.Signature))
	default:
		b.WriteString(info.FQN)
	}
	b.WriteString("\n```")
	if info.Doc != nil && info.Doc.Summary != "" {
		b.WriteString("\n\n" + info.Doc.Summary)
	}
	if info.Modifiers.Deprecated {
		b.WriteString("\n\n**Deprecated**")
	}
	return b.String()
}

func renderSignatureDoc(name string, sig phplsp.Signature) string {
	parts := make([]string, len(sig.Params))
	for i, p := range sig.Params {
		t := ""
		if p.TypeInfo != nil {
			t = p.TypeInfo.Render() + " "
		}
		parts[i] = t + "$" + p.Name
	}
	ret := ""
	if sig.ReturnType != nil {
		ret = ": " + sig.ReturnType.Render()
	}
	return name + "(" + strings.Join(parts, ", ") + ")" + ret
}

// definition handles textDocument/definition.
func (s *Server) definition(params *protocol.DefinitionParams) []protocol.Location {
	uri := params.TextDocument.URI
	line, col := params.Position.Line, params.Position.Character
	cc, ok := s.resolveCursor(uri, line, col)
	if !ok {
		return nil
	}

	if cc.node != nil && cc.node.Kind() == "variable_name" {
		defNode := phplsp.LocalVariableDefinition(cc.node, cc.content)
		if defNode == nil {
			return nil
		}
		return []protocol.Location{{URI: uri, Range: rangeToProtocol(phplsp.NodeRange(defNode))}}
	}

	resolver := phplsp.NewResolver(s.index)
	sym := resolver.ResolveAt(cc.tree, cc.content, line, col, cc.fs, cc.enclosingClassFQN)
	if sym == nil {
		return nil
	}
	info := s.resolveTargetSymbol(sym)
	if info == nil || info.URI == "" {
		return nil
	}
	return []protocol.Location{{URI: info.URI, Range: rangeToProtocol(info.SelectionRange)}}
}

// references handles textDocument/references, searching every indexed file
// plus every currently-open document (spec §4.6). phpstub:// sources are
// skipped: their trees aren't retained past stub loading.
func (s *Server) references(params *protocol.ReferenceParams) []protocol.Location {
	uri := params.TextDocument.URI
	line, col := params.Position.Line, params.Position.Character
	cc, ok := s.resolveCursor(uri, line, col)
	if !ok {
		return nil
	}

	resolver := phplsp.NewResolver(s.index)
	sym := resolver.ResolveAt(cc.tree, cc.content, line, col, cc.fs, cc.enclosingClassFQN)
	if sym == nil || sym.FQN == "" {
		return nil
	}
	kind, ok := symbolKindForRef(sym.RefKind)
	if !ok {
		return nil
	}

	var locations []protocol.Location
	for _, fileURI := range s.candidateFileURIs() {
		sites := s.referencesInFile(fileURI, sym.FQN, kind)
		for _, site := range sites {
			if !params.Context.IncludeDeclaration && site.DefinitionSite {
				continue
			}
			locations = append(locations, protocol.Location{URI: site.URI, Range: rangeToProtocol(site.Range)})
		}
	}
	return locations
}

// candidateFileURIs is every URI worth scanning for references: every
// indexed file plus every currently open (possibly not-yet-scanned)
// document, deduplicated.
func (s *Server) candidateFileURIs() []string {
	seen := make(map[string]bool)
	var uris []string
	for _, u := range s.index.AllFileURIs() {
		if strings.HasPrefix(u, "phpstub://") {
			continue
		}
		if !seen[u] {
			seen[u] = true
			uris = append(uris, u)
		}
	}
	for _, u := range s.documentManager.OpenURIs() {
		if !seen[u] {
			seen[u] = true
			uris = append(uris, u)
		}
	}
	return uris
}

// referencesInFile parses (or reuses an already-open tree for) uri and runs
// FindReferences against it.
func (s *Server) referencesInFile(uri, targetFQN string, kind phplsp.PhpSymbolKind) []phplsp.ReferenceSite {
	if tree := s.documentManager.GetTree(uri); tree != nil {
		content, ok := s.documentManager.GetDocumentText(uri)
		if !ok {
			return nil
		}
		fs := phplsp.ExtractFileSymbols(tree.RootNode(), content, uri)
		return phplsp.FindReferences(tree.RootNode(), content, uri, fs, targetFQN, kind)
	}

	path := pathForURI(uri)
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	parser := phplsp.NewFileParser()
	defer parser.Close()
	parser.ParseFull(content)
	tree := parser.Tree()
	if tree == nil {
		return nil
	}
	fs := s.index.FileDigest(uri)
	if fs == nil {
		fs = phplsp.ExtractFileSymbols(tree.RootNode(), content, uri)
	}
	return phplsp.FindReferences(tree.RootNode(), content, uri, fs, targetFQN, kind)
}

// documentSymbols handles textDocument/documentSymbol, building the
// hierarchical symbol tree spec §4.9 (and the LSP hierarchicalDocumentSymbol
// capability) expects: top-level types own their members as Children.
func (s *Server) documentSymbols(params *protocol.DocumentSymbolParams) []protocol.DocumentSymbol {
	uri := params.TextDocument.URI
	tree := s.documentManager.GetTree(uri)
	content, ok := s.documentManager.GetDocumentText(uri)
	if tree == nil || !ok {
		return nil
	}
	fs := phplsp.ExtractFileSymbols(tree.RootNode(), content, uri)

	byParent := make(map[string][]phplsp.SymbolInfo)
	var top []phplsp.SymbolInfo
	for _, sym := range fs.Symbols {
		if sym.ParentFQN != "" {
			byParent[sym.ParentFQN] = append(byParent[sym.ParentFQN], sym)
		} else {
			top = append(top, sym)
		}
	}

	out := make([]protocol.DocumentSymbol, 0, len(top))
	for _, sym := range top {
		out = append(out, symbolInfoToDocumentSymbol(sym, byParent))
	}
	return out
}

func symbolInfoToDocumentSymbol(sym phplsp.SymbolInfo, byParent map[string][]phplsp.SymbolInfo) protocol.DocumentSymbol {
	ds := protocol.DocumentSymbol{
		Name:           sym.Name,
		Detail:         symbolDetail(sym),
		Kind:           symbolKindToProtocol(sym.Kind),
		Range:          rangeToProtocol(sym.Range),
		SelectionRange: rangeToProtocol(sym.SelectionRange),
	}
	for _, member := range byParent[sym.FQN] {
		ds.Children = append(ds.Children, symbolInfoToDocumentSymbol(member, byParent))
	}
	return ds
}

func symbolDetail(sym phplsp.SymbolInfo) string {
	if sym.Signature != nil {
		return renderSignatureDoc(sym.Name, *sym.Signature)
	}
	return ""
}

func symbolKindToProtocol(k phplsp.PhpSymbolKind) protocol.SymbolKind {
	switch k {
	case phplsp.KindClass:
		return protocol.SymbolKindClass
	case phplsp.KindInterface:
		return protocol.SymbolKindInterface
	case phplsp.KindTrait:
		return protocol.SymbolKindClass
	case phplsp.KindEnum:
		return protocol.SymbolKindEnum
	case phplsp.KindFunction:
		return protocol.SymbolKindFunction
	case phplsp.KindMethod:
		return protocol.SymbolKindMethod
	case phplsp.KindProperty:
		return protocol.SymbolKindProperty
	case phplsp.KindClassConstant, phplsp.KindGlobalConstant:
		return protocol.SymbolKindConstant
	case phplsp.KindEnumCase:
		return protocol.SymbolKindEnumMember
	case phplsp.KindNamespace:
		return protocol.SymbolKindNamespace
	default:
		return protocol.SymbolKindVariable
	}
}

// workspaceSymbols handles workspace/symbol, per spec §4.4's search.
func (s *Server) workspaceSymbols(params *protocol.WorkspaceSymbolParams) []protocol.SymbolInformation {
	matches := s.index.Search(params.Query)
	out := make([]protocol.SymbolInformation, 0, len(matches))
	for _, sym := range matches {
		out = append(out, protocol.SymbolInformation{
			Name:          sym.Name,
			Kind:          symbolKindToProtocol(sym.Kind),
			Location:      protocol.Location{URI: sym.URI, Range: rangeToProtocol(sym.Range)},
			ContainerName: sym.ParentFQN,
		})
	}
	return out
}

// prepareRename handles textDocument/prepareRename: resolves the cursor
// symbol and rejects (invalid params) targets with no renameable binding or
// that resolve to a builtin (stub-sourced) symbol, per spec §7.
func (s *Server) prepareRename(params *protocol.PrepareRenameParams) (*protocol.PrepareRenameResult, error) {
	uri := params.TextDocument.URI
	line, col := params.Position.Line, params.Position.Character
	target, err := s.resolveRenameTarget(uri, line, col)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, nil
	}
	return &protocol.PrepareRenameResult{Range: rangeToProtocol(target.cursorRange), Placeholder: target.name}, nil
}

// rename handles textDocument/rename: resolves the cursor symbol, locates
// every reference site across the workspace (or, for local variables, the
// enclosing scope) and returns a WorkspaceEdit. The sigil (`$`) on each
// edit's replacement text is decided per-site from the source byte at that
// site's start, not from DefinitionSite/RefKind alone: a property's
// declaration site and its `Class::$prop` static-access sites both carry
// the sigil in source, while an instance `$obj->prop` access site does not
// (see references.go's declaration-vs-access node-kind asymmetry).
func (s *Server) rename(params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	uri := params.TextDocument.URI
	line, col := params.Position.Line, params.Position.Character
	target, err := s.resolveRenameTarget(uri, line, col)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, nil
	}

	changes := make(map[string][]protocol.TextEdit)

	if target.isLocalVariable {
		for _, occ := range target.localOccurrences {
			changes[uri] = append(changes[uri], protocol.TextEdit{
				Range:   rangeToProtocol(occ),
				NewText: "$" + params.NewName,
			})
		}
		return &protocol.WorkspaceEdit{Changes: changes}, nil
	}

	for _, fileURI := range s.candidateFileURIs() {
		content := s.fileContentFor(fileURI)
		if content == nil {
			continue
		}
		for _, site := range s.referencesInFile(fileURI, target.fqn, target.kind) {
			newText := renameReplacementText(content, site.Range, params.NewName)
			changes[site.URI] = append(changes[site.URI], protocol.TextEdit{
				Range:   rangeToProtocol(site.Range),
				NewText: newText,
			})
		}
	}
	return &protocol.WorkspaceEdit{Changes: changes}, nil
}

func (s *Server) fileContentFor(uri string) []byte {
	if content, ok := s.documentManager.GetDocumentText(uri); ok {
		return content
	}
	content, err := os.ReadFile(pathForURI(uri))
	if err != nil {
		return nil
	}
	return content
}

func renameReplacementText(content []byte, r phplsp.Range, newName string) string {
	rope := phplsp.NewRope(content)
	start := rope.PositionToByte(r.StartLine, r.StartCol)
	if start < len(content) && content[start] == '$' {
		return "$" + newName
	}
	return newName
}

// renameTarget is the outcome of resolving a rename/prepareRename cursor
// position: either a cross-file symbol (fqn/kind set) or an in-file local
// variable (isLocalVariable set, localOccurrences populated).
type renameTarget struct {
	name             string
	cursorRange      phplsp.Range
	fqn              string
	kind             phplsp.PhpSymbolKind
	isLocalVariable  bool
	localOccurrences []phplsp.Range
}

func (s *Server) resolveRenameTarget(uri string, line, col int) (*renameTarget, error) {
	cc, ok := s.resolveCursor(uri, line, col)
	if !ok {
		return nil, nil
	}

	if cc.node != nil && cc.node.Kind() == "variable_name" {
		name := strings.TrimPrefix(nodeTextOf(cc.node, cc.content), "$")
		occurrences := localVariableOccurrences(cc.node, cc.content, name)
		return &renameTarget{
			name: name, cursorRange: phplsp.NodeRange(cc.node),
			isLocalVariable: true, localOccurrences: occurrences,
		}, nil
	}

	resolver := phplsp.NewResolver(s.index)
	sym := resolver.ResolveAt(cc.tree, cc.content, line, col, cc.fs, cc.enclosingClassFQN)
	if sym == nil || sym.FQN == "" {
		return nil, nil
	}
	kind, ok := symbolKindForRef(sym.RefKind)
	if !ok {
		return nil, nil
	}
	info := s.resolveTargetSymbol(sym)
	if info != nil && info.Modifiers.Builtin {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "cannot rename a built-in symbol"}
	}
	return &renameTarget{name: sym.Name, cursorRange: sym.Range, fqn: sym.FQN, kind: kind}, nil
}

// localVariableOccurrences collects every `$name` binding/usage within the
// function/method/closure scope enclosing node (or the whole file if node
// is at top level), per spec §4.6's "local variables are file/scope local"
// rule.
func localVariableOccurrences(node *tree_sitter.Node, content []byte, name string) []phplsp.Range {
	scope := phplsp.EnclosingScopeNode(node)
	var ranges []phplsp.Range

	if scope != nil {
		if params := scope.ChildByFieldName("parameters"); params != nil {
			collectVariableRanges(params, content, name, &ranges)
		}
		if body := scope.ChildByFieldName("body"); body != nil {
			collectVariableRanges(body, content, name, &ranges)
		}
	} else {
		root := node
		for root.Parent() != nil {
			root = root.Parent()
		}
		collectVariableRanges(root, content, name, &ranges)
	}
	return ranges
}

func collectVariableRanges(node *tree_sitter.Node, content []byte, name string, out *[]phplsp.Range) {
	if node == nil {
		return
	}
	if node.Kind() == "variable_name" && strings.TrimPrefix(nodeTextOf(node, content), "$") == name {
		*out = append(*out, phplsp.NodeRange(node))
	}
	count := node.NamedChildCount()
	for i := uint(0); i < count; i++ {
		collectVariableRanges(node.NamedChild(i), content, name, out)
	}
}

func nodeTextOf(node *tree_sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return string(node.Utf8Text(content))
}

// completion handles textDocument/completion, per spec §4.7.
func (s *Server) completion(params *protocol.CompletionParams) *protocol.CompletionList {
	uri := params.TextDocument.URI
	line, col := params.Position.Line, params.Position.Character
	textBefore, node, content, ok := s.documentManager.TextBeforeCursor(uri, line, col)
	if !ok {
		return &protocol.CompletionList{Items: []protocol.CompletionItem{}}
	}
	tree := s.documentManager.GetTree(uri)
	if tree == nil {
		return &protocol.CompletionList{Items: []protocol.CompletionItem{}}
	}
	fs := phplsp.ExtractFileSymbols(tree.RootNode(), content, uri)
	enclosingClassFQN := phplsp.EnclosingClassFQN(node, content, fs.Namespace)
	localVars := phplsp.CollectLocalVariables(node, content)

	ctx := phplsp.DetectCompletionContext(textBefore, node, content)
	resolver := phplsp.NewResolver(s.index)
	items := phplsp.GenerateCompletionItems(ctx, s.index, resolver, fs, enclosingClassFQN, localVars)

	out := make([]protocol.CompletionItem, 0, len(items))
	for _, item := range items {
		out = append(out, protocol.CompletionItem{
			Label:  item.Label,
			Kind:   int(completionKindToProtocol(item.Kind)),
			Detail: item.Detail,
			Data:   item.Data,
		})
	}
	return &protocol.CompletionList{IsIncomplete: false, Items: out}
}

func completionKindToProtocol(k phplsp.CompletionItemKind) protocol.CompletionItemKind {
	switch k {
	case phplsp.CIKindClass:
		return protocol.CIKindClass
	case phplsp.CIKindInterface:
		return protocol.CIKindInterface
	case phplsp.CIKindMethod:
		return protocol.CIKindMethod
	case phplsp.CIKindProperty:
		return protocol.CIKindProperty
	case phplsp.CIKindConstant:
		return protocol.CIKindConstant
	case phplsp.CIKindVariable:
		return protocol.CIKindVariable
	case phplsp.CIKindFunction:
		return protocol.CIKindFunction
	case phplsp.CIKindKeyword:
		return protocol.CIKindKeyword
	case phplsp.CIKindEnumMember:
		return protocol.CIKindEnumMember
	default:
		return protocol.CIKindVariable
	}
}

func protocolKindToCompletion(k int) phplsp.CompletionItemKind {
	switch protocol.CompletionItemKind(k) {
	case protocol.CIKindClass:
		return phplsp.CIKindClass
	case protocol.CIKindInterface:
		return phplsp.CIKindInterface
	case protocol.CIKindMethod:
		return phplsp.CIKindMethod
	case protocol.CIKindProperty:
		return phplsp.CIKindProperty
	case protocol.CIKindConstant:
		return phplsp.CIKindConstant
	case protocol.CIKindVariable:
		return phplsp.CIKindVariable
	case protocol.CIKindFunction:
		return phplsp.CIKindFunction
	case protocol.CIKindKeyword:
		return phplsp.CIKindKeyword
	case protocol.CIKindEnumMember:
		return phplsp.CIKindEnumMember
	default:
		return phplsp.CIKindVariable
	}
}

// resolveCompletionItem handles completionItem/resolve, per spec §4.7's
// resolve stage.
func (s *Server) resolveCompletionItem(item *protocol.CompletionItem) *protocol.CompletionItem {
	kind := protocolKindToCompletion(item.Kind)
	detail, doc := phplsp.ResolveCompletionItem(s.index, kind, item.Data)
	if detail != "" {
		item.Detail = detail
	}
	if doc != "" {
		item.Documentation = &protocol.MarkupContent{Kind: protocol.Markdown, Value: doc}
	}
	return item
}

// --- shared range conversion ---

func rangeToProtocol(r phplsp.Range) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: r.StartLine, Character: r.StartCol},
		End:   protocol.Position{Line: r.EndLine, Character: r.EndCol},
	}
}
