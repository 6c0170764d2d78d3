package phplsp

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Severity mirrors the LSP DiagnosticSeverity ordinals without depending
// on internal/lsp/protocol; C12 maps these 1:1 when building
// protocol.Diagnostic values (spec §6: diagnostics carry source "phplsp").
type Severity int

const (
	SeverityError Severity = 1
	SeverityWarning Severity = 2
)

// DiagnosticCode names the semantic check that produced a Diagnostic, per
// spec §4.8.
type DiagnosticCode string

const (
	CodeSyntaxError         DiagnosticCode = "SyntaxError"
	CodeUnresolvedUse       DiagnosticCode = "UnresolvedUse"
	CodeUnknownClass        DiagnosticCode = "UnknownClass"
	CodeUnknownFunction     DiagnosticCode = "UnknownFunction"
	CodeArgumentCountMismatch DiagnosticCode = "ArgumentCountMismatch"
)

// Diagnostic is one problem found in a file, independent of LSP wire
// shape.
type Diagnostic struct {
	Range    Range
	Severity Severity
	Code     DiagnosticCode
	Message  string
}

const diagnosticSource = "phplsp"

// Source is the fixed `source` tag spec §6 requires on every published
// diagnostic.
func Source() string { return diagnosticSource }

// DiagnoseFile runs every spec §4.8 check against one file and returns its
// diagnostics. index may be nil (diagnostics degrade to syntax-only, used
// for files not yet indexed).
func DiagnoseFile(tree *sitter.Tree, content []byte, fs *FileSymbols, index *WorkspaceIndex) []Diagnostic {
	var diags []Diagnostic
	if tree == nil {
		return diags
	}
	root := tree.RootNode()
	diags = append(diags, syntaxDiagnostics(root, content)...)
	if index == nil || fs == nil {
		return diags
	}
	// Semantic checks are suppressed when the file has syntax errors: a
	// malformed parse produces CST shapes the semantic walks were never
	// designed to see, and their FQN resolution would just be noise
	// layered on top of the syntax diagnostics already reported.
	if fs.HasSyntaxError {
		return diags
	}
	diags = append(diags, unresolvedUseDiagnostics(fs, index)...)
	diags = append(diags, semanticDiagnostics(root, content, fs, index)...)
	return diags
}

// syntaxDiagnostics walks the CST for ERROR and MISSING nodes, per spec
// §4.8's syntax-error rule: tree-sitter never fails to parse, so these
// nodes are the only signal of malformed source.
func syntaxDiagnostics(node *sitter.Node, content []byte) []Diagnostic {
	var diags []Diagnostic
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.IsMissing() {
			diags = append(diags, Diagnostic{
				Range: toRange(n), Severity: SeverityError, Code: CodeSyntaxError,
				Message: fmt.Sprintf("missing %s", n.Kind()),
			})
		} else if n.IsError() {
			diags = append(diags, Diagnostic{
				Range: toRange(n), Severity: SeverityError, Code: CodeSyntaxError,
				Message: "syntax error",
			})
		}
		count := n.ChildCount()
		for i := uint(0); i < count; i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return diags
}

// unresolvedUseDiagnostics flags `use` imports whose target FQN has no
// matching type/function/constant anywhere in the workspace index. Per
// spec §4.8, class-kind uses skip single-segment names (PHP allows
// `use SomeGlobalInterface;` with nothing to resolve against in a
// PSR-4-less file) and any name in the built-in-type list.
func unresolvedUseDiagnostics(fs *FileSymbols, index *WorkspaceIndex) []Diagnostic {
	var diags []Diagnostic
	for _, u := range fs.UseStatements {
		if u.Kind == UseClass && (!strings.Contains(u.FQN, `\`) || IsBuiltinPrimitive(u.FQN)) {
			continue
		}
		var found bool
		switch u.Kind {
		case UseClass:
			found = index.ResolveFQN(u.FQN) != nil
		case UseFunction:
			found = index.ResolveFunction(u.FQN) != nil
		case UseConst:
			found = index.ResolveConstant(u.FQN) != nil
		}
		if !found {
			diags = append(diags, Diagnostic{
				Range: u.Range, Severity: SeverityWarning, Code: CodeUnresolvedUse,
				Message: fmt.Sprintf("cannot resolve use statement for %q", u.FQN),
			})
		}
	}
	return diags
}

// semanticDiagnostics walks expression/type sites for unknown-class,
// unknown-function and argument-count-mismatch checks (spec §4.8).
func semanticDiagnostics(root *sitter.Node, content []byte, fs *FileSymbols, index *WorkspaceIndex) []Diagnostic {
	var diags []Diagnostic
	ns := fs.Namespace
	uses := fs.UseStatements

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Kind() {
		case "object_creation_expression":
			if classNode := n.ChildByFieldName("class"); classNode != nil &&
				(classNode.Kind() == "name" || classNode.Kind() == "qualified_name") {
				name := nodeText(classNode, content)
				fqn := ResolveClassName(name, ns, uses)
				sym := index.ResolveFQN(fqn)
				switch {
				case sym == nil && strings.Contains(fqn, `\`):
					diags = append(diags, Diagnostic{
						Range: toRange(classNode), Severity: SeverityWarning, Code: CodeUnknownClass,
						Message: fmt.Sprintf("unknown class %q", fqn),
					})
				case sym != nil:
					if args := n.ChildByFieldName("arguments"); args != nil && sym.FQN != "" {
						if ctor := index.ResolveMember(sym.FQN, "__construct"); ctor != nil && ctor.Signature != nil {
							checkArgumentCount(n, args, content, *ctor.Signature, &diags)
						}
					}
				}
			}
		case "named_type":
			for _, c := range namedChildren(n) {
				if c.Kind() != "name" && c.Kind() != "qualified_name" {
					continue
				}
				name := nodeText(c, content)
				if IsBuiltinPrimitive(name) {
					continue
				}
				fqn := ResolveClassName(name, ns, uses)
				if !strings.Contains(fqn, `\`) {
					continue
				}
				if index.ResolveFQN(fqn) == nil {
					diags = append(diags, Diagnostic{
						Range: toRange(c), Severity: SeverityWarning, Code: CodeUnknownClass,
						Message: fmt.Sprintf("unknown class %q", fqn),
					})
				}
			}
		case "function_call_expression":
			if fn := n.ChildByFieldName("function"); fn != nil && (fn.Kind() == "name" || fn.Kind() == "qualified_name") {
				name := nodeText(fn, content)
				fqn := ResolveFunctionName(name, ns, uses)
				sym := index.ResolveFunction(fqn)
				switch {
				case sym == nil && strings.Contains(fqn, `\`):
					diags = append(diags, Diagnostic{
						Range: toRange(fn), Severity: SeverityWarning, Code: CodeUnknownFunction,
						Message: fmt.Sprintf("unknown function %q", fqn),
					})
				case sym != nil:
					if args := n.ChildByFieldName("arguments"); args != nil && sym.Signature != nil {
						checkArgumentCount(n, args, content, *sym.Signature, &diags)
					}
				}
			}
		}
		count := n.NamedChildCount()
		for i := uint(0); i < count; i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
	return diags
}

// checkArgumentCount implements spec §4.8's ArgumentCountMismatch rule:
// flag calls with fewer arguments than the signature's required (non-
// default, non-variadic) parameters, or more than its max arity when the
// signature has no variadic trailing parameter. Named/spread arguments are
// excluded from the count since they cannot be checked positionally.
func checkArgumentCount(callNode, args *sitter.Node, content []byte, sig Signature, diags *[]Diagnostic) {
	count := 0
	for _, a := range namedChildren(args) {
		switch a.Kind() {
		case "named_argument", "variadic_unpacking":
			return // can't reliably count positionally past these
		default:
			count++
		}
	}
	min := sig.MinArity()
	max := sig.MaxArity()
	if count < min {
		*diags = append(*diags, Diagnostic{
			Range: toRange(callNode), Severity: SeverityWarning, Code: CodeArgumentCountMismatch,
			Message: fmt.Sprintf("too few arguments: expected at least %d, got %d", min, count),
		})
		return
	}
	if max >= 0 && count > max {
		*diags = append(*diags, Diagnostic{
			Range: toRange(callNode), Severity: SeverityWarning, Code: CodeArgumentCountMismatch,
			Message: fmt.Sprintf("too many arguments: expected at most %d, got %d", max, count),
		})
	}
}

// FormatDiagnosticCode renders a DiagnosticCode as the string LSP's
// `code` field expects (plain text, per spec §6, not a numeric code).
func FormatDiagnosticCode(c DiagnosticCode) string {
	return strings.TrimSpace(string(c))
}
