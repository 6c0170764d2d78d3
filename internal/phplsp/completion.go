package phplsp

import (
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// CompletionContextKind classifies the cursor context detected for a
// completion request, per spec §4.7.
type CompletionContextKind int

const (
	CtxNone CompletionContextKind = iota
	CtxMemberAccess
	CtxStaticAccess
	CtxVariable
	CtxNamespace
	CtxUseStatement
	CtxFree
)

// CompletionContext is the result of spec §4.7's context-detection
// decision tree.
type CompletionContext struct {
	Kind       CompletionContextKind
	Prefix     string // partial identifier already typed
	ObjectExpr string // MemberAccess: the expression before `->`
	ClassFQN   string // MemberAccess/StaticAccess: resolved object/scope type, if known
}

// phpKeywords is the reserved-word set offered for Free-context
// completion alongside index search results.
var phpKeywords = []string{
	"abstract", "and", "array", "as", "break", "callable", "case", "catch",
	"class", "clone", "const", "continue", "declare", "default", "do",
	"echo", "else", "elseif", "empty", "enddeclare", "endfor", "endforeach",
	"endif", "endswitch", "endwhile", "enum", "extends", "final", "finally",
	"fn", "for", "foreach", "function", "global", "goto", "if", "implements",
	"include", "include_once", "instanceof", "insteadof", "interface",
	"isset", "list", "match", "namespace", "new", "or", "print", "private",
	"protected", "public", "readonly", "require", "require_once", "return",
	"static", "switch", "throw", "trait", "true", "false", "null", "try",
	"unset", "use", "var", "while", "xor", "yield",
}

// DetectCompletionContext implements spec §4.7's decision tree against the
// text immediately before the cursor and the CST node at the cursor.
func DetectCompletionContext(textBeforeCursor string, node *sitter.Node, content []byte) CompletionContext {
	trimmed := strings.TrimRight(textBeforeCursor, " \t")

	if idx := lastArrowIndex(trimmed); idx >= 0 {
		afterArrow := trimmed[idx+2:]
		if isIdentifierPrefix(afterArrow) {
			objExpr := objectExprBeforeArrow(trimmed[:idx], node, content)
			return CompletionContext{Kind: CtxMemberAccess, Prefix: afterArrow, ObjectExpr: objExpr}
		}
	}

	if idx := strings.LastIndex(trimmed, "::"); idx >= 0 {
		afterScope := trimmed[idx+2:]
		if isIdentifierPrefix(afterScope) {
			scopeExpr := scopeExprBeforeDoubleColon(trimmed[:idx])
			return CompletionContext{Kind: CtxStaticAccess, Prefix: afterScope, ObjectExpr: scopeExpr}
		}
	}

	if dollar := strings.LastIndexByte(trimmed, '$'); dollar >= 0 {
		rest := trimmed[dollar+1:]
		if isIdentifierPrefix(rest) && !strings.ContainsAny(rest, " \t(){}[];,") {
			return CompletionContext{Kind: CtxVariable, Prefix: rest}
		}
	}

	if node != nil && ancestorOfKind(node, "namespace_use_declaration", "namespace_use_clause") != nil {
		return CompletionContext{Kind: CtxUseStatement, Prefix: trailingIdentifier(trimmed)}
	}

	if word := trailingIdentifierWithNamespace(trimmed); strings.Contains(word, `\`) {
		return CompletionContext{Kind: CtxNamespace, Prefix: word}
	}

	word := trailingIdentifier(trimmed)
	if word != "" {
		return CompletionContext{Kind: CtxFree, Prefix: word}
	}
	return CompletionContext{Kind: CtxNone}
}

func lastArrowIndex(s string) int {
	return strings.LastIndex(s, "->")
}

func isIdentifierPrefix(s string) bool {
	for _, r := range s {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

func trailingIdentifier(s string) string {
	i := len(s)
	for i > 0 {
		r := s[i-1]
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			i--
			continue
		}
		break
	}
	return s[i:]
}

func trailingIdentifierWithNamespace(s string) string {
	i := len(s)
	for i > 0 {
		r := s[i-1]
		if r == '_' || r == '\\' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			i--
			continue
		}
		break
	}
	return s[i:]
}

// objectExprBeforeArrow extracts the identifier/variable immediately
// preceding `->`, falling back to the nearest enclosing member_* object
// field, else `$this`, per spec §4.7 rule 1.
func objectExprBeforeArrow(before string, node *sitter.Node, content []byte) string {
	before = strings.TrimRight(before, " \t")
	i := len(before)
	for i > 0 {
		r := before[i-1]
		if r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			i--
			continue
		}
		break
	}
	if expr := before[i:]; expr != "" {
		return expr
	}
	if node != nil {
		if member := ancestorOfKind(node, "member_access_expression", "member_call_expression"); member != nil {
			if obj := member.ChildByFieldName("object"); obj != nil {
				return nodeText(obj, content)
			}
		}
	}
	return "$this"
}

func scopeExprBeforeDoubleColon(before string) string {
	before = strings.TrimRight(before, " \t")
	i := len(before)
	for i > 0 {
		r := before[i-1]
		if r == '_' || r == '$' || r == '\\' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			i--
			continue
		}
		break
	}
	return before[i:]
}

// CompletionItemKind mirrors the subset of LSP CompletionItemKind values
// this server emits, decoupled from the wire protocol package.
type CompletionItemKind int

const (
	CIKindClass CompletionItemKind = iota + 1
	CIKindInterface
	CIKindMethod
	CIKindProperty
	CIKindConstant
	CIKindVariable
	CIKindFunction
	CIKindKeyword
	CIKindEnumMember
)

// CompletionItem is one completion candidate, independent of LSP wire
// shape; C12 translates to protocol.CompletionItem.
type CompletionItem struct {
	Label  string
	Kind   CompletionItemKind
	Detail string
	Data   string // the candidate's FQN, echoed back on the resolve request
}

const completionSearchCap = 200

// GenerateCompletionItems implements spec §4.7's item-generation rules for
// a detected context. localVars (from resolver.go's CollectLocalVariables)
// is only consulted for CtxVariable; enclosingClassFQN is consulted for
// CtxVariable (to offer $this) and for member/static access (to resolve
// $this, self and static).
func GenerateCompletionItems(ctx CompletionContext, index *WorkspaceIndex, resolver *Resolver, fs *FileSymbols, enclosingClassFQN string, localVars []ParamInfo) []CompletionItem {
	switch ctx.Kind {
	case CtxMemberAccess:
		return memberAccessItems(ctx, index, fs, enclosingClassFQN, false)
	case CtxStaticAccess:
		return memberAccessItems(ctx, index, fs, enclosingClassFQN, true)
	case CtxVariable:
		return variableItems(ctx, localVars, enclosingClassFQN != "")
	case CtxNamespace, CtxUseStatement:
		return namespacePrefixItems(ctx, index)
	case CtxFree:
		return freeItems(ctx, index)
	default:
		return nil
	}
}

func memberAccessItems(ctx CompletionContext, index *WorkspaceIndex, fs *FileSymbols, enclosingClassFQN string, includeStatics bool) []CompletionItem {
	classFQN := ctx.ClassFQN
	if classFQN == "" {
		classFQN = resolveObjectExprStatic(ctx.ObjectExpr, fs, enclosingClassFQN)
	}
	if classFQN == "" || index == nil {
		return nil
	}
	var items []CompletionItem
	for _, m := range index.GetAllMembersIncludingInherited(classFQN) {
		if !includeStatics && m.Modifiers.Static {
			continue
		}
		if ctx.Prefix != "" && !strings.HasPrefix(strings.ToLower(m.Name), strings.ToLower(ctx.Prefix)) {
			continue
		}
		items = append(items, CompletionItem{Label: m.Name, Kind: completionKindForMember(m), Detail: memberDetail(m), Data: m.FQN})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return items
}

func completionKindForMember(m *SymbolInfo) CompletionItemKind {
	switch m.Kind {
	case KindMethod:
		return CIKindMethod
	case KindProperty:
		return CIKindProperty
	case KindClassConstant:
		return CIKindConstant
	case KindEnumCase:
		return CIKindEnumMember
	default:
		return CIKindProperty
	}
}

func memberDetail(m *SymbolInfo) string {
	if m.Signature != nil {
		return renderSignature(m.Name, *m.Signature)
	}
	return m.Name
}

func renderSignature(name string, sig Signature) string {
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

// resolveObjectExprStatic is a best-effort fallback when the caller hasn't
// already inferred ctx.ClassFQN: `$this`, `self` and `static` map to the
// enclosing class, and a bare class name (e.g. the `Counter` of
// `Counter::`) is resolved through the file's namespace and use
// statements. Other `$variables` are not inferred here and yield "".
func resolveObjectExprStatic(expr string, fs *FileSymbols, enclosingClassFQN string) string {
	switch {
	case expr == "$this" || expr == "self" || expr == "static":
		return enclosingClassFQN
	case expr == "" || strings.HasPrefix(expr, "$") || fs == nil:
		return ""
	}
	return ResolveClassName(expr, fs.Namespace, fs.UseStatements)
}

func variableItems(ctx CompletionContext, localVars []ParamInfo, hasEnclosingClass bool) []CompletionItem {
	var items []CompletionItem
	for _, p := range localVars {
		if ctx.Prefix != "" && !strings.HasPrefix(strings.ToLower(p.Name), strings.ToLower(ctx.Prefix)) {
			continue
		}
		detail := "$" + p.Name
		if p.TypeInfo != nil {
			detail = p.TypeInfo.Render() + " " + detail
		}
		items = append(items, CompletionItem{Label: p.Name, Kind: CIKindVariable, Detail: detail})
	}
	if hasEnclosingClass && strings.HasPrefix("this", strings.ToLower(ctx.Prefix)) {
		items = append(items, CompletionItem{Label: "this", Kind: CIKindVariable, Detail: "$this"})
	}
	return items
}

func namespacePrefixItems(ctx CompletionContext, index *WorkspaceIndex) []CompletionItem {
	if index == nil {
		return nil
	}
	prefix := strings.ToLower(ctx.Prefix)
	var items []CompletionItem
	for _, sym := range index.Search("") {
		if !sym.Kind.IsTypeKind() {
			continue
		}
		if prefix != "" && !strings.Contains(strings.ToLower(sym.FQN), prefix) && !strings.HasPrefix(strings.ToLower(sym.Name), prefix) {
			continue
		}
		items = append(items, CompletionItem{Label: sym.Name, Kind: typeCompletionKind(sym.Kind), Detail: sym.FQN, Data: sym.FQN})
		if len(items) >= completionSearchCap {
			break
		}
	}
	return items
}

func typeCompletionKind(k PhpSymbolKind) CompletionItemKind {
	if k == KindInterface {
		return CIKindInterface
	}
	return CIKindClass
}

func freeItems(ctx CompletionContext, index *WorkspaceIndex) []CompletionItem {
	var items []CompletionItem
	prefix := strings.ToLower(ctx.Prefix)
	for _, kw := range phpKeywords {
		if strings.HasPrefix(kw, prefix) {
			items = append(items, CompletionItem{Label: kw, Kind: CIKindKeyword})
		}
	}
	if index != nil {
		for _, sym := range index.Search(ctx.Prefix) {
			var kind CompletionItemKind
			switch {
			case sym.Kind.IsTypeKind():
				kind = typeCompletionKind(sym.Kind)
			case sym.Kind == KindFunction:
				kind = CIKindFunction
			case sym.Kind == KindGlobalConstant:
				kind = CIKindConstant
			default:
				continue
			}
			items = append(items, CompletionItem{Label: sym.Name, Kind: kind, Detail: sym.FQN, Data: sym.FQN})
			if len(items) >= completionSearchCap {
				break
			}
		}
	}
	return items
}

// ResolveCompletionItem implements spec §4.7's resolve stage: re-read the
// candidate's symbol by its FQN (data field) and render documentation
// from its Signature and PhpDoc.
func ResolveCompletionItem(index *WorkspaceIndex, kind CompletionItemKind, data string) (detail, documentation string) {
	if index == nil || data == "" {
		return "", ""
	}
	var sym *SymbolInfo
	switch kind {
	case CIKindClass, CIKindInterface:
		sym = index.ResolveFQN(data)
	case CIKindFunction:
		sym = index.ResolveFunction(data)
	case CIKindConstant:
		sym = index.ResolveConstant(data)
		if sym == nil {
			sym = index.ResolveFQN(data) // fall through in case data is a class constant FQN
		}
	case CIKindMethod, CIKindProperty, CIKindEnumMember:
		idx := strings.LastIndex(data, "::")
		if idx >= 0 {
			sym = index.ResolveMember(data[:idx], strings.TrimPrefix(data[idx+2:], "$"))
		}
	}
	if sym == nil {
		return "", ""
	}
	if sym.Signature != nil {
		detail = renderSignature(sym.Name, *sym.Signature)
	} else {
		detail = sym.FQN
	}
	if sym.Doc != nil {
		documentation = sym.Doc.Summary
	}
	return detail, documentation
}
