package phplsp

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// RefKind classifies what a resolved cursor position refers to.
type RefKind int

const (
	RefUnknown RefKind = iota
	RefClassName
	RefFunctionCall
	RefMethodCall
	RefPropertyAccess
	RefStaticPropertyAccess
	RefClassConstant
	RefGlobalConstant
	RefVariable
	RefNamespaceName
)

// SymbolAtPosition is the result of resolving a cursor position, per spec §4.5.
type SymbolAtPosition struct {
	FQN        string
	Name       string
	RefKind    RefKind
	ObjectExpr string
	Range      Range
}

var specialClassWords = map[string]bool{"self": true, "static": true, "parent": true, "$this": true}

// ResolveClassName applies spec §4.5's "Class-name resolution" algorithm.
// Shared by the extractor (C4, for extends/implements at emit time) and the
// resolver (C5, for ClassName/MethodCall/etc. references) since both apply
// the identical alias/namespace-prefix rule.
func ResolveClassName(name, namespace string, uses []UseStatement) string {
	if specialClassWords[name] {
		return name
	}
	if strings.HasPrefix(name, `\`) {
		return strings.TrimPrefix(name, `\`)
	}
	segs := strings.SplitN(name, `\`, 2)
	first := segs[0]
	for _, u := range uses {
		if u.Kind != UseClass {
			continue
		}
		if u.ShortName() == first {
			if len(segs) == 1 {
				return u.FQN
			}
			return strings.TrimSuffix(u.FQN, `\`) + `\` + segs[1]
		}
	}
	return joinFQN(namespace, name)
}

// resolveNameByKind applies the function/constant analogue of
// ResolveClassName, consulting use-statements of the matching kind.
func resolveNameByKind(name, namespace string, uses []UseStatement, kind UseStatementKind) string {
	if strings.HasPrefix(name, `\`) {
		return strings.TrimPrefix(name, `\`)
	}
	if strings.Contains(name, `\`) {
		// Already namespace-qualified (but not rooted): PHP resolves this
		// relative to use-imports of the first segment, same as classes.
		segs := strings.SplitN(name, `\`, 2)
		for _, u := range uses {
			if u.Kind == UseClass && u.ShortName() == segs[0] {
				return strings.TrimSuffix(u.FQN, `\`) + `\` + segs[1]
			}
		}
		return joinFQN(namespace, name)
	}
	for _, u := range uses {
		if u.Kind == kind && u.ShortName() == name {
			return u.FQN
		}
	}
	return joinFQN(namespace, name)
}

// ResolveFunctionName applies spec §4.5's function-name resolution rule.
func ResolveFunctionName(name, namespace string, uses []UseStatement) string {
	return resolveNameByKind(name, namespace, uses, UseFunction)
}

// ResolveConstantName applies spec §4.5's constant-name resolution rule.
func ResolveConstantName(name, namespace string, uses []UseStatement) string {
	return resolveNameByKind(name, namespace, uses, UseConst)
}

// Resolver resolves cursor positions against one file's CST + digest and
// the workspace index (for object-type inference across class hierarchies).
type Resolver struct {
	Index *WorkspaceIndex
}

func NewResolver(index *WorkspaceIndex) *Resolver {
	return &Resolver{Index: index}
}

// ResolveAt implements spec §4.5: given a cursor point, find the deepest
// named node, decide the reference kind from the parent CST node kind, and
// compute the canonical FQN.
func (r *Resolver) ResolveAt(tree *sitter.Tree, content []byte, line, col int, fs *FileSymbols, enclosingClassFQN string) *SymbolAtPosition {
	if tree == nil {
		return nil
	}
	root := tree.RootNode()
	point := sitter.Point{Row: uint(line), Column: uint(col)}
	node := root.NamedDescendantForPointRange(point, point)
	if node == nil {
		return nil
	}
	if v := ancestorOrSelfOfKind(node, "variable_name"); v != nil {
		node = v
	}
	if node.Kind() == "comment" {
		return nil
	}

	parent := node.Parent()
	if parent == nil {
		return nil
	}

	ns := fs.Namespace
	uses := fs.UseStatements

	switch parent.Kind() {
	case "member_access_expression":
		if sameNode(parent.ChildByFieldName("name"), node) {
			obj := parent.ChildByFieldName("object")
			objType := r.inferObjectType(obj, content, node, fs, enclosingClassFQN)
			name := nodeText(node, content)
			fqn := ""
			if objType != "" {
				fqn = objType + "::$" + name
			}
			return &SymbolAtPosition{FQN: fqn, Name: name, RefKind: RefPropertyAccess, ObjectExpr: nodeText(obj, content), Range: toRange(node)}
		}
	case "member_call_expression":
		if sameNode(parent.ChildByFieldName("name"), node) {
			obj := parent.ChildByFieldName("object")
			objType := r.inferObjectType(obj, content, node, fs, enclosingClassFQN)
			name := nodeText(node, content)
			fqn := ""
			if objType != "" {
				fqn = objType + "::" + name
			}
			return &SymbolAtPosition{FQN: fqn, Name: name, RefKind: RefMethodCall, ObjectExpr: nodeText(obj, content), Range: toRange(node)}
		}
	case "scoped_call_expression":
		if sameNode(parent.ChildByFieldName("name"), node) {
			scopeFQN := r.resolveScopeExpr(parent.ChildByFieldName("scope"), content, ns, uses, enclosingClassFQN)
			name := nodeText(node, content)
			return &SymbolAtPosition{FQN: scopeFQN + "::" + name, Name: name, RefKind: RefMethodCall, Range: toRange(node)}
		}
	case "scoped_property_access_expression":
		name := nodeText(node, content)
		scopeFQN := r.resolveScopeExpr(parent.ChildByFieldName("scope"), content, ns, uses, enclosingClassFQN)
		if strings.HasPrefix(name, "$") {
			return &SymbolAtPosition{FQN: scopeFQN + "::$" + strings.TrimPrefix(name, "$"), Name: strings.TrimPrefix(name, "$"), RefKind: RefStaticPropertyAccess, Range: toRange(node)}
		}
		return &SymbolAtPosition{FQN: scopeFQN + "::" + name, Name: name, RefKind: RefClassConstant, Range: toRange(node)}
	case "class_constant_access_expression":
		if sameNode(parent.ChildByFieldName("name"), node) {
			scopeFQN := r.resolveScopeExpr(parent.ChildByFieldName("class"), content, ns, uses, enclosingClassFQN)
			name := nodeText(node, content)
			return &SymbolAtPosition{FQN: scopeFQN + "::" + name, Name: name, RefKind: RefClassConstant, Range: toRange(node)}
		}
	case "function_call_expression":
		if sameNode(parent.ChildByFieldName("function"), node) {
			name := nodeText(node, content)
			return &SymbolAtPosition{FQN: ResolveFunctionName(name, ns, uses), Name: name, RefKind: RefFunctionCall, Range: toRange(node)}
		}
	case "object_creation_expression":
		if sameNode(parent.ChildByFieldName("class"), node) || node.Kind() == "name" || node.Kind() == "qualified_name" {
			name := nodeText(node, content)
			return &SymbolAtPosition{FQN: ResolveClassName(name, ns, uses), Name: name, RefKind: RefClassName, Range: toRange(node)}
		}
	case "named_type", "optional_type", "union_type", "intersection_type", "base_clause", "class_interface_clause", "type_list":
		if node.Kind() == "name" || node.Kind() == "qualified_name" {
			name := nodeText(node, content)
			return &SymbolAtPosition{FQN: ResolveClassName(name, ns, uses), Name: name, RefKind: RefClassName, Range: toRange(node)}
		}
	}

	if node.Kind() == "variable_name" {
		name := nodeText(node, content)
		return &SymbolAtPosition{Name: strings.TrimPrefix(name, "$"), RefKind: RefVariable, Range: toRange(node)}
	}

	// Declaration-header names (class/interface/trait/enum/function/method on their own name).
	if decl := parent; isDeclHeader(decl.Kind()) {
		name := nodeText(node, content)
		switch decl.Kind() {
		case "function_definition":
			return &SymbolAtPosition{FQN: joinFQN(ns, name), Name: name, RefKind: RefFunctionCall, Range: toRange(node)}
		case "method_declaration":
			return &SymbolAtPosition{FQN: enclosingClassFQN + "::" + name, Name: name, RefKind: RefMethodCall, Range: toRange(node)}
		}
		return &SymbolAtPosition{FQN: joinFQN(ns, name), Name: name, RefKind: RefClassName, Range: toRange(node)}
	}

	return nil
}

func isDeclHeader(kind string) bool {
	switch kind {
	case "class_declaration", "interface_declaration", "trait_declaration", "enum_declaration", "function_definition", "method_declaration":
		return true
	default:
		return false
	}
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	ra, rb := a.Range(), b.Range()
	return ra.StartByte == rb.StartByte && ra.EndByte == rb.EndByte
}

func ancestorOrSelfOfKind(node *sitter.Node, kind string) *sitter.Node {
	for current := node; current != nil; current = current.Parent() {
		if current.Kind() == kind {
			return current
		}
		// variable_name spans are shallow; don't walk past a non-ancestor boundary.
		if current.Kind() == "member_access_expression" || current.Kind() == "member_call_expression" {
			break
		}
	}
	return nil
}

// resolveScopeExpr resolves `self`/`static`/`parent`/`$this`/ClassName
// scope expressions used by scoped_call_expression etc.
func (r *Resolver) resolveScopeExpr(scope *sitter.Node, content []byte, ns string, uses []UseStatement, enclosingClassFQN string) string {
	if scope == nil {
		return ""
	}
	text := nodeText(scope, content)
	switch text {
	case "self", "static":
		return enclosingClassFQN
	case "parent":
		if r.Index != nil {
			if sym := r.Index.ResolveFQN(enclosingClassFQN); sym != nil && len(sym.Extends) > 0 {
				return sym.Extends[0]
			}
		}
		return enclosingClassFQN
	case "$this":
		return enclosingClassFQN
	default:
		return ResolveClassName(text, ns, uses)
	}
}

// inferObjectType implements spec §4.5's object-type inference: new Foo(),
// $this, and $var via typed-parameter/PHPDoc/assignment scanning.
func (r *Resolver) inferObjectType(obj *sitter.Node, content []byte, cursorNode *sitter.Node, fs *FileSymbols, enclosingClassFQN string) string {
	if obj == nil {
		return ""
	}
	text := nodeText(obj, content)
	if text == "$this" {
		return enclosingClassFQN
	}
	switch obj.Kind() {
	case "object_creation_expression":
		classNode := obj.ChildByFieldName("class")
		name := nodeText(classNode, content)
		return ResolveClassName(name, fs.Namespace, fs.UseStatements)
	case "parenthesized_expression":
		inner := namedChildren(obj)
		if len(inner) == 1 {
			return r.inferObjectType(inner[0], content, cursorNode, fs, enclosingClassFQN)
		}
	case "variable_name":
		return r.inferVariableType(obj, content, cursorNode, fs, enclosingClassFQN)
	}
	return ""
}

// inferVariableType implements the `$var` branch of spec §4.5's
// object-type inference: enclosing-scope parameter types, then PHPDoc @var
// and assignment scanning over statements strictly before the cursor byte.
func (r *Resolver) inferVariableType(varNode *sitter.Node, content []byte, cursorNode *sitter.Node, fs *FileSymbols, enclosingClassFQN string) string {
	varName := strings.TrimPrefix(nodeText(varNode, content), "$")
	scope := enclosingScope(varNode)
	if scope == nil {
		scope = varNode
		for scope.Parent() != nil {
			scope = scope.Parent()
		}
	}

	if params := scope.ChildByFieldName("parameters"); params != nil {
		for _, p := range namedChildren(params) {
			nameNode := p.ChildByFieldName("name")
			if nameNode == nil {
				nameNode = directChildOfKind(p, "variable_name")
			}
			if strings.TrimPrefix(nodeText(nameNode, content), "$") != varName {
				continue
			}
			if typeNode := p.ChildByFieldName("type"); typeNode != nil {
				t := typeInfoFromNode(typeNode, content)
				if t != nil && !IsBuiltinPrimitive(t.Render()) {
					return ResolveClassName(t.Render(), fs.Namespace, fs.UseStatements)
				}
			}
		}
	}

	cursorByte := cursorNode.Range().StartByte
	body := scope.ChildByFieldName("body")
	if scope.Kind() == "program" {
		body = scope
	}
	if body == nil {
		return ""
	}

	var bound string
	var pendingDocType string
	walkStatementsBefore(body, cursorByte, func(stmt *sitter.Node) {
		if c := leadingComment(stmt, content); c != "" {
			doc := ParsePhpDoc(c)
			if doc.VarType != "" {
				if doc.VarName == varName {
					bound = ResolveClassName(doc.VarType, fs.Namespace, fs.UseStatements)
				} else if doc.VarName == "" {
					pendingDocType = doc.VarType
				}
			}
		}
		if assignName, assignExpr, ok := assignmentTarget(stmt, content); ok && assignName == varName {
			if pendingDocType != "" {
				bound = ResolveClassName(pendingDocType, fs.Namespace, fs.UseStatements)
				pendingDocType = ""
				return
			}
			if t := r.inferObjectType(assignExpr, content, cursorNode, fs, enclosingClassFQN); t != "" {
				bound = t
			}
		}
	})
	return bound
}

// enclosingScope finds the innermost function/method/closure body
// containing node, or nil at the program root. inferVariableType then
// falls back to the program node itself and scans its top-level
// statements (there are no parameters to scan there).
func enclosingScope(node *sitter.Node) *sitter.Node {
	for current := node.Parent(); current != nil; current = current.Parent() {
		switch current.Kind() {
		case "function_definition", "method_declaration", "anonymous_function_creation_expression", "arrow_function":
			return current
		}
	}
	return nil
}

// walkStatementsBefore invokes fn for each top-level statement in body
// whose start byte is strictly before cursorByte, in source order.
func walkStatementsBefore(body *sitter.Node, cursorByte uint, fn func(stmt *sitter.Node)) {
	for _, stmt := range namedChildren(body) {
		if stmt.Range().StartByte >= cursorByte {
			return
		}
		fn(stmt)
	}
}

// leadingComment returns the raw PHPDoc text immediately preceding stmt, if any.
func leadingComment(stmt *sitter.Node, content []byte) string {
	return precedingCommentText(stmt, content)
}

// assignmentTarget recognizes `$var = <expr>;` expression statements and
// returns the bare variable name and RHS expression node.
func assignmentTarget(stmt *sitter.Node, content []byte) (string, *sitter.Node, bool) {
	expr := stmt
	if stmt.Kind() == "expression_statement" {
		children := namedChildren(stmt)
		if len(children) == 0 {
			return "", nil, false
		}
		expr = children[0]
	}
	if expr.Kind() != "assignment_expression" {
		return "", nil, false
	}
	left := expr.ChildByFieldName("left")
	right := expr.ChildByFieldName("right")
	if left == nil || right == nil || left.Kind() != "variable_name" {
		return "", nil, false
	}
	return strings.TrimPrefix(nodeText(left, content), "$"), right, true
}

// LocalVariableDefinition implements spec §4.5's "Local variable
// definition" rule for goto-definition on a variable: the nearest binding
// site among parameter name, assignment LHS, foreach key/value, catch
// variable, strictly before the cursor.
func LocalVariableDefinition(varNode *sitter.Node, content []byte) *sitter.Node {
	varName := strings.TrimPrefix(nodeText(varNode, content), "$")
	scope := enclosingScope(varNode)
	var best *sitter.Node
	cursorByte := varNode.Range().StartByte

	if scope != nil {
		if params := scope.ChildByFieldName("parameters"); params != nil {
			for _, p := range namedChildren(params) {
				nameNode := p.ChildByFieldName("name")
				if nameNode == nil {
					nameNode = directChildOfKind(p, "variable_name")
				}
				if strings.TrimPrefix(nodeText(nameNode, content), "$") == varName {
					best = nameNode
				}
			}
		}
		if body := scope.ChildByFieldName("body"); body != nil {
			scanBindingsBefore(body, varName, cursorByte, content, &best)
		}
	}
	return best
}

func scanBindingsBefore(node *sitter.Node, varName string, cursorByte uint, content []byte, best **sitter.Node) {
	for _, child := range namedChildren(node) {
		if child.Range().StartByte >= cursorByte {
			return
		}
		if name, _, ok := assignmentTarget(child, content); ok && name == varName {
			if lhsNode := findAssignmentLHSNode(child); lhsNode != nil {
				*best = lhsNode
			}
		}
		if child.Kind() == "foreach_statement" {
			if key := child.ChildByFieldName("key"); key != nil && keyMatches(key, varName, content) {
				*best = key
			}
			if val := child.ChildByFieldName("value"); val != nil && keyMatches(val, varName, content) {
				*best = val
			}
		}
		if child.Kind() == "catch_clause" {
			if v := child.ChildByFieldName("name"); v != nil && strings.TrimPrefix(nodeText(v, content), "$") == varName {
				*best = v
			}
		}
		// Recurse into nested blocks (if/while/foreach bodies, etc.) so
		// bindings inside control structures are still found.
		scanBindingsBefore(child, varName, cursorByte, content, best)
	}
}

func keyMatches(node *sitter.Node, varName string, content []byte) bool {
	return node.Kind() == "variable_name" && strings.TrimPrefix(nodeText(node, content), "$") == varName
}

func findAssignmentLHSNode(stmt *sitter.Node) *sitter.Node {
	expr := stmt
	if stmt.Kind() == "expression_statement" {
		children := namedChildren(stmt)
		if len(children) == 0 {
			return nil
		}
		expr = children[0]
	}
	if expr.Kind() != "assignment_expression" {
		return nil
	}
	return expr.ChildByFieldName("left")
}

// EnclosingClassFQN walks up from node to the nearest enclosing
// class/interface/trait/enum declaration and returns its FQN, or "" if node
// is not inside one. The orchestrator (C12) calls this once per request to
// supply ResolveAt/GenerateCompletionItems their enclosingClassFQN argument
// without re-walking the whole file the way the extractor's namespace-stack
// walk does at digest time.
func EnclosingClassFQN(node *sitter.Node, content []byte, ns string) string {
	decl := ancestorOfKind(node, "class_declaration", "interface_declaration", "trait_declaration", "enum_declaration")
	if decl == nil {
		return ""
	}
	nameNode := decl.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	return joinFQN(ns, nodeText(nameNode, content))
}

// EnclosingScopeNode returns the function/method/closure body node enclosing
// node (see enclosingScope), exported so the orchestrator can walk a local
// variable's full scope for rename (spec §4.6's in-file-only local variable
// reference rule) without re-implementing the function/method/closure CST
// kind list.
func EnclosingScopeNode(node *sitter.Node) *sitter.Node {
	return enclosingScope(node)
}

// CollectLocalVariables gathers the parameter names of the function/method
// scope enclosing node, plus every `$var = ...` assignment target seen
// before node's start byte within that scope's body, for completion's
// Variable context (spec §4.7). Duplicate names keep their first (nearest
// parameter, else earliest assignment) occurrence.
func CollectLocalVariables(node *sitter.Node, content []byte) []ParamInfo {
	scope := enclosingScope(node)
	if scope == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []ParamInfo

	paramList := scope.ChildByFieldName("parameters")
	for _, p := range namedChildren(paramList) {
		switch p.Kind() {
		case "simple_parameter", "variadic_parameter", "property_promotion_parameter":
		default:
			continue
		}
		varNode := p.ChildByFieldName("name")
		if varNode == nil {
			varNode = directChildOfKind(p, "variable_name")
		}
		name := strings.TrimPrefix(nodeText(varNode, content), "$")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		info := ParamInfo{Name: name}
		if typeNode := p.ChildByFieldName("type"); typeNode != nil {
			info.TypeInfo = typeInfoFromNode(typeNode, content)
		}
		out = append(out, info)
	}

	body := scope.ChildByFieldName("body")
	if body != nil {
		cursorByte := node.Range().StartByte
		walkStatementsBefore(body, cursorByte, func(stmt *sitter.Node) {
			if name, _, ok := assignmentTarget(stmt, content); ok && !seen[name] {
				seen[name] = true
				out = append(out, ParamInfo{Name: name})
			}
		})
	}
	return out
}
