package phplsp

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ExtractFileSymbols walks a parsed PHP CST and produces a FileSymbols
// digest, per SPEC_FULL.md C4 / spec.md §4.3. Grounded on the teacher's
// internal/php/parser.go (GetClassesOfFileWithParser, extractMembersFromClass)
// generalized from Shopware-specific class-only extraction to the full
// namespace/use/function/const/enum surface the spec requires.
func ExtractFileSymbols(root *sitter.Node, content []byte, uri string) *FileSymbols {
	fs := &FileSymbols{URI: uri}
	if root == nil {
		return fs
	}
	if hasErrorDescendant(root) {
		fs.HasSyntaxError = true
	}
	w := &extractWalker{content: content, uri: uri, fs: fs}
	w.walkStatements(root, "")
	return fs
}

func hasErrorDescendant(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	if node.IsError() || node.IsMissing() {
		return true
	}
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		if hasErrorDescendant(node.Child(i)) {
			return true
		}
	}
	return false
}

type extractWalker struct {
	content []byte
	uri     string
	fs      *FileSymbols
}

// walkStatements iterates one statement-list level (program body or a
// braced namespace body), tracking the namespace active at each statement
// per the Open Question resolution in SPEC_FULL.md §9 (namespace stack,
// not a single field).
func (w *extractWalker) walkStatements(node *sitter.Node, ns string) {
	current := ns
	for _, child := range namedChildren(node) {
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "namespace_definition":
			name := w.namespaceName(child)
			if body := child.ChildByFieldName("body"); body != nil {
				w.fs.Namespace = name
				w.walkStatements(body, name)
			} else {
				current = name
				w.fs.Namespace = name
			}
		case "namespace_use_declaration":
			w.extractUseDeclaration(child, current)
		case "class_declaration":
			w.extractClassLike(child, current, KindClass)
		case "interface_declaration":
			w.extractClassLike(child, current, KindInterface)
		case "trait_declaration":
			w.extractClassLike(child, current, KindTrait)
		case "enum_declaration":
			w.extractClassLike(child, current, KindEnum)
		case "function_definition":
			w.extractFunction(child, current)
		case "const_declaration":
			w.extractGlobalConstants(child, current)
		}
	}
}

func (w *extractWalker) namespaceName(node *sitter.Node) string {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = directChildOfKind(node, "namespace_name")
	}
	return nodeText(nameNode, w.content)
}

// --- use statements ---------------------------------------------------

func (w *extractWalker) extractUseDeclaration(node *sitter.Node, ns string) {
	outerKind := useDeclKind(node, w.content)

	var group *sitter.Node
	for _, child := range namedChildren(node) {
		if child.Kind() == "namespace_use_group" {
			group = child
			break
		}
	}

	if group != nil {
		// The group-use prefix is the qualified_name/namespace_name
		// appearing before the namespace_use_group child.
		var prefix string
		for _, child := range namedChildren(node) {
			if child == group {
				break
			}
			if child.Kind() == "qualified_name" || child.Kind() == "namespace_name" || child.Kind() == "name" {
				prefix = nodeText(child, w.content)
			}
		}
		for _, clause := range namedChildren(group) {
			if clause.Kind() != "namespace_use_clause" {
				continue
			}
			w.emitUseClause(clause, ns, prefix, useClauseKind(clause, w.content, outerKind))
		}
		return
	}

	for _, clause := range namedChildren(node) {
		if clause.Kind() != "namespace_use_clause" {
			continue
		}
		w.emitUseClause(clause, ns, "", useClauseKind(clause, w.content, outerKind))
	}
}

func (w *extractWalker) emitUseClause(clause *sitter.Node, ns, prefix string, kind UseStatementKind) {
	children := namedChildren(clause)
	if len(children) == 0 {
		return
	}
	name := nodeText(children[0], w.content)
	alias := ""
	if len(children) >= 2 {
		alias = nodeText(children[1], w.content)
	}
	fqn := name
	if prefix != "" {
		fqn = strings.TrimSuffix(prefix, `\`) + `\` + strings.TrimPrefix(name, `\`)
	}
	fqn = strings.TrimPrefix(fqn, `\`)
	w.fs.UseStatements = append(w.fs.UseStatements, UseStatement{
		FQN: fqn, Alias: alias, Kind: kind, Range: toRange(clause),
	})
}

// useDeclKind scans the declaration's own (non-group) children for a
// leading `function`/`const` keyword token, stopping once the group body
// (or clause list) begins.
func useDeclKind(node *sitter.Node, content []byte) UseStatementKind {
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		c := node.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "function":
			return UseFunction
		case "const":
			return UseConst
		case "namespace_use_clause", "namespace_use_group":
			return UseClass
		}
	}
	return UseClass
}

// useClauseKind checks a single group-use clause for its own
// function/const override, falling back to the declaration-level kind.
func useClauseKind(clause *sitter.Node, content []byte, fallback UseStatementKind) UseStatementKind {
	count := clause.ChildCount()
	for i := uint(0); i < count; i++ {
		c := clause.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "function":
			return UseFunction
		case "const":
			return UseConst
		}
	}
	return fallback
}

// --- class-like declarations -------------------------------------------

func (w *extractWalker) extractClassLike(node *sitter.Node, ns string, kind PhpSymbolKind) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	shortName := nodeText(nameNode, w.content)
	fqn := joinFQN(ns, shortName)

	sym := SymbolInfo{
		Name: shortName, FQN: fqn, Kind: kind, URI: w.uri,
		Range: toRange(node), SelectionRange: toRange(nameNode),
		Modifiers:  classModifiers(node, w.content),
		DocComment: precedingCommentText(node, w.content),
	}
	if sym.DocComment != "" {
		sym.Doc = ParsePhpDoc(sym.DocComment)
		sym.Modifiers.Deprecated = sym.Doc.HasDeprecated
	}

	if base := node.ChildByFieldName("base_clause"); base != nil {
		for _, n := range namedChildren(base) {
			if n.Kind() == "name" || n.Kind() == "qualified_name" {
				sym.Extends = append(sym.Extends, ResolveClassName(nodeText(n, w.content), ns, w.fs.UseStatements))
			}
		}
	} else if base := directChildOfKind(node, "base_clause"); base != nil {
		for _, n := range namedChildren(base) {
			if n.Kind() == "name" || n.Kind() == "qualified_name" {
				sym.Extends = append(sym.Extends, ResolveClassName(nodeText(n, w.content), ns, w.fs.UseStatements))
			}
		}
	}
	if iface := node.ChildByFieldName("interfaces"); iface != nil {
		w.collectInterfaceNames(iface, ns, &sym)
	} else if iface := directChildOfKind(node, "class_interface_clause"); iface != nil {
		w.collectInterfaceNames(iface, ns, &sym)
	}

	w.fs.Symbols = append(w.fs.Symbols, sym)

	body := node.ChildByFieldName("body")
	if body == nil {
		body = firstNodeOfKind(node, "declaration_list")
	}
	if body != nil {
		w.extractMembers(body, fqn, ns, kind)
	}
}

func (w *extractWalker) collectInterfaceNames(iface *sitter.Node, ns string, sym *SymbolInfo) {
	for _, n := range namedChildren(iface) {
		if n.Kind() == "name" || n.Kind() == "qualified_name" {
			sym.Implements = append(sym.Implements, ResolveClassName(nodeText(n, w.content), ns, w.fs.UseStatements))
		}
	}
}

func classModifiers(node *sitter.Node, content []byte) Modifiers {
	var m Modifiers
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		c := node.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "abstract_modifier":
			m.Abstract = true
		case "final_modifier":
			m.Final = true
		}
	}
	return m
}

// extractMembers walks a class/interface/trait/enum body, emitting method,
// property, class-constant and enum-case symbols.
func (w *extractWalker) extractMembers(body *sitter.Node, ownerFQN, ns string, ownerKind PhpSymbolKind) {
	for _, child := range namedChildren(body) {
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "property_declaration":
			w.extractProperty(child, ownerFQN, ns)
		case "method_declaration":
			w.extractMethod(child, ownerFQN, ns)
		case "const_declaration":
			w.extractClassConstants(child, ownerFQN)
		case "enum_case":
			w.extractEnumCase(child, ownerFQN)
		}
	}
}

// memberModifiers scans a member declaration's direct children for
// visibility/static/abstract/final/readonly modifier tokens.
func memberModifiers(node *sitter.Node, content []byte) (Visibility, Modifiers) {
	vis := Public
	var mods Modifiers
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		c := node.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "visibility_modifier":
			switch nodeText(c, content) {
			case "protected":
				vis = Protected
			case "private":
				vis = Private
			default:
				vis = Public
			}
		case "static_modifier":
			mods.Static = true
		case "abstract_modifier":
			mods.Abstract = true
		case "final_modifier":
			mods.Final = true
		case "readonly_modifier":
			mods.Readonly = true
		}
	}
	return vis, mods
}

func (w *extractWalker) extractProperty(node *sitter.Node, ownerFQN, ns string) {
	vis, mods := memberModifiers(node, w.content)
	doc := precedingCommentText(node, w.content)
	var parsedDoc *PhpDoc
	if doc != "" {
		parsedDoc = ParsePhpDoc(doc)
		mods.Deprecated = parsedDoc.HasDeprecated
	}
	var typeInfo TypeInfo
	for _, c := range namedChildren(node) {
		if c.Kind() == "property_element" {
			continue
		}
		if isTypeNodeKind(c.Kind()) {
			typeInfo = typeInfoFromNode(c, w.content)
		}
	}

	for _, el := range namedChildren(node) {
		if el.Kind() != "property_element" {
			continue
		}
		varNode := directChildOfKind(el, "variable_name")
		if varNode == nil {
			continue
		}
		name := strings.TrimPrefix(nodeText(varNode, w.content), "$")
		sym := SymbolInfo{
			Name: name, FQN: ownerFQN + "::$" + name, Kind: KindProperty, URI: w.uri,
			Range: toRange(node), SelectionRange: toRange(varNode),
			Visibility: vis, Modifiers: mods, ParentFQN: ownerFQN,
			DocComment: doc, Doc: parsedDoc,
			Signature: &Signature{ReturnType: typeInfo},
		}
		w.fs.Symbols = append(w.fs.Symbols, sym)
	}
}

func (w *extractWalker) extractMethod(node *sitter.Node, ownerFQN, ns string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, w.content)
	vis, mods := memberModifiers(node, w.content)
	doc := precedingCommentText(node, w.content)
	var parsedDoc *PhpDoc
	if doc != "" {
		parsedDoc = ParsePhpDoc(doc)
		mods.Deprecated = parsedDoc.HasDeprecated
	}

	sig := &Signature{}
	if retType := node.ChildByFieldName("return_type"); retType != nil {
		sig.ReturnType = typeInfoFromNode(retType, w.content)
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		sig.Params = w.extractParams(params)
		if name == "__construct" {
			w.emitPromotedProperties(sig.Params, ownerFQN)
		}
	}

	sym := SymbolInfo{
		Name: name, FQN: ownerFQN + "::" + name, Kind: KindMethod, URI: w.uri,
		Range: toRange(node), SelectionRange: toRange(nameNode),
		Visibility: vis, Modifiers: mods, ParentFQN: ownerFQN,
		DocComment: doc, Doc: parsedDoc, Signature: sig,
	}
	w.fs.Symbols = append(w.fs.Symbols, sym)
}

func (w *extractWalker) emitPromotedProperties(params []ParamInfo, ownerFQN string) {
	for _, p := range params {
		if !p.IsPromoted {
			continue
		}
		w.fs.Symbols = append(w.fs.Symbols, SymbolInfo{
			Name: p.Name, FQN: ownerFQN + "::$" + p.Name, Kind: KindProperty,
			URI: w.uri, ParentFQN: ownerFQN, Visibility: p.Visibility,
			Signature: &Signature{ReturnType: p.TypeInfo},
		})
	}
}

func (w *extractWalker) extractParams(paramList *sitter.Node) []ParamInfo {
	var params []ParamInfo
	for _, p := range namedChildren(paramList) {
		switch p.Kind() {
		case "simple_parameter", "variadic_parameter", "property_promotion_parameter":
			params = append(params, w.extractOneParam(p))
		}
	}
	return params
}

func (w *extractWalker) extractOneParam(p *sitter.Node) ParamInfo {
	var info ParamInfo
	info.IsVariadic = p.Kind() == "variadic_parameter"
	info.IsPromoted = p.Kind() == "property_promotion_parameter"
	if info.IsPromoted {
		info.Visibility, _ = memberModifiers(p, w.content)
	}
	varNode := p.ChildByFieldName("name")
	if varNode == nil {
		varNode = directChildOfKind(p, "variable_name")
	}
	info.Name = strings.TrimPrefix(nodeText(varNode, w.content), "$")

	if typeNode := p.ChildByFieldName("type"); typeNode != nil {
		info.TypeInfo = typeInfoFromNode(typeNode, w.content)
	}
	if def := p.ChildByFieldName("default_value"); def != nil {
		info.DefaultValue = nodeText(def, w.content)
	}
	count := p.ChildCount()
	for i := uint(0); i < count; i++ {
		c := p.Child(i)
		if c != nil && c.Kind() == "&" {
			info.IsByRef = true
		}
	}
	return info
}

func (w *extractWalker) extractClassConstants(node *sitter.Node, ownerFQN string) {
	doc := precedingCommentText(node, w.content)
	var parsedDoc *PhpDoc
	if doc != "" {
		parsedDoc = ParsePhpDoc(doc)
	}
	vis, mods := memberModifiers(node, w.content)
	for _, child := range namedChildren(node) {
		if child.Kind() != "const_element" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			nameNode = directChildOfKind(child, "name")
		}
		name := nodeText(nameNode, w.content)
		w.fs.Symbols = append(w.fs.Symbols, SymbolInfo{
			Name: name, FQN: ownerFQN + "::" + name, Kind: KindClassConstant, URI: w.uri,
			Range: toRange(node), SelectionRange: toRange(nameNode),
			Visibility: vis, Modifiers: mods, ParentFQN: ownerFQN,
			DocComment: doc, Doc: parsedDoc,
		})
	}
}

func (w *extractWalker) extractEnumCase(node *sitter.Node, ownerFQN string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = directChildOfKind(node, "name")
	}
	name := nodeText(nameNode, w.content)
	w.fs.Symbols = append(w.fs.Symbols, SymbolInfo{
		Name: name, FQN: ownerFQN + "::" + name, Kind: KindEnumCase, URI: w.uri,
		Range: toRange(node), SelectionRange: toRange(nameNode), ParentFQN: ownerFQN,
	})
}

// --- top-level functions / constants ------------------------------------

func (w *extractWalker) extractFunction(node *sitter.Node, ns string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, w.content)
	fqn := joinFQN(ns, name)
	doc := precedingCommentText(node, w.content)
	var parsedDoc *PhpDoc
	var mods Modifiers
	if doc != "" {
		parsedDoc = ParsePhpDoc(doc)
		mods.Deprecated = parsedDoc.HasDeprecated
	}

	sig := &Signature{}
	if retType := node.ChildByFieldName("return_type"); retType != nil {
		sig.ReturnType = typeInfoFromNode(retType, w.content)
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		sig.Params = w.extractParams(params)
	}

	w.fs.Symbols = append(w.fs.Symbols, SymbolInfo{
		Name: name, FQN: fqn, Kind: KindFunction, URI: w.uri,
		Range: toRange(node), SelectionRange: toRange(nameNode),
		DocComment: doc, Doc: parsedDoc, Signature: sig, Modifiers: mods,
	})
}

func (w *extractWalker) extractGlobalConstants(node *sitter.Node, ns string) {
	doc := precedingCommentText(node, w.content)
	var parsedDoc *PhpDoc
	if doc != "" {
		parsedDoc = ParsePhpDoc(doc)
	}
	for _, child := range namedChildren(node) {
		if child.Kind() != "const_element" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			nameNode = directChildOfKind(child, "name")
		}
		name := nodeText(nameNode, w.content)
		w.fs.Symbols = append(w.fs.Symbols, SymbolInfo{
			Name: name, FQN: joinFQN(ns, name), Kind: KindGlobalConstant, URI: w.uri,
			Range: toRange(node), SelectionRange: toRange(nameNode),
			DocComment: doc, Doc: parsedDoc,
		})
	}
}

// --- shared helpers -------------------------------------------------

func joinFQN(ns, name string) string {
	if ns == "" {
		return name
	}
	return strings.TrimSuffix(ns, `\`) + `\` + name
}

func isTypeNodeKind(kind string) bool {
	switch kind {
	case "named_type", "optional_type", "union_type", "intersection_type", "primitive_type", "name", "qualified_name":
		return true
	default:
		return false
	}
}

// typeInfoFromNode renders a type-annotation CST subtree to a TypeInfo,
// handling nullable/union/intersection wrapping recursively.
func typeInfoFromNode(node *sitter.Node, content []byte) TypeInfo {
	if node == nil {
		return nil
	}
	switch node.Kind() {
	case "optional_type":
		inner := namedChildren(node)
		if len(inner) == 0 {
			return nil
		}
		return NullableType{Inner: typeInfoFromNode(inner[0], content)}
	case "union_type":
		var members []TypeInfo
		for _, c := range namedChildren(node) {
			members = append(members, typeInfoFromNode(c, content))
		}
		return UnionType{Members: members}
	case "intersection_type":
		var members []TypeInfo
		for _, c := range namedChildren(node) {
			members = append(members, typeInfoFromNode(c, content))
		}
		return IntersectionType{Members: members}
	default:
		return ParseTypeString(nodeText(node, content))
	}
}
