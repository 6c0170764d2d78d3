package phplsp

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ReferenceSite is one occurrence of a symbol in source text, per spec
// §4.6. DefinitionSite is true when this occurrence is the declaration
// itself (name node of a class/function/method/property/etc.), so callers
// can separate "find references" (all sites) from "find implementations".
type ReferenceSite struct {
	URI            string
	Range          Range
	DefinitionSite bool
}

// FindReferences implements spec §4.6's per-kind reference rules for a
// single file's CST against a target FQN and kind. The server orchestrator
// (C12, internal/lsp/server.go) invokes this once per candidate file and
// concatenates results; this function itself only inspects one file.
func FindReferences(root *sitter.Node, content []byte, uri string, fs *FileSymbols, targetFQN string, kind PhpSymbolKind) []ReferenceSite {
	if root == nil {
		return nil
	}
	var sites []ReferenceSite
	ns := fs.Namespace
	uses := fs.UseStatements

	var enclosingClassFQN string
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		switch node.Kind() {
		case "class_declaration", "interface_declaration", "trait_declaration", "enum_declaration":
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				prevClass := enclosingClassFQN
				enclosingClassFQN = joinFQN(ns, nodeText(nameNode, content))
				if kind.IsTypeKind() && enclosingClassFQN == targetFQN {
					sites = append(sites, ReferenceSite{URI: uri, Range: toRange(nameNode), DefinitionSite: true})
				}
				if base := node.ChildByFieldName("base_clause"); base != nil {
					matchClassRefList(base, content, ns, uses, targetFQN, uri, &sites)
				}
				if iface := node.ChildByFieldName("interfaces"); iface != nil {
					matchClassRefList(iface, content, ns, uses, targetFQN, uri, &sites)
				}
				for _, c := range namedChildren(node) {
					walk(c)
				}
				enclosingClassFQN = prevClass
				return
			}
		case "function_definition":
			if kind == KindFunction {
				if nameNode := node.ChildByFieldName("name"); nameNode != nil && joinFQN(ns, nodeText(nameNode, content)) == targetFQN {
					sites = append(sites, ReferenceSite{URI: uri, Range: toRange(nameNode), DefinitionSite: true})
				}
			}
		case "method_declaration":
			if kind == KindMethod {
				if nameNode := node.ChildByFieldName("name"); nameNode != nil && enclosingClassFQN+"::"+nodeText(nameNode, content) == targetFQN {
					sites = append(sites, ReferenceSite{URI: uri, Range: toRange(nameNode), DefinitionSite: true})
				}
			}
		case "property_declaration":
			if kind == KindProperty {
				for _, el := range namedChildren(node) {
					if el.Kind() != "property_element" {
						continue
					}
					varNode := directChildOfKind(el, "variable_name")
					name := strings.TrimPrefix(nodeText(varNode, content), "$")
					if enclosingClassFQN+"::$"+name == targetFQN {
						sites = append(sites, ReferenceSite{URI: uri, Range: toRange(varNode), DefinitionSite: true})
					}
				}
			}
		case "const_element":
			if kind == KindClassConstant || kind == KindGlobalConstant {
				nameNode := child0OfConst(node)
				name := nodeText(nameNode, content)
				var fqn string
				if enclosingClassFQN != "" {
					fqn = enclosingClassFQN + "::" + name
				} else {
					fqn = joinFQN(ns, name)
				}
				if fqn == targetFQN {
					sites = append(sites, ReferenceSite{URI: uri, Range: toRange(nameNode), DefinitionSite: true})
				}
			}
		case "enum_case":
			if kind == KindEnumCase {
				nameNode := node.ChildByFieldName("name")
				if nameNode == nil {
					nameNode = directChildOfKind(node, "name")
				}
				if enclosingClassFQN+"::"+nodeText(nameNode, content) == targetFQN {
					sites = append(sites, ReferenceSite{URI: uri, Range: toRange(nameNode), DefinitionSite: true})
				}
			}

		case "object_creation_expression":
			if kind.IsTypeKind() {
				if classNode := node.ChildByFieldName("class"); classNode != nil {
					if ResolveClassName(nodeText(classNode, content), ns, uses) == targetFQN {
						sites = append(sites, ReferenceSite{URI: uri, Range: toRange(classNode)})
					}
				}
			}
		case "named_type":
			if kind.IsTypeKind() {
				for _, c := range namedChildren(node) {
					if (c.Kind() == "name" || c.Kind() == "qualified_name") && ResolveClassName(nodeText(c, content), ns, uses) == targetFQN {
						sites = append(sites, ReferenceSite{URI: uri, Range: toRange(c)})
					}
				}
			}
		case "function_call_expression":
			if kind == KindFunction {
				if fn := node.ChildByFieldName("function"); fn != nil && (fn.Kind() == "name" || fn.Kind() == "qualified_name") {
					if ResolveFunctionName(nodeText(fn, content), ns, uses) == targetFQN {
						sites = append(sites, ReferenceSite{URI: uri, Range: toRange(fn)})
					}
				}
			}
		case "member_call_expression":
			if kind == KindMethod {
				if nameNode := node.ChildByFieldName("name"); nameNode != nil {
					if matchesMemberTarget(targetFQN, nodeText(nameNode, content)) {
						sites = append(sites, ReferenceSite{URI: uri, Range: toRange(nameNode)})
					}
				}
			}
		case "member_access_expression":
			if kind == KindProperty {
				if nameNode := node.ChildByFieldName("name"); nameNode != nil {
					if matchesMemberTarget(targetFQN, nodeText(nameNode, content)) {
						sites = append(sites, ReferenceSite{URI: uri, Range: toRange(nameNode)})
					}
				}
			}
		case "scoped_call_expression":
			if kind == KindMethod {
				handleScopedRef(node, content, ns, uses, enclosingClassFQN, targetFQN, uri, "::", &sites)
			}
		case "scoped_property_access_expression":
			if kind == KindProperty {
				handleScopedRef(node, content, ns, uses, enclosingClassFQN, targetFQN, uri, "::$", &sites)
			}
		case "class_constant_access_expression":
			if kind == KindClassConstant {
				handleScopedRef(node, content, ns, uses, enclosingClassFQN, targetFQN, uri, "::", &sites)
			}
		case "name", "qualified_name":
			if kind == KindGlobalConstant && node.Parent() != nil && isConstRefContext(node.Parent()) {
				if ResolveConstantName(nodeText(node, content), ns, uses) == targetFQN {
					sites = append(sites, ReferenceSite{URI: uri, Range: toRange(node)})
				}
			}
		}
		for _, c := range namedChildren(node) {
			walk(c)
		}
	}
	walk(root)
	return sites
}

func isConstRefContext(parent *sitter.Node) bool {
	switch parent.Kind() {
	case "const_declaration", "const_element":
		return false
	default:
		return true
	}
}

func child0OfConst(node *sitter.Node) *sitter.Node {
	nameNode := node.ChildByFieldName("name")
	if nameNode != nil {
		return nameNode
	}
	return directChildOfKind(node, "name")
}

func matchClassRefList(list *sitter.Node, content []byte, ns string, uses []UseStatement, targetFQN, uri string, sites *[]ReferenceSite) {
	for _, n := range namedChildren(list) {
		if n.Kind() != "name" && n.Kind() != "qualified_name" {
			continue
		}
		if ResolveClassName(nodeText(n, content), ns, uses) == targetFQN {
			*sites = append(*sites, ReferenceSite{URI: uri, Range: toRange(n)})
		}
	}
}

// matchesMemberTarget reports whether a bare member name (unqualified at
// the call site, since member-call/access targets are resolved against a
// receiver's inferred type rather than syntactically) matches targetFQN's
// trailing `::name` / `::$name` segment. Spec §4.6 scopes member reference
// finding to name matches within the declaring class's own hierarchy.
// Member-call/access sites are matched on the name alone: the receiver's
// type is not inferred, so same-named members of unrelated classes are
// reported too.
func matchesMemberTarget(targetFQN, name string) bool {
	idx := strings.LastIndex(targetFQN, "::")
	if idx < 0 {
		return false
	}
	trailing := targetFQN[idx+2:]
	trailing = strings.TrimPrefix(trailing, "$")
	return trailing == name
}

func handleScopedRef(node *sitter.Node, content []byte, ns string, uses []UseStatement, enclosingClassFQN, targetFQN, uri, sep string, sites *[]ReferenceSite) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	scopeNode := node.ChildByFieldName("scope")
	if scopeNode == nil {
		scopeNode = node.ChildByFieldName("class")
	}
	scopeText := nodeText(scopeNode, content)
	var scopeFQN string
	switch scopeText {
	case "self", "static", "$this":
		scopeFQN = enclosingClassFQN
	case "parent":
		// No index here to resolve the parent class: parent:: matches the target member by name.
		scopeFQN, _, _ = strings.Cut(targetFQN, "::")
	default:
		scopeFQN = ResolveClassName(scopeText, ns, uses)
	}
	name := strings.TrimPrefix(nodeText(nameNode, content), "$")
	candidate := scopeFQN + sep + name
	if candidate == targetFQN {
		*sites = append(*sites, ReferenceSite{URI: uri, Range: toRange(nameNode)})
	}
}
