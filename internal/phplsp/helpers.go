package phplsp

import sitter "github.com/tree-sitter/go-tree-sitter"

// nodeText returns the source text spanned by node, or "" if node is nil.
// Grounded on the teacher's pervasive `string(node.Utf8Text(content))` idiom.
func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return string(node.Utf8Text(content))
}

// directChildOfKind returns the first direct (not necessarily named) child
// of node whose Kind matches, or nil. Grounded on the teacher's
// internal/php/parser.go findDirectChildOfKind.
func directChildOfKind(node *sitter.Node, kind string) *sitter.Node {
	if node == nil {
		return nil
	}
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

// firstNodeOfKind performs a recursive DFS for the first descendant (or
// node itself) whose Kind matches. Grounded on the teacher's
// tree_sitter_helper findFirstNodeOfKind/GetFirstNodeOfKind.
func firstNodeOfKind(node *sitter.Node, kind string) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.Kind() == kind {
		return node
	}
	count := node.NamedChildCount()
	for i := uint(0); i < count; i++ {
		if found := firstNodeOfKind(node.NamedChild(i), kind); found != nil {
			return found
		}
	}
	return nil
}

// namedChildren returns all named children of node as a slice.
func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	count := node.NamedChildCount()
	out := make([]*sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		out = append(out, node.NamedChild(i))
	}
	return out
}

// ancestorOfKind walks up from node looking for the nearest ancestor (not
// including node itself) whose Kind matches one of kinds.
func ancestorOfKind(node *sitter.Node, kinds ...string) *sitter.Node {
	if node == nil {
		return nil
	}
	current := node.Parent()
	for current != nil {
		k := current.Kind()
		for _, want := range kinds {
			if k == want {
				return current
			}
		}
		current = current.Parent()
	}
	return nil
}

// toRange converts a tree-sitter node range to our Range value.
func toRange(node *sitter.Node) Range {
	if node == nil {
		return Range{}
	}
	r := node.Range()
	return Range{
		StartLine: int(r.StartPoint.Row), StartCol: int(r.StartPoint.Column),
		EndLine: int(r.EndPoint.Row), EndCol: int(r.EndPoint.Column),
	}
}

// NodeRange converts a tree-sitter node's range to our Range value. Exported
// for the orchestrator (C12), which needs to turn definition/rename target
// nodes (e.g. LocalVariableDefinition's result) into LSP ranges without
// duplicating toRange's field mapping.
func NodeRange(node *sitter.Node) Range {
	return toRange(node)
}

// precedingCommentText returns the raw text of a `comment` node immediately
// preceding node (no intervening named siblings) if it looks like a PHPDoc
// block (`/**`), per spec §4.3 "Doc comments" rule. Returns "".
func precedingCommentText(node *sitter.Node, content []byte) string {
	if node == nil || node.Parent() == nil {
		return ""
	}
	parent := node.Parent()
	var prevSibling *sitter.Node
	count := parent.ChildCount()
	for i := uint(0); i < count; i++ {
		child := parent.Child(i)
		if child == node {
			break
		}
		prevSibling = child
	}
	if prevSibling == nil || prevSibling.Kind() != "comment" {
		return ""
	}
	text := nodeText(prevSibling, content)
	if len(text) < 3 || text[:3] != "/**" {
		return ""
	}
	return text
}
