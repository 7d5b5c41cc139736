// Package block defines the parsed content block tree.
package block

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/blockfield/internal/domain/value"
)

// DefaultNamespace is applied to block names written without a namespace.
const DefaultNamespace = "core"

var (
	qualifiedName = regexp.MustCompile(`^[a-z][a-z0-9_-]*/[a-z][a-z0-9_-]*$`)
	bareName      = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
)

// Node is one element of a parsed document. Named nodes are blocks;
// nodes with an empty name are plain-text leaves.
type Node struct {
	Name     string
	Attrs    map[string]value.Value
	Children []Node
	Text     string
}

// IsText reports whether the node is a plain-text leaf.
func (n *Node) IsText() bool { return n.Name == "" }

// NormalizeName validates a block name and qualifies bare names with the
// default namespace. Returns false if the name is not a valid block name.
func NormalizeName(name string) (string, bool) {
	if qualifiedName.MatchString(name) {
		return name, true
	}
	if bareName.MatchString(name) {
		return DefaultNamespace + "/" + name, true
	}
	return "", false
}

// Walk visits nodes depth-first in document order. Returning false from fn
// stops the walk.
func Walk(nodes []Node, fn func(n *Node) bool) bool {
	for i := range nodes {
		if !fn(&nodes[i]) {
			return false
		}
		if !Walk(nodes[i].Children, fn) {
			return false
		}
	}
	return true
}

// Names returns the distinct block names in the tree, in first-seen order.
func Names(nodes []Node) []string {
	seen := make(map[string]bool)
	var out []string
	Walk(nodes, func(n *Node) bool {
		if !n.IsText() && !seen[n.Name] {
			seen[n.Name] = true
			out = append(out, n.Name)
		}
		return true
	})
	return out
}

// Text concatenates the text leaves under the given nodes.
func Text(nodes []Node) string {
	var b strings.Builder
	Walk(nodes, func(n *Node) bool {
		if n.IsText() {
			b.WriteString(n.Text)
		}
		return true
	})
	return b.String()
}
