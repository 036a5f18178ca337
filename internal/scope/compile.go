// Package scope compiles nested textmate scope trees into flat token color
// rules.
//
// A tree is a Node whose keys are path fragments. A key starting with "."
// refines the parent path, a key starting with " " adds a descendant
// selector, and any other key starts a new path. Leaves sharing a style at the
// same level of the tree are grouped into one Rule; leaves at different levels
// never are.
package scope

import "fmt"

// Compile flattens a tree into rules. It is CompileAt with an empty prefix.
func Compile(node *Node) ([]Rule, error) {
	return CompileAt(node, "")
}

// CompileAt flattens node as if its own resolved path were prefix.
//
// Rules produced by nested nodes come before the rules of the level that
// contains them, and rules of one level appear in the order their style was
// first seen. The input is never modified.
func CompileAt(node *Node, prefix string) ([]Rule, error) {
	if node == nil {
		return []Rule{}, nil
	}

	var top grouping
	styled, err := top.addDefault(node, prefix)
	if err != nil {
		return nil, err
	}

	rules, err := compile(node, prefix, styled)
	if err != nil {
		return nil, err
	}
	return append(rules, top.rules...), nil
}

// compile walks one level. styled reports whether the node's own path already
// received its _default style from the level above.
func compile(node *Node, prefix string, styled bool) ([]Rule, error) {
	out := []Rule{}
	var level grouping

	for _, e := range node.entries {
		if e.Key == DefaultKey {
			continue
		}

		path := Join(prefix, e.Key)
		if styled && path == prefix {
			return nil, &Error{
				Path:   prefix,
				Key:    e.Key,
				Kind:   ErrConflictingDefault,
				Detail: "entry resolves to the path already styled by " + DefaultKey,
			}
		}

		child, isNode := e.Value.(*Node)
		if !isNode {
			style, err := leafStyle(e.Value, prefix, e.Key)
			if err != nil {
				return nil, err
			}
			level.add(style, path)
			continue
		}

		if child == nil {
			return nil, &Error{Path: prefix, Key: e.Key, Kind: ErrMalformedLeaf, Detail: "nil node"}
		}
		childStyled, err := level.addDefault(child, path)
		if err != nil {
			return nil, err
		}
		nested, err := compile(child, path, childStyled)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}

	return append(out, level.rules...), nil
}

// leafStyle validates and normalizes a style leaf found under key.
func leafStyle(v Value, prefix, key string) (Style, error) {
	style, ok := styleOf(v)
	if !ok {
		return Style{}, &Error{
			Path:   prefix,
			Key:    key,
			Kind:   ErrMalformedLeaf,
			Detail: fmt.Sprintf("expected color, [color, fontStyle] or nested scopes, got %T", v),
		}
	}
	if style.Color == "" {
		return Style{}, &Error{Path: prefix, Key: key, Kind: ErrMalformedLeaf, Detail: "empty color"}
	}
	return style, nil
}

// grouping collects the paths of one tree level by style, in first-seen order.
type grouping struct {
	index map[Style]int
	rules []Rule
}

func (g *grouping) add(style Style, path string) {
	if g.index == nil {
		g.index = make(map[Style]int)
	}
	if i, ok := g.index[style]; ok {
		g.rules[i].Scopes = append(g.rules[i].Scopes, path)
		return
	}
	g.index[style] = len(g.rules)
	g.rules = append(g.rules, Rule{
		Scopes:     []string{path},
		Foreground: style.Color,
		FontStyle:  style.FontStyle,
	})
}

// addDefault registers the _default leaf of node, if any, under the node's
// own path and reports whether it did.
func (g *grouping) addDefault(node *Node, path string) (bool, error) {
	v, ok := node.Get(DefaultKey)
	if !ok {
		return false, nil
	}
	if _, isNode := v.(*Node); isNode {
		return false, &Error{
			Path:   path,
			Key:    DefaultKey,
			Kind:   ErrMalformedLeaf,
			Detail: DefaultKey + " must be a color or [color, fontStyle]",
		}
	}
	style, err := leafStyle(v, path, DefaultKey)
	if err != nil {
		return false, err
	}
	g.add(style, path)
	return true, nil
}
