package scope

// DefaultKey is the reserved key assigning a style to a node's own path.
const DefaultKey = "_default"

// Value is a leaf or subtree stored under a key in a Node.
// It is one of Color, StyledColor or *Node.
type Value interface {
	isValue()
}

// Color is a plain foreground color leaf, e.g. "#ff2a6d".
type Color string

// StyledColor is a foreground color leaf with a font style such as "italic".
type StyledColor struct {
	Color     string
	FontStyle string
}

func (Color) isValue()       {}
func (StyledColor) isValue() {}
func (*Node) isValue()       {}

// Style is the structural identity of a leaf. Leaves with equal styles at the
// same level of a tree are merged into one Rule.
type Style struct {
	Color     string
	FontStyle string
}

// styleOf normalizes a leaf value. ok is false when v is not a style leaf.
func styleOf(v Value) (style Style, ok bool) {
	switch leaf := v.(type) {
	case Color:
		return Style{Color: string(leaf)}, true
	case StyledColor:
		return Style{Color: leaf.Color, FontStyle: leaf.FontStyle}, true
	}
	return Style{}, false
}

// Entry is a single key/value pair of a Node.
type Entry struct {
	Key   string
	Value Value
}

// Node is an ordered mapping from scope keys to values. The zero value is an
// empty node ready to use.
type Node struct {
	entries []Entry
	index   map[string]int
}

// NewNode returns a node holding entries in the given order. A repeated key
// replaces the earlier value but keeps its original position.
func NewNode(entries ...Entry) *Node {
	n := &Node{}
	for _, e := range entries {
		n.Set(e.Key, e.Value)
	}
	return n
}

// Set stores v under key. An existing key keeps its position.
func (n *Node) Set(key string, v Value) {
	if n.index == nil {
		n.index = make(map[string]int)
	}
	if i, ok := n.index[key]; ok {
		n.entries[i].Value = v
		return
	}
	n.index[key] = len(n.entries)
	n.entries = append(n.entries, Entry{Key: key, Value: v})
}

// Get returns the value stored under key.
func (n *Node) Get(key string) (Value, bool) {
	if n == nil || n.index == nil {
		return nil, false
	}
	i, ok := n.index[key]
	if !ok {
		return nil, false
	}
	return n.entries[i].Value, true
}

// Len returns the number of entries, including a _default entry.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.entries)
}

// Entries returns a copy of the node's entries in insertion order.
func (n *Node) Entries() []Entry {
	if n == nil {
		return nil
	}
	out := make([]Entry, len(n.entries))
	copy(out, n.entries)
	return out
}

// KeyKind classifies a key by its leading character.
type KeyKind int

const (
	// RootKey starts a new top-level path and ignores the parent prefix.
	RootKey KeyKind = iota
	// DotKey refines the parent path: "entity.name.tag" + ".template".
	DotKey
	// SpaceKey is a descendant selector: "source.ts" + " comment".
	SpaceKey
)

func (k KeyKind) String() string {
	switch k {
	case DotKey:
		return "dot"
	case SpaceKey:
		return "space"
	default:
		return "root"
	}
}

// Classify returns the kind of key. The empty key is a root key.
func Classify(key string) KeyKind {
	if key == "" {
		return RootKey
	}
	switch key[0] {
	case '.':
		return DotKey
	case ' ':
		return SpaceKey
	}
	return RootKey
}

// Join resolves key against the accumulated parent path.
func Join(prefix, key string) string {
	switch Classify(key) {
	case DotKey, SpaceKey:
		return prefix + key
	}
	return key
}
