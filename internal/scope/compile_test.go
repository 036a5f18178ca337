package scope

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{"", "a", "a"},
		{"a", ".b", "a.b"},
		{"a.b", " c", "a.b c"},
		{"entity.name.tag", ".template", "entity.name.tag.template"},
		{"source.ts", " comment", "source.ts comment"},
		{"source.ts", "text.html", "text.html"},
		{"source.env", "", ""},
		{"source.env", " ", "source.env "},
	}

	for _, tt := range tests {
		t.Run(tt.prefix+"+"+tt.key, func(t *testing.T) {
			if got := Join(tt.prefix, tt.key); got != tt.want {
				t.Errorf("Join(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := map[string]KeyKind{
		"source.x": RootKey,
		".html":    DotKey,
		" comment": SpaceKey,
		"":         RootKey,
		"_default": RootKey,
	}
	for key, want := range tests {
		if got := Classify(key); got != want {
			t.Errorf("Classify(%q) = %s, want %s", key, got, want)
		}
	}
}

func TestCompilePathComposition(t *testing.T) {
	tree := NewNode(
		Entry{"a", NewNode(
			Entry{DefaultKey, Color("#000001")},
			Entry{".b", NewNode(
				Entry{DefaultKey, Color("#000002")},
				Entry{" c", Color("#000003")},
			)},
		)},
	)

	rules, err := Compile(tree)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	want := []Rule{
		{Scopes: []string{"a.b c"}, Foreground: "#000003"},
		{Scopes: []string{"a.b"}, Foreground: "#000002"},
		{Scopes: []string{"a"}, Foreground: "#000001"},
	}
	if diff := cmp.Diff(want, rules); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileGroupsSiblingsByStyle(t *testing.T) {
	tree := NewNode(
		Entry{"source.x", NewNode(
			Entry{" string", Color("#ff0000")},
			Entry{" keyword", Color("#00ff00")},
			Entry{" constant", Color("#ff0000")},
		)},
	)

	rules, err := Compile(tree)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	want := []Rule{
		{Scopes: []string{"source.x string", "source.x constant"}, Foreground: "#ff0000"},
		{Scopes: []string{"source.x keyword"}, Foreground: "#00ff00"},
	}
	if diff := cmp.Diff(want, rules); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileDoesNotMergeAcrossLevels(t *testing.T) {
	tree := NewNode(
		Entry{"p", NewNode(
			Entry{".a", Color("#123456")},
			Entry{".b", NewNode(
				Entry{".c", Color("#123456")},
			)},
		)},
	)

	rules, err := Compile(tree)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	want := []Rule{
		{Scopes: []string{"p.b.c"}, Foreground: "#123456"},
		{Scopes: []string{"p.a"}, Foreground: "#123456"},
	}
	if diff := cmp.Diff(want, rules); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileDefault(t *testing.T) {
	node := NewNode(
		Entry{DefaultKey, Color("#111111")},
		Entry{".x", Color("#222222")},
	)

	t.Run("under parent", func(t *testing.T) {
		rules, err := Compile(NewNode(Entry{"p", node}))
		if err != nil {
			t.Fatalf("Compile() error: %v", err)
		}
		want := []Rule{
			{Scopes: []string{"p.x"}, Foreground: "#222222"},
			{Scopes: []string{"p"}, Foreground: "#111111"},
		}
		if diff := cmp.Diff(want, rules); diff != "" {
			t.Errorf("rules mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("at prefix", func(t *testing.T) {
		rules, err := CompileAt(node, "p")
		if err != nil {
			t.Fatalf("CompileAt() error: %v", err)
		}
		want := []Rule{
			{Scopes: []string{"p.x"}, Foreground: "#222222"},
			{Scopes: []string{"p"}, Foreground: "#111111"},
		}
		if diff := cmp.Diff(want, rules); diff != "" {
			t.Errorf("rules mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("groups with siblings of the parent level", func(t *testing.T) {
		tree := NewNode(
			Entry{"text.html", NewNode(
				Entry{" entity.name.tag", NewNode(
					Entry{DefaultKey, Color("#89b4fa")},
					Entry{".template", Color("#05d9e7")},
				)},
				Entry{" meta.tag", Color("#89b4fa")},
			)},
		)
		rules, err := Compile(tree)
		if err != nil {
			t.Fatalf("Compile() error: %v", err)
		}
		want := []Rule{
			{Scopes: []string{"text.html entity.name.tag.template"}, Foreground: "#05d9e7"},
			{Scopes: []string{"text.html entity.name.tag", "text.html meta.tag"}, Foreground: "#89b4fa"},
		}
		if diff := cmp.Diff(want, rules); diff != "" {
			t.Errorf("rules mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestCompileStyleNormalization(t *testing.T) {
	tree := NewNode(
		Entry{"a", Color("#abc")},
		Entry{"b", StyledColor{Color: "#abc"}},
		Entry{"c", StyledColor{Color: "#abc", FontStyle: "italic"}},
	)

	rules, err := Compile(tree)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	want := []Rule{
		{Scopes: []string{"a", "b"}, Foreground: "#abc"},
		{Scopes: []string{"c"}, Foreground: "#abc", FontStyle: "italic"},
	}
	if diff := cmp.Diff(want, rules); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileEmpty(t *testing.T) {
	for name, node := range map[string]*Node{
		"zero":  {},
		"empty": NewNode(),
		"nil":   nil,
	} {
		t.Run(name, func(t *testing.T) {
			rules, err := Compile(node)
			if err != nil {
				t.Fatalf("Compile() error: %v", err)
			}
			if rules == nil || len(rules) != 0 {
				t.Errorf("Compile() = %#v, want empty non-nil slice", rules)
			}
		})
	}
}

// The empty key has no leading separator, so it starts a new path of its own
// and drops the parent prefix.
func TestCompileEmptyKey(t *testing.T) {
	tests := []struct {
		name string
		tree *Node
		want []Rule
	}{
		{
			name: "at root",
			tree: NewNode(Entry{"", Color("#111111")}),
			want: []Rule{{Scopes: []string{""}, Foreground: "#111111"}},
		},
		{
			name: "nested",
			tree: NewNode(Entry{"a", NewNode(
				Entry{"", Color("#111111")},
				Entry{".b", Color("#222222")},
			)}),
			want: []Rule{
				{Scopes: []string{""}, Foreground: "#111111"},
				{Scopes: []string{"a.b"}, Foreground: "#222222"},
			},
		},
		{
			name: "beside a default",
			tree: NewNode(Entry{"source.json", NewNode(
				Entry{DefaultKey, Color("#111111")},
				Entry{"", Color("#222222")},
			)}),
			want: []Rule{
				{Scopes: []string{""}, Foreground: "#222222"},
				{Scopes: []string{"source.json"}, Foreground: "#111111"},
			},
		},
		{
			name: "default at root",
			tree: NewNode(Entry{DefaultKey, Color("#111111")}),
			want: []Rule{{Scopes: []string{""}, Foreground: "#111111"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules, err := Compile(tt.tree)
			if err != nil {
				t.Fatalf("Compile() error: %v", err)
			}
			if diff := cmp.Diff(tt.want, rules); diff != "" {
				t.Errorf("rules mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompileEndToEnd(t *testing.T) {
	tree := NewNode(
		Entry{"source.x", NewNode(
			Entry{" string", Color("#ff0000")},
			Entry{" comment", StyledColor{Color: "#00ff00", FontStyle: "italic"}},
		)},
	)

	rules, err := Compile(tree)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	got, err := json.Marshal(rules)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[{"scope":["source.x string"],"settings":{"foreground":"#ff0000"}},` +
		`{"scope":["source.x comment"],"settings":{"foreground":"#00ff00","fontStyle":"italic"}}]`
	if string(got) != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestCompileIsIdempotent(t *testing.T) {
	tree := envTree()

	first, err := Compile(tree)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	a, _ := json.Marshal(first)

	for i := 0; i < 20; i++ {
		again, err := Compile(tree)
		if err != nil {
			t.Fatalf("Compile() error: %v", err)
		}
		b, _ := json.Marshal(again)
		if string(a) != string(b) {
			t.Fatalf("run %d differs:\n%s\n%s", i, a, b)
		}
	}
}

func TestCompileDoesNotMutateInput(t *testing.T) {
	tree := envTree()
	before := dump(tree)

	rules, err := Compile(tree)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	rules[0].Scopes[0] = "changed"

	if after := dump(tree); after != before {
		t.Errorf("input changed:\nbefore %s\nafter  %s", before, after)
	}
}

func TestCompileEnvDocument(t *testing.T) {
	rules, err := Compile(envTree())
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	want := []Rule{
		{Scopes: []string{"source.env comment punctuation.definition.comment"}, Foreground: "#ff2a6d"},
		{Scopes: []string{"source.env"}, Foreground: "#8afc5d", FontStyle: "italic"},
		{Scopes: []string{"source.env variable"}, Foreground: "#d600ff"},
		{Scopes: []string{"source.env keyword.operator.assignment"}, Foreground: "#8afc5d"},
		{Scopes: []string{"source.env comment"}, Foreground: "#cc8a00", FontStyle: "italic"},
		{Scopes: []string{"source.env string"}, Foreground: "#00aaff", FontStyle: "italic"},
	}
	if diff := cmp.Diff(want, rules); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
}

// A node may style its own path and its children; both are emitted.
func TestCompileDefaultAlongsideChildren(t *testing.T) {
	tree := NewNode(
		Entry{"meta.tag", NewNode(
			Entry{DefaultKey, StyledColor{Color: "#ffffff", FontStyle: "bold"}},
			Entry{" entity.name.tag", Color("#00aaff")},
			Entry{" punctuation", NewNode(
				Entry{DefaultKey, Color("#ff2a6d")},
			)},
		)},
	)

	rules, err := Compile(tree)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	want := []Rule{
		{Scopes: []string{"meta.tag entity.name.tag"}, Foreground: "#00aaff"},
		{Scopes: []string{"meta.tag punctuation"}, Foreground: "#ff2a6d"},
		{Scopes: []string{"meta.tag"}, Foreground: "#ffffff", FontStyle: "bold"},
	}
	if diff := cmp.Diff(want, rules); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		tree     *Node
		kind     error
		contains string
	}{
		{
			name:     "nil leaf",
			tree:     NewNode(Entry{"source.x", NewNode(Entry{" string", nil})}),
			kind:     ErrMalformedLeaf,
			contains: `key " string" under "source.x"`,
		},
		{
			name:     "nil node",
			tree:     NewNode(Entry{"source.x", (*Node)(nil)}),
			kind:     ErrMalformedLeaf,
			contains: `key "source.x"`,
		},
		{
			name:     "empty color",
			tree:     NewNode(Entry{"a", StyledColor{FontStyle: "italic"}}),
			kind:     ErrMalformedLeaf,
			contains: "empty color",
		},
		{
			name: "default is a node",
			tree: NewNode(Entry{"a", NewNode(
				Entry{DefaultKey, NewNode()},
			)}),
			kind:     ErrMalformedLeaf,
			contains: `key "_default" under "a"`,
		},
		{
			name: "default and root key naming the same path",
			tree: NewNode(Entry{"source.json", NewNode(
				Entry{DefaultKey, Color("#111111")},
				Entry{"source.json", Color("#222222")},
			)}),
			kind:     ErrConflictingDefault,
			contains: `under "source.json"`,
		},
		{
			name: "default and root key naming the same node",
			tree: NewNode(Entry{"a", NewNode(
				Entry{DefaultKey, Color("#111111")},
				Entry{"a", NewNode(Entry{".b", Color("#222222")})},
			)}),
			kind: ErrConflictingDefault,
		},
		{
			name: "default and empty key at root",
			tree: NewNode(
				Entry{DefaultKey, Color("#111111")},
				Entry{"", Color("#222222")},
			),
			kind: ErrConflictingDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules, err := Compile(tt.tree)
			if err == nil {
				t.Fatalf("expected error, got rules %v", rules)
			}
			if rules != nil {
				t.Errorf("expected no partial output, got %v", rules)
			}
			if !errors.Is(err, tt.kind) {
				t.Errorf("error %v is not %v", err, tt.kind)
			}
			var scopeErr *Error
			if !errors.As(err, &scopeErr) {
				t.Errorf("error %T is not *Error", err)
			}
			if tt.contains != "" && !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.contains)
			}
		})
	}
}

func TestRuleStyle(t *testing.T) {
	rules, err := Compile(NewNode(
		Entry{"a", StyledColor{Color: "#abc", FontStyle: "italic"}},
		Entry{"b", Color("#def")},
	))
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	want := []Style{
		{Color: "#abc", FontStyle: "italic"},
		{Color: "#def"},
	}
	var got []Style
	for _, r := range rules {
		got = append(got, r.Style())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("styles mismatch (-want +got):\n%s", diff)
	}
}

func TestNodeSetKeepsPosition(t *testing.T) {
	n := NewNode(
		Entry{"a", Color("#000001")},
		Entry{"b", Color("#000002")},
	)
	n.Set("a", Color("#000003"))

	entries := n.Entries()
	if len(entries) != 2 || entries[0].Key != "a" || entries[1].Key != "b" {
		t.Fatalf("unexpected order: %v", entries)
	}
	if v, _ := n.Get("a"); v != Color("#000003") {
		t.Errorf("Get(a) = %v, want #000003", v)
	}
}

func TestRuleJSONRoundTrip(t *testing.T) {
	in := Rule{Name: "HTML: Tags", Scopes: []string{"entity.name.tag.html"}, Foreground: "#89b4fa"}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"name":"HTML: Tags","scope":["entity.name.tag.html"],"settings":{"foreground":"#89b4fa"}}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}

	var out Rule
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func envTree() *Node {
	return NewNode(
		Entry{"source.env", NewNode(
			Entry{"", StyledColor{Color: "#8afc5d", FontStyle: "italic"}},
			Entry{" variable", Color("#d600ff")},
			Entry{" keyword.operator.assignment", Color("#8afc5d")},
			Entry{" comment", NewNode(
				Entry{DefaultKey, StyledColor{Color: "#cc8a00", FontStyle: "italic"}},
				Entry{" punctuation.definition.comment", Color("#ff2a6d")},
			)},
			Entry{" string", StyledColor{Color: "#00aaff", FontStyle: "italic"}},
		)},
	)
}

func dump(n *Node) string {
	var b strings.Builder
	var walk func(*Node)
	walk = func(n *Node) {
		b.WriteString("{")
		for _, e := range n.Entries() {
			b.WriteString(e.Key + "=")
			if child, ok := e.Value.(*Node); ok {
				walk(child)
			} else {
				s, _ := styleOf(e.Value)
				b.WriteString(s.Color + "/" + s.FontStyle)
			}
			b.WriteString(";")
		}
		b.WriteString("}")
	}
	walk(n)
	return b.String()
}
