// Package format rewrites manifests and scope documents in canonical style.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"gopkg.in/yaml.v3"
)

var multipleBlankLines = regexp.MustCompile(`\n{3,}`)
var blankLineAfterOpenBrace = regexp.MustCompile(`\{\n\s*\n`)
var blankLineBeforeCloseBrace = regexp.MustCompile(`\n\s*\n(\s*\})`)

// Format formats content according to the syntax implied by filename.
func Format(filename, content string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".hcl":
		return HCL(content), nil
	case ".yaml", ".yml":
		return YAML(content)
	case ".json":
		return JSON(content)
	default:
		return "", fmt.Errorf("%s: cannot format files with extension %q", filename, ext)
	}
}

// HCL formats HCL source with hclwrite.Format and then tidies blank lines.
//
// It works on partial or invalid HCL, so editors can format while the user
// is still typing.
func HCL(content string) string {
	formatted := hclwrite.Format([]byte(content))
	// Collapse multiple consecutive blank lines into a single blank line.
	collapsed := multipleBlankLines.ReplaceAllString(string(formatted), "\n\n")
	// Remove blank lines immediately after opening braces.
	collapsed = blankLineAfterOpenBrace.ReplaceAllString(collapsed, "{\n")
	// Remove blank lines immediately before closing braces.
	collapsed = blankLineBeforeCloseBrace.ReplaceAllString(collapsed, "\n${1}")
	return collapsed
}

// YAML re-encodes YAML source with two-space indentation. Key order, scalar
// quoting and comments survive because the document goes through yaml.Node.
func YAML(content string) (string, error) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(content), &node); err != nil {
		return "", fmt.Errorf("parsing YAML: %w", err)
	}
	if node.Kind == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return "", fmt.Errorf("encoding YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding YAML: %w", err)
	}
	return buf.String(), nil
}

// JSON indents JSON source with two spaces, keeping key order.
func JSON(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(content), "", "  "); err != nil {
		return "", fmt.Errorf("parsing JSON: %w", err)
	}
	buf.WriteByte('\n')
	return buf.String(), nil
}
