package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

var sectionComments = map[string]string{
	"ai":              "Language model provider. provider: auto picks the vendor from the key prefix.",
	"review":          "Static review. severity: low | medium | high",
	"testgen":         "Test generation and the verification loop.",
	"fix":             "Fix suggestions for failing tests.",
	"ignore_patterns": "Path segments skipped when reviewing a directory.",
	"output":          "format: text | json | markdown, color: auto | always | never",
	"license":         "License key and local state directory.",
	"database":        "Usage ledger backend: sqlite (default) or mysql.",
	"github":          "Token used by review --pr.",
	"server":          "Webhook server (devbuddy server).",
	"billing":         "Stripe credentials for billing commands and the webhook server.",
}

// WriteDefault writes a commented default configuration to path. It
// refuses to overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	cfg := Default()
	// Machine-specific paths stay out of project files.
	cfg.Database.Path = ""
	cfg.License.DataDir = ""

	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding defaults: %w", err)
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if c, ok := sectionComments[doc.Content[i].Value]; ok {
			doc.Content[i].HeadComment = c
		}
	}
	return writeNode(path, &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: "devbuddy configuration",
		Content:     []*yaml.Node{&doc},
	})
}

// SetValue sets a dotted key in the YAML file at path, creating the file
// and any intermediate mappings as needed. Comments and ordering of the
// rest of the document are preserved.
func SetValue(path, key, value string) error {
	root, err := readNode(path)
	if err != nil {
		return err
	}

	parts := strings.Split(key, ".")
	node := root.Content[0]
	for i, part := range parts {
		if node.Kind != yaml.MappingNode {
			return fmt.Errorf("setting %s: %s is not a mapping", key, strings.Join(parts[:i], "."))
		}
		child := lookup(node, part)
		last := i == len(parts)-1
		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode}
			if last {
				child = &yaml.Node{Kind: yaml.ScalarNode}
			}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: part}, child)
		}
		if last {
			if err := setScalar(child, value); err != nil {
				return fmt.Errorf("setting %s: %w", key, err)
			}
		}
		node = child
	}
	return writeNode(path, root)
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// setScalar replaces n with the YAML form of value. Comma-separated
// values inside [ ] become sequences.
func setScalar(n *yaml.Node, value string) error {
	var parsed yaml.Node
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil || len(parsed.Content) == 0 {
		*n = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
		return nil
	}
	repl := parsed.Content[0]
	if repl.Kind == yaml.MappingNode {
		return errors.New("mapping values are not supported")
	}
	head, line := n.HeadComment, n.LineComment
	*n = *repl
	n.HeadComment, n.LineComment = head, line
	return nil
}

func readNode(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var root yaml.Node
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		root = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	return &root, nil
}

func writeNode(path string, root *yaml.Node) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(root)
	if err != nil {
		return fmt.Errorf("serialising config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
