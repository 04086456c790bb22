package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/layoutkit/internal/log"
	"github.com/zjrosen/layoutkit/internal/registry/domain"
)

// AppendExtension validates ext against the already declared extensions and
// returns the list with ext added at the end.
func AppendExtension(exts []ExtensionConfig, ext ExtensionConfig) ([]ExtensionConfig, error) {
	out := make([]ExtensionConfig, 0, len(exts)+1)
	out = append(out, exts...)
	out = append(out, ext)
	if err := ValidateExtensions(out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveExtensions updates the extensions list in the config file.
// This preserves comments and formatting in other sections by using yaml.Node.
func SaveExtensions(configPath string, exts []ExtensionConfig) error {
	return saveSection(configPath, "extensions", buildExtensionsNode(exts))
}

// saveSection replaces (or appends) the top-level key in the config file
// with value and writes the result atomically.
func saveSection(configPath, key string, value *yaml.Node) error {
	data, err := os.ReadFile(configPath) //nolint:gosec // G304: user config path
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	switch {
	case doc.Kind == 0 || (doc.Kind == yaml.DocumentNode && len(doc.Content) == 0):
		// Empty or new file
		doc = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{{
				Kind: yaml.MappingNode,
				Content: []*yaml.Node{
					{Kind: yaml.ScalarNode, Value: key},
					value,
				},
			}},
		}
	case doc.Kind == yaml.DocumentNode:
		root := doc.Content[0]
		if root.Kind != yaml.MappingNode {
			return fmt.Errorf("parsing config: top level is not a mapping")
		}
		found := false
		for i := 0; i < len(root.Content)-1; i += 2 {
			if root.Content[i].Value == key {
				root.Content[i+1] = value
				found = true
				break
			}
		}
		if !found {
			root.Content = append(root.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: key},
				value,
			)
		}
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	// Write atomically (write to temp, then rename)
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".layoutkit.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(buf.Bytes()); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	log.Info(log.CatConfig, "Saved config section", "path", configPath, "key", key)
	return nil
}

// buildExtensionsNode creates a yaml.Node representing the extensions array.
// Empty directory roles are omitted.
func buildExtensionsNode(exts []ExtensionConfig) *yaml.Node {
	node := &yaml.Node{
		Kind:    yaml.SequenceNode,
		Content: make([]*yaml.Node, 0, len(exts)),
	}

	for _, ext := range exts {
		extNode := &yaml.Node{Kind: yaml.MappingNode}

		// Always include id and name
		addScalar(extNode, "id", domain.NormalizeKey(ext.ID))
		addScalar(extNode, "name", ext.Name)

		for _, field := range []struct{ key, value string }{
			{"schemas_dir", ext.SchemasDir},
			{"sections_dir", ext.SectionsDir},
			{"templates_dir", ext.TemplatesDir},
			{"snippets_dir", ext.SnippetsDir},
			{"schema_location", ext.SchemaLocation},
		} {
			if field.value != "" {
				addScalar(extNode, field.key, field.value)
			}
		}

		node.Content = append(node.Content, extNode)
	}

	return node
}

func addScalar(mapping *yaml.Node, key, value string) {
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Value: value},
	)
}
