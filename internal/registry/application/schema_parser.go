package registry

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/layoutkit/internal/log"
	"github.com/zjrosen/layoutkit/internal/registry/domain"
)

// SchemaParser reads declarative section metadata. Schema files are YAML
// documents; a JSON object is valid YAML and is accepted as well.
type SchemaParser struct {
	fs FileSystem
}

// NewSchemaParser creates a parser reading through fsys.
func NewSchemaParser(fsys FileSystem) *SchemaParser {
	return &SchemaParser{fs: fsys}
}

// ParseMetadata returns the metadata declared in path. A missing file, a
// document that is not a mapping or a decode failure yields empty Metadata;
// the problem is logged and never returned.
func (p *SchemaParser) ParseMetadata(path string) domain.Metadata {
	if path == "" || !p.fs.Exists(path) {
		return domain.Metadata{}
	}

	data, err := p.fs.ReadFile(path)
	if err != nil {
		log.WarnErr(log.CatSchema, "Failed to read schema", err, "path", path)
		return domain.Metadata{}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		log.WarnErr(log.CatSchema, "Failed to parse schema", err, "path", path)
		return domain.Metadata{}
	}
	// Empty document
	if len(doc.Content) == 0 {
		return domain.Metadata{}
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		log.Warn(log.CatSchema, "Schema is not a mapping", "path", path, "line", root.Line)
		return domain.Metadata{}
	}

	var raw map[string]any
	if err := root.Decode(&raw); err != nil {
		log.WarnErr(log.CatSchema, "Failed to decode schema", err, "path", path)
		return domain.Metadata{}
	}

	return metadataFromMap(raw, path)
}

func metadataFromMap(raw map[string]any, path string) domain.Metadata {
	var meta domain.Metadata
	for key, value := range raw {
		var dst *string
		switch key {
		case "name":
			dst = &meta.Name
		case "category":
			dst = &meta.Category
		case "icon":
			dst = &meta.Icon
		case "preview":
			dst = &meta.Preview
		case "description":
			dst = &meta.Description
		}

		if dst == nil {
			if meta.Extra == nil {
				meta.Extra = make(map[string]any)
			}
			meta.Extra[key] = value
			continue
		}

		switch v := value.(type) {
		case nil:
		case string:
			*dst = v
		case int, int64, float64, bool:
			*dst = fmt.Sprint(v)
		default:
			log.Warn(log.CatSchema, "Ignoring non-scalar schema field", "path", path, "field", key)
		}
	}
	return meta
}
