// Package domain holds the pure types of the layout resource registry.
//
// It contains only standard library code and knows nothing about files,
// caches or configuration:
//   - Kind, Resource and Metadata describe indexed sections, templates and snippets
//   - ExtensionConfig describes a registered extension and its directory layout
//   - Index is the unified kind -> source -> id mapping with priority resolution
//
// # Resolution order
//
// Resolve consults tiers in a fixed order for every kind: the theme, then each
// extension in registration order, then core. ListAll and ListByCategory
// flatten sources by id instead and are not priority aware.
package domain
