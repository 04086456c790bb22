package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Index is the unified kind -> source -> id mapping built by a registry scan.
// Each kind keeps its own bucket; sources never overwrite each other because
// the source tag is part of the key.
//
// Index is not safe for concurrent mutation. The registry builds a fresh
// index off to the side and swaps it in under its own lock.
type Index struct {
	buckets map[Kind]*bucket
}

// bucket holds every resource of a single kind.
type bucket struct {
	order   []string                       // source tags in first-insertion order
	sources map[string]map[string]Resource // source -> id -> resource
}

func newBucket() *bucket {
	return &bucket{sources: make(map[string]map[string]Resource)}
}

// NewIndex creates an empty index with one bucket per kind.
func NewIndex() *Index {
	idx := &Index{buckets: make(map[Kind]*bucket, len(Kinds()))}
	for _, k := range Kinds() {
		idx.buckets[k] = newBucket()
	}
	return idx
}

func (i *Index) bucket(kind Kind) *bucket {
	if i == nil {
		return nil
	}
	return i.buckets[kind]
}

// Add stores r under its kind and source. A second resource with the same
// (kind, source, id) replaces the first.
func (i *Index) Add(r Resource) error {
	b := i.bucket(r.Kind)
	if b == nil {
		return fmt.Errorf("%w: %q", ErrInvalidKind, r.Kind)
	}
	entries, ok := b.sources[r.Source]
	if !ok {
		entries = make(map[string]Resource)
		b.sources[r.Source] = entries
		b.order = append(b.order, r.Source)
	}
	entries[r.ID] = r
	return nil
}

// resolutionOrder returns the tiers consulted by Resolve: the theme, then
// every other non-core source in insertion order, then core.
func (b *bucket) resolutionOrder() []string {
	order := make([]string, 0, len(b.order)+2)
	order = append(order, SourceTheme)
	for _, src := range b.order {
		if src == SourceTheme || src == SourceCore {
			continue
		}
		order = append(order, src)
	}
	return append(order, SourceCore)
}

// Resolve returns the winning resource for id: theme first, then the first
// extension (in registration order) that defines it, then core.
func (i *Index) Resolve(kind Kind, id string) (Resource, bool) {
	b := i.bucket(kind)
	if b == nil {
		return Resource{}, false
	}
	for _, src := range b.resolutionOrder() {
		if r, ok := b.sources[src][id]; ok {
			return r, true
		}
	}
	return Resource{}, false
}

// ListBySource returns the resources a single source contributed, sorted by id.
func (i *Index) ListBySource(kind Kind, source string) []Resource {
	b := i.bucket(kind)
	if b == nil {
		return []Resource{}
	}
	return sortedValues(b.sources[source])
}

// ListByCategory returns resources whose category matches, across all
// sources. Resources without a category count as DefaultCategory. Like
// ListAll, entries are keyed by id, so a later source replaces an earlier one.
func (i *Index) ListByCategory(kind Kind, category string) []Resource {
	return i.flatten(kind, func(r Resource) bool {
		return r.EffectiveCategory() == category
	})
}

// ListAll returns one resource per id, flattened across sources in insertion
// order. Later sources overwrite earlier ones, so core wins over theme here.
// This is NOT priority aware; use Resolve for the winning definition.
func (i *Index) ListAll(kind Kind) []Resource {
	return i.flatten(kind, nil)
}

func (i *Index) flatten(kind Kind, keep func(Resource) bool) []Resource {
	b := i.bucket(kind)
	if b == nil {
		return []Resource{}
	}
	merged := make(map[string]Resource)
	for _, src := range b.order {
		for id, r := range b.sources[src] {
			if keep != nil && !keep(r) {
				continue
			}
			merged[id] = r
		}
	}
	return sortedValues(merged)
}

// Sources returns the source tags present for kind, in insertion order.
func (i *Index) Sources(kind Kind) []string {
	b := i.bucket(kind)
	if b == nil {
		return []string{}
	}
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Count returns the number of records of kind across all sources.
func (i *Index) Count(kind Kind) int {
	b := i.bucket(kind)
	if b == nil {
		return 0
	}
	n := 0
	for _, entries := range b.sources {
		n += len(entries)
	}
	return n
}

// Counts returns Count for every kind.
func (i *Index) Counts() map[Kind]int {
	out := make(map[Kind]int, len(Kinds()))
	for _, k := range Kinds() {
		out[k] = i.Count(k)
	}
	return out
}

// Clone returns a deep copy of the index.
func (i *Index) Clone() *Index {
	out := NewIndex()
	if i == nil {
		return out
	}
	for kind, b := range i.buckets {
		nb := newBucket()
		nb.order = append(nb.order, b.order...)
		for src, entries := range b.sources {
			copied := make(map[string]Resource, len(entries))
			for id, r := range entries {
				copied[id] = r
			}
			nb.sources[src] = copied
		}
		out.buckets[kind] = nb
	}
	return out
}

func sortedValues(m map[string]Resource) []Resource {
	out := make([]Resource, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// bucketJSON is the persisted form of a bucket.
type bucketJSON struct {
	Order   []string                       `json:"order"`
	Sources map[string]map[string]Resource `json:"sources"`
}

// MarshalJSON encodes the index as {kind: {order, sources}}. encoding/json
// sorts map keys, so an unchanged index always encodes to the same bytes.
func (i *Index) MarshalJSON() ([]byte, error) {
	out := make(map[Kind]bucketJSON, len(Kinds()))
	for _, k := range Kinds() {
		b := i.bucket(k)
		if b == nil {
			b = newBucket()
		}
		order := b.order
		if order == nil {
			order = []string{}
		}
		out[k] = bucketJSON{Order: order, Sources: b.sources}
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores an index written by MarshalJSON. Unknown kinds are
// dropped; sources missing from the order list are appended in sorted order.
func (i *Index) UnmarshalJSON(data []byte) error {
	var in map[Kind]bucketJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	restored := NewIndex()
	for kind, bj := range in {
		b := restored.bucket(kind)
		if b == nil {
			continue
		}
		seen := make(map[string]bool, len(bj.Order))
		for _, src := range bj.Order {
			if _, ok := bj.Sources[src]; ok && !seen[src] {
				b.order = append(b.order, src)
				seen[src] = true
			}
		}
		var extra []string
		for src := range bj.Sources {
			if !seen[src] {
				extra = append(extra, src)
			}
		}
		sort.Strings(extra)
		b.order = append(b.order, extra...)
		for src, entries := range bj.Sources {
			copied := make(map[string]Resource, len(entries))
			for id, r := range entries {
				copied[id] = r
			}
			b.sources[src] = copied
		}
	}
	*i = *restored
	return nil
}
