package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/layoutkit/internal/cachemanager"
	"github.com/zjrosen/layoutkit/internal/log"
	"github.com/zjrosen/layoutkit/internal/metrics"
	"github.com/zjrosen/layoutkit/internal/pubsub"
	"github.com/zjrosen/layoutkit/internal/registry/domain"
	"github.com/zjrosen/layoutkit/internal/tracing"
)

// Registry discovers layout resources from the theme, registered extensions
// and core, and answers priority-ordered lookups against the last index it
// built or loaded from cache. It is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	fs       FileSystem
	formats  Formats
	walker   *Walker
	theme    ThemeLayout
	core     CoreLayout
	cache    cachemanager.CacheManager[string, []byte]
	cacheTTL time.Duration
	tracer   trace.Tracer
	metrics  *metrics.Recorder
	broker   *pubsub.Broker[Notification]
	now      func() time.Time

	index           *domain.Index
	extensions      []domain.ExtensionConfig
	generation      string
	loadedFromCache bool
	lastBuild       *BuildSummary
}

// Option configures a Registry.
type Option func(*Registry)

// WithFileSystem sets the filesystem the scanner reads from.
func WithFileSystem(fsys FileSystem) Option {
	return func(r *Registry) {
		r.fs = fsys
	}
}

// WithTheme sets the active theme layout.
func WithTheme(layout ThemeLayout) Option {
	return func(r *Registry) {
		r.theme = layout
	}
}

// WithCore sets the built-in sections layout.
func WithCore(layout CoreLayout) Option {
	return func(r *Registry) {
		r.core = layout
	}
}

// WithFormats sets the scanned file extensions.
func WithFormats(formats Formats) Option {
	return func(r *Registry) {
		r.formats = formats
	}
}

// WithCache sets the store used to persist the index.
func WithCache(cache cachemanager.CacheManager[string, []byte]) Option {
	return func(r *Registry) {
		r.cache = cache
	}
}

// WithCacheTTL sets how long a cached index stays valid.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		r.cacheTTL = ttl
	}
}

// WithTracer sets the tracer used for build spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Registry) {
		r.tracer = tracer
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(r *Registry) {
		r.metrics = recorder
	}
}

// NewRegistry creates a registry and seeds it from the cache when a fresh
// entry exists. No scan happens until Build is called.
func NewRegistry(ctx context.Context, opts ...Option) *Registry {
	r := &Registry{
		fs:       OSFileSystem{},
		formats:  DefaultFormats(),
		cacheTTL: CacheDuration,
		tracer:   noop.NewTracerProvider().Tracer(tracing.TracerName),
		broker:   pubsub.NewBroker[Notification](),
		now:      time.Now,
		index:    domain.NewIndex(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = cachemanager.NewInMemoryCacheManager[string, []byte]("registry-index", r.cacheTTL, cachemanager.DefaultCleanupInterval)
	}
	r.walker = NewWalker(r.fs, r.formats)
	r.formats = r.walker.Scanner().Formats()

	r.loadFromCache(ctx)
	return r
}

// loadFromCache seeds the index and extensions from the cache. A miss or an
// undecodable entry leaves the registry empty.
func (r *Registry) loadFromCache(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, r.tracer, tracing.SpanCacheLoad)
	defer span.End()

	data, ok := r.cache.Get(ctx, CacheKey)
	span.SetAttributes(attribute.Bool(tracing.AttrCacheHit, ok))
	if !ok {
		r.metrics.CacheOp(metrics.CacheMiss)
		log.Debug(log.CatRegistry, "No cached index", "key", CacheKey)
		return
	}

	entry, err := decodeCacheEntry(data)
	if err != nil {
		tracing.RecordError(span, err)
		r.metrics.CacheOp(metrics.CacheError)
		log.WarnErr(log.CatCache, "Discarding unreadable cached index", err, "key", CacheKey)
		return
	}

	r.mu.Lock()
	r.index = entry.Index
	r.extensions = entry.Extensions
	r.generation = entry.Generation
	r.loadedFromCache = true
	r.mu.Unlock()

	r.metrics.CacheOp(metrics.CacheHit)
	log.Info(log.CatRegistry, "Loaded index from cache",
		"generation", entry.Generation, "extensions", len(entry.Extensions))
}

// saveToCache writes the index and extensions under CacheKey.
func (r *Registry) saveToCache(ctx context.Context, generation string, idx *domain.Index, exts []domain.ExtensionConfig) {
	ctx, span := tracing.StartSpan(ctx, r.tracer, tracing.SpanCacheSave)
	defer span.End()

	data, err := encodeCacheEntry(generation, idx, exts)
	if err != nil {
		tracing.RecordError(span, err)
		r.metrics.CacheOp(metrics.CacheError)
		log.ErrorErr(log.CatCache, "Failed to encode index", err)
		return
	}
	r.cache.Set(ctx, CacheKey, data, r.cacheTTL)
	span.AddEvent(tracing.EventCacheWritten)
	r.metrics.CacheOp(metrics.CacheWrite)
	log.Debug(log.CatCache, "Saved index", "key", CacheKey, "bytes", len(data), "ttl", r.cacheTTL)
}

// Build scans the theme, every registered extension in registration order and
// core, replaces the in-memory index, writes the cache and notifies
// subscribers. Against an unchanged filesystem it produces the same index.
func (r *Registry) Build(ctx context.Context) BuildSummary {
	started := r.now()
	buildID := uuid.NewString()

	ctx, span := tracing.StartSpan(ctx, r.tracer, tracing.SpanBuild,
		attribute.String(tracing.AttrBuildID, buildID))
	defer span.End()

	exts := r.Extensions()
	idx := domain.NewIndex()

	r.scanTier(ctx, "theme", domain.SourceTheme, func() int {
		return r.walker.WalkTheme(idx, r.theme)
	})
	for _, ext := range exts {
		r.scanTier(ctx, "extension", ext.ID, func() int {
			return r.walker.WalkExtension(idx, ext)
		})
	}
	r.scanTier(ctx, "core", domain.SourceCore, func() int {
		return r.walker.WalkCore(idx, r.core)
	})

	summary := BuildSummary{
		ID:         buildID,
		StartedAt:  started,
		Counts:     idx.Counts(),
		Sources:    make(map[domain.Kind][]string, len(domain.Kinds())),
		Extensions: len(exts),
	}
	for _, k := range domain.Kinds() {
		summary.Sources[k] = idx.Sources(k)
	}

	r.mu.Lock()
	r.index = idx
	r.generation = buildID
	r.loadedFromCache = false
	r.mu.Unlock()
	span.AddEvent(tracing.EventIndexSwapped)

	r.saveToCache(ctx, buildID, idx, exts)

	summary.Duration = r.now().Sub(started)
	r.mu.Lock()
	r.lastBuild = &summary
	r.mu.Unlock()

	span.SetAttributes(
		attribute.Int(tracing.AttrSections, summary.Counts[domain.KindSection]),
		attribute.Int(tracing.AttrTemplates, summary.Counts[domain.KindTemplate]),
		attribute.Int(tracing.AttrSnippets, summary.Counts[domain.KindSnippet]),
		attribute.Int(tracing.AttrExtensionCount, len(exts)),
	)
	r.metrics.ObserveBuild(summary.Duration)
	r.metrics.SetResources(resourceCounts(idx))

	log.Info(log.CatRegistry, "Built index",
		"build", buildID,
		"sections", summary.Counts[domain.KindSection],
		"templates", summary.Counts[domain.KindTemplate],
		"snippets", summary.Counts[domain.KindSnippet],
		"extensions", len(exts),
		"duration", summary.Duration)

	built := summary
	r.broker.Publish(pubsub.BuiltEvent, Notification{Build: &built})
	return summary
}

func (r *Registry) scanTier(ctx context.Context, tier, source string, scan func() int) {
	_, span := tracing.StartSpan(ctx, r.tracer, tracing.SpanScanPrefix+tier,
		attribute.String(tracing.AttrTier, tier),
		attribute.String(tracing.AttrSource, source))
	defer span.End()

	n := scan()
	span.SetAttributes(attribute.Int(tracing.AttrRecords, n))
}

func resourceCounts(idx *domain.Index) map[string]map[string]int {
	out := make(map[string]map[string]int, len(domain.Kinds()))
	for _, k := range domain.Kinds() {
		bySource := make(map[string]int)
		for _, src := range idx.Sources(k) {
			bySource[src] = len(idx.ListBySource(k, src))
		}
		out[k.String()] = bySource
	}
	return out
}

// Resolve returns the winning definition of id: theme, then the first
// extension in registration order, then core.
func (r *Registry) Resolve(kind domain.Kind, id string) (domain.Resource, bool) {
	r.mu.RLock()
	res, ok := r.index.Resolve(kind, id)
	r.mu.RUnlock()

	outcome := metrics.OutcomeMiss
	switch {
	case !ok:
	case res.Source == domain.SourceTheme:
		outcome = metrics.OutcomeTheme
	case res.Source == domain.SourceCore:
		outcome = metrics.OutcomeCore
	default:
		outcome = metrics.OutcomeExtension
	}
	r.metrics.ObserveResolve(kind.String(), outcome)
	return res, ok
}

// ListBySource returns the records a single source contributed.
func (r *Registry) ListBySource(kind domain.Kind, source string) []domain.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.ListBySource(kind, source)
}

// ListByCategory returns records in category across all sources.
func (r *Registry) ListByCategory(kind domain.Kind, category string) []domain.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.ListByCategory(kind, category)
}

// ListAll returns one record per id. Later sources overwrite earlier ones,
// so the result is not priority aware; use Resolve for the winner.
func (r *Registry) ListAll(kind domain.Kind) []domain.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.ListAll(kind)
}

// Sources returns the source tags present for kind in insertion order.
func (r *Registry) Sources(kind domain.Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Sources(kind)
}

// Snapshot returns a copy of the current index.
func (r *Registry) Snapshot() *domain.Index {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Clone()
}

// Generation identifies the loaded index: the id of the build that produced
// it, or empty before the first build or cache load.
func (r *Registry) Generation() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// LoadedFromCache reports whether the current index came from the cache.
func (r *Registry) LoadedFromCache() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadedFromCache
}

// LastBuild returns the summary of the most recent Build in this process.
func (r *Registry) LastBuild() (BuildSummary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.lastBuild == nil {
		return BuildSummary{}, false
	}
	return *r.lastBuild, true
}

// RegisterExtension adds an extension source. It returns false, changing
// nothing, when the id or name is missing, the id is reserved or the id is
// already registered. Success invalidates the cache; the new source is
// scanned on the next Build.
func (r *Registry) RegisterExtension(ctx context.Context, cfg domain.ExtensionConfig) bool {
	if err := cfg.Validate(); err != nil {
		r.metrics.ExtensionRegistration(false)
		log.WarnErr(log.CatRegistry, "Rejected extension", err, "id", cfg.ID)
		return false
	}
	cfg = cfg.Normalize()

	r.mu.Lock()
	for _, existing := range r.extensions {
		if existing.ID == cfg.ID {
			r.mu.Unlock()
			r.metrics.ExtensionRegistration(false)
			log.Debug(log.CatRegistry, "Skipping extension", "id", cfg.ID, "reason", domain.ErrDuplicateExtension)
			return false
		}
	}
	r.extensions = append(r.extensions, cfg)
	r.mu.Unlock()

	r.metrics.ExtensionRegistration(true)
	log.Info(log.CatRegistry, "Registered extension", "id", cfg.ID, "name", cfg.Name, "layout", cfg.Layout())

	if err := r.InvalidateCache(ctx); err != nil {
		log.WarnErr(log.CatCache, "Failed to invalidate cache after registration", err, "id", cfg.ID)
	}
	return true
}

// Extension returns the registered config for id.
func (r *Registry) Extension(id string) (domain.ExtensionConfig, bool) {
	key := domain.NormalizeKey(id)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ext := range r.extensions {
		if ext.ID == key {
			return ext, true
		}
	}
	return domain.ExtensionConfig{}, false
}

// Extensions returns the registered extensions in registration order.
func (r *Registry) Extensions() []domain.ExtensionConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ExtensionConfig, len(r.extensions))
	copy(out, r.extensions)
	return out
}

// ExtensionMap returns the registered extensions keyed by id.
func (r *Registry) ExtensionMap() map[string]domain.ExtensionConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]domain.ExtensionConfig, len(r.extensions))
	for _, ext := range r.extensions {
		out[ext.ID] = ext
	}
	return out
}

// InvalidateCache deletes the cached index. The in-memory index is kept
// until the next Build.
func (r *Registry) InvalidateCache(ctx context.Context) error {
	return r.invalidate(ctx, "")
}

func (r *Registry) invalidate(ctx context.Context, event InvalidationEvent) error {
	ctx, span := tracing.StartSpan(ctx, r.tracer, tracing.SpanInvalidate,
		attribute.String(tracing.AttrEvent, string(event)))
	defer span.End()

	if err := r.cache.Delete(ctx, CacheKey); err != nil {
		tracing.RecordError(span, err)
		r.metrics.CacheOp(metrics.CacheError)
		return fmt.Errorf("invalidate registry cache: %w", err)
	}
	r.metrics.CacheOp(metrics.CacheInvalidate)
	log.Debug(log.CatCache, "Invalidated index", "key", CacheKey, "event", event)

	r.broker.Publish(pubsub.InvalidatedEvent, Notification{Event: event})
	return nil
}

// IsCached reports whether a live cache entry exists.
func (r *Registry) IsCached(ctx context.Context) bool {
	_, ok := r.cache.Get(ctx, CacheKey)
	return ok
}

// HandleEvent reacts to an environment change: it clears the cache and
// rebuilds synchronously so the next lookup sees a fresh index.
func (r *Registry) HandleEvent(ctx context.Context, event InvalidationEvent) (BuildSummary, error) {
	if _, err := ParseInvalidationEvent(string(event)); err != nil {
		return BuildSummary{}, err
	}
	r.metrics.Invalidation(string(event))
	log.Info(log.CatRegistry, "Handling invalidation event", "event", event)

	if err := r.invalidate(ctx, event); err != nil {
		return BuildSummary{}, err
	}
	return r.Build(ctx), nil
}

// Subscribe returns a channel of build and invalidation notifications that
// is closed when ctx is done.
func (r *Registry) Subscribe(ctx context.Context) <-chan pubsub.Event[Notification] {
	return r.broker.Subscribe(ctx)
}

// Close releases subscriber channels.
func (r *Registry) Close() {
	r.broker.Close()
}

// ContentFile returns the content path of the winning definition of id,
// provided the file still exists.
func (r *Registry) ContentFile(kind domain.Kind, id string) (string, bool) {
	res, ok := r.Resolve(kind, id)
	if !ok || res.ContentPath == "" || !r.fs.Exists(res.ContentPath) {
		return "", false
	}
	return res.ContentPath, true
}
