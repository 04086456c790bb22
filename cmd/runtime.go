package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/zjrosen/layoutkit/internal/cachemanager"
	"github.com/zjrosen/layoutkit/internal/config"
	"github.com/zjrosen/layoutkit/internal/log"
	"github.com/zjrosen/layoutkit/internal/metrics"
	appreg "github.com/zjrosen/layoutkit/internal/registry/application"
	"github.com/zjrosen/layoutkit/internal/tracing"
)

// runtime is the registry plus the infrastructure it was wired with for a
// single command invocation.
type runtime struct {
	cfg     config.Config
	reg     *appreg.Registry
	loader  *appreg.TemplateLoader
	tracer  *tracing.Provider
	metrics *metrics.Recorder
	sqlite  *cachemanager.SQLiteCacheManager
}

// newRuntime builds the registry described by c and registers the
// configured extensions. No scan happens here.
func newRuntime(ctx context.Context, c config.Config) (*runtime, error) {
	rt := &runtime{cfg: c}

	provider, err := tracing.NewProvider(ctx, c.Tracing)
	if err != nil {
		return nil, fmt.Errorf("starting tracing: %w", err)
	}
	rt.tracer = provider

	if c.Metrics.Enabled {
		rt.metrics = metrics.NewRecorder(metrics.WithNamespace(c.Metrics.Namespace))
	}

	opts := []appreg.Option{
		appreg.WithTheme(c.ThemeLayout()),
		appreg.WithCore(c.CoreLayout()),
		appreg.WithFormats(c.RegistryFormats()),
		appreg.WithCacheTTL(c.Cache.TTL),
		appreg.WithTracer(provider.Tracer()),
		appreg.WithMetrics(rt.metrics),
	}

	if c.Cache.Backend == config.CacheBackendSQLite {
		store, err := cachemanager.NewSQLiteCacheManager(c.CachePath(), c.Cache.TTL)
		if err != nil {
			_ = provider.Shutdown(ctx)
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		rt.sqlite = store
		opts = append(opts, appreg.WithCache(store))
	}

	rt.reg = appreg.NewRegistry(ctx, opts...)
	rt.loader = appreg.NewTemplateLoader(rt.reg)

	for _, ext := range c.DomainExtensions() {
		if !rt.reg.RegisterExtension(ctx, ext) {
			log.Debug(log.CatRegistry, "Extension not added", "id", ext.ID)
		}
	}
	return rt, nil
}

// ensureBuilt builds unless a live cached index was loaded. The bool reports
// whether a scan happened.
func (rt *runtime) ensureBuilt(ctx context.Context) (appreg.BuildSummary, bool) {
	if rt.reg.LoadedFromCache() && rt.reg.IsCached(ctx) {
		log.Debug(log.CatRegistry, "Using cached index", "generation", rt.reg.Generation())
		return appreg.BuildSummary{ID: rt.reg.Generation()}, false
	}
	return rt.reg.Build(ctx), true
}

// Close flushes metrics and traces and releases the cache.
func (rt *runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.cfg.Metrics.Enabled && rt.cfg.Metrics.Textfile != "" {
		if err := rt.metrics.WriteTextfile(rt.cfg.Metrics.Textfile); err != nil {
			errs = append(errs, err)
		}
	}
	if err := rt.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	rt.reg.Close()
	if rt.sqlite != nil {
		if err := rt.sqlite.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing cache: %w", err))
		}
	}
	return errors.Join(errs...)
}

// withRuntime runs fn against a runtime for the loaded config and closes it.
func withRuntime(ctx context.Context, fn func(*runtime) error) (err error) {
	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(ctx); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(rt)
}
