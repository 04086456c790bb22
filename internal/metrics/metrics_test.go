package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilRecorder_IsSafe(t *testing.T) {
	var r *Recorder
	require.NotPanics(t, func() {
		r.ObserveBuild(time.Second)
		r.SetResources(map[string]map[string]int{"section": {"theme": 1}})
		r.ObserveResolve("section", OutcomeTheme)
		r.CacheOp(CacheHit)
		r.Invalidation("theme-switched")
		r.ExtensionRegistration(true)
	})
	require.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "m.prom")))
	require.NotNil(t, r.Gatherer())
}

func TestRecorder_ObserveBuild(t *testing.T) {
	r := NewRecorder()
	r.ObserveBuild(20 * time.Millisecond)
	r.ObserveBuild(30 * time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(r.builds))
	require.Equal(t, 1, testutil.CollectAndCount(r.buildDuration))
}

func TestRecorder_SetResourcesResetsStaleSources(t *testing.T) {
	r := NewRecorder()
	r.SetResources(map[string]map[string]int{
		"section": {"theme": 3, "acme": 2},
	})
	require.Equal(t, 2, testutil.CollectAndCount(r.resources))
	require.Equal(t, 2.0, testutil.ToFloat64(r.resources.WithLabelValues("section", "acme")))

	r.SetResources(map[string]map[string]int{
		"section": {"theme": 4},
	})
	require.Equal(t, 1, testutil.CollectAndCount(r.resources))
	require.Equal(t, 4.0, testutil.ToFloat64(r.resources.WithLabelValues("section", "theme")))
}

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder()
	r.ObserveResolve("section", OutcomeTheme)
	r.ObserveResolve("section", OutcomeTheme)
	r.ObserveResolve("template", OutcomeMiss)
	r.CacheOp(CacheMiss)
	r.CacheOp(CacheWrite)
	r.Invalidation("plugin-activated")
	r.ExtensionRegistration(true)
	r.ExtensionRegistration(false)
	r.ExtensionRegistration(false)

	require.Equal(t, 2.0, testutil.ToFloat64(r.resolves.WithLabelValues("section", OutcomeTheme)))
	require.Equal(t, 1.0, testutil.ToFloat64(r.resolves.WithLabelValues("template", OutcomeMiss)))
	require.Equal(t, 1.0, testutil.ToFloat64(r.cacheOps.WithLabelValues(CacheWrite)))
	require.Equal(t, 1.0, testutil.ToFloat64(r.invalidations.WithLabelValues("plugin-activated")))
	require.Equal(t, 2.0, testutil.ToFloat64(r.registrations.WithLabelValues("rejected")))
}

func TestRecorder_Options(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(
		WithRegistry(reg),
		WithNamespace("site"),
		WithConstLabels(prometheus.Labels{"env": "test"}),
		WithBuckets([]float64{1}),
	)
	r.ObserveBuild(time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	require.Contains(t, names, "site_registry_builds_total")
	require.Contains(t, names, "site_registry_build_duration_seconds")
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveBuild(time.Millisecond)
	r.CacheOp(CacheHit)

	path := filepath.Join(t.TempDir(), "layoutkit.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	require.True(t, strings.Contains(out, "layoutkit_registry_builds_total 1"))
	require.Contains(t, out, `layoutkit_cache_operations_total{op="hit"} 1`)
}
