package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/gestorerp/notas-bfa-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the intake BFF.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	importsTotal    *prometheus.CounterVec
	itensResolvidos *prometheus.CounterVec
	notasSalvas     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intake_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_external_errors_total",
				Help: "Total errors from ERP backend calls.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		importsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_imports_total",
				Help: "Total XML imports by outcome.",
			},
			[]string{"status"},
		),
		itensResolvidos: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_itens_resolvidos_total",
				Help: "Total line items resolved, by resolution path.",
			},
			[]string{"via"}, // "cadastro" (new product) or "vinculo" (existing)
		),
		notasSalvas: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_notas_salvas_total",
				Help: "Total invoice commits by outcome.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrImport increments the import counter with an outcome label
// ("success" or "error").
func (m *Metrics) IncrImport(status string) {
	m.importsTotal.WithLabelValues(status).Inc()
}

// IncrItemResolvido increments the resolution counter for one path
// ("cadastro" or "vinculo").
func (m *Metrics) IncrItemResolvido(via string) {
	m.itensResolvidos.WithLabelValues(via).Inc()
}

// IncrNotaSalva increments the commit counter with an outcome label.
func (m *Metrics) IncrNotaSalva(status string) {
	m.notasSalvas.WithLabelValues(status).Inc()
}

// GetIntakeSnapshot returns a snapshot of intake metrics suitable for the
// GET /v1/metrics/intake endpoint.
func (m *Metrics) GetIntakeSnapshot() *domain.IntakeMetrics {
	importsOK := getCounterValue(m.importsTotal, "success")
	importsErr := getCounterValue(m.importsTotal, "error")
	salvasOK := getCounterValue(m.notasSalvas, "success")
	salvasErr := getCounterValue(m.notasSalvas, "error")
	viaCadastro := getCounterValue(m.itensResolvidos, "cadastro")
	viaVinculo := getCounterValue(m.itensResolvidos, "vinculo")

	cacheHits := getCounterValue(m.cacheHits, "produtos") +
		getCounterValue(m.cacheHits, "fornecedores") +
		getCounterValue(m.cacheHits, "grupos")
	cacheMisses := getCounterValue(m.cacheMisses, "produtos") +
		getCounterValue(m.cacheMisses, "fornecedores") +
		getCounterValue(m.cacheMisses, "grupos")

	taxaErroImportacao := float64(0)
	if importsOK+importsErr > 0 {
		taxaErroImportacao = importsErr / (importsOK + importsErr)
	}
	cacheHitRate := float64(0)
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.IntakeMetrics{
		ImportacoesOK:      int64(importsOK),
		ImportacoesErro:    int64(importsErr),
		TaxaErroImportacao: taxaErroImportacao,
		NotasSalvas:        int64(salvasOK),
		NotasComFalha:      int64(salvasErr),
		ItensViaCadastro:   int64(viaCadastro),
		ItensViaVinculo:    int64(viaVinculo),
		CacheHitRate:       cacheHitRate,
		Period:             "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
