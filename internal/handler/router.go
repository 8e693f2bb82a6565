package handler

import (
	"net/http"
	"time"

	"github.com/gestorerp/notas-bfa-go/internal/infra/observability"
	"github.com/gestorerp/notas-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract of the notas intake frontend.
func NewRouter(intake *service.IntakeService, sessions *service.SessionService, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(intake, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if sessions != nil {
			r.Use(JWTAuthMiddleware(sessions, logger))
		}

		// =============================================
		// Sessões de importação (drafts)
		// =============================================
		r.Route("/notas/drafts", func(r chi.Router) {
			r.Post("/", abrirDraftHandler(intake, logger))

			r.Route("/{draftID}", func(r chi.Router) {
				r.Get("/", buscarDraftHandler(intake, logger))
				r.Delete("/", descartarDraftHandler(intake, logger))
				r.Post("/importar", importarXMLHandler(intake, logger))
				r.Put("/cabecalho", atualizarCabecalhoHandler(intake, logger))
				r.Post("/salvar", salvarNotaHandler(intake, logger))
				r.Get("/selecoes", selecoesHandler(intake, logger))

				// Fornecedor da nota
				r.Post("/fornecedor", selecionarFornecedorHandler(intake, logger))
				r.Get("/fornecedor/novo", novoFornecedorHandler(intake, logger))
				r.Post("/fornecedor/cadastrar", criarFornecedorHandler(intake, logger))
				r.Delete("/fornecedor", cancelarFornecedorHandler(intake, logger))

				// Itens
				r.Get("/itens/{indice}/novo-produto", novoProdutoHandler(intake, logger))
				r.Post("/itens/{indice}/produto", vincularProdutoHandler(intake, logger))
				r.Post("/itens/{indice}/produto/cadastrar", criarProdutoHandler(intake, logger))
			})
		})

		// =============================================
		// Cadastros (listas de candidatos)
		// =============================================
		r.Get("/fornecedores", listarFornecedoresHandler(intake, logger))
		r.Get("/produtos", listarProdutosHandler(intake, logger))
		r.Put("/produtos/{id}/restaurar", restaurarProdutoHandler(intake, logger))
		r.Get("/grupos", listarGruposHandler(intake, logger))
		r.Post("/grupos", criarGrupoHandler(intake, logger))

		// =============================================
		// Notas persistidas
		// =============================================
		r.Get("/notas", listarNotasHandler(intake, logger))
		r.Get("/notas/{id}", buscarNotaHandler(intake, logger))
		r.Delete("/notas/{id}", excluirNotaHandler(intake, logger))

		// =============================================
		// Métricas do fluxo de importação
		// =============================================
		r.Get("/metrics/intake", intakeMetricsHandler(metrics))
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		status := "healthy"
		latency := int64(0)
		if intake != nil {
			start := time.Now()
			_, err := intake.ListarGrupos(r.Context())
			latency = time.Since(start).Milliseconds()
			if err != nil {
				logger.Warn("healthz: backend degraded", zap.Error(err))
				status = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status": status,
			"services": []map[string]any{
				{"name": "notas-bfa", "status": "healthy", "latency_ms": 0, "last_checked": now},
				{"name": "erp", "status": status, "latency_ms": latency, "last_checked": now},
			},
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func intakeMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetIntakeSnapshot())
	}
}
