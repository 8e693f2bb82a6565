package handler

import (
	"net/http"

	"github.com/gestorerp/notas-bfa-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Persisted notas — list screen passthrough
// ============================================================

func listarNotasHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, pageSize := parsePagination(r)
		lista, err := intake.ListarNotas(r.Context(), r.URL.Query().Get("q"), page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"notas":     lista,
			"total":     len(lista),
			"page":      page,
			"page_size": pageSize,
		})
	}
}

func buscarNotaHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		nota, err := intake.BuscarNota(r.Context(), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, nota)
	}
}

func excluirNotaHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := intake.ExcluirNota(r.Context(), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
