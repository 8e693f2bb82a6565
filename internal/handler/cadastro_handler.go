package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gestorerp/notas-bfa-go/internal/domain"
	"github.com/gestorerp/notas-bfa-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Candidate lists — cached master data
// ============================================================

func listarFornecedoresHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lista, err := intake.ListarFornecedores(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"fornecedores": lista, "total": len(lista)})
	}
}

func listarProdutosHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		lista, err := intake.ListarProdutos(r.Context(), q.Get("q"), q.Get("status"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"produtos": lista, "total": len(lista)})
	}
}

func restaurarProdutoHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := intake.RestaurarProduto(r.Context(), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "restaurado"})
	}
}

func listarGruposHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lista, err := intake.ListarGrupos(r.Context())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"grupos": lista, "total": len(lista)})
	}
}

func criarGrupoHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var novo domain.NovoGrupo
		if err := json.NewDecoder(r.Body).Decode(&novo); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		grupo, err := intake.CriarGrupo(r.Context(), &novo)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, grupo)
	}
}
