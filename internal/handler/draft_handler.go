package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gestorerp/notas-bfa-go/internal/domain"
	"github.com/gestorerp/notas-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// maxUploadBytes caps the multipart memory buffer for XML uploads. Fiscal
// documents are small; anything near this limit is not an NF-e.
const maxUploadBytes = 10 << 20

// ============================================================
// Draft lifecycle
// ============================================================

func abrirDraftHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/notas/drafts")
		defer span.End()

		var req struct {
			NotaID *int64 `json:"nota_id"`
		}
		if r.Body != nil && r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		estado, err := intake.AbrirDraft(ctx, req.NotaID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, estado)
	}
}

func buscarDraftHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		estado, err := intake.BuscarDraft(r.Context(), chi.URLParam(r, "draftID"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, estado)
	}
}

func descartarDraftHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := intake.DescartarDraft(r.Context(), chi.URLParam(r, "draftID")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func atualizarCabecalhoHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cab domain.CabecalhoNota
		if err := json.NewDecoder(r.Body).Decode(&cab); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		estado, err := intake.AtualizarCabecalho(r.Context(), chi.URLParam(r, "draftID"), cab)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, estado)
	}
}

// ============================================================
// XML import — POST /v1/notas/drafts/{draftID}/importar
// ============================================================

func importarXMLHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/notas/drafts/{draftID}/importar")
		defer span.End()

		draftID := chi.URLParam(r, "draftID")
		span.SetAttributes(attribute.String("draft.id", draftID))

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			// The console submits the form even when no file was picked;
			// an empty submission is a no-op, not an error.
			w.WriteHeader(http.StatusNoContent)
			return
		}
		defer file.Close()

		out, err := intake.ImportarXML(ctx, draftID, header.Filename, file)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// ============================================================
// Commit — POST /v1/notas/drafts/{draftID}/salvar
// ============================================================

func salvarNotaHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/notas/drafts/{draftID}/salvar")
		defer span.End()

		nota, err := intake.Salvar(ctx, chi.URLParam(r, "draftID"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, nota)
	}
}

func selecoesHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sel, err := intake.CarregarSelecoes(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sel)
	}
}

// ============================================================
// Fornecedor da nota
// ============================================================

func selecionarFornecedorHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FornecedorID int64 `json:"fornecedor_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.FornecedorID <= 0 {
			writeError(w, http.StatusBadRequest, "fornecedor_id é obrigatório")
			return
		}

		estado, err := intake.SelecionarFornecedor(r.Context(), chi.URLParam(r, "draftID"), req.FornecedorID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, estado)
	}
}

func novoFornecedorHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		novo, err := intake.PreencherNovoFornecedor(r.Context(), chi.URLParam(r, "draftID"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, novo)
	}
}

func criarFornecedorHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/notas/drafts/{draftID}/fornecedor/cadastrar")
		defer span.End()

		var novo domain.NovoFornecedor
		if err := json.NewDecoder(r.Body).Decode(&novo); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		estado, err := intake.CriarFornecedor(ctx, chi.URLParam(r, "draftID"), &novo)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, estado)
	}
}

func cancelarFornecedorHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		estado, err := intake.CancelarCadastroFornecedor(r.Context(), chi.URLParam(r, "draftID"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, estado)
	}
}

// ============================================================
// Itens
// ============================================================

func parseIndice(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "indice")
	indice, err := strconv.Atoi(raw)
	if err != nil || indice < 0 {
		return 0, &domain.ErrValidation{Field: "indice", Message: "índice inválido"}
	}
	return indice, nil
}

func novoProdutoHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		indice, err := parseIndice(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		novo, err := intake.PreencherNovoProduto(r.Context(), chi.URLParam(r, "draftID"), indice)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, novo)
	}
}

func vincularProdutoHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		indice, err := parseIndice(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var req struct {
			ProdutoID int64 `json:"produto_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		estado, err := intake.VincularProduto(r.Context(), chi.URLParam(r, "draftID"), indice, req.ProdutoID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, estado)
	}
}

func criarProdutoHandler(intake *service.IntakeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/notas/drafts/{draftID}/itens/{indice}/produto/cadastrar")
		defer span.End()

		indice, err := parseIndice(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var novo domain.NovoProduto
		if err := json.NewDecoder(r.Body).Decode(&novo); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		estado, err := intake.CriarProdutoParaItem(ctx, chi.URLParam(r, "draftID"), indice, &novo)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, estado)
	}
}
