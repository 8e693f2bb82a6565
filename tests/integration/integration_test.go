package integration_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gestorerp/notas-bfa-go/internal/domain"
	"github.com/gestorerp/notas-bfa-go/internal/handler"
	"github.com/gestorerp/notas-bfa-go/internal/infra/cache"
	"github.com/gestorerp/notas-bfa-go/internal/infra/draftstore"
	"github.com/gestorerp/notas-bfa-go/internal/infra/erp"
	"github.com/gestorerp/notas-bfa-go/internal/infra/observability"
	"github.com/gestorerp/notas-bfa-go/internal/infra/resilience"
	"github.com/gestorerp/notas-bfa-go/internal/service"

	"go.uber.org/zap"
)

// fakeERP is an httptest backend speaking the ERP REST contract: master data
// listings, nota CRUD and the XML import endpoint.
func fakeERP(t *testing.T, rejectImport bool) (*httptest.Server, *[]domain.NotaPayload) {
	t.Helper()
	var notasCriadas []domain.NotaPayload

	mux := http.NewServeMux()
	mux.HandleFunc("POST /notas/import/xml", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, "bad multipart", http.StatusBadRequest)
			return
		}
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		if rejectImport {
			http.Error(w, `{"error":"xml malformado"}`, http.StatusUnprocessableEntity)
			return
		}
		id := int64(77)
		res := domain.ResultadoImportacao{
			Nota: domain.NotaImportada{
				NumeroNota:            "12345",
				Serie:                 "1",
				DataEmissao:           "2024-05-01",
				ValorTotal:            150,
				ChaveAcesso:           "35240512345678000190550010000123451000123456",
				RazaoSocialFornecedor: "Distribuidora Alfa LTDA",
				CNPJFornecedor:        "12345678000190",
			},
			Fornecedor: domain.FornecedorCorrespondencia{Existe: true, ID: &id},
			Itens: []domain.ItemNota{
				{Descricao: "Cimento CP-II", Quantidade: 10, UnidadeMedida: "SC", ValorUnitario: 15},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(res)
	})
	mux.HandleFunc("POST /notas", func(w http.ResponseWriter, r *http.Request) {
		var payload domain.NotaPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		notasCriadas = append(notasCriadas, payload)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(domain.Nota{ID: 900, NumeroNota: payload.NumeroNota, FornecedorID: payload.FornecedorID})
	})
	mux.HandleFunc("GET /fornecedores", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]domain.Fornecedor{{ID: 77, Nome: "Distribuidora Alfa LTDA"}})
	})
	mux.HandleFunc("GET /produtos", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]domain.Produto{{ID: 10, Nome: "Cimento CP-II", Status: "ativo"}})
	})
	mux.HandleFunc("GET /grupos", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]domain.Grupo{{ID: 3, Nome: "Construção"}})
	})

	return httptest.NewServer(mux), &notasCriadas
}

func buildRouter(t *testing.T, erpURL string) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cb := resilience.NewCircuitBreaker("test")
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	httpClient := &http.Client{Timeout: 5 * time.Second}

	erpClient := erp.NewClient(httpClient, nil, erpURL, "test-key", cb, cfg, logger)

	intake := service.NewIntake(
		draftstore.NewMemory(time.Hour),
		erpClient,
		erpClient,
		cache.New[[]domain.Fornecedor](time.Minute),
		cache.New[[]domain.Produto](time.Minute),
		cache.New[[]domain.Grupo](time.Minute),
		resilience.NewBulkhead(2),
		service.Limites{Fornecedores: 100, Produtos: 100, Grupos: 100},
		metrics,
		logger,
	)

	return handler.NewRouter(intake, nil, metrics, logger)
}

func uploadNota(t *testing.T, router http.Handler, draftID string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "nota.xml")
	fw.Write([]byte("<nfeProc><NFe/></nfeProc>"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/notas/drafts/"+draftID+"/importar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// TestIntegration_FullFlow drives the whole intake over the wire: open a
// draft, upload the XML to the fake ERP, bind the item and save.
func TestIntegration_FullFlow(t *testing.T) {
	backend, notasCriadas := fakeERP(t, false)
	defer backend.Close()

	router := buildRouter(t, backend.URL)

	// open a draft
	req := httptest.NewRequest(http.MethodPost, "/v1/notas/drafts", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("abrir draft: expected 201, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var aberto struct {
		Draft struct {
			DraftID string `json:"draft_id"`
		} `json:"draft"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&aberto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	draftID := aberto.Draft.DraftID

	// import the XML through the real multipart codec
	rec = uploadNota(t, router, draftID)
	if rec.Code != http.StatusOK {
		t.Fatalf("importar: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var imp service.ResultadoIntake
	if err := json.NewDecoder(rec.Body).Decode(&imp); err != nil {
		t.Fatalf("decode import: %v", err)
	}
	if imp.AbrirCadastroFornecedor {
		t.Error("supplier exists in the backend, form must not open")
	}
	if len(imp.Estado.Draft.Itens) != 1 {
		t.Fatalf("expected 1 item, got %d", len(imp.Estado.Draft.Itens))
	}

	// bind the item against the backend product
	body := strings.NewReader(`{"produto_id":10}`)
	req = httptest.NewRequest(http.MethodPost, "/v1/notas/drafts/"+draftID+"/itens/0/produto", body)
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("vincular: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	// save
	req = httptest.NewRequest(http.MethodPost, "/v1/notas/drafts/"+draftID+"/salvar", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("salvar: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	if len(*notasCriadas) != 1 {
		t.Fatalf("expected 1 nota persisted in the backend, got %d", len(*notasCriadas))
	}
	salva := (*notasCriadas)[0]
	if salva.FornecedorID != 77 {
		t.Errorf("expected fornecedor 77, got %d", salva.FornecedorID)
	}
	if len(salva.Itens) != 1 || salva.Itens[0].ProdutoID == nil || *salva.Itens[0].ProdutoID != 10 {
		t.Errorf("expected item bound to produto 10, got %+v", salva.Itens)
	}
}

// TestIntegration_ImportRejected tests 422 propagation when the backend
// cannot parse the uploaded document.
func TestIntegration_ImportRejected(t *testing.T) {
	backend, _ := fakeERP(t, true)
	defer backend.Close()

	router := buildRouter(t, backend.URL)

	req := httptest.NewRequest(http.MethodPost, "/v1/notas/drafts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var aberto struct {
		Draft struct {
			DraftID string `json:"draft_id"`
		} `json:"draft"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&aberto); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = uploadNota(t, router, aberto.Draft.DraftID)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for rejected XML, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	// draft stays pristine for another attempt
	req = httptest.NewRequest(http.MethodGet, "/v1/notas/drafts/"+aberto.Draft.DraftID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("draft should survive a rejected import, got %d", rec.Code)
	}
	var estado service.EstadoDraft
	if err := json.NewDecoder(rec.Body).Decode(&estado); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(estado.Draft.Itens) != 0 {
		t.Error("rejected import must not touch the draft")
	}
}
