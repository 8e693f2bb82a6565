package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gestorerp/notas-bfa-go/internal/domain"
	"github.com/gestorerp/notas-bfa-go/internal/handler"
	"github.com/gestorerp/notas-bfa-go/internal/infra/cache"
	"github.com/gestorerp/notas-bfa-go/internal/infra/draftstore"
	"github.com/gestorerp/notas-bfa-go/internal/infra/observability"
	"github.com/gestorerp/notas-bfa-go/internal/infra/resilience"
	"github.com/gestorerp/notas-bfa-go/internal/service"
)

// --- Stubs ---

type stubNotaStore struct {
	importResult *domain.ResultadoImportacao
	importErr    error
	salva        *domain.Nota
}

func (s *stubNotaStore) ListarNotas(_ context.Context, _ string, _, _ int) ([]domain.Nota, error) {
	return []domain.Nota{{ID: 1, NumeroNota: "100"}}, nil
}

func (s *stubNotaStore) BuscarNota(_ context.Context, id int64) (*domain.Nota, error) {
	if id != 1 {
		return nil, &domain.ErrNotFound{Resource: "nota", ID: "x"}
	}
	return &domain.Nota{ID: 1, NumeroNota: "100"}, nil
}

func (s *stubNotaStore) CriarNota(_ context.Context, payload *domain.NotaPayload) (*domain.Nota, error) {
	s.salva = &domain.Nota{ID: 55, NumeroNota: payload.NumeroNota, FornecedorID: payload.FornecedorID}
	return s.salva, nil
}

func (s *stubNotaStore) AtualizarNota(_ context.Context, id int64, payload *domain.NotaPayload) (*domain.Nota, error) {
	return &domain.Nota{ID: id, NumeroNota: payload.NumeroNota}, nil
}

func (s *stubNotaStore) ExcluirNota(_ context.Context, _ int64) error { return nil }

func (s *stubNotaStore) ImportarXML(_ context.Context, _ string, _ io.Reader) (*domain.ResultadoImportacao, error) {
	if s.importErr != nil {
		return nil, s.importErr
	}
	return s.importResult, nil
}

type stubCadastroStore struct{}

func (s *stubCadastroStore) ListarFornecedores(_ context.Context, _ string, _ int) ([]domain.Fornecedor, error) {
	return []domain.Fornecedor{{ID: 77, Nome: "Distribuidora Alfa"}}, nil
}

func (s *stubCadastroStore) BuscarFornecedor(_ context.Context, id int64) (*domain.Fornecedor, error) {
	if id != 77 {
		return nil, &domain.ErrNotFound{Resource: "fornecedor", ID: "x"}
	}
	return &domain.Fornecedor{ID: 77, Nome: "Distribuidora Alfa"}, nil
}

func (s *stubCadastroStore) CriarFornecedor(_ context.Context, novo *domain.NovoFornecedor) (*domain.Fornecedor, error) {
	return &domain.Fornecedor{ID: 78, Nome: novo.Nome}, nil
}

func (s *stubCadastroStore) ListarProdutos(_ context.Context, _, status string, _ int) ([]domain.Produto, error) {
	if status == "inativo" {
		return []domain.Produto{{ID: 12, Nome: "Lixa", Status: "inativo"}}, nil
	}
	return []domain.Produto{{ID: 10, Nome: "Cimento", Status: "ativo"}}, nil
}

func (s *stubCadastroStore) CriarProduto(_ context.Context, novo *domain.NovoProduto) (*domain.Produto, error) {
	return &domain.Produto{ID: 11, Nome: novo.Nome, Status: "ativo"}, nil
}

func (s *stubCadastroStore) RestaurarProduto(_ context.Context, _ int64) error { return nil }

func (s *stubCadastroStore) ListarGrupos(_ context.Context, _ int) ([]domain.Grupo, error) {
	return []domain.Grupo{{ID: 3, Nome: "Construção"}}, nil
}

func (s *stubCadastroStore) CriarGrupo(_ context.Context, novo *domain.NovoGrupo) (*domain.Grupo, error) {
	return &domain.Grupo{ID: 4, Nome: novo.Nome}, nil
}

func newTestRouter(notas *stubNotaStore, sessions *service.SessionService) http.Handler {
	intake := service.NewIntake(
		draftstore.NewMemory(time.Hour),
		notas,
		&stubCadastroStore{},
		cache.New[[]domain.Fornecedor](time.Minute),
		cache.New[[]domain.Produto](time.Minute),
		cache.New[[]domain.Grupo](time.Minute),
		resilience.NewBulkhead(2),
		service.Limites{Fornecedores: 100, Produtos: 100, Grupos: 100},
		observability.NewMetrics(),
		zap.NewNop(),
	)
	return handler.NewRouter(intake, sessions, observability.NewMetrics(), zap.NewNop())
}

// --- Tests ---

func TestHealthz(t *testing.T) {
	router := newTestRouter(&stubNotaStore{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter(&stubNotaStore{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(&stubNotaStore{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestListarProdutosPorStatus(t *testing.T) {
	router := newTestRouter(&stubNotaStore{}, nil)

	rec := doJSON(t, router, http.MethodGet, "/v1/produtos?status=inativo", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Produtos []domain.Produto `json:"produtos"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Produtos) != 1 || out.Produtos[0].ID != 12 {
		t.Errorf("expected the inactive product, got %v", out.Produtos)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/produtos", nil)
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Produtos) != 1 || out.Produtos[0].ID != 10 {
		t.Errorf("expected the active product by default, got %v", out.Produtos)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(&stubNotaStore{}, service.NewSession("segredo"))

	req := httptest.NewRequest(http.MethodGet, "/v1/fornecedores", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
}
