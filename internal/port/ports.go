// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"io"

	"github.com/gestorerp/notas-bfa-go/internal/domain"
)

// CadastroStore is the master-data boundary: suppliers, products and groups
// owned by the ERP backend. Implemented by the ERP REST adapter.
type CadastroStore interface {
	// Fornecedores
	ListarFornecedores(ctx context.Context, q string, limit int) ([]domain.Fornecedor, error)
	BuscarFornecedor(ctx context.Context, id int64) (*domain.Fornecedor, error)
	CriarFornecedor(ctx context.Context, novo *domain.NovoFornecedor) (*domain.Fornecedor, error)

	// Produtos
	ListarProdutos(ctx context.Context, q, status string, limit int) ([]domain.Produto, error)
	CriarProduto(ctx context.Context, novo *domain.NovoProduto) (*domain.Produto, error)
	RestaurarProduto(ctx context.Context, id int64) error

	// Grupos
	ListarGrupos(ctx context.Context, limit int) ([]domain.Grupo, error)
	CriarGrupo(ctx context.Context, novo *domain.NovoGrupo) (*domain.Grupo, error)
}

// NotaStore is the invoice boundary: CRUD plus the XML import endpoint.
// The backend parses the XML; the BFF never inspects file contents.
type NotaStore interface {
	ListarNotas(ctx context.Context, q string, page, limit int) ([]domain.Nota, error)
	BuscarNota(ctx context.Context, id int64) (*domain.Nota, error)
	CriarNota(ctx context.Context, payload *domain.NotaPayload) (*domain.Nota, error)
	AtualizarNota(ctx context.Context, id int64, payload *domain.NotaPayload) (*domain.Nota, error)
	ExcluirNota(ctx context.Context, id int64) error

	// ImportarXML submits the fiscal document and returns the parsed result.
	ImportarXML(ctx context.Context, filename string, file io.Reader) (*domain.ResultadoImportacao, error)
}

// DraftStore holds intake sessions between requests. Drafts expire after a
// TTL; a successful commit deletes the session.
type DraftStore interface {
	Get(ctx context.Context, draftID string) (*domain.NotaDraft, error)
	Put(ctx context.Context, draft *domain.NotaDraft) error
	Delete(ctx context.Context, draftID string) error
}

// Cache provides generic caching with TTL for master-data snapshots.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
