package erp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"

	"github.com/gestorerp/notas-bfa-go/internal/domain"
)

// ============================================================
// Fornecedores — implements part of port.CadastroStore
// ============================================================

// ListarFornecedores fetches suppliers, optionally filtered by name substring.
func (c *Client) ListarFornecedores(ctx context.Context, q string, limit int) ([]domain.Fornecedor, error) {
	ctx, span := tracer.Start(ctx, "ERP.ListarFornecedores")
	defer span.End()

	path := fmt.Sprintf("/fornecedores?limit=%d", limit)
	if q != "" {
		path += "&q=" + url.QueryEscape(q)
	}

	var fornecedores []domain.Fornecedor
	err := c.doWithRetry(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		fornecedores, err = decodeList[domain.Fornecedor](body)
		return err
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "erp/fornecedores", Err: err}
	}
	return fornecedores, nil
}

// BuscarFornecedor fetches one supplier by id.
func (c *Client) BuscarFornecedor(ctx context.Context, id int64) (*domain.Fornecedor, error) {
	ctx, span := tracer.Start(ctx, "ERP.BuscarFornecedor")
	defer span.End()
	span.SetAttributes(attribute.Int64("fornecedor.id", id))

	var fornecedor *domain.Fornecedor
	err := c.doWithRetry(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/fornecedores/%d", id), nil)
		if err != nil {
			return err
		}
		if body == nil {
			return &domain.ErrNotFound{Resource: "fornecedor", ID: fmt.Sprint(id)}
		}
		var f domain.Fornecedor
		if err := json.Unmarshal(body, &f); err != nil {
			return fmt.Errorf("decode fornecedor: %w", err)
		}
		fornecedor = &f
		return nil
	})
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, notFound
		}
		return nil, &domain.ErrExternalService{Service: "erp/fornecedores", Err: err}
	}
	return fornecedor, nil
}

// CriarFornecedor submits a supplier creation. A 409 from the backend
// (duplicate tax id) surfaces as ErrConflict.
func (c *Client) CriarFornecedor(ctx context.Context, novo *domain.NovoFornecedor) (*domain.Fornecedor, error) {
	ctx, span := tracer.Start(ctx, "ERP.CriarFornecedor")
	defer span.End()

	body, err := c.doRequest(ctx, http.MethodPost, "/fornecedores", novo)
	if err != nil {
		if conflictErr := asConflict(err, "Fornecedor já cadastrado com este CNPJ/CPF"); conflictErr != nil {
			return nil, conflictErr
		}
		return nil, &domain.ErrExternalService{Service: "erp/fornecedores", Err: err}
	}

	var f domain.Fornecedor
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, &domain.ErrExternalService{Service: "erp/fornecedores", Err: fmt.Errorf("decode fornecedor: %w", err)}
	}
	return &f, nil
}

// ============================================================
// Produtos
// ============================================================

// ListarProdutos fetches products filtered by search string and status.
func (c *Client) ListarProdutos(ctx context.Context, q, status string, limit int) ([]domain.Produto, error) {
	ctx, span := tracer.Start(ctx, "ERP.ListarProdutos")
	defer span.End()

	path := fmt.Sprintf("/produtos?limit=%d", limit)
	if q != "" {
		path += "&q=" + url.QueryEscape(q)
	}
	if status != "" {
		path += "&status=" + url.QueryEscape(status)
	}

	var produtos []domain.Produto
	err := c.doWithRetry(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		produtos, err = decodeList[domain.Produto](body)
		return err
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "erp/produtos", Err: err}
	}
	return produtos, nil
}

// CriarProduto submits a product creation.
func (c *Client) CriarProduto(ctx context.Context, novo *domain.NovoProduto) (*domain.Produto, error) {
	ctx, span := tracer.Start(ctx, "ERP.CriarProduto")
	defer span.End()

	body, err := c.doRequest(ctx, http.MethodPost, "/produtos", novo)
	if err != nil {
		if conflictErr := asConflict(err, "Produto já cadastrado"); conflictErr != nil {
			return nil, conflictErr
		}
		return nil, &domain.ErrExternalService{Service: "erp/produtos", Err: err}
	}

	var p domain.Produto
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, &domain.ErrExternalService{Service: "erp/produtos", Err: fmt.Errorf("decode produto: %w", err)}
	}
	return &p, nil
}

// RestaurarProduto reverts a soft-deleted product to active.
func (c *Client) RestaurarProduto(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "ERP.RestaurarProduto")
	defer span.End()
	span.SetAttributes(attribute.Int64("produto.id", id))

	_, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/produtos/%d/restaurar", id), nil)
	if err != nil {
		return &domain.ErrExternalService{Service: "erp/produtos", Err: err}
	}
	return nil
}

// ============================================================
// Grupos
// ============================================================

// ListarGrupos fetches product groups.
func (c *Client) ListarGrupos(ctx context.Context, limit int) ([]domain.Grupo, error) {
	ctx, span := tracer.Start(ctx, "ERP.ListarGrupos")
	defer span.End()

	var grupos []domain.Grupo
	err := c.doWithRetry(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/grupos?limit=%d", limit), nil)
		if err != nil {
			return err
		}
		grupos, err = decodeList[domain.Grupo](body)
		return err
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "erp/grupos", Err: err}
	}
	return grupos, nil
}

// CriarGrupo submits an inline group creation.
func (c *Client) CriarGrupo(ctx context.Context, novo *domain.NovoGrupo) (*domain.Grupo, error) {
	ctx, span := tracer.Start(ctx, "ERP.CriarGrupo")
	defer span.End()

	body, err := c.doRequest(ctx, http.MethodPost, "/grupos", novo)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "erp/grupos", Err: err}
	}

	var g domain.Grupo
	if err := json.Unmarshal(body, &g); err != nil {
		return nil, &domain.ErrExternalService{Service: "erp/grupos", Err: fmt.Errorf("decode grupo: %w", err)}
	}
	return &g, nil
}

// ============================================================
// Decoding helpers
// ============================================================

// listEnvelope accepts both response shapes the backend emits: a plain array
// or {"items": [...]}.
type listEnvelope[T any] struct {
	Items []T `json:"items"`
}

func decodeList[T any](body []byte) ([]T, error) {
	if len(body) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(body, &items); err == nil {
		return items, nil
	}
	var env listEnvelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if env.Items == nil {
		return []T{}, nil
	}
	return env.Items, nil
}

// asConflict converts a 409 statusError to a domain conflict error.
func asConflict(err error, msg string) error {
	var se *statusError
	if errors.As(err, &se) && se.status == http.StatusConflict {
		return &domain.ErrConflict{Message: msg}
	}
	return nil
}
