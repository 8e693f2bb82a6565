package service

import (
	"context"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/gestorerp/notas-bfa-go/internal/domain"
)

const cacheChaveGrupos = "grupos"

// Each status slice keeps its own cache entry.
func cacheChaveProdutos(status string) string {
	return "produtos:" + status
}

// ListarProdutos returns product candidates filtered in memory with the same
// semantics as the supplier list. status selects the backend slice: empty
// defaults to "ativo" (item binding only offers active products), "inativo"
// feeds the restore screen.
func (s *IntakeService) ListarProdutos(ctx context.Context, filtro, status string) ([]domain.Produto, error) {
	if status == "" {
		status = "ativo"
	}
	chave := cacheChaveProdutos(status)

	lista, ok := s.produtosCache.Get(chave)
	if ok {
		s.metrics.IncrCacheHit("produtos")
	} else {
		s.metrics.IncrCacheMiss("produtos")
		var err error
		lista, err = s.cadastros.ListarProdutos(ctx, "", status, s.limites.Produtos)
		if err != nil {
			s.metrics.IncrExternalError("erp/produtos")
			return nil, err
		}
		s.produtosCache.Set(chave, lista)
	}
	return FiltrarProdutos(lista, filtro), nil
}

// FiltrarProdutos narrows the candidate list by name or numeric id.
func FiltrarProdutos(lista []domain.Produto, filtro string) []domain.Produto {
	if filtro == "" {
		return lista
	}
	alvo := strings.ToLower(filtro)
	out := make([]domain.Produto, 0, len(lista))
	for _, p := range lista {
		if strings.Contains(strings.ToLower(p.Nome), alvo) ||
			strings.Contains(strconv.FormatInt(p.ID, 10), filtro) {
			out = append(out, p)
		}
	}
	return out
}

// ListarGrupos returns the product groups for the creation form.
func (s *IntakeService) ListarGrupos(ctx context.Context) ([]domain.Grupo, error) {
	if lista, ok := s.gruposCache.Get(cacheChaveGrupos); ok {
		s.metrics.IncrCacheHit("grupos")
		return lista, nil
	}
	s.metrics.IncrCacheMiss("grupos")
	lista, err := s.cadastros.ListarGrupos(ctx, s.limites.Grupos)
	if err != nil {
		s.metrics.IncrExternalError("erp/grupos")
		return nil, err
	}
	s.gruposCache.Set(cacheChaveGrupos, lista)
	return lista, nil
}

// VincularProduto resolves an invoice line against an existing product.
func (s *IntakeService) VincularProduto(ctx context.Context, draftID string, indice int, produtoID int64) (*EstadoDraft, error) {
	ctx, span := tracer.Start(ctx, "Intake.VincularProduto")
	defer span.End()
	span.SetAttributes(
		attribute.Int("item.indice", indice),
		attribute.Int64("produto.id", produtoID),
	)

	defer s.lock(draftID)()

	draft, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if err := draft.ResolverItem(indice, produtoID); err != nil {
		return nil, err
	}
	if err := s.drafts.Put(ctx, draft); err != nil {
		return nil, err
	}

	s.metrics.IncrItemResolvido("vinculo")
	s.logger.Info("item vinculado a produto existente",
		zap.String("draft_id", draftID),
		zap.Int("indice", indice),
		zap.Int64("produto_id", produtoID),
	)
	return estadoDe(draft), nil
}

// PreencherNovoProduto builds a creation payload pre-filled from the invoice
// line, the state the product registration form opens with.
func (s *IntakeService) PreencherNovoProduto(ctx context.Context, draftID string, indice int) (*domain.NovoProduto, error) {
	draft, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if indice < 0 || indice >= len(draft.Itens) {
		return nil, &domain.ErrValidation{Field: "indice", Message: "item inexistente na nota"}
	}

	item := draft.Itens[indice]
	novo := &domain.NovoProduto{
		Nome:          item.Descricao,
		Codigo:        item.Codigo,
		EAN:           item.EAN,
		Unidade:       item.UnidadeMedida,
		ValorUnitario: item.ValorUnitario,
	}
	if draft.FornecedorID != nil {
		id := *draft.FornecedorID
		novo.FornecedorID = &id
	}
	return novo, nil
}

// CriarProdutoParaItem registers a new product and resolves the invoice line
// against it in one step. The cached candidate list is dropped so the next
// listing reflects the creation.
func (s *IntakeService) CriarProdutoParaItem(ctx context.Context, draftID string, indice int, novo *domain.NovoProduto) (*EstadoDraft, error) {
	ctx, span := tracer.Start(ctx, "Intake.CriarProdutoParaItem")
	defer span.End()
	span.SetAttributes(attribute.Int("item.indice", indice))

	defer s.lock(draftID)()

	draft, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if indice < 0 || indice >= len(draft.Itens) {
		return nil, &domain.ErrValidation{Field: "indice", Message: "item inexistente na nota"}
	}
	if err := novo.Validar(); err != nil {
		return nil, err
	}

	produto, err := s.cadastros.CriarProduto(ctx, novo)
	if err != nil {
		s.metrics.IncrExternalError("erp/produtos")
		return nil, err
	}
	s.produtosCache.Delete(cacheChaveProdutos("ativo"))

	if err := draft.ResolverItem(indice, produto.ID); err != nil {
		return nil, err
	}
	if err := s.drafts.Put(ctx, draft); err != nil {
		return nil, err
	}

	s.metrics.IncrItemResolvido("cadastro")
	s.logger.Info("produto cadastrado durante a importação",
		zap.String("draft_id", draftID),
		zap.Int("indice", indice),
		zap.Int64("produto_id", produto.ID),
	)
	return estadoDe(draft), nil
}

// CriarGrupo registers a product group inline from the product form.
func (s *IntakeService) CriarGrupo(ctx context.Context, novo *domain.NovoGrupo) (*domain.Grupo, error) {
	if err := novo.Validar(); err != nil {
		return nil, err
	}
	grupo, err := s.cadastros.CriarGrupo(ctx, novo)
	if err != nil {
		s.metrics.IncrExternalError("erp/grupos")
		return nil, err
	}
	s.gruposCache.Delete(cacheChaveGrupos)

	s.logger.Info("grupo criado", zap.Int64("grupo_id", grupo.ID), zap.String("nome", grupo.Nome))
	return grupo, nil
}

// RestaurarProduto reactivates an inactive product so it can be bound again.
// The product moves between status slices, so both cache entries are dropped.
func (s *IntakeService) RestaurarProduto(ctx context.Context, produtoID int64) error {
	if err := s.cadastros.RestaurarProduto(ctx, produtoID); err != nil {
		s.metrics.IncrExternalError("erp/produtos")
		return err
	}
	s.produtosCache.Delete(cacheChaveProdutos("ativo"))
	s.produtosCache.Delete(cacheChaveProdutos("inativo"))
	s.logger.Info("produto restaurado", zap.Int64("produto_id", produtoID))
	return nil
}
