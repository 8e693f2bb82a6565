package service

import (
	"context"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/gestorerp/notas-bfa-go/internal/domain"
)

const cacheChaveFornecedores = "fornecedores"

// ListarFornecedores returns supplier candidates for manual linkage. The full
// list is fetched once and cached; the filter narrows it in memory, matching
// by name (case-insensitive contains) or by the id rendered as text. An empty
// filter returns everything.
func (s *IntakeService) ListarFornecedores(ctx context.Context, filtro string) ([]domain.Fornecedor, error) {
	lista, ok := s.fornecedoresCache.Get(cacheChaveFornecedores)
	if ok {
		s.metrics.IncrCacheHit("fornecedores")
	} else {
		s.metrics.IncrCacheMiss("fornecedores")
		var err error
		lista, err = s.cadastros.ListarFornecedores(ctx, "", s.limites.Fornecedores)
		if err != nil {
			s.metrics.IncrExternalError("erp/fornecedores")
			return nil, err
		}
		s.fornecedoresCache.Set(cacheChaveFornecedores, lista)
	}
	return FiltrarFornecedores(lista, filtro), nil
}

// FiltrarFornecedores narrows the candidate list by name or numeric id.
func FiltrarFornecedores(lista []domain.Fornecedor, filtro string) []domain.Fornecedor {
	if filtro == "" {
		return lista
	}
	alvo := strings.ToLower(filtro)
	out := make([]domain.Fornecedor, 0, len(lista))
	for _, f := range lista {
		if strings.Contains(strings.ToLower(f.Nome), alvo) ||
			strings.Contains(strconv.FormatInt(f.ID, 10), filtro) {
			out = append(out, f)
		}
	}
	return out
}

// SelecionarFornecedor binds the draft to an existing supplier picked from the
// candidate list. The supplier is looked up first so a stale id fails with
// ErrNotFound instead of committing a dangling reference.
func (s *IntakeService) SelecionarFornecedor(ctx context.Context, draftID string, fornecedorID int64) (*EstadoDraft, error) {
	ctx, span := tracer.Start(ctx, "Intake.SelecionarFornecedor")
	defer span.End()
	span.SetAttributes(attribute.Int64("fornecedor.id", fornecedorID))

	defer s.lock(draftID)()

	draft, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	fornecedor, err := s.cadastros.BuscarFornecedor(ctx, fornecedorID)
	if err != nil {
		return nil, err
	}

	draft.DefinirFornecedor(fornecedor.ID)
	if err := s.drafts.Put(ctx, draft); err != nil {
		return nil, err
	}

	s.logger.Info("fornecedor vinculado",
		zap.String("draft_id", draftID),
		zap.Int64("fornecedor_id", fornecedor.ID),
	)
	return estadoDe(draft), nil
}

// PreencherNovoFornecedor builds the creation payload pre-filled from the
// imported supplier snapshot, the state the registration form opens with.
func (s *IntakeService) PreencherNovoFornecedor(ctx context.Context, draftID string) (*domain.NovoFornecedor, error) {
	draft, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	novo := draft.Fornecedor.DeSnapshot()
	return &novo, nil
}

// CriarFornecedor registers a new supplier and binds the draft to it in one
// step. The cached candidate list is dropped so the next listing reflects the
// creation.
func (s *IntakeService) CriarFornecedor(ctx context.Context, draftID string, novo *domain.NovoFornecedor) (*EstadoDraft, error) {
	ctx, span := tracer.Start(ctx, "Intake.CriarFornecedor")
	defer span.End()

	defer s.lock(draftID)()

	draft, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if err := novo.Validar(); err != nil {
		return nil, err
	}

	fornecedor, err := s.cadastros.CriarFornecedor(ctx, novo)
	if err != nil {
		s.metrics.IncrExternalError("erp/fornecedores")
		return nil, err
	}
	s.fornecedoresCache.Delete(cacheChaveFornecedores)

	draft.DefinirFornecedor(fornecedor.ID)
	if err := s.drafts.Put(ctx, draft); err != nil {
		return nil, err
	}

	s.logger.Info("fornecedor cadastrado durante a importação",
		zap.String("draft_id", draftID),
		zap.Int64("fornecedor_id", fornecedor.ID),
		zap.String("tipo_pessoa", novo.TipoPessoa),
	)
	return estadoDe(draft), nil
}

// CancelarCadastroFornecedor abandons the supplier creation flow. The pending
// flag and the imported snapshot are cleared; the draft stays open but cannot
// be saved until a supplier is linked by other means.
func (s *IntakeService) CancelarCadastroFornecedor(ctx context.Context, draftID string) (*EstadoDraft, error) {
	defer s.lock(draftID)()

	draft, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	draft.LimparFornecedor()
	if err := s.drafts.Put(ctx, draft); err != nil {
		return nil, err
	}

	s.logger.Info("cadastro de fornecedor cancelado", zap.String("draft_id", draftID))
	return estadoDe(draft), nil
}
