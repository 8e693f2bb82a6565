package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/gestorerp/notas-bfa-go/internal/domain"
)

// Selecoes bundles the three candidate lists the intake screen needs. They
// are fetched together so the screen renders in one round trip.
type Selecoes struct {
	Fornecedores []domain.Fornecedor `json:"fornecedores"`
	Produtos     []domain.Produto    `json:"produtos"`
	Grupos       []domain.Grupo      `json:"grupos"`
}

// CarregarSelecoes loads suppliers, products and groups concurrently. Each
// list goes through its own cache; a failure on any of them fails the whole
// call, since a partial selection screen is worse than a retry.
func (s *IntakeService) CarregarSelecoes(ctx context.Context, filtro string) (*Selecoes, error) {
	ctx, span := tracer.Start(ctx, "Intake.CarregarSelecoes")
	defer span.End()

	sel := &Selecoes{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lista, err := s.ListarFornecedores(ctx, filtro)
		if err != nil {
			return err
		}
		sel.Fornecedores = lista
		return nil
	})
	g.Go(func() error {
		lista, err := s.ListarProdutos(ctx, filtro, "")
		if err != nil {
			return err
		}
		sel.Produtos = lista
		return nil
	})
	g.Go(func() error {
		lista, err := s.ListarGrupos(ctx)
		if err != nil {
			return err
		}
		sel.Grupos = lista
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sel, nil
}

// ListarNotas is the list-screen passthrough.
func (s *IntakeService) ListarNotas(ctx context.Context, q string, page, limit int) ([]domain.Nota, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.notas.ListarNotas(ctx, q, page, limit)
}

// BuscarNota returns a persisted invoice.
func (s *IntakeService) BuscarNota(ctx context.Context, id int64) (*domain.Nota, error) {
	return s.notas.BuscarNota(ctx, id)
}

// ExcluirNota removes a persisted invoice from the list screen.
func (s *IntakeService) ExcluirNota(ctx context.Context, id int64) error {
	return s.notas.ExcluirNota(ctx, id)
}
