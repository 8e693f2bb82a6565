// Package service implements the invoice intake workflow: draft sessions,
// XML import, supplier matching, product binding and the save gate.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/gestorerp/notas-bfa-go/internal/domain"
	"github.com/gestorerp/notas-bfa-go/internal/infra/observability"
	"github.com/gestorerp/notas-bfa-go/internal/infra/resilience"
	"github.com/gestorerp/notas-bfa-go/internal/port"
)

var tracer = otel.Tracer("service")

// Limites are the fixed candidate-list page sizes fetched from the backend.
// Selection lists are not paginated further on the client side.
type Limites struct {
	Fornecedores int
	Produtos     int
	Grupos       int
}

// IntakeService drives the invoice intake workflow. The draft state is the
// only shared mutable resource; it is owned by one session and mutated only
// through the domain transition methods.
type IntakeService struct {
	drafts    port.DraftStore
	notas     port.NotaStore
	cadastros port.CadastroStore

	fornecedoresCache port.Cache[[]domain.Fornecedor]
	produtosCache     port.Cache[[]domain.Produto]
	gruposCache       port.Cache[[]domain.Grupo]

	importBulkhead *resilience.Bulkhead
	limites        Limites
	metrics        *observability.Metrics
	logger         *zap.Logger

	// One intake session is driven by one user, so mutations are naturally
	// serialized; the per-draft lock only guards against overlapping HTTP
	// requests for the same session.
	locks sync.Map // draftID -> *sync.Mutex
}

// NewIntake wires the intake workflow service.
func NewIntake(
	drafts port.DraftStore,
	notas port.NotaStore,
	cadastros port.CadastroStore,
	fornecedoresCache port.Cache[[]domain.Fornecedor],
	produtosCache port.Cache[[]domain.Produto],
	gruposCache port.Cache[[]domain.Grupo],
	importBulkhead *resilience.Bulkhead,
	limites Limites,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *IntakeService {
	return &IntakeService{
		drafts:            drafts,
		notas:             notas,
		cadastros:         cadastros,
		fornecedoresCache: fornecedoresCache,
		produtosCache:     produtosCache,
		gruposCache:       gruposCache,
		importBulkhead:    importBulkhead,
		limites:           limites,
		metrics:           metrics,
		logger:            logger,
	}
}

func (s *IntakeService) lock(draftID string) func() {
	v, _ := s.locks.LoadOrStore(draftID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// EstadoDraft is the draft plus the derived gate state, the shape handlers
// return after every mutation.
type EstadoDraft struct {
	Draft          *domain.NotaDraft `json:"draft"`
	TudoValido     bool              `json:"tudo_valido"`
	ItensPendentes []int             `json:"itens_pendentes,omitempty"`
}

func estadoDe(d *domain.NotaDraft) *EstadoDraft {
	return &EstadoDraft{
		Draft:          d,
		TudoValido:     d.TudoValido(),
		ItensPendentes: d.ItensPendentes(),
	}
}

// ============================================================
// Draft lifecycle
// ============================================================

// AbrirDraft opens an intake session: empty for a new invoice, hydrated from
// the backend when notaID is given (edit mode).
func (s *IntakeService) AbrirDraft(ctx context.Context, notaID *int64) (*EstadoDraft, error) {
	ctx, span := tracer.Start(ctx, "Intake.AbrirDraft")
	defer span.End()

	draft := &domain.NotaDraft{
		DraftID:  uuid.New().String(),
		Itens:    []domain.ItemNota{},
		CriadoEm: time.Now(),
	}
	draft.AtualizadoEm = draft.CriadoEm

	if notaID != nil {
		span.SetAttributes(attribute.Int64("nota.id", *notaID))
		nota, err := s.notas.BuscarNota(ctx, *notaID)
		if err != nil {
			return nil, err
		}
		draft.HidratarDeNota(nota)
	}

	if err := s.drafts.Put(ctx, draft); err != nil {
		return nil, err
	}

	s.logger.Info("draft aberto",
		zap.String("draft_id", draft.DraftID),
		zap.Bool("edicao", notaID != nil),
	)
	return estadoDe(draft), nil
}

// BuscarDraft returns the current session state.
func (s *IntakeService) BuscarDraft(ctx context.Context, draftID string) (*EstadoDraft, error) {
	draft, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return estadoDe(draft), nil
}

// DescartarDraft drops the session without persisting anything.
func (s *IntakeService) DescartarDraft(ctx context.Context, draftID string) error {
	// The lock entry is removed only after unlock; removing it while the
	// mutex is held would let a request arriving mid-discard mint a second
	// mutex for the same draft. Deferred calls run in reverse order.
	defer s.locks.Delete(draftID)
	defer s.lock(draftID)()
	return s.drafts.Delete(ctx, draftID)
}

// AtualizarCabecalho applies manual header edits.
func (s *IntakeService) AtualizarCabecalho(ctx context.Context, draftID string, cab domain.CabecalhoNota) (*EstadoDraft, error) {
	defer s.lock(draftID)()

	draft, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	draft.PreencherCabecalho(cab)
	if err := s.drafts.Put(ctx, draft); err != nil {
		return nil, err
	}
	return estadoDe(draft), nil
}

// ============================================================
// Commit
// ============================================================

// Salvar submits the whole draft to the backend when the gate allows it.
// An incomplete draft fails with ErrNotaIncompleta before any network call;
// a backend failure leaves the draft retained for correction and retry.
func (s *IntakeService) Salvar(ctx context.Context, draftID string) (*domain.Nota, error) {
	ctx, span := tracer.Start(ctx, "Intake.Salvar")
	defer span.End()
	span.SetAttributes(attribute.String("draft.id", draftID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("salvar_nota", time.Since(start)) }()

	// On success the lock entry is dropped, after unlock (reverse defer
	// order), so a late request cannot mint a second mutex while the
	// session teardown is still running.
	sessaoEncerrada := false
	defer func() {
		if sessaoEncerrada {
			s.locks.Delete(draftID)
		}
	}()
	defer s.lock(draftID)()

	draft, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}

	if !draft.TudoValido() {
		return nil, &domain.ErrNotaIncompleta{Motivo: motivoIncompleta(draft)}
	}

	payload := draft.Payload()

	var nota *domain.Nota
	if draft.NotaID != nil {
		nota, err = s.notas.AtualizarNota(ctx, *draft.NotaID, payload)
	} else {
		nota, err = s.notas.CriarNota(ctx, payload)
	}
	if err != nil {
		s.metrics.IncrNotaSalva("error")
		s.metrics.IncrExternalError("erp/notas")
		s.logger.Warn("falha ao salvar nota",
			zap.String("draft_id", draftID),
			zap.Error(err),
		)
		return nil, err
	}

	// The session is done; the caller refreshes its list screen.
	if err := s.drafts.Delete(ctx, draftID); err != nil {
		s.logger.Warn("falha ao descartar draft após salvar",
			zap.String("draft_id", draftID),
			zap.Error(err),
		)
	}
	sessaoEncerrada = true

	s.metrics.IncrNotaSalva("success")
	s.logger.Info("nota salva",
		zap.String("draft_id", draftID),
		zap.Int64("nota_id", nota.ID),
		zap.Int("itens", len(payload.Itens)),
	)
	return nota, nil
}

func motivoIncompleta(d *domain.NotaDraft) string {
	switch {
	case d.FornecedorID == nil:
		return "fornecedor não vinculado"
	case len(d.Itens) == 0:
		return "nota sem itens"
	default:
		return fmt.Sprintf("%d item(ns) sem produto vinculado", len(d.ItensPendentes()))
	}
}
