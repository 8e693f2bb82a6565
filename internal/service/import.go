package service

import (
	"context"
	"errors"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/gestorerp/notas-bfa-go/internal/domain"
)

// ResultadoIntake is what the import endpoint returns: the refreshed session
// state plus whether the supplier registration form should open because the
// document's CNPJ matched no registered supplier.
type ResultadoIntake struct {
	Estado                  *EstadoDraft `json:"estado"`
	AbrirCadastroFornecedor bool         `json:"abrir_cadastro_fornecedor"`
}

// ImportarXML submits the fiscal document to the backend parser and applies
// the result to the session. A re-import replaces the whole draft content,
// including any product bindings already made. Import runs inside the
// bulkhead so a burst of uploads cannot starve the rest of the API.
func (s *IntakeService) ImportarXML(ctx context.Context, draftID, filename string, file io.Reader) (*ResultadoIntake, error) {
	ctx, span := tracer.Start(ctx, "Intake.ImportarXML")
	defer span.End()
	span.SetAttributes(
		attribute.String("draft.id", draftID),
		attribute.String("arquivo", filename),
	)

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("importar_xml", time.Since(start)) }()

	defer s.lock(draftID)()

	draft, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}

	if err := s.importBulkhead.Acquire(ctx); err != nil {
		s.metrics.IncrImport("rejected")
		return nil, err
	}
	defer s.importBulkhead.Release()

	res, err := s.notas.ImportarXML(ctx, filename, file)
	if err != nil {
		s.metrics.IncrImport("error")
		s.metrics.IncrExternalError("erp/import")
		s.logger.Warn("falha na importação do XML",
			zap.String("draft_id", draftID),
			zap.String("arquivo", filename),
			zap.Error(err),
		)
		var imp *domain.ErrImportacao
		if !errors.As(err, &imp) {
			err = &domain.ErrImportacao{Err: err}
		}
		return nil, err
	}

	draft.AplicarImportacao(res)
	if err := s.drafts.Put(ctx, draft); err != nil {
		return nil, err
	}

	s.metrics.IncrImport("success")
	s.logger.Info("XML importado",
		zap.String("draft_id", draftID),
		zap.String("arquivo", filename),
		zap.Int("itens", len(draft.Itens)),
		zap.Bool("fornecedor_encontrado", !draft.FornecedorPendente),
	)

	return &ResultadoIntake{
		Estado:                  estadoDe(draft),
		AbrirCadastroFornecedor: draft.FornecedorPendente,
	}, nil
}
