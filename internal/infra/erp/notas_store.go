package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/gestorerp/notas-bfa-go/internal/domain"
)

// ============================================================
// Notas fiscais — implements port.NotaStore
// ============================================================

// ListarNotas fetches invoices with optional search and pagination.
func (c *Client) ListarNotas(ctx context.Context, q string, page, limit int) ([]domain.Nota, error) {
	ctx, span := tracer.Start(ctx, "ERP.ListarNotas")
	defer span.End()

	path := fmt.Sprintf("/notas?page=%d&limit=%d", page, limit)
	if q != "" {
		path += "&q=" + url.QueryEscape(q)
	}

	var notas []domain.Nota
	err := c.doWithRetry(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		notas, err = decodeList[domain.Nota](body)
		return err
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "erp/notas", Err: err}
	}
	return notas, nil
}

// BuscarNota fetches one invoice, header plus itens.
func (c *Client) BuscarNota(ctx context.Context, id int64) (*domain.Nota, error) {
	ctx, span := tracer.Start(ctx, "ERP.BuscarNota")
	defer span.End()
	span.SetAttributes(attribute.Int64("nota.id", id))

	var nota *domain.Nota
	err := c.doWithRetry(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/notas/%d", id), nil)
		if err != nil {
			return err
		}
		if body == nil {
			return &domain.ErrNotFound{Resource: "nota", ID: fmt.Sprint(id)}
		}
		var n domain.Nota
		if err := json.Unmarshal(body, &n); err != nil {
			return fmt.Errorf("decode nota: %w", err)
		}
		nota = &n
		return nil
	})
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, notFound
		}
		return nil, &domain.ErrExternalService{Service: "erp/notas", Err: err}
	}
	return nota, nil
}

// CriarNota submits the full draft payload as one create call. Creates are
// not retried: the backend assigns ids and a blind retry could duplicate the
// invoice.
func (c *Client) CriarNota(ctx context.Context, payload *domain.NotaPayload) (*domain.Nota, error) {
	ctx, span := tracer.Start(ctx, "ERP.CriarNota")
	defer span.End()

	body, err := c.doRequest(ctx, http.MethodPost, "/notas", payload)
	if err != nil {
		if conflictErr := asConflict(err, "Nota fiscal já cadastrada com esta chave de acesso"); conflictErr != nil {
			return nil, conflictErr
		}
		return nil, &domain.ErrExternalService{Service: "erp/notas", Err: err}
	}

	var n domain.Nota
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, &domain.ErrExternalService{Service: "erp/notas", Err: fmt.Errorf("decode nota: %w", err)}
	}
	return &n, nil
}

// AtualizarNota submits the full draft payload as one update call.
func (c *Client) AtualizarNota(ctx context.Context, id int64, payload *domain.NotaPayload) (*domain.Nota, error) {
	ctx, span := tracer.Start(ctx, "ERP.AtualizarNota")
	defer span.End()
	span.SetAttributes(attribute.Int64("nota.id", id))

	body, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/notas/%d", id), payload)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "erp/notas", Err: err}
	}

	var n domain.Nota
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, &domain.ErrExternalService{Service: "erp/notas", Err: fmt.Errorf("decode nota: %w", err)}
	}
	return &n, nil
}

// ExcluirNota deletes an invoice.
func (c *Client) ExcluirNota(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "ERP.ExcluirNota")
	defer span.End()
	span.SetAttributes(attribute.Int64("nota.id", id))

	_, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/notas/%d", id), nil)
	if err != nil {
		return &domain.ErrExternalService{Service: "erp/notas", Err: err}
	}
	return nil
}

// ============================================================
// XML import
// ============================================================

// ImportarXML uploads the fiscal document as multipart form-data (field
// "file", as the backend expects) and returns the parsed result. No retry:
// the import is not idempotent on the backend side.
func (c *Client) ImportarXML(ctx context.Context, filename string, file io.Reader) (*domain.ResultadoImportacao, error) {
	ctx, span := tracer.Start(ctx, "ERP.ImportarXML")
	defer span.End()
	span.SetAttributes(attribute.String("import.filename", filename))

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, &domain.ErrImportacao{Err: err}
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, &domain.ErrImportacao{Err: err}
	}
	if err := writer.Close(); err != nil {
		return nil, &domain.ErrImportacao{Err: err}
	}

	endpoint := fmt.Sprintf("%s/notas/import/xml", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, &domain.ErrImportacao{Err: err}
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.importClient.Do(req)
	if err != nil {
		c.logger.Error("erp: XML import request failed", zap.String("filename", filename), zap.Error(err))
		return nil, &domain.ErrImportacao{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ErrImportacao{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("erp: XML import rejected",
			zap.String("filename", filename),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, &domain.ErrImportacao{Err: &statusError{status: resp.StatusCode, body: string(body)}}
	}

	var res domain.ResultadoImportacao
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &domain.ErrImportacao{Err: fmt.Errorf("decode import result: %w", err)}
	}
	return &res, nil
}
