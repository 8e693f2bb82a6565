// Package erp provides the HTTP client for the ERP REST backend. It is the
// concrete adapter behind port.CadastroStore and port.NotaStore: master data
// (fornecedores, produtos, grupos), notas fiscais CRUD and the XML import
// endpoint. The backend is authoritative for parsing, id assignment and sort
// order; this client never interprets file contents.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/gestorerp/notas-bfa-go/internal/infra/resilience"
)

var tracer = otel.Tracer("erp")

// Client wraps HTTP calls to the ERP backend API. XML uploads go through a
// separate http.Client because backend parsing is slower than plain CRUD and
// needs a longer timeout.
type Client struct {
	httpClient   *http.Client
	importClient *http.Client
	baseURL      string
	apiKey       string
	cb           *gobreaker.CircuitBreaker
	cfg          resilience.Config
	logger       *zap.Logger
}

// NewClient creates an ERP backend client. importClient may be nil, in which
// case uploads share httpClient and its timeout.
func NewClient(httpClient, importClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	if importClient == nil {
		importClient = httpClient
	}
	return &Client{
		httpClient:   httpClient,
		importClient: importClient,
		baseURL:      baseURL,
		apiKey:       apiKey,
		cb:           cb,
		cfg:          cfg,
		logger:       logger,
	}
}

// doRequest executes an authenticated JSON request against the backend and
// returns the raw body. 404 and 204 return nil without error.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	url := fmt.Sprintf("%s%s", c.baseURL, path)

	var reqBody io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		c.logger.Error("erp: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("erp: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("erp: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, nil // no data
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("erp: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, &statusError{status: resp.StatusCode, body: string(body)}
	}

	c.logger.Debug("erp: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	return body, nil
}

// doWithRetry runs a backend call under the circuit breaker and retry policy.
func (c *Client) doWithRetry(ctx context.Context, fn func() error) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, fn)
	})
	return err
}

// statusError preserves the backend HTTP status so stores can map 409 to
// conflict errors.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("erp returned status %d: %s", e.status, e.body)
}
