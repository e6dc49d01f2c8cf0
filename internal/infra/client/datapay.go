// Package client holds the HTTP adapters for the services the BFA consumes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("client")

const serviceName = "datapay"

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 4 << 10

// DataPayClient talks to the DataPay calculations API.
type DataPayClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewDataPayClient creates a new DataPayClient. An empty token sends no
// Authorization header.
func NewDataPayClient(httpClient *http.Client, baseURL, token string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *DataPayClient {
	return &DataPayClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		cb:         cb,
		cfg:        cfg,
	}
}

// Start opens a calculation for profile.
func (c *DataPayClient) Start(ctx context.Context, profile domain.Profile) (*domain.SessionHandle, error) {
	ctx, span := tracer.Start(ctx, "DataPayClient.Start")
	defer span.End()

	var handle *domain.SessionHandle
	err := c.execute(ctx, true, func() error {
		var resp domain.StartCalculationResponse
		if err := c.do(ctx, "start", http.MethodPost, "/calculations/start", profile, &resp); err != nil {
			return err
		}
		if !resp.Success || resp.CalculationID == "" {
			return resilience.Permanent(&domain.ErrBackendRejected{Operation: "start", Message: resp.Error})
		}
		handle = &domain.SessionHandle{SessionID: resp.SessionID, CalculationID: resp.CalculationID}
		return nil
	})
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("calculation.id", handle.CalculationID))
	return handle, nil
}

// Update replaces the profile held by the backend for calculationID.
func (c *DataPayClient) Update(ctx context.Context, calculationID string, profile domain.Profile) error {
	ctx, span := tracer.Start(ctx, "DataPayClient.Update")
	defer span.End()
	span.SetAttributes(attribute.String("calculation.id", calculationID))

	path := fmt.Sprintf("/calculations/%s/update", url.PathEscape(calculationID))
	err := c.execute(ctx, true, func() error {
		return c.do(ctx, "update", http.MethodPut, path, profile, nil)
	})
	if err != nil {
		recordSpanError(span, err)
	}
	return err
}

// Calculate runs the final valuation. A failed calculate is not retried
// because the backend may already have started computing.
func (c *DataPayClient) Calculate(ctx context.Context, calculationID string) (*domain.ValuationResult, error) {
	ctx, span := tracer.Start(ctx, "DataPayClient.Calculate")
	defer span.End()
	span.SetAttributes(attribute.String("calculation.id", calculationID))

	path := fmt.Sprintf("/calculations/%s/calculate", url.PathEscape(calculationID))
	result, err := c.fetchResult(ctx, "calculate", http.MethodPost, path, false)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Float64("valuation.total", result.Total))
	return result, nil
}

// Get returns the result of a finished calculation.
func (c *DataPayClient) Get(ctx context.Context, calculationID string) (*domain.ValuationResult, error) {
	ctx, span := tracer.Start(ctx, "DataPayClient.Get")
	defer span.End()
	span.SetAttributes(attribute.String("calculation.id", calculationID))

	path := fmt.Sprintf("/calculations/%s", url.PathEscape(calculationID))
	result, err := c.fetchResult(ctx, "get", http.MethodGet, path, true)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			nf.ID = calculationID
		}
		recordSpanError(span, err)
		return nil, err
	}
	return result, nil
}

func (c *DataPayClient) fetchResult(ctx context.Context, op, method, path string, retry bool) (*domain.ValuationResult, error) {
	var result *domain.ValuationResult
	err := c.execute(ctx, retry, func() error {
		var resp domain.CalculationResponse
		if err := c.do(ctx, op, method, path, nil, &resp); err != nil {
			return err
		}
		if !resp.Success {
			return resilience.Permanent(&domain.ErrBackendRejected{Operation: op, Message: resp.Error})
		}
		if resp.Result == nil {
			return resilience.Permanent(&domain.ErrBackendRejected{Operation: op, Message: "resposta sem resultado"})
		}
		result = resp.Result
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Source = domain.SourceBackend
	return result, nil
}

// ============================================================
// Transport
// ============================================================

// execute runs fn inside the circuit breaker, retrying when asked, and maps
// the outcome onto domain errors.
func (c *DataPayClient) execute(ctx context.Context, retry bool, fn func() error) error {
	_, err := c.cb.Execute(func() (any, error) {
		var innerErr error
		if retry {
			innerErr = resilience.RetryWithBackoff(ctx, c.cfg, fn)
		} else {
			innerErr = fn()
		}
		if innerErr != nil && isRejection(innerErr) && !resilience.IsPermanent(innerErr) {
			// Rejections count as successes for the breaker.
			innerErr = resilience.Permanent(innerErr)
		}
		return nil, innerErr
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: serviceName}
	}
	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		return nf
	}
	return &domain.ErrExternalService{Service: serviceName, Err: unwrapPermanent(err)}
}

// do sends one request. 4xx answers come back as permanent errors; 5xx and
// transport failures are left retryable.
func (c *DataPayClient) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return resilience.Permanent(err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return resilience.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return resilience.Permanent(&domain.ErrNotFound{Resource: "calculation"})
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return resilience.Permanent(&domain.ErrBackendRejected{Operation: op, Message: errorMessage(resp)})
	case resp.StatusCode >= 300:
		return fmt.Errorf("datapay API returned status %d: %s", resp.StatusCode, errorMessage(resp))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resilience.Permanent(fmt.Errorf("decode %s response: %w", op, err))
	}
	return nil
}

// errorMessage extracts the backend "error" field, falling back to the
// status text.
func errorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return http.StatusText(resp.StatusCode)
}

func isRejection(err error) bool {
	var rejected *domain.ErrBackendRejected
	var nf *domain.ErrNotFound
	return errors.As(err, &rejected) || errors.As(err, &nf)
}

func unwrapPermanent(err error) error {
	if resilience.IsPermanent(err) {
		if inner := errors.Unwrap(err); inner != nil {
			return inner
		}
	}
	return err
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
