package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	config "github.com/tigerroll/relist/pkg/batch/core/config"
	model "github.com/tigerroll/relist/pkg/batch/core/domain/model"
	"github.com/tigerroll/relist/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/relist/pkg/batch/support/util/logger"
)

// HTTPClient implements Client against the automation service's JSON API.
type HTTPClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPClient creates a new HTTPClient from configuration.
func NewHTTPClient(cfg config.AutomationConfig) *HTTPClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// modifyRequest is the payload for the listing modification operation.
type modifyRequest struct {
	OfferID       string `json:"offer_id"`
	Price         *int64 `json:"price,omitempty"`
	Rent          *int64 `json:"rent,omitempty"`
	FloorExposure *bool  `json:"floor_exposure,omitempty"`
}

// reAdvertiseRequest is the payload for the re-advertise operation.
type reAdvertiseRequest struct {
	OfferID string `json:"offer_id"`
}

// apiResponse is the common response envelope of the automation service.
type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (c *HTTPClient) Modify(ctx context.Context, item *model.BatchItem) error {
	req := modifyRequest{
		OfferID:       item.OfferID,
		Price:         item.ModifiedPrice,
		Rent:          item.ModifiedRent,
		FloorExposure: item.ModifiedFloorExposure,
	}
	return c.post(ctx, "/listings/modify", req)
}

func (c *HTTPClient) ReAdvertise(ctx context.Context, item *model.BatchItem) error {
	req := reAdvertiseRequest{OfferID: item.OfferID}
	return c.post(ctx, "/listings/readvertise", req)
}

// post sends one JSON request and classifies the outcome. Transport errors
// and 5xx responses are retryable; 4xx responses and business failures
// reported in the envelope are not.
func (c *HTTPClient) post(ctx context.Context, path string, payload interface{}) error {
	const op = "automation.post"

	body, err := json.Marshal(payload)
	if err != nil {
		return exception.NewBatchError("automation", fmt.Sprintf("%s: failed to marshal request for %s", op, path), err, false)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return exception.NewBatchError("automation", fmt.Sprintf("%s: failed to build request for %s", op, path), err, false)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		// Transport-level failure (connection refused, timeout). Retryable.
		return exception.NewBatchError("automation", fmt.Sprintf("%s: request to %s failed", op, path), err, true)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return exception.NewBatchError("automation", fmt.Sprintf("%s: failed to read response from %s", op, path), err, true)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return exception.NewBatchError("automation",
			fmt.Sprintf("%s: %s returned status %d", op, path, resp.StatusCode), nil, true)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return exception.NewBatchError("automation",
			fmt.Sprintf("%s: %s returned status %d: %s", op, path, resp.StatusCode, string(respBody)), nil, false)
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		logger.Warnf("automation: unparseable response body from %s: %v", path, err)
		// A 2xx with a broken body is treated as success; the remote side
		// committed the operation.
		return nil
	}
	if !envelope.Success {
		return exception.NewBatchError("automation",
			fmt.Sprintf("%s: %s rejected operation: %s", op, path, envelope.Message), nil, false)
	}
	return nil
}

var _ Client = (*HTTPClient)(nil)
