package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amirphl/pn-backup/utils"
)

const maxAttachResponseBytes = 1 << 20

// AttachGateway tells the telephony platform to route a physical number as backup for a virtual number
type AttachGateway interface {
	// Attach issues exactly one request. The payload is the parsed response on success
	// or a diagnostic map on failure; it is never nil.
	Attach(ctx context.Context, vnNumber, pnNumber, tenantID string) (bool, map[string]any)
}

type attachRequest struct {
	VN       string `json:"vn"`
	PN       string `json:"pn"`
	TenantID string `json:"tenant_id"`
}

// AttachClient posts attach requests to the add-PN endpoint
type AttachClient struct {
	URL        string
	Headers    map[string]string
	HTTPClient *http.Client
	Timeout    time.Duration
}

func NewAttachClient(url string, timeout time.Duration, headers map[string]string) *AttachClient {
	if timeout <= 0 {
		timeout = utils.AttachAPITimeout
	}
	return &AttachClient{
		URL:        strings.TrimSpace(url),
		Headers:    headers,
		HTTPClient: &http.Client{Timeout: timeout},
		Timeout:    timeout,
	}
}

// Attach posts {"vn","pn","tenant_id"}. No retry: a repeated call could double-attach.
func (c *AttachClient) Attach(ctx context.Context, vnNumber, pnNumber, tenantID string) (bool, map[string]any) {
	body, err := json.Marshal(attachRequest{VN: vnNumber, PN: pnNumber, TenantID: tenantID})
	if err != nil {
		return false, map[string]any{"error": err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return false, map[string]any{"error": err.Error()}
	}
	for name, value := range c.Headers {
		req.Header.Set(name, value)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, map[string]any{"error": err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachResponseBytes))
	if err != nil {
		return false, map[string]any{"error": fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return false, map[string]any{
			"status_code": resp.StatusCode,
			"text":        string(raw),
		}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return true, map[string]any{}
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
		// the platform already attached the number; keep the body for the record
		return true, map[string]any{"raw": string(raw)}
	}
	return true, payload
}
