package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ltgsite/internal/reqctx"
	"ltgsite/internal/errcode"
)

// FunctionName is the mail function's route below the functions base URL.
const FunctionName = "send-anfrage"

// FunctionClient invokes the mail function over HTTP.
type FunctionClient struct {
	url     string
	anonKey string
	client  *http.Client
}

// NewFunctionClient posts to url, authenticating with the public anon key.
func NewFunctionClient(url, anonKey string, timeout time.Duration) *FunctionClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FunctionClient{
		url:     url,
		anonKey: anonKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type functionResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Send posts p and requires a {"ok": true} answer.
func (c *FunctionClient) Send(ctx context.Context, p Payload) error {
	const op = "intake.send"

	body, err := json.Marshal(p)
	if err != nil {
		return errcode.FunctionError(op, "Anfrage konnte nicht kodiert werden.", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errcode.FunctionError(op, "Edge Function Fehler", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}
	if id := reqctx.CorrelationID(ctx); id != "" {
		req.Header.Set(reqctx.CorrelationIDHeader, id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errcode.FunctionError(op, "Edge Function Fehler", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return errcode.FunctionError(op, "Edge Function Fehler", err)
	}

	var out functionResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(out.Error)
		if decodeErr != nil || msg == "" {
			msg = fmt.Sprintf("Edge Function antwortete mit Status %d", resp.StatusCode)
		}
		return errcode.FunctionError(op, msg, nil)
	}
	if decodeErr != nil || !out.OK {
		msg := strings.TrimSpace(out.Error)
		if msg == "" {
			msg = "Unbekannter Fehler beim Versand"
		}
		return errcode.FunctionError(op, msg, nil)
	}
	return nil
}
