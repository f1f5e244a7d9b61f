package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// External is a capability hosted by an external signing service reachable
// over HTTP. The service internals are out of scope; the core only speaks the
// request envelope documented for ProviderHandle.
type External struct {
	address string
	pub     solana.PublicKey
	handle  ProviderHandle
}

// NewExternal builds an externally-hosted signer capability.
func NewExternal(address string, handle ProviderHandle) (*External, error) {
	pub, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("invalid signer address: %w", err)
	}
	if handle == nil {
		return nil, fmt.Errorf("provider handle is required")
	}
	return &External{address: address, pub: pub, handle: handle}, nil
}

func (e *External) Kind() ProviderKind          { return KindExternalSigner }
func (e *External) Address() string             { return e.address }
func (e *External) PublicKey() solana.PublicKey { return e.pub }
func (e *External) CanSign() bool               { return true }

func (e *External) AcquireSigner(ctx context.Context) (Signer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &providerSigner{handle: e.handle}, nil
}

// HTTPHandle speaks the provider request envelope over plain HTTP POST.
type HTTPHandle struct {
	baseURL string
	client  *http.Client
}

func NewHTTPHandle(baseURL string) *HTTPHandle {
	return &HTTPHandle{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type providerRequest struct {
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

type providerResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *providerError  `json:"error,omitempty"`
}

type providerError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *providerError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

func (h *HTTPHandle) Request(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(providerRequest{Method: method, Params: params})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/request", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	payload, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("signer service http %d: %s", res.StatusCode, strings.TrimSpace(string(payload)))
	}

	var out providerResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("malformed signer service response: %w", err)
	}
	if out.Error != nil {
		return nil, out.Error
	}
	return out.Result, nil
}
