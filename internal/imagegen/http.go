package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProvider calls an OpenAI-compatible images endpoint
// (POST {base}/v1/images/generations, b64_json response format).
type HTTPProvider struct {
	base       string
	apiKey     string
	httpClient *http.Client
}

var _ Provider = (*HTTPProvider)(nil)

// NewHTTPProvider creates an HTTPProvider for the endpoint at base.
func NewHTTPProvider(base, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		base:       base,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *HTTPProvider) Generate(ctx context.Context, req Request) (*Image, error) {
	payload := map[string]any{
		"prompt":          req.Prompt,
		"response_format": "b64_json",
	}
	if req.Profile != "" {
		payload["size"] = req.Profile
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.base+"/v1/images/generations", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("image provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("image provider returned %d: %s", resp.StatusCode, msg)
	}

	var out struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode generation response: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("image provider returned no images")
	}
	data, err := base64.StdEncoding.DecodeString(out.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}
	return &Image{Data: data, MimeType: "image/png"}, nil
}
