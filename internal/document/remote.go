package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// RemoteEngine implements Engine against the document service's REST
// bridge. Each call forwards the caller's bearer token (stored on the
// request context by the auth layer) so the document service applies its
// own access control.
type RemoteEngine struct {
	base       string
	httpClient *http.Client
}

var _ Engine = (*RemoteEngine)(nil)

// NewRemoteEngine creates a RemoteEngine for the bridge at base, e.g.
// "http://documents:4100".
func NewRemoteEngine(base string) *RemoteEngine {
	return &RemoteEngine{
		base:       base,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *RemoteEngine) docURL(docID, section string) string {
	u := fmt.Sprintf("%s/v1/documents/%s", e.base, url.PathEscape(docID))
	if section != "" {
		u += "/" + section
	}
	return u
}

// do performs one request and decodes a JSON reply into out (unless out is
// nil). A 404 maps to ErrNotFound; any other non-2xx status becomes an
// error carrying the service's message.
func (e *RemoteEngine) do(ctx context.Context, method, rawURL string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := AuthToken(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("document service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("document service returned %d: %s", resp.StatusCode, msg)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (e *RemoteEngine) Elements(ctx context.Context, docID string) ([]Element, error) {
	var els []Element
	if err := e.do(ctx, http.MethodGet, e.docURL(docID, "elements"), nil, &els); err != nil {
		return nil, err
	}
	return els, nil
}

func (e *RemoteEngine) ReplaceElements(ctx context.Context, docID string, els []Element) error {
	return e.do(ctx, http.MethodPut, e.docURL(docID, "elements"), els, nil)
}

func (e *RemoteEngine) Relationships(ctx context.Context, docID string) ([]Relationship, error) {
	var rels []Relationship
	if err := e.do(ctx, http.MethodGet, e.docURL(docID, "relationships"), nil, &rels); err != nil {
		return nil, err
	}
	return rels, nil
}

func (e *RemoteEngine) AppendRelationship(ctx context.Context, docID string, rel Relationship) error {
	return e.do(ctx, http.MethodPost, e.docURL(docID, "relationships"), rel, nil)
}

func (e *RemoteEngine) DeleteRelationship(ctx context.Context, docID, relID string) error {
	u := e.docURL(docID, "relationships") + "/" + url.PathEscape(relID)
	return e.do(ctx, http.MethodDelete, u, nil, nil)
}

func (e *RemoteEngine) Fields(ctx context.Context, docID, namespace string) (map[string]string, error) {
	u := e.docURL(docID, "fields") + "?ns=" + url.QueryEscape(namespace)
	fields := make(map[string]string)
	if err := e.do(ctx, http.MethodGet, u, nil, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func (e *RemoteEngine) SetFields(ctx context.Context, docID, namespace string, fields map[string]string) error {
	u := e.docURL(docID, "fields") + "?ns=" + url.QueryEscape(namespace)
	return e.do(ctx, http.MethodPatch, u, fields, nil)
}

func (e *RemoteEngine) Content(ctx context.Context, docID string) (string, error) {
	var content string
	if err := e.do(ctx, http.MethodGet, e.docURL(docID, "content"), nil, &content); err != nil {
		return "", err
	}
	return content, nil
}

func (e *RemoteEngine) Schemas(ctx context.Context, docID string) ([]Schema, error) {
	var schemas []Schema
	if err := e.do(ctx, http.MethodGet, e.docURL(docID, "schemas"), nil, &schemas); err != nil {
		return nil, err
	}
	return schemas, nil
}

func (e *RemoteEngine) Snapshots(ctx context.Context, docID string) ([]Snapshot, error) {
	var snaps []Snapshot
	if err := e.do(ctx, http.MethodGet, e.docURL(docID, "snapshots"), nil, &snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}

func (e *RemoteEngine) AppendSnapshot(ctx context.Context, docID string, snap Snapshot) error {
	return e.do(ctx, http.MethodPost, e.docURL(docID, "snapshots"), snap, nil)
}

func (e *RemoteEngine) PublishPlans(ctx context.Context, docID string) ([]PublishPlan, error) {
	var plans []PublishPlan
	if err := e.do(ctx, http.MethodGet, e.docURL(docID, "publish-plans"), nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}
