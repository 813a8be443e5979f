package mcp_test

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"github.com/inkweld/mcp-server/internal/auth"
	"github.com/inkweld/mcp-server/internal/mcp"
)

type stubResource struct {
	resources []mcp.Resource
	contents  *mcp.ResourceContents
	uri       string
}

func (s *stubResource) List(context.Context, *auth.RequestContext) ([]mcp.Resource, error) {
	return s.resources, nil
}

func (s *stubResource) Read(_ context.Context, _ *auth.RequestContext, uri string) (*mcp.ResourceContents, error) {
	if s.contents != nil && uri == s.uri {
		return s.contents, nil
	}
	return nil, nil
}

type stubTool struct {
	name   string
	perms  []auth.Permission
	result *mcp.ToolResult
	err    error
	called bool
}

func (t *stubTool) Descriptor() mcp.Tool {
	return mcp.Tool{Name: t.name, InputSchema: map[string]any{"type": "object"}}
}

func (t *stubTool) RequiredPermissions() []auth.Permission { return t.perms }

func (t *stubTool) Execute(context.Context, *auth.RequestContext, json.RawMessage) (*mcp.ToolResult, error) {
	t.called = true
	return t.result, t.err
}

type stubPrompt struct {
	name   string
	result *mcp.GetPromptResult
}

func (p *stubPrompt) Descriptor() mcp.Prompt { return mcp.Prompt{Name: p.name} }

func (p *stubPrompt) GetPrompt(context.Context, *auth.RequestContext, map[string]string) (*mcp.GetPromptResult, error) {
	return p.result, nil
}

func newDispatcher(t *testing.T, build func(reg *mcp.Registry)) *mcp.Dispatcher {
	t.Helper()
	reg := mcp.NewRegistry()
	if build != nil {
		build(reg)
	}
	return mcp.NewDispatcher(reg, zap.NewNop())
}

func readContext(perms ...auth.Permission) *auth.RequestContext {
	return &auth.RequestContext{
		Kind: auth.KindOAuth,
		Projects: []auth.ProjectGrant{
			{Owner: "alice", Slug: "n", Permissions: perms},
		},
	}
}

func request(id, method, params string) *mcp.Request {
	req := &mcp.Request{JSONRPC: "2.0", Method: method}
	if id != "" {
		req.ID = json.RawMessage(id)
	}
	if params != "" {
		req.Params = json.RawMessage(params)
	}
	return req
}

func TestInitialize(t *testing.T) {
	d := newDispatcher(t, nil)
	rc := readContext()

	resp := d.Dispatch(context.Background(), rc,
		request("1", "initialize", `{"protocolVersion":"2025-06-18","clientInfo":{"name":"c","version":"0.1"}}`))
	if resp == nil || resp.Error != nil {
		t.Fatalf("expected success, got %+v", resp)
	}

	raw, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatal(err)
	}
	var result struct {
		ProtocolVersion string `json:"protocolVersion"`
		ServerInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
		Capabilities map[string]map[string]bool `json:"capabilities"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatal(err)
	}
	if result.ProtocolVersion != "2025-06-18" {
		t.Errorf("protocolVersion = %q", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "inkweld-mcp" || result.ServerInfo.Version != "1.0.0" {
		t.Errorf("serverInfo = %+v", result.ServerInfo)
	}
	for section, want := range map[string][]string{
		"resources": {"subscribe", "listChanged"},
		"tools":     {"listChanged"},
		"prompts":   {"listChanged"},
	} {
		caps, ok := result.Capabilities[section]
		if !ok {
			t.Fatalf("capabilities missing %s", section)
		}
		for _, key := range want {
			if v, present := caps[key]; !present || v {
				t.Errorf("capabilities.%s.%s = %v, want explicit false", section, key, v)
			}
		}
	}
	if !rc.Initialized {
		t.Error("context not marked initialized")
	}
	if rc.ClientInfo.Name != "c" || rc.ClientInfo.Version != "0.1" {
		t.Errorf("clientInfo = %+v", rc.ClientInfo)
	}
}

func TestInitializeIgnoresVersionMismatch(t *testing.T) {
	d := newDispatcher(t, nil)
	resp := d.Dispatch(context.Background(), readContext(),
		request("1", "initialize", `{"protocolVersion":"2024-01-01"}`))
	if resp == nil || resp.Error != nil {
		t.Fatalf("mismatched version must not be rejected, got %+v", resp)
	}
}

func TestUnknownMethod(t *testing.T) {
	d := newDispatcher(t, nil)
	resp := d.Dispatch(context.Background(), readContext(), request(`"x"`, "foo", ""))
	if resp == nil || resp.Error == nil {
		t.Fatalf("expected error, got %+v", resp)
	}
	if resp.Error.Code != mcp.CodeMethodNotFound {
		t.Errorf("code = %d", resp.Error.Code)
	}
	if resp.Error.Message != "Unknown method: foo" {
		t.Errorf("message = %q", resp.Error.Message)
	}
	if string(resp.ID) != `"x"` {
		t.Errorf("id = %s, want \"x\"", resp.ID)
	}
}

func TestNotificationsProduceNoResponse(t *testing.T) {
	d := newDispatcher(t, nil)
	for _, method := range []string{"notifications/initialized", "initialized", "foo"} {
		if resp := d.Dispatch(context.Background(), readContext(), request("", method, "")); resp != nil {
			t.Errorf("notification %q produced response %+v", method, resp)
		}
	}
}

func TestInitializedWithIDReturnsEmptyResult(t *testing.T) {
	d := newDispatcher(t, nil)
	resp := d.Dispatch(context.Background(), readContext(), request("7", "initialized", ""))
	if resp == nil || resp.Error != nil || resp.Result == nil {
		t.Fatalf("got %+v", resp)
	}
}

func TestPing(t *testing.T) {
	d := newDispatcher(t, nil)
	resp := d.Dispatch(context.Background(), readContext(), request("1", "ping", ""))
	if resp == nil || resp.Error != nil {
		t.Fatalf("got %+v", resp)
	}
}

func TestNonJSONRPC2EnvelopeRejected(t *testing.T) {
	d := newDispatcher(t, nil)
	req := &mcp.Request{JSONRPC: "1.0", Method: "ping", ID: json.RawMessage("3")}
	resp := d.Dispatch(context.Background(), readContext(), req)
	if resp == nil || resp.Error == nil || resp.Error.Code != mcp.CodeInvalidRequest {
		t.Fatalf("non-2.0 envelope must be rejected, got %+v", resp)
	}
}

func TestToolsListPermissionFiltered(t *testing.T) {
	readTool := &stubTool{name: "get_project_tree", perms: []auth.Permission{auth.PermReadElements}}
	writeTool := &stubTool{name: "create_element", perms: []auth.Permission{auth.PermWriteElements}}
	d := newDispatcher(t, func(reg *mcp.Registry) {
		reg.AddTool(readTool)
		reg.AddTool(writeTool)
	})

	resp := d.Dispatch(context.Background(), readContext(auth.PermReadElements), request("1", "tools/list", ""))
	if resp == nil || resp.Error != nil {
		t.Fatalf("got %+v", resp)
	}
	raw, _ := json.Marshal(resp.Result)
	var result struct {
		Tools []mcp.Tool `json:"tools"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Tools) != 1 || result.Tools[0].Name != "get_project_tree" {
		t.Errorf("tools = %+v, want only get_project_tree", result.Tools)
	}
}

func TestToolsCallUnknownTool(t *testing.T) {
	d := newDispatcher(t, nil)
	resp := d.Dispatch(context.Background(), readContext(), request("1", "tools/call", `{"name":"nope"}`))
	if resp == nil || resp.Error == nil || resp.Error.Code != mcp.CodeMethodNotFound {
		t.Fatalf("got %+v", resp)
	}
	if resp.Error.Message != "Unknown tool: nope" {
		t.Errorf("message = %q", resp.Error.Message)
	}
}

func TestToolsCallPermissionEnforcedAgain(t *testing.T) {
	tool := &stubTool{name: "create_element", perms: []auth.Permission{auth.PermWriteElements}}
	d := newDispatcher(t, func(reg *mcp.Registry) { reg.AddTool(tool) })

	resp := d.Dispatch(context.Background(), readContext(auth.PermReadElements),
		request("1", "tools/call", `{"name":"create_element","arguments":{}}`))
	if resp == nil || resp.Error == nil || resp.Error.Code != mcp.CodeInvalidRequest {
		t.Fatalf("got %+v", resp)
	}
	if tool.called {
		t.Error("tool executed despite missing permission")
	}
}

func TestToolsCallSuccess(t *testing.T) {
	tool := &stubTool{
		name:   "get_project_tree",
		perms:  []auth.Permission{auth.PermReadElements},
		result: mcp.TextResult("ok"),
	}
	d := newDispatcher(t, func(reg *mcp.Registry) { reg.AddTool(tool) })

	resp := d.Dispatch(context.Background(), readContext(auth.PermReadElements),
		request("1", "tools/call", `{"name":"get_project_tree","arguments":{}}`))
	if resp == nil || resp.Error != nil {
		t.Fatalf("got %+v", resp)
	}
	if !tool.called {
		t.Error("tool was not executed")
	}
}

func TestResourcesReadFallThrough(t *testing.T) {
	h1 := &stubResource{}
	h2 := &stubResource{uri: "inkweld://projects", contents: &mcp.ResourceContents{URI: "inkweld://projects", Text: "[]"}}
	d := newDispatcher(t, func(reg *mcp.Registry) {
		reg.AddResource(h1)
		reg.AddResource(h2)
	})

	resp := d.Dispatch(context.Background(), readContext(),
		request("1", "resources/read", `{"uri":"inkweld://projects"}`))
	if resp == nil || resp.Error != nil {
		t.Fatalf("got %+v", resp)
	}

	miss := d.Dispatch(context.Background(), readContext(),
		request("2", "resources/read", `{"uri":"inkweld://project/a/b"}`))
	if miss == nil || miss.Error == nil || miss.Error.Code != mcp.CodeResourceNotFound {
		t.Fatalf("got %+v", miss)
	}
	if miss.Error.Message != "Resource not found: inkweld://project/a/b" {
		t.Errorf("message = %q", miss.Error.Message)
	}
}

func TestResourcesListConcatenatesInOrder(t *testing.T) {
	h1 := &stubResource{resources: []mcp.Resource{{URI: "inkweld://projects", Name: "first"}}}
	h2 := &stubResource{resources: []mcp.Resource{{URI: "inkweld://project/a/b", Name: "second"}}}
	d := newDispatcher(t, func(reg *mcp.Registry) {
		reg.AddResource(h1)
		reg.AddResource(h2)
	})

	resp := d.Dispatch(context.Background(), readContext(), request("1", "resources/list", ""))
	raw, _ := json.Marshal(resp.Result)
	var result struct {
		Resources []mcp.Resource `json:"resources"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Resources) != 2 || result.Resources[0].Name != "first" || result.Resources[1].Name != "second" {
		t.Errorf("resources = %+v", result.Resources)
	}
}

func TestResourceTemplatesListEmpty(t *testing.T) {
	d := newDispatcher(t, nil)
	resp := d.Dispatch(context.Background(), readContext(), request("1", "resources/templates/list", ""))
	if resp == nil || resp.Error != nil {
		t.Fatalf("got %+v", resp)
	}
}

func TestPromptsGetUnknown(t *testing.T) {
	d := newDispatcher(t, func(reg *mcp.Registry) {
		reg.AddPrompt(&stubPrompt{name: "summarize_project", result: &mcp.GetPromptResult{}})
	})
	resp := d.Dispatch(context.Background(), readContext(),
		request("1", "prompts/get", `{"name":"nope"}`))
	if resp == nil || resp.Error == nil || resp.Error.Code != mcp.CodeMethodNotFound {
		t.Fatalf("got %+v", resp)
	}
}
