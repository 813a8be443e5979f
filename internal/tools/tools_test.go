package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/inkweld/mcp-server/internal/auth"
	"github.com/inkweld/mcp-server/internal/document"
)

// fakeEngine serves canned documents and records writes.
type fakeEngine struct {
	elements  []document.Element
	fields    map[string]map[string]string // docID+"/"+namespace -> fields
	written   []document.Element
	setFields map[string]map[string]string
}

func (f *fakeEngine) Elements(context.Context, string) ([]document.Element, error) {
	return f.elements, nil
}

func (f *fakeEngine) ReplaceElements(_ context.Context, _ string, els []document.Element) error {
	f.written = els
	return nil
}

func (f *fakeEngine) Relationships(context.Context, string) ([]document.Relationship, error) {
	return nil, nil
}

func (f *fakeEngine) AppendRelationship(context.Context, string, document.Relationship) error {
	return nil
}

func (f *fakeEngine) DeleteRelationship(context.Context, string, string) error { return nil }

func (f *fakeEngine) Fields(_ context.Context, docID, namespace string) (map[string]string, error) {
	return f.fields[docID+"/"+namespace], nil
}

func (f *fakeEngine) SetFields(_ context.Context, docID, namespace string, fields map[string]string) error {
	if f.setFields == nil {
		f.setFields = map[string]map[string]string{}
	}
	f.setFields[namespace] = fields
	return nil
}

func (f *fakeEngine) Content(context.Context, string) (string, error) { return "", nil }

func (f *fakeEngine) Schemas(context.Context, string) ([]document.Schema, error) { return nil, nil }

func (f *fakeEngine) Snapshots(context.Context, string) ([]document.Snapshot, error) {
	return nil, nil
}

func (f *fakeEngine) AppendSnapshot(context.Context, string, document.Snapshot) error { return nil }

func (f *fakeEngine) PublishPlans(context.Context, string) ([]document.PublishPlan, error) {
	return nil, nil
}

func testContext(perms ...auth.Permission) *auth.RequestContext {
	return &auth.RequestContext{Projects: []auth.ProjectGrant{
		{Owner: "alice", Slug: "novel", Permissions: perms},
	}}
}

func TestScore(t *testing.T) {
	cases := []struct {
		query, text string
		want        float64
	}{
		{"*", "anything", 1.0},
		{"dragon", "Dragon", 1.0},
		{"dragon", "the dragon's lair", 0.8},
		{"red dragon", "a dragon in a cave", 0.25},
		{"red dragon", "red scales on the dragon", 0.5},
		{"red blue", "red and blue banners", 0.5},
		{"gryphon", "dragon", 0},
		{"", "dragon", 0},
	}
	for _, c := range cases {
		if got := score(c.query, c.text); got != c.want {
			t.Errorf("score(%q, %q) = %v, want %v", c.query, c.text, got, c.want)
		}
	}
}

func TestBest(t *testing.T) {
	if got := best("dragon", "nothing", "a dragon", "dragon"); got != 1.0 {
		t.Errorf("best = %v, want 1.0", got)
	}
	if got := best("dragon"); got != 0 {
		t.Errorf("best with no candidates = %v, want 0", got)
	}
}

func TestRouteWorldbuildingFields(t *testing.T) {
	identity, custom := routeWorldbuildingFields(map[string]string{
		"description":    "a tall wizard",
		"image":          "https://example.com/w.png",
		"identity.alias": "Grey Pilgrim",
		"age":            "2019",
		"hometown":       "Valinor",
	})

	if identity["description"] != "a tall wizard" || identity["image"] != "https://example.com/w.png" {
		t.Errorf("identity = %v", identity)
	}
	if identity["alias"] != "Grey Pilgrim" {
		t.Errorf("identity.* prefix not stripped: %v", identity)
	}
	if _, ok := identity["identity.alias"]; ok {
		t.Error("prefixed key leaked into identity namespace")
	}
	if custom["age"] != "2019" || custom["hometown"] != "Valinor" || len(custom) != 2 {
		t.Errorf("custom = %v", custom)
	}
}

func TestSearchElementsSortsAndCaps(t *testing.T) {
	engine := &fakeEngine{elements: []document.Element{
		{ID: "e1", Name: "Dragons of the North", Type: document.ElementTypeItem},
		{ID: "e2", Name: "dragon", Type: document.ElementTypeItem},
		{ID: "e3", Name: "Chapter One", Type: document.ElementTypeItem,
			Metadata: map[string]string{"tag": "dragon fight"}},
		{ID: "e4", Name: "Maps", Type: document.ElementTypeFolder},
	}}
	deps := Deps{Engine: engine, Logger: zap.NewNop()}

	args, _ := json.Marshal(map[string]any{"project": "alice/novel", "query": "dragon", "limit": 2})
	res, err := searchElements(deps).Execute(context.Background(), testContext(auth.PermReadElements), args)
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Content[0].Text)
	}

	var hits []struct {
		Score float64          `json:"score"`
		Item  document.Element `json:"item"`
	}
	if err := json.Unmarshal([]byte(res.Content[0].Text), &hits); err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want limit 2", len(hits))
	}
	if hits[0].Item.ID != "e2" || hits[0].Score != 1.0 {
		t.Errorf("best hit = %+v, want exact match e2", hits[0])
	}
	if hits[1].Score > hits[0].Score {
		t.Error("hits not sorted best-first")
	}
}

func TestSearchElementsTypeFilter(t *testing.T) {
	engine := &fakeEngine{elements: []document.Element{
		{ID: "f1", Name: "Dragons", Type: document.ElementTypeFolder},
		{ID: "i1", Name: "Dragons", Type: document.ElementTypeItem},
	}}
	deps := Deps{Engine: engine, Logger: zap.NewNop()}

	args, _ := json.Marshal(map[string]any{"project": "alice/novel", "query": "*", "type": "FOLDER"})
	res, err := searchElements(deps).Execute(context.Background(), testContext(auth.PermReadElements), args)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Content[0].Text, "f1") || strings.Contains(res.Content[0].Text, "i1") {
		t.Errorf("type filter not applied: %s", res.Content[0].Text)
	}
}

func TestSearchElementsRejectsForeignProject(t *testing.T) {
	deps := Deps{Engine: &fakeEngine{}, Logger: zap.NewNop()}
	args, _ := json.Marshal(map[string]any{"project": "bob/other", "query": "*"})
	res, err := searchElements(deps).Execute(context.Background(), testContext(auth.PermReadElements), args)
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("search against an ungranted project must fail")
	}
}

func TestCreateElement(t *testing.T) {
	engine := &fakeEngine{elements: []document.Element{
		{ID: "root", Name: "Drafts", Type: document.ElementTypeFolder, Level: 0, Expandable: true},
	}}
	deps := Deps{Engine: engine, Logger: zap.NewNop()}

	args, _ := json.Marshal(map[string]any{
		"project": "alice/novel", "name": "Chapter One", "type": "ITEM", "parentId": "root",
	})
	res, err := createElement(deps).Execute(context.Background(), testContext(auth.PermWriteElements), args)
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("error result: %s", res.Content[0].Text)
	}

	if len(engine.written) != 2 {
		t.Fatalf("written %d elements, want 2", len(engine.written))
	}
	created := engine.written[1]
	if created.Name != "Chapter One" || created.Type != document.ElementTypeItem {
		t.Errorf("created = %+v", created)
	}
	if created.ParentID == nil || *created.ParentID != "root" || created.Level != 1 {
		t.Errorf("placement = parent %v level %d", created.ParentID, created.Level)
	}
	if created.Version != 1 || created.ID == "" {
		t.Errorf("created = %+v", created)
	}
	if created.Expandable {
		t.Error("ITEM must not be expandable")
	}
}

func TestCreateElementRejectsBadType(t *testing.T) {
	deps := Deps{Engine: &fakeEngine{}, Logger: zap.NewNop()}
	args, _ := json.Marshal(map[string]any{"project": "alice/novel", "name": "x", "type": "CHAPTER"})
	res, err := createElement(deps).Execute(context.Background(), testContext(auth.PermWriteElements), args)
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError || !strings.Contains(res.Content[0].Text, "invalid element type") {
		t.Errorf("result = %+v", res)
	}
}

func TestUpdateElementMergesMetadata(t *testing.T) {
	engine := &fakeEngine{elements: []document.Element{
		{ID: "e1", Name: "Old", Type: document.ElementTypeItem, Version: 3,
			Metadata: map[string]string{"status": "draft", "pov": "alice"}},
	}}
	deps := Deps{Engine: engine, Logger: zap.NewNop()}

	args, _ := json.Marshal(map[string]any{
		"project":   "alice/novel",
		"elementId": "e1",
		"name":      "New",
		"metadata":  map[string]string{"status": "final", "pov": ""},
	})
	res, err := updateElement(deps).Execute(context.Background(), testContext(auth.PermWriteElements), args)
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("error result: %s", res.Content[0].Text)
	}

	got := engine.written[0]
	if got.Name != "New" || got.Version != 4 {
		t.Errorf("updated = %+v", got)
	}
	if got.Metadata["status"] != "final" {
		t.Errorf("metadata not merged: %v", got.Metadata)
	}
	if _, ok := got.Metadata["pov"]; ok {
		t.Error("empty value must remove the metadata field")
	}
}

func TestUpdateWorldbuildingRoutesNamespaces(t *testing.T) {
	engine := &fakeEngine{}
	deps := Deps{Engine: engine, Logger: zap.NewNop()}

	args, _ := json.Marshal(map[string]any{
		"project":   "alice/novel",
		"elementId": "w1",
		"fields":    map[string]string{"description": "a city", "climate": "arid"},
	})
	res, err := updateWorldbuilding(deps).Execute(context.Background(), testContext(auth.PermWriteWorldbuilding), args)
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("error result: %s", res.Content[0].Text)
	}

	if engine.setFields[document.NamespaceIdentity]["description"] != "a city" {
		t.Errorf("identity writes = %v", engine.setFields[document.NamespaceIdentity])
	}
	if engine.setFields[document.NamespaceWorldbuilding]["climate"] != "arid" {
		t.Errorf("worldbuilding writes = %v", engine.setFields[document.NamespaceWorldbuilding])
	}
}
