package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/harmonyui/harmonycn/internal/errors"
	"github.com/harmonyui/harmonycn/internal/telemetry"
)

func newRegistryServer(t *testing.T, docs map[string]string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		body, ok := docs[strings.TrimPrefix(r.URL.Path, "/r/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestClient_FetchIndexCached(t *testing.T) {
	srv, hits := newRegistryServer(t, map[string]string{
		"index.json": `[{"name": "button", "type": "registry:ui", "files": ["ui/button.tsx"]}]`,
	})
	c := New(NewHTTPSource(srv.URL+"/r/", nil))

	for i := 0; i < 2; i++ {
		index, err := c.FetchIndex(context.Background())
		if err != nil {
			t.Fatalf("FetchIndex error: %v", err)
		}
		if len(index) != 1 || index[0].Name != "button" {
			t.Fatalf("index = %+v", index)
		}
	}
	if got := atomic.LoadInt32(hits); got != 1 {
		t.Errorf("server hits = %d, want 1", got)
	}
}

func TestClient_FetchIndexUnreachable(t *testing.T) {
	srv, _ := newRegistryServer(t, map[string]string{})
	c := New(NewHTTPSource(srv.URL+"/r", nil))

	_, err := c.FetchIndex(context.Background())
	if !errors.HasCode(err, errors.CodeRegistryUnreachable) {
		t.Fatalf("err = %v, want E100", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected wrapped 404 StatusError, got %v", err)
	}
}

func TestClient_FetchTree(t *testing.T) {
	srv, _ := newRegistryServer(t, map[string]string{
		"styles/new-york/button.json": `{"name": "button", "type": "registry:ui", "files": [{"path": "ui/button.tsx", "content": "export const Button = 1\n"}]}`,
		"styles/new-york/utils.json":  `{"name": "utils", "type": "registry:lib", "files": [{"path": "lib/utils.ts"}]}`,
	})
	c := New(NewHTTPSource(srv.URL+"/r", nil))

	entries := []Item{
		{Name: "button", Type: TypeUI},
		{Name: "utils", Type: TypeLib, Files: []File{{Path: "lib/utils.ts", Content: "export {}\n"}}},
	}
	tree, err := c.FetchTree(context.Background(), "new-york", entries)
	if err != nil {
		t.Fatalf("FetchTree error: %v", err)
	}
	if len(tree) != 2 || tree[0].Name != "button" || tree[1].Name != "utils" {
		t.Fatalf("tree order = %+v", tree)
	}
	if tree[0].Files[0].Content != "export const Button = 1\n" {
		t.Errorf("button content = %q", tree[0].Files[0].Content)
	}
	if tree[1].Files[0].Content != "export {}\n" {
		t.Errorf("utils should be hydrated from the index entry, got %q", tree[1].Files[0].Content)
	}
}

func TestClient_FetchTreeFailsWhole(t *testing.T) {
	srv, _ := newRegistryServer(t, map[string]string{
		"styles/default/button.json": `{"name": "button", "type": "registry:ui"}`,
		"styles/default/card.json":   `{"name": "card", "type": "registry:page"}`,
	})
	c := New(NewHTTPSource(srv.URL+"/r", nil))

	tree, err := c.FetchTree(context.Background(), "default", []Item{{Name: "button"}, {Name: "card"}})
	if !errors.HasCode(err, errors.CodeValidation) {
		t.Fatalf("err = %v, want E101", err)
	}
	if tree != nil {
		t.Error("a failed tree must not return partial results")
	}
}

func TestClient_FetchItemNameMismatch(t *testing.T) {
	srv, _ := newRegistryServer(t, map[string]string{
		"styles/default/button.json": `{"name": "card", "type": "registry:ui"}`,
	})
	c := New(NewHTTPSource(srv.URL+"/r", nil))

	if _, err := c.FetchItem(context.Background(), "default", "button"); !errors.HasCode(err, errors.CodeValidation) {
		t.Errorf("err = %v, want E101", err)
	}
}

func TestClient_FetchBaseColor(t *testing.T) {
	srv, _ := newRegistryServer(t, map[string]string{
		"colors/zinc.json": `{"inlineColors": {"light": {"background": "white"}}, "cssVarsTemplate": ":root {}"}`,
	})
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(telemetry.WithRegistry(reg), telemetry.WithNamespace("test"))
	c := New(NewHTTPSource(srv.URL+"/r", nil), WithMetrics(metrics))

	color, err := c.FetchBaseColor(context.Background(), "zinc")
	if err != nil {
		t.Fatalf("FetchBaseColor error: %v", err)
	}
	if color.InlineColors["light"]["background"] != "white" || color.CSSVarsTemplate != ":root {}" {
		t.Errorf("color = %+v", color)
	}

	if _, err := c.FetchBaseColor(context.Background(), "missing"); !errors.HasCode(err, errors.CodeRegistryUnreachable) {
		t.Errorf("err = %v, want E100", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "test_registry_fetches_total" {
			found = len(f.GetMetric()) == 2
		}
	}
	if !found {
		t.Error("expected success and error fetch series")
	}
}

func TestHTTPSource_ContextCanceled(t *testing.T) {
	srv, _ := newRegistryServer(t, map[string]string{"index.json": `[]`})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewHTTPSource(srv.URL+"/r", nil).Fetch(ctx, "index.json"); err == nil {
		t.Error("expected error for canceled context")
	}
}
