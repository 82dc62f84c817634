package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"go.uber.org/zap"

	"github.com/ragline/ragline/internal/config"
)

func wpItem(id int, title, content string) map[string]any {
	return map[string]any{
		"id":      id,
		"link":    "https://example.com/?p=" + strconv.Itoa(id),
		"title":   map[string]any{"rendered": title},
		"content": map[string]any{"rendered": content},
	}
}

func newTestSource(t *testing.T, baseURL string, perPage int, reg *config.Registry) *WordPress {
	t.Helper()
	return NewWordPress(WordPressConfig{
		BaseURL:  baseURL,
		PerPage:  perPage,
		Registry: reg,
		Logger:   zap.NewNop(),
	})
}

func TestListItems_SinglePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/post" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("status") != "publish" {
			t.Errorf("expected status=publish, got %q", r.URL.Query().Get("status"))
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			wpItem(1, "First Post", "<p>Body of the first post.</p>"),
			wpItem(2, "Second &amp; Last", "<p>Body of the second post.</p>"),
		})
	}))
	defer server.Close()

	reg := config.NewRegistry()
	reg.Register("post", nil, nil)

	src := newTestSource(t, server.URL, 100, reg)
	items, err := src.ListItems(context.Background(), "post", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	if items[0].ID != 1 || items[0].Metadata.Title != "First Post" {
		t.Errorf("unexpected first item: %+v", items[0])
	}
	if items[0].Text != "First Post\nBody of the first post." {
		t.Errorf("unexpected extracted text: %q", items[0].Text)
	}
	if items[1].Metadata.Title != "Second & Last" {
		t.Errorf("entities not decoded: %q", items[1].Metadata.Title)
	}
	if items[0].Metadata.URL == "" || items[0].Metadata.Type != "post" {
		t.Errorf("incomplete metadata: %+v", items[0].Metadata)
	}
}

func TestListItems_Pagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		switch page {
		case 1:
			_ = json.NewEncoder(w).Encode([]map[string]any{
				wpItem(1, "One", "a"), wpItem(2, "Two", "b"),
			})
		case 2:
			_ = json.NewEncoder(w).Encode([]map[string]any{
				wpItem(3, "Three", "c"),
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer server.Close()

	reg := config.NewRegistry()
	reg.Register("post", nil, nil)

	src := newTestSource(t, server.URL, 2, reg)
	items, err := src.ListItems(context.Background(), "post", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items across pages, got %d", len(items))
	}
}

func TestListItems_Limit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			wpItem(1, "One", "a"), wpItem(2, "Two", "b"), wpItem(3, "Three", "c"),
		})
	}))
	defer server.Close()

	reg := config.NewRegistry()
	reg.Register("post", nil, nil)

	src := newTestSource(t, server.URL, 100, reg)
	items, err := src.ListItems(context.Background(), "post", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected limit to cap at 2, got %d", len(items))
	}
}

func TestListItems_UnregisteredType(t *testing.T) {
	src := newTestSource(t, "http://unused", 100, config.NewRegistry())
	if _, err := src.ListItems(context.Background(), "attachment", 0); err == nil {
		t.Fatal("expected error for unregistered type")
	}
}

func TestExtractText_FieldList(t *testing.T) {
	reg := config.NewRegistry()
	reg.Register("product", []string{"name", "description"}, nil)
	rule, _ := reg.Rule("product")

	raw := map[string]any{
		"name":        "Widget",
		"description": "<b>Sturdy</b> widget.",
		"price":       "9.99", // not in the field list, must be ignored
	}
	got := ExtractText(rule, raw)
	if got != "Widget\nSturdy widget." {
		t.Errorf("unexpected text: %q", got)
	}
}

func TestExtractText_CustomExtractor(t *testing.T) {
	reg := config.NewRegistry()
	reg.Register("event", nil, func(raw map[string]any) string {
		name, _ := raw["name"].(string)
		venue, _ := raw["venue"].(string)
		return name + " at " + venue
	})
	rule, _ := reg.Rule("event")

	got := ExtractText(rule, map[string]any{"name": "Launch", "venue": "Town Hall"})
	if got != "Launch at Town Hall" {
		t.Errorf("unexpected text: %q", got)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"line one\n\n<p>line two</p>", "line one\nline two"},
		{"plain", "plain"},
	}
	for _, tc := range tests {
		if got := StripHTML(tc.in); got != tc.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
