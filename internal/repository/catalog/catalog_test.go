package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jchangwan/campus-closet-share/internal/domain"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantLen   int
		wantErr   error
		wantEntry domain.CatalogEntry
	}{
		{
			name:    "object keyed by index",
			data:    `{"0": {"brand_name": "A", "product_name": "Shirt"}, "1": {"brand_name": "B", "product_name": "Coat", "product_spec": "outer"}}`,
			wantLen: 2,
			wantEntry: domain.CatalogEntry{
				Index: 1, BrandName: "B", ProductName: "Coat", ProductSpec: "outer",
			},
		},
		{
			name:    "array uses position",
			data:    `[{"brand_name": "A"}, {"brand_name": "B", "link": "https://shop/b"}]`,
			wantLen: 2,
			wantEntry: domain.CatalogEntry{
				Index: 1, BrandName: "B", Link: "https://shop/b",
			},
		},
		{
			name:    "array with explicit index",
			data:    `[{"index": 7, "brand_name": "Z"}]`,
			wantLen: 1,
			wantEntry: domain.CatalogEntry{
				Index: 7, BrandName: "Z",
			},
		},
		{name: "empty", data: "  ", wantErr: e.ErrEmptyCatalog},
		{name: "scalar", data: `42`, wantErr: e.ErrInvalidCatalog},
		{name: "bad key", data: `{"x": {}}`, wantErr: e.ErrInvalidCatalog},
		{name: "broken json", data: `[{"brand_name": }]`, wantErr: e.ErrInvalidCatalog},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := Parse([]byte(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(entries) != tt.wantLen {
				t.Fatalf("got %d entries, want %d", len(entries), tt.wantLen)
			}

			c, err := New(entries)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			got, ok := c.Get(tt.wantEntry.Index)
			if !ok {
				t.Fatalf("entry %d not found", tt.wantEntry.Index)
			}
			if got.BrandName != tt.wantEntry.BrandName || got.ProductName != tt.wantEntry.ProductName ||
				got.Link != tt.wantEntry.Link || got.ProductSpec != tt.wantEntry.ProductSpec {
				t.Errorf("got %+v, want %+v", got, tt.wantEntry)
			}
		})
	}
}

func TestNew_DuplicateIndex(t *testing.T) {
	_, err := New([]domain.CatalogEntry{{Index: 0}, {Index: 0}})
	if !errors.Is(err, e.ErrDuplicateCatalogKey) {
		t.Fatalf("got %v, want ErrDuplicateCatalogKey", err)
	}
}

func TestCatalog_Gaps(t *testing.T) {
	c, err := New([]domain.CatalogEntry{{Index: 0}, {Index: 2}, {Index: 5}})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Gaps(); got != 1 {
		t.Errorf("gaps: got %d, want 1", got)
	}
	if _, ok := c.Get(1); ok {
		t.Error("index 1 must be absent")
	}
}

func TestFileSource_LoadCatalog(t *testing.T) {
	dir := t.TempDir()
	log := logger.NewNopLogger()

	_, err := NewFileSource(filepath.Join(dir, "absent.json"), log).LoadCatalog(context.Background())
	if !errors.Is(err, e.ErrArtifactNotFound) {
		t.Fatalf("missing file: got %v, want ErrArtifactNotFound", err)
	}

	path := filepath.Join(dir, "mapping_data.json")
	data := `{"0": {"brand_name": "A", "product_name": "Tee", "post_id": 42}}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := NewFileSource(path, log).LoadCatalog(context.Background())
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	entry, ok := c.Get(0)
	if !ok {
		t.Fatal("entry 0 not found")
	}
	if entry.ExternalID() != 42 {
		t.Errorf("external id: got %d, want 42", entry.ExternalID())
	}
	if entry.Category() != "-" {
		t.Errorf("category: got %q, want %q", entry.Category(), "-")
	}
}
