package domain

import "testing"

func TestCatalogEntry_Category(t *testing.T) {
	if got := (CatalogEntry{}).Category(); got != "-" {
		t.Fatalf("expected '-', got %q", got)
	}
	if got := (CatalogEntry{ProductSpec: "outer"}).Category(); got != "outer" {
		t.Fatalf("expected 'outer', got %q", got)
	}
}

func TestCatalogEntry_ExternalID(t *testing.T) {
	postID := int64(77)

	tests := []struct {
		name  string
		entry CatalogEntry
		want  int64
	}{
		{"post id present", CatalogEntry{Index: 2, PostID: &postID}, 77},
		{"fallback to index", CatalogEntry{Index: 2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.ExternalID(); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestSelectDevice(t *testing.T) {
	tests := []struct {
		name      string
		preferred Device
		available []Device
		want      Device
	}{
		{"auto picks cuda", DeviceAuto, []Device{DeviceCPU, DeviceCUDA}, DeviceCUDA},
		{"auto falls back to cpu", DeviceAuto, []Device{DeviceCPU}, DeviceCPU},
		{"explicit cpu", DeviceCPU, []Device{DeviceCPU, DeviceCUDA}, DeviceCPU},
		{"explicit cuda unavailable", DeviceCUDA, []Device{DeviceCPU}, DeviceCPU},
		{"nothing reported", DeviceAuto, nil, DeviceCPU},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectDevice(tt.preferred, tt.available); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestParseDevice(t *testing.T) {
	if ParseDevice(" CUDA ") != DeviceCUDA {
		t.Fatal("expected cuda")
	}
	if ParseDevice("") != DeviceAuto {
		t.Fatal("expected auto for empty value")
	}
	if ParseDevice("tpu") != DeviceUnknown {
		t.Fatal("expected unknown")
	}
}
