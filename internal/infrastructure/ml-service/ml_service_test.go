package ml_service

import (
	"context"
	"errors"
	"image"
	"net/http"
	"testing"
	"time"

	"github.com/jchangwan/campus-closet-share/internal/domain"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/jitter"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeTransport struct {
	vector   []float32
	errs     []error
	calls    int
	device   domain.Device
	describe *Description
}

func (f *fakeTransport) Encode(_ context.Context, _ []byte, device domain.Device) ([]float32, string, error) {
	f.calls++
	f.device = device
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, "", err
	}
	return f.vector, "clip", nil
}

func (f *fakeTransport) Describe(context.Context) (*Description, error) {
	if f.describe == nil {
		return nil, errors.New("unavailable")
	}
	return f.describe, nil
}

func newService(tr Transport, preferred domain.Device, retries int) *MLService {
	return NewMLService(tr, preferred, retries, time.Second,
		jitter.NewBackoff(time.Millisecond, 2*time.Millisecond), logger.NewNopLogger())
}

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 2, 2))
}

func TestMLService_ProbeSelectsDevice(t *testing.T) {
	tests := []struct {
		name      string
		preferred domain.Device
		available []domain.Device
		want      domain.Device
	}{
		{"auto picks accelerator", domain.DeviceAuto, []domain.Device{domain.DeviceCPU, domain.DeviceCUDA}, domain.DeviceCUDA},
		{"auto falls back to cpu", domain.DeviceAuto, []domain.Device{domain.DeviceCPU}, domain.DeviceCPU},
		{"explicit cpu", domain.DeviceCPU, []domain.Device{domain.DeviceCUDA, domain.DeviceCPU}, domain.DeviceCPU},
		{"unavailable preference", domain.DeviceMPS, []domain.Device{domain.DeviceCUDA}, domain.DeviceCPU},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{vector: []float32{1}, describe: &Description{Devices: tt.available}}
			m := newService(tr, tt.preferred, 1)

			if _, err := m.Probe(context.Background()); err != nil {
				t.Fatalf("Probe: %v", err)
			}
			if got := m.Device(context.Background()); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}

			if _, err := m.Encode(context.Background(), testImage()); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if tr.device != tt.want {
				t.Errorf("device sent to encoder: got %s, want %s", tr.device, tt.want)
			}
		})
	}
}

func TestMLService_DeviceUnknownWithoutProbe(t *testing.T) {
	m := newService(&fakeTransport{}, domain.DeviceAuto, 1)
	if _, err := m.Probe(context.Background()); err == nil {
		t.Fatal("expected probe error")
	}
	if got := m.Device(context.Background()); got != domain.DeviceUnknown {
		t.Fatalf("got %s, want unknown", got)
	}
}

func TestMLService_Encode(t *testing.T) {
	t.Run("retries up to the limit", func(t *testing.T) {
		tr := &fakeTransport{vector: []float32{1, 2}, errs: []error{status.Error(codes.Unavailable, "warming up")}}
		emb, err := newService(tr, domain.DeviceAuto, 2).Encode(context.Background(), testImage())
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if tr.calls != 2 || len(emb.Vector) != 2 || emb.Model != "clip" {
			t.Errorf("calls=%d embedding=%+v", tr.calls, emb)
		}
	})

	t.Run("no retry by default", func(t *testing.T) {
		tr := &fakeTransport{errs: []error{errors.New("boom")}}
		if _, err := newService(tr, domain.DeviceAuto, 1).Encode(context.Background(), testImage()); err == nil {
			t.Fatal("expected error")
		}
		if tr.calls != 1 {
			t.Errorf("calls: got %d, want 1", tr.calls)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		unavailable := status.Error(codes.Unavailable, "down")
		tr := &fakeTransport{errs: []error{unavailable, unavailable, unavailable, unavailable}}
		_, err := newService(tr, domain.DeviceAuto, 3).Encode(context.Background(), testImage())
		if status.Code(err) != codes.Unavailable {
			t.Fatalf("got %v, want Unavailable", err)
		}
		if tr.calls != 3 {
			t.Errorf("calls: got %d, want 3", tr.calls)
		}
	})

	t.Run("non-transient errors are not retried", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
		}{
			{"grpc invalid argument", status.Error(codes.InvalidArgument, "bad image")},
			{"http client error", &StatusError{Code: http.StatusUnsupportedMediaType, Body: "bad content type"}},
			{"plain error", errors.New("boom")},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tr := &fakeTransport{vector: []float32{1}, errs: []error{tt.err}}
				_, err := newService(tr, domain.DeviceAuto, 3).Encode(context.Background(), testImage())
				if !errors.Is(err, tt.err) {
					t.Fatalf("got %v, want %v", err, tt.err)
				}
				if tr.calls != 1 {
					t.Errorf("calls: got %d, want 1", tr.calls)
				}
			})
		}
	})

	t.Run("http 5xx is retried", func(t *testing.T) {
		tr := &fakeTransport{vector: []float32{1}, errs: []error{&StatusError{Code: http.StatusBadGateway}}}
		if _, err := newService(tr, domain.DeviceAuto, 2).Encode(context.Background(), testImage()); err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if tr.calls != 2 {
			t.Errorf("calls: got %d, want 2", tr.calls)
		}
	})

	t.Run("empty vector", func(t *testing.T) {
		_, err := newService(&fakeTransport{}, domain.DeviceAuto, 1).Encode(context.Background(), testImage())
		if !errors.Is(err, e.ErrVectorEmbeddingEmpty) {
			t.Fatalf("got %v, want ErrVectorEmbeddingEmpty", err)
		}
	})
}
