package ml_service

import (
	"context"
	"errors"
	"net/http"

	"github.com/jchangwan/campus-closet-share/internal/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Заголовок (gRPC metadata или HTTP), в котором энкодеру передаётся выбранное устройство.
const deviceHeader = "x-encoder-device"

// Description — то, что энкодер сообщает о себе при старте.
type Description struct {
	Devices   []domain.Device
	Model     string
	Dimension int
}

// Transport — способ доставки изображения до модели. Изображение передаётся в PNG.
type Transport interface {
	Encode(ctx context.Context, png []byte, device domain.Device) ([]float32, string, error)
	Describe(ctx context.Context) (*Description, error)
}

func parseDevices(raw []string) []domain.Device {
	devices := make([]domain.Device, 0, len(raw))
	for _, s := range raw {
		if d := domain.ParseDevice(s); d != domain.DeviceUnknown && d != domain.DeviceAuto {
			devices = append(devices, d)
		}
	}

	return devices
}

// isTransient сообщает, имеет ли смысл повторить запрос к энкодеру:
// gRPC Unavailable/DeadlineExceeded или HTTP 5xx.
func isTransient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= http.StatusInternalServerError
	}

	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}
