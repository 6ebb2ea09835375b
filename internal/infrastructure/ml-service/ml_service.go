package ml_service

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/jchangwan/campus-closet-share/internal/domain"
	"github.com/jchangwan/campus-closet-share/internal/infrastructure/imaging"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/jitter"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
)

// MLService клиент для взаимодействия с внешним энкодером изображений
type MLService struct {
	transport  Transport
	preferred  domain.Device
	device     atomic.Value // domain.Device, выбирается один раз в Probe
	maxRetries int
	timeout    time.Duration
	backoff    *jitter.Backoff
	logger     logger.Logger
}

func NewMLService(
	transport Transport,
	preferred domain.Device,
	maxRetries int,
	timeout time.Duration,
	backoff *jitter.Backoff,
	logger logger.Logger,
) *MLService {
	m := &MLService{
		transport:  transport,
		preferred:  preferred,
		maxRetries: max(maxRetries, 1),
		timeout:    timeout,
		backoff:    backoff,
		logger:     logger,
	}
	m.device.Store(domain.DeviceUnknown)

	return m
}

// Probe запрашивает у энкодера доступные устройства и фиксирует выбранное.
// Вызывается один раз при старте; при ошибке устройство остаётся unknown.
func (m *MLService) Probe(ctx context.Context) (*Description, error) {
	const op = "MLService.Probe"

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	desc, err := m.transport.Describe(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	device := domain.SelectDevice(m.preferred, desc.Devices)
	m.device.Store(device)

	m.logger.Infof("encoder model=%s dim=%d available=%v selected device=%s (preference %s)",
		desc.Model, desc.Dimension, desc.Devices, device, m.preferred)
	return desc, nil
}

// Device возвращает устройство, выбранное при старте.
func (m *MLService) Device(_ context.Context) domain.Device {
	return m.device.Load().(domain.Device)
}

// Encode сериализует изображение в PNG и получает его эмбеддинг.
// Повторяются только временные ошибки (isTransient), с экспоненциальной задержкой,
// в пределах maxRetries и контекста запроса.
func (m *MLService) Encode(ctx context.Context, img image.Image) (*domain.Embedding, error) {
	const op = "MLService.Encode"

	png, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	device := m.Device(ctx)
	if device == domain.DeviceUnknown {
		device = ""
	}

	var lastErr error
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		vector, model, err := m.encodeOnce(ctx, png, device)
		if err == nil {
			if len(vector) == 0 {
				return nil, e.Wrap(op, e.ErrVectorEmbeddingEmpty)
			}
			return domain.NewEmbedding(vector, model), nil
		}
		lastErr = err

		if !isTransient(err) {
			return nil, e.Wrap(op, err)
		}
		if attempt == m.maxRetries-1 {
			break
		}

		sleepTime := m.backoff.Next(attempt)
		m.logger.Warnf("encoding failed, retrying in %v (attempt %d): %v", sleepTime, attempt+1, err)
		select {
		case <-time.After(sleepTime):
		case <-ctx.Done():
			return nil, e.Wrap(op, ctx.Err())
		}
	}

	return nil, e.Wrap(op, fmt.Errorf("%d attempt(s) failed: %w", m.maxRetries, lastErr))
}

func (m *MLService) encodeOnce(ctx context.Context, png []byte, device domain.Device) ([]float32, string, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	return m.transport.Encode(ctx, png, device)
}
