package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jchangwan/campus-closet-share/internal/cfg"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
	"golang.org/x/time/rate"
)

// HTTPFetcher скачивает изображения по URL одной попыткой, без повторов.
type HTTPFetcher struct {
	client   *http.Client
	rewrites []cfg.HostRewrite
	maxBytes int64
	limiter  *rate.Limiter
	logger   logger.Logger
}

func NewHTTPFetcher(cfg *cfg.FetchCfg, logger logger.Logger) *HTTPFetcher {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}

	return &HTTPFetcher{
		client:   &http.Client{Timeout: cfg.Timeout},
		rewrites: cfg.HostRewrites,
		maxBytes: cfg.MaxBytes,
		limiter:  limiter,
		logger:   logger,
	}
}

// Fetch применяет правила подмены хоста и скачивает тело ответа.
// Ответ не 2xx, превышение лимита размера или таймаут возвращаются как e.ErrFetchFailed.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	const op = "HTTPFetcher.Fetch"

	target, err := f.Resolve(rawURL)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: rate limit: %v", e.ErrFetchFailed, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: %v", e.ErrInvalidImageURL, err))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: %v", e.ErrFetchFailed, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, e.Wrap(op, fmt.Errorf("%w: %s returned %s", e.ErrFetchFailed, target, resp.Status))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: read body: %v", e.ErrFetchFailed, err))
	}
	if int64(len(data)) > f.maxBytes {
		return nil, e.Wrap(op, fmt.Errorf("%w: body exceeds %d bytes", e.ErrImageTooLarge, f.maxBytes))
	}

	f.logger.Debugf("fetched %d bytes from %s", len(data), target)
	return data, nil
}

// Resolve проверяет URL и применяет первое подходящее правило подмены host[:port].
func (f *HTTPFetcher) Resolve(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", e.ErrInvalidImageURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", e.Wrap(fmt.Sprintf("scheme %q", u.Scheme), e.ErrInvalidImageURL)
	}
	if u.Host == "" {
		return "", e.Wrap("empty host", e.ErrInvalidImageURL)
	}

	for _, rule := range f.rewrites {
		if strings.EqualFold(u.Host, rule.From) {
			f.logger.Debugf("host rewrite %s -> %s", u.Host, rule.To)
			u.Host = rule.To
			break
		}
	}

	return u.String(), nil
}
