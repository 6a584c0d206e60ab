package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gopay-next/internal/config"
	"github.com/gopay-next/internal/constants"
	"github.com/gopay-next/internal/logger"
)

const (
	defaultForwardTimeout  = 25 * time.Second
	defaultForwardAttempts = 3
	defaultForwardBackoff  = time.Second
	defaultMaxResponseSize = 1 << 20
)

// ForwardResult 回源通知结果
type ForwardResult struct {
	StatusCode int
	Body       string
}

// Forwarder 向源站发起回调通知的 HTTP 客户端，带有限次重试与退避。
// 源站是不受控的第三方，超时与重试上限保证渠道侧应答不被拖死。
type Forwarder struct {
	client      *http.Client
	maxAttempts int
	backoff     time.Duration
	maxBody     int64
}

// NewForwarder 创建回源客户端
func NewForwarder(cfg config.ForwardConfig) *Forwarder {
	timeout := defaultForwardTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	attempts := defaultForwardAttempts
	if cfg.MaxAttempts > 0 {
		attempts = cfg.MaxAttempts
	}
	backoff := defaultForwardBackoff
	if cfg.BackoffSeconds > 0 {
		backoff = time.Duration(cfg.BackoffSeconds) * time.Second
	}
	maxBody := int64(defaultMaxResponseSize)
	if cfg.MaxResponseSize > 0 {
		maxBody = int64(cfg.MaxResponseSize)
	}
	return &Forwarder{
		client:      &http.Client{Timeout: timeout},
		maxAttempts: attempts,
		backoff:     backoff,
		maxBody:     maxBody,
	}
}

// Forward 以 GET 请求通知源站，指数退避重试
func (f *Forwarder) Forward(ctx context.Context, notifyURL string) (*ForwardResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var lastErr error
	delay := f.backoff
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		result, err := f.doRequest(ctx, notifyURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		logger.Warnw("origin_forward_attempt_failed",
			"attempt", attempt,
			"max_attempts", f.maxAttempts,
			"url", notifyURL,
			"error", err,
		)
		if attempt == f.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, fmt.Errorf("forward to origin failed after %d attempts: %w", f.maxAttempts, lastErr)
}

func (f *Forwarder) doRequest(ctx context.Context, notifyURL string) (*ForwardResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, notifyURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(constants.ForwardHeaderName, constants.ForwardHeaderValue)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, err
	}
	return &ForwardResult{StatusCode: resp.StatusCode, Body: string(body)}, nil
}
