package actions

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/Reactor/internal/domain"
)

const (
	// Значения по умолчанию.
	defaultWebhookTimeout = 30 * time.Second
	maxResponseBody       = 10 * 1024 * 1024 // 10 MB
)

// Ключи конфигурации webhook действия.
const (
	configMethod      = "method"
	configURL         = "url"
	configHeaders     = "headers"
	configBody        = "body"
	configValidateSSL = "validate_ssl"
	configTimeoutSec  = "timeout_sec"
)

// WebhookHandler — действие исходящего HTTP запроса.
//
// Конфигурация:
//
//	{
//	    "method": "POST",
//	    "url": "https://api.example.com/hook",
//	    "headers": {"Authorization": "Bearer ..."},
//	    "body": {"deal_id": 42},
//	    "validate_ssl": true,
//	    "timeout_sec": 30
//	}
//
// Результат:
//
//	{
//	    "status_code": 200,
//	    "headers": {...},
//	    "body": {...}  // parsed JSON or string
//	}
//
// Ответ со статусом >= 400 — ошибка действия (шаг уйдёт в retry).
type WebhookHandler struct {
	client *http.Client
}

// NewWebhookHandler создаёт новый WebhookHandler.
func NewWebhookHandler() *WebhookHandler {
	return &WebhookHandler{
		client: &http.Client{
			Timeout: defaultWebhookTimeout,
		},
	}
}

// Type возвращает тип действия.
func (h *WebhookHandler) Type() string {
	return domain.ActionWebhook
}

// Execute выполняет HTTP запрос.
func (h *WebhookHandler) Execute(ctx context.Context, config map[string]any, execCtx map[string]any) (any, error) {
	cfg, err := h.parseConfig(config)
	if err != nil {
		return nil, err
	}

	client := h.buildClient(cfg)

	req, err := h.buildRequest(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrActionCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	result, err := h.parseResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return result, nil
}

// webhookConfig — распарсенная конфигурация webhook действия.
type webhookConfig struct {
	Method      string
	URL         string
	Headers     map[string]string
	Body        any
	ValidateSSL bool
	TimeoutSec  int
}

func (h *WebhookHandler) parseConfig(config map[string]any) (*webhookConfig, error) {
	cfg := &webhookConfig{
		Method:      GetConfigString(config, configMethod),
		URL:         GetConfigString(config, configURL),
		Headers:     GetConfigMapString(config, configHeaders),
		Body:        config[configBody],
		ValidateSSL: GetConfigBool(config, configValidateSSL, true),
		TimeoutSec:  GetConfigInt(config, configTimeoutSec),
	}

	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: webhook: url is required", ErrInvalidConfig)
	}

	if cfg.Method == "" {
		cfg.Method = http.MethodPost
	}
	cfg.Method = strings.ToUpper(cfg.Method)

	if cfg.Headers == nil {
		cfg.Headers = make(map[string]string)
	}

	return cfg, nil
}

func (h *WebhookHandler) buildClient(cfg *webhookConfig) *http.Client {
	timeout := defaultWebhookTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	if cfg.ValidateSSL && timeout == defaultWebhookTimeout {
		return h.client
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: !cfg.ValidateSSL,
			},
		},
	}
}

func (h *WebhookHandler) buildRequest(ctx context.Context, cfg *webhookConfig) (*http.Request, error) {
	var bodyReader io.Reader

	if cfg.Body != nil {
		bodyBytes, err := serializeBody(cfg.Body)
		if err != nil {
			return nil, fmt.Errorf("serialize body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)

		if _, hasContentType := cfg.Headers["Content-Type"]; !hasContentType {
			cfg.Headers["Content-Type"] = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.URL, bodyReader)
	if err != nil {
		return nil, err
	}

	for key, value := range cfg.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

func serializeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

func (h *WebhookHandler) parseResponse(resp *http.Response) (map[string]any, error) {
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var body any
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		if err := json.Unmarshal(bodyBytes, &body); err != nil {
			body = string(bodyBytes)
		}
	} else {
		body = string(bodyBytes)
	}

	headers := make(map[string]string)
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        body,
	}, nil
}
