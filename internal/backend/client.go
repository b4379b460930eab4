// Пакет backend — HTTP-клиент к REST API Krishibazar.
// Bearer-токен берётся из контекста запроса, ответы разбираются из
// конверта {success, data, message}. Ответ 401 по любому авторизованному
// вызову передаётся единственному обработчику из контекста (принудительный выход).
// Идемпотентные GET повторяются с экспоненциальной задержкой,
// изменения и переходы статусов не повторяются никогда.
package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// Config — параметры клиента backend.
type Config struct {
	// BaseURL — адрес REST API (без trailing slash)
	BaseURL string
	// AssetBaseURL — адрес статики; пусто → BaseURL
	AssetBaseURL string
	// CACertPath — CA-сертификат для TLS (пусто — системный пул)
	CACertPath string
	// Timeout — таймаут одного HTTP-запроса
	Timeout time.Duration
	// RetryMax — число повторов идемпотентного GET (0 — без повторов)
	RetryMax int
	// RetryInitial — первая задержка перед повтором
	RetryInitial time.Duration
	// HealthPath — путь проверки доступности backend
	HealthPath string
}

// Client — HTTP-клиент к REST API Krishibazar.
type Client struct {
	baseURL      string
	assetBaseURL string
	healthPath   string
	retryMax     int
	retryInitial time.Duration

	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент backend.
// httpClient может быть nil — тогда создаётся клиент с Config.Timeout и CA из Config.CACertPath.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = 200 * time.Millisecond
	}
	if cfg.HealthPath == "" {
		cfg.HealthPath = "/"
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
		if cfg.CACertPath != "" {
			tlsConfig, err := buildTLSConfig(cfg.CACertPath)
			if err != nil {
				return nil, fmt.Errorf("загрузка CA-сертификата backend: %w", err)
			}
			httpClient.Transport = &http.Transport{TLSClientConfig: tlsConfig}
			logger.Info("CA-сертификат backend добавлен в пул доверия",
				slog.String("ca_cert", cfg.CACertPath),
			)
		}
	}

	assetBase := cfg.AssetBaseURL
	if assetBase == "" {
		assetBase = cfg.BaseURL
	}

	return &Client{
		baseURL:      normalizeURL(cfg.BaseURL),
		assetBaseURL: normalizeURL(assetBase),
		healthPath:   cfg.HealthPath,
		retryMax:     cfg.RetryMax,
		retryInitial: cfg.RetryInitial,
		httpClient:   httpClient,
		logger:       logger.With(slog.String("component", "backend_client")),
	}, nil
}

// BaseURL возвращает адрес REST API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HealthURL возвращает адрес проверки доступности backend.
func (c *Client) HealthURL() string {
	return c.baseURL + c.healthPath
}

// AssetURL строит адрес файла по имени: assetBase + "/uploads/" + filename.
// Абсолютные URL возвращаются без изменений, пустое имя — пустая строка.
func (c *Client) AssetURL(filename string) string {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return ""
	}
	if strings.HasPrefix(filename, "http://") || strings.HasPrefix(filename, "https://") {
		return filename
	}
	filename = strings.TrimPrefix(filename, "/")
	filename = strings.TrimPrefix(filename, "uploads/")
	return c.assetBaseURL + "/uploads/" + filename
}

// --- Контекст запроса ---

type ctxKey int

const (
	tokenKey ctxKey = iota
	unauthorizedKey
)

// WithToken кладёт bearer-токен сессии в контекст.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext возвращает bearer-токен из контекста.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// WithUnauthorizedHook регистрирует обработчик ответа 401 для всех вызовов
// в рамках контекста. Обработчик должен быть идемпотентным: параллельные
// вызовы одного запроса могут получить 401 одновременно.
func WithUnauthorizedHook(ctx context.Context, hook func()) context.Context {
	return context.WithValue(ctx, unauthorizedKey, hook)
}

// notifyUnauthorized — единственная точка реакции клиента на 401.
func notifyUnauthorized(ctx context.Context) {
	if hook, ok := ctx.Value(unauthorizedKey).(func()); ok && hook != nil {
		hook()
	}
}

// --- Выполнение запросов ---

// request — описание одного вызова backend.
type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	// public — запрос без токена, 401 означает неверные учётные данные
	public bool
	// retry — разрешены повторы (только идемпотентные GET)
	retry bool
}

// do выполняет запрос и возвращает тело успешного (2xx) ответа.
// Для тела запроса с повторами используется bytes.Reader, чтобы его можно было перечитать.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	endpoint := normalizeEndpoint(r.path)

	var payload []byte
	if r.body != nil {
		data, err := io.ReadAll(r.body)
		if err != nil {
			return nil, fmt.Errorf("чтение тела запроса: %w", err)
		}
		payload = data
	}

	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		if attempt > 1 {
			backendRetriesTotal.WithLabelValues(endpoint).Inc()
		}
		body, err := c.send(ctx, r, payload, endpoint)
		if err == nil {
			return body, nil
		}
		if r.retry && retryable(err) && ctx.Err() == nil {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	if !r.retry || c.retryMax <= 0 {
		body, err := operation()
		return body, unwrapPermanent(err)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInitial
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.retryMax)), ctx)

	var result []byte
	err := backoff.RetryNotify(func() error {
		body, err := operation()
		if err != nil {
			return err
		}
		result = body
		return nil
	}, policy, func(err error, wait time.Duration) {
		c.logger.Warn("Повтор запроса к backend",
			slog.String("endpoint", endpoint),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
	})
	if err != nil {
		return nil, unwrapPermanent(err)
	}
	return result, nil
}

// send выполняет одну попытку запроса.
func (c *Client) send(ctx context.Context, r request, payload []byte, endpoint string) ([]byte, error) {
	reqURL := c.baseURL + r.path
	if len(r.query) > 0 {
		reqURL += "?" + r.query.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if !r.public {
		if token := TokenFromContext(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Seconds()
	if err != nil {
		backendRequestsTotal.WithLabelValues(r.method, endpoint, "error").Inc()
		backendRequestDuration.WithLabelValues(r.method, endpoint).Observe(duration)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, r.method, endpoint, err)
	}
	defer resp.Body.Close()

	backendRequestsTotal.WithLabelValues(r.method, endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	backendRequestDuration.WithLabelValues(r.method, endpoint).Observe(duration)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: чтение ответа %s: %v", ErrUnavailable, endpoint, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && !r.public {
		c.logger.Info("Backend отклонил токен сессии",
			slog.String("endpoint", endpoint),
		)
		notifyUnauthorized(ctx)
		return nil, ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, body)
	}

	return body, nil
}

// maxResponseSize — предел размера ответа backend.
const maxResponseSize = 16 << 20

// --- Хелперы вызовов ---

// getJSON выполняет идемпотентный GET с повторами и разбирает конверт в target.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, target any) error {
	body, err := c.do(ctx, request{method: http.MethodGet, path: path, query: query, retry: true})
	if err != nil {
		return err
	}
	return decodeEnvelope(body, target)
}

// getRaw выполняет идемпотентный GET с повторами без разбора конверта.
func (c *Client) getRaw(ctx context.Context, path string, target any) error {
	body, err := c.do(ctx, request{method: http.MethodGet, path: path, retry: true})
	if err != nil {
		return err
	}
	return decodeRaw(body, target)
}

// sendJSON выполняет изменение с JSON-телом (без повторов) и разбирает конверт.
// body == nil — запрос без тела.
func (c *Client) sendJSON(ctx context.Context, method, path string, body, target any) error {
	r := request{method: method, path: path}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("сериализация тела запроса: %w", err)
		}
		r.body = bytes.NewReader(data)
		r.contentType = "application/json"
	}

	respBody, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	return decodeEnvelope(respBody, target)
}

// --- Readiness checker ---

// CheckReady проверяет доступность backend.
// Любой ответ, кроме 5xx, означает, что backend принимает запросы.
func (c *Client) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.HealthURL(), nil)
	if err != nil {
		return "fail", fmt.Sprintf("некорректный адрес backend: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "fail", fmt.Sprintf("backend недоступен: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return "degraded", fmt.Sprintf("backend вернул статус %d", resp.StatusCode)
	}
	return "ok", "backend доступен"
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}

// normalizeURL убирает trailing slash из URL.
func normalizeURL(rawURL string) string {
	return strings.TrimRight(rawURL, "/")
}

// unwrapPermanent снимает обёртку backoff.Permanent.
func unwrapPermanent(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
