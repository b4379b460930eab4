// token.go — чтение claims токена backend до обращения к нему.
// Истёкший токен завершает сессию без лишнего запроса. Подпись проверяется,
// только если задан JWKS URL: авторизацию всё равно выполняет backend.
package auth

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// tokenLeeway — допуск расхождения часов с backend.
const tokenLeeway = 30 * time.Second

var (
	// ErrTokenExpired — срок действия токена истёк.
	ErrTokenExpired = errors.New("срок действия токена истёк")
	// ErrTokenInvalid — подпись или формат токена неверны.
	ErrTokenInvalid = errors.New("невалидный токен")
)

// TokenInfo — сведения из токена.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time
	// Verified — подпись проверена по JWKS
	Verified bool
	// Opaque — токен не является JWT, проверка отдана backend
	Opaque bool
}

// TokenInspector читает claims токена backend.
type TokenInspector struct {
	jwks   keyfunc.Keyfunc
	logger *slog.Logger
}

// NewTokenInspector создаёт инспектор. Пустой jwksURL — без проверки подписи.
func NewTokenInspector(jwksURL, caCertPath string, timeout time.Duration, logger *slog.Logger) (*TokenInspector, error) {
	ti := &TokenInspector{logger: logger.With(slog.String("component", "token_inspector"))}
	if jwksURL == "" {
		return ti, nil
	}

	httpClient := &http.Client{Timeout: timeout}
	if caCertPath != "" {
		var err error
		httpClient, err = httpClientWithCA(caCertPath, timeout)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата %s: %w", caCertPath, err)
		}
	}

	// NoErrorReturnFirstHTTPReq — консоль стартует, даже если backend ещё недоступен
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           time.Hour,
		RefreshErrorHandler: func(_ context.Context, err error) {
			ti.logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}
	ti.jwks = k
	return ti, nil
}

// NewTokenInspectorWithKeyfunc создаёт инспектор с готовой keyfunc (тесты).
func NewTokenInspectorWithKeyfunc(kf keyfunc.Keyfunc, logger *slog.Logger) *TokenInspector {
	return &TokenInspector{jwks: kf, logger: logger.With(slog.String("component", "token_inspector"))}
}

// Verifies сообщает, проверяется ли подпись.
func (ti *TokenInspector) Verifies() bool {
	return ti != nil && ti.jwks != nil
}

// Inspect разбирает токен.
// Без JWKS токен, не являющийся JWT, считается непрозрачным и не отклоняется.
func (ti *TokenInspector) Inspect(ctx context.Context, token string) (*TokenInfo, error) {
	claims := &jwt.RegisteredClaims{}

	if !ti.Verifies() {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return &TokenInfo{Opaque: true}, nil
		}
		info := infoFromClaims(claims, false)
		if !info.ExpiresAt.IsZero() && time.Now().After(info.ExpiresAt.Add(tokenLeeway)) {
			return info, ErrTokenExpired
		}
		return info, nil
	}

	_, err := jwt.ParseWithClaims(token, claims, ti.jwks.KeyfuncCtx(ctx), jwt.WithLeeway(tokenLeeway))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return infoFromClaims(claims, false), ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	return infoFromClaims(claims, true), nil
}

func infoFromClaims(c *jwt.RegisteredClaims, verified bool) *TokenInfo {
	info := &TokenInfo{Subject: c.Subject, Verified: verified}
	if c.ExpiresAt != nil {
		info.ExpiresAt = c.ExpiresAt.Time
	}
	return info
}

// httpClientWithCA создаёт HTTP-клиент с дополнительным CA-сертификатом.
func httpClientWithCA(caCertPath string, timeout time.Duration) (*http.Client, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, err
	}

	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	pool.AppendCertsFromPEM(caCert)

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		},
	}, nil
}
