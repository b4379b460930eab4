// Пакет auth — сессия консоли администратора.
// Сессия хранится у клиента в трёх зашифрованных cookie (AES-256-GCM):
// admin_token, admin_user, admin_permissions.
package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/krishibazar/admin-console/internal/domain/model"
	"github.com/krishibazar/admin-console/internal/domain/rbac"
)

// Имена cookie сессии.
const (
	TokenCookieName       = "admin_token"
	UserCookieName        = "admin_user"
	PermissionsCookieName = "admin_permissions"
)

// SessionCookieMaxAge — максимальный возраст cookie сессии (24 часа).
const SessionCookieMaxAge = 24 * 60 * 60

// LoginPath — страница входа.
const LoginPath = "/admin/login"

// cookiePath — область действия cookie.
const cookiePath = "/admin"

// SessionData — сессия администратора.
// После чтения в middleware не изменяется: обработчики получают её только на чтение.
type SessionData struct {
	Token string
	User  model.SessionUser
	// Permissions == nil — список прав отсутствует (все проверки дают отказ)
	Permissions []model.Permission
}

// Checker возвращает проверку прав для сессии.
func (s *SessionData) Checker() *rbac.Checker {
	if s == nil {
		return nil
	}
	return rbac.NewChecker(s.User.Username, s.Permissions)
}

// SessionManager шифрует сессию в cookie и читает её обратно.
// Запись в cookie выполняют только Login, SavePermissions, Logout и ForceLogout.
type SessionManager struct {
	gcm    cipher.AEAD
	secure bool
}

// NewSessionManager создаёт менеджер сессий.
// key — 32 байта в base64 или произвольная строка (хешируется SHA-256).
// Пустой key — случайный ключ, сессии не переживают рестарт.
func NewSessionManager(key string, secure bool) (*SessionManager, error) {
	var keyBytes []byte

	if key == "" {
		keyBytes = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, keyBytes); err != nil {
			return nil, fmt.Errorf("ошибка генерации ключа сессии: %w", err)
		}
	} else {
		var err error
		keyBytes, err = base64.StdEncoding.DecodeString(key)
		if err != nil || len(keyBytes) != 32 {
			keyBytes = sha256Key(key)
		}
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	return &SessionManager{gcm: gcm, secure: secure}, nil
}

// encrypt сериализует значение в JSON и шифрует его.
func (sm *SessionManager) encrypt(v any) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации сессии: %w", err)
	}

	nonce := make([]byte, sm.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	ciphertext := sm.gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// decrypt расшифровывает значение cookie в v.
func (sm *SessionManager) decrypt(encrypted string, v any) error {
	ciphertext, err := base64.URLEncoding.DecodeString(encrypted)
	if err != nil {
		return fmt.Errorf("ошибка декодирования base64: %w", err)
	}

	nonceSize := sm.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return errors.New("зашифрованные данные слишком короткие")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := sm.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("ошибка дешифрования сессии: %w", err)
	}

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("ошибка десериализации сессии: %w", err)
	}
	return nil
}

// Load читает сессию из cookie запроса.
// Возвращает nil, nil, если cookie токена нет. Повреждённые токен или
// пользователь — ошибка. Повреждённый или отсутствующий список прав даёт
// Permissions == nil: его восстановит следующий защищённый запрос.
func (sm *SessionManager) Load(r *http.Request) (*SessionData, error) {
	tokenCookie, err := r.Cookie(TokenCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}

	var s SessionData
	if err := sm.decrypt(tokenCookie.Value, &s.Token); err != nil {
		return nil, fmt.Errorf("cookie %s: %w", TokenCookieName, err)
	}
	if s.Token == "" {
		return nil, fmt.Errorf("cookie %s: пустой токен", TokenCookieName)
	}

	userCookie, err := r.Cookie(UserCookieName)
	if err != nil {
		return nil, fmt.Errorf("cookie %s: %w", UserCookieName, err)
	}
	if err := sm.decrypt(userCookie.Value, &s.User); err != nil {
		return nil, fmt.Errorf("cookie %s: %w", UserCookieName, err)
	}

	if permCookie, err := r.Cookie(PermissionsCookieName); err == nil {
		var keys []string
		if err := sm.decrypt(permCookie.Value, &keys); err == nil {
			s.Permissions = permissionsFromKeys(keys)
		}
	}

	return &s, nil
}

// Login сохраняет новую сессию.
func (sm *SessionManager) Login(w http.ResponseWriter, s *SessionData) error {
	token, err := sm.encrypt(s.Token)
	if err != nil {
		return err
	}
	user, err := sm.encrypt(s.User)
	if err != nil {
		return err
	}
	permsValue, err := sm.encrypt(permissionKeys(s.Permissions))
	if err != nil {
		return err
	}

	sm.setCookie(w, TokenCookieName, token, SessionCookieMaxAge)
	sm.setCookie(w, UserCookieName, user, SessionCookieMaxAge)
	sm.setCookie(w, PermissionsCookieName, permsValue, SessionCookieMaxAge)
	return nil
}

// SavePermissions перезаписывает только список прав (восстановление прав).
func (sm *SessionManager) SavePermissions(w http.ResponseWriter, perms []model.Permission) error {
	value, err := sm.encrypt(permissionKeys(perms))
	if err != nil {
		return err
	}
	sm.setCookie(w, PermissionsCookieName, value, SessionCookieMaxAge)
	return nil
}

// Logout удаляет все cookie сессии.
func (sm *SessionManager) Logout(w http.ResponseWriter) {
	for _, name := range []string{TokenCookieName, UserCookieName, PermissionsCookieName} {
		sm.setCookie(w, name, "", -1)
	}
}

// ForceLogout завершает сессию после 401 от backend и уводит на страницу входа.
// Для HTMX-запроса — заголовок HX-Redirect, иначе 303.
func (sm *SessionManager) ForceLogout(w http.ResponseWriter, r *http.Request) {
	sm.Logout(w)
	if IsHTMX(r) {
		w.Header().Set("HX-Redirect", LoginPath)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

func (sm *SessionManager) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// IsHTMX сообщает, что запрос отправлен HTMX.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// permissionKeys оставляет от прав только ключи: проверкам нужен лишь
// permission_key, а полный список с подписями не помещается в cookie (4 КБ).
func permissionKeys(perms []model.Permission) []string {
	keys := make([]string, 0, len(perms))
	for _, p := range perms {
		if p.PermissionKey != "" {
			keys = append(keys, p.PermissionKey)
		}
	}
	return keys
}

func permissionsFromKeys(keys []string) []model.Permission {
	if keys == nil {
		return nil
	}
	perms := make([]model.Permission, 0, len(keys))
	for _, k := range keys {
		perms = append(perms, model.Permission{PermissionKey: k})
	}
	return perms
}

// sha256Key хеширует строковый ключ в 32 байта.
func sha256Key(key string) []byte {
	h := sha256.Sum256([]byte(key))
	return h[:]
}
