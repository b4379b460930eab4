// Пакет i18n — строки интерфейса консоли на английском (en) и бенгальском (bn).
//
// Язык запроса выбирает Middleware: cookie "lang", затем Accept-Language,
// затем KB_DEFAULT_LANGUAGE. Шаблоны получают строки через T и Tf.
// Ключ без перевода в bn берётся из en; ключ, которого нет нигде,
// выводится как есть, чтобы пропуск был виден на странице.
package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// fallbackLang — каталог, из которого берутся недостающие ключи.
const fallbackLang = "en"

// Languages — языки, для которых есть каталоги в locales/.
var Languages = []string{"en", "bn"}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Bengali})

type langKey struct{}

// Bundle — каталоги переводов по языкам.
type Bundle struct {
	mu       sync.RWMutex
	catalogs map[string]map[string]string
	logger   *slog.Logger
}

// NewBundle создаёт Bundle без каталогов. logger может быть nil.
func NewBundle(logger *slog.Logger) *Bundle {
	return &Bundle{catalogs: make(map[string]map[string]string), logger: logger}
}

// LoadMessages заменяет каталог языка lang плоским JSON-объектом ключ → строка.
func (b *Bundle) LoadMessages(lang string, data []byte) error {
	var messages map[string]string
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("i18n: каталог %s: %w", lang, err)
	}

	b.mu.Lock()
	b.catalogs[lang] = messages
	b.mu.Unlock()

	if b.logger != nil {
		b.logger.Info("Каталог строк загружен", slog.String("lang", lang), slog.Int("keys", len(messages)))
	}
	return nil
}

// Translate возвращает строку key на языке lang.
func (b *Bundle) Translate(lang, key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if msg, ok := b.catalogs[lang][key]; ok {
		return msg
	}
	if msg, ok := b.catalogs[fallbackLang][key]; ok {
		return msg
	}
	return key
}

// Translatef подставляет args в строку key (формат fmt).
func (b *Bundle) Translatef(lang, key string, args ...any) string {
	msg := b.Translate(lang, key)
	if len(args) == 0 {
		return msg
	}
	return sprintf(msg, args...)
}

// sprintf вызывается через переменную: форматы приходят из каталогов,
// и printf-проверка go vet к ним неприменима.
//
//nolint:govet
var sprintf = fmt.Sprintf

var (
	bundle     *Bundle
	bundleOnce sync.Once
)

// Init создаёт общий Bundle процесса; повторные вызовы возвращают тот же.
func Init(logger *slog.Logger) *Bundle {
	bundleOnce.Do(func() {
		bundle = NewBundle(logger)
	})
	return bundle
}

// WithLang сохраняет язык запроса в контексте.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

// LangFromContext — язык запроса; без Middleware — en.
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(langKey{}).(string); ok && lang != "" {
		return lang
	}
	return fallbackLang
}

// T — строка key на языке запроса. До Init возвращает сам ключ.
func T(ctx context.Context, key string) string {
	if bundle == nil {
		return key
	}
	return bundle.Translate(LangFromContext(ctx), key)
}

// Tf — T с подстановкой аргументов.
func Tf(ctx context.Context, key string, args ...any) string {
	if bundle == nil {
		if len(args) == 0 {
			return key
		}
		return sprintf(key, args...)
	}
	return bundle.Translatef(LangFromContext(ctx), key, args...)
}

// Supported сообщает, есть ли каталог для lang.
func Supported(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// MatchLanguage сводит заголовок Accept-Language к "bn" или "en".
// ok == false — ни один язык заголовка не подходит.
func MatchLanguage(acceptLanguage string) (lang string, ok bool) {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return "", false
	}
	tag, _, conf := matcher.Match(tags...)
	if conf == language.No {
		return "", false
	}
	if base, _ := tag.Base(); strings.HasPrefix(base.String(), "bn") {
		return "bn", true
	}
	return "en", true
}
