package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Amount — денежная или дробная величина из backend.
// Backend отдаёт DECIMAL-колонки то числом, то строкой ("1500.00"), поэтому
// принимаются оба варианта. null и пустая строка дают 0.
type Amount float64

// UnmarshalJSON принимает число, числовую строку или null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("amount: некорректное значение %q", s)
		}
		*a = Amount(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	*a = Amount(f)
	return nil
}

// Float64 возвращает значение как float64.
func (a Amount) Float64() float64 { return float64(a) }

// String форматирует величину с двумя знаками после точки.
func (a Amount) String() string {
	return strconv.FormatFloat(float64(a), 'f', 2, 64)
}

// Round2 округляет до двух знаков после точки.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FileList — список имён файлов. Backend хранит его по-разному:
// JSON-массив, JSON-массив внутри строки ("[\"a.jpg\"]") или строка через запятую.
type FileList []string

// UnmarshalJSON нормализует все три формы в срез имён без пустых элементов.
func (l *FileList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	if data[0] == '[' {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("file list: %w", err)
		}
		*l = compact(items)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("file list: %w", err)
	}
	*l = ParseFileList(s)
	return nil
}

// ParseFileList разбирает строковое представление списка файлов.
func ParseFileList(s string) FileList {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var items []string
		if err := json.Unmarshal([]byte(s), &items); err == nil {
			return compact(items)
		}
	}
	return compact(strings.Split(s, ","))
}

func compact(items []string) FileList {
	var result FileList
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it != "" {
			result = append(result, it)
		}
	}
	return result
}

// timestampLayouts — форматы времени, которые встречаются в ответах backend.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp — момент времени из backend. Неизвестный формат даёт нулевое
// значение, а не ошибку разбора всего ответа.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON принимает строку в одном из timestampLayouts или null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		t.Time = time.Time{}
		return nil
	}
	t.Time = ParseTimestamp(s)
	return nil
}

// MarshalJSON сериализует в RFC 3339, нулевое значение — null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

// ParseTimestamp разбирает строку времени, нераспознанная строка — нулевое время.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			return v
		}
	}
	return time.Time{}
}

// Flag — логический признак. MySQL-backend отдаёт TINYINT как 0/1,
// часть endpoint'ов — как true/false или строку.
type Flag bool

// UnmarshalJSON принимает bool, число или строку ("1", "true").
func (f *Flag) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		*f = true
	default:
		*f = false
	}
	return nil
}
