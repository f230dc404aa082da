// Package validation содержит функции валидации входных данных.
package validation

import "strings"

// TrimmedNonEmpty возвращает строку без краевых пробелов и признак того,
// что после обрезки она не пуста.
func TrimmedNonEmpty(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	return trimmed, trimmed != ""
}

// IsValidAmount проверяет, что денежная сумма в копейках неотрицательна.
func IsValidAmount(cents int64) bool {
	return cents >= 0
}
