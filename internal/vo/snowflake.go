package vo

import "unicode"

// isSnowflake проверяет, что строка похожа на идентификатор платформы:
// от 5 до 20 десятичных цифр без иных символов.
func isSnowflake(raw string) bool {
	if len(raw) < 5 || len(raw) > 20 {
		return false
	}

	for _, ch := range raw {
		if !unicode.IsDigit(ch) {
			return false
		}
	}

	return true
}
