package middleware

import (
	"net/http"
	"regexp"

	"flashai/internal/models"
)

// bearerPattern: префикс "Bearer" с учетом регистра, ровно один пробел, непустой токен без пробелов.
var bearerPattern = regexp.MustCompile(`^Bearer (\S+)$`)

// ExtractBearerToken достает токен из заголовка Authorization.
// Отсутствующий или пустой заголовок - MISSING_TOKEN, любой другой формат -
// INVALID_AUTHORIZATION_HEADER.
func ExtractBearerToken(header http.Header) (string, error) {
	value := header.Get("Authorization")
	if value == "" {
		return "", models.NewError(models.KindMissingToken, "Missing authorization token")
	}
	m := bearerPattern.FindStringSubmatch(value)
	if m == nil {
		return "", models.NewError(models.KindInvalidAuthHeader, "Invalid authorization header format")
	}
	return m[1], nil
}
