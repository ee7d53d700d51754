package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// hashData вычисляет SHA-256 хеш и возвращает его в hex.
func hashData(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

var (
	invisibleChars = regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}]`)
	controlChars   = regexp.MustCompile(`[\x00-\x08\x0B-\x1F\x7F-\x9F]`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// sanitizeSourceText убирает невидимые и управляющие символы и схлопывает пробелы.
// Хеш и длина исходного текста считаются по результату.
func sanitizeSourceText(text string) string {
	text = invisibleChars.ReplaceAllString(text, "")
	text = whitespaceRuns.ReplaceAllString(text, " ")
	text = controlChars.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// applyPepper подмешивает серверный секрет к паролю через HMAC-SHA256.
// Заодно снимает ограничение bcrypt в 72 байта.
func applyPepper(password, pepper string) []byte {
	h := hmac.New(sha256.New, []byte(pepper))
	h.Write([]byte(password))
	return h.Sum(nil)
}

func hashPassword(password, pepper string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(applyPepper(password, pepper), cost)
	return string(hash), err
}

func checkPasswordHash(password, hash, pepper string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), applyPepper(password, pepper)) == nil
}
