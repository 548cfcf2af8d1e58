package emotion

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashMessage вычисляет стабильный SHA-256 хеш нормализованного сообщения
// для анти-спам окна. Нормализация: trim + lower, чтобы "Hi" и "hi " считались
// одним и тем же сообщением.
func HashMessage(message string) string {
	normalized := strings.ToLower(strings.TrimSpace(message))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
