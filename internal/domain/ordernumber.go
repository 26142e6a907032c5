package domain

import (
	"strings"

	"github.com/google/uuid"
)

// orderNumberPrefix — человекочитаемый префикс номеров заказов витрины.
const orderNumberPrefix = "SO-"

// NewOrderNumber генерирует номер заказа: префикс + 12 hex-символов из
// случайного UUID. Уникальность гарантирует unique-индекс хранилища,
// коллизии разрешаются повторной генерацией на уровне сервиса.
func NewOrderNumber() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return orderNumberPrefix + strings.ToUpper(raw[:12])
}
