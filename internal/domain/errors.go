package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора покупателя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствующего номера заказа.
	ErrNumberRequired = errors.New("order number is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной стоимости доставки.
	ErrShippingNegative = errors.New("shipping price must be non-negative")
	// Ошибка отрицательного итога заказа.
	ErrGrandTotalNegative = errors.New("grand total must be non-negative")
	// Ошибка несоответствия итога заказа сумме строк и доставке.
	ErrGrandTotalMismatch = errors.New("grand total does not match items sum plus shipping")
	// Ошибка отсутствующей ссылки на товар в позиции.
	ErrItemProductRequired = errors.New("item product_id is required")
	// Количество товара должно быть положительным.
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Отрицательная цена позиции.
	ErrItemPriceInvalid = errors.New("item unit price must be non-negative")
	// Ошибка, если сумма налога по строке отрицательная.
	ErrItemTaxInvalid = errors.New("item tax amount must be non-negative")
	// Ошибка несоответствия итога строки её арифметике.
	ErrItemTotalMismatch = errors.New("item total does not match unit price, qty and tax")
	// Ошибка неизвестного значения статуса.
	ErrStatusInvalid = errors.New("order status is not valid")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории
	// (в том числе при несовпадении владельца, чтобы не раскрывать существование).
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicateOrderNumber — конфликт unique-индекса по номеру заказа.
	ErrDuplicateOrderNumber = errors.New("order number already exists")
	// ErrInvalidTransition — переход статуса запрещён таблицей переходов.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrStatusConflict — проиграна гонка двух одновременных переходов:
	// текущий статус изменился между чтением и conditional-обновлением.
	ErrStatusConflict = errors.New("order status changed concurrently")
	// ErrStatusUpdateMismatch — вспомогательные поля перехода не соответствуют
	// целевому статусу: трек-данные допустимы только при dispatched,
	// причина отмены — только при canceled.
	ErrStatusUpdateMismatch = errors.New("status update fields do not match target status")

	// ErrProductNotFound возвращается каталогом при неизвестном товаре.
	ErrProductNotFound = errors.New("product not found")

	// ErrOutboxPublish — сбой публикации или неизвестный ID сообщения.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsNotFound проверяет, является ли ошибка отсутствием заказа.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}

// IsDuplicateNumber проверяет, является ли ошибка конфликтом номера заказа.
func IsDuplicateNumber(err error) bool {
	return errors.Is(err, ErrDuplicateOrderNumber)
}
