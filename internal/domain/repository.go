package domain

// ListFilter ограничивает выборку заказов в листинге.
type ListFilter struct {
	// UserID — опциональный фильтр по владельцу.
	UserID string
	// Status — опциональный фильтр по статусу.
	Status OrderStatus
	// Limit ограничивает количество записей (<=0 — дефолт реализации).
	Limit int
}

// OrderRepository — персистентность заказов. Переданные events пишутся
// атомарно с изменением заказа.
//
// События events записываются в transactional outbox той же транзакцией,
// что и изменение заказа: либо фиксируются заказ и события вместе, либо
// ничего.
type OrderRepository interface {
	// Create сохраняет новый заказ целиком (заказ + позиции + события).
	// Возвращает ErrDuplicateOrderNumber при конфликте номера.
	Create(order Order, events ...OutboxMessage) error
	// GetByID возвращает заказ по внутреннему идентификатору или ErrOrderNotFound.
	GetByID(id string) (Order, error)
	// GetByNumber возвращает заказ по человекочитаемому номеру или ErrOrderNotFound.
	GetByNumber(number string) (Order, error)
	// List возвращает заказы по фильтру, новые первыми.
	List(filter ListFilter) ([]Order, error)
	// TransitionStatus атомарно переводит заказ из from в to одним
	// conditional-обновлением (compare-and-swap по текущему статусу),
	// применяет вспомогательные поля и записывает события. Возвращает
	// ErrOrderNotFound, если заказа нет, и ErrStatusConflict, если статус
	// уже не from.
	TransitionStatus(id string, from, to OrderStatus, update StatusUpdate, events ...OutboxMessage) (Order, error)
}
