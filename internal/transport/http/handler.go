package http

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	order "github.com/vladislavdragonenkov/storefront/internal/service/order"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyTTL       = 24 * time.Hour
	maxRequestBody       = 1 << 20 // 1 MiB
)

// Handler обслуживает REST API заказов.
type Handler struct {
	orders      *order.Service
	idempotency domain.IdempotencyRepository
	logger      *log.Entry
}

// NewHandler создаёт HTTP-обработчик. idempotency может быть nil —
// тогда заголовок Idempotency-Key игнорируется.
func NewHandler(orders *order.Service, idempotency domain.IdempotencyRepository) *Handler {
	return &Handler{
		orders:      orders,
		idempotency: idempotency,
		logger:      log.WithField("component", "http-handler"),
	}
}

// CreateOrder оформляет заказ. Повторный запрос с тем же Idempotency-Key
// и тем же телом возвращает сохранённый ответ.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	var req CreateOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	idempKey := r.Header.Get(idempotencyKeyHeader)
	if idempKey != "" && h.idempotency != nil {
		if done := h.beginIdempotent(w, idempKey, body); done {
			return
		}
	}

	items := make([]order.CreateItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, order.CreateItemInput{
			ProductID:      item.ProductID,
			Qty:            item.Qty,
			TaxAmountMinor: item.TaxAmountMinor,
		})
	}

	created, err := h.orders.Create(r.Context(), order.CreateInput{
		UserID:          userIDFrom(r.Context()),
		Items:           items,
		ShippingMinor:   req.ShippingMinor,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		status, code := mapError(err)
		if idempKey != "" && h.idempotency != nil {
			h.finishIdempotent(idempKey, status, ErrorResponse{Error: code, Message: err.Error()}, false)
		}
		writeError(w, status, code, err.Error())
		return
	}

	response := mapOrderToResponse(created)
	if idempKey != "" && h.idempotency != nil {
		h.finishIdempotent(idempKey, http.StatusCreated, response, true)
	}
	writeJSON(w, http.StatusCreated, response)
}

// GetOrder возвращает заказ по номеру. Не-администратор видит только свои
// заказы; чужой номер отвечает 404.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if number == "" {
		writeError(w, http.StatusBadRequest, "number_required", "")
		return
	}

	found, err := h.orders.GetByNumber(number, h.ownerScope(r))
	if err != nil {
		status, code := mapError(err)
		writeError(w, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToResponse(found))
}

// GetOrderTimeline возвращает события жизненного цикла заказа.
func (h *Handler) GetOrderTimeline(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if number == "" {
		writeError(w, http.StatusBadRequest, "number_required", "")
		return
	}

	found, err := h.orders.GetByNumber(number, h.ownerScope(r))
	if err != nil {
		status, code := mapError(err)
		writeError(w, status, code, err.Error())
		return
	}

	events, err := h.orders.Timeline(found.ID, "")
	if err != nil {
		status, code := mapError(err)
		writeError(w, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, mapTimelineToResponse(events))
}

// ListOrders возвращает заказы по фильтру; операция административная.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter := domain.ListFilter{
		UserID: r.URL.Query().Get("user_id"),
		Limit:  parseLimit(r.URL.Query().Get("limit")),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.OrderStatus(status)
		if !filter.Status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_status", "unknown status filter")
			return
		}
	}

	orders, err := h.orders.List(filter)
	if err != nil {
		status, code := mapError(err)
		writeError(w, status, code, err.Error())
		return
	}

	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = mapOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, out)
}

// UpdateStatus переводит заказ в целевой статус; операция административная.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if number == "" {
		writeError(w, http.StatusBadRequest, "number_required", "")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status_required", "target status is required")
		return
	}

	found, err := h.orders.GetByNumber(number, "")
	if err != nil {
		status, code := mapError(err)
		writeError(w, status, code, err.Error())
		return
	}

	updated, err := h.orders.Transition(found.ID, domain.OrderStatus(req.Status), domain.StatusUpdate{
		TrackingID:   req.TrackingID,
		TrackingURL:  req.TrackingURL,
		CancelReason: req.CancelReason,
	})
	if err != nil {
		status, code := mapError(err)
		writeError(w, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToResponse(updated))
}

// ownerScope возвращает фильтр владельца: пустая строка для администратора.
func (h *Handler) ownerScope(r *http.Request) string {
	if isAdmin(r.Context()) {
		return ""
	}
	return userIDFrom(r.Context())
}

// beginIdempotent регистрирует ключ; true означает, что ответ уже записан
// (реплей, конфликт или ошибка ключа).
func (h *Handler) beginIdempotent(w http.ResponseWriter, key string, body []byte) bool {
	hash := requestHash(body)

	_, err := h.idempotency.CreateProcessing(key, hash, time.Now().UTC().Add(idempotencyTTL))
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		writeError(w, http.StatusConflict, "idempotency_mismatch", "idempotency key reused with a different request body")
	case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
		record, getErr := h.idempotency.Get(key)
		if getErr != nil {
			writeError(w, http.StatusInternalServerError, "idempotency_error", getErr.Error())
			return true
		}
		if record.Status == domain.IdempotencyStatusProcessing {
			writeError(w, http.StatusConflict, "idempotency_in_progress", "original request is still being processed")
			return true
		}
		// Реплей сохранённого ответа.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(record.HTTPStatus)
		_, _ = w.Write(record.ResponseBody)
	default:
		writeError(w, http.StatusBadRequest, "idempotency_error", err.Error())
	}
	return true
}

func (h *Handler) finishIdempotent(key string, status int, response any, ok bool) {
	body, err := json.Marshal(response)
	if err != nil {
		h.logger.WithError(err).WithField("key", key).Warn("failed to marshal idempotent response")
		return
	}

	if ok {
		err = h.idempotency.MarkDone(key, body, status)
	} else {
		err = h.idempotency.MarkFailed(key, body, status)
	}
	if err != nil {
		h.logger.WithError(err).WithField("key", key).Warn("failed to finalize idempotency record")
	}
}

func requestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func parseLimit(raw string) int {
	if raw == "" {
		return 0
	}
	limit := 0
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0
		}
		limit = limit*10 + int(c-'0')
		if limit > 1000 {
			return 1000
		}
	}
	return limit
}

var validationErrors = []error{
	domain.ErrUserRequired,
	domain.ErrNumberRequired,
	domain.ErrItemsRequired,
	domain.ErrShippingNegative,
	domain.ErrGrandTotalNegative,
	domain.ErrGrandTotalMismatch,
	domain.ErrItemProductRequired,
	domain.ErrItemQtyInvalid,
	domain.ErrItemPriceInvalid,
	domain.ErrItemTaxInvalid,
	domain.ErrItemTotalMismatch,
	domain.ErrStatusInvalid,
	domain.ErrStatusUpdateMismatch,
	domain.ErrProductNotFound,
}

// mapError переводит доменные ошибки в HTTP-статусы. Ошибки валидации —
// 400, отсутствие — 404, конфликты и запрещённые переходы — 409.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrStatusConflict):
		return http.StatusConflict, "status_conflict"
	case errors.Is(err, domain.ErrDuplicateOrderNumber):
		return http.StatusConflict, "number_conflict"
	}

	for _, sentinel := range validationErrors {
		if errors.Is(err, sentinel) {
			return http.StatusBadRequest, "validation_failed"
		}
	}

	return http.StatusInternalServerError, "internal_error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
