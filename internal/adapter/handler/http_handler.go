package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rl1809/chat-commerce/internal/core/domain"
	"github.com/rl1809/chat-commerce/internal/core/service"
	"github.com/rl1809/chat-commerce/internal/port"
)

type HTTPHandler struct {
	inventory port.InventoryRepository
	sessions  *service.SessionManager
	checkout  *service.CheckoutPipeline
	contact   *service.ContactService
	logger    *zap.Logger
}

type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
}

type AddItemHTTPRequest struct {
	ItemID string `json:"item_id"`
}

type SetQuantityHTTPRequest struct {
	Quantity int `json:"quantity"`
}

// CartHTTPResponse reports whether the mutation applied together with the
// resulting cart; a rejected mutation is not an HTTP error.
type CartHTTPResponse struct {
	Applied bool            `json:"applied"`
	Cart    domain.CartView `json:"cart"`
}

type ChatHTTPRequest struct {
	Message string `json:"message"`
}

type ChatHTTPResponse struct {
	Turns []domain.Turn `json:"turns"`
	State string        `json:"state"`
}

func NewHTTPHandler(inventory port.InventoryRepository, sessions *service.SessionManager, checkout *service.CheckoutPipeline, contact *service.ContactService, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{
		inventory: inventory,
		sessions:  sessions,
		checkout:  checkout,
		contact:   contact,
		logger:    logger,
	}
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: items})
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.inventory.Get(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: item})
}

func (h *HTTPHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: SessionResponse{SessionID: s.ID}})
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeCart(w, r, s, true)
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req AddItemHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.ItemID) == "" {
		writeJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: "item_id is required"})
		return
	}

	applied, err := s.Cart.AddItem(r.Context(), req.ItemID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCart(w, r, s, applied)
}

func (h *HTTPHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req SetQuantityHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: "invalid request body"})
		return
	}

	applied, err := s.Cart.SetQuantity(r.Context(), chi.URLParam(r, "itemID"), req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCart(w, r, s, applied)
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	applied := s.Cart.RemoveItem(chi.URLParam(r, "itemID"))
	h.writeCart(w, r, s, applied)
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req service.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: "invalid request body"})
		return
	}

	order, err := h.checkout.Submit(r.Context(), s.Cart, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Message: "order placed successfully", Data: order})
}

func (h *HTTPHandler) Chat(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req ChatHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: "invalid request body"})
		return
	}

	turns, err := s.Agent.Send(r.Context(), req.Message)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if turns == nil {
		turns = []domain.Turn{}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: ChatHTTPResponse{Turns: turns, State: s.Agent.State().String()}})
}

func (h *HTTPHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	turns, err := s.Agent.Transcript(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: turns})
}

func (h *HTTPHandler) Contact(w http.ResponseWriter, r *http.Request) {
	var form domain.ContactForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: "invalid request body"})
		return
	}

	if err := h.contact.Submit(r.Context(), form); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, APIResponse{Success: true, Message: "message received, a copy was sent to your email"})
}

func (h *HTTPHandler) session(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	s, ok := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, APIResponse{Success: false, Message: "session not found"})
		return nil, false
	}
	return s, true
}

func (h *HTTPHandler) writeCart(w http.ResponseWriter, r *http.Request, s *service.Session, applied bool) {
	view, err := s.Cart.View(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: CartHTTPResponse{Applied: applied, Cart: view}})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	resp := APIResponse{Success: false, Message: message}

	var changed *domain.StockChangedError
	if errors.As(err, &changed) {
		resp.Data = changed.Lines
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, resp)
}

// classify maps domain errors to an HTTP status and a shopper-facing message.
func classify(err error) (int, string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrStockChanged):
		return http.StatusConflict, "stock changed, please review your cart"
	case errors.Is(err, domain.ErrCheckoutInFlight):
		return http.StatusConflict, "checkout already in progress"
	case errors.Is(err, domain.ErrAgentBusy):
		return http.StatusConflict, "assistant is still answering"
	case errors.Is(err, domain.ErrEmptyCart):
		return http.StatusUnprocessableEntity, "cart is empty"
	case errors.Is(err, domain.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, "order system unavailable, please try again"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
