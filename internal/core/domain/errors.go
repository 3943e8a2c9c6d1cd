package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound           = errors.New("item not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrStockChanged       = errors.New("stock changed since the cart was built")
	ErrBackendUnavailable = errors.New("order backend unavailable")
	ErrAgentUnavailable   = errors.New("assistant unavailable")
	ErrAgentNotConfigured = fmt.Errorf("%w: not configured", ErrAgentUnavailable)
	ErrAgentBusy          = errors.New("assistant is still answering the previous message")
	ErrCheckoutInFlight   = errors.New("checkout already in progress")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidInput       = errors.New("invalid input")
)

// ShortLine describes a cart line that no longer fits current stock.
type ShortLine struct {
	ItemID    string `json:"item_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// StockChangedError lists every line that failed checkout re-validation.
type StockChangedError struct {
	Lines []ShortLine
}

func (e *StockChangedError) Error() string {
	parts := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		parts = append(parts, fmt.Sprintf("%s (requested %d, available %d)", l.ItemID, l.Requested, l.Available))
	}
	return ErrStockChanged.Error() + ": " + strings.Join(parts, ", ")
}

func (e *StockChangedError) Is(target error) bool { return target == ErrStockChanged }

// ValidationError reports a rejected checkout or contact payload field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }
