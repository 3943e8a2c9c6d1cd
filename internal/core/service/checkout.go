package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/rl1809/chat-commerce/internal/core/domain"
	"github.com/rl1809/chat-commerce/internal/port"
)

var tracer = otel.Tracer("github.com/rl1809/chat-commerce/internal/core/service")

const provisionalPrefix = "TEMP-"

type CheckoutRequest struct {
	Customer      domain.Customer      `json:"customer"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
}

// Validate checks the payload before any stock is looked at.
func (r CheckoutRequest) Validate() error {
	_, err := r.normalize()
	return err
}

// normalize validates r and returns it with trimmed fields and the bare
// email address, without any display name.
func (r CheckoutRequest) normalize() (CheckoutRequest, error) {
	r.Customer.Name = strings.TrimSpace(r.Customer.Name)
	if r.Customer.Name == "" {
		return r, &domain.ValidationError{Field: "name", Message: "is required"}
	}
	email, err := emailAddress(r.Customer.Email)
	if err != nil {
		return r, &domain.ValidationError{Field: "email", Message: "is not a valid address"}
	}
	r.Customer.Email = email
	if !r.PaymentMethod.Valid() {
		return r, &domain.ValidationError{Field: "payment_method", Message: fmt.Sprintf("unsupported method %q", r.PaymentMethod)}
	}
	return r, nil
}

func emailAddress(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return addr.Address, nil
}

// CheckoutPipeline turns a cart into an order: re-validate, price, create
// the remote order, then commit the stock decrement and clear the cart.
// Nothing is mutated before the remote order exists.
type CheckoutPipeline struct {
	inventory port.InventoryRepository
	orders    port.OrderGateway
	monitor   *ReplenishmentMonitor
	logger    *zap.Logger
	now       func() time.Time
}

func NewCheckoutPipeline(inventory port.InventoryRepository, orders port.OrderGateway, monitor *ReplenishmentMonitor, logger *zap.Logger) *CheckoutPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutPipeline{
		inventory: inventory,
		orders:    orders,
		monitor:   monitor,
		logger:    logger,
		now:       time.Now,
	}
}

func (p *CheckoutPipeline) Submit(ctx context.Context, ledger *CartLedger, req CheckoutRequest) (order domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "checkout.submit")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	req, err = req.normalize()
	if err != nil {
		return domain.Order{}, err
	}
	if !ledger.freeze() {
		return domain.Order{}, domain.ErrCheckoutInFlight
	}
	defer ledger.thaw()

	lines := ledger.Lines()
	if len(lines) == 0 {
		return domain.Order{}, domain.ErrEmptyCart
	}
	span.SetAttributes(attribute.Int("cart.lines", len(lines)))

	items, err := p.inventory.List(ctx)
	if err != nil {
		return domain.Order{}, fmt.Errorf("load inventory: %w", err)
	}
	catalog := indexItems(items)

	if short := shortLines(lines, catalog); len(short) > 0 {
		return domain.Order{}, &domain.StockChangedError{Lines: short}
	}

	order = buildOrder(lines, catalog, req)
	order.ID = provisionalPrefix + uuid.NewString()
	order.CreatedAt = p.now()

	ref, err := p.orders.CreateOrder(ctx, order)
	if err != nil {
		p.logger.Error("order backend rejected order",
			zap.String("provisional_id", order.ID),
			zap.Error(err),
		)
		return domain.Order{}, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}

	// From here on the remote order exists; the caller can no longer cancel.
	commitCtx := context.WithoutCancel(ctx)
	var updated []domain.InventoryItem
	err = ledger.commit(func() error {
		var derr error
		updated, derr = p.inventory.DecrementAll(commitCtx, lines)
		return derr
	})
	if err != nil {
		p.logger.Error("stock commit failed after order creation",
			zap.String("order_ref", ref),
			zap.String("provisional_id", order.ID),
			zap.Error(err),
		)
		if errors.Is(err, domain.ErrInsufficientStock) {
			return domain.Order{}, &domain.StockChangedError{Lines: p.recheck(commitCtx, lines)}
		}
		return domain.Order{}, fmt.Errorf("commit order %s: %w", ref, err)
	}

	order.ID = ref
	span.SetAttributes(attribute.String("order.id", ref), attribute.Int64("order.total", order.Total))
	p.logger.Info("order committed",
		zap.String("order_id", ref),
		zap.Int64("total", order.Total),
		zap.String("payment_method", string(order.PaymentMethod)),
	)

	if p.monitor != nil {
		snapshot, lerr := p.inventory.List(commitCtx)
		if lerr != nil {
			p.logger.Warn("post-commit snapshot unavailable, scanning updated lines only", zap.Error(lerr))
			snapshot = updated
		}
		p.monitor.Scan(commitCtx, snapshot)
	}

	return order, nil
}

// recheck is used when a concurrent session drained stock between
// validation and commit.
func (p *CheckoutPipeline) recheck(ctx context.Context, lines []domain.CartLine) []domain.ShortLine {
	items, err := p.inventory.List(ctx)
	if err != nil {
		return nil
	}
	return shortLines(lines, indexItems(items))
}

func shortLines(lines []domain.CartLine, catalog map[string]domain.InventoryItem) []domain.ShortLine {
	var short []domain.ShortLine
	for _, line := range lines {
		item, ok := catalog[line.ItemID]
		if !ok {
			short = append(short, domain.ShortLine{ItemID: line.ItemID, Requested: line.Quantity})
			continue
		}
		if line.Quantity > item.Stock {
			short = append(short, domain.ShortLine{ItemID: line.ItemID, Requested: line.Quantity, Available: item.Stock})
		}
	}
	return short
}

func buildOrder(lines []domain.CartLine, catalog map[string]domain.InventoryItem, req CheckoutRequest) domain.Order {
	order := domain.Order{
		Customer:      req.Customer,
		PaymentMethod: req.PaymentMethod,
		Lines:         make([]domain.OrderLine, 0, len(lines)),
	}
	for _, line := range lines {
		item := catalog[line.ItemID]
		order.Lines = append(order.Lines, domain.OrderLine{
			ItemID:    item.ID,
			Name:      item.Name,
			UnitPrice: item.Price,
			Quantity:  line.Quantity,
		})
		order.Total += item.Price * int64(line.Quantity)
	}
	return order
}
