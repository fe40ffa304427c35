// Package checkout runs the order placement saga: reconcile the cart
// against stock, reserve, authorize payment, persist the order, fulfill
// and notify. Every step before payment capture has a compensating
// action, so a failure never strands reservations or holds.
package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/eazybuy/internal/cart"
	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/internal/email"
	"github.com/talkincode/eazybuy/internal/inventory"
	"github.com/talkincode/eazybuy/internal/orders"
	"github.com/talkincode/eazybuy/internal/payment"
	"github.com/talkincode/eazybuy/internal/pricing"
	"github.com/talkincode/eazybuy/pkg/metrics"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart       = errors.New("checkout: cart is empty")
	ErrPaymentDeclined = errors.New("checkout: payment was declined")
)

// Pricing carries the storefront's standing price inputs.
type Pricing struct {
	BaseShipping     float64
	FreeShippingOver float64 // 0 disables
	TaxRate          float64
	Currency         string
}

// ShippingFor applies the free-shipping-over rule to a subtotal.
func (p Pricing) ShippingFor(subtotal float64) float64 {
	if p.FreeShippingOver > 0 && subtotal >= p.FreeShippingOver {
		return 0
	}
	return p.BaseShipping
}

// Service orchestrates checkout.
type Service struct {
	carts      cart.Repository
	reconciler *cart.Reconciler
	engine     *pricing.Engine
	discounts  pricing.DiscountRepository
	ledger     *inventory.Service
	orders     orders.Repository
	payments   payment.Client
	mail       *email.Service
	pricing    Pricing
}

func NewService(
	carts cart.Repository,
	reconciler *cart.Reconciler,
	engine *pricing.Engine,
	discounts pricing.DiscountRepository,
	ledger *inventory.Service,
	orderRepo orders.Repository,
	payments payment.Client,
	mail *email.Service,
	p Pricing,
) *Service {
	return &Service{
		carts:      carts,
		reconciler: reconciler,
		engine:     engine,
		discounts:  discounts,
		ledger:     ledger,
		orders:     orderRepo,
		payments:   payments,
		mail:       mail,
		pricing:    p,
	}
}

// QuoteCart prices the owner's current cart with the given codes,
// without reserving stock or touching usage counters.
func (s *Service) QuoteCart(ctx context.Context, ownerKey string, codes []string) (*pricing.Quote, cart.Report, error) {
	c, err := s.carts.GetByOwner(ctx, ownerKey)
	if err != nil {
		return nil, cart.Report{}, err
	}
	report := s.reconciler.ValidateStock(c.Items)
	if report.Changed() {
		c.Items = report.Valid
		if err := s.carts.Save(ctx, c); err != nil {
			return nil, report, err
		}
	}
	shipping := s.pricing.ShippingFor(cart.Subtotal(report.Valid))
	q, err := s.engine.Calculate(ctx, report.Valid, codes, shipping, s.pricing.TaxRate)
	return q, report, err
}

// PlaceOrderInput is the storefront's checkout request.
type PlaceOrderInput struct {
	OwnerKey        string
	CustomerID      int64
	Email           string
	Name            string
	ShippingAddress string
	Codes           []string
}

// PlaceOrderResult reports the created order plus any cart corrections
// the final stock reconciliation made.
type PlaceOrderResult struct {
	Order  *domain.Order
	Report cart.Report
}

// PlaceOrder runs the checkout saga. The stock reconciliation runs
// synchronously immediately before the payment hold; lines it removes
// or reduces are reported back, and the remaining set is what gets
// charged. Compensations run in reverse order of the completed steps.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*PlaceOrderResult, error) {
	c, err := s.carts.GetByOwner(ctx, in.OwnerKey)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	// authoritative pre-payment gate
	report := s.reconciler.ValidateStock(c.Items)
	if report.Changed() {
		c.Items = report.Valid
		if err := s.carts.Save(ctx, c); err != nil {
			return nil, err
		}
	}
	items := report.Valid
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	// hold stock for every line; back out the holds taken so far if any
	// line loses the race
	reserved := make([]domain.CartItem, 0, len(items))
	releaseAll := func() {
		for _, it := range reserved {
			if err := s.ledger.ReleaseReservedStock(ctx, it.ProductID, it.Quantity, "checkout"); err != nil {
				zap.L().Error("failed to release reservation",
					zap.Int64("product_id", it.ProductID), zap.Error(err))
			}
		}
	}
	for _, it := range items {
		if err := s.ledger.ReserveStock(ctx, it.ProductID, it.Quantity, "checkout"); err != nil {
			releaseAll()
			return nil, errors.Wrap(err, "reserve stock")
		}
		reserved = append(reserved, it)
	}

	shipping := s.pricing.ShippingFor(cart.Subtotal(items))
	quote, err := s.engine.Calculate(ctx, items, in.Codes, shipping, s.pricing.TaxRate)
	if err != nil {
		releaseAll()
		return nil, err
	}

	auth, err := s.payments.Authorize(ctx, quote.Total, s.pricing.Currency, "")
	if err != nil {
		releaseAll()
		if errors.Is(err, payment.ErrDeclined) {
			return nil, ErrPaymentDeclined
		}
		return nil, err
	}

	order := s.buildOrder(in, items, quote, auth.Ref)
	if err := s.orders.Create(ctx, order); err != nil {
		s.voidPayment(ctx, auth.Ref)
		releaseAll()
		return nil, errors.Wrap(err, "create order")
	}

	if err := s.payments.Capture(ctx, auth.Ref); err != nil {
		s.voidPayment(ctx, auth.Ref)
		releaseAll()
		if err := s.orders.UpdateStatus(ctx, order.OrderNo, domain.OrderCancelled); err != nil {
			zap.L().Error("failed to cancel order after capture failure",
				zap.String("order_no", order.OrderNo), zap.Error(err))
		}
		return nil, errors.Wrap(err, "capture payment")
	}
	if err := s.orders.UpdateStatus(ctx, order.OrderNo, domain.OrderPaid); err != nil {
		zap.L().Error("failed to mark order paid",
			zap.String("order_no", order.OrderNo), zap.Error(err))
	}
	order.Status = domain.OrderPaid

	// fulfillment: convert the holds into shipped stock. Payment is
	// already captured, so failures here are logged for the admin
	// console rather than unwound.
	for _, it := range items {
		if err := s.ledger.ProcessOrder(ctx, it.ProductID, it.Quantity, "system", order.OrderNo); err != nil {
			zap.L().Error("fulfillment failed",
				zap.String("order_no", order.OrderNo),
				zap.Int64("product_id", it.ProductID), zap.Error(err))
		}
	}

	// usage counters move only after the charge succeeded, so a failed
	// checkout can no longer burn a shopper's code
	for _, app := range quote.Applied {
		if err := s.discounts.IncrementUsage(ctx, app.Code); err != nil {
			zap.L().Error("failed to increment discount usage",
				zap.String("code", app.Code), zap.Error(err))
		}
	}

	if err := s.carts.Clear(ctx, in.OwnerKey); err != nil {
		zap.L().Error("failed to clear cart", zap.String("owner", in.OwnerKey), zap.Error(err))
	}

	metrics.IncrCounter("orders_created", 1)
	if s.mail != nil && order.Email != "" {
		s.mail.SendOrderConfirmation(order, in.Name)
	}

	zap.L().Info("order placed",
		zap.String("order_no", order.OrderNo),
		zap.Float64("total", order.Total),
		zap.Int("lines", len(order.Items)))
	return &PlaceOrderResult{Order: order, Report: report}, nil
}

// CancelOrder cancels a paid order and returns its units to the shelf.
func (s *Service) CancelOrder(ctx context.Context, orderNo, actor string) error {
	o, err := s.orders.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return err
	}
	switch o.Status {
	case domain.OrderCancelled:
		return nil
	case domain.OrderShipped, domain.OrderDelivered:
		return errors.Errorf("checkout: cannot cancel %s order", o.Status)
	}
	for _, it := range o.Items {
		if err := s.ledger.RestockOrder(ctx, it.ProductID, it.Quantity, actor, o.OrderNo); err != nil {
			zap.L().Error("failed to restock cancelled order",
				zap.String("order_no", o.OrderNo),
				zap.Int64("product_id", it.ProductID), zap.Error(err))
		}
	}
	// give the usage slots back so a cancelled order does not burn a
	// limited promo code
	for _, code := range strings.Split(o.AppliedCodes, ",") {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if err := s.discounts.DecrementUsage(ctx, code); err != nil {
			zap.L().Error("failed to release discount usage",
				zap.String("order_no", o.OrderNo),
				zap.String("code", code), zap.Error(err))
		}
	}
	if o.PaymentRef != "" {
		s.voidPayment(ctx, o.PaymentRef)
	}
	return s.orders.UpdateStatus(ctx, orderNo, domain.OrderCancelled)
}

func (s *Service) buildOrder(in PlaceOrderInput, items []domain.CartItem, quote *pricing.Quote, paymentRef string) *domain.Order {
	o := &domain.Order{
		OrderNo:         orders.NextOrderNo(),
		CustomerID:      in.CustomerID,
		OwnerKey:        in.OwnerKey,
		Email:           in.Email,
		Status:          domain.OrderPending,
		Subtotal:        quote.Subtotal,
		DiscountTotal:   quote.DiscountTotal,
		Shipping:        quote.Shipping,
		Tax:             quote.Tax,
		Total:           quote.Total,
		AppliedCodes:    strings.Join(quote.Codes(), ","),
		PaymentRef:      paymentRef,
		ShippingAddress: in.ShippingAddress,
		PlacedAt:        time.Now(),
	}
	for _, it := range items {
		o.Items = append(o.Items, domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Category:  it.Category,
			Price:     it.Price,
			Quantity:  it.Quantity,
		})
	}
	return o
}

func (s *Service) voidPayment(ctx context.Context, ref string) {
	if err := s.payments.Void(ctx, ref); err != nil {
		zap.L().Error("failed to void payment", zap.String("ref", ref), zap.Error(err))
	}
}
