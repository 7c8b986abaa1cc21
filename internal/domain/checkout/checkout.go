// Package checkout turns a cart into an order. Payment is simulated: the
// order always succeeds once validation passes. The placed order is
// persisted so the confirmation view survives a reload.
package checkout

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/fenro-storefront/internal/domain/cart"
	"github.com/xenking/fenro-storefront/internal/kv"
)

// StorageKey is the key-value store key the last order persists under.
const StorageKey = "lastOrder"

// Sentinel errors for order placement.
var (
	ErrEmptyCart   = errors.New("cart is empty")
	ErrInvalidCode = errors.New("invalid discount code")
)

// Delivery methods and their costs in kr.
const (
	DeliveryStandard = "standard"
	DeliveryExpress  = "express"
	DeliveryPickup   = "pickup"
)

// discountCodes maps accepted codes to their percentage off the subtotal.
var discountCodes = map[string]int64{
	"WELCOME10": 10,
	"SUMMER20":  20,
	"SAVE15":    15,
	"NEW25":     25,
}

// ShippingCost returns the delivery cost for the method. Unknown methods
// cost the same as standard delivery.
func ShippingCost(method string) decimal.Decimal {
	switch method {
	case DeliveryExpress:
		return decimal.NewFromInt(149)
	case DeliveryPickup:
		return decimal.Zero
	default:
		return decimal.NewFromInt(49)
	}
}

// LookupDiscount resolves a discount code case-insensitively to its
// percentage, or ErrInvalidCode.
func LookupDiscount(code string) (int64, error) {
	pct, ok := discountCodes[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return 0, ErrInvalidCode
	}
	return pct, nil
}

// ValidEmail is the storefront's email check: anything with an @ passes.
func ValidEmail(email string) bool {
	return strings.Contains(email, "@")
}

// ShippingInfo is the checkout form contents.
type ShippingInfo struct {
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Address        string
	City           string
	PostalCode     string
	DeliveryMethod string
	PaymentMethod  string
	CardNumber     string
	CardName       string
	ExpiryDate     string
	CVV            string
}

// ValidationError lists the fields that failed validation. These are
// user-facing and never reach the stores.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid checkout fields: %s", strings.Join(names, ", "))
}

// Validate checks the form the way the storefront always has: every contact
// field is required, the email must look like one, and card details are
// required when paying by card.
func Validate(info ShippingInfo) error {
	fields := map[string]string{}

	required := map[string]string{
		"firstName":  info.FirstName,
		"lastName":   info.LastName,
		"email":      info.Email,
		"phone":      info.Phone,
		"address":    info.Address,
		"city":       info.City,
		"postalCode": info.PostalCode,
	}
	for name, v := range required {
		if strings.TrimSpace(v) == "" {
			fields[name] = "required"
		}
	}
	if info.Email != "" && !ValidEmail(info.Email) {
		fields["email"] = "malformed"
	}
	if info.PaymentMethod == "" || info.PaymentMethod == "card" {
		card := map[string]string{
			"cardNumber": info.CardNumber,
			"cardName":   info.CardName,
			"expiryDate": info.ExpiryDate,
			"cvv":        info.CVV,
		}
		for name, v := range card {
			if strings.TrimSpace(v) == "" {
				fields[name] = "required"
			}
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Order is the snapshot written after a successful checkout.
type Order struct {
	ID            string          `json:"orderId"`
	Items         []cart.Line     `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	DiscountCode  string          `json:"discountCode,omitempty"`
	Shipping      decimal.Decimal `json:"shipping"`
	Total         decimal.Decimal `json:"total"`
	ShippingInfo  ShippingInfo    `json:"shippingInfo"`
	PaymentMethod string          `json:"paymentMethod"`
	Date          time.Time       `json:"date"`
}

// Service places orders against a cart and persists the result.
type Service struct {
	store kv.Store
	now   func() time.Time
}

// NewService creates a checkout service backed by the key-value store.
func NewService(store kv.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// PlaceOrder validates the form, prices the cart with the optional discount
// code, simulates a successful payment, persists the order snapshot, and
// clears the cart.
func (s *Service) PlaceOrder(ctx context.Context, c *cart.Store, info ShippingInfo, code string) (*Order, error) {
	lines := c.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if err := Validate(info); err != nil {
		return nil, err
	}

	subtotal := c.Total()

	discount := decimal.Zero
	appliedCode := ""
	if code != "" {
		pct, err := LookupDiscount(code)
		if err != nil {
			return nil, err
		}
		discount = subtotal.Mul(decimal.NewFromInt(pct)).Div(decimal.NewFromInt(100))
		appliedCode = strings.ToUpper(strings.TrimSpace(code))
	}

	shipping := ShippingCost(info.DeliveryMethod)
	total := subtotal.Sub(discount).Add(shipping)
	if total.IsNegative() {
		total = decimal.Zero
	}

	order := &Order{
		ID:            "ORD-" + uuid.New().String(),
		Items:         lines,
		Subtotal:      subtotal.Round(2),
		Discount:      discount.Round(2),
		DiscountCode:  appliedCode,
		Shipping:      shipping,
		Total:         total.Round(2),
		ShippingInfo:  info,
		PaymentMethod: info.PaymentMethod,
		Date:          s.now(),
	}

	if err := kv.SetJSON(ctx, s.store, StorageKey, order); err != nil {
		return nil, errors.Wrap(err, "persist order")
	}
	if err := c.Clear(ctx); err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}

	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("total", order.Total.String()),
		zap.Int("lines", len(order.Items)))
	return order, nil
}

// LastOrder reads back the most recently placed order, or kv.ErrNotFound.
func (s *Service) LastOrder(ctx context.Context) (*Order, error) {
	var order Order
	if err := kv.GetJSON(ctx, s.store, StorageKey, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
