package cart

import (
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/fenro-storefront/internal/domain/product"
)

// wireLine is the persisted cart line shape. Field names match what the
// storefront has always written, so old carts keep loading.
type wireLine struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Image    string `json:"image,omitempty"`
	Category string `json:"category,omitempty"`
	Quantity int    `json:"quantity"`
	Size     string `json:"selectedSize"`
	Color    string `json:"selectedColor"`
	Variant  string `json:"selectedVariant"`
}

func encodeLines(lines []Line) ([]byte, error) {
	out := make([]wireLine, len(lines))
	for i, l := range lines {
		out[i] = wireLine{
			ID:       string(l.Key.ProductID),
			Name:     l.Name,
			Price:    l.Price,
			Image:    l.Image,
			Category: l.Category,
			Quantity: l.Quantity,
			Size:     l.Key.Size,
			Color:    l.Key.Color,
			Variant:  l.Key.Variant,
		}
	}
	return json.Marshal(out)
}

// decodeLines reads a persisted cart tolerantly: old blobs carry numeric
// product IDs and numeric prices, current ones strings. Unknown fields are
// skipped.
func decodeLines(raw []byte) ([]Line, error) {
	var lines []Line

	d := jx.DecodeBytes(raw)
	err := d.Arr(func(d *jx.Decoder) error {
		var w wireLine
		err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				w.ID, err = flexString(d)
			case "name":
				w.Name, err = d.Str()
			case "price":
				w.Price, err = flexPrice(d)
			case "image":
				w.Image, err = d.Str()
			case "category":
				w.Category, err = d.Str()
			case "quantity":
				w.Quantity, err = d.Int()
			case "selectedSize":
				w.Size, err = optString(d)
			case "selectedColor":
				w.Color, err = optString(d)
			case "selectedVariant":
				w.Variant, err = optString(d)
			default:
				err = d.Skip()
			}
			return err
		})
		if err != nil {
			return err
		}
		if w.Quantity <= 0 {
			// A zero-quantity line must never survive persistence.
			return nil
		}
		lines = append(lines, Line{
			Key:      product.NewKey(product.ParseID(w.ID), w.Size, w.Color, w.Variant),
			Quantity: w.Quantity,
			Name:     w.Name,
			Price:    w.Price,
			Image:    w.Image,
			Category: w.Category,
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return lines, nil
}

// flexString reads a value persisted either as a string or a number.
func flexString(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return d.Str()
	}
}

// flexPrice keeps string prices verbatim and renders numeric ones the way
// Add would have.
func flexPrice(d *jx.Decoder) (string, error) {
	if d.Next() != jx.Number {
		return d.Str()
	}
	n, err := d.Num()
	if err != nil {
		return "", err
	}
	amount, err := decimal.NewFromString(n.String())
	if err != nil {
		return "", errors.Wrap(err, "numeric price")
	}
	return product.FormatPrice(amount), nil
}

// optString tolerates explicit nulls for the optional selection fields.
func optString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
