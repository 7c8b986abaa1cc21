package product

// Key is the composite identity of a product selection: the product plus the
// chosen size, color, and variant. Optional parts normalize to the empty
// string, never an omitted field, so an explicitly-empty selection and an
// absent one are the same key. Key is comparable and is used as-is for
// uniqueness in the cart and favorites stores.
type Key struct {
	ProductID ID     `json:"productId"`
	Size      string `json:"selectedSize"`
	Color     string `json:"selectedColor"`
	Variant   string `json:"selectedVariant"`
}

// NewKey builds a normalized identity key.
func NewKey(id ID, size, color, variant string) Key {
	return Key{
		ProductID: ParseID(string(id)),
		Size:      size,
		Color:     color,
		Variant:   variant,
	}
}
