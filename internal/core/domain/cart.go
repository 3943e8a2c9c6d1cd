package domain

// CartLine references an inventory item with the requested quantity.
type CartLine struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// CartView is a priced snapshot of a cart, used by the outer surfaces.
type CartView struct {
	Lines []PricedLine `json:"lines"`
	Total int64        `json:"total"`
}

// PricedLine is a cart line joined with its catalog entry.
type PricedLine struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}
