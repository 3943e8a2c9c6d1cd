package domain

// InventoryItem is a sellable catalog entry. Stock never goes negative.
type InventoryItem struct {
	ID               string `json:"id" yaml:"id"`
	Name             string `json:"name" yaml:"name"`
	Description      string `json:"description,omitempty" yaml:"description"`
	Category         string `json:"category" yaml:"category"`
	Price            int64  `json:"price" yaml:"price"`
	Stock            int    `json:"stock" yaml:"stock"`
	ReorderThreshold int    `json:"reorder_threshold" yaml:"reorder_threshold"`
}

// NeedsReplenishment reports whether stock has reached the reorder point.
func (i InventoryItem) NeedsReplenishment() bool {
	return i.Stock <= i.ReorderThreshold
}

// ReplenishmentAlert is advisory output of a post-checkout scan.
type ReplenishmentAlert struct {
	ItemID       string `json:"item_id"`
	Name         string `json:"name"`
	CurrentStock int    `json:"current_stock"`
	Threshold    int    `json:"threshold"`
}
