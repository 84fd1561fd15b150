package cart

type LineItem struct {
	ProductID       int64   `json:"product_id"`
	Title           string  `json:"title"`
	ThumbnailURL    string  `json:"thumbnail_url"`
	Price           float64 `json:"price"`
	DiscountPercent float64 `json:"discount_percent"`
	Quantity        int64   `json:"quantity"`
}

// CloneItems returns a copy that shares nothing with items. A nil or empty
// input yields an empty, non-nil slice.
func CloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
