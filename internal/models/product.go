package models

// Product 归一化后的商品信息（按语言缓存）
type Product struct {
	ID               ItemID   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	ShortDescription string   `json:"short_description"`
	Price            Money    `json:"price"`
	CategoryName     string   `json:"category_name"`
	PrimaryImage     string   `json:"primary_image"`
	Images           []string `json:"images"`
	SKU              string   `json:"sku,omitempty"`
	InStock          bool     `json:"in_stock"`
	Rating           float64  `json:"rating"`
	ReviewCount      int      `json:"review_count"`
}
