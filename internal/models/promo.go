package models

// PromoCode is a stored discount code checked during payment validation.
type PromoCode struct {
	BaseModel
	Code            string  `gorm:"uniqueIndex" json:"code"`
	IsActive        bool    `gorm:"default:true" json:"is_active"`
	DiscountPercent float64 `json:"discount_percent"`
}

// Discount returns the discount amount for the given base price.
func (p PromoCode) Discount(basePrice float64) float64 {
	return basePrice * p.DiscountPercent / 100
}
