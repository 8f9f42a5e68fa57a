package models

import "testing"

func TestPromoCodeDiscount(t *testing.T) {
	promo := PromoCode{Code: "SPRING25", DiscountPercent: 25}

	if got := promo.Discount(200); got != 50 {
		t.Fatalf("expected discount 50, got %v", got)
	}

	if got := promo.Discount(0); got != 0 {
		t.Fatalf("expected zero discount on zero price, got %v", got)
	}
}
