// Package checkout computes order totals and runs the cash-on-delivery
// submission path. All amounts are in paise.
package checkout

import (
	"sort"
	"strconv"
	"strings"

	"github.com/neurocanteen/canteen-go/internal/domain"
)

const (
	// TaxRatePercent is the fixed GST rate applied to the subtotal.
	TaxRatePercent = 12

	// MaxTip caps the delivery tip at Rs 500.
	MaxTip = 500 * 100

	DeliveryFee = 0
	PlatformFee = 0
)

// Line is one resolved cart entry priced for the buyer's role.
type Line struct {
	Item     domain.MenuItem `json:"item"`
	Quantity int             `json:"quantity"`
	Total    int64           `json:"total"`
}

type Totals struct {
	Lines       []Line `json:"lines"`
	Subtotal    int64  `json:"subtotal"`
	Tax         int64  `json:"tax"`
	Tip         int64  `json:"tip"`
	DeliveryFee int64  `json:"delivery_fee"`
	PlatformFee int64  `json:"platform_fee"`
	GrandTotal  int64  `json:"grand_total"`
}

// ComputeTotals prices the cart against the menu for the buyer's role.
// Cart entries whose id does not resolve to a known menu item are
// silently skipped: the item may have been removed from the menu after
// being carted. Lines are ordered by item id for stable output.
func ComputeTotals(cartItems domain.Cart, menuItems []domain.MenuItem, role string, tip int64) Totals {
	byID := make(map[int64]domain.MenuItem, len(menuItems))
	for _, item := range menuItems {
		byID[item.ID] = item
	}

	ids := make([]int64, 0, len(cartItems))
	for id := range cartItems {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	totals := Totals{Lines: []Line{}, Tip: clampTip(tip)}
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			continue
		}
		qty := cartItems[id]
		line := Line{
			Item:     item,
			Quantity: qty,
			Total:    item.PriceFor(role) * int64(qty),
		}
		totals.Lines = append(totals.Lines, line)
		totals.Subtotal += line.Total
	}

	totals.Tax = totals.Subtotal * TaxRatePercent / 100
	totals.DeliveryFee = DeliveryFee
	totals.PlatformFee = PlatformFee
	totals.GrandTotal = totals.Subtotal + totals.Tax + totals.Tip + totals.DeliveryFee + totals.PlatformFee
	return totals
}

// ParseTip parses a user-entered tip amount in paise. Non-numeric input
// defaults to zero; the result is clamped to [0, MaxTip].
func ParseTip(input string) int64 {
	tip, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil {
		return 0
	}
	return clampTip(tip)
}

func clampTip(tip int64) int64 {
	if tip < 0 {
		return 0
	}
	if tip > MaxTip {
		return MaxTip
	}
	return tip
}
