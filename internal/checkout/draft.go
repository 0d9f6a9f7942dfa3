package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/neurocanteen/canteen-go/internal/auth"
	"github.com/neurocanteen/canteen-go/internal/domain"
)

// BuildOrderRecord assembles the write-once order submission from the
// priced totals. The line items collapse into a single human-readable
// string, "Name (Category) X qty" joined by commas, matching the order
// console's display format.
func BuildOrderRecord(identity auth.Identity, details DeliveryDetails, totals Totals, paymentType string) domain.OrderRecord {
	names := make([]string, 0, len(totals.Lines))
	quantity := 0
	category := ""
	for _, line := range totals.Lines {
		names = append(names, fmt.Sprintf("%s (%s) X %d", line.Item.Name, line.Item.Category, line.Quantity))
		quantity += line.Quantity
		if category == "" {
			category = line.Item.Category
		}
	}

	return domain.OrderRecord{
		BuyerRole:       identity.Role,
		BuyerName:       details.Name,
		BuyerUserID:     identity.Subject,
		ItemName:        strings.Join(names, ", "),
		Quantity:        quantity,
		Category:        category,
		Price:           totals.Subtotal,
		OrderStatus:     nil,
		PaymentType:     paymentType,
		PaymentStatus:   nil,
		OrderDateTime:   time.Now().UTC(),
		Address:         details.Address,
		PhoneNo:         details.Phone,
		PaymentReceived: false,
	}
}
