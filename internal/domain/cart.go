package domain

// Cart maps a menu item id to a positive quantity. An id present in the
// map always has quantity >= 1; decrementing to zero removes the entry.
// encoding/json marshals the int64 keys as strings, which matches the
// persisted record format.
type Cart map[int64]int

// TotalItems returns the sum of all quantities.
func (c Cart) TotalItems() int {
	total := 0
	for _, qty := range c {
		total += qty
	}
	return total
}
