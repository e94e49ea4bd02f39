package engine

// BuildTurnOrder returns the strictly alternating pick sequence, seat 1 first,
// with one turn per roster slot per seat.
func BuildTurnOrder(slots int) []Seat {
	order := make([]Seat, 0, 2*slots)
	for i := 0; i < slots; i++ {
		order = append(order, Seat1, Seat2)
	}
	return order
}
