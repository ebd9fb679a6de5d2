package ui

// Move returns a copy of rows with the element at from re-inserted at slot to.
// Slots index the gaps of the original sequence (0 is before the first row,
// len(rows) after the last). Removing the source shifts every later slot
// down by one, so a slot after the source is decremented before inserting.
// Out-of-range arguments return an unchanged copy. rows is never modified.
func Move[T any](rows []T, from, to int) []T {
	out := make([]T, len(rows))
	copy(out, rows)
	if from < 0 || from >= len(rows) || to < 0 || to > len(rows) {
		return out
	}
	item := out[from]
	out = append(out[:from], out[from+1:]...)
	if to > from {
		to--
	}
	out = append(out, item)
	copy(out[to+1:], out[to:])
	out[to] = item
	return out
}

// DropSlot converts "dropped onto row target" into a slot for Move: dragging
// down lands after the target row, dragging up lands before it.
func DropSlot(from, target int) int {
	if target > from {
		return target + 1
	}
	return target
}
