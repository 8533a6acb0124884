package model

// Level is the ordinal rank of a settlement in the urbanisation hierarchy.
// 1 is the smallest tier; higher ranks are denser. Zero means unset.
type Level int

// LevelUnset marks a settlement whose level has not been classified yet.
const LevelUnset Level = 0

// Settlement is one point of the region's settlement table.
type Settlement struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name" validate:"required"`
	Population int     `json:"population" validate:"gt=0"`
	Level      Level   `json:"level" validate:"gte=0"`
	LevelName  string  `json:"level_name,omitempty"`
	IsCity     bool    `json:"is_city,omitempty"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// Denser reports whether s ranks strictly above o in the hierarchy.
func (s Settlement) Denser(o Settlement) bool {
	return s.Level > o.Level
}

// CloneSettlements returns a shallow copy of the table.
func CloneSettlements(in []Settlement) []Settlement {
	out := make([]Settlement, len(in))
	copy(out, in)
	return out
}
