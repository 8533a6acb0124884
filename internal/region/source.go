package region

// PopulationSource selects which populations an operation runs on: the
// region's own table, or the table with some populations replaced.
type PopulationSource struct {
	updates map[int64]int
}

// UseDefault runs on the region's populations unchanged.
func UseDefault() PopulationSource {
	return PopulationSource{}
}

// Provided replaces the population of each listed settlement id. Levels of
// updated settlements are re-classified.
func Provided(updates map[int64]int) PopulationSource {
	cp := make(map[int64]int, len(updates))
	for id, p := range updates {
		cp[id] = p
	}
	return PopulationSource{updates: cp}
}

// IsDefault reports whether the source carries no updates.
func (s PopulationSource) IsDefault() bool {
	return len(s.updates) == 0
}

// Overlay returns s with the updates of o applied on top.
func (s PopulationSource) Overlay(o PopulationSource) PopulationSource {
	if o.IsDefault() {
		return s
	}
	out := make(map[int64]int, len(s.updates)+len(o.updates))
	for id, p := range s.updates {
		out[id] = p
	}
	for id, p := range o.updates {
		out[id] = p
	}
	return PopulationSource{updates: out}
}
