package core

// TypeBreakdown summarizes maintenance spending for one maintenance type.
type TypeBreakdown struct {
	Type      MaintenanceType
	Count     int
	TotalCost float64
}

// AvgCost returns the mean cost per event.
func (b TypeBreakdown) AvgCost() float64 {
	if b.Count == 0 {
		return 0
	}
	return RoundCurrency(b.TotalCost / float64(b.Count))
}

// TotalMaintenanceCost sums the cost over all records, order-independent.
func TotalMaintenanceCost(records []MaintenanceRecord) float64 {
	var total float64
	for _, r := range records {
		total += r.Cost
	}
	return RoundCurrency(total)
}

// BreakdownByType groups records by maintenance type, preserving first-seen
// order of the types.
func BreakdownByType(records []MaintenanceRecord) []TypeBreakdown {
	index := make(map[MaintenanceType]int)
	var out []TypeBreakdown
	for _, r := range records {
		i, ok := index[r.Type]
		if !ok {
			i = len(out)
			index[r.Type] = i
			out = append(out, TypeBreakdown{Type: r.Type})
		}
		out[i].Count++
		out[i].TotalCost = RoundCurrency(out[i].TotalCost + r.Cost)
	}
	return out
}
