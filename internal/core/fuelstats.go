package core

import "sort"

// Interval describes the span between two consecutive fill-ups. Consumption
// follows the backward convention: the liters bought at the earlier fill-up
// funded the distance driven until the next one.
type Interval struct {
	FromDate    Date
	ToDate      Date
	KMDriven    int64
	FuelUsed    float64
	Consumption float64 // liters per 100 km
}

// FuelStats aggregates a vehicle's fuel history.
type FuelStats struct {
	Intervals []Interval
	TotalCost float64
	TotalFuel float64
	TotalKM   int64
	// AvgConsumption is only meaningful when AvgValid is true; with fewer
	// than two records or zero covered distance the average is undefined
	// and rendered as "N/A".
	AvgConsumption float64
	AvgValid       bool
	FillUps        int
}

// ComputeFuelStats derives per-interval consumption and overall aggregates
// from a vehicle's fuel records. The input may arrive in any order (storage
// returns newest first); records are re-sorted by recorded date before
// pairing. Pure and total: any well-typed input yields a result.
func ComputeFuelStats(records []FuelRecord) FuelStats {
	stats := FuelStats{FillUps: len(records)}

	for _, r := range records {
		stats.TotalCost += r.TotalCost
		stats.TotalFuel += r.Liters
	}
	stats.TotalCost = RoundCurrency(stats.TotalCost)

	if len(records) < 2 {
		return stats
	}

	chrono := make([]FuelRecord, len(records))
	copy(chrono, records)
	sort.SliceStable(chrono, func(i, j int) bool {
		return chrono[i].Date.Before(chrono[j].Date.Time)
	})

	for i := 1; i < len(chrono); i++ {
		prev, curr := chrono[i-1], chrono[i]
		km := curr.Odometer - prev.Odometer
		fuel := prev.Liters
		// Non-increasing odometers (resets, typos, same-day double
		// fill-ups) are skipped, not reported.
		if km <= 0 || fuel <= 0 {
			continue
		}
		stats.Intervals = append(stats.Intervals, Interval{
			FromDate:    prev.Date,
			ToDate:      curr.Date,
			KMDriven:    km,
			FuelUsed:    fuel,
			Consumption: fuel / float64(km) * 100,
		})
	}

	minOdo, maxOdo := chrono[0].Odometer, chrono[0].Odometer
	for _, r := range chrono[1:] {
		if r.Odometer < minOdo {
			minOdo = r.Odometer
		}
		if r.Odometer > maxOdo {
			maxOdo = r.Odometer
		}
	}
	stats.TotalKM = maxOdo - minOdo
	if stats.TotalKM > 0 {
		stats.AvgConsumption = stats.TotalFuel / float64(stats.TotalKM) * 100
		stats.AvgValid = true
	}
	return stats
}
