package replenishment

// DaysPerMonth converts the backend's monthly demand into daily demand.
const DaysPerMonth = 30.0

// ToDailyDemand converts a monthly demand into daily demand.
// Non-positive demand maps to 0 so the item carries no weight.
func ToDailyDemand(demandMonthly float64) float64 {
	if demandMonthly <= 0 {
		return 0
	}
	return demandMonthly / DaysPerMonth
}
