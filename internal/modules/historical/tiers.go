package historical

// refetchTier selects a provider period for caches that are less than
// below days behind.
type refetchTier struct {
	below  int
	period string
}

// Ordered, first match wins.
var refetchTiers = []refetchTier{
	{below: 365, period: "1y"},
	{below: 3650, period: "10y"},
	{below: 7300, period: "20y"},
}

const maxRefetchPeriod = "30y"

// RefetchPeriod returns the smallest provider period that covers a cache
// which is deltaDays behind today. ok is false when nothing is missing.
func RefetchPeriod(deltaDays int) (period string, ok bool) {
	if deltaDays <= 0 {
		return "", false
	}
	for _, t := range refetchTiers {
		if deltaDays < t.below {
			return t.period, true
		}
	}
	return maxRefetchPeriod, true
}
