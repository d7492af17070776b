package universe

// TwoWayMapping holds (ticker, ISIN) pairs and answers lookups in both
// directions.
type TwoWayMapping struct {
	forward map[string]string // ticker -> ISIN
	reverse map[string]string // ISIN -> ticker
}

// NewTwoWayMapping creates an empty mapping.
func NewTwoWayMapping() *TwoWayMapping {
	return &TwoWayMapping{
		forward: make(map[string]string),
		reverse: make(map[string]string),
	}
}

// Add stores a pair. Pairs with an empty side are ignored; it reports
// whether the pair was stored.
func (m *TwoWayMapping) Add(ticker, isin string) bool {
	if ticker == "" || isin == "" {
		return false
	}
	m.forward[ticker] = isin
	m.reverse[isin] = ticker
	return true
}

// TickerFor returns the ticker paired with isin.
func (m *TwoWayMapping) TickerFor(isin string) (string, bool) {
	ticker, ok := m.reverse[isin]
	return ticker, ok
}

// ISINFor returns the ISIN paired with ticker.
func (m *TwoWayMapping) ISINFor(ticker string) (string, bool) {
	isin, ok := m.forward[ticker]
	return isin, ok
}

// Get looks key up as a ticker first and as an ISIN second. It is
// ambiguous when the same string is both a ticker and an ISIN of different
// pairs; prefer TickerFor or ISINFor.
func (m *TwoWayMapping) Get(key string) (string, bool) {
	if isin, ok := m.forward[key]; ok {
		return isin, true
	}
	return m.TickerFor(key)
}

// Len returns the number of stored pairs.
func (m *TwoWayMapping) Len() int {
	return len(m.reverse)
}
