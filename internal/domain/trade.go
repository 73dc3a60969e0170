package domain

// TradeEdge is one bilateral import flow from Source to Destination.
type TradeEdge struct {
	Source      string  // exporting region code
	Destination string  // importing (reporter) region code
	Commodity   string  // GTAP commodity code, empty once aggregated
	Value       float64 // trade value (or calories after conversion)
}

// TradeTable is the aggregated trade network of one experiment.
type TradeTable struct {
	Edges     []TradeEdge // aggregated, sorted by (Source, Destination)
	Reporters []string    // sorted destinations minus excluded regions
	Partners  []string    // sorted distinct sources; the partner axis of the stress tensors
}

// ImportsOf returns the reporter's rows in table order.
func (t *TradeTable) ImportsOf(reporter string) []TradeEdge {
	var rows []TradeEdge
	for _, e := range t.Edges {
		if e.Destination == reporter {
			rows = append(rows, e)
		}
	}
	return rows
}

// PartnerIndex returns the position of code on the partner axis.
func (t *TradeTable) PartnerIndex(code string) (int, bool) {
	for i, p := range t.Partners {
		if p == code {
			return i, true
		}
	}
	return -1, false
}
