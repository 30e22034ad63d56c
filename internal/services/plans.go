package services

import (
	"sort"
	"strings"
)

// Plan is one subscription tier and the processor price it maps to.
type Plan struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	PriceID     string `json:"-"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Interval    string `json:"interval"`
}

// PriceTable is the closed set of plans a caller may request.
type PriceTable map[string]Plan

// DefaultPriceTable returns the built-in plans, with processor price ids
// replaced by any overrides keyed by plan name.
func DefaultPriceTable(priceIDs map[string]string) PriceTable {
	t := PriceTable{
		"standard": {
			Name:        "standard",
			DisplayName: "Standard",
			PriceID:     "price_standard_monthly",
			Amount:      999,
			Currency:    "usd",
			Interval:    "month",
		},
		"premium": {
			Name:        "premium",
			DisplayName: "Premium",
			PriceID:     "price_premium_monthly",
			Amount:      1999,
			Currency:    "usd",
			Interval:    "month",
		},
	}
	for name, id := range priceIDs {
		if p, ok := t[name]; ok && id != "" {
			p.PriceID = id
			t[name] = p
		}
	}
	return t
}

func (t PriceTable) Lookup(name string) (Plan, error) {
	p, ok := t[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Plan{}, ErrInvalidPlan
	}
	return p, nil
}

// List returns the plans cheapest first.
func (t PriceTable) List() []Plan {
	out := make([]Plan, 0, len(t))
	for _, p := range t {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount < out[j].Amount
		}
		return out[i].Name < out[j].Name
	})
	return out
}
