// Package warmstart generates the deterministic initial values spec §4.6
// hands the solver driver as a warm-start hint for the binary
// product_produced[date,product] variables. A good starting corner lets
// the branch-and-bound search find a competitive incumbent before it has
// explored more than a handful of nodes.
package warmstart

import (
	"sort"

	indexbuilder "github.com/horizonfoods/planner-core/internal/index-builder"
	pm "github.com/horizonfoods/planner-core/internal/planning-model"
)

const (
	ModeBalanced       = "balanced"
	ModeDemandWeighted = "demand_weighted"
	ModeFixed2         = "fixed2"
	ModeFixed3         = "fixed3"
	ModeAdaptive       = "adaptive"
	ModeNone           = "none"
)

// Generate returns a map from solverdriver variable index to suggested
// value (always 0 or 1) for every product_produced[date,product] variable
// the Index Builder emitted, following the named rotation rule. The "none"
// mode returns an empty map, meaning no hint at all; an empty or
// unrecognized mode is treated as demand_weighted.
func Generate(mode string, input pm.ModelInput, ix *indexbuilder.Index) map[int]float64 {
	if mode == "" {
		mode = ModeDemandWeighted
	}
	hint := map[int]float64{}
	if mode == ModeNone {
		return hint
	}

	products := ix.Products
	if len(products) == 0 {
		return hint
	}
	rankByProduct := demandRank(input, products)
	dates := ix.Horizon.Dates()

	for i, date := range dates {
		var active map[string]bool
		switch mode {
		case ModeBalanced:
			active = allActive(products)
		case ModeFixed2:
			active = roundRobin(products, i, 2)
		case ModeFixed3:
			active = roundRobin(products, i, 3)
		case ModeAdaptive:
			day, _ := input.LaborCalendar.Day(date)
			active = demandWeighted(products, rankByProduct, i, day.IsFixedDay)
		default: // demand_weighted
			active = demandWeighted(products, rankByProduct, i, false)
		}

		for _, product := range products {
			idx, ok := ix.ProductProduced[indexbuilder.ProdKey{Date: date, Product: product}]
			if !ok {
				continue
			}
			if active[product] {
				hint[idx] = 1
			} else {
				hint[idx] = 0
			}
		}
	}
	return hint
}

// demandRank orders products by total forecast demand, descending, and
// returns each product's 0-indexed rank (0 = highest demand).
func demandRank(input pm.ModelInput, products []string) map[string]int {
	totals := make(map[string]float64, len(products))
	for _, e := range input.Forecast {
		totals[e.Product] += e.Quantity
	}
	ranked := append([]string(nil), products...)
	sort.Slice(ranked, func(i, j int) bool {
		if totals[ranked[i]] != totals[ranked[j]] {
			return totals[ranked[i]] > totals[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	rank := make(map[string]int, len(products))
	for i, p := range ranked {
		rank[p] = i
	}
	return rank
}

func allActive(products []string) map[string]bool {
	active := make(map[string]bool, len(products))
	for _, p := range products {
		active[p] = true
	}
	return active
}

// roundRobin activates exactly blockSize products on day i, cycling
// through the full product list so every product is produced on a
// predictable, evenly-spaced schedule.
func roundRobin(products []string, day, blockSize int) map[string]bool {
	active := map[string]bool{}
	if blockSize > len(products) {
		blockSize = len(products)
	}
	start := (day * blockSize) % len(products)
	for k := 0; k < blockSize; k++ {
		active[products[(start+k)%len(products)]] = true
	}
	return active
}

// demandWeighted produces the highest-demand product every day, the next
// tier every other day, and so on: product at rank r is active on day i
// whenever i % period(r) == 0, with period shortened by one (floor 1) on
// fixed labor days when adaptive is requested, since fixed-day capacity is
// already paid for regardless of how it's used.
func demandWeighted(products []string, rank map[string]int, day int, adaptiveFixedDay bool) map[string]bool {
	active := map[string]bool{}
	for _, p := range products {
		period := rank[p] + 1
		if adaptiveFixedDay && period > 1 {
			period--
		}
		if day%period == 0 {
			active[p] = true
		}
	}
	return active
}
