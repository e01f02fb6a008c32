// Package export turns enriched scans into marketplace bulk-upload files.
package export

import (
	"github.com/shopspring/decimal"

	"github.com/erazemk/bookbin/internal/model"
)

// Outcomes of an export run.
const (
	OutcomeExported      = "exported"
	OutcomeNoRecords     = "no_records"
	OutcomeAllDonations  = "all_donations"
	OutcomeAllBelowFloor = "all_below_floor"
	OutcomeFailed        = "failed"
)

// Group is the set of scans sharing one (identifier, condition) pair. It
// becomes a single listing.
type Group struct {
	Identifier string          `json:"identifier"`
	Condition  model.Condition `json:"condition"`
	Title      string          `json:"title"`
	Author     string          `json:"author"`
	Quantity   int             `json:"quantity"`
	ListPrice  decimal.Decimal `json:"list_price"`
	IDs        []int64         `json:"ids"`
	BelowFloor bool            `json:"below_floor,omitempty"`

	// Record is the first scan of the group. Its enrichment drives the row.
	Record model.ScanRecord `json:"-"`
}

type groupKey struct {
	identifier string
	condition  model.Condition
}

// group drops donations and merges the rest by (identifier, condition), in
// the order groups are first seen.
func group(records []model.ScanRecord, floor decimal.Decimal) []Group {
	var groups []Group
	index := make(map[groupKey]int)
	for _, r := range records {
		if r.Condition == model.ConditionDonation {
			continue
		}
		k := groupKey{r.Identifier, r.Condition}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			price := r.Enrichment.ListPrice
			groups = append(groups, Group{
				Identifier: r.Identifier,
				Condition:  r.Condition,
				Title:      r.Title,
				Author:     r.Enrichment.Author,
				ListPrice:  price,
				BelowFloor: price.LessThan(floor),
				Record:     r,
			})
		}
		groups[i].Quantity += r.Quantity
		groups[i].IDs = append(groups[i].IDs, r.ID)
	}
	return groups
}

// Aggregate groups records for export and applies the price floor when
// filter is set. Groups under the floor are returned as skipped. The
// outcome is OutcomeExported when at least one group survives.
func Aggregate(records []model.ScanRecord, floor decimal.Decimal, filter bool) (groups, skipped []Group, outcome string) {
	if len(records) == 0 {
		return nil, nil, OutcomeNoRecords
	}

	all := group(records, floor)
	if len(all) == 0 {
		return nil, nil, OutcomeAllDonations
	}

	for _, g := range all {
		if filter && g.BelowFloor {
			skipped = append(skipped, g)
			continue
		}
		groups = append(groups, g)
	}
	if len(groups) == 0 {
		return nil, skipped, OutcomeAllBelowFloor
	}
	return groups, skipped, OutcomeExported
}
