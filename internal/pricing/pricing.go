// Package pricing derives list prices and shipping weights.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/erazemk/bookbin/internal/config"
	"github.com/erazemk/bookbin/internal/model"
)

// Estimator computes prices and weights from a fixed set of factors.
type Estimator struct {
	Floor         decimal.Decimal
	Factors       map[model.Condition]decimal.Decimal
	WeightPerPage int
	DefaultPages  int
}

// New returns an Estimator configured from cfg.
func New(cfg config.Config) *Estimator {
	return &Estimator{
		Floor:         cfg.PriceFloor,
		Factors:       cfg.PriceFactors,
		WeightPerPage: cfg.WeightPerPage,
		DefaultPages:  cfg.DefaultPages,
	}
}

// Price returns ref scaled by the condition factor, rounded to cents and
// never below the floor. Grades without a factor get the floor.
func (e *Estimator) Price(ref decimal.Decimal, c model.Condition) decimal.Decimal {
	if !ref.IsPositive() {
		return e.Floor
	}
	f, ok := e.Factors[c]
	if !ok {
		return e.Floor
	}
	p := ref.Mul(f).Round(2)
	if p.LessThan(e.Floor) {
		return e.Floor
	}
	return p
}

// EstimateWeight returns an approximate weight in grams for a page count.
func (e *Estimator) EstimateWeight(pages int) int {
	if pages <= 0 {
		pages = e.DefaultPages
	}
	return pages * e.WeightPerPage
}

// GramsToMajorMinor splits grams into kilograms and remaining grams.
func GramsToMajorMinor(grams int) (major, minor int) {
	return grams / 1000, grams % 1000
}

// MajorMinorToGrams is the inverse of GramsToMajorMinor.
func MajorMinorToGrams(major, minor int) int {
	return major*1000 + minor
}
