package model

import (
	"fmt"
	"strings"
)

// Condition is the physical grade of a scanned book.
type Condition string

// Condition grades.
const (
	ConditionNew      Condition = "NEW"
	ConditionGood     Condition = "GOOD"
	ConditionUsed     Condition = "USED"
	ConditionDonation Condition = "DONATION"
)

// Conditions lists all grades in display order.
var Conditions = []Condition{ConditionNew, ConditionGood, ConditionUsed, ConditionDonation}

// ParseCondition normalizes s and checks it against the known grades.
func ParseCondition(s string) (Condition, error) {
	c := Condition(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown condition %q", s)
	}
	return c, nil
}

// Valid reports whether c is one of the known grades.
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionGood, ConditionUsed, ConditionDonation:
		return true
	}
	return false
}

// Scan workflow statuses.
const (
	StatusPending = "pending"
	StatusListed  = "listed"
	StatusSold    = "sold"
)
