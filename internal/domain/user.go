package domain

import (
	"fmt"
	"strings"
)

// Plan enumerates billing plans.
type Plan string

const (
	PlanFree    Plan = "FREE"
	PlanStarter Plan = "STARTER"
	PlanPro     Plan = "PRO"
)

var planAllotments = map[Plan]int{
	PlanFree:    0,
	PlanStarter: 40,
	PlanPro:     150,
}

// Allotment is the credit balance a plan starts with and resets to.
func (p Plan) Allotment() int {
	return planAllotments[p]
}

func (p Plan) Valid() bool {
	_, ok := planAllotments[p]
	return ok
}

func ParsePlan(s string) (Plan, error) {
	p := Plan(normalizeEnum(s))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPlan, s)
	}
	return p, nil
}

// CreditAccount is the client-side view of a ledger balance. The ledger is
// authoritative; this value is replaced wholesale after every mutation.
type CreditAccount struct {
	Plan    Plan `json:"plan"`
	Credits int  `json:"credits"`
}

// NewCreditAccount opens an account with the plan's starting allotment.
func NewCreditAccount(plan Plan) CreditAccount {
	return CreditAccount{Plan: plan, Credits: plan.Allotment()}
}

func (a CreditAccount) CanAfford(cost int) bool {
	return a.Credits >= cost
}

// RemainingCredits derives a balance from a usage counter, the shape some
// ledgers report. It never goes below zero.
func RemainingCredits(plan Plan, usageCount int) int {
	remaining := plan.Allotment() - usageCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ReconcilePlan applies the legacy isPro flag: a pro account reported with an
// empty or FREE plan is treated as PRO.
func ReconcilePlan(raw string, isPro bool) Plan {
	plan := Plan(strings.ToUpper(strings.TrimSpace(raw)))
	if isPro && (plan == "" || plan == PlanFree) {
		return PlanPro
	}
	if !plan.Valid() {
		return PlanFree
	}
	return plan
}
