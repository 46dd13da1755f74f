package entity

import "time"

// Policy is per-organization spending guidance for one expense type.
// It is advisory: a limit breach produces a warning, never a block.
type Policy struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	ExpenseType    string    `json:"expense_type"`
	UpperLimit     *float64  `json:"upper_limit,omitempty"`
	Eligibility    string    `json:"eligibility"`
	Conditions     string    `json:"conditions,omitempty"`
	PerUnitCost    string    `json:"per_unit_cost,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const (
	EligibilityAll        = "All Team Members"
	EligibilityLeadership = "Leads + Heads + Directors + CEO/CIO"
)

func limit(v float64) *float64 { return &v }

// DefaultPolicies returns the policy set seeded into every new organization
func DefaultPolicies() []Policy {
	return []Policy{
		{ExpenseType: "Flights", UpperLimit: limit(5000), Eligibility: EligibilityLeadership,
			Conditions: "Economy class only, booked at least 7 days ahead"},
		{ExpenseType: "Hotels", UpperLimit: limit(3500), Eligibility: EligibilityAll,
			Conditions: "Per night, business travel only"},
		{ExpenseType: "Meals", UpperLimit: limit(800), Eligibility: EligibilityAll,
			Conditions: "Per day while travelling"},
		{ExpenseType: "Local Conveyance", Eligibility: EligibilityAll,
			Conditions: "Own vehicle for client visits", PerUnitCost: "₹3/km"},
		{ExpenseType: "Internet", UpperLimit: limit(1000), Eligibility: EligibilityAll,
			Conditions: "Monthly, remote work"},
		{ExpenseType: "Mobile", UpperLimit: limit(500), Eligibility: EligibilityAll,
			Conditions: "Monthly postpaid bill"},
		{ExpenseType: "Office Supplies", UpperLimit: limit(2000), Eligibility: EligibilityAll},
		{ExpenseType: "Client Entertainment", UpperLimit: limit(5000), Eligibility: EligibilityLeadership,
			Conditions: "Attendees must be listed in the description"},
	}
}
