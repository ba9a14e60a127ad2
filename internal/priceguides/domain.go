package priceguides

import "time"

// Guide is a named price list owned by a company.
type Guide struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"companyId"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	IsActive  bool      `json:"isActive"`
	Items     []Item    `json:"items,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Item is one priced line of a guide. UnitPriceCents keeps money integral;
// rendering layers decide placement of the decimal point.
type Item struct {
	ID             int64     `json:"id"`
	GuideID        int64     `json:"guideId"`
	Description    string    `json:"description"`
	Unit           string    `json:"unit"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
