package doctemplates

import "time"

// Kind classifies a template.
type Kind string

const (
	KindLetter   Kind = "letter"
	KindInvoice  Kind = "invoice"
	KindContract Kind = "contract"
)

// Valid reports whether the kind is one of the known values.
func (k Kind) Valid() bool {
	switch k {
	case KindLetter, KindInvoice, KindContract:
		return true
	}
	return false
}

// Template is a named document body owned by a company.
type Template struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"companyId"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
