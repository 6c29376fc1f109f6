package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/recordshop/backend/internal/domain/shared"
)

// Address is a postal address snapshot. Orders store copies of the
// address as it was at checkout, never references to a mutable profile.
type Address struct {
	Recipient  string `json:"recipient"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// NewAddress validates and normalizes an address.
func NewAddress(recipient, line1, line2, city, state, postalCode, country string) (Address, error) {
	a := Address{
		Recipient:  strings.TrimSpace(recipient),
		Line1:      strings.TrimSpace(line1),
		Line2:      strings.TrimSpace(line2),
		City:       strings.TrimSpace(city),
		State:      strings.TrimSpace(state),
		PostalCode: strings.TrimSpace(postalCode),
		Country:    strings.ToUpper(strings.TrimSpace(country)),
	}
	if err := a.Validate(); err != nil {
		return Address{}, err
	}
	return a, nil
}

// Validate checks required fields.
func (a Address) Validate() error {
	switch {
	case a.Recipient == "":
		return shared.NewDomainError("INVALID_ADDRESS", "recipient is required")
	case a.Line1 == "":
		return shared.NewDomainError("INVALID_ADDRESS", "street line is required")
	case a.City == "":
		return shared.NewDomainError("INVALID_ADDRESS", "city is required")
	case a.PostalCode == "":
		return shared.NewDomainError("INVALID_ADDRESS", "postal code is required")
	case len(a.Country) != 2:
		return shared.NewDomainError("INVALID_ADDRESS", "country must be a 2-letter ISO code")
	}
	return nil
}

// IsZero reports whether the address is entirely empty.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String renders a single-line form for logs.
func (a Address) String() string {
	parts := []string{a.Line1}
	if a.Line2 != "" {
		parts = append(parts, a.Line2)
	}
	parts = append(parts, a.City, a.State, a.PostalCode, a.Country)
	return fmt.Sprintf("%s, %s", a.Recipient, strings.Join(parts, ", "))
}

// Value implements driver.Valuer so Address persists as a JSON column.
func (a Address) Value() (driver.Value, error) {
	if a.IsZero() {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSON columns written by Value.
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Address", value)
	}
	if len(data) == 0 {
		*a = Address{}
		return nil
	}
	return json.Unmarshal(data, a)
}
