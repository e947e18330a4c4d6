package checkout

import (
	"net/mail"
	"strings"
)

// Field names a checkout form input. Values match the JSON field names.
type Field string

const (
	FieldFirstName Field = "firstName"
	FieldLastName  Field = "lastName"
	FieldEmail     Field = "email"
	FieldPhone     Field = "phone"
	FieldAddress   Field = "address"
	FieldCity      Field = "city"
	FieldState     Field = "state"
	FieldZipCode   Field = "zipCode"
	FieldCountry   Field = "country"
)

// Fields lists every form field in display order.
var Fields = []Field{
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldPhone,
	FieldAddress,
	FieldCity,
	FieldState,
	FieldZipCode,
	FieldCountry,
}

// Form is the contact and shipping information entered at checkout.
type Form struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	City      string
	State     string
	ZipCode   string
	Country   string
}

// Get returns the value of field.
func (f Form) Get(field Field) string {
	switch field {
	case FieldFirstName:
		return f.FirstName
	case FieldLastName:
		return f.LastName
	case FieldEmail:
		return f.Email
	case FieldPhone:
		return f.Phone
	case FieldAddress:
		return f.Address
	case FieldCity:
		return f.City
	case FieldState:
		return f.State
	case FieldZipCode:
		return f.ZipCode
	case FieldCountry:
		return f.Country
	default:
		return ""
	}
}

// Normalize trims surrounding whitespace from every field.
func (f Form) Normalize() Form {
	return Form{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Email:     strings.TrimSpace(f.Email),
		Phone:     strings.TrimSpace(f.Phone),
		Address:   strings.TrimSpace(f.Address),
		City:      strings.TrimSpace(f.City),
		State:     strings.TrimSpace(f.State),
		ZipCode:   strings.TrimSpace(f.ZipCode),
		Country:   strings.TrimSpace(f.Country),
	}
}

// FullName joins first and last name.
func (f Form) FullName() string {
	return strings.TrimSpace(f.FirstName + " " + f.LastName)
}

// Validate reports every missing field, and an e-mail that does not parse.
func (f Form) Validate() error {
	var verr ValidationError
	for _, field := range Fields {
		if strings.TrimSpace(f.Get(field)) == "" {
			verr.Missing = append(verr.Missing, field)
		}
	}
	if email := strings.TrimSpace(f.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			verr.Invalid = append(verr.Invalid, FieldEmail)
		}
	}
	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return &verr
	}
	return nil
}
