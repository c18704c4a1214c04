// Package domain holds the signup wizard's value types: the registration
// draft, the declarative step table, and per-field validation.
package domain

import "strings"

// Draft is the data accumulated across wizard steps. Passwords are excluded
// from serialization so a reloaded session never carries credentials; the
// customer re-enters them.
type Draft struct {
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	TaxID      string `json:"tax_id"`
	BirthDate  string `json:"birth_date"`
	PostalCode string `json:"postal_code"`
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement"`
	District   string `json:"district"`
	City       string `json:"city"`
	Region     string `json:"region"`

	Password        string `json:"-"`
	PasswordConfirm string `json:"-"`
}

// Field names used in set-field requests and validation errors.
const (
	FieldPhone           = "phone"
	FieldEmail           = "email"
	FieldFullName        = "full_name"
	FieldTaxID           = "tax_id"
	FieldBirthDate       = "birth_date"
	FieldPostalCode      = "postal_code"
	FieldStreet          = "street"
	FieldNumber          = "number"
	FieldComplement      = "complement"
	FieldDistrict        = "district"
	FieldCity            = "city"
	FieldRegion          = "region"
	FieldPassword        = "password"
	FieldPasswordConfirm = "password_confirm"
	FieldCode            = "code"
)

// SetField writes one named field, normalizing it to canonical form so
// validation and submission never see raw user input. Unknown names are
// ignored and reported as false.
func (d *Draft) SetField(name, value string) bool {
	switch name {
	case FieldPhone:
		d.Phone = normalizePhone(value)
	case FieldEmail:
		d.Email = strings.ToLower(strings.TrimSpace(value))
	case FieldFullName:
		d.FullName = strings.Join(strings.Fields(value), " ")
	case FieldTaxID:
		d.TaxID = digitsOnly(value)
	case FieldBirthDate:
		d.BirthDate = strings.TrimSpace(value)
	case FieldPostalCode:
		d.PostalCode = digitsOnly(value)
	case FieldStreet:
		d.Street = strings.TrimSpace(value)
	case FieldNumber:
		d.Number = strings.TrimSpace(value)
	case FieldComplement:
		d.Complement = strings.TrimSpace(value)
	case FieldDistrict:
		d.District = strings.TrimSpace(value)
	case FieldCity:
		d.City = strings.TrimSpace(value)
	case FieldRegion:
		d.Region = strings.ToUpper(strings.TrimSpace(value))
	case FieldPassword:
		d.Password = value
	case FieldPasswordConfirm:
		d.PasswordConfirm = value
	default:
		return false
	}
	return true
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizePhone keeps digits and preserves a single leading plus sign.
func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	digits := digitsOnly(s)
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(s, "+") {
		return "+" + digits
	}
	return digits
}
