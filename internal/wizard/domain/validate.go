package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// FieldError is one field-scoped validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

const minAdultAge = 18

var (
	emailRe  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe  = regexp.MustCompile(`^\+?\d{10,14}$`)
	cepRe    = regexp.MustCompile(`^\d{8}$`)
	regionRe = regexp.MustCompile(`^[A-Z]{2}$`)
)

func validatePhone(d *Draft) []FieldError {
	if d.Phone == "" {
		return []FieldError{{FieldPhone, "phone is required"}}
	}
	if !phoneRe.MatchString(d.Phone) {
		return []FieldError{{FieldPhone, "invalid phone number"}}
	}
	return nil
}

func validateEmail(d *Draft) []FieldError {
	if d.Email == "" {
		return []FieldError{{FieldEmail, "email is required"}}
	}
	if !emailRe.MatchString(d.Email) {
		return []FieldError{{FieldEmail, "invalid email address"}}
	}
	return nil
}

func validatePassword(d *Draft) []FieldError {
	var errs []FieldError
	switch {
	case d.Password == "":
		errs = append(errs, FieldError{FieldPassword, "password is required"})
	case len(d.Password) < 8:
		errs = append(errs, FieldError{FieldPassword, "password must be at least 8 characters"})
	case !passwordStrong(d.Password):
		errs = append(errs, FieldError{FieldPassword, "password must contain upper and lower case letters, a digit and a special character"})
	}
	if d.PasswordConfirm != d.Password {
		errs = append(errs, FieldError{FieldPasswordConfirm, "passwords do not match"})
	}
	return errs
}

func passwordStrong(p string) bool {
	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	return upper && lower && digit && special
}

func validatePersonalInfo(d *Draft) []FieldError {
	var errs []FieldError
	if len(strings.Fields(d.FullName)) < 2 {
		errs = append(errs, FieldError{FieldFullName, "full name must include first and last name"})
	}
	if !ValidTaxID(d.TaxID) {
		errs = append(errs, FieldError{FieldTaxID, "invalid CPF"})
	}
	errs = append(errs, validateBirthDate(d.BirthDate)...)
	return errs
}

func validateBirthDate(s string) []FieldError {
	if s == "" {
		return []FieldError{{FieldBirthDate, "birth date is required"}}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return []FieldError{{FieldBirthDate, "birth date must be YYYY-MM-DD"}}
	}
	if age(t, time.Now()) < minAdultAge {
		return []FieldError{{FieldBirthDate, "you must be at least 18 years old"}}
	}
	return nil
}

func age(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.YearDay() < birth.YearDay() {
		years--
	}
	return years
}

// ValidTaxID checks a Brazilian CPF: eleven digits, not a repdigit, and both
// check digits consistent with the standard mod-11 scheme.
func ValidTaxID(cpf string) bool {
	if len(cpf) != 11 {
		return false
	}
	same := true
	for i := 1; i < 11; i++ {
		if cpf[i] != cpf[0] {
			same = false
			break
		}
	}
	if same {
		return false
	}
	for _, c := range cpf {
		if c < '0' || c > '9' {
			return false
		}
	}
	if cpfDigit(cpf, 9) != int(cpf[9]-'0') {
		return false
	}
	return cpfDigit(cpf, 10) == int(cpf[10]-'0')
}

func cpfDigit(cpf string, pos int) int {
	sum := 0
	for i := 0; i < pos; i++ {
		sum += int(cpf[i]-'0') * (pos + 1 - i)
	}
	d := (sum * 10) % 11
	if d == 10 {
		return 0
	}
	return d
}

func validatePostalCode(d *Draft) []FieldError {
	if !cepRe.MatchString(d.PostalCode) {
		return []FieldError{{FieldPostalCode, "postal code must be 8 digits"}}
	}
	return nil
}

func validateAddress(d *Draft) []FieldError {
	var errs []FieldError
	if d.Street == "" {
		errs = append(errs, FieldError{FieldStreet, "street is required"})
	}
	if d.Number == "" {
		errs = append(errs, FieldError{FieldNumber, "number is required"})
	}
	if d.District == "" {
		errs = append(errs, FieldError{FieldDistrict, "district is required"})
	}
	if d.City == "" {
		errs = append(errs, FieldError{FieldCity, "city is required"})
	}
	if !regionRe.MatchString(d.Region) {
		errs = append(errs, FieldError{FieldRegion, "region must be a two-letter state code"})
	}
	return errs
}

// Complete reports whether every field required for provisioning is present
// and valid. Used as the final gate before the cross-system write.
func (d *Draft) Complete() bool {
	if len(validatePhone(d)) > 0 || len(validateEmail(d)) > 0 {
		return false
	}
	if len(validatePassword(d)) > 0 || len(validatePersonalInfo(d)) > 0 {
		return false
	}
	if len(validatePostalCode(d)) > 0 || len(validateAddress(d)) > 0 {
		return false
	}
	return true
}
