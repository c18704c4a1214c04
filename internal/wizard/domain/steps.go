package domain

import (
	verifdomain "yfi-bank/backend/internal/verification/domain"
)

// StepID names one wizard step.
type StepID string

const (
	StepPhone       StepID = "phone"
	StepPhoneVerify StepID = "phone-verify"
	StepEmail       StepID = "email"
	StepEmailVerify StepID = "email-verify"
	StepPassword    StepID = "password"
	StepPersonal    StepID = "personal-info"
	StepPostalCode  StepID = "postal-code"
	StepAddress     StepID = "address"
)

// Step is one row of the declarative step table: the fields it collects, the
// validator gating advancement, and (for verify steps) the channel whose
// attempt must be Verified instead.
type Step struct {
	ID       StepID
	Fields   []string
	Channel  verifdomain.ChannelKind
	Validate func(d *Draft) []FieldError
}

func contactStep(kind verifdomain.ChannelKind) Step {
	if kind == verifdomain.ChannelEmail {
		return Step{ID: StepEmail, Fields: []string{FieldEmail}, Validate: validateEmail}
	}
	return Step{ID: StepPhone, Fields: []string{FieldPhone}, Validate: validatePhone}
}

func verifyStep(kind verifdomain.ChannelKind) Step {
	if kind == verifdomain.ChannelEmail {
		return Step{ID: StepEmailVerify, Fields: []string{FieldCode}, Channel: verifdomain.ChannelEmail}
	}
	return Step{ID: StepPhoneVerify, Fields: []string{FieldCode}, Channel: verifdomain.ChannelPhone}
}

// Flow builds the ordered step list for the given channel order. The first
// channel is collected and verified up front, the second at the end, with the
// credential and profile steps between them. There is exactly one flow per
// session, chosen at start.
func Flow(order []verifdomain.ChannelKind) []Step {
	first, second := verifdomain.ChannelPhone, verifdomain.ChannelEmail
	if len(order) == 2 {
		first, second = order[0], order[1]
	}
	return []Step{
		contactStep(first),
		verifyStep(first),
		{ID: StepPassword, Fields: []string{FieldPassword, FieldPasswordConfirm}, Validate: validatePassword},
		{ID: StepPersonal, Fields: []string{FieldFullName, FieldTaxID, FieldBirthDate}, Validate: validatePersonalInfo},
		{ID: StepPostalCode, Fields: []string{FieldPostalCode}, Validate: validatePostalCode},
		{ID: StepAddress, Fields: []string{FieldStreet, FieldNumber, FieldComplement, FieldDistrict, FieldCity, FieldRegion}, Validate: validateAddress},
		contactStep(second),
		verifyStep(second),
	}
}
