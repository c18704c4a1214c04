package domain

import (
	"testing"

	verifdomain "yfi-bank/backend/internal/verification/domain"
)

func TestValidTaxID(t *testing.T) {
	tests := []struct {
		cpf  string
		want bool
	}{
		{"52998224725", true},
		{"11144477735", true},
		{"52998224724", false},
		{"11111111111", false},
		{"00000000000", false},
		{"5299822472", false},
		{"529982247250", false},
		{"5299822472a", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := ValidTaxID(tc.cpf); got != tc.want {
			t.Errorf("ValidTaxID(%q) = %v, want %v", tc.cpf, got, tc.want)
		}
	}
}

func TestSetFieldNormalizes(t *testing.T) {
	var d Draft
	d.SetField(FieldPhone, " +55 (11) 91234-5678 ")
	if d.Phone != "+5511912345678" {
		t.Errorf("phone = %q", d.Phone)
	}
	d.SetField(FieldTaxID, "529.982.247-25")
	if d.TaxID != "52998224725" {
		t.Errorf("tax id = %q", d.TaxID)
	}
	d.SetField(FieldPostalCode, "01310-100")
	if d.PostalCode != "01310100" {
		t.Errorf("postal code = %q", d.PostalCode)
	}
	d.SetField(FieldEmail, "  Ana@Example.COM ")
	if d.Email != "ana@example.com" {
		t.Errorf("email = %q", d.Email)
	}
	d.SetField(FieldFullName, "  Ana   Souza ")
	if d.FullName != "Ana Souza" {
		t.Errorf("full name = %q", d.FullName)
	}
	d.SetField(FieldRegion, "sp")
	if d.Region != "SP" {
		t.Errorf("region = %q", d.Region)
	}
	if d.SetField("no_such_field", "x") {
		t.Error("unknown field accepted")
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		confirm  string
		wantErrs int
	}{
		{"strong", "Str0ng!pass", "Str0ng!pass", 0},
		{"too short", "S0!a", "S0!a", 1},
		{"no special", "Str0ngpass", "Str0ngpass", 1},
		{"no upper", "str0ng!pass", "str0ng!pass", 1},
		{"mismatch", "Str0ng!pass", "Other1!pass", 1},
		{"empty and mismatch", "", "x", 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := Draft{Password: tc.password, PasswordConfirm: tc.confirm}
			if errs := validatePassword(&d); len(errs) != tc.wantErrs {
				t.Errorf("errors = %v, want %d", errs, tc.wantErrs)
			}
		})
	}
}

func TestValidatePersonalInfo(t *testing.T) {
	d := Draft{FullName: "Ana Souza", TaxID: "52998224725", BirthDate: "1990-04-12"}
	if errs := validatePersonalInfo(&d); len(errs) != 0 {
		t.Fatalf("valid personal info rejected: %v", errs)
	}

	d.FullName = "Ana"
	d.TaxID = "123"
	d.BirthDate = "12/04/1990"
	errs := validatePersonalInfo(&d)
	if len(errs) != 3 {
		t.Fatalf("errors = %v, want 3", errs)
	}
	// Errors come back in field order, full set, not just the first.
	if errs[0].Field != FieldFullName || errs[1].Field != FieldTaxID || errs[2].Field != FieldBirthDate {
		t.Errorf("error order = %v", errs)
	}
}

func stepIDs(steps []Step) []StepID {
	out := make([]StepID, len(steps))
	for i, s := range steps {
		out[i] = s.ID
	}
	return out
}

func TestFlowChannelOrder(t *testing.T) {
	got := stepIDs(Flow(nil))
	want := []StepID{StepPhone, StepPhoneVerify, StepPassword, StepPersonal, StepPostalCode, StepAddress, StepEmail, StepEmailVerify}
	if len(got) != len(want) {
		t.Fatalf("default flow = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("default flow = %v, want %v", got, want)
		}
	}

	flipped := stepIDs(Flow([]verifdomain.ChannelKind{verifdomain.ChannelEmail, verifdomain.ChannelPhone}))
	if flipped[0] != StepEmail || flipped[1] != StepEmailVerify {
		t.Errorf("email-first flow starts with %v, %v", flipped[0], flipped[1])
	}
	if flipped[6] != StepPhone || flipped[7] != StepPhoneVerify {
		t.Errorf("email-first flow ends with %v, %v", flipped[6], flipped[7])
	}
}
