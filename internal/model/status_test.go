package model

import "testing"

func TestValidPermitDecision(t *testing.T) {
	cases := []struct {
		decision string
		from     string
		valid    bool
	}{
		{PermitApproved, PermitPending, true},
		{PermitRejected, PermitPending, true},
		{PermitApproved, PermitApproved, false},
		{PermitApproved, PermitRejected, false},
		{PermitRejected, PermitApproved, false},
		{PermitRejected, PermitRejected, false},
		{PermitPending, PermitPending, false},
		{"UNKNOWN", PermitPending, false},
	}
	for _, tt := range cases {
		if got := ValidPermitDecision(tt.decision, tt.from); got != tt.valid {
			t.Fatalf("ValidPermitDecision(%q, %q)=%v, want %v", tt.decision, tt.from, got, tt.valid)
		}
	}
}

func TestValidOfficeChangeDecision(t *testing.T) {
	cases := []struct {
		decision string
		from     string
		valid    bool
	}{
		{OfficeChangeApproved, OfficeChangePending, true},
		{OfficeChangeRejected, OfficeChangePending, true},
		{OfficeChangeApproved, OfficeChangeApproved, false},
		{OfficeChangeRejected, OfficeChangeRejected, false},
		{OfficeChangePending, OfficeChangePending, false},
	}
	for _, tt := range cases {
		if got := ValidOfficeChangeDecision(tt.decision, tt.from); got != tt.valid {
			t.Fatalf("ValidOfficeChangeDecision(%q, %q)=%v, want %v", tt.decision, tt.from, got, tt.valid)
		}
	}
}

func TestValidEmployeeNumber(t *testing.T) {
	cases := []struct {
		in    string
		valid bool
	}{
		{"M1001", true},
		{"M1", true},
		{"M", false},
		{"1001", false},
		{"m1001", false},
		{"M10a1", false},
		{"", false},
		{" M1001", false},
	}
	for _, tt := range cases {
		if got := ValidEmployeeNumber(tt.in); got != tt.valid {
			t.Fatalf("ValidEmployeeNumber(%q)=%v, want %v", tt.in, got, tt.valid)
		}
	}
}

func TestToggleEquipment(t *testing.T) {
	if got := ToggleEquipment(EquipmentIn); got != EquipmentOut {
		t.Fatalf("toggle IN = %q, want OUT", got)
	}
	if got := ToggleEquipment(EquipmentOut); got != EquipmentIn {
		t.Fatalf("toggle OUT = %q, want IN", got)
	}
	if got := ToggleEquipment(""); got != EquipmentOut {
		t.Fatalf("toggle empty = %q, want OUT", got)
	}
}
