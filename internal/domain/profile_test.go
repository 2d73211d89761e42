package domain

import "testing"

func TestProspectStatusValid(t *testing.T) {
	for _, s := range []ProspectStatus{
		StatusDiscovered, StatusQualified, StatusContacted,
		StatusEngaged, StatusConverted, StatusRejected, StatusArchived,
	} {
		if !s.Valid() {
			t.Errorf("Expected %q to be valid", s)
		}
	}
	if ProspectStatus("bogus").Valid() {
		t.Error("Expected bogus status to be invalid")
	}
	if ProspectStatus("").Valid() {
		t.Error("Expected empty status to be invalid")
	}
}

func TestProspectStatusCanAdvanceTo(t *testing.T) {
	tests := []struct {
		from, to ProspectStatus
		want     bool
	}{
		{StatusDiscovered, StatusQualified, true},
		{StatusDiscovered, StatusArchived, true},
		{StatusContacted, StatusContacted, true},
		{StatusConverted, StatusDiscovered, false},
		{StatusArchived, StatusEngaged, false},
		{ProspectStatus("bogus"), StatusContacted, false},
		{StatusDiscovered, ProspectStatus("bogus"), false},
	}
	for _, tt := range tests {
		if got := tt.from.CanAdvanceTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
