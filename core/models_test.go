package core

import (
	"testing"
	"time"
)

func TestIDFromTokenDeterministic(t *testing.T) {
	a := IDFromToken("school-7f3a")
	b := IDFromToken("school-7f3a")
	if a != b {
		t.Fatalf("same token produced different ids: %d vs %d", a, b)
	}
	if a == 0 {
		t.Fatal("expected non-zero id")
	}
	if IDFromToken("school-7f3b") == a {
		t.Fatal("distinct tokens produced the same id")
	}
}

func TestSchoolTypeRoundTrip(t *testing.T) {
	types := []SchoolType{SchoolTypeGrade, SchoolTypeHigh, SchoolTypeCollege, SchoolTypeOther}
	for _, st := range types {
		if got := SchoolTypeFromString(st.String()); got != st {
			t.Errorf("round trip of %v = %v", st, got)
		}
	}

	if got := SchoolTypeFromString("kindergarten"); got != SchoolTypeOther {
		t.Errorf("unknown name = %v, want SchoolTypeOther", got)
	}
	if got := SchoolType(99).String(); got != "other" {
		t.Errorf("unknown type string = %q, want %q", got, "other")
	}
}

func TestSchoolDeleted(t *testing.T) {
	s := &School{}
	if s.Deleted() {
		t.Error("zero school reported deleted")
	}
	now := time.Now().UTC()
	s.DeletedAt = &now
	if !s.Deleted() {
		t.Error("soft-deleted school not reported deleted")
	}
}
