package utils

import "testing"

func TestT_Fallback(t *testing.T) {
	if got := T("fr", "health.ok"); got != "พร้อมใช้งาน" {
		t.Fatalf("fallback to th failed: %s", got)
	}
}

func TestT_UnknownKey(t *testing.T) {
	if got := T("th", "no.such.key"); got != "no.such.key" {
		t.Fatalf("unknown key should echo, got %s", got)
	}
}
