package util

import (
	"testing"
)

func TestGetAsInteger(t *testing.T) {
	if v, err := GetAsInteger(" 42 "); err != nil || v != 42 {
		t.Errorf("expected 42, got %d (%v)", v, err)
	}
	if v, err := GetAsInteger(7.0); err != nil || v != 7 {
		t.Errorf("expected 7, got %d (%v)", v, err)
	}
	if _, err := GetAsInteger(7.5); err == nil {
		t.Error("expected an error for a fractional float")
	}
	if _, err := GetAsInteger("abc"); err == nil {
		t.Error("expected an error for a non-numeric string")
	}
}

func TestGetAsFloat(t *testing.T) {
	if v, err := GetAsFloat("2.5"); err != nil || v != 2.5 {
		t.Errorf("expected 2.5, got %f (%v)", v, err)
	}
	if v, err := GetAsFloat(3); err != nil || v != 3.0 {
		t.Errorf("expected 3.0, got %f (%v)", v, err)
	}
}

func TestGetAsString(t *testing.T) {
	if v, err := GetAsString(39); err != nil || v != "39" {
		t.Errorf("expected \"39\", got %q (%v)", v, err)
	}
	if v, err := GetAsString("x"); err != nil || v != "x" {
		t.Errorf("expected \"x\", got %q (%v)", v, err)
	}
}
