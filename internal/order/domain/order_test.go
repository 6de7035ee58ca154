package domain

import (
	"strings"
	"testing"
)

func TestComputeTotal(t *testing.T) {
	o := &Order{Quantity: 2, UnitPrice: 29.99}
	got := o.ComputeTotal()
	if diff := got - 59.98; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected total 59.98, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	valid := Order{CustomerID: 1, Name: "Widget", Quantity: 1, UnitPrice: 0}

	tests := []struct {
		name    string
		mutate  func(*Order)
		violate string
	}{
		{"valid order", func(o *Order) {}, ""},
		{"blank name", func(o *Order) { o.Name = "  " }, "name must not be blank"},
		{"name too long", func(o *Order) { o.Name = strings.Repeat("x", 256) }, "at most 255"},
		{"zero quantity", func(o *Order) { o.Quantity = 0 }, "quantity must be at least 1"},
		{"negative price", func(o *Order) { o.UnitPrice = -0.01 }, "unit price must not be negative"},
		{"zero customer", func(o *Order) { o.CustomerID = 0 }, "customer id must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid
			tt.mutate(&o)
			violations := o.Validate()
			if tt.violate == "" {
				if len(violations) != 0 {
					t.Fatalf("expected no violations, got %v", violations)
				}
				return
			}
			if !containsSubstring(violations, tt.violate) {
				t.Fatalf("expected violation containing %q, got %v", tt.violate, violations)
			}
		})
	}
}

func TestValidateCollectsAllViolations(t *testing.T) {
	o := Order{CustomerID: 0, Name: "", Quantity: 0, UnitPrice: -1}
	if got := len(o.Validate()); got != 4 {
		t.Fatalf("expected 4 violations, got %d: %v", got, o.Validate())
	}
}

func containsSubstring(items []string, sub string) bool {
	for _, item := range items {
		if strings.Contains(item, sub) {
			return true
		}
	}
	return false
}
