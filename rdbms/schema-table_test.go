package rdbms

import (
	"testing"
)

func TestSchemaTable(t *testing.T) {
	// Test 1 - schema.table
	st := ParseSchemaTable("PUB.Customer", "X")
	if st.GetSchema() != "PUB" || st.GetTable() != "Customer" {
		t.Fatalf("unexpected parse: %#v", st)
	}
	if got := st.String(); got != "PUB.Customer" {
		t.Fatalf("expected %q; got %q", "PUB.Customer", got)
	}
	if got := st.Identifier(); got != "pub.customer" {
		t.Fatalf("expected %q; got %q", "pub.customer", got)
	}
	// Test 2 - default schema is applied.
	st = ParseSchemaTable("Order-Line", "PUB")
	if st.GetSchema() != "PUB" || st.GetTable() != "Order-Line" {
		t.Fatalf("unexpected parse: %#v", st)
	}
	// Test 3 - no schema at all.
	st = NewSchemaTable("", "t")
	if st.String() != "t" {
		t.Fatalf("unexpected string: %v", st.String())
	}
}
