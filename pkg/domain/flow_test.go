package domain

import (
	"reflect"
	"testing"
)

func TestVarName(t *testing.T) {
	if got := VarName("is_ok", SuffixFedOut); got != "is_ok_fed_out" {
		t.Fatalf("VarName = %q, want is_ok_fed_out", got)
	}
	if got := PortOut("is_ok"); got != "is_ok_out" {
		t.Fatalf("PortOut = %q, want is_ok_out", got)
	}
	if got := PortIn("is_ok"); got != "is_ok_in" {
		t.Fatalf("PortIn = %q, want is_ok_in", got)
	}
}

func TestLogicValid(t *testing.T) {
	if !LogicAnd.Valid() || !LogicOr.Valid() {
		t.Fatal("and/or must be valid logics")
	}
	if Logic("xor").Valid() {
		t.Fatal("xor must not be a valid logic")
	}
}

func TestFlowOutOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []FlowOutOption
		want FlowOut
	}{
		{
			name: "defaults",
			want: FlowOut{Name: "f"},
		},
		{
			name: "produces by default",
			opts: []FlowOutOption{ProducesByDefault()},
			want: FlowOut{Name: "f", Default: true},
		},
		{
			name: "prod cond builds one group per flow",
			opts: []FlowOutOption{WithProdCond("a", "b")},
			want: FlowOut{Name: "f", ProdCond: [][]string{{"a"}, {"b"}}},
		},
		{
			name: "any-of builds a single group",
			opts: []FlowOutOption{WithProdCondAnyOf("a", "b")},
			want: FlowOut{Name: "f", ProdCond: [][]string{{"a", "b"}}},
		},
		{
			name: "conditions compose",
			opts: []FlowOutOption{WithProdCond("a"), WithProdCondAnyOf("b", "c"), Negated()},
			want: FlowOut{Name: "f", ProdCond: [][]string{{"a"}, {"b", "c"}}, Negate: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FlowOut{Name: "f"}
			for _, opt := range tt.opts {
				opt(&f)
			}
			if !reflect.DeepEqual(f, tt.want) {
				t.Fatalf("got %+v, want %+v", f, tt.want)
			}
		})
	}
}

func TestCondConstructors(t *testing.T) {
	if v, ok := (Cond{}).IsConst(); !ok || !v {
		t.Fatal("zero cond must be constant true")
	}
	if v, ok := ConstCond(false).IsConst(); !ok || v {
		t.Fatal("ConstCond(false) must be constant false")
	}
	if _, ok := VarCond("x").IsConst(); ok {
		t.Fatal("VarCond must not be constant")
	}
	if err := (Cond{Kind: CondVar}).Validate(); err == nil {
		t.Fatal("variable cond without a name must not validate")
	}
	if err := (Cond{Kind: "fancy"}).Validate(); err == nil {
		t.Fatal("unknown cond kind must not validate")
	}
}

func TestLawValidate(t *testing.T) {
	if err := DelayLaw(0).Validate(); err != nil {
		t.Fatalf("zero delay: %v", err)
	}
	if err := ExpLaw(0).Validate(); err != nil {
		t.Fatalf("zero rate is degenerate but legal: %v", err)
	}
	if err := DelayLaw(-1).Validate(); err == nil {
		t.Fatal("negative delay must not validate")
	}
	if err := ExpLaw(-0.5).Validate(); err == nil {
		t.Fatal("negative rate must not validate")
	}
	if err := (Law{}).Validate(); err == nil {
		t.Fatal("law without a kind must not validate")
	}
}

func TestVariableSet(t *testing.T) {
	vs := NewVariableSet()
	if err := vs.Declare("a", true); err != nil {
		t.Fatal(err)
	}
	if err := vs.Declare("b", false); err != nil {
		t.Fatal(err)
	}
	if err := vs.Declare("a", false); err == nil {
		t.Fatal("redeclaring a must fail")
	}

	changed, err := vs.Set("b", true)
	if err != nil || !changed {
		t.Fatalf("Set(b, true) = (%v, %v), want changed", changed, err)
	}
	changed, err = vs.Set("b", true)
	if err != nil || changed {
		t.Fatalf("Set(b, true) twice = (%v, %v), want unchanged", changed, err)
	}
	if _, err := vs.Set("zz", true); err == nil {
		t.Fatal("setting an undeclared variable must fail")
	}

	vs.Reset()
	v, err := vs.Get("b")
	if err != nil || v {
		t.Fatalf("after Reset, b = (%v, %v), want false", v, err)
	}
	if got := vs.Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("Names = %v, want declaration order", got)
	}
	snap := vs.Snapshot()
	snap["a"] = false
	if v, _ := vs.Get("a"); !v {
		t.Fatal("Snapshot must copy, not alias")
	}
}
