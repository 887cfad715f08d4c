package domain

import (
	"reflect"
	"testing"
)

func newSourceBlockSystem(t *testing.T) *System {
	t.Helper()
	sys := NewSystem("rbd")

	s1 := NewComponent("S1")
	if err := s1.DeclareFlowOut("is_ok", ProducesByDefault()); err != nil {
		t.Fatal(err)
	}
	b1 := NewComponent("B1")
	if err := b1.DeclareFlowInOut("is_ok", ""); err != nil {
		t.Fatal(err)
	}
	for _, c := range []*Component{s1, b1} {
		if err := sys.AddComponent(c); err != nil {
			t.Fatal(err)
		}
	}
	return sys
}

func TestConnect(t *testing.T) {
	sys := newSourceBlockSystem(t)

	if err := sys.Connect("S1", "is_ok_out", "B1", "is_ok_in"); err != nil {
		t.Fatal(err)
	}
	want := Connection{Src: "S1", SrcFlow: "is_ok", Dst: "B1", DstFlow: "is_ok"}
	if !reflect.DeepEqual(sys.Connections, []Connection{want}) {
		t.Fatalf("connections = %+v", sys.Connections)
	}

	if err := sys.Connect("S1", "is_ok_out", "B1", "is_ok_in"); err == nil {
		t.Fatal("duplicate edge must fail")
	}
	if err := sys.Connect("S1", "is_ok_out", "S1", "is_ok_in"); err == nil {
		t.Fatal("self connection must fail")
	}
	if err := sys.Connect("nope", "is_ok_out", "B1", "is_ok_in"); err == nil {
		t.Fatal("unknown source component must fail")
	}
	if err := sys.Connect("S1", "is_ok_out", "B1", "is_ok_out"); err == nil {
		t.Fatal("an output port cannot be the consumer side")
	}
	if err := sys.Connect("S1", "is_ok_out", "B1", "water_in"); err == nil {
		t.Fatal("unknown consumer flow must fail")
	}
}

func TestConnectFlowMismatch(t *testing.T) {
	sys := NewSystem("s")
	a := NewComponent("A")
	if err := a.DeclareFlowOut("water"); err != nil {
		t.Fatal(err)
	}
	b := NewComponent("B")
	if err := b.DeclareFlowIn("steam", ""); err != nil {
		t.Fatal(err)
	}
	if err := sys.AddComponent(a); err != nil {
		t.Fatal(err)
	}
	if err := sys.AddComponent(b); err != nil {
		t.Fatal(err)
	}
	if err := sys.Connect("A", "water_out", "B", "steam_in"); err == nil {
		t.Fatal("flow mismatch must fail")
	}
}

func TestConnectTrigger(t *testing.T) {
	sys := NewSystem("s")
	s1 := NewComponent("S1")
	if err := s1.DeclareFlowOut("is_ok", ProducesByDefault()); err != nil {
		t.Fatal(err)
	}
	s2 := NewComponent("S2")
	if err := s2.DeclareTriggerOut("is_ok", TriggerSpec{TimeUp: 1}); err != nil {
		t.Fatal(err)
	}
	if err := sys.AddComponent(s1); err != nil {
		t.Fatal(err)
	}
	if err := sys.AddComponent(s2); err != nil {
		t.Fatal(err)
	}

	if err := sys.ConnectTrigger("S1", "S2", "is_ok"); err != nil {
		t.Fatal(err)
	}
	want := Connection{Src: "S1", SrcFlow: "is_ok", Dst: "S2", DstFlow: "is_ok_trigger"}
	if !reflect.DeepEqual(sys.Connections, []Connection{want}) {
		t.Fatalf("connections = %+v", sys.Connections)
	}
	// Idempotent.
	if err := sys.ConnectTrigger("S1", "S2", "is_ok"); err != nil {
		t.Fatal(err)
	}
	if len(sys.Connections) != 1 {
		t.Fatalf("trigger edge duplicated: %+v", sys.Connections)
	}

	// A plain input does not accept the trigger shortcut.
	b := NewComponent("B")
	if err := b.DeclareFlowIn("is_ok", ""); err != nil {
		t.Fatal(err)
	}
	if err := sys.AddComponent(b); err != nil {
		t.Fatal(err)
	}
	if err := sys.ConnectTrigger("S1", "B", "is_ok"); err == nil {
		t.Fatal("trigger wiring to a component without a trigger input must fail")
	}
}

func TestAutoConnect(t *testing.T) {
	sys := NewSystem("s")
	for _, name := range []string{"S1", "S2"} {
		c := NewComponent(name)
		if err := c.DeclareFlowOut("is_ok", ProducesByDefault()); err != nil {
			t.Fatal(err)
		}
		if err := sys.AddComponent(c); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range []string{"B1", "B2"} {
		c := NewComponent(name)
		if err := c.DeclareFlowInOut("is_ok", ""); err != nil {
			t.Fatal(err)
		}
		if err := sys.AddComponent(c); err != nil {
			t.Fatal(err)
		}
	}

	created, err := sys.AutoConnect("S.*", "B.*")
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 4 {
		t.Fatalf("created %d edges, want 4: %+v", len(created), created)
	}

	// Patterns are anchored: "S" alone matches nothing.
	created, err = sys.AutoConnect("S", "B.*")
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 0 {
		t.Fatalf("unanchored match created %d edges", len(created))
	}

	// Re-running skips existing edges.
	created, err = sys.AutoConnect("S.*", "B.*")
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 0 {
		t.Fatalf("rerun created %d edges, want 0", len(created))
	}

	// Blocks feed each other is_ok too, but never themselves.
	created, err = sys.AutoConnect("B.*", "B.*")
	if err != nil {
		t.Fatal(err)
	}
	for _, conn := range created {
		if conn.Src == conn.Dst {
			t.Fatalf("self connection created: %+v", conn)
		}
	}

	if _, err := sys.AutoConnect("S[", "B.*"); err == nil {
		t.Fatal("invalid pattern must fail")
	}
}

func TestAddLogicGates(t *testing.T) {
	sys := NewSystem("s")
	for _, name := range []string{"S1", "S2"} {
		c := NewComponent(name)
		if err := c.DeclareFlowOut("is_ok", ProducesByDefault()); err != nil {
			t.Fatal(err)
		}
		if err := sys.AddComponent(c); err != nil {
			t.Fatal(err)
		}
	}

	gate, err := sys.AddLogicOr("G", []string{"S.*"})
	if err != nil {
		t.Fatal(err)
	}
	if gate.Class != "LogicOr" {
		t.Fatalf("gate class = %q", gate.Class)
	}
	in, ok := gate.FlowInByName("is_ok")
	if !ok || in.Logic != LogicOr {
		t.Fatalf("gate input = %+v", in)
	}
	out, ok := gate.FlowOutByName(GateFlowName)
	if !ok || !out.Default {
		t.Fatalf("gate output = %+v", out)
	}
	if want := [][]string{{"is_ok"}}; !reflect.DeepEqual(out.ProdCond, want) {
		t.Fatalf("gate ProdCond = %v, want %v", out.ProdCond, want)
	}
	wantConns := []Connection{
		{Src: "S1", SrcFlow: "is_ok", Dst: "G", DstFlow: "is_ok"},
		{Src: "S2", SrcFlow: "is_ok", Dst: "G", DstFlow: "is_ok"},
	}
	if !reflect.DeepEqual(sys.Connections, wantConns) {
		t.Fatalf("gate connections = %+v", sys.Connections)
	}

	and, err := sys.AddLogicAnd("GA", []string{"S1:is_.*", "S2:is_.*"})
	if err != nil {
		t.Fatal(err)
	}
	in, _ = and.FlowInByName("is_ok")
	if in.Logic != LogicAnd {
		t.Fatalf("and-gate logic = %q", in.Logic)
	}

	if _, err := sys.AddLogicOr("G2", []string{"Z.*"}); err == nil {
		t.Fatal("gate with no matched flows must fail")
	}
}

func TestAddIndicator(t *testing.T) {
	sys := newSourceBlockSystem(t)

	if err := sys.AddIndicator("fed", SelectAll, "is_ok_fed_out"); err != nil {
		t.Fatal(err)
	}
	ind := sys.Indicators[0]
	if !reflect.DeepEqual(ind.Stats, []Stat{StatMean}) {
		t.Fatalf("stats must default to mean, got %v", ind.Stats)
	}

	if err := sys.AddIndicator("fed", ".", "is_ok_fed_out"); err == nil {
		t.Fatal("duplicate indicator must fail")
	}
	if err := sys.AddIndicator("bad", "S[", "is_ok_fed_out"); err == nil {
		t.Fatal("invalid selector must fail")
	}
	if err := sys.AddIndicator("bad2", ".", "is_ok_fed_out", Stat("median")); err == nil {
		t.Fatal("unknown stat must fail")
	}
	if err := sys.AddIndicator("both", "S1", "is_ok_fed_available_out", StatMean, StatStddev); err != nil {
		t.Fatal(err)
	}
}

func TestAddTarget(t *testing.T) {
	sys := newSourceBlockSystem(t)

	if err := sys.AddTarget(NewVarTarget("lost", "B1", "is_ok_fed_out", false)); err != nil {
		t.Fatal(err)
	}
	if err := sys.AddTarget(NewVarTarget("lost", "B1", "is_ok_fed_out", false)); err == nil {
		t.Fatal("duplicate target must fail")
	}
	if err := sys.AddTarget(NewStateTarget("failed", "S1", "fm", "fm_occ")); err != nil {
		t.Fatal(err)
	}
	if err := sys.AddTarget(&Target{Name: "odd", Kind: "fancy", Component: "S1", Var: "x"}); err == nil {
		t.Fatal("unknown kind must fail")
	}
	if err := sys.AddTarget(&Target{Name: "bare", Component: "S1"}); err == nil {
		t.Fatal("var target without a variable must fail")
	}

	// Kind and comparator default to var/eq.
	t1 := &Target{Name: "dflt", Component: "S1", Var: "is_ok_fed_out"}
	if err := sys.AddTarget(t1); err != nil {
		t.Fatal(err)
	}
	if t1.Kind != TargetVar || t1.Comparator != CompEQ {
		t.Fatalf("defaults not applied: %+v", t1)
	}
}

func TestMonitorTransitions(t *testing.T) {
	sys := newSourceBlockSystem(t)
	if err := sys.MonitorTransitions(`S1\..*`, ".*_rep_occ"); err != nil {
		t.Fatal(err)
	}
	if len(sys.Monitors) != 2 {
		t.Fatalf("monitors = %v", sys.Monitors)
	}
	if err := sys.MonitorTransitions("["); err == nil {
		t.Fatal("invalid monitor pattern must fail")
	}
}

func TestSchedule(t *testing.T) {
	phase := SchedulePhase{Start: 0, End: 24, NValues: 25}
	pts := phase.SamplePoints()
	if len(pts) != 25 || pts[0] != 0 || pts[24] != 24 || pts[1] != 1 {
		t.Fatalf("sample points = %v", pts)
	}
	if got := (SchedulePhase{Start: 2, End: 10, NValues: 1}).SamplePoints(); !reflect.DeepEqual(got, []float64{2}) {
		t.Fatalf("single sample = %v, want phase start", got)
	}

	cfg := SimulationConfig{Runs: 10, Schedule: []SchedulePhase{{Start: 0, End: 24, NValues: 25}}}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Horizon() != 24 {
		t.Fatalf("horizon = %g", cfg.Horizon())
	}

	bad := []SimulationConfig{
		{Runs: 0, Schedule: cfg.Schedule},
		{Runs: 1},
		{Runs: 1, Schedule: []SchedulePhase{{Start: 0, End: 0, NValues: 1}}},
		{Runs: 1, Schedule: []SchedulePhase{{Start: 0, End: 10, NValues: 0}}},
		{Runs: 1, Schedule: []SchedulePhase{{Start: -1, End: 10, NValues: 2}}},
		{Runs: 1, Schedule: []SchedulePhase{{Start: 0, End: 10, NValues: 2}, {Start: 5, End: 20, NValues: 2}}},
		{Runs: 1, Workers: -1, Schedule: cfg.Schedule},
	}
	for i, c := range bad {
		if err := c.Validate(); err == nil {
			t.Fatalf("config %d must not validate: %+v", i, c)
		}
	}

	multi := SimulationConfig{Runs: 1, Schedule: []SchedulePhase{
		{Start: 0, End: 10, NValues: 2},
		{Start: 10, End: 20, NValues: 2},
	}}
	if err := multi.Validate(); err != nil {
		t.Fatal(err)
	}
	if got := multi.SamplePoints(); !reflect.DeepEqual(got, []float64{0, 10, 10, 20}) {
		t.Fatalf("multi-phase samples = %v", got)
	}
}
