package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/dsl"
	"github.com/aretw0/sluice/pkg/kb/rbd"
	"github.com/aretw0/sluice/pkg/session"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	b := dsl.NewSystem("plant")
	b.Component("S", rbd.ClassSource, dsl.Params{
		"failures": []map[string]any{
			{"name": "fm", "kind": "delay", "failure_time": 4.0, "repair_time": 2.0},
		},
	})
	b.Component("T", rbd.ClassTarget, nil)
	b.ConnectFlow("S", "T", "is_ok")
	b.Indicator("supply", "T", "is_ok_fed_in")
	sys, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return NewServer(sys, sluice.New(), session.NewManager())
}

func TestHandleSimulate(t *testing.T) {
	s := testServer(t)

	resp, err := s.handleSimulate(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"runs":    2.0,
		"end":     10.0,
		"nvalues": 3.0,
		"seed":    7.0,
	})
	if err != nil {
		t.Fatalf("handleSimulate() error = %v", err)
	}
	if resp.System != "plant" || resp.Runs != 2 {
		t.Errorf("Unexpected summary: system=%q runs=%d", resp.System, resp.Runs)
	}
	series, ok := resp.Indicators["supply"]
	if !ok || len(series) == 0 {
		t.Fatalf("Missing supply series: %+v", resp.Indicators)
	}
	if len(series[0].Samples) != 3 {
		t.Errorf("Samples = %d, want 3", len(series[0].Samples))
	}
	if resp.CampaignID == "" {
		t.Error("CampaignID is empty")
	}
}

func TestHandleSimulate_ScheduleJSON(t *testing.T) {
	s := testServer(t)

	resp, err := s.handleSimulate(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"runs":     1.0,
		"schedule": `[{"start":0,"end":5,"nvalues":2},{"start":5,"end":10,"nvalues":2}]`,
	})
	if err != nil {
		t.Fatalf("handleSimulate() error = %v", err)
	}
	if got := len(resp.Indicators["supply"][0].Samples); got != 4 {
		t.Errorf("Samples = %d, want 4", got)
	}
}

func TestHandleSimulate_Validation(t *testing.T) {
	s := testServer(t)
	ctx := context.Background()

	if _, err := s.handleSimulate(ctx, mcp.CallToolRequest{}, map[string]interface{}{}); err == nil ||
		!strings.Contains(err.Error(), "runs must be a positive number") {
		t.Errorf("Expected runs validation error, got %v", err)
	}
	if _, err := s.handleSimulate(ctx, mcp.CallToolRequest{}, map[string]interface{}{"runs": 1.0}); err == nil ||
		!strings.Contains(err.Error(), "either end or schedule is required") {
		t.Errorf("Expected schedule validation error, got %v", err)
	}
	if _, err := s.handleSimulate(ctx, mcp.CallToolRequest{}, map[string]interface{}{"runs": 1.0, "schedule": "not json"}); err == nil ||
		!strings.Contains(err.Error(), "invalid schedule") {
		t.Errorf("Expected schedule parse error, got %v", err)
	}
}

func TestSessionTools(t *testing.T) {
	s := testServer(t)
	ctx := context.Background()

	// 1. Start a named session.
	start, err := s.handleStartSession(ctx, mcp.CallToolRequest{}, map[string]interface{}{"id": "ops"})
	if err != nil {
		t.Fatalf("handleStartSession() error = %v", err)
	}
	if start.ID != "ops" || start.System != "plant" || start.Time != 0 {
		t.Errorf("Unexpected session: %+v", start)
	}

	// 2. The failure is armed at t=4.
	fireable, err := s.handleFireable(ctx, mcp.CallToolRequest{}, map[string]interface{}{"session_id": "ops"})
	if err != nil {
		t.Fatalf("handleFireable() error = %v", err)
	}
	if len(fireable.Transitions) != 1 || fireable.Transitions[0].Time != 4 {
		t.Fatalf("Unexpected transitions: %+v", fireable.Transitions)
	}

	// 3. Step fires it.
	step, err := s.handleStep(ctx, mcp.CallToolRequest{}, map[string]interface{}{"session_id": "ops"})
	if err != nil {
		t.Fatalf("handleStep() error = %v", err)
	}
	if len(step.Fired) != 1 || step.Fired[0].To != "fm_occ" || step.Session.Time != 4 {
		t.Errorf("Unexpected step: %+v", step)
	}

	// 4. Advance to t=10 crosses the repair and the next failure.
	step, err = s.handleStep(ctx, mcp.CallToolRequest{}, map[string]interface{}{"session_id": "ops", "until": 10.0})
	if err != nil {
		t.Fatalf("handleStep(until) error = %v", err)
	}
	if len(step.Fired) != 2 || step.Session.Time != 10 {
		t.Errorf("Unexpected until step: fired=%d time=%g", len(step.Fired), step.Session.Time)
	}

	// 5. Mixing forcing and advancing is rejected.
	if _, err := s.handleStep(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"session_id": "ops", "transition": "S.fm.fm_occ_rep", "until": 20.0,
	}); err == nil {
		t.Error("Expected error when mixing transition and until")
	}

	// 6. Unknown sessions surface the sentinel.
	if _, err := s.handleFireable(ctx, mcp.CallToolRequest{}, map[string]interface{}{"session_id": "nope"}); err == nil ||
		!strings.Contains(err.Error(), "fireable failed") {
		t.Errorf("Expected fireable error, got %v", err)
	}

	// 7. Forcing the armed repair fires it at the current clock.
	step, err = s.handleStep(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"session_id": "ops", "transition": "S.fm.fm_occ_rep",
	})
	if err != nil {
		t.Fatalf("handleStep(transition) error = %v", err)
	}
	if len(step.Fired) != 1 || step.Fired[0].To != "fm_rep" || step.Fired[0].Time != 10 {
		t.Errorf("Unexpected forced step: %+v", step.Fired)
	}

	// 8. Unknown transitions surface the sentinel.
	if _, err := s.handleStep(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"session_id": "ops", "transition": "S.fm.bogus",
	}); err == nil || !strings.Contains(err.Error(), domain.ErrUnknownTransition.Error()) {
		t.Errorf("Expected unknown transition error, got %v", err)
	}
}
