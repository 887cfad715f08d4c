package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/internal/presentation/graph"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/results"
	"github.com/aretw0/sluice/pkg/session"
)

// SimulateResponse summarizes a finished campaign and provides a unified structure across adapters.
type SimulateResponse struct {
	CampaignID string                      `json:"campaign_id" jsonschema_description:"Stored campaign identifier"`
	System     string                      `json:"system" jsonschema_description:"Name of the simulated system"`
	Runs       int                         `json:"runs" jsonschema_description:"Number of completed runs"`
	Indicators map[string][]results.Series `json:"indicators" jsonschema_description:"Requested statistics per indicator, one series per observed variable"`
	TargetHits map[string]int              `json:"target_hits,omitempty" jsonschema_description:"Number of runs that reached each target"`
}

// SessionResponse is the session state shared by every session tool.
type SessionResponse struct {
	ID             string    `json:"id" jsonschema_description:"Session identifier"`
	System         string    `json:"system" jsonschema_description:"Name of the system the session runs"`
	CreatedAt      time.Time `json:"created_at" jsonschema_description:"Session creation time"`
	Time           float64   `json:"time" jsonschema_description:"Current simulation clock"`
	Frozen         bool      `json:"frozen" jsonschema_description:"Whether the run stopped on a target"`
	ReachedTargets []string  `json:"reached_targets,omitempty" jsonschema_description:"Targets reached so far"`
}

// TransitionsResponse lists the armed transitions of a session.
type TransitionsResponse struct {
	Session     SessionResponse        `json:"session"`
	Transitions []domain.TransitionRef `json:"transitions" jsonschema_description:"Armed transitions with their scheduled times, soonest first"`
}

// StepResponse reports the transitions one step fired.
type StepResponse struct {
	Session SessionResponse          `json:"session"`
	Fired   []domain.FiredTransition `json:"fired" jsonschema_description:"Transitions fired by this step, in firing order"`
}

// Server exposes a loaded system as an MCP server: campaign simulation plus
// interactive stepping sessions.
type Server struct {
	system    *domain.System
	sim       *sluice.Simulator
	sessions  *session.Manager
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance for one loaded system.
func NewServer(sys *domain.System, sim *sluice.Simulator, sessions *session.Manager) *Server {
	s := &Server{
		system:    sys,
		sim:       sim,
		sessions:  sessions,
		mcpServer: server.NewMCPServer("sluice-mcp", strings.TrimSpace(sluice.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	// Start the SSE server
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		// Create a timeout context for the graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		fmt.Println("\nShutdown signal received, shutting down server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("CORS Middleware", "method", r.Method, "path", r.URL.Path)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: inspect_system
	s.mcpServer.AddTool(mcp.NewTool("inspect_system",
		mcp.WithDescription("Get the full system definition for introspection."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, err := json.Marshal(s.system)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: simulate
	simulateTool := mcp.NewTool("simulate",
		mcp.WithDescription("Run a Monte Carlo campaign on the loaded system and summarize the indicator statistics."),
		mcp.WithNumber("runs", mcp.Required(), mcp.Description("Number of independent runs")),
		mcp.WithNumber("end", mcp.Description("Mission end time; samples one phase from 0 to end (required unless schedule is given)")),
		mcp.WithNumber("nvalues", mcp.Description("Number of sample instants between 0 and end (default 2)")),
		mcp.WithNumber("seed", mcp.Description("Base random seed (default 0)")),
		mcp.WithString("schedule", mcp.Description("JSON array of sampling phases [{start,end,nvalues}], overrides end/nvalues")),
		mcp.WithOutputSchema[SimulateResponse](),
	)
	s.mcpServer.AddTool(simulateTool, mcp.NewStructuredToolHandler(s.handleSimulate))

	// TOOL: start_session
	startTool := mcp.NewTool("start_session",
		mcp.WithDescription("Start an interactive stepping session on the loaded system."),
		mcp.WithString("id", mcp.Description("Session ID (optional, generated when omitted)")),
		mcp.WithNumber("seed", mcp.Description("Random seed for the session's run (default 0)")),
		mcp.WithNumber("run", mcp.Description("Run index deriving the random stream (default 0)")),
		mcp.WithOutputSchema[SessionResponse](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStartSession))

	// TOOL: fireable_transitions
	fireableTool := mcp.NewTool("fireable_transitions",
		mcp.WithDescription("List the armed transitions of a session with their scheduled times."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[TransitionsResponse](),
	)
	s.mcpServer.AddTool(fireableTool, mcp.NewStructuredToolHandler(s.handleFireable))

	// TOOL: step_session
	stepTool := mcp.NewTool("step_session",
		mcp.WithDescription("Advance a session: fire the next scheduled transition, force a named armed transition at the current clock, or advance the clock to a given time."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("transition", mcp.Description("Fully qualified transition ID (component.automaton.transition) to force")),
		mcp.WithNumber("until", mcp.Description("Advance the clock to this time, firing everything scheduled on the way")),
		mcp.WithOutputSchema[StepResponse](),
	)
	s.mcpServer.AddTool(stepTool, mcp.NewStructuredToolHandler(s.handleStep))

	// TOOL: close_session
	s.mcpServer.AddTool(mcp.NewTool("close_session",
		mcp.WithDescription("Stop and discard a stepping session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID := request.GetString("session_id", "")
		if err := s.sessions.Close(ctx, sessionID); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("close failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("session %s closed", sessionID)), nil
	})
}

// Handler methods for structured tools

func (s *Server) handleSimulate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SimulateResponse, error) {
	runs, ok := args["runs"].(float64)
	if !ok || runs <= 0 {
		return SimulateResponse{}, fmt.Errorf("runs must be a positive number")
	}
	cfg := domain.SimulationConfig{Runs: int(runs)}
	if seed, ok := args["seed"].(float64); ok {
		cfg.Seed = uint64(seed)
	}

	if schedStr, ok := args["schedule"].(string); ok && schedStr != "" {
		if err := json.Unmarshal([]byte(schedStr), &cfg.Schedule); err != nil {
			return SimulateResponse{}, fmt.Errorf("invalid schedule: %w", err)
		}
	} else {
		end, ok := args["end"].(float64)
		if !ok {
			return SimulateResponse{}, fmt.Errorf("either end or schedule is required")
		}
		nvalues := 2
		if nv, ok := args["nvalues"].(float64); ok {
			nvalues = int(nv)
		}
		cfg.Schedule = []domain.SchedulePhase{{Start: 0, End: end, NValues: nvalues}}
	}

	campaign, err := s.sim.Run(ctx, s.system, cfg)
	if err != nil {
		return SimulateResponse{}, fmt.Errorf("simulate failed: %w", err)
	}
	return summarizeCampaign(campaign), nil
}

func summarizeCampaign(c *results.Campaign) SimulateResponse {
	resp := SimulateResponse{
		CampaignID: c.ID.String(),
		System:     c.System,
		Runs:       c.NbRuns(),
		Indicators: make(map[string][]results.Series),
		TargetHits: c.TargetHits(),
	}
	for _, name := range c.IndicatorNames() {
		ind, err := c.Indicator(name)
		if err != nil {
			continue
		}
		series := []results.Series{}
		for _, stat := range ind.Stats {
			st, err := ind.Stat(stat)
			if err != nil {
				slog.Warn("MCP Simulate: Unknown statistic skipped", "indicator", name, "stat", string(stat))
				continue
			}
			series = append(series, st...)
		}
		resp.Indicators[name] = series
	}
	return resp
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionResponse, error) {
	var opts []session.StartOption
	if id, ok := args["id"].(string); ok && id != "" {
		opts = append(opts, session.WithID(id))
	}
	if seed, ok := args["seed"].(float64); ok {
		opts = append(opts, session.WithSeed(uint64(seed)))
	}
	if run, ok := args["run"].(float64); ok {
		opts = append(opts, session.WithRun(int(run)))
	}

	sess, err := s.sessions.Start(ctx, s.system, opts...)
	if err != nil {
		return SessionResponse{}, fmt.Errorf("start failed: %w", err)
	}
	return sessionResponse(sess), nil
}

func sessionResponse(sess *session.Session) SessionResponse {
	return SessionResponse{
		ID:             sess.ID,
		System:         sess.System,
		CreatedAt:      sess.CreatedAt,
		Time:           sess.Now(),
		Frozen:         sess.Frozen(),
		ReachedTargets: sess.ReachedTargets(),
	}
}

func (s *Server) handleFireable(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TransitionsResponse, error) {
	sessionID, _ := args["session_id"].(string)

	var resp TransitionsResponse
	err := s.sessions.With(ctx, sessionID, func(ctx context.Context, sess *session.Session) error {
		resp = TransitionsResponse{
			Session:     sessionResponse(sess),
			Transitions: sess.Fireable(),
		}
		return nil
	})
	if err != nil {
		return TransitionsResponse{}, fmt.Errorf("fireable failed: %w", err)
	}
	return resp, nil
}

func (s *Server) handleStep(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StepResponse, error) {
	sessionID, _ := args["session_id"].(string)
	transition, _ := args["transition"].(string)
	until, hasUntil := args["until"].(float64)
	if transition != "" && hasUntil {
		return StepResponse{}, fmt.Errorf("use either transition or until, not both")
	}

	var resp StepResponse
	err := s.sessions.With(ctx, sessionID, func(ctx context.Context, sess *session.Session) error {
		fired := []domain.FiredTransition{}

		switch {
		case hasUntil:
			var err error
			if fired, err = sess.Advance(ctx, until); err != nil {
				return err
			}
		case transition != "":
			ft, err := sess.Fire(ctx, transition)
			if err != nil {
				return err
			}
			if ft != nil {
				fired = append(fired, *ft)
			}
		default:
			ft, err := sess.StepForward(ctx)
			if err != nil {
				return err
			}
			if ft != nil {
				fired = append(fired, *ft)
			}
		}

		resp = StepResponse{
			Session: sessionResponse(sess),
			Fired:   fired,
		}
		return nil
	})
	if err != nil {
		return StepResponse{}, fmt.Errorf("step failed: %w", err)
	}
	return resp, nil
}

func (s *Server) registerResources() {
	// EXPOSE: sluice://system
	s.mcpServer.AddResource(mcp.NewResource("sluice://system", "Loaded System Definition",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.system)
		if err != nil {
			return nil, fmt.Errorf("failed to encode system: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "sluice://system",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})

	// EXPOSE: sluice://system/mermaid
	s.mcpServer.AddResource(mcp.NewResource("sluice://system/mermaid", "System Topology Diagram",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "sluice://system/mermaid",
				MIMEType: "text/plain",
				Text:     graph.GenerateMermaid(s.system, nil),
			},
		}, nil
	})
}
