package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("ClassPulse", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("ClassPulse live class session server. Query running workout sessions, realtime and final leaderboards, and individual participant progress by class id."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetLiveSession, Handler: h.getLiveSession},
		server.ServerTool{Tool: toolGetLeaderboard, Handler: h.getLeaderboard},
		server.ServerTool{Tool: toolGetFinalLeaderboard, Handler: h.getFinalLeaderboard},
		server.ServerTool{Tool: toolGetParticipantProgress, Handler: h.getParticipantProgress},
	)

	s.AddResources(
		server.ServerResource{Resource: resLiveClasses, Handler: h.liveClasses},
	)

	return s
}

// handlers holds dependencies for MCP tool handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("encoding result: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (h *handlers) getLiveSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	classID := req.GetInt("class_id", 0)
	if classID <= 0 {
		return mcp.NewToolResultError("class_id is required"), nil
	}
	view, err := h.ds.GetSession(ctx, int64(classID))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(view)
}

func (h *handlers) getLeaderboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	classID := req.GetInt("class_id", 0)
	if classID <= 0 {
		return mcp.NewToolResultError("class_id is required"), nil
	}
	lb, err := h.ds.RealtimeLeaderboard(ctx, int64(classID))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(lb)
}

func (h *handlers) getFinalLeaderboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	classID := req.GetInt("class_id", 0)
	if classID <= 0 {
		return mcp.NewToolResultError("class_id is required"), nil
	}
	lb, err := h.ds.FinalLeaderboard(ctx, int64(classID))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(lb)
}

func (h *handlers) getParticipantProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	classID := req.GetInt("class_id", 0)
	if classID <= 0 {
		return mcp.NewToolResultError("class_id is required"), nil
	}
	userID := req.GetInt("user_id", 0)
	if userID <= 0 {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	p, err := h.ds.GetMyProgress(ctx, int64(classID), int64(userID))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(p)
}

// --- Tool definitions ---

var toolGetLiveSession = mcp.NewTool("get_live_session",
	mcp.WithDescription("Get the live session of a class: status, workout type, step snapshot, elapsed and remaining seconds."),
	mcp.WithNumber("class_id", mcp.Required(), mcp.Description("Class id")),
)

var toolGetLeaderboard = mcp.NewTool("get_leaderboard",
	mcp.WithDescription("Get the realtime leaderboard of a class session, ranked by the workout's modality (FOR_TIME, AMRAP, EMOM, INTERVAL/TABATA)."),
	mcp.WithNumber("class_id", mcp.Required(), mcp.Description("Class id")),
)

var toolGetFinalLeaderboard = mcp.NewTool("get_final_leaderboard",
	mcp.WithDescription("Get the settled leaderboard of an ended session, including coach corrections. Fails while the session is still running."),
	mcp.WithNumber("class_id", mcp.Required(), mcp.Description("Class id")),
)

var toolGetParticipantProgress = mcp.NewTool("get_participant_progress",
	mcp.WithDescription("Get one booked participant's progress record: current step, finish state, reps, per-step scores, EMOM marks, scaling."),
	mcp.WithNumber("class_id", mcp.Required(), mcp.Description("Class id")),
	mcp.WithNumber("user_id", mcp.Required(), mcp.Description("Participant user id")),
)

// --- Resource definitions ---

var resLiveClasses = mcp.NewResource(
	"classpulse://live_classes",
	"Live classes",
	mcp.WithResourceDescription("Classes with a running or paused session, with elapsed and remaining seconds"),
	mcp.WithMIMEType("application/json"),
)

func (h *handlers) liveClasses(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	list, err := h.ds.ListLiveClasses(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
