// Package mcp exposes read-only live-class queries as MCP tools so a
// coach's assistant can answer "who is leading" without screen time.
package mcp

import (
	"context"

	"github.com/meltforce/classpulse/internal/engine"
	"github.com/meltforce/classpulse/internal/models"
)

// DataSource abstracts the data layer for MCP tools. Both
// *engine.Engine (local, same process as the database) and HTTPClient
// (remote via the REST API) satisfy this interface.
type DataSource interface {
	GetSession(ctx context.Context, classID int64) (*engine.SessionView, error)
	RealtimeLeaderboard(ctx context.Context, classID int64) (*engine.Leaderboard, error)
	FinalLeaderboard(ctx context.Context, classID int64) (*engine.Leaderboard, error)
	GetMyProgress(ctx context.Context, classID, userID int64) (*models.ProgressRecord, error)
	ListLiveClasses(ctx context.Context) ([]engine.LiveClassSummary, error)
}

// Compile-time check: *engine.Engine satisfies DataSource.
var _ DataSource = (*engine.Engine)(nil)
