// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Seedbank tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/seedbank/internal/apperr"
	"github.com/starford/seedbank/internal/models"
	"github.com/starford/seedbank/internal/seedservice"
	"github.com/starford/seedbank/internal/storage"
	"github.com/starford/seedbank/internal/suggest"
)

// Version is reported in the MCP initialize handshake.
var Version = "dev"

const (
	seedURIPrefix = "seed://"
	formatURI     = "seedbank://seed-format"
)

// Server wraps the MCP server with Seedbank tools.
type Server struct {
	mcp     *server.MCPServer
	ranker  *suggest.Ranker
	svc     *seedservice.Service
	library storage.Provider
	topN    int
	now     func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithTopN sets the suggestion count used when a call omits "top".
func WithTopN(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a new MCP server with all Seedbank tools registered.
func New(ranker *suggest.Ranker, svc *seedservice.Service, library storage.Provider, opts ...Option) *Server {
	s := &Server{
		ranker:  ranker,
		svc:     svc,
		library: library,
		topN:    suggest.DefaultTopN,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(
		"Seedbank",
		Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
	)

	s.mcp.AddTool(mcp.NewTool("suggest_seeds",
		mcp.WithDescription("Rank seeds by relevance to a set of keywords and return a Markdown report."),
		mcp.WithString("keywords", mcp.Required(),
			mcp.Description("Keywords separated by spaces or commas (e.g. \"multi-agent coordination\")")),
		mcp.WithNumber("top", mcp.Description("Maximum number of suggestions"), mcp.Min(1), mcp.Max(50)),
	), s.suggestSeeds)

	s.mcp.AddTool(mcp.NewTool("apply_seed",
		mcp.WithDescription("Load a seed, record one application, and return its application guide."),
		mcp.WithString("seed_id", mcp.Required(), mcp.Description("Seed identifier (e.g. 04_agent_connect)")),
		mcp.WithString("session_id", mcp.Description("Optional session to link the application to")),
	), s.applySeed)

	s.mcp.AddTool(mcp.NewTool("track_seed",
		mcp.WithDescription("Record whether an applied seed was helpful."),
		mcp.WithString("seed_id", mcp.Required(), mcp.Description("Seed identifier")),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session the seed was applied in")),
		mcp.WithString("verdict", mcp.Required(),
			mcp.Enum(string(models.VerdictHelpful), string(models.VerdictNotHelpful))),
	), s.trackSeed)

	s.mcp.AddTool(mcp.NewTool("list_seeds",
		mcp.WithDescription("List seeds in the library and the Trigger Index, flagging drift between them."),
	), s.listSeeds)

	s.mcp.AddTool(mcp.NewTool("usage_stats",
		mcp.WithDescription("Report usage counts, sessions, and feedback per seed."),
	), s.usageStats)

	s.mcp.AddTool(mcp.NewTool("get_seed_format",
		mcp.WithDescription("Returns the expected seed document layout."),
	), s.getSeedFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Seed Format",
			mcp.WithResourceDescription("Markdown layout seed documents follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSeedFormatResource,
	)

	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(seedURIPrefix+"{id}", "Seed",
			mcp.WithTemplateDescription("Raw Markdown of one seed document."),
			mcp.WithTemplateMIMEType("text/markdown"),
		),
		s.readSeedResource,
	)

	return s
}

// ServeStdio serves MCP on the given streams until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// NotifyLibraryChanged tells connected clients to refetch seed resources.
// Its signature matches storage.EventCallback.
func (s *Server) NotifyLibraryChanged(_, _ string) {
	s.mcp.SendNotificationToAllClients("notifications/resources/list_changed", nil)
}

// splitKeywords accepts both "a b" and "a, b".
func splitKeywords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

func (s *Server) suggestSeeds(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("keywords")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	keywords := splitKeywords(raw)
	if len(keywords) == 0 {
		return mcp.NewToolResultError("at least one keyword is required"), nil
	}

	rep := s.ranker.Report(keywords, req.GetInt("top", s.topN), s.now())
	rep.ApplyCommand = "apply_seed <seed_id> [session_id]"
	text, err := suggest.RenderReport(rep)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) applySeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("seed_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	guide, err := s.svc.Apply(ctx, id, req.GetString("session_id", ""))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(guide.Text), nil
}

func (s *Server) trackSeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("seed_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	session, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	verdict, err := req.RequireString("verdict")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	u, err := s.svc.Track(ctx, id, session, models.Verdict(verdict))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(u)
}

func (s *Server) listSeeds(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items)
}

func (s *Server) usageStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.svc.Stats(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(stats)
}

func (s *Server) getSeedFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SeedFormatContract), nil
}

func (s *Server) readSeedFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     SeedFormatContract,
		},
	}, nil
}

func (s *Server) readSeedResource(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id, ok := strings.CutPrefix(uri, seedURIPrefix)
	if !ok || id == "" {
		return nil, fmt.Errorf("unsupported resource uri: %s", uri)
	}
	seed, err := s.library.Load(id)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     string(seed.Content),
		},
	}, nil
}

// toolError turns domain failures into tool-level errors the model can read.
func toolError(err error) *mcp.CallToolResult {
	var nf *apperr.SeedNotFoundError
	if errors.As(err, &nf) {
		return mcp.NewToolResultError(fmt.Sprintf("seed not found: %s\navailable seeds: %s",
			nf.ID, strings.Join(nf.Available, ", ")))
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}
