// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes morphovis tools for LLM integration via stdio transport.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/morphovis/internal/apperr"
	"github.com/starford/morphovis/internal/morphservice"
	"github.com/starford/morphovis/internal/skeleton"
)

const formatResourceURI = "morphovis://swc-format"

// Server wraps the MCP server with morphovis tools.
type Server struct {
	mcp *server.MCPServer
	svc *morphservice.Service
}

// New creates a new MCP server with all morphovis tools registered.
func New(svc *morphservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"morphovis",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_kernels",
		mcp.WithDescription("List every analysis kernel with its variable name, unit and description."),
	), s.listKernels)

	s.mcp.AddTool(mcp.NewTool("list_morphologies",
		mcp.WithDescription("List indexed morphologies with their arbor counts."),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
		mcp.WithString("sort", mcp.Description("Sort key"), mcp.Enum("path", "label", "samples", "analyzed")),
	), s.listMorphologies)

	s.mcp.AddTool(mcp.NewTool("read_morphology",
		mcp.WithDescription("Read the analysis report of a stored SWC file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the file (e.g. mouse/cell.swc)")),
	), s.readMorphology)

	s.mcp.AddTool(mcp.NewTool("create_morphology",
		mcp.WithDescription("Store a new SWC file at the specified path. "+
			"Content MUST follow the SWC contract. Read it first via the get_swc_contract "+
			"tool or the "+formatResourceURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new file (must end with .swc)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("SWC content")),
	), s.createMorphology)

	s.mcp.AddTool(mcp.NewTool("import_morphology",
		mcp.WithDescription("Download an SWC file from an http(s) URL or a base64 data URI and store it in the library."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:text/plain;base64,... URI")),
		mcp.WithString("filename", mcp.Description("Target file name (defaults to the URL file name)")),
		mcp.WithString("dir", mcp.Description("Target directory inside the library")),
	), s.importMorphology)

	s.mcp.AddTool(mcp.NewTool("analyze_morphology",
		mcp.WithDescription("Run every kernel on raw SWC content without storing it."),
		mcp.WithString("content", mcp.Required(), mcp.Description("SWC content")),
		mcp.WithString("label", mcp.Description("Label shown in the report")),
	), s.analyzeMorphology)

	s.mcp.AddTool(mcp.NewTool("run_kernel",
		mcp.WithDescription("Evaluate one kernel on a stored SWC file, including its per-arbor values."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the file")),
		mcp.WithString("variable", mcp.Required(), mcp.Description("Kernel variable name (see list_kernels)")),
	), s.runKernel)

	s.mcp.AddTool(mcp.NewTool("get_distribution",
		mcp.WithDescription("Per-segment, per-section or per-sample values of a stored SWC file, "+
			"each annotated with its branching order and distance from the origin."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the file")),
		mcp.WithString("variable", mcp.Required(), mcp.Description("Distribution variable"),
			mcp.Enum("SegmentLength", "SectionLength", "SampleRadius")),
	), s.getDistribution)

	s.mcp.AddTool(mcp.NewTool("rank_morphologies",
		mcp.WithDescription("Rank indexed morphologies by a kernel value."),
		mcp.WithString("variable", mcp.Required(), mcp.Description("Kernel variable name")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 10)")),
		mcp.WithString("order", mcp.Description("Sort order"), mcp.Enum("desc", "asc")),
	), s.rankMorphologies)

	s.mcp.AddTool(mcp.NewTool("build_skeleton",
		mcp.WithDescription("Reconstruct the polyline skeleton of a stored SWC file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the file")),
		mcp.WithString("mode", mcp.Description("Object grouping"), mcp.Enum("single", "per-arbor")),
		mcp.WithString("format", mcp.Description("Output format"), mcp.Enum("json", "obj")),
	), s.buildSkeleton)

	s.mcp.AddTool(mcp.NewTool("get_swc_contract",
		mcp.WithDescription("Returns the SWC format contract accepted by morphovis. "+
			"Call this before creating or importing files."),
	), s.getSWCContract)

	// Resource: SWC format contract.
	s.mcp.AddResource(
		mcp.NewResource(formatResourceURI, "SWC Format Contract",
			mcp.WithResourceDescription("SWC format that every stored morphology must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSWCFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError turns a service error into a tool error result.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found: " + err.Error())
	case errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError("already exists: " + err.Error())
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listKernels(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Kernels(ctx)), nil
}

func (s *Server) listMorphologies(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.List(ctx, req.GetInt("limit", 0), req.GetInt("offset", 0), req.GetString("sort", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"morphologies": items, "total": total}), nil
}

func (s *Server) readMorphology(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.Get(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "path: %s\nchecksum: %s\nsamples: %d\narbors: %d apical, %d axons, %d basal\nsoma: %t\n\n",
		detail.Path, detail.Checksum, detail.Samples, detail.Apical, detail.Axons, detail.Basal, detail.HasSoma)
	b.WriteString(detail.Report.String())
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) createMorphology(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.Create(ctx, path, []byte(content))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%d samples)", detail.Path, detail.Samples)), nil
}

func (s *Server) analyzeMorphology(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rep, err := s.svc.Analyze(ctx, req.GetString("label", ""), []byte(content))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(rep.String()), nil
}

func (s *Server) runKernel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	variable, err := req.RequireString("variable")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.RunKernel(ctx, path, variable)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) getDistribution(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	variable, err := req.RequireString("variable")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Distribution(ctx, path, variable)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) rankMorphologies(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	variable, err := req.RequireString("variable")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ascending := strings.EqualFold(req.GetString("order", "desc"), "asc")
	ranked, err := s.svc.Rank(ctx, variable, req.GetInt("limit", 0), ascending)
	if err != nil {
		return toolError(err), nil
	}
	if len(ranked) == 0 {
		return mcp.NewToolResultText("no indexed morphologies"), nil
	}
	var b strings.Builder
	for i, r := range ranked {
		fmt.Fprintf(&b, "%d. %s (%s): %g\n", i+1, r.Label, r.Path, r.Value)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) buildSkeleton(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode := skeleton.ParseMode(req.GetString("mode", ""))
	objects, err := s.svc.Build(ctx, path, mode)
	if err != nil {
		return toolError(err), nil
	}
	if strings.EqualFold(req.GetString("format", "json"), "obj") {
		var buf bytes.Buffer
		if err := skeleton.WriteOBJ(&buf, objects); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(buf.String()), nil
	}
	return jsonResult(map[string]any{"path": path, "mode": mode.String(), "objects": objects}), nil
}

func (s *Server) getSWCContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SWCFormatContract), nil
}

func (s *Server) readSWCFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatResourceURI,
			MIMEType: "text/markdown",
			Text:     SWCFormatContract,
		},
	}, nil
}
