// Package mcp expone las operaciones de RoadSphere como herramientas MCP por stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/PhelGc/roadsphere/internal/logger"
	"github.com/PhelGc/roadsphere/internal/scenario"
	"github.com/PhelGc/roadsphere/internal/scene"
	"github.com/PhelGc/roadsphere/internal/session"
)

// sessionID sesión fija que comparten todas las llamadas de un cliente stdio
const sessionID = "00000000-0000-4000-8000-000000000001"

// Tools nombres de las herramientas registradas
var Tools = []string{
	"roadsphere_analyze",
	"roadsphere_ask",
	"roadsphere_render",
	"roadsphere_apply_package",
	"roadsphere_query_data",
}

// Server servidor MCP sobre una sesión de RoadSphere
type Server struct {
	mcpServer *server.MCPServer
	session   *session.Session
	logger    *zap.Logger
}

// New crea el servidor y registra las herramientas
func New(sessions *session.Manager, version string, log *zap.Logger) *Server {
	sess, _ := sessions.Get(sessionID)

	s := &Server{
		mcpServer: server.NewMCPServer("roadsphere", version, server.WithToolCapabilities(false)),
		session:   sess,
		logger:    logger.OrNop(log),
	}
	s.registerAnalyzeTool()
	s.registerAskTool()
	s.registerRenderTool()
	s.registerApplyPackageTool()
	s.registerQueryDataTool()
	return s
}

// ServeStdio atiende peticiones por stdin/stdout hasta EOF
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerAnalyzeTool() {
	tool := mcp.NewTool("roadsphere_analyze",
		mcp.WithDescription("Analyze a road scenario. Returns problem, causes, risk score and interventions as JSON."),
		mcp.WithString("road_type", mcp.Description("Road type, e.g. urban, highway, rural")),
		mcp.WithString("issue_type", mcp.Description("Issue type, e.g. speeding, collision")),
		mcp.WithString("environment", mcp.Description("Environment, e.g. day, night, rain")),
		mcp.WithNumber("speed", mcp.Description("Speed in km/h")),
		mcp.WithNumber("traffic", mcp.Description("Traffic density from 1 to 10")),
		mcp.WithString("description", mcp.Description("Free text description of the scenario")),
	)
	s.mcpServer.AddTool(tool, s.handleAnalyze)
}

func (s *Server) registerAskTool() {
	tool := mcp.NewTool("roadsphere_ask",
		mcp.WithDescription("Ask the road safety copilot a question. Uses the last analysis as context."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question for the copilot")),
	)
	s.mcpServer.AddTool(tool, s.handleAsk)
}

func (s *Server) registerRenderTool() {
	tool := mcp.NewTool("roadsphere_render",
		mcp.WithDescription("Render the road scene as SVG with the given interventions and weather."),
		mcp.WithString("scene_type", mcp.Description("straight, curve, t-intersection or school-zone")),
		mcp.WithBoolean("rumble_strips", mcp.Description("Draw rumble strips")),
		mcp.WithBoolean("guardrail", mcp.Description("Draw guardrail")),
		mcp.WithBoolean("signage", mcp.Description("Draw signage")),
		mcp.WithBoolean("zebra_crossing", mcp.Description("Draw zebra crossing")),
		mcp.WithBoolean("lighting", mcp.Description("Draw street lighting")),
		mcp.WithString("weather", mcp.Description("none, rain, fog or snow")),
	)
	s.mcpServer.AddTool(tool, s.handleRender)
}

func (s *Server) registerApplyPackageTool() {
	tool := mcp.NewTool("roadsphere_apply_package",
		mcp.WithDescription("Enable the scene interventions recommended by the last analysis. Returns the scene config."),
	)
	s.mcpServer.AddTool(tool, s.handleApplyPackage)
}

func (s *Server) registerQueryDataTool() {
	tool := mcp.NewTool("roadsphere_query_data",
		mcp.WithDescription("Load CSV text as the knowledge base and ask a question about it."),
		mcp.WithString("csv", mcp.Required(), mcp.Description("CSV content with a header row")),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question about the data")),
	)
	s.mcpServer.AddTool(tool, s.handleQueryData)
}

func (s *Server) handleAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	form := scenario.Form{
		RoadType:       stringArg(args, "road_type"),
		IssueType:      stringArg(args, "issue_type"),
		Environment:    stringArg(args, "environment"),
		Speed:          numberArg(args, "speed"),
		TrafficDensity: numberArg(args, "traffic"),
		Description:    stringArg(args, "description"),
	}

	view, err := s.session.Scenario.Submit(ctx, form)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(view)
}

func (s *Server) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question := stringArg(req.GetArguments(), "question")
	reply, ok := s.session.Copilot.Send(ctx, question)
	if !ok {
		return mcp.NewToolResultError("question parameter is required"), nil
	}
	return mcp.NewToolResultText(reply.Text), nil
}

func (s *Server) handleRender(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	t, err := scene.ParseSceneType(stringArg(args, "scene_type"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	weather, err := scene.ParseWeather(stringArg(args, "weather"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.session.Scene.SetConfig(scene.Config{
		Type:          t,
		RumbleStrips:  boolArg(args, "rumble_strips"),
		Guardrail:     boolArg(args, "guardrail"),
		Signage:       boolArg(args, "signage"),
		ZebraCrossing: boolArg(args, "zebra_crossing"),
		Lighting:      boolArg(args, "lighting"),
	})
	return mcp.NewToolResultText(s.session.Scene.SetWeather(weather).SVG()), nil
}

func (s *Server) handleApplyPackage(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := s.session.ApplyPackage(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(cfg)
}

func (s *Server) handleQueryData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	if _, err := s.session.Knowledge.Upload("data.csv", []byte(stringArg(args, "csv"))); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, _, err := s.session.Knowledge.Build(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.session.Knowledge.Query(ctx, stringArg(args, "question"))), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("error serializando resultado: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func stringArg(args map[string]any, name string) string {
	v, _ := args[name].(string)
	return v
}

// numberArg devuelve el número como texto para que Form aplique su default
func numberArg(args map[string]any, name string) string {
	switch v := args[name].(type) {
	case float64:
		return strconv.Itoa(int(v))
	case string:
		return v
	}
	return ""
}

func boolArg(args map[string]any, name string) bool {
	v, _ := args[name].(bool)
	return v
}
