package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/banana-ripeness/internal/batch"
	"github.com/ironsheep/banana-ripeness/internal/detection"
	"github.com/ironsheep/banana-ripeness/internal/imaging"
	"github.com/ironsheep/banana-ripeness/internal/ripeness"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "banana_estimate").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// errInvalidArguments marks argument errors so they map to -32602.
var errInvalidArguments = errors.New("invalid arguments")

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, errInvalidArguments) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		s.logger.WithError(err).WithField("tool", params.Name).Warn("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "banana_estimate":
		return s.handleBananaEstimate(ctx, args)
	case "banana_annotate":
		return s.handleBananaAnnotate(ctx, args)
	case "banana_process_folder":
		return s.handleBananaProcessFolder(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing arguments", errInvalidArguments)
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArguments, err)
	}
	return nil
}

// EstimateResult is returned by banana_estimate and banana_annotate.
type EstimateResult struct {
	Detected   bool           `json:"detected"`
	Percentage float64        `json:"percentage"`
	MeanHue    float64        `json:"mean_hue"`
	Box        *detection.Box `json:"box,omitempty"`
	Confidence float64        `json:"confidence"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	OutputPath string         `json:"output_path,omitempty"`
}

func newEstimateResult(res *ripeness.Result, width, height int) *EstimateResult {
	out := &EstimateResult{Width: width, Height: height}
	if res != nil {
		box := res.Box
		out.Detected = true
		out.Percentage = res.Percentage
		out.MeanHue = res.MeanHue
		out.Box = &box
		out.Confidence = res.Confidence
	}
	return out
}

// === Ripeness Handlers ===

type bananaEstimateArgs struct {
	Path          string   `json:"path"`
	MinConfidence *float64 `json:"min_confidence,omitempty"`
}

func (s *Server) handleBananaEstimate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a bananaEstimateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("%w: path is required", errInvalidArguments)
	}

	estimator := s.estimator
	if a.MinConfidence != nil {
		if *a.MinConfidence < 0 || *a.MinConfidence > 1 {
			return nil, fmt.Errorf("%w: min_confidence must be between 0 and 1", errInvalidArguments)
		}
		estimator = ripeness.NewEstimator(s.detector,
			ripeness.WithMinConfidence(*a.MinConfidence),
			ripeness.WithClassID(s.cfg.BananaClassID),
		)
	}

	canvas, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	res, err := estimator.Estimate(ctx, canvas)
	if err != nil {
		return nil, err
	}
	return newEstimateResult(res, canvas.Bounds().Dx(), canvas.Bounds().Dy()), nil
}

type bananaAnnotateArgs struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
}

func (s *Server) handleBananaAnnotate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a bananaAnnotateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" || a.OutputPath == "" {
		return nil, fmt.Errorf("%w: path and output_path are required", errInvalidArguments)
	}
	if !imaging.IsSupported(a.OutputPath) {
		return nil, fmt.Errorf("%w: output_path must end in .png, .jpg or .jpeg", errInvalidArguments)
	}

	cached, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	// The cached canvas is shared between calls; draw on a copy.
	canvas := imaging.CloneCanvas(cached)
	res, err := s.estimator.Estimate(ctx, canvas)
	if err != nil {
		return nil, err
	}
	if res != nil {
		s.annotator.Annotate(canvas, res.Percentage, res.MeanHue, res.Box)
	}

	if err := imaging.Save(a.OutputPath, canvas, s.cfg.JPEGQuality); err != nil {
		return nil, err
	}

	out := newEstimateResult(res, canvas.Bounds().Dx(), canvas.Bounds().Dy())
	out.OutputPath = a.OutputPath
	return out, nil
}

type bananaProcessFolderArgs struct {
	InputDir        string `json:"input_dir"`
	OutputDir       string `json:"output_dir"`
	ContinueOnError bool   `json:"continue_on_error"`
}

// FolderFailure describes one failed file in a folder summary.
type FolderFailure struct {
	File    string `json:"file"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FolderResult is returned by banana_process_folder.
type FolderResult struct {
	*batch.Summary
	Failures []FolderFailure `json:"failures,omitempty"`
}

func (s *Server) handleBananaProcessFolder(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a bananaProcessFolderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.InputDir == "" || a.OutputDir == "" {
		return nil, fmt.Errorf("%w: input_dir and output_dir are required", errInvalidArguments)
	}

	cfg := s.cfg
	cfg.ContinueOnError = a.ContinueOnError

	// stdout carries the protocol, so progress lines are dropped.
	driver := batch.NewDriver(cfg, s.estimator, s.annotator, s.logger, nil)
	summary, err := driver.ProcessFolder(ctx, a.InputDir, a.OutputDir)
	if err != nil && !a.ContinueOnError {
		return nil, err
	}
	if summary == nil {
		return nil, err
	}

	out := &FolderResult{Summary: summary}
	for _, fe := range batch.AsFileErrors(err) {
		out.Failures = append(out.Failures, FolderFailure{
			File:    fe.File,
			Code:    fe.Code,
			Message: fe.Err.Error(),
		})
	}
	return out, nil
}
