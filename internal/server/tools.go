package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "banana_estimate",
			Description: "Estimate banana ripeness in an image. The image is resized to the working canvas, the most confident banana is located, and the mean hue of its box is mapped to a ripeness percentage (hue 20 = 100%, hue 65 = 0%).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to a PNG or JPEG image",
					},
					"min_confidence": map[string]interface{}{
						"type":        "number",
						"description": "Minimum detection confidence (0-1). Defaults to the server configuration (0.5).",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "banana_annotate",
			Description: "Estimate banana ripeness and write the annotated canvas (ripeness bar, hue and percentage readouts, banana box) to output_path. The format follows the output extension (.png, .jpg, .jpeg).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to a PNG or JPEG image",
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Where to write the annotated image",
					},
				},
				"required": []string{"path", "output_path"},
			},
		},
		{
			Name:        "banana_process_folder",
			Description: "Process every .png/.jpg/.jpeg file directly under input_dir and write annotated copies with the same names to output_dir. Returns a summary of the batch.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"input_dir": map[string]interface{}{
						"type":        "string",
						"description": "Folder containing the input images",
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Folder for the results (created if missing)",
					},
					"continue_on_error": map[string]interface{}{
						"type":        "boolean",
						"description": "Keep going when a file fails and report failures in the summary. Default false.",
						"default":     false,
					},
				},
				"required": []string{"input_dir", "output_dir"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
