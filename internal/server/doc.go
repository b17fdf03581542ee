// Package server implements the MCP (Model Context Protocol) server for the
// banana ripeness tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the ripeness
// pipeline to MCP-compatible clients, so an assistant can grade a photo or a
// whole folder without shelling out to the batch command.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Logs never go to stdout; the command wires the logger to stderr.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - banana_estimate: Ripeness percentage, mean hue and box for one image
//   - banana_annotate: Same as banana_estimate, and writes the annotated canvas
//   - banana_process_folder: Runs the batch driver over a folder
//
// # Canvas Caching
//
// Loaded images are resized to the configured canvas and cached by path for
// the lifetime of the process. Annotation always draws on a copy, so a cached
// canvas is never modified.
//
// # Error Handling
//
// Tool errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure), -32602 (bad arguments) or
//     -32601 (unknown method)
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(cfg, detector, logger, version)
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal(err)
//	}
package server
