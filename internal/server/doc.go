// Package server implements the MCP (Model Context Protocol) server for region
// detection and clustering tools.
//
// This package provides a JSON-RPC 2.0 server that exposes run-length region
// detection and 2D vector quantization through the MCP protocol.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Region Detection:
//   - region_detect: Label an image and find its regions
//   - region_at: Region containing a pixel
//   - regions_near: Regions whose center lies within a radius
//   - region_crop: Extract a region's bounding box as PNG
//   - region_colors: Mean and dominant source colors of a region
//   - region_overlay: Annotated copy of the image
//
// Clustering:
//   - vq_cluster: Cluster explicit points
//   - vq_cluster_regions: Cluster the region centers of the active detection
//
// # State
//
// region_detect makes its result the active detection. region_at,
// regions_near, region_crop, region_colors, region_overlay and
// vq_cluster_regions work on it and fail until a detection exists. The
// clustering tools remember their quantizer so that region_overlay can draw
// its centers.
//
// Decoded images and label images are cached by path for the lifetime of the
// process.
//
// # Error Handling
//
// Tool errors are returned as JSON-RPC error responses with:
//   - code: -32602 for unknown tools and invalid arguments, -32000 for
//     other tool failures, -32601 for unknown methods
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	cfg, err := config.LoadConfig(path)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := server.New(cfg)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
