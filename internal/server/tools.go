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
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},

		// Region Detection
		{
			Name: "region_detect",
			Description: "Segment an image into connected regions of equal label value and return their statistics " +
				"(size, center of gravity, bounding box, form factor, principal axes). The image is first converted " +
				"to labels (threshold, gray bands, adaptive sauvola binarization or nearest palette color). " +
				"The result becomes the active detection for region_at, regions_near, region_crop, region_overlay " +
				"and vq_cluster_regions.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"mode": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"threshold", "gray", "sauvola", "palette"},
						"description": "Label conversion mode. Default from configuration (threshold)",
					},
					"threshold": map[string]interface{}{
						"type":        "integer",
						"description": "Luminance cut for threshold mode (0-255). Pixels at or above become 255",
					},
					"levels": map[string]interface{}{
						"type":        "integer",
						"description": "Number of luminance bands for gray mode (2-256)",
					},
					"sauvola_k": map[string]interface{}{
						"type":        "number",
						"description": "Sensitivity of sauvola mode, typically 0.2-0.5",
					},
					"sauvola_window": map[string]interface{}{
						"type":        "integer",
						"description": "Window size in pixels of sauvola mode",
					},
					"palette": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Hex colors for palette mode; label = index of the nearest color",
					},
					"invert": map[string]interface{}{
						"type":        "boolean",
						"description": "Invert the image before conversion",
					},
					"roi": map[string]interface{}{
						"type":        "object",
						"description": "Region of interest in pixels (x2, y2 exclusive). Default: whole image",
						"properties":  rectProperties(),
						"required":    []string{"x1", "y1", "x2", "y2"},
					},
					"roi_name": map[string]interface{}{
						"type": "string",
						"enum": []string{"full", "top-left", "top-right", "bottom-left", "bottom-right",
							"top-half", "bottom-half", "left-half", "right-half", "center"},
						"description": "Named region of interest, used when roi is not given",
					},
					"min_size": map[string]interface{}{
						"type":        "integer",
						"description": "Smallest accepted region in pixels",
					},
					"max_size": map[string]interface{}{
						"type":        "integer",
						"description": "Largest accepted region in pixels",
					},
					"min_value": map[string]interface{}{
						"type":        "integer",
						"description": "Smallest accepted label value",
					},
					"max_value": map[string]interface{}{
						"type":        "integer",
						"description": "Largest accepted label value",
					},
					"include_boundary": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the thinned outer contour of every region",
						"default":     false,
					},
					"graph": map[string]interface{}{
						"type":        "boolean",
						"description": "Report neighbour, parent and sub-region ids of every region (defaults to the detector.graph setting)",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Return at most this many regions, largest first. 0 returns all",
						"default":     0,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "region_at",
			Description: "Return the region of the active detection that contains a pixel, and the source color at that pixel.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate",
					},
				},
				"required": []string{"x", "y"},
			},
		},
		{
			Name:        "regions_near",
			Description: "Find regions of the active detection whose center of gravity lies within a radius of a point, nearest first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x": map[string]interface{}{
						"type":        "number",
						"description": "X coordinate of the query point",
					},
					"y": map[string]interface{}{
						"type":        "number",
						"description": "Y coordinate of the query point",
					},
					"radius": map[string]interface{}{
						"type":        "number",
						"description": "Search radius in pixels",
					},
				},
				"required": []string{"x", "y", "radius"},
			},
		},
		{
			Name:        "region_crop",
			Description: "Crop the bounding box of a detected region, plus a margin, from the source image and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": map[string]interface{}{
						"type":        "integer",
						"description": "Region id from region_detect",
					},
					"margin": map[string]interface{}{
						"type":        "integer",
						"description": "Extra pixels around the bounding box. Default 2",
						"default":     2,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor. Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "region_colors",
			Description: "Report the mean color and the dominant colors of the source image pixels covered by a detected region.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": map[string]interface{}{
						"type":        "integer",
						"description": "Region id from region_detect",
					},
					"count": map[string]interface{}{
						"type":        "integer",
						"description": "Number of dominant colors to return. Default 5",
						"default":     5,
					},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "region_overlay",
			Description: "Draw the regions of the active detection (bounding boxes, centers, contours, ids) and the last VQ centers onto the source image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"boxes": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw bounding boxes. Default true",
						"default":     true,
					},
					"cog": map[string]interface{}{
						"type":        "boolean",
						"description": "Mark centers of gravity. Default true",
						"default":     true,
					},
					"boundary": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw traced contours. Default false",
						"default":     false,
					},
					"ids": map[string]interface{}{
						"type":        "boolean",
						"description": "Label regions with their ids. Default true",
						"default":     true,
					},
					"fill": map[string]interface{}{
						"type":        "integer",
						"description": "Fill opacity 0-255. Default 0 (no fill)",
						"default":     0,
					},
					"centers": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw the centers of the last VQ run. Default true",
						"default":     true,
					},
					"center_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex color of VQ centers. Default #FF00FF",
					},
				},
			},
		},

		// Clustering
		{
			Name:        "vq_cluster",
			Description: "Cluster 2D points with vector quantization (Lloyd iteration) and return the centers, the mean quantization error and the principal axes of every cluster.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withClusterProperties(map[string]interface{}{
					"points": map[string]interface{}{
						"type":        "array",
						"description": "Points to cluster",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x": map[string]interface{}{"type": "number"},
								"y": map[string]interface{}{"type": "number"},
							},
							"required": []string{"x", "y"},
						},
					},
				}),
				"required": []string{"points"},
			},
		},
		{
			Name:        "vq_cluster_regions",
			Description: "Cluster the centers of gravity of the regions of the active detection and report which cluster every region belongs to.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": withClusterProperties(map[string]interface{}{}),
			},
		},
	}
}

func rectProperties() map[string]interface{} {
	return map[string]interface{}{
		"x1": map[string]interface{}{"type": "integer"},
		"y1": map[string]interface{}{"type": "integer"},
		"x2": map[string]interface{}{"type": "integer"},
		"y2": map[string]interface{}{"type": "integer"},
	}
}

// withClusterProperties adds the quantizer settings shared by both clustering
// tools to props.
func withClusterProperties(props map[string]interface{}) map[string]interface{} {
	props["k"] = map[string]interface{}{
		"type":        "integer",
		"description": "Number of clusters. Default from configuration (3)",
	}
	props["max_steps"] = map[string]interface{}{
		"type":        "integer",
		"description": "Maximum number of iterations, or training epochs when online. Default from configuration (100)",
	}
	props["min_mean_qe"] = map[string]interface{}{
		"type":        "number",
		"description": "Stop once the mean squared distance to the nearest center is at most this value",
	}
	props["init"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"random", "sequential"},
		"description": "Seed centers from random points or from the first k points",
	}
	props["seed"] = map[string]interface{}{
		"type":        "integer",
		"description": "Random seed for reproducible results",
	}
	props["online"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Train the seeded centers with online updates, one point at a time, instead of Lloyd iterations",
		"default":     false,
	}
	props["learn_rate"] = map[string]interface{}{
		"type":        "number",
		"description": "Fraction of the distance a center moves towards each point when online, in (0, 1]. Default 0.1",
	}
	return props
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
