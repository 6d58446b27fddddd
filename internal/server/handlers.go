package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/ironsheep/region-tools-mcp/internal/imaging"
	"github.com/ironsheep/region-tools-mcp/internal/region"
	"github.com/ironsheep/region-tools-mcp/internal/vq"
)

var (
	// ErrInvalidArguments marks tool calls whose arguments are malformed or
	// incomplete. They are reported with JSON-RPC code -32602.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrNoDetection is returned by tools that work on the active detection
	// before region_detect succeeded.
	ErrNoDetection = errors.New("no active detection, call region_detect first")
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "region_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Unknown tools and bad arguments return code -32602, all other tool
// failures -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if errors.Is(err, ErrInvalidArguments) {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}
	if err != nil {
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
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
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Region Detection
	case "region_detect":
		return s.handleRegionDetect(args)
	case "region_at":
		return s.handleRegionAt(args)
	case "regions_near":
		return s.handleRegionsNear(args)
	case "region_crop":
		return s.handleRegionCrop(args)
	case "region_colors":
		return s.handleRegionColors(args)
	case "region_overlay":
		return s.handleRegionOverlay(args)

	// Clustering
	case "vq_cluster":
		return s.handleVQCluster(args)
	case "vq_cluster_regions":
		return s.handleVQClusterRegions(args)

	default:
		return nil, fmt.Errorf("%w: unknown tool: %s", ErrInvalidArguments, name)
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

// decodeArgs unmarshals tool arguments; missing arguments decode as {}.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (a imageLoadArgs) validate() error {
	if a.Path == "" {
		return fmt.Errorf("%w: path is required", ErrInvalidArguments)
	}
	return nil
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Region Detection Handlers ===

type rectArgs struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (r rectArgs) rect() image.Rectangle {
	// image.Rect would canonicalize reversed corners; keep them so that
	// ValidateROI can reject them.
	return image.Rectangle{Min: image.Pt(r.X1, r.Y1), Max: image.Pt(r.X2, r.Y2)}
}

type regionDetectArgs struct {
	Path string `json:"path"`

	Mode          string   `json:"mode"`
	Threshold     *int     `json:"threshold"`
	Levels        int      `json:"levels"`
	SauvolaK      float64  `json:"sauvola_k"`
	SauvolaWindow int      `json:"sauvola_window"`
	Palette       []string `json:"palette"`
	Invert        bool     `json:"invert"`

	ROI     *rectArgs `json:"roi"`
	ROIName string    `json:"roi_name"`

	MinSize  *int   `json:"min_size"`
	MaxSize  *int   `json:"max_size"`
	MinValue *int32 `json:"min_value"`
	MaxValue *int32 `json:"max_value"`

	IncludeBoundary bool  `json:"include_boundary"`
	Graph           *bool `json:"graph"`
	Limit           int   `json:"limit"`
}

// labelOptions overlays the arguments on the configured label options.
func (a *regionDetectArgs) labelOptions(base imaging.LabelOptions) (imaging.LabelOptions, error) {
	opts := base
	if a.Mode != "" {
		opts.Mode = a.Mode
	}
	if a.Threshold != nil {
		if *a.Threshold < 0 || *a.Threshold > 255 {
			return opts, fmt.Errorf("%w: threshold %d out of range 0-255", ErrInvalidArguments, *a.Threshold)
		}
		opts.Threshold = uint8(*a.Threshold)
	}
	if a.Levels != 0 {
		opts.Levels = a.Levels
	}
	if a.SauvolaK != 0 {
		opts.SauvolaK = a.SauvolaK
	}
	if a.SauvolaWindow != 0 {
		opts.SauvolaWindow = a.SauvolaWindow
	}
	if len(a.Palette) > 0 {
		opts.Palette = a.Palette
	}
	opts.Invert = opts.Invert != a.Invert
	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return opts, nil
}

// constraints overlays the arguments on the configured constraints.
func (a *regionDetectArgs) constraints(base region.Constraints) (region.Constraints, error) {
	c := base
	if a.MinSize != nil {
		c.MinSize = *a.MinSize
	}
	if a.MaxSize != nil {
		c.MaxSize = *a.MaxSize
	}
	if a.MinValue != nil {
		c.MinValue = *a.MinValue
	}
	if a.MaxValue != nil {
		c.MaxValue = *a.MaxValue
	}
	if c.MinSize < 0 || c.MaxSize < c.MinSize {
		return c, fmt.Errorf("%w: size range [%d, %d]", ErrInvalidArguments, c.MinSize, c.MaxSize)
	}
	if c.MaxValue < c.MinValue {
		return c, fmt.Errorf("%w: value range [%d, %d]", ErrInvalidArguments, c.MinValue, c.MaxValue)
	}
	return c, nil
}

// roi resolves the region of interest within bounds.
func (a *regionDetectArgs) roi(bounds image.Rectangle) (image.Rectangle, error) {
	switch {
	case a.ROI != nil:
		r := a.ROI.rect()
		if err := imaging.ValidateROI(bounds, r); err != nil {
			return r, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		return r, nil
	case a.ROIName != "":
		r, err := imaging.NamedROI(bounds, a.ROIName)
		if err != nil {
			return r, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		return r, nil
	default:
		return bounds, nil
	}
}

type detectResult struct {
	Path    string          `json:"path"`
	Width   int             `json:"width"`
	Height  int             `json:"height"`
	ROI     rectResult      `json:"roi"`
	Mode    string          `json:"mode"`
	Total   int             `json:"total"`
	Count   int             `json:"count"`
	Regions []regionSummary `json:"regions"`
}

func (s *Server) handleRegionDetect(args json.RawMessage) (interface{}, error) {
	var a regionDetectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidArguments)
	}
	if a.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidArguments)
	}
	opts, err := a.labelOptions(s.cfg.Labels)
	if err != nil {
		return nil, err
	}
	c, err := a.constraints(s.cfg.Detector.Constraints)
	if err != nil {
		return nil, err
	}

	labels, err := s.cache.Labels(a.Path, opts)
	if err != nil {
		return nil, err
	}
	roi, err := a.roi(labels.Bounds())
	if err != nil {
		return nil, err
	}
	labels.SetROI(roi)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.detector.Constraints = c
	s.detector.CreateGraph = s.cfg.Detector.Graph
	if a.Graph != nil {
		s.detector.CreateGraph = *a.Graph
	}
	regions := s.detector.Detect(labels)
	s.lastPath = a.Path

	selected := regions
	if a.Limit > 0 && len(regions) > a.Limit {
		selected = append([]*region.Region(nil), regions...)
		sort.SliceStable(selected, func(i, j int) bool {
			return selected[i].Size() > selected[j].Size()
		})
		selected = selected[:a.Limit]
	}

	result := &detectResult{
		Path:    a.Path,
		Width:   labels.Width,
		Height:  labels.Height,
		ROI:     newRectResult(roi),
		Mode:    opts.Mode,
		Total:   len(s.detector.All()),
		Count:   len(regions),
		Regions: make([]regionSummary, len(selected)),
	}
	for i, r := range selected {
		result.Regions[i] = summarize(r, a.IncludeBoundary)
	}
	return result, nil
}

type regionAtArgs struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type regionAtResult struct {
	X      int                  `json:"x"`
	Y      int                  `json:"y"`
	Found  bool                 `json:"found"`
	Color  *imaging.ColorResult `json:"color,omitempty"`
	Region *regionSummary       `json:"region,omitempty"`
}

func (s *Server) handleRegionAt(args json.RawMessage) (interface{}, error) {
	var a regionAtArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastPath == "" {
		return nil, ErrNoDetection
	}

	result := &regionAtResult{X: a.X, Y: a.Y}
	r := s.detector.RegionAt(a.X, a.Y)
	if r == nil {
		return result, nil
	}
	sum := summarize(r, false)
	result.Found = true
	result.Region = &sum

	img, err := s.cache.Load(s.lastPath)
	if err != nil {
		return nil, err
	}
	if result.Color, err = imaging.SampleColor(img, a.X, a.Y); err != nil {
		return nil, err
	}
	return result, nil
}

type regionsNearArgs struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

type regionsNearResult struct {
	X       float64         `json:"x"`
	Y       float64         `json:"y"`
	Radius  float64         `json:"radius"`
	Count   int             `json:"count"`
	Regions []regionSummary `json:"regions"`
}

func (s *Server) handleRegionsNear(args json.RawMessage) (interface{}, error) {
	var a regionsNearArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Radius < 0 {
		return nil, fmt.Errorf("%w: radius must not be negative", ErrInvalidArguments)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastPath == "" {
		return nil, ErrNoDetection
	}

	found := s.detector.Near(a.X, a.Y, a.Radius)
	result := &regionsNearResult{
		X:       a.X,
		Y:       a.Y,
		Radius:  a.Radius,
		Count:   len(found),
		Regions: make([]regionSummary, len(found)),
	}
	for i, r := range found {
		sum := summarize(r, false)
		cx, cy := r.COG()
		d := round(distance(cx, cy, a.X, a.Y), 3)
		sum.Distance = &d
		result.Regions[i] = sum
	}
	return result, nil
}

type regionCropArgs struct {
	ID     int     `json:"id"`
	Margin *int    `json:"margin"`
	Scale  float64 `json:"scale"`
}

func (s *Server) handleRegionCrop(args json.RawMessage) (interface{}, error) {
	var a regionCropArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	margin := 2
	if a.Margin != nil {
		margin = *a.Margin
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	s.mu.Lock()
	r, path, err := s.regionByID(a.ID)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	img, err := s.cache.Load(path)
	if err != nil {
		return nil, err
	}
	bbox := r.BoundingBox().Add(img.Bounds().Min)
	return imaging.CropRegion(img, bbox, margin, a.Scale)
}

type regionColorsArgs struct {
	ID    int `json:"id"`
	Count int `json:"count"`
}

func (s *Server) handleRegionColors(args json.RawMessage) (interface{}, error) {
	var a regionColorsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Count == 0 {
		a.Count = 5
	}
	if a.Count < 0 {
		return nil, fmt.Errorf("%w: count must be positive", ErrInvalidArguments)
	}

	s.mu.Lock()
	r, path, err := s.regionByID(a.ID)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	img, err := s.cache.Load(path)
	if err != nil {
		return nil, err
	}
	return imaging.RegionColors(img, r, a.Count)
}

// regionByID looks up a region of the active detection. Callers hold s.mu.
func (s *Server) regionByID(id int) (*region.Region, string, error) {
	if s.lastPath == "" {
		return nil, "", ErrNoDetection
	}
	for _, r := range s.detector.All() {
		if r.ID() == id {
			return r, s.lastPath, nil
		}
	}
	return nil, "", fmt.Errorf("%w: no region with id %d", ErrInvalidArguments, id)
}

type regionOverlayArgs struct {
	Boxes       *bool  `json:"boxes"`
	COG         *bool  `json:"cog"`
	Boundary    *bool  `json:"boundary"`
	IDs         *bool  `json:"ids"`
	Fill        *int   `json:"fill"`
	Centers     *bool  `json:"centers"`
	CenterColor string `json:"center_color"`
}

func (s *Server) handleRegionOverlay(args json.RawMessage) (interface{}, error) {
	var a regionOverlayArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	opts := imaging.DefaultOverlayOptions()
	setBool(&opts.Boxes, a.Boxes)
	setBool(&opts.COG, a.COG)
	setBool(&opts.Boundary, a.Boundary)
	setBool(&opts.IDs, a.IDs)
	if a.Fill != nil {
		if *a.Fill < 0 || *a.Fill > 255 {
			return nil, fmt.Errorf("%w: fill %d out of range 0-255", ErrInvalidArguments, *a.Fill)
		}
		opts.Fill = uint8(*a.Fill)
	}
	opts.CenterColor = a.CenterColor

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastPath == "" {
		return nil, ErrNoDetection
	}

	var centers []vq.Point
	if (a.Centers == nil || *a.Centers) && s.lastVQ != nil {
		centers = s.lastVQ.Centers()
	}
	img, err := s.cache.Load(s.lastPath)
	if err != nil {
		return nil, err
	}
	return imaging.RenderOverlay(img, s.detector.Last(), centers, opts)
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// === Clustering Handlers ===

type clusterArgs struct {
	K         *int     `json:"k"`
	MaxSteps  *int     `json:"max_steps"`
	MinMeanQE *float64 `json:"min_mean_qe"`
	Init      string   `json:"init"`
	Seed      *int64   `json:"seed"`
	Online    bool     `json:"online"`
	LearnRate *float64 `json:"learn_rate"`
}

const defaultLearnRate = 0.1

// settings overlays the arguments on the configured quantizer defaults.
func (s *Server) clusterSettings(a clusterArgs) (k, maxSteps int, minQE float64, opts []vq.Option, err error) {
	k, maxSteps, minQE = s.cfg.VQ.K, s.cfg.VQ.MaxSteps, s.cfg.VQ.MinMeanQE
	if a.K != nil {
		k = *a.K
	}
	if a.MaxSteps != nil {
		maxSteps = *a.MaxSteps
	}
	if a.MinMeanQE != nil {
		minQE = *a.MinMeanQE
	}

	opts = s.cfg.VQOptions()
	if a.Init != "" {
		mode, perr := vq.ParseInitMode(a.Init)
		if perr != nil {
			return 0, 0, 0, nil, fmt.Errorf("%w: %v", ErrInvalidArguments, perr)
		}
		opts = append(opts, vq.WithInit(mode))
	}
	if a.Seed != nil {
		opts = append(opts, vq.WithSeed(*a.Seed))
	}
	return k, maxSteps, minQE, opts, nil
}

// cluster runs a quantizer over data and describes its centers. With Online
// set the centers are trained with max_steps epochs of online updates
// instead of Lloyd iterations. Quantizer precondition errors are argument
// errors.
func (s *Server) cluster(data []float64, a clusterArgs) (*vq.VQ2D, *clusterResult, error) {
	k, maxSteps, minQE, opts, err := s.clusterSettings(a)
	if err != nil {
		return nil, nil, err
	}
	q, err := vq.New(data, 2, false, opts...)
	if err != nil {
		return nil, nil, err
	}
	var centers []vq.Point
	var qe float64
	if a.Online {
		rate := defaultLearnRate
		if a.LearnRate != nil {
			rate = *a.LearnRate
		}
		centers, qe, err = q.Train(k, maxSteps, rate)
	} else {
		centers, qe, err = q.Run(k, maxSteps, minQE)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}

	counts := make([]int, len(centers))
	for i := 0; i+1 < len(data); i += 2 {
		if c, _ := q.Nearest(data[i], data[i+1]); c >= 0 {
			counts[c]++
		}
	}
	features := q.Features()

	result := &clusterResult{
		K:       k,
		Online:  a.Online,
		Points:  q.Len(),
		MeanQE:  round(qe, 4),
		Centers: make([]centerResult, len(centers)),
	}
	for i, c := range centers {
		result.Centers[i] = centerResult{
			Index:  i,
			X:      round(c.X, 3),
			Y:      round(c.Y, 3),
			Dead:   c == vq.DeadCenter,
			Points: counts[i],
			PCA:    newPCAResult(features[i]),
		}
	}
	return q, result, nil
}

type vqClusterArgs struct {
	clusterArgs
	Points []vq.Point `json:"points"`
}

func (s *Server) handleVQCluster(args json.RawMessage) (interface{}, error) {
	var a vqClusterArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Points) == 0 {
		return nil, fmt.Errorf("%w: points are required", ErrInvalidArguments)
	}

	data := make([]float64, 0, 2*len(a.Points))
	for _, p := range a.Points {
		data = append(data, p.X, p.Y)
	}
	q, result, err := s.cluster(data, a.clusterArgs)
	if err != nil {
		return nil, err
	}

	result.Assignments = make([]int, len(a.Points))
	for i, p := range a.Points {
		result.Assignments[i], _ = q.Nearest(p.X, p.Y)
	}

	s.mu.Lock()
	s.lastVQ = q
	s.mu.Unlock()
	return result, nil
}

func (s *Server) handleVQClusterRegions(args json.RawMessage) (interface{}, error) {
	var a clusterArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastPath == "" {
		return nil, ErrNoDetection
	}

	regions := s.detector.Last()
	data := make([]float64, 0, 2*len(regions))
	for _, r := range regions {
		cx, cy := r.COG()
		data = append(data, cx, cy)
	}
	q, result, err := s.cluster(data, a)
	if err != nil {
		return nil, err
	}

	result.Regions = make([]regionAssignment, len(regions))
	for i, r := range regions {
		c, _ := q.Nearest(data[2*i], data[2*i+1])
		result.Regions[i] = regionAssignment{ID: r.ID(), Cluster: c}
	}
	s.lastVQ = q
	return result, nil
}
