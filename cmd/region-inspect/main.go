package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log"
	"os"

	"github.com/ironsheep/region-tools-mcp/internal/config"
	"github.com/ironsheep/region-tools-mcp/internal/imaging"
	"github.com/ironsheep/region-tools-mcp/internal/region"
	"github.com/ironsheep/region-tools-mcp/internal/vq"
)

const usage = `Usage: region-inspect [-config file] [-mode m] [-roi name] [-graph] [-k n] [-overlay out.png] image

Finds the connected regions of equal label value in an image and prints
them as JSON. With -k the region centers are clustered as well.
`

type regionJSON struct {
	ID         int             `json:"id"`
	Value      int32           `json:"value"`
	Size       int             `json:"size"`
	COG        [2]float64      `json:"cog"`
	BBox       image.Rectangle `json:"bbox"`
	AtBorder   bool            `json:"at_border"`
	FormFactor float64         `json:"form_factor"`
	PCA        region.PCAInfo  `json:"pca"`
	Neighbours []int           `json:"neighbours,omitempty"`
	Parent     *int            `json:"parent,omitempty"`
	Cluster    *int            `json:"cluster,omitempty"`
}

type output struct {
	Path    string          `json:"path"`
	ROI     image.Rectangle `json:"roi"`
	Total   int             `json:"total"`
	Regions []regionJSON    `json:"regions"`
	Centers []vq.Point      `json:"centers,omitempty"`
	MeanQE  *float64        `json:"mean_qe,omitempty"`
}

func main() {
	configPath := flag.String("config", os.Getenv(config.EnvConfigPath), "YAML settings file")
	mode := flag.String("mode", "", "label mode: threshold, gray, sauvola or palette")
	threshold := flag.Int("threshold", -1, "luminance cut for threshold mode")
	invert := flag.Bool("invert", false, "invert the image before labeling")
	roiName := flag.String("roi", "full", "named region of interest")
	minSize := flag.Int("min-size", -1, "smallest accepted region")
	maxSize := flag.Int("max-size", -1, "largest accepted region")
	minValue := flag.Int("min-value", -1, "smallest accepted label value")
	maxValue := flag.Int("max-value", -1, "largest accepted label value")
	k := flag.Int("k", 0, "cluster region centers into k groups")
	seed := flag.Int64("seed", 0, "random seed for clustering")
	overlay := flag.String("overlay", "", "write an annotated PNG to this file")
	trace := flag.Bool("trace", false, "log detection timings")
	graph := flag.Bool("graph", false, "report neighbours and parents of every region")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	opts, err := labelOptions(cfg.Labels, *mode, *threshold, *invert)
	if err != nil {
		log.Fatalln(err)
	}

	c := cfg.Detector.Constraints
	if *minSize >= 0 {
		c.MinSize = *minSize
	}
	if *maxSize >= 0 {
		c.MaxSize = *maxSize
	}
	if *minValue >= 0 {
		c.MinValue = int32(*minValue)
	}
	if *maxValue >= 0 {
		c.MaxValue = int32(*maxValue)
	}

	cache := imaging.NewImageCache()
	labels, err := cache.Labels(path, opts)
	if err != nil {
		log.Fatalf("Error labeling %s: %v", path, err)
	}
	roi, err := imaging.NamedROI(labels.Bounds(), *roiName)
	if err != nil {
		log.Fatalln(err)
	}
	labels.SetROI(roi)

	d := region.NewDetector(c)
	d.Trace = *trace || cfg.Detector.Trace || cfg.Debug()
	d.CreateGraph = *graph || cfg.Detector.Graph
	regions := d.Detect(labels)

	out := output{Path: path, ROI: roi, Total: len(d.All()), Regions: make([]regionJSON, len(regions))}
	for i, r := range regions {
		cx, cy := r.COG()
		out.Regions[i] = regionJSON{
			ID:         r.ID(),
			Value:      r.Value(),
			Size:       r.Size(),
			COG:        [2]float64{cx, cy},
			BBox:       r.BoundingBox(),
			AtBorder:   r.AtBorder(),
			FormFactor: r.FormFactor(),
			PCA:        r.PCA(),
		}
		for _, n := range r.Neighbours() {
			out.Regions[i].Neighbours = append(out.Regions[i].Neighbours, n.ID())
		}
		if p := r.Parent(); p != nil {
			id := p.ID()
			out.Regions[i].Parent = &id
		}
	}

	if *k > 0 {
		data := make([]float64, 0, 2*len(regions))
		for _, r := range regions {
			cx, cy := r.COG()
			data = append(data, cx, cy)
		}
		vqOpts := cfg.VQOptions()
		if *seed != 0 {
			vqOpts = append(vqOpts, vq.WithSeed(*seed))
		}
		q, err := vq.New(data, 2, false, vqOpts...)
		if err != nil {
			log.Fatalln(err)
		}
		centers, qe, err := q.Run(*k, cfg.VQ.MaxSteps, cfg.VQ.MinMeanQE)
		if err != nil {
			log.Fatalf("Error clustering %d regions: %v", len(regions), err)
		}
		out.Centers = centers
		out.MeanQE = &qe
		for i := range out.Regions {
			cl, _ := q.Nearest(data[2*i], data[2*i+1])
			out.Regions[i].Cluster = &cl
		}
	}

	if *overlay != "" {
		img, err := cache.Load(path)
		if err != nil {
			log.Fatalln(err)
		}
		res, err := imaging.RenderOverlay(img, regions, out.Centers, imaging.DefaultOverlayOptions())
		if err != nil {
			log.Fatalf("Error rendering overlay: %v", err)
		}
		png, err := base64.StdEncoding.DecodeString(res.ImageBase64)
		if err != nil {
			log.Fatalln(err)
		}
		if err := os.WriteFile(*overlay, png, 0644); err != nil {
			log.Fatalf("Error writing overlay: %v", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalln(err)
	}
}

// loadConfig reads the settings file, if path is set, and applies the
// environment overrides.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// labelOptions overlays the label flags on the configured options. A
// negative threshold keeps the configured one.
func labelOptions(base imaging.LabelOptions, mode string, threshold int, invert bool) (imaging.LabelOptions, error) {
	opts := base
	if mode != "" {
		opts.Mode = mode
	}
	if threshold > 255 {
		return opts, fmt.Errorf("threshold %d out of range 0-255", threshold)
	}
	if threshold >= 0 {
		opts.Threshold = uint8(threshold)
	}
	opts.Invert = opts.Invert != invert
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}
