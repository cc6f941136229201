package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/menta2k/snapcrop"
	"github.com/menta2k/snapcrop/internal/config"
	"github.com/menta2k/snapcrop/pkg/client"
	"github.com/menta2k/snapcrop/pkg/cropper"
	"github.com/menta2k/snapcrop/pkg/history"
	"github.com/menta2k/snapcrop/pkg/llamacpp"
	"github.com/menta2k/snapcrop/pkg/ollama"
	"github.com/menta2k/snapcrop/pkg/overlay"
	"github.com/menta2k/snapcrop/pkg/suggest"
	"github.com/menta2k/snapcrop/pkg/types"
	"github.com/menta2k/snapcrop/pkg/vision"
)

func main() {
	var in, view, sel, configPath, preview, example string
	var backend, model, url string
	var outDir, ext, historyDir string
	var quality int
	var lossless, noHistory, strict, verbose bool

	flag.StringVar(&in, "in", "", "input image path or URL (jpg/png/webp)")
	flag.StringVar(&view, "view", "1080x1920", "preview container size WxH the selection is drawn in")
	flag.StringVar(&sel, "sel", "", "selection l,t,r,b in view coordinates (default: centered seed)")
	flag.StringVar(&configPath, "config", "", "config file (default: "+config.GetConfigPath()+" when present)")
	flag.StringVar(&preview, "preview", "", "also write the overlay preview to this path")
	flag.StringVar(&example, "example", "", "example text stored with the history entry")

	flag.StringVar(&backend, "suggest", "", "seed the selection from a subject: none|local|ollama|llamacpp")
	flag.StringVar(&model, "model", "", "vision model name")
	flag.StringVar(&url, "url", "", "model server URL (defaults: ollama=http://localhost:11434, llamacpp=http://localhost:8080)")

	flag.StringVar(&outDir, "out", "", "output directory for crops")
	flag.StringVar(&ext, "ext", "", "output format for crops: jpg|png|webp")
	flag.IntVar(&quality, "quality", 0, "JPEG/WebP output quality (1-100)")
	flag.BoolVar(&lossless, "lossless", false, "WebP output lossless mode")
	flag.StringVar(&historyDir, "history", "", "history directory")
	flag.BoolVar(&noHistory, "nohistory", false, "do not record the input in the history")
	flag.BoolVar(&strict, "strict", false, "fail instead of keeping the full image when the selection misses it")
	flag.BoolVar(&verbose, "v", false, "verbose logging")

	flag.Parse()
	if in == "" {
		log.Fatalf("usage: %s -in photo.jpg|URL [-view 1080x1920] [-sel l,t,r,b] [-suggest local|ollama|llamacpp] [-out dir] [-ext jpg|png|webp] [-quality 95] [-example text] [-history dir]", filepath.Base(os.Args[0]))
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["out"] {
		cfg.Output.OutputDir = outDir
	}
	if set["ext"] {
		cfg.Output.Format = ext
	}
	if set["quality"] {
		cfg.Output.Quality = quality
	}
	if set["lossless"] {
		cfg.Output.Lossless = lossless
	}
	if set["strict"] {
		cfg.Output.FallbackToFull = !strict
	}
	if set["history"] {
		cfg.History.Dir = historyDir
	}
	if set["nohistory"] {
		cfg.History.Enabled = !noHistory
	}
	if set["suggest"] {
		cfg.Suggest.Backend = backend
	}
	if set["model"] {
		cfg.Suggest.Model = model
	}
	if set["url"] {
		cfg.Suggest.URL = url
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	viewW, viewH, err := parseSize(view)
	if err != nil {
		log.Fatal(err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := []snapcrop.Option{
		snapcrop.WithLogger(logger),
		snapcrop.WithOverlayConfig(overlayConfig(cfg.Overlay)),
		snapcrop.WithCropConfig(cropper.CropConfig{FallbackToFull: cfg.Output.FallbackToFull}),
		snapcrop.WithOutput(types.OutputOptions{
			Dir:       cfg.Output.OutputDir,
			Prefix:    cfg.Output.Prefix,
			Extension: cfg.Output.Format,
			Quality:   cfg.Output.Quality,
			Lossless:  cfg.Output.Lossless,
		}),
	}
	if cfg.History.Enabled {
		opts = append(opts, snapcrop.WithHistory(history.NewStore(cfg.History.Dir, history.WithLogger(logger))))
	}
	if sg, err := newSuggester(cfg.Suggest, logger); err != nil {
		log.Fatal(err)
	} else if sg != nil {
		opts = append(opts, snapcrop.WithSuggester(sg, cfg.Suggest.MinConfidence))
	}

	session := snapcrop.New(opts...)
	if err := session.LoadSource(in); err != nil {
		log.Fatal(err)
	}
	session.Layout(viewW, viewH)

	src, _ := session.Source()
	geom := session.Geometry()
	log.Printf("source %dx%d displayed at %.1f,%.1f %.1fx%.1f (scale %.4f)",
		src.Width, src.Height, geom.OffsetX, geom.OffsetY, geom.Width, geom.Height, geom.Scale)

	if cfg.Suggest.Backend != "" && cfg.Suggest.Backend != "none" {
		subject, seeded, err := session.Suggest(context.Background())
		if err != nil {
			log.Printf("suggestion failed: %v", err)
		} else {
			log.Printf("subject=%q conf=%.2f box=%.3fx%.3f@%.3f,%.3f seeded=%v",
				subject.Label, subject.Confidence, subject.Box.W, subject.Box.H, subject.Box.X, subject.Box.Y, seeded)
		}
	}

	if sel != "" {
		r, err := parseRect(sel)
		if err != nil {
			log.Fatal(err)
		}
		session.Overlay().SetCropRect(r)
	}

	r := session.Selection()
	log.Printf("selection %.1f,%.1f-%.1f,%.1f", r.Left, r.Top, r.Right, r.Bottom)

	if preview != "" {
		if err := session.SavePreview(preview); err != nil {
			log.Printf("preview save failed: %v", err)
		} else {
			log.Printf("wrote %s", preview)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	res, ok := <-session.CropAsync(ctx)
	if !ok {
		log.Fatal("crop timed out")
	}
	if res.Err != nil {
		log.Fatalf("crop failed: %v", res.Err)
	}
	if res.Crop.Fallback {
		log.Printf("selection unusable (%v), kept the full image", res.Crop.Reason)
	}
	log.Printf("crop %v", res.Crop.Rect)
	if res.Path != "" {
		log.Printf("wrote %s", res.Path)
	}

	if cfg.History.Enabled && !strings.HasPrefix(in, "http://") && !strings.HasPrefix(in, "https://") {
		item, err := session.Record(in, example)
		if err != nil {
			log.Printf("history record failed: %v", err)
		} else {
			log.Printf("history entry %s -> %s", item.ID, item.ImagePath)
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	if def := config.GetConfigPath(); fileExists(def) {
		return config.LoadFromFile(def)
	}
	return config.Default(), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func overlayConfig(c config.OverlayConfig) overlay.Config {
	oc := overlay.DefaultConfig()
	oc.HandleRadius = c.HandleRadius
	oc.MinSize = c.MinSize
	oc.SeedRatio = c.SeedRatio
	if c.FrameWidth > 0 {
		oc.FrameWidth = c.FrameWidth
	}
	return oc
}

func newSuggester(c config.SuggestConfig, logger *slog.Logger) (suggest.Suggester, error) {
	var visionClient client.VisionClient
	var err error

	switch c.Backend {
	case "", "none":
		return nil, nil
	case "local":
		return suggest.NewLocal(vision.New()), nil
	case "ollama":
		url := c.URL
		if url == "" {
			url = "http://localhost:11434"
		}
		visionClient, err = ollama.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
	case "llamacpp":
		visionClient, err = llamacpp.NewClient(c.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown suggest backend: %s (use local, ollama or llamacpp)", c.Backend)
	}

	return suggest.NewDetector(visionClient, c.Model,
		suggest.WithLogger(logger),
		suggest.WithPayload(suggest.PayloadOptions{Format: c.SendFormat, MaxDim: c.SendSize, Quality: c.SendQuality}),
	), nil
}

// parseSize parses "WxH"
func parseSize(s string) (float64, float64, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q, want WxH", s)
	}
	width, err1 := strconv.ParseFloat(w, 64)
	height, err2 := strconv.ParseFloat(h, 64)
	if err1 != nil || err2 != nil || width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q, want positive WxH", s)
	}
	return width, height, nil
}

// parseRect parses "l,t,r,b"
func parseRect(s string) (types.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return types.Rect{}, fmt.Errorf("invalid selection %q, want l,t,r,b", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return types.Rect{}, fmt.Errorf("invalid selection %q: %w", s, err)
		}
		v[i] = f
	}
	return types.R(v[0], v[1], v[2], v[3]), nil
}
