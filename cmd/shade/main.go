package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image/png"
	"os"
	"os/signal"

	"GopherShade/internal/logger"
	"GopherShade/internal/raster"
	"GopherShade/internal/scene"

	"go.uber.org/zap"
)

type config struct {
	scenePath    string
	outPath      string
	uniformsPath string
	savePath     string
	exportFolder string
	exportDir    string
	width        int
	height       int
	time         float64
	selected     string
	workers      int
	orbitMarker  bool
	debug        bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.scenePath, "scene", "", "scene file (.json, .yaml); the built-in scene when empty")
	flag.StringVar(&cfg.outPath, "out", "frame.png", "output PNG")
	flag.StringVar(&cfg.uniformsPath, "uniforms", "", "also write the per-object uniform blocks as JSON")
	flag.StringVar(&cfg.savePath, "save", "", "also write the scene back out (.json, .yaml)")
	flag.StringVar(&cfg.exportFolder, "export-folder", "", "also export the named folder as OBJ")
	flag.StringVar(&cfg.exportDir, "export-dir", "exports", "directory for -export-folder")
	flag.IntVar(&cfg.width, "width", 800, "image width")
	flag.IntVar(&cfg.height, "height", 600, "image height")
	flag.Float64Var(&cfg.time, "time", 0, "scene time in seconds, moves the orbiting light")
	flag.StringVar(&cfg.selected, "select", "", "outline the named object")
	flag.IntVar(&cfg.workers, "workers", 0, "raster workers, 0 for one per CPU")
	flag.BoolVar(&cfg.orbitMarker, "orbit-marker", true, "draw a marker at the orbiting light")
	flag.BoolVar(&cfg.debug, "debug", false, "debug logging")
	flag.Parse()

	logger.InitWithConfig(cfg.debug)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Log.Error("Render failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	if cfg.width <= 0 || cfg.height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", cfg.width, cfg.height)
	}

	s, err := loadScene(cfg)
	if err != nil {
		return err
	}
	if cfg.selected != "" {
		if err := s.Select(cfg.selected); err != nil {
			return err
		}
	}

	fb := raster.NewFramebuffer(cfg.width, cfg.height)
	r := raster.New(fb, raster.Options{
		Workers:       cfg.workers,
		CullBackFaces: s.Rendering.FaceCulling,
		DepthTest:     s.Rendering.DepthTest,
		Wireframe:     s.Rendering.Wireframe,
	})
	defer r.Close()

	err = s.Render(ctx, r, scene.RenderOptions{
		Time:          float32(cfg.time),
		Highlight:     true,
		ShowOrbitLamp: cfg.orbitMarker,
	})
	if err != nil {
		return err
	}

	if err := writePNG(cfg.outPath, fb); err != nil {
		return err
	}
	logger.Log.Info("Frame written",
		zap.String("path", cfg.outPath),
		zap.Int("width", cfg.width),
		zap.Int("height", cfg.height),
		zap.Int("objects", len(s.Objects)))

	if cfg.uniformsPath != "" {
		if err := writeUniforms(cfg.uniformsPath, s, float32(cfg.time)); err != nil {
			return err
		}
	}
	if cfg.savePath != "" {
		if err := s.Save(cfg.savePath); err != nil {
			return err
		}
	}
	if cfg.exportFolder != "" {
		if _, err := s.ExportFolder(cfg.exportFolder, cfg.exportDir); err != nil {
			return err
		}
	}
	return nil
}

func loadScene(cfg config) (*scene.Scene, error) {
	if cfg.scenePath == "" {
		logger.Log.Info("No scene file given, using the built-in scene")
		return scene.Default(cfg.width, cfg.height), nil
	}
	return scene.Load(cfg.scenePath, cfg.width, cfg.height)
}

func writePNG(path string, fb *raster.Framebuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, fb.Image()); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func writeUniforms(path string, s *scene.Scene, t float32) error {
	data, err := json.MarshalIndent(s.UniformBlocks(t), "", "  ")
	if err != nil {
		return fmt.Errorf("encode uniforms: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
