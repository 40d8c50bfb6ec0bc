package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/banshee-data/objtrack/internal/config"
	"github.com/banshee-data/objtrack/internal/httputil"
	"github.com/banshee-data/objtrack/internal/inference"
	"github.com/banshee-data/objtrack/internal/tracker"
)

const defaultConfigHint = config.DefaultConfigPath

// devDetections is what the static detector reports in dev mode: one
// standing and one lying figure in a 640x480 frame.
var devDetections = []inference.Detection{
	{Box: tracker.Box{Left: 100, Top: 80, Right: 180, Bottom: 360}, Score: 0.9, Class: "0"},
	{Box: tracker.Box{Left: 320, Top: 300, Right: 600, Bottom: 400}, Score: 0.8, Class: "0"},
}

// loadConfig reads path, or the canonical defaults file when path is empty
// and the file exists, and applies endpoint overrides from flags.
func loadConfig(path, detectorOverride, classifierOverride string) (*config.TuningConfig, error) {
	var cfg *config.TuningConfig
	switch {
	case path != "":
		c, err := config.LoadTuningConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	default:
		if _, err := os.Stat(config.DefaultConfigPath); err == nil {
			c, err := config.LoadTuningConfig(config.DefaultConfigPath)
			if err != nil {
				return nil, err
			}
			cfg = c
		} else {
			cfg = config.DefaultTuningConfig()
		}
	}

	if detectorOverride != "" {
		cfg.DetectorURL = &detectorOverride
	}
	if classifierOverride != "" {
		cfg.ClassifierURL = &classifierOverride
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newCollaborators picks detector and classifier implementations. Remote
// endpoints win when configured; dev mode fills the gaps with the static
// detector and the aspect-ratio classifier.
func newCollaborators(cfg *config.TuningConfig, dev bool) (inference.Detector, inference.Classifier, error) {
	client := httputil.NewStandardClient(cfg.GetUpstreamTimeout())

	var det inference.Detector
	switch {
	case cfg.GetDetectorURL() != "":
		det = inference.NewRemoteDetector(cfg.GetDetectorURL(), client)
	case dev:
		det = &inference.StaticDetector{Detections: devDetections}
	default:
		return nil, nil, errors.New("detector_url is required outside dev mode")
	}

	var cls inference.Classifier
	switch {
	case cfg.GetClassifierURL() != "":
		cls = inference.NewRemoteClassifier(cfg.GetClassifierURL(), client, cfg.GetClassNames(), cfg.GetClassifierInputSize())
	case dev:
		cls = inference.NewAspectClassifier(cfg.GetClassNames())
	default:
		return nil, nil, errors.New("classifier_url is required outside dev mode")
	}
	return det, cls, nil
}
