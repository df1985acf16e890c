package qrcarve

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	const data = `{
	"latitude_upper": 45,
	"latitude_lower": 20,
	"longitude": 30,
	"scale": 4,
	"border": 2,
	"pixels": [[1, 0], [0, 2]],
	"ramp_isolated": false,
	"ao_samples": 100
}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Resolve(Flags{AOSamples: 32, Seed: 7})
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.AOSamples != 32 || cfg.Seed != 7 {
		t.Errorf("flags not applied: samples %d seed %d", cfg.AOSamples, cfg.Seed)
	}
	if cfg.MaxIterations != DefaultMaxIterations || cfg.HalfAngle != DefaultHalfAngle || cfg.Zoom != DefaultZoom {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if *cfg.RampIsolated {
		t.Error("ramp_isolated false was overridden")
	}
	if l := cfg.Layout(); l.P != 2 || l.Q() != 24 {
		t.Errorf("got layout %+v with Q=%d. want P=2 Q=24", l, l.Q())
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file loaded without error")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{LatitudeUpper: 45, LatitudeLower: 95, Scale: 1, Border: 1, Pixels: [][]int{{0}}}
	cfg.Resolve(Flags{})
	if err := cfg.Validate(); !errors.Is(err, ErrInput) {
		t.Errorf("got error %v. want %v", err, ErrInput)
	}
}
