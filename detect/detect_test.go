package detect

import (
	"testing"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = "model.onnx"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config with model path must validate: %v", err)
	}

	cfg.CameraPos = CameraBack
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Back camera must validate: %v", err)
	}

	cfg.CameraPos = "side"
	if err := cfg.Validate(); err == nil {
		t.Fatal("Expected error for unknown camera position, got nil")
	}
}

func TestConfigValidateModelPath(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("Expected error for empty model path, got nil")
	}
}

func TestConfigValidateThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = "model.onnx"
	cfg.DetectionThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("Expected error for threshold above 1, got nil")
	}
	cfg.DetectionThreshold = -0.1
	if err := cfg.Validate(); err == nil {
		t.Fatal("Expected error for negative threshold, got nil")
	}
}

func TestNewDetectorRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CameraPos = "side"
	cfg.ModelPath = "model.onnx"
	if _, err := NewDetector(cfg); err == nil {
		t.Fatal("Expected error for bad config, got nil")
	}
}
