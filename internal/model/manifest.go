package model

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"lukechampine.com/blake3"
)

const checksumPrefix = "blake3:"

var (
	DefaultMean = []float32{0.485, 0.456, 0.406}
	DefaultStd  = []float32{0.229, 0.224, 0.225}
)

const (
	DefaultImageSize           = 224
	DefaultConfidenceThreshold = 80.0
	DefaultInputName           = "input"
	DefaultOutputName          = "output"
)

// LoadManifest reads the JSON file stored next to the model weights,
// fills in defaults and validates it against the shapes the server will
// allocate.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	manifest.applyDefaults()
	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	return &manifest, nil
}

func (m *Manifest) applyDefaults() {
	if m.ImageSize == 0 {
		m.ImageSize = DefaultImageSize
	}
	if m.InputName == "" {
		m.InputName = DefaultInputName
	}
	if m.OutputName == "" {
		m.OutputName = DefaultOutputName
	}
	if len(m.InputShape) == 0 {
		size := int64(m.ImageSize)
		m.InputShape = []int64{1, 3, size, size}
	}
	if len(m.OutputShape) == 0 {
		m.OutputShape = []int64{1, int64(len(m.Classes))}
	}
	if len(m.Mean) == 0 {
		m.Mean = append([]float32(nil), DefaultMean...)
	}
	if len(m.Std) == 0 {
		m.Std = append([]float32(nil), DefaultStd...)
	}
	if m.ConfidenceThreshold == 0 {
		m.ConfidenceThreshold = DefaultConfidenceThreshold
	}
}

func (m *Manifest) Validate() error {
	if len(m.Classes) == 0 {
		return fmt.Errorf("no classes defined")
	}
	seen := make(map[string]bool, len(m.Classes))
	for i, class := range m.Classes {
		if class == "" {
			return fmt.Errorf("class %d has an empty label", i)
		}
		if seen[class] {
			return fmt.Errorf("duplicate class label %q", class)
		}
		seen[class] = true
	}

	size := int64(m.ImageSize)
	if size <= 0 {
		return fmt.Errorf("image_size must be positive, got %d", m.ImageSize)
	}
	if len(m.InputShape) != 4 || m.InputShape[0] != 1 || m.InputShape[1] != 3 ||
		m.InputShape[2] != size || m.InputShape[3] != size {
		return fmt.Errorf("input_shape %v does not match [1 3 %d %d]", m.InputShape, size, size)
	}

	outputs, err := volume(m.OutputShape)
	if err != nil {
		return fmt.Errorf("output_shape: %w", err)
	}
	if outputs != int64(len(m.Classes)) {
		return fmt.Errorf("output_shape %v has %d values for %d classes", m.OutputShape, outputs, len(m.Classes))
	}

	if len(m.Mean) != 3 || len(m.Std) != 3 {
		return fmt.Errorf("mean and std need 3 channels, got %d and %d", len(m.Mean), len(m.Std))
	}
	for i, s := range m.Std {
		if s == 0 {
			return fmt.Errorf("std[%d] is zero", i)
		}
	}

	if m.ConfidenceThreshold <= 0 || m.ConfidenceThreshold > 100 {
		return fmt.Errorf("confidence_threshold must be in (0, 100], got %v", m.ConfidenceThreshold)
	}

	if m.Checksum != "" && !strings.HasPrefix(m.Checksum, checksumPrefix) {
		return fmt.Errorf("unsupported checksum %q, expected %s<hex>", m.Checksum, checksumPrefix)
	}

	return nil
}

// VerifyChecksum hashes the weights file and compares it with the manifest
// checksum. A manifest without a checksum accepts any file.
func (m *Manifest) VerifyChecksum(modelPath string) error {
	if m.Checksum == "" {
		return nil
	}

	data, err := os.ReadFile(modelPath)
	if err != nil {
		return fmt.Errorf("failed to read model: %w", err)
	}

	sum := blake3.Sum256(data)
	got := hex.EncodeToString(sum[:])
	want := strings.ToLower(strings.TrimPrefix(m.Checksum, checksumPrefix))
	if got != want {
		return fmt.Errorf("model checksum mismatch: manifest has %s, file is %s%s", m.Checksum, checksumPrefix, got)
	}

	return nil
}

func volume(shape []int64) (int64, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("empty shape")
	}
	n := int64(1)
	for _, dim := range shape {
		if dim <= 0 {
			return 0, fmt.Errorf("dimension %d in %v is not positive", dim, shape)
		}
		n *= dim
	}
	return n, nil
}
