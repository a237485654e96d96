package build

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/pelletier/go-toml/v2"
)

// Receipt is the durable record of one dispatch, written into the
// receipts directory after a successful run.
type Receipt struct {
	Selector  string            `toml:"selector"`
	Image     string            `toml:"image"`
	ImageID   string            `toml:"image_id,omitempty"`
	BaseImage string            `toml:"base_image"`
	Revision  string            `toml:"revision,omitempty"`
	CreatedAt time.Time         `toml:"created_at"`
	Seconds   float64           `toml:"duration_seconds"`
	Stages    []StageTiming     `toml:"stages,omitempty"`
	Artifacts []ReceiptArtifact `toml:"artifacts,omitempty"`
}

// StageTiming is one pipeline stage in the receipt.
type StageTiming struct {
	Name    string  `toml:"name"`
	Status  string  `toml:"status"`
	Seconds float64 `toml:"seconds"`
}

// ReceiptArtifact is one extracted file in the receipt.
type ReceiptArtifact struct {
	Name   string `toml:"name"`
	Size   int64  `toml:"size_bytes"`
	Blake3 string `toml:"blake3"`
}

// NewReceipt assembles a receipt from a finished run.
func NewReceipt(result *BuildResult, imageTag, imageID, baseImage, revision string) Receipt {
	r := Receipt{
		Selector:  result.Selector,
		Image:     imageTag,
		ImageID:   imageID,
		BaseImage: baseImage,
		Revision:  revision,
		CreatedAt: time.Now().UTC(),
		Seconds:   result.Duration.Seconds(),
	}
	for _, s := range result.Steps {
		r.Stages = append(r.Stages, StageTiming{
			Name:    s.Name,
			Status:  s.Status,
			Seconds: s.Duration.Seconds(),
		})
		for _, a := range s.Artifacts {
			r.Artifacts = append(r.Artifacts, ReceiptArtifact{
				Name:   a.Name,
				Size:   a.Size,
				Blake3: a.Digest,
			})
		}
	}
	return r
}

// WriteReceipt marshals the receipt and writes it atomically, so a
// crashed run never leaves a half-written file behind.
func WriteReceipt(dir string, r Receipt) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("preparing receipt dir: %w", err)
	}

	data, err := toml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encoding receipt: %w", err)
	}

	path := filepath.Join(dir, r.Selector+".toml")
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing receipt: %w", err)
	}
	return path, nil
}

// ReadReceipt loads a previously written receipt.
func ReadReceipt(path string) (Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Receipt{}, err
	}
	var r Receipt
	if err := toml.Unmarshal(data, &r); err != nil {
		return Receipt{}, fmt.Errorf("decoding receipt %s: %w", filepath.Base(path), err)
	}
	return r, nil
}
