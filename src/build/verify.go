package build

import (
	"archive/tar"
	"archive/zip"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/zeebo/blake3"
)

// Artifact is one extracted build product, fingerprinted for the
// receipt and the run summary.
type Artifact struct {
	Name    string
	Path    string
	Size    int64
	Digest  string // blake3, hex
	Entries int    // archive members, 0 for non-archives
}

// VerifyArtifacts opens every extracted file and fingerprints it.
// Compressed tars are walked to the end so a truncated copy fails
// here instead of on the machine that downloads it; wheels are opened
// as the zip archives they are.
func VerifyArtifacts(paths []string) (*StepResult, []Artifact, error) {
	start := time.Now()
	result := &StepResult{
		Name: "verify",
	}

	artifacts := make([]Artifact, 0, len(paths))
	for _, p := range paths {
		a, err := verifyOne(p)
		if err != nil {
			result.Status = StatusFailed
			result.Duration = time.Since(start)
			result.Error = err
			return result, nil, err
		}
		artifacts = append(artifacts, a)
	}

	result.Status = StatusSuccess
	result.Duration = time.Since(start)
	result.Artifacts = artifacts
	return result, artifacts, nil
}

func verifyOne(path string) (Artifact, error) {
	name := filepath.Base(path)

	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("verifying %s: %w", name, err)
	}

	sum, err := digestFile(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("verifying %s: %w", name, err)
	}

	a := Artifact{
		Name:   name,
		Path:   path,
		Size:   info.Size(),
		Digest: sum,
	}

	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		a.Entries, err = tarGzEntries(path)
	case strings.HasSuffix(name, ".whl"), strings.HasSuffix(name, ".zip"):
		a.Entries, err = zipEntries(path)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("verifying %s: %w", name, err)
	}

	return a, nil
}

func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// tarGzEntries decompresses the whole archive, counting members. The
// gzip checksum is only validated once the stream is fully read, so
// every entry body is drained.
func tarGzEntries(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("not a gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	entries := 0
	for {
		_, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("corrupt tar after %d entries: %w", entries, err)
		}
		if _, err := io.Copy(io.Discard, tr); err != nil {
			return 0, fmt.Errorf("corrupt tar entry %d: %w", entries, err)
		}
		entries++
	}
	return entries, nil
}

func zipEntries(path string) (int, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return 0, fmt.Errorf("not a zip archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			return 0, fmt.Errorf("opening member %s: %w", f.Name, err)
		}
		_, err = io.Copy(io.Discard, rc)
		rc.Close()
		if err != nil {
			return 0, fmt.Errorf("corrupt member %s: %w", f.Name, err)
		}
	}
	return len(r.File), nil
}
