package build

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/voxelkit/voxbuild/src/matrix"
)

// mountPath is where the host output directory appears inside the
// extraction container.
const mountPath = "/opt/mount"

// Extractor copies build products out of a built image onto the host.
type Extractor struct {
	Docker *Docker
	OutDir string // host destination, absolute
	UID    int
	GID    int
}

// NewExtractor creates an extractor that hands ownership of extracted
// files to the invoking user.
func NewExtractor(d *Docker, outDir string) *Extractor {
	return &Extractor{
		Docker: d,
		OutDir: outDir,
		UID:    os.Getuid(),
		GID:    os.Getgid(),
	}
}

// Script renders the in-container command: copy every artifact pattern
// into the mount, then chown the copies so the host user owns them.
func (e *Extractor) Script(v matrix.Variant) string {
	patterns := v.ArtifactPatterns()

	mounted := make([]string, 0, len(patterns))
	for _, p := range patterns {
		mounted = append(mounted, path.Join(mountPath, path.Base(p)))
	}

	return fmt.Sprintf("cp -v %s %s && chown %d:%d %s",
		strings.Join(patterns, " "), mountPath,
		e.UID, e.GID, strings.Join(mounted, " "))
}

// Spec returns the container run that performs the extraction.
func (e *Extractor) Spec(v matrix.Variant) RunSpec {
	return RunSpec{
		Image:     v.DockerTag,
		HostDir:   e.OutDir,
		MountPath: mountPath,
		Script:    e.Script(v),
	}
}

// Extract runs the built image with OutDir bind-mounted and returns
// the host paths of the files the container copied out.
func (e *Extractor) Extract(ctx context.Context, v matrix.Variant) (*StepResult, []string, error) {
	start := time.Now()
	result := &StepResult{
		Name: "extract",
	}

	if err := os.MkdirAll(e.OutDir, 0o755); err != nil {
		return e.fail(result, start, fmt.Errorf("preparing output dir: %w", err))
	}

	if err := e.Docker.Run(ctx, e.Spec(v)); err != nil {
		return e.fail(result, start, fmt.Errorf("extracting artifacts from %s: %w", v.DockerTag, err))
	}

	files, err := e.collect(v, start)
	if err != nil {
		return e.fail(result, start, err)
	}
	if len(files) == 0 {
		return e.fail(result, start, fmt.Errorf("no files matching %s landed in %s",
			strings.Join(v.ArtifactPatterns(), " "), e.OutDir))
	}

	result.Status = StatusSuccess
	result.Duration = time.Since(start)
	return result, files, nil
}

func (e *Extractor) fail(result *StepResult, start time.Time, err error) (*StepResult, []string, error) {
	result.Status = StatusFailed
	result.Duration = time.Since(start)
	result.Error = err
	return result, nil, err
}

// collect globs OutDir for the variant's artifact names. Only files
// written since the extraction started count, so leftovers from
// earlier runs of other variants are not picked up.
func (e *Extractor) collect(v matrix.Variant, since time.Time) ([]string, error) {
	seen := map[string]bool{}
	var files []string

	for _, p := range v.ArtifactPatterns() {
		matches, err := filepath.Glob(filepath.Join(e.OutDir, path.Base(p)))
		if err != nil {
			return nil, fmt.Errorf("globbing %s: %w", p, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			if info.ModTime().Before(since.Add(-2 * time.Second)) {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}

	sort.Strings(files)
	return files, nil
}
