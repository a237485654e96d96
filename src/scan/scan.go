// Package scan guards the build context. The family Dockerfiles copy
// parts of the checkout into images that leave the machine, so a file
// carrying credentials fails the dispatch before docker ever runs.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
	"golang.org/x/sync/semaphore"
)

// ErrSecretsFound aborts a dispatch whose context scan hit.
var ErrSecretsFound = errors.New("secrets detected in build context")

// maxScanSize skips files above 1 MiB. The rules target text; anything
// bigger in the context is an archive or build output.
const maxScanSize = 1 << 20

// Finding is one detected secret.
type Finding struct {
	Path   string // relative to the checkout root
	Line   int    // 1-indexed
	RuleID string
	Desc   string
}

// Scanner checks configured paths of a checkout for leaked credentials.
type Scanner struct {
	Root     string
	Paths    []string // relative to Root; dirs are walked
	detector *detect.Detector
}

// New builds a scanner with the default detection rules.
func New(root string, paths []string) (*Scanner, error) {
	d, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("loading secret rules: %w", err)
	}
	return &Scanner{Root: root, Paths: paths, detector: d}, nil
}

// Run scans every configured path and returns findings sorted by file
// and line. The error covers walk and read failures only; deciding
// whether findings are fatal is the caller's call.
func (s *Scanner) Run(ctx context.Context) ([]Finding, error) {
	files, err := s.collect()
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		findings []Finding
		errs     []error
		wg       sync.WaitGroup
	)
	sem := semaphore.NewWeighted(int64(runtime.NumCPU() * 2))

	for _, rel := range files {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		wg.Add(1)
		go func(rel string) {
			defer wg.Done()
			defer sem.Release(1)

			hits, err := s.scanFile(rel)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", rel, err))
				return
			}
			findings = append(findings, hits...)
		}(rel)
	}
	wg.Wait()

	if len(errs) > 0 {
		return findings, fmt.Errorf("%d files unreadable (first: %w)", len(errs), errs[0])
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Path != findings[j].Path {
			return findings[i].Path < findings[j].Path
		}
		return findings[i].Line < findings[j].Line
	})
	return findings, nil
}

func (s *Scanner) scanFile(rel string) ([]Finding, error) {
	data, err := os.ReadFile(filepath.Join(s.Root, rel))
	if err != nil {
		return nil, err
	}

	hits := s.detector.DetectBytes(data)
	if len(hits) == 0 {
		return nil, nil
	}

	findings := make([]Finding, 0, len(hits))
	for _, h := range hits {
		findings = append(findings, Finding{
			Path:   rel,
			Line:   h.StartLine + 1, // gitleaks is 0-indexed
			RuleID: h.RuleID,
			Desc:   h.Description,
		})
	}
	return findings, nil
}

// collect resolves the configured paths to scannable files. Hidden
// directories and oversized or irregular files are skipped; configured
// paths missing from the checkout are not an error, release tarballs
// omit some of them.
func (s *Scanner) collect() ([]string, error) {
	var files []string

	for _, p := range s.Paths {
		abs := filepath.Join(s.Root, p)
		info, err := os.Stat(abs)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if scannable(info) {
				files = append(files, filepath.ToSlash(p))
			}
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			base := filepath.Base(path)
			if d.IsDir() {
				if strings.HasPrefix(base, ".") && path != abs {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			if !scannable(info) {
				return nil
			}
			rel, err := filepath.Rel(s.Root, path)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func scannable(info fs.FileInfo) bool {
	return info.Size() > 0 && info.Size() <= maxScanSize
}
