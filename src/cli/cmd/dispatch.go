package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/voxelkit/voxbuild/src/badge"
	"github.com/voxelkit/voxbuild/src/build"
	"github.com/voxelkit/voxbuild/src/config"
	"github.com/voxelkit/voxbuild/src/matrix"
	"github.com/voxelkit/voxbuild/src/output"
	"github.com/voxelkit/voxbuild/src/scan"
)

// loadConfig reads the checkout's .voxbuild.yml; --config overrides.
func loadConfig(root string) (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	return config.Load(filepath.Join(root, config.DefaultFile))
}

func runDispatch(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w, got %d", errArgCount, len(args))
	}

	variant, err := matrix.Resolve(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	ci := output.IsCI()
	color := output.UseColor()
	w := os.Stdout
	pipelineStart := time.Now()

	root, err := build.FindRoot(flagRepo)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	outDir := flagOutput
	if outDir == "" {
		outDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving output dir: %w", err)
		}
	}
	outDir, err = filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolving output dir: %w", err)
	}

	revision := build.HeadRevision(root)

	docker := build.New(cfg.Docker.Binary, verbose)
	docker.Progress = cfg.Docker.Progress
	docker.ForcePull = cfg.Docker.Pull

	job := build.NewJob(variant, root)
	extractor := build.NewExtractor(docker, outDir)

	// Pipeline context block
	rev := revision
	if rev == "" {
		rev = "(no git)"
	}
	output.ContextBlock(w, []output.KV{
		{Key: "selector", Value: variant.Selector},
		{Key: "image", Value: variant.DockerTag},
		{Key: "repo", Value: root},
		{Key: "revision", Value: rev},
		{Key: "output", Value: outDir},
		{Key: "base", Value: variant.BaseImage},
	})
	if ci {
		output.CIHeader(w)
	}

	if flagDryRun {
		printDryRun(w, variant, docker, extractor, job)
		return nil
	}

	result := &build.BuildResult{Selector: variant.Selector}

	// --- Secret gate ---
	scanSummary := "disabled"
	if flagSkipScan {
		scanSummary = "--skip-scan"
	}
	if cfg.Scan.Enabled && !flagSkipScan {
		output.SectionStartCollapsed(w, "vx_scan", "Scan")
		step, summary, err := runScanGate(ctx, root, cfg.Scan.Paths, w, color)
		result.Steps = append(result.Steps, *step)
		scanSummary = summary
		output.SectionEnd(w, "vx_scan")
		if err != nil {
			return err
		}
	} else {
		result.Steps = append(result.Steps, build.StepResult{Name: "scan", Status: build.StatusSkipped})
	}

	// Preflight warnings only; docker decides what is fatal.
	if warning := docker.ClientWarning(ctx); warning != "" {
		output.Warn(w, color, "%s", warning)
	}
	if warnings, err := build.Preflight(job); err == nil {
		for _, warning := range warnings {
			output.Warn(w, color, "%s", warning)
		}
	}

	// Raw tool output is captured and replayed on failure; verbose
	// streams it live instead.
	var rawBuf bytes.Buffer
	docker.Stdout = &rawBuf
	docker.Stderr = &rawBuf
	if verbose {
		docker.Stdout = os.Stdout
		docker.Stderr = os.Stderr
	}

	// --- Build ---
	output.SectionStart(w, "vx_build", "Build")
	buildStep, err := docker.Build(ctx, job)
	result.Steps = append(result.Steps, *buildStep)
	if err != nil {
		failSec := output.NewSection(w, "Build", buildStep.Duration, color)
		output.RowStatus(failSec, "status", "build failed", "failed", color)
		failSec.Close()
		replayRaw(w, ci, &rawBuf)
		output.SectionEnd(w, "vx_build")
		return err
	}

	imageID := ""
	if id, idErr := docker.ImageID(ctx, variant.DockerTag); idErr == nil {
		imageID = id.String()
	}

	buildSec := output.NewSection(w, "Build", buildStep.Duration, color)
	buildSec.Row("%-16s%s", "image", variant.DockerTag)
	if imageID != "" {
		buildSec.Row("%-16s%s", "id", shortDigest(imageID))
	}
	output.RowStatus(buildSec, "status", "image built", "success", color)
	buildSec.Close()
	output.SectionEnd(w, "vx_build")
	buildSummary := variant.DockerTag
	rawBuf.Reset()

	// --- Extract ---
	output.SectionStart(w, "vx_extract", "Extract")
	extractStep, files, err := extractor.Extract(ctx, variant)
	result.Steps = append(result.Steps, *extractStep)
	if err != nil {
		replayRaw(w, ci, &rawBuf)
		output.SectionEnd(w, "vx_extract")
		return err
	}

	extractSec := output.NewSection(w, "Extract", extractStep.Duration, color)
	for _, f := range files {
		extractSec.Row("%-50s %s", filepath.Base(f), output.StatusIcon("success", color))
	}
	extractSec.Close()
	output.SectionEnd(w, "vx_extract")
	extractSummary := fmt.Sprintf("%d file(s)", len(files))

	// --- Verify ---
	output.SectionStartCollapsed(w, "vx_verify", "Verify")
	verifyStep, artifacts, err := build.VerifyArtifacts(files)
	result.Steps = append(result.Steps, *verifyStep)
	if err != nil {
		output.SectionEnd(w, "vx_verify")
		return err
	}

	var totalSize int64
	verifySec := output.NewSection(w, "Verify", verifyStep.Duration, color)
	for _, a := range artifacts {
		totalSize += a.Size
		detail := output.Bytes(a.Size)
		if a.Entries > 0 {
			detail = fmt.Sprintf("%s, %d entries", detail, a.Entries)
		}
		verifySec.Row("%-44s %s", a.Name, detail)
		verifySec.Row("%-44s %s", "", shortDigest(a.Digest))
	}
	verifySec.Close()
	output.SectionEnd(w, "vx_verify")
	verifySummary := fmt.Sprintf("%d artifact(s), %s", len(artifacts), output.Bytes(totalSize))

	result.Duration = time.Since(pipelineStart)

	// --- Receipt ---
	receiptSummary := ""
	if cfg.Receipts.Enabled {
		receipt := build.NewReceipt(result, variant.DockerTag, imageID, variant.BaseImage, revision)
		path, err := build.WriteReceipt(filepath.Join(root, cfg.Receipts.Dir), receipt)
		if err != nil {
			output.Warn(w, color, "receipt not written: %v", err)
		} else if rel, relErr := filepath.Rel(root, path); relErr == nil {
			receiptSummary = rel
		} else {
			receiptSummary = path
		}
	}

	// --- Badge ---
	badgeSummary := ""
	if cfg.Badges.Enabled {
		if engine, err := badge.New(); err != nil {
			output.Warn(w, color, "badge engine: %v", err)
		} else {
			b := badge.Badge{Label: variant.Selector, Value: "passed", Color: badge.StatusColor("success")}
			if path, err := engine.Write(filepath.Join(root, cfg.Badges.Dir), variant.Selector, b); err != nil {
				output.Warn(w, color, "badge not written: %v", err)
			} else if rel, relErr := filepath.Rel(root, path); relErr == nil {
				badgeSummary = rel
			}
		}
	}

	// --- Summary ---
	sumSec := output.NewSection(w, "Summary", 0, color)
	scanStatus := build.StatusSkipped
	if cfg.Scan.Enabled && !flagSkipScan {
		scanStatus = build.StatusSuccess
	}
	output.SummaryRow(w, "scan", scanStatus, scanSummary, color)
	output.SummaryRow(w, "build", "success", buildSummary, color)
	output.SummaryRow(w, "extract", "success", extractSummary, color)
	output.SummaryRow(w, "verify", "success", verifySummary, color)
	if receiptSummary != "" {
		output.SummaryRow(w, "receipt", "success", receiptSummary, color)
	}
	if badgeSummary != "" {
		output.SummaryRow(w, "badge", "success", badgeSummary, color)
	}
	sumSec.Separator()
	output.SummaryTotal(w, result.Duration, "success", color)
	sumSec.Close()

	fmt.Fprintf(w, "\n    Artifacts → %s\n", outDir)
	for _, a := range artifacts {
		fmt.Fprintf(w, "    → %s (%s)\n", a.Name, output.Bytes(a.Size))
	}
	fmt.Fprintln(w)

	return nil
}

// runScanGate scans the configured context paths and fails the
// dispatch on any finding.
func runScanGate(ctx context.Context, root string, paths []string, w io.Writer, color bool) (*build.StepResult, string, error) {
	start := time.Now()
	step := &build.StepResult{Name: "scan"}

	fail := func(err error) (*build.StepResult, string, error) {
		step.Status = build.StatusFailed
		step.Duration = time.Since(start)
		step.Error = err
		return step, err.Error(), err
	}

	scanner, err := scan.New(root, paths)
	if err != nil {
		return fail(err)
	}
	findings, err := scanner.Run(ctx)
	if err != nil {
		return fail(fmt.Errorf("scanning build context: %w", err))
	}
	elapsed := time.Since(start)

	sec := output.NewSection(w, "Scan", elapsed, color)
	sec.Row("%-16s%s", "context", strings.Join(paths, ", "))
	if len(findings) == 0 {
		output.RowStatus(sec, "status", "no secrets", "success", color)
		sec.Close()
		step.Status = build.StatusSuccess
		step.Duration = elapsed
		return step, "clean", nil
	}

	for _, f := range findings {
		sec.Row("%s:%d  %s", f.Path, f.Line, f.RuleID)
	}
	output.RowStatus(sec, "status", fmt.Sprintf("%d finding(s)", len(findings)), "failed", color)
	sec.Close()

	err = fmt.Errorf("%w: %d finding(s)", scan.ErrSecretsFound, len(findings))
	step.Status = build.StatusFailed
	step.Duration = time.Since(start)
	step.Error = err
	return step, err.Error(), err
}

// replayRaw surfaces captured tool output after a failure: collapsed
// in CI logs, straight to stderr otherwise. Verbose runs already
// streamed it.
func replayRaw(w io.Writer, ci bool, buf *bytes.Buffer) {
	if verbose || buf.Len() == 0 {
		return
	}
	if ci {
		output.SectionStartCollapsed(w, "vx_raw", "Tool Output (raw)")
		fmt.Fprint(w, buf.String())
		output.SectionEnd(w, "vx_raw")
		return
	}
	fmt.Fprint(os.Stderr, buf.String())
}

func printDryRun(w io.Writer, v matrix.Variant, d *build.Docker, e *build.Extractor, job build.Job) {
	fmt.Fprintf(w, "selector:        %s\n", v.Selector)
	fmt.Fprintf(w, "family:          %s\n", v.Family)
	fmt.Fprintf(w, "dockerfile:      %s\n", job.Dockerfile)
	fmt.Fprintf(w, "image:           %s\n", v.DockerTag)
	fmt.Fprintf(w, "base:            %s\n", v.BaseImage)
	fmt.Fprintf(w, "developer_build: %v\n", v.DeveloperBuild)
	fmt.Fprintf(w, "ccache:          %s\n", v.CcacheTarName)
	if v.Platform != "" {
		fmt.Fprintf(w, "platform:        %s\n", v.Platform)
	}
	if v.Python != "" {
		fmt.Fprintf(w, "python:          %s\n", v.Python)
	}
	if v.CMakeVersion != "" {
		fmt.Fprintf(w, "cmake:           %s\n", v.CMakeVersion)
	}
	if v.Family == matrix.FamilyCI {
		fmt.Fprintf(w, "linkage:         %s\n", v.Linkage)
		fmt.Fprintf(w, "cuda:            %v\n", v.CUDA)
		fmt.Fprintf(w, "tensorflow_ops:  %v\n", v.TensorFlowOps)
		fmt.Fprintf(w, "pytorch_ops:     %v\n", v.PyTorchOps)
		fmt.Fprintf(w, "sycl:            %v\n", v.SYCL)
		fmt.Fprintf(w, "package:         %v\n", v.Package)
	}

	fmt.Fprintf(w, "\nbuild:\n  %s\n", shellJoin(d.BuildCommand(job)))
	fmt.Fprintf(w, "\nextract:\n  %s\n", shellJoin(d.RunCommand(e.Spec(v))))
}

// shellJoin renders an argv for display, quoting args with spaces.
func shellJoin(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		if strings.ContainsAny(a, " \t") {
			parts[i] = "'" + a + "'"
		} else {
			parts[i] = a
		}
	}
	return strings.Join(parts, " ")
}

func shortDigest(d string) string {
	if rest, ok := strings.CutPrefix(d, "sha256:"); ok && len(rest) >= 12 {
		return "sha256:" + rest[:12]
	}
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
