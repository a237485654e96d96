package build

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/opencontainers/go-digest"
)

// MinClientVersion is the oldest docker client known to handle the
// family Dockerfiles (BuildKit syntax, --platform on build).
var MinClientVersion = semver.MustParse("19.3.0")

// Docker wraps invocations of the container build binary.
type Docker struct {
	Binary    string // "docker" unless overridden in config
	Progress  string // --progress value, "" or "auto" means default
	ForcePull bool   // always refresh base images
	Verbose   bool
	Stdout    io.Writer
	Stderr    io.Writer
}

// New creates a Docker runner with default output writers.
func New(binary string, verbose bool) *Docker {
	return &Docker{
		Binary:  binary,
		Verbose: verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Build executes a single image build.
func (d *Docker) Build(ctx context.Context, job Job) (*StepResult, error) {
	start := time.Now()
	result := &StepResult{
		Name: "build",
	}

	args := d.buildArgs(job)

	if d.Verbose {
		fmt.Fprintf(d.Stderr, "exec: %s %s\n", d.Binary, strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, d.Binary, args...)
	cmd.Stdout = d.Stdout
	cmd.Stderr = d.Stderr

	if err := cmd.Run(); err != nil {
		result.Status = StatusFailed
		result.Duration = time.Since(start)
		result.Error = fmt.Errorf("%s build of %s failed: %w", d.Binary, job.Tag, err)
		return result, result.Error
	}

	result.Status = StatusSuccess
	result.Duration = time.Since(start)
	result.Images = []string{job.Tag}

	return result, nil
}

// BuildCommand returns the full command line Build would run. Used by
// dry runs and by the verbose trace.
func (d *Docker) BuildCommand(job Job) []string {
	return append([]string{d.Binary}, d.buildArgs(job)...)
}

// buildArgs constructs the build argument list. Build args are passed
// in sorted order so the command line is reproducible run to run.
func (d *Docker) buildArgs(job Job) []string {
	args := []string{"build", "--file", job.Dockerfile}

	if job.Platform != "" {
		args = append(args, "--platform", job.Platform)
	}

	if d.Progress != "" && d.Progress != "auto" {
		args = append(args, "--progress", d.Progress)
	}

	if d.ForcePull {
		args = append(args, "--pull")
	}

	keys := make([]string, 0, len(job.BuildArgs))
	for k := range job.BuildArgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--build-arg", fmt.Sprintf("%s=%s", k, job.BuildArgs[k]))
	}

	args = append(args, "--tag", job.Tag)
	args = append(args, job.Context)

	return args
}

// RunSpec describes a container run with a single host bind mount.
type RunSpec struct {
	Image     string
	HostDir   string
	MountPath string
	Script    string
}

// Run executes a one-shot container with the given mount and script.
func (d *Docker) Run(ctx context.Context, spec RunSpec) error {
	args := d.runArgs(spec)

	if d.Verbose {
		fmt.Fprintf(d.Stderr, "exec: %s %s\n", d.Binary, strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, d.Binary, args...)
	cmd.Stdout = d.Stdout
	cmd.Stderr = d.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s run of %s failed: %w", d.Binary, spec.Image, err)
	}
	return nil
}

// RunCommand returns the full command line Run would execute.
func (d *Docker) RunCommand(spec RunSpec) []string {
	return append([]string{d.Binary}, d.runArgs(spec)...)
}

func (d *Docker) runArgs(spec RunSpec) []string {
	return []string{
		"run", "--rm",
		"-v", spec.HostDir + ":" + spec.MountPath,
		spec.Image,
		"bash", "-c", spec.Script,
	}
}

// Pull fetches an image into the local daemon.
func (d *Docker) Pull(ctx context.Context, image string) error {
	cmd := exec.CommandContext(ctx, d.Binary, "pull", image)

	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if d.Verbose {
		cmd.Stdout = d.Stdout
		cmd.Stderr = d.Stderr
	}

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("pulling %s: %w: %s", image, err, msg)
		}
		return fmt.Errorf("pulling %s: %w", image, err)
	}
	return nil
}

// ImageID returns the content digest of a locally built image.
func (d *Docker) ImageID(ctx context.Context, tag string) (digest.Digest, error) {
	out, err := exec.CommandContext(ctx, d.Binary, "image", "inspect", "--format", "{{.Id}}", tag).Output()
	if err != nil {
		return "", fmt.Errorf("inspecting %s: %w", tag, err)
	}
	id, err := digest.Parse(strings.TrimSpace(string(out)))
	if err != nil {
		return "", fmt.Errorf("parsing image id of %s: %w", tag, err)
	}
	return id, nil
}

// ClientVersion queries the build binary for its client version.
func (d *Docker) ClientVersion(ctx context.Context) (*semver.Version, error) {
	out, err := exec.CommandContext(ctx, d.Binary, "version", "--format", "{{.Client.Version}}").Output()
	if err != nil {
		return nil, fmt.Errorf("querying %s client version: %w", d.Binary, err)
	}
	v, err := semver.NewVersion(strings.TrimSpace(string(out)))
	if err != nil {
		return nil, fmt.Errorf("parsing %s client version: %w", d.Binary, err)
	}
	return v, nil
}

// ClientWarning returns a warning line when the client predates
// MinClientVersion, and "" when the client is fine or its version
// cannot be determined. An unreachable daemon surfaces later with a
// better error, so this never blocks the run.
func (d *Docker) ClientWarning(ctx context.Context) string {
	v, err := d.ClientVersion(ctx)
	if err != nil {
		return ""
	}
	if v.LessThan(MinClientVersion) {
		return fmt.Sprintf("%s client %s predates BuildKit support (want >= %s)", d.Binary, v, MinClientVersion)
	}
	return ""
}
