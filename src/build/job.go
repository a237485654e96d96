package build

import (
	"path/filepath"

	"github.com/voxelkit/voxbuild/src/matrix"
)

// Job is one fully-described docker build: which Dockerfile, which
// context directory, which tag, and the variant's named build args.
type Job struct {
	Variant    matrix.Variant
	Dockerfile string // absolute path to the family Dockerfile
	Context    string // build context, always the repository root
	Tag        string
	Platform   string // set for cross-built variants, empty otherwise
	BuildArgs  map[string]string
}

// NewJob binds a variant to a repository checkout. The Dockerfile and
// context are derived from the checkout root, never from the working
// directory of the caller.
func NewJob(v matrix.Variant, repoRoot string) Job {
	return Job{
		Variant:    v,
		Dockerfile: filepath.Join(repoRoot, "docker", v.Dockerfile()),
		Context:    repoRoot,
		Tag:        v.DockerTag,
		Platform:   string(v.Platform),
		BuildArgs:  v.BuildArgs(),
	}
}
