// Package matrix defines the build variant catalog: the mapping from
// selector strings (cpu-shared-ml-release, openblas-amd64-py38-dev, ...)
// to fully-populated container build configurations.
package matrix

import "strings"

// Family identifies which Dockerfile and build-argument set a variant uses.
type Family string

const (
	FamilyOpenBLAS Family = "openblas" // OpenBLAS Python wheel builds
	FamilyWheel    Family = "wheel"    // CUDA Python wheel builds
	FamilyCI       Family = "ci"       // CI library images
)

// Linkage selects how the native library is linked in CI builds.
type Linkage string

const (
	LinkageShared Linkage = "shared"
	LinkageStatic Linkage = "static"
)

// PythonVersion is an interpreter version the wheel families build for.
type PythonVersion string

const (
	Python36 PythonVersion = "3.6"
	Python37 PythonVersion = "3.7"
	Python38 PythonVersion = "3.8"
	Python39 PythonVersion = "3.9"
)

// Token returns the selector token form: py38 for 3.8.
func (p PythonVersion) Token() string {
	return "py" + strings.ReplaceAll(string(p), ".", "")
}

// Platform is a build platform for OpenBLAS wheel variants, in the
// form docker expects for --platform.
type Platform string

const (
	PlatformAMD64 Platform = "linux/amd64"
	PlatformARM64 Platform = "linux/arm64"
)

// Token returns the selector token form: amd64 for linux/amd64.
func (p Platform) Token() string {
	return strings.TrimPrefix(string(p), "linux/")
}

// Variant is one fully-resolved build configuration. Records are
// immutable values: resolution hands out copies and nothing mutates
// them afterwards. Platform and Python are set for the wheel-producing
// families, CMakeVersion only for the wheel family, and the toggle
// block only for the ci family.
type Variant struct {
	Selector       string
	Family         Family
	DockerTag      string
	BaseImage      string
	DeveloperBuild bool
	CcacheTarName  string

	Platform Platform
	Python   PythonVersion

	CMakeVersion string

	Linkage       Linkage
	CUDA          bool
	TensorFlowOps bool
	PyTorchOps    bool
	SYCL          bool
	Package       bool
}

// Dockerfile returns the family's Dockerfile name under docker/.
func (v Variant) Dockerfile() string {
	switch v.Family {
	case FamilyOpenBLAS:
		return "Dockerfile.openblas"
	case FamilyWheel:
		return "Dockerfile.wheel"
	default:
		return "Dockerfile.ci"
	}
}

// BuildArgs returns the named build arguments passed to docker build.
// The argument set is fixed per family.
func (v Variant) BuildArgs() map[string]string {
	args := map[string]string{
		"BASE_IMAGE":      v.BaseImage,
		"DEVELOPER_BUILD": onOff(v.DeveloperBuild),
		"CCACHE_TAR_NAME": v.CcacheTarName,
	}
	switch v.Family {
	case FamilyOpenBLAS:
		args["PYTHON_VERSION"] = string(v.Python)
	case FamilyWheel:
		args["PYTHON_VERSION"] = string(v.Python)
		args["CMAKE_VERSION"] = v.CMakeVersion
	case FamilyCI:
		args["BUILD_SHARED_LIBS"] = onOff(v.Linkage == LinkageShared)
		args["BUILD_CUDA_MODULE"] = onOff(v.CUDA)
		args["BUILD_TENSORFLOW_OPS"] = onOff(v.TensorFlowOps)
		args["BUILD_PYTORCH_OPS"] = onOff(v.PyTorchOps)
		args["BUILD_SYCL_MODULE"] = onOff(v.SYCL)
		args["PACKAGE"] = onOff(v.Package)
	}
	return args
}

// ArtifactPatterns returns the in-container glob patterns extracted
// onto the host after a successful build. Wheel-producing families
// export the wheel plus the ccache archive; ci images export the
// ccache archive plus the devel package when Package is set.
func (v Variant) ArtifactPatterns() []string {
	switch v.Family {
	case FamilyOpenBLAS, FamilyWheel:
		return []string{"/voxelkit*.whl", "/voxelkit-ci-*.tar.gz"}
	default:
		patterns := []string{"/voxelkit-ci-*.tar.gz"}
		if v.Package {
			patterns = append(patterns, "/voxelkit-devel-*.tar.gz")
		}
		return patterns
	}
}

// Release reports whether this is a release (non-developer) build.
func (v Variant) Release() bool {
	return !v.DeveloperBuild
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
