package matrix

// Base images per family. The wheel family pins the bionic CUDA image
// so wheels stay compatible with older glibc hosts.
const (
	imageRepo = "voxelkit-ci"

	openblasBase = "ubuntu:18.04"
	cpuBase      = "ubuntu:20.04"
	syclBase     = "intel/oneapi-basekit:2022.2-devel-ubuntu20.04"
	cudaBionic   = "nvidia/cuda:11.0.3-cudnn8-devel-ubuntu18.04"
	cudaFocal    = "nvidia/cuda:11.6.2-cudnn8-devel-ubuntu20.04"
	cudaJammy    = "nvidia/cuda:11.8.0-cudnn8-devel-ubuntu22.04"

	wheelBase         = cudaBionic
	wheelCMakeVersion = "cmake-3.19.7-Linux-x86_64"
)

var (
	platforms      = []Platform{PlatformAMD64, PlatformARM64}
	pythonVersions = []PythonVersion{Python36, Python37, Python38, Python39}
)

// ciShape is one ci-family configuration. Each shape expands to a
// developer selector (the bare name) and, unless devOnly, a -release
// twin differing only in DeveloperBuild.
type ciShape struct {
	name    string
	base    string
	linkage Linkage
	cuda    bool
	tf      bool
	pytorch bool
	sycl    bool
	pkg     bool
	ccache  string
	devOnly bool
}

var ciShapes = []ciShape{
	{name: "cpu-static", base: cpuBase, linkage: LinkageStatic, pkg: true,
		ccache: "voxelkit-ci-cpu-static"},
	{name: "cpu-shared", base: cpuBase, linkage: LinkageShared,
		ccache: "voxelkit-ci-cpu-shared"},
	{name: "cpu-shared-ml", base: cpuBase, linkage: LinkageShared, tf: true, pytorch: true,
		ccache: "voxelkit-ci-cpu-shared-ml"},

	{name: "sycl-shared", base: syclBase, linkage: LinkageShared, sycl: true,
		ccache: "voxelkit-ci-sycl-shared"},
	{name: "sycl-static", base: syclBase, linkage: LinkageStatic, sycl: true,
		ccache: "voxelkit-ci-sycl-static"},

	{name: "cuda-ci-bionic", base: cudaBionic, linkage: LinkageStatic, cuda: true,
		ccache: "voxelkit-ci-cuda-bionic", devOnly: true},
	{name: "cuda-ci-shared-bionic", base: cudaBionic, linkage: LinkageShared, cuda: true,
		ccache: "voxelkit-ci-cuda-shared-bionic"},
	// Shares the shared-bionic cache name on purpose: the ML twin has
	// always warmed the same archive and splitting it would cold-start
	// every ML pipeline.
	{name: "cuda-ci-ml-shared-bionic", base: cudaBionic, linkage: LinkageShared, cuda: true, tf: true, pytorch: true,
		ccache: "voxelkit-ci-cuda-shared-bionic"},
	{name: "cuda-ci-focal", base: cudaFocal, linkage: LinkageStatic, cuda: true,
		ccache: "voxelkit-ci-cuda-focal"},
	{name: "cuda-ci-ml-focal", base: cudaFocal, linkage: LinkageStatic, cuda: true, tf: true, pytorch: true,
		ccache: "voxelkit-ci-cuda-ml-focal"},
	{name: "cuda-ci-ml-jammy", base: cudaJammy, linkage: LinkageStatic, cuda: true, tf: true, pytorch: true,
		ccache: "voxelkit-ci-cuda-ml-jammy"},
}

func openblasVariant(p Platform, py PythonVersion, dev bool) Variant {
	shape := "openblas-" + p.Token() + "-" + py.Token()
	selector := shape
	mode := "-release"
	if dev {
		selector += "-dev"
		mode = "-dev"
	}
	return Variant{
		Selector:       selector,
		Family:         FamilyOpenBLAS,
		DockerTag:      imageRepo + ":" + shape + mode,
		BaseImage:      openblasBase,
		DeveloperBuild: dev,
		CcacheTarName:  "voxelkit-ci-" + shape,
		Platform:       p,
		Python:         py,
	}
}

func wheelVariant(py PythonVersion, dev bool) Variant {
	selector := "cuda-wheel-" + py.Token()
	if dev {
		selector += "-dev"
	}
	return Variant{
		Selector:       selector,
		Family:         FamilyWheel,
		DockerTag:      imageRepo + ":wheel-" + py.Token(),
		BaseImage:      wheelBase,
		DeveloperBuild: dev,
		CcacheTarName:  "voxelkit-ci-wheel",
		Python:         py,
		CMakeVersion:   wheelCMakeVersion,
	}
}

func ciVariant(s ciShape, release bool) Variant {
	selector := s.name
	if release {
		selector += "-release"
	}
	return Variant{
		Selector:       selector,
		Family:         FamilyCI,
		DockerTag:      imageRepo + ":" + s.name,
		BaseImage:      s.base,
		DeveloperBuild: !release,
		CcacheTarName:  s.ccache,
		Linkage:        s.linkage,
		CUDA:           s.cuda,
		TensorFlowOps:  s.tf,
		PyTorchOps:     s.pytorch,
		SYCL:           s.sycl,
		Package:        s.pkg,
	}
}

// catalog holds every variant in stable order: openblas, wheel, ci.
// lookup covers the literal families (wheel, ci); openblas selectors
// resolve by token decomposition instead.
var (
	catalog []Variant
	lookup  = map[string]Variant{}
)

func init() {
	for _, p := range platforms {
		for _, py := range pythonVersions {
			catalog = append(catalog, openblasVariant(p, py, false), openblasVariant(p, py, true))
		}
	}
	for _, py := range pythonVersions {
		catalog = append(catalog, wheelVariant(py, false), wheelVariant(py, true))
	}
	for _, s := range ciShapes {
		v := ciVariant(s, false)
		catalog = append(catalog, v)
		lookup[v.Selector] = v
		if !s.devOnly {
			r := ciVariant(s, true)
			catalog = append(catalog, r)
			lookup[r.Selector] = r
		}
	}
	for _, py := range pythonVersions {
		for _, dev := range []bool{false, true} {
			v := wheelVariant(py, dev)
			lookup[v.Selector] = v
		}
	}
}

// All returns every variant in the catalog, in stable order.
func All() []Variant {
	out := make([]Variant, len(catalog))
	copy(out, catalog)
	return out
}

// Selectors returns all selector strings in catalog order.
func Selectors() []string {
	out := make([]string, len(catalog))
	for i, v := range catalog {
		out[i] = v.Selector
	}
	return out
}

// BaseImages returns the distinct base images of the given variants,
// in first-seen order.
func BaseImages(variants []Variant) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range variants {
		if !seen[v.BaseImage] {
			seen[v.BaseImage] = true
			out = append(out, v.BaseImage)
		}
	}
	return out
}
