package matrix

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func mustResolve(t *testing.T, selector string) Variant {
	t.Helper()
	v, err := Resolve(selector)
	if err != nil {
		t.Fatalf("Resolve(%q): %v", selector, err)
	}
	return v
}

func TestResolve_EverySelector(t *testing.T) {
	all := All()
	if len(all) != 45 {
		t.Fatalf("catalog has %d variants, want 45", len(all))
	}

	for _, want := range all {
		got, err := Resolve(want.Selector)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", want.Selector, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Resolve(%q) = %#v, want %#v", want.Selector, got, want)
		}
	}
}

func TestResolve_Idempotent(t *testing.T) {
	for _, selector := range Selectors() {
		a := mustResolve(t, selector)
		b := mustResolve(t, selector)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("Resolve(%q) not idempotent: %#v vs %#v", selector, a, b)
		}
	}
}

func TestResolve_FieldsPopulated(t *testing.T) {
	for _, v := range All() {
		if v.Selector == "" || v.DockerTag == "" || v.BaseImage == "" || v.CcacheTarName == "" {
			t.Fatalf("%q: incomplete record %#v", v.Selector, v)
		}
		switch v.Family {
		case FamilyOpenBLAS:
			if v.Platform == "" || v.Python == "" {
				t.Fatalf("%q: openblas variant missing platform/python: %#v", v.Selector, v)
			}
		case FamilyWheel:
			if v.Python == "" || v.CMakeVersion == "" {
				t.Fatalf("%q: wheel variant missing python/cmake: %#v", v.Selector, v)
			}
		case FamilyCI:
			if v.Linkage != LinkageShared && v.Linkage != LinkageStatic {
				t.Fatalf("%q: ci variant has linkage %q", v.Selector, v.Linkage)
			}
		default:
			t.Fatalf("%q: unknown family %q", v.Selector, v.Family)
		}
		if v.Family != FamilyWheel && v.CMakeVersion != "" {
			t.Fatalf("%q: cmake version set outside the wheel family", v.Selector)
		}
	}
}

func TestResolve_UnknownSelector(t *testing.T) {
	for _, selector := range []string{
		"",
		"cpu",
		"cpu-shared-m",
		"cpu-shared-ml-release-extra",
		"CPU-SHARED",
		"openblas",
		"wheel-py38",
		"cuda-wheel-py40",
	} {
		_, err := Resolve(selector)
		if !errors.Is(err, ErrUnknownSelector) {
			t.Fatalf("Resolve(%q) = %v, want ErrUnknownSelector", selector, err)
		}
	}
}

func TestResolve_OpenBLASInvalidTokens(t *testing.T) {
	cases := []struct {
		selector string
		token    string
	}{
		{"openblas-intel-py38", "intel"},
		{"openblas-amd64-py35", "py35"},
		{"openblas-amd64-py38-rel", "rel"},
		{"openblas-amd64-py38-dev-extra", "dev-extra"},
		{"openblas-arm64", "missing a python version"},
		{"openblas-", `"" is not a platform`},
	}
	for _, tc := range cases {
		_, err := Resolve(tc.selector)
		if !errors.Is(err, ErrInvalidOption) {
			t.Fatalf("Resolve(%q) = %v, want ErrInvalidOption", tc.selector, err)
		}
		if !strings.Contains(err.Error(), tc.token) {
			t.Fatalf("Resolve(%q) error %q does not name %q", tc.selector, err, tc.token)
		}
	}
}

func TestResolve_OpenBLASAmd64Py38Dev(t *testing.T) {
	v := mustResolve(t, "openblas-amd64-py38-dev")

	if v.Family != FamilyOpenBLAS {
		t.Fatalf("family = %q", v.Family)
	}
	if v.BaseImage != "ubuntu:18.04" {
		t.Fatalf("base image = %q, want ubuntu:18.04", v.BaseImage)
	}
	if v.Python != Python38 {
		t.Fatalf("python = %q, want 3.8", v.Python)
	}
	if !v.DeveloperBuild {
		t.Fatal("developer build not set")
	}
	if v.Platform != PlatformAMD64 {
		t.Fatalf("platform = %q, want linux/amd64", v.Platform)
	}
	if !strings.HasSuffix(v.DockerTag, "-py38-dev") {
		t.Fatalf("docker tag %q does not end in -py38-dev", v.DockerTag)
	}
}

func TestResolve_CudaCIMLFocal(t *testing.T) {
	v := mustResolve(t, "cuda-ci-ml-focal")

	if v.BaseImage != "nvidia/cuda:11.6.2-cudnn8-devel-ubuntu20.04" {
		t.Fatalf("base image = %q", v.BaseImage)
	}
	if v.Linkage != LinkageStatic {
		t.Fatalf("linkage = %q, want static", v.Linkage)
	}
	if !v.CUDA || !v.TensorFlowOps || !v.PyTorchOps {
		t.Fatalf("ML toggles wrong: cuda=%v tf=%v pytorch=%v", v.CUDA, v.TensorFlowOps, v.PyTorchOps)
	}
	if v.Package {
		t.Fatal("package should be off")
	}
}

// releaseTwin returns the release selector paired with a developer
// selector: openblas and wheel drop the -dev suffix, ci appends
// -release.
func releaseTwin(v Variant) string {
	if v.Family == FamilyCI {
		return v.Selector + "-release"
	}
	return strings.TrimSuffix(v.Selector, "-dev")
}

func TestCatalog_DevReleasePairs(t *testing.T) {
	pairs := 0
	for _, dev := range All() {
		if !dev.DeveloperBuild {
			continue
		}
		twin := releaseTwin(dev)
		rel, err := Resolve(twin)
		if errors.Is(err, ErrUnknownSelector) && dev.Selector == "cuda-ci-bionic" {
			continue // dev-only shape
		}
		if err != nil {
			t.Fatalf("Resolve(%q): %v", twin, err)
		}
		pairs++

		if rel.DeveloperBuild {
			t.Fatalf("%q: release twin still a developer build", twin)
		}

		// Everything except selector, tag and the flag must match.
		a, b := dev, rel
		a.Selector, b.Selector = "", ""
		a.DockerTag, b.DockerTag = "", ""
		a.DeveloperBuild, b.DeveloperBuild = false, false
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("pair %q/%q differs beyond the developer flag:\n%#v\n%#v", dev.Selector, twin, dev, rel)
		}

		// Tags: identical for wheel/ci, -dev vs -release for openblas.
		if dev.Family == FamilyOpenBLAS {
			dtag := strings.TrimSuffix(dev.DockerTag, "-dev")
			rtag := strings.TrimSuffix(rel.DockerTag, "-release")
			if dtag != rtag {
				t.Fatalf("pair %q/%q: tags %q and %q do not share a stem", dev.Selector, twin, dev.DockerTag, rel.DockerTag)
			}
		} else if dev.DockerTag != rel.DockerTag {
			t.Fatalf("pair %q/%q: tags differ: %q vs %q", dev.Selector, twin, dev.DockerTag, rel.DockerTag)
		}
	}
	if pairs != 22 {
		t.Fatalf("found %d dev/release pairs, want 22", pairs)
	}
}

func TestCatalog_BionicDevOnly(t *testing.T) {
	mustResolve(t, "cuda-ci-bionic")
	if _, err := Resolve("cuda-ci-bionic-release"); !errors.Is(err, ErrUnknownSelector) {
		t.Fatalf("cuda-ci-bionic-release = %v, want ErrUnknownSelector", err)
	}
}

func TestCatalog_SharedBionicCacheName(t *testing.T) {
	a := mustResolve(t, "cuda-ci-shared-bionic")
	b := mustResolve(t, "cuda-ci-ml-shared-bionic")
	if a.CcacheTarName != b.CcacheTarName {
		t.Fatalf("bionic shared cache names diverged: %q vs %q", a.CcacheTarName, b.CcacheTarName)
	}
}

func TestCatalog_UniqueSelectors(t *testing.T) {
	seen := map[string]bool{}
	for _, v := range All() {
		if seen[v.Selector] {
			t.Fatalf("duplicate selector %q", v.Selector)
		}
		seen[v.Selector] = true
	}
}

func TestCatalog_BaseImages(t *testing.T) {
	images := BaseImages(All())
	if len(images) != 6 {
		t.Fatalf("distinct base images = %v, want 6 entries", images)
	}
	for _, img := range images {
		if img == "" {
			t.Fatal("empty base image in catalog")
		}
	}
}
