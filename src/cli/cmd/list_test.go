package cmd

import (
	"strings"
	"testing"

	"github.com/voxelkit/voxbuild/src/matrix"
)

func TestFamilyTitle(t *testing.T) {
	cases := map[matrix.Family]string{
		matrix.FamilyOpenBLAS: "OpenBLAS wheels",
		matrix.FamilyWheel:    "CUDA wheels",
		matrix.FamilyCI:       "CI images",
	}
	for f, want := range cases {
		if got := familyTitle(f); got != want {
			t.Fatalf("familyTitle(%s) = %q, want %q", f, got, want)
		}
	}
}

func TestVariantNote(t *testing.T) {
	cases := []struct {
		selector string
		want     []string
	}{
		{"openblas-amd64-py39", []string{"amd64", "py39", "release"}},
		{"cuda-wheel-py36-dev", []string{"cuda", "py36", "dev"}},
		{"cpu-static", []string{"static", "pkg", "dev"}},
		{"cuda-ci-ml-shared-bionic-release", []string{"shared", "cuda", "ml", "release"}},
		{"cpu-shared-ml-release", []string{"shared", "ml", "release"}},
		{"sycl-shared", []string{"shared", "sycl", "dev"}},
	}
	for _, tc := range cases {
		v, err := matrix.Resolve(tc.selector)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tc.selector, err)
		}
		note := variantNote(v)
		for _, frag := range tc.want {
			if !strings.Contains(note, frag) {
				t.Fatalf("note for %s = %q, missing %q", tc.selector, note, frag)
			}
		}
	}
}

func TestVariantNote_NoMLWithoutOps(t *testing.T) {
	v, err := matrix.Resolve("cuda-ci-focal")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if note := variantNote(v); strings.Contains(note, "ml") {
		t.Fatalf("cuda-ci-focal note %q should not mention ml", note)
	}
}
