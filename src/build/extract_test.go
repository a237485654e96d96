package build

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestExtractorScript_Wheel(t *testing.T) {
	e := &Extractor{OutDir: "/home/ci/out", UID: 1000, GID: 1000}

	got := e.Script(mustVariant(t, "cuda-wheel-py39"))
	want := "cp -v /voxelkit*.whl /voxelkit-ci-*.tar.gz /opt/mount" +
		" && chown 1000:1000 /opt/mount/voxelkit*.whl /opt/mount/voxelkit-ci-*.tar.gz"
	if got != want {
		t.Fatalf("script mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestExtractorScript_PackagedCI(t *testing.T) {
	e := &Extractor{OutDir: "/out", UID: 0, GID: 0}

	got := e.Script(mustVariant(t, "cpu-static"))
	want := "cp -v /voxelkit-ci-*.tar.gz /voxelkit-devel-*.tar.gz /opt/mount" +
		" && chown 0:0 /opt/mount/voxelkit-ci-*.tar.gz /opt/mount/voxelkit-devel-*.tar.gz"
	if got != want {
		t.Fatalf("script mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestExtractorSpec(t *testing.T) {
	e := &Extractor{OutDir: "/home/ci/out", UID: 1000, GID: 1000}
	v := mustVariant(t, "cpu-shared-ml-release")

	spec := e.Spec(v)
	if spec.Image != "voxelkit-ci:cpu-shared-ml" {
		t.Fatalf("image = %q", spec.Image)
	}
	if spec.HostDir != "/home/ci/out" || spec.MountPath != "/opt/mount" {
		t.Fatalf("mount = %q:%q", spec.HostDir, spec.MountPath)
	}
	if spec.Script != e.Script(v) {
		t.Fatalf("spec script does not match Script()")
	}
}

func TestExtractorCollect(t *testing.T) {
	dir := t.TempDir()
	e := &Extractor{OutDir: dir, UID: 1000, GID: 1000}
	v := mustVariant(t, "cuda-wheel-py39")

	wheel := filepath.Join(dir, "voxelkit-0.17.0-cp39-cp39-manylinux_2_27_x86_64.whl")
	ccache := filepath.Join(dir, "voxelkit-ci-wheel.tar.gz")
	stale := filepath.Join(dir, "voxelkit-0.16.0-cp39-cp39-manylinux_2_27_x86_64.whl")
	writeFile(t, wheel)
	writeFile(t, ccache)
	writeFile(t, stale)
	writeFile(t, filepath.Join(dir, "unrelated.txt"))

	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	files, err := e.collect(v, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	want := []string{wheel, ccache}
	if len(files) != 2 {
		t.Fatalf("collected %v, want %v", files, want)
	}
	for _, w := range want {
		found := false
		for _, f := range files {
			if f == w {
				found = true
			}
		}
		if !found {
			t.Fatalf("collected %v, missing %s", files, w)
		}
	}
}
