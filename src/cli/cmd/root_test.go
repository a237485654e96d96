package cmd

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/voxelkit/voxbuild/src/matrix"
)

func TestUsageText_ListsEveryVariant(t *testing.T) {
	usage := usageText()

	if !strings.Contains(usage, "usage: voxbuild <selector>") {
		t.Fatalf("usage line missing:\n%s", usage)
	}
	for _, s := range matrix.Selectors() {
		if !strings.Contains(usage, "\n  "+s+"\n") {
			t.Fatalf("selector %q missing from usage text", s)
		}
	}
}

func TestIsSelectorError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("%w, got 0", errArgCount), true},
		{fmt.Errorf("wrapped: %w", matrix.ErrUnknownSelector), true},
		{fmt.Errorf("wrapped: %w", matrix.ErrInvalidOption), true},
		{errors.New("docker build failed"), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := isSelectorError(tc.err); got != tc.want {
			t.Fatalf("isSelectorError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestRunDispatch_ArgCount(t *testing.T) {
	if err := runDispatch(rootCmd, nil); !errors.Is(err, errArgCount) {
		t.Fatalf("no args: err = %v, want errArgCount", err)
	}
	if err := runDispatch(rootCmd, []string{"cpu-shared", "cpu-static"}); !errors.Is(err, errArgCount) {
		t.Fatalf("two args: err = %v, want errArgCount", err)
	}
}

func TestRunDispatch_UnknownSelector(t *testing.T) {
	err := runDispatch(rootCmd, []string{"cpu-shard"})
	if !errors.Is(err, matrix.ErrUnknownSelector) {
		t.Fatalf("err = %v, want ErrUnknownSelector", err)
	}
	if !strings.Contains(err.Error(), "cpu-shard") {
		t.Fatalf("error %q does not name the selector", err)
	}
}
