package main

import (
	"os"

	"github.com/voxelkit/voxbuild/src/build"
	"github.com/voxelkit/voxbuild/src/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(build.ExitCode(err))
	}
}
