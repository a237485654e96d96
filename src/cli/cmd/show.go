package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/voxelkit/voxbuild/src/matrix"
	"github.com/voxelkit/voxbuild/src/output"
)

var showCmd = &cobra.Command{
	Use:   "show [selector]",
	Short: "Show one resolved build configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var selector string
		if len(args) == 1 {
			selector = args[0]
		} else {
			picked, err := pickSelector()
			if err != nil {
				return err
			}
			selector = picked
		}

		v, err := matrix.Resolve(selector)
		if err != nil {
			return err
		}

		color := output.UseColor()
		w := os.Stdout

		sec := output.NewSection(w, v.Selector, 0, color)
		sec.Row("%-18s%s", "family", v.Family)
		sec.Row("%-18s%s", "image", v.DockerTag)
		sec.Row("%-18s%s", "base", v.BaseImage)
		sec.Row("%-18s%v", "developer_build", v.DeveloperBuild)
		sec.Row("%-18s%s", "ccache", v.CcacheTarName)
		sec.Row("%-18sdocker/%s", "dockerfile", v.Dockerfile())
		if v.Platform != "" {
			sec.Row("%-18s%s", "platform", v.Platform)
		}
		if v.Python != "" {
			sec.Row("%-18s%s", "python", v.Python)
		}
		if v.CMakeVersion != "" {
			sec.Row("%-18s%s", "cmake", v.CMakeVersion)
		}
		sec.Separator()

		buildArgs := v.BuildArgs()
		keys := make([]string, 0, len(buildArgs))
		for k := range buildArgs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sec.Row("%-22s= %s", k, buildArgs[k])
		}

		sec.Separator()
		sec.Row("%-18s%s", "artifacts", strings.Join(v.ArtifactPatterns(), " "))
		sec.Close()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

// pickSelector offers an interactive search over the catalog. Requires
// a terminal; scripted callers pass the selector explicitly.
func pickSelector() (string, error) {
	info, err := os.Stdin.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice == 0 {
		return "", fmt.Errorf("no selector given; run 'voxbuild list' to see them")
	}

	selectors := matrix.Selectors()
	prompt := promptui.Select{
		Label:             "Build variant",
		Items:             selectors,
		Size:              12,
		StartInSearchMode: true,
		Searcher: func(input string, index int) bool {
			return strings.Contains(selectors[index], strings.TrimSpace(input))
		},
	}
	_, selected, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("selection aborted: %w", err)
	}
	return selected, nil
}
