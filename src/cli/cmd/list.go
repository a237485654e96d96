package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/voxelkit/voxbuild/src/matrix"
	"github.com/voxelkit/voxbuild/src/output"
)

var listPlain bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every build selector",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listPlain {
			for _, s := range matrix.Selectors() {
				fmt.Println(s)
			}
			return nil
		}

		color := output.UseColor()
		w := os.Stdout
		variants := matrix.All()

		for _, family := range []matrix.Family{matrix.FamilyOpenBLAS, matrix.FamilyWheel, matrix.FamilyCI} {
			sec := output.NewSection(w, familyTitle(family), 0, color)
			for _, v := range variants {
				if v.Family != family {
					continue
				}
				sec.Row("%-34s %s", v.Selector, variantNote(v))
			}
			sec.Close()
		}
		fmt.Fprintf(w, "\n    %d selectors\n\n", len(variants))
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listPlain, "plain", false, "bare selector names, one per line")
	rootCmd.AddCommand(listCmd)
}

func familyTitle(f matrix.Family) string {
	switch f {
	case matrix.FamilyOpenBLAS:
		return "OpenBLAS wheels"
	case matrix.FamilyWheel:
		return "CUDA wheels"
	default:
		return "CI images"
	}
}

func variantNote(v matrix.Variant) string {
	mode := "release"
	if v.DeveloperBuild {
		mode = "dev"
	}

	switch v.Family {
	case matrix.FamilyOpenBLAS:
		return fmt.Sprintf("%-7s %-5s %s", v.Platform.Token(), v.Python.Token(), mode)
	case matrix.FamilyWheel:
		return fmt.Sprintf("%-7s %-5s %s", "cuda", v.Python.Token(), mode)
	default:
		parts := []string{string(v.Linkage)}
		if v.CUDA {
			parts = append(parts, "cuda")
		}
		if v.SYCL {
			parts = append(parts, "sycl")
		}
		if v.TensorFlowOps || v.PyTorchOps {
			parts = append(parts, "ml")
		}
		if v.Package {
			parts = append(parts, "pkg")
		}
		parts = append(parts, mode)
		return strings.Join(parts, " ")
	}
}
