package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/voxelkit/voxbuild/src/matrix"
)

var (
	cfgFile string
	verbose bool

	flagRepo     string
	flagOutput   string
	flagDryRun   bool
	flagSkipScan bool
)

// errArgCount rejects invocations without exactly one selector.
var errArgCount = errors.New("expected exactly one build selector")

var rootCmd = &cobra.Command{
	Use:   "voxbuild <selector>",
	Short: "VoxelKit build matrix dispatcher",
	Long: `voxbuild maps a build selector (cpu-shared-ml-release,
openblas-amd64-py38-dev, cuda-wheel-py39, ...) to a fully-populated
docker build, then extracts the wheels, ccache archives and devel
packages it produced onto the host.`,
	Args:          cobra.ArbitraryArgs,
	RunE:          runDispatch,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: <repo>/.voxbuild.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.Flags().StringVar(&flagRepo, "repo", "", "VoxelKit checkout (default: discovered from the binary location)")
	rootCmd.Flags().StringVar(&flagOutput, "output", "", "artifact destination (default: current directory)")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "print the resolved variant and docker commands without running")
	rootCmd.Flags().BoolVar(&flagSkipScan, "skip-scan", false, "skip the build context secret scan")
}

// Execute runs the root command. Selector mistakes additionally get
// the catalog on stderr so the caller sees what would have been
// accepted.
func Execute() error {
	err := rootCmd.Execute()
	if err == nil {
		return nil
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	if isSelectorError(err) {
		fmt.Fprint(os.Stderr, usageText())
	}
	return err
}

func isSelectorError(err error) bool {
	return errors.Is(err, errArgCount) ||
		errors.Is(err, matrix.ErrUnknownSelector) ||
		errors.Is(err, matrix.ErrInvalidOption)
}

func usageText() string {
	var b strings.Builder
	b.WriteString("\nusage: voxbuild <selector> [flags]\n\nselectors:\n")
	for _, s := range matrix.Selectors() {
		b.WriteString("  " + s + "\n")
	}
	b.WriteString("\nrun 'voxbuild list' for details, 'voxbuild --help' for flags\n")
	return b.String()
}
