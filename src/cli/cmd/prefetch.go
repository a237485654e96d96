package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/voxelkit/voxbuild/src/build"
	"github.com/voxelkit/voxbuild/src/config"
	"github.com/voxelkit/voxbuild/src/matrix"
)

var prefetchJobs int

var prefetchCmd = &cobra.Command{
	Use:   "prefetch [selector...]",
	Short: "Pull base images ahead of building",
	Long: `Pulls the distinct base images the given selectors build from
(default: the whole catalog), so later builds start warm.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var variants []matrix.Variant
		if len(args) == 0 {
			variants = matrix.All()
		} else {
			for _, arg := range args {
				v, err := matrix.Resolve(arg)
				if err != nil {
					return err
				}
				variants = append(variants, v)
			}
		}
		images := matrix.BaseImages(variants)

		cfg, err := prefetchConfig()
		if err != nil {
			return err
		}
		docker := build.New(cfg.Docker.Binary, verbose)

		bar := progressbar.NewOptions(len(images),
			progressbar.OptionSetDescription("pulling base images"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)

		g, ctx := errgroup.WithContext(context.Background())
		g.SetLimit(prefetchJobs)
		for _, image := range images {
			g.Go(func() error {
				if err := docker.Pull(ctx, image); err != nil {
					return err
				}
				return bar.Add(1)
			})
		}
		if err := g.Wait(); err != nil {
			fmt.Fprintln(os.Stderr)
			return err
		}

		fmt.Printf("%d base image(s) present\n", len(images))
		return nil
	},
}

func init() {
	prefetchCmd.Flags().IntVar(&prefetchJobs, "jobs", 3, "concurrent pulls")
	rootCmd.AddCommand(prefetchCmd)
}

// prefetchConfig finds the checkout config when one is reachable and
// otherwise falls back to defaults; prefetching has no repo
// requirement of its own.
func prefetchConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	if root, err := build.FindRoot(""); err == nil {
		return config.Load(filepath.Join(root, config.DefaultFile))
	}
	return config.Defaults(), nil
}
