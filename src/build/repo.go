package build

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
)

// ErrRepoNotFound means no VoxelKit checkout could be located.
var ErrRepoNotFound = errors.New("VoxelKit checkout not found")

// ciDockerfile marks a directory as a usable checkout: without it
// there is nothing to build.
const ciDockerfile = "docker/Dockerfile.ci"

// FindRoot locates the checkout that provides the Dockerfiles and the
// build context. An explicit dir wins. Otherwise the search walks up
// from the installed binary itself, so invocations behave the same
// from any working directory.
func FindRoot(explicit string) (string, error) {
	if explicit != "" {
		root, err := filepath.Abs(explicit)
		if err != nil {
			return "", err
		}
		if !hasDockerfiles(root) {
			return "", fmt.Errorf("%w: %s has no %s", ErrRepoNotFound, root, ciDockerfile)
		}
		return root, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("%w: locating executable: %v", ErrRepoNotFound, err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	root, err := rootFrom(filepath.Dir(exe))
	if err != nil {
		return "", fmt.Errorf("%w: %v (run from a checkout or pass --repo)", ErrRepoNotFound, err)
	}
	return root, nil
}

// rootFrom resolves the git worktree enclosing dir and checks it for
// the Dockerfile marker.
func rootFrom(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("no git worktree above %s", dir)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	root := wt.Filesystem.Root()
	if !hasDockerfiles(root) {
		return "", fmt.Errorf("%s has no %s", root, ciDockerfile)
	}
	return root, nil
}

func hasDockerfiles(root string) bool {
	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(ciDockerfile)))
	return err == nil && !info.IsDir()
}

// HeadRevision returns the commit hash of the checkout's HEAD,
// shortened for display, or "" when the checkout is not under git
// (release tarballs) or has no commits yet.
func HeadRevision(root string) string {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	return head.Hash().String()[:12]
}
