package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"
)

const gitSourcePrefix = "git::"

// downloadGit clones a repository shallowly and reads one file out of it.
// The source format is git::<repo-url>//<path-in-repo>[?ref=<branch-or-tag>].
func (c *Client) downloadGit(ctx context.Context, source string) ([]byte, error) {
	repoURL, filePath, ref, err := parseGitSource(source)
	if err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "deployctl-import-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create clone directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	cloneOpts := &git.CloneOptions{
		URL:          repoURL,
		Depth:        1,
		SingleBranch: true,
	}
	if ref != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(ref)
	}

	if _, err := git.PlainCloneContext(ctx, tmpDir, false, cloneOpts); err != nil {
		// Retry as a tag reference; refs may name either
		if ref != "" {
			cloneOpts.ReferenceName = plumbing.NewTagReferenceName(ref)
			if _, tagErr := git.PlainCloneContext(ctx, tmpDir, false, cloneOpts); tagErr == nil {
				err = nil
			}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to clone %s: %w", repoURL, err)
		}
	}

	c.log.Debug("cloned import repository",
		zap.String("url", repoURL),
		zap.String("ref", ref),
		zap.String("path", filePath))

	return os.ReadFile(filepath.Join(tmpDir, filepath.FromSlash(filePath)))
}

// parseGitSource splits git::<url>//<path>[?ref=<name>] into its parts.
func parseGitSource(source string) (repoURL, filePath, ref string, err error) {
	trimmed := strings.TrimPrefix(source, gitSourcePrefix)

	if query := strings.LastIndex(trimmed, "?ref="); query >= 0 {
		ref = trimmed[query+len("?ref="):]
		trimmed = trimmed[:query]
	}

	// The path separator is the last "//" that is not part of the scheme.
	schemeEnd := 0
	if idx := strings.Index(trimmed, "://"); idx >= 0 {
		schemeEnd = idx + len("://")
	}
	sep := strings.LastIndex(trimmed[schemeEnd:], "//")
	if sep < 0 {
		return "", "", "", fmt.Errorf("git source %s is missing the //<path> suffix", source)
	}
	sep += schemeEnd

	repoURL = trimmed[:sep]
	filePath = trimmed[sep+2:]
	if filePath == "" {
		return "", "", "", fmt.Errorf("git source %s is missing the file path", source)
	}
	return repoURL, filePath, ref, nil
}
