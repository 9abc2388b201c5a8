// Package local implements the plugin for directory targets on the local
// filesystem.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/deployworks/deployctl/pkg/plugin"
	"github.com/deployworks/deployctl/pkg/target"
)

func init() {
	plugin.Register("local", New)
}

type localPlugin struct {
	target *target.Target
	root   string
	log    *zap.Logger
}

// New creates a local-directory plugin. The target's dir is the destination
// root; relative paths resolve against the process working directory.
func New(t *target.Target, log *zap.Logger) (plugin.Plugin, error) {
	if t.Dir == "" {
		return nil, fmt.Errorf("local target %q requires a dir", t.Name)
	}
	root, err := filepath.Abs(t.Dir)
	if err != nil {
		return nil, err
	}
	return &localPlugin{target: t, root: root, log: log}, nil
}

func (p *localPlugin) Type() string {
	return "local"
}

func (p *localPlugin) Capabilities() plugin.Capabilities {
	return plugin.Capabilities{
		CanUpload:   true,
		CanDownload: true,
		CanDelete:   true,
		CanList:     true,
	}
}

func (p *localPlugin) UploadFiles(ctx context.Context, op *plugin.Context) error {
	return p.eachFile(ctx, op, func(file string) error {
		src := filepath.Join(op.WorkspaceRoot, filepath.FromSlash(file))
		dst := filepath.Join(p.root, filepath.FromSlash(file))
		return copyFile(src, dst)
	})
}

func (p *localPlugin) DownloadFiles(ctx context.Context, op *plugin.Context) error {
	return p.eachFile(ctx, op, func(file string) error {
		src := filepath.Join(p.root, filepath.FromSlash(file))
		dst := filepath.Join(op.WorkspaceRoot, filepath.FromSlash(file))
		return copyFile(src, dst)
	})
}

func (p *localPlugin) DeleteFiles(ctx context.Context, op *plugin.Context) error {
	return p.eachFile(ctx, op, func(file string) error {
		err := os.Remove(filepath.Join(p.root, filepath.FromSlash(file)))
		if os.IsNotExist(err) {
			return nil
		}
		return err
	})
}

func (p *localPlugin) ListDirectory(ctx context.Context, dir string) ([]plugin.FileInfo, error) {
	entries, err := os.ReadDir(filepath.Join(p.root, filepath.FromSlash(dir)))
	if err != nil {
		return nil, err
	}

	infos := make([]plugin.FileInfo, 0, len(entries))
	for _, entry := range entries {
		info := plugin.FileInfo{Name: entry.Name(), IsDir: entry.IsDir()}
		if fi, err := entry.Info(); err == nil {
			info.Size = fi.Size()
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// eachFile drains the operation cursor, applying fn per file. Per-file
// failures are reported through the context callbacks and never stop the
// remaining files.
func (p *localPlugin) eachFile(ctx context.Context, op *plugin.Context, fn func(file string) error) error {
	for {
		file, ok := op.Next()
		if !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := op.BeforeFile(file); err != nil {
			op.FileDone(file, err)
			continue
		}
		op.FileDone(file, fn(file))
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := os.CreateTemp(filepath.Dir(dst), ".deployctl-*")
	if err != nil {
		return err
	}
	tmp := out.Name()

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
