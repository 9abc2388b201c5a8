// Package http implements the plugin for HTTP(S) endpoint targets. Files map
// to URLs under a base URL: uploads PUT, downloads GET, deletes DELETE.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deployworks/deployctl/pkg/plugin"
	"github.com/deployworks/deployctl/pkg/target"
)

func init() {
	plugin.Register("http", New)
}

const defaultTimeout = 30 * time.Second

type httpPlugin struct {
	target  *target.Target
	client  *http.Client
	baseURL *url.URL
	user    string
	pass    string
	headers map[string]string
	log     *zap.Logger
}

// New creates an HTTP plugin from the target's options. `url` is required;
// `user`/`password` enable basic auth and `headers` (a string map) is sent
// with every request.
func New(t *target.Target, log *zap.Logger) (plugin.Plugin, error) {
	raw := stringOption(t, "url")
	if raw == "" {
		return nil, fmt.Errorf("http target %q requires a 'url' option", t.Name)
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("http target %q has an invalid url: %w", t.Name, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("http target %q requires an http or https url", t.Name)
	}

	headers := map[string]string{}
	if raw, ok := t.Options["headers"].(map[string]interface{}); ok {
		for k, v := range raw {
			if s, ok := v.(string); ok {
				headers[k] = s
			}
		}
	}

	return &httpPlugin{
		target:  t,
		client:  &http.Client{Timeout: defaultTimeout},
		baseURL: base,
		user:    stringOption(t, "user"),
		pass:    stringOption(t, "password"),
		headers: headers,
		log:     log,
	}, nil
}

func (p *httpPlugin) Type() string {
	return "http"
}

func (p *httpPlugin) Capabilities() plugin.Capabilities {
	return plugin.Capabilities{
		CanUpload:   true,
		CanDownload: true,
		CanDelete:   true,
	}
}

func (p *httpPlugin) UploadFiles(ctx context.Context, op *plugin.Context) error {
	return p.eachFile(ctx, op, func(file string) error {
		src, err := os.Open(filepath.Join(op.WorkspaceRoot, filepath.FromSlash(file)))
		if err != nil {
			return err
		}
		defer src.Close()

		resp, err := p.do(ctx, http.MethodPut, file, src)
		if err != nil {
			return err
		}
		return drain(resp)
	})
}

func (p *httpPlugin) DownloadFiles(ctx context.Context, op *plugin.Context) error {
	return p.eachFile(ctx, op, func(file string) error {
		resp, err := p.do(ctx, http.MethodGet, file, nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		dst := filepath.Join(op.WorkspaceRoot, filepath.FromSlash(file))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return err
		}
		out, err := os.Create(dst)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, resp.Body); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}

func (p *httpPlugin) DeleteFiles(ctx context.Context, op *plugin.Context) error {
	return p.eachFile(ctx, op, func(file string) error {
		resp, err := p.do(ctx, http.MethodDelete, file, nil)
		if err != nil {
			return err
		}
		return drain(resp)
	})
}

// ListDirectory is unsupported: plain HTTP endpoints expose no directory
// listing contract.
func (p *httpPlugin) ListDirectory(ctx context.Context, dir string) ([]plugin.FileInfo, error) {
	return nil, fmt.Errorf("http target %q does not support directory listing", p.target.Name)
}

func (p *httpPlugin) do(ctx context.Context, method, file string, body io.Reader) (*http.Response, error) {
	u := *p.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(file, "/")

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if p.user != "" {
		req.SetBasicAuth(p.user, p.pass)
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: unexpected status %s", method, u.String(), resp.Status)
	}
	return resp, nil
}

func (p *httpPlugin) eachFile(ctx context.Context, op *plugin.Context, fn func(file string) error) error {
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

func drain(resp *http.Response) error {
	defer resp.Body.Close()
	_, err := io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	return err
}

func stringOption(t *target.Target, key string) string {
	v, ok := t.Options[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
