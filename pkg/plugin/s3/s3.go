// Package s3 implements the plugin for S3-compatible bucket targets.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/deployworks/deployctl/pkg/plugin"
	"github.com/deployworks/deployctl/pkg/target"
)

func init() {
	plugin.Register("s3", New)
}

type s3Plugin struct {
	target *target.Target
	client *awss3.Client
	bucket string
	prefix string
	log    *zap.Logger
}

// New creates an S3 plugin from the target's options. `bucket` is required;
// `region`, `access_key`/`secret_key`, `endpoint`, and `force_path_style`
// are optional. The target's dir becomes the key prefix.
func New(t *target.Target, log *zap.Logger) (plugin.Plugin, error) {
	bucket := stringOption(t, "bucket")
	if bucket == "" {
		return nil, fmt.Errorf("s3 target %q requires a 'bucket' option", t.Name)
	}

	region := stringOption(t, "region")
	if region == "" {
		region = "us-east-1"
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(region))

	if accessKey := stringOption(t, "access_key"); accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, stringOption(t, "secret_key"), ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.UsePathStyle = stringOption(t, "force_path_style") == "true"
		if endpoint := stringOption(t, "endpoint"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &s3Plugin{
		target: t,
		client: client,
		bucket: bucket,
		prefix: strings.Trim(t.Dir, "/"),
		log:    log,
	}, nil
}

func (p *s3Plugin) Type() string {
	return "s3"
}

func (p *s3Plugin) Capabilities() plugin.Capabilities {
	return plugin.Capabilities{
		CanUpload:   true,
		CanDownload: true,
		CanDelete:   true,
		CanList:     true,
	}
}

func (p *s3Plugin) UploadFiles(ctx context.Context, op *plugin.Context) error {
	return eachFile(ctx, op, func(file string) error {
		data, err := os.ReadFile(filepath.Join(op.WorkspaceRoot, filepath.FromSlash(file)))
		if err != nil {
			return err
		}
		_, err = p.client.PutObject(ctx, &awss3.PutObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(p.key(file)),
			Body:   bytes.NewReader(data),
		})
		return err
	})
}

func (p *s3Plugin) DownloadFiles(ctx context.Context, op *plugin.Context) error {
	return eachFile(ctx, op, func(file string) error {
		result, err := p.client.GetObject(ctx, &awss3.GetObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(p.key(file)),
		})
		if err != nil {
			return err
		}
		defer result.Body.Close()

		dst := filepath.Join(op.WorkspaceRoot, filepath.FromSlash(file))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return err
		}
		out, err := os.Create(dst)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, result.Body); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}

func (p *s3Plugin) DeleteFiles(ctx context.Context, op *plugin.Context) error {
	return eachFile(ctx, op, func(file string) error {
		_, err := p.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(p.key(file)),
		})
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	})
}

func (p *s3Plugin) ListDirectory(ctx context.Context, dir string) ([]plugin.FileInfo, error) {
	prefix := p.key(dir)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var infos []plugin.FileInfo
	paginator := awss3.NewListObjectsV2Paginator(p.client, &awss3.ListObjectsV2Input{
		Bucket:    aws.String(p.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, cp := range page.CommonPrefixes {
			if cp.Prefix == nil {
				continue
			}
			name := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, prefix), "/")
			infos = append(infos, plugin.FileInfo{Name: name, IsDir: true})
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || *obj.Key == prefix {
				continue
			}
			info := plugin.FileInfo{Name: strings.TrimPrefix(*obj.Key, prefix)}
			if obj.Size != nil {
				info.Size = *obj.Size
			}
			infos = append(infos, info)
		}
	}
	return infos, nil
}

func (p *s3Plugin) key(file string) string {
	file = strings.TrimPrefix(file, "/")
	if p.prefix == "" {
		return file
	}
	if file == "" {
		return p.prefix
	}
	return path.Join(p.prefix, file)
}

func eachFile(ctx context.Context, op *plugin.Context, fn func(file string) error) error {
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

func stringOption(t *target.Target, key string) string {
	v, ok := t.Options[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
