package spacetraveling

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"
)

const publishConcurrency = 8

// ObjectPutter is the slice of the S3 API Publish needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds an S3 client from the default AWS credential chain.
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("spacetraveling: load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Publish uploads an exported site from dir to bucket under prefix. HTML
// gets the revalidation Cache-Control; everything else is cached for an
// hour.
func (a *App) Publish(ctx context.Context, client ObjectPutter, dir, bucket, prefix string) (int, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("spacetraveling: walk %s: %w", dir, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(publishConcurrency)
	for _, p := range files {
		g.Go(func() error {
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			key := path.Join(prefix, filepath.ToSlash(rel))
			f, err := os.Open(p)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = client.PutObject(gctx, &s3.PutObjectInput{
				Bucket:       aws.String(bucket),
				Key:          aws.String(key),
				Body:         f,
				ContentType:  aws.String(contentType(key)),
				CacheControl: aws.String(a.objectCacheControl(key)),
			})
			if err != nil {
				return fmt.Errorf("spacetraveling: put %s: %w", key, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	a.Echo.Logger.Infof("published %d files to s3://%s/%s", len(files), bucket, prefix)
	return len(files), nil
}

func contentType(key string) string {
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (a *App) objectCacheControl(key string) string {
	if strings.HasSuffix(key, ".html") {
		return a.postCacheControl()
	}
	return "public, max-age=3600"
}
