package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kjk/dumpbuf/atomicfile"
	"github.com/kjk/dumpbuf/config"
	"github.com/kjk/dumpbuf/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3 stores database as an object in S3-compatible storage
type S3 struct {
	config     config.S3Config
	remotePath string

	// created lazily in client()
	mc *minio.Client
}

func NewS3(c *config.S3Config, remotePath string) (*S3, error) {
	if c == nil {
		return nil, errors.New("must provide config")
	}
	if c.Access == "" || c.Secret == "" || c.Bucket == "" || c.Endpoint == "" {
		return nil, errors.New("must provide remote.s3.endpoint, bucket, access and secret")
	}
	remotePath = strings.TrimPrefix(remotePath, "/")
	if remotePath == "" {
		return nil, errors.New("must provide remote.path")
	}
	return &S3{
		config:     *c,
		remotePath: remotePath,
	}, nil
}

func (s *S3) String() string {
	return fmt.Sprintf("s3://%s/%s", s.config.Bucket, s.remotePath)
}

func (s *S3) client(ctx context.Context) (*minio.Client, error) {
	if s.mc != nil {
		return s.mc, nil
	}
	c := &s.config
	mc, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Access, c.Secret, ""),
		Region: c.Region,
		Secure: !c.Insecure,
	})
	if err != nil {
		return nil, err
	}
	found, err := mc.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bucket '%s' doesn't exist", c.Bucket)
	}
	s.mc = mc
	return mc, nil
}

func (s *S3) Push(ctx context.Context, localPath string) error {
	mc, err := s.client(ctx)
	if err != nil {
		return err
	}
	opts := minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	}
	info, err := mc.FPutObject(ctx, s.config.Bucket, s.remotePath, localPath, opts)
	if err != nil {
		return err
	}
	log.Verbosef("uploaded %d bytes to %s\n", info.Size, s)
	return nil
}

func (s *S3) Pull(ctx context.Context, localPath string) error {
	mc, err := s.client(ctx)
	if err != nil {
		return err
	}
	obj, err := mc.GetObject(ctx, s.config.Bucket, s.remotePath, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer obj.Close()

	if err = os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}
	f, err := atomicfile.New(localPath)
	if err != nil {
		return err
	}
	defer f.RemoveIfNotClosed()
	n, err := io.Copy(f, obj)
	if err != nil {
		return err
	}
	log.Verbosef("downloaded %d bytes from %s\n", n, s)
	return f.Close()
}
