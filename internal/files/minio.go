package files

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path"
	"strings"

	"corpusdash/internal/domain"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

// MinioSource serves objects of one bucket, optionally below a key prefix.
type MinioSource struct {
	Client *minio.Client
	Bucket string
	Prefix string
}

var _ Source = (*MinioSource)(nil)

func NewMinioSource(cfg MinioConfig) (*MinioSource, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required when files.backend=minio")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("minio bucket is required when files.backend=minio")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioSource{Client: client, Bucket: bucket, Prefix: cfg.Prefix}, nil
}

func (s *MinioSource) key(name string) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	prefix := strings.Trim(s.Prefix, "/")
	if prefix == "" {
		return clean, nil
	}
	return path.Join(prefix, clean), nil
}

func (s *MinioSource) Open(ctx context.Context, name string) (*Object, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, err
	}
	obj, err := s.Client.GetObject(ctx, s.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyMinio(name, err)
	}
	st, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, classifyMinio(name, err)
	}

	ct := st.ContentType
	out := &Object{Name: name, Size: st.Size, ModTime: st.LastModified, Body: obj}
	if ct == "" || ct == "application/octet-stream" {
		sniffed, rc, err := sniff(obj)
		if err != nil {
			_ = obj.Close()
			return nil, classifyMinio(name, err)
		}
		ct, out.Body = sniffed, rc
	}
	out.ContentType = ct
	return out, nil
}

func classifyMinio(name string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return domain.NotFoundError{Resource: "file " + name, Err: err}
	case "AccessDenied":
		return domain.InternalError{Msg: "read " + name, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.UnavailableError{Store: "minio", Err: err}
	}
	return domain.InternalError{Msg: "read " + name, Err: err}
}
