package config

import (
	"context"
	"fmt"

	"corpusdash/internal/files"
	"corpusdash/internal/store"
	"corpusdash/internal/store/memstore"
	"corpusdash/internal/store/mongostore"
	"corpusdash/internal/store/sqlstore"

	"go.uber.org/zap"
)

// ConnectStore opens the configured document store and pings it within
// store.connect_timeout. The server does not start without it.
func ConnectStore(ctx context.Context, cfg StoreConfig, log *zap.Logger) (store.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	var (
		s   store.Store
		err error
	)
	switch cfg.Driver {
	case "mongo":
		s, err = mongostore.Open(ctx, cfg.URI)
	case "mysql", "postgres", "sqlite":
		s, err = sqlstore.Open(ctx, cfg.Driver, cfg.URI)
	case "memory":
		s = memstore.New()
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s store: %w", cfg.Driver, err)
	}

	log.Info("connected to data store", zap.String("driver", cfg.Driver))
	return s, nil
}

// OpenFiles builds the file source. The returned close func releases it.
func OpenFiles(cfg FilesConfig, log *zap.Logger) (files.Source, func() error, error) {
	switch cfg.Backend {
	case "minio":
		src, err := files.NewMinioSource(files.MinioConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info("serving files from minio", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket))
		return src, func() error { return nil }, nil
	default:
		src, err := files.NewLocalSource(cfg.Root)
		if err != nil {
			return nil, nil, err
		}
		log.Info("serving files from directory", zap.String("root", src.Dir()))
		return src, src.Close, nil
	}
}
