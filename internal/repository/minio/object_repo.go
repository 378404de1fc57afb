package minio

import (
	"bytes"
	"context"

	"github.com/DRSN-tech/catalog-importer/internal/cfg"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// ObjectRepo реализует хранилище объектов поверх MinIO.
type ObjectRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
}

func NewObjectRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *ObjectRepo {
	return &ObjectRepo{
		mc:  mc,
		cfg: cfg,
	}
}

// Put загружает объект в MinIO и возвращает его ключ.
func (o *ObjectRepo) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	reader := bytes.NewReader(body)

	info, err := o.mc.PutObject(ctx, o.cfg.BucketName, key, reader, int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return info.Key, nil
}

// Delete удаляет объект из MinIO по указанному ключу.
func (o *ObjectRepo) Delete(ctx context.Context, key string) error {
	if err := o.mc.RemoveObject(ctx, o.cfg.BucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// ListKeys возвращает ключи объектов с указанным префиксом.
func (o *ObjectRepo) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range o.mc.ListObjects(ctx, o.cfg.BucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), obj.Err)
		}
		keys = append(keys, obj.Key)
	}

	return keys, nil
}
