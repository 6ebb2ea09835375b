package minio

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// ArtifactRepo реализует хранилище артефактов поверх MinIO.
type ArtifactRepo struct {
	mc     *minio.Client
	bucket string
}

func NewArtifactRepo(mc *minio.Client, bucket string) *ArtifactRepo {
	return &ArtifactRepo{
		mc:     mc,
		bucket: bucket,
	}
}

// Download скачивает объект во временный файл рядом с dstPath и атомарно переименовывает его,
// чтобы загрузчик никогда не прочитал недокачанный файл.
func (a *ArtifactRepo) Download(ctx context.Context, objectKey, dstPath string) error {
	tmp, err := os.CreateTemp(filepath.Dir(dstPath), filepath.Base(dstPath)+".*.part")
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath)

	if err := a.mc.FGetObject(ctx, a.bucket, objectKey, tmpPath, minio.GetObjectOptions{}); err != nil {
		if isNotFound(err) {
			return e.Wrap(a.bucket+"/"+objectKey, e.ErrArtifactNotFound)
		}
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := os.Rename(tmpPath, dstPath); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Upload загружает локальный файл в бакет под ключом objectKey.
func (a *ArtifactRepo) Upload(ctx context.Context, srcPath, objectKey string) error {
	_, err := a.mc.FPutObject(ctx, a.bucket, objectKey, srcPath, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}
