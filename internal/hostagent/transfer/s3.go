package transfer

import (
	"context"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/rs/zerolog"

	"github.com/jimyag/hostagent/internal/hostagent/storage"
	"github.com/jimyag/hostagent/pkg/apierror"
)

// DownloadObject 从对象存储下载 key 到 dest
func (e *Engine) DownloadObject(ctx context.Context, store storage.ObjectStore, key, dest string) error {
	logger := zerolog.Ctx(ctx)

	sess, err := session.NewSession(&aws.Config{
		Endpoint:         aws.String(store.Endpoint),
		Region:           aws.String(e.s3Region),
		S3ForcePathStyle: aws.Bool(true),
		DisableSSL:       aws.Bool(!store.UseTLS),
		Credentials:      credentials.NewStaticCredentials(store.AccessKey, store.SecretKey, ""),
		HTTPClient:       e.client,
	})
	if err != nil {
		return apierror.IO("create object store session", err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return apierror.IO("create destination directory", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return apierror.IO("create destination file", err)
	}

	logger.Info().
		Str("endpoint", store.Endpoint).
		Str("bucket", store.Bucket).
		Str("key", key).
		Str("dest", dest).
		Msg("Downloading object")

	n, err := s3manager.NewDownloader(sess).DownloadWithContext(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(store.Bucket),
		Key:    aws.String(key),
	})
	closeErr := f.Close()
	if err != nil {
		os.Remove(dest)
		return apierror.IO("object store download failed", err)
	}
	if closeErr != nil {
		return apierror.IO("close destination file", closeErr)
	}

	logger.Debug().Int64("bytes", n).Msg("Object download finished")
	return nil
}
