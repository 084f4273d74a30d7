package synthesizer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/RecoveryAshes/rufus/internal/models"
	"github.com/RecoveryAshes/rufus/internal/utils"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioSink 导出到MinIO/S3兼容对象存储
type MinioSink struct {
	client *minio.Client
	bucket string
	prefix string

	// 首次写入时检查并创建bucket
	mu          sync.Mutex
	bucketReady bool
}

// NewMinioSink 创建对象存储导出目标,不会立即建立连接
func NewMinioSink(cfg models.MinIOConfig, bucket, prefix string) (*MinioSink, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("未配置MinIO endpoint")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}
	return &MinioSink{client: client, bucket: bucket, prefix: prefix}, nil
}

// ensureBucket bucket不存在时创建
func (s *MinioSink) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bucketReady {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return err
		}
		utils.Infof("已创建bucket: %s", s.bucket)
	}
	s.bucketReady = true
	return nil
}

// Write 实现Sink接口
func (s *MinioSink) Write(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := name
	if s.prefix != "" {
		key = path.Join(s.prefix, name)
	}
	location := fmt.Sprintf("s3://%s/%s", s.bucket, key)

	if err := s.ensureBucket(ctx); err != nil {
		return "", &models.PersistenceError{Target: location, Cause: err}
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", &models.PersistenceError{Target: location, Cause: err}
	}
	return location, nil
}
