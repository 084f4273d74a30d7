package synthesizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/rufus/internal/models"
	"github.com/RecoveryAshes/rufus/internal/utils"
)

// Sink 导出目标
type Sink interface {
	// Write 写入一个对象并返回其位置
	Write(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// NewSink 按target选择导出目标
// s3://bucket/prefix 使用MinIO, 其余视为本地目录
func NewSink(target string, minioCfg models.MinIOConfig) (Sink, error) {
	if bucket, prefix, ok := parseS3Target(target); ok {
		return NewMinioSink(minioCfg, bucket, prefix)
	}
	if target == "" {
		target = "."
	}
	return &FileSink{Dir: target}, nil
}

// parseS3Target 解析 s3://bucket/prefix
func parseS3Target(target string) (bucket, prefix string, ok bool) {
	rest, found := strings.CutPrefix(target, "s3://")
	if !found {
		return "", "", false
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", false
	}
	return bucket, strings.Trim(prefix, "/"), true
}

// OutputFileName 生成 <prefix>_<YYYYMMDD_HHMMSS>.<ext>
func OutputFileName(prefix string, format models.OutputFormat, at time.Time) string {
	if prefix == "" {
		prefix = models.DefaultOutputPrefix
	}
	return fmt.Sprintf("%s_%s.%s", prefix, at.Format("20060102_150405"), format.Extension())
}

// Save 编码文档并写入sink,返回写入位置
func Save(ctx context.Context, docs []models.Document, format string, sink Sink, prefix string) (string, error) {
	f, err := models.ParseOutputFormat(format)
	if err != nil {
		return "", err
	}

	data, err := Render(docs, f)
	if err != nil {
		return "", err
	}

	name := OutputFileName(prefix, f, time.Now())
	location, err := sink.Write(ctx, name, data, f.ContentType())
	if err != nil {
		var persistErr *models.PersistenceError
		if errors.As(err, &persistErr) {
			return "", err
		}
		return "", &models.PersistenceError{Target: name, Cause: err}
	}

	utils.Infof("💾 已保存 %d 个文档: %s", len(docs), location)
	return location, nil
}

// FileSink 本地目录
type FileSink struct {
	Dir string
}

// Write 先写临时文件再重命名,失败时不留下半成品
func (s *FileSink) Write(ctx context.Context, name string, data []byte, _ string) (string, error) {
	target := filepath.Join(s.Dir, name)
	if err := ctx.Err(); err != nil {
		return "", &models.PersistenceError{Target: target, Cause: err}
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", &models.PersistenceError{Target: target, Cause: err}
	}

	tmp, err := os.CreateTemp(s.Dir, "."+name+".tmp-*")
	if err != nil {
		return "", &models.PersistenceError{Target: target, Cause: err}
	}
	tmpName := tmp.Name()
	cleanup := func(cause error) (string, error) {
		tmp.Close()
		os.Remove(tmpName)
		return "", &models.PersistenceError{Target: target, Cause: cause}
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", &models.PersistenceError{Target: target, Cause: err}
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return "", &models.PersistenceError{Target: target, Cause: err}
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", &models.PersistenceError{Target: target, Cause: err}
	}
	return target, nil
}
