package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ErrNotExist 对象不存在
var ErrNotExist = errors.New("storage: object does not exist")

// Store 二进制对象存储契约，按 (bucket, key) 寻址，bucket 由实现持有。
// 存储系统自身的访问密钥不出本进程，客户端只拿到短期令牌
type Store interface {
	// Write 写入对象
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Read 读取对象，返回内容流与大小
	Read(ctx context.Context, key string) (io.ReadCloser, int64, error)

	// Delete 删除对象，不存在时不报错
	Delete(ctx context.Context, key string) error

	// Exists 对象是否存在
	Exists(ctx context.Context, key string) (bool, error)
}

// AudioKey 生成音频对象 key：userId/时间戳_uuid_原文件名
func AudioKey(userID uint, originalFilename string) string {
	ts := time.Now().UTC().Format("2006-01-02T15-04-05")
	return fmt.Sprintf("%d/%s_%s_%s", userID, ts, uuid.NewString(), filepath.Base(originalFilename))
}

// ContentTypeForKey 按扩展名猜 Content-Type，猜不到按二进制流
func ContentTypeForKey(key string) string {
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
