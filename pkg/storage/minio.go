package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// metaOriginalName 保存原始文件名的用户元数据键
const metaOriginalName = "Original-Name"

// MinioStorage MinIO存储实现
// 对象键为 <sha256><ext>
type MinioStorage struct {
	client     *minio.Client // MinIO客户端
	bucketName string        // 存储桶名称
}

// MinioConfig MinIO存储配置
type MinioConfig struct {
	Endpoint  string // MinIO服务端点
	AccessKey string // 访问密钥ID
	SecretKey string // 秘密访问密钥
	UseSSL    bool   // 是否使用SSL
	Bucket    string // 存储桶名称
}

// NewMinioStorage 创建MinIO存储实例
func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %v", err)
	}

	// 检查存储桶是否存在，不存在则创建
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %v", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %v", err)
		}
	}

	return &MinioStorage{
		client:     client,
		bucketName: cfg.Bucket,
	}, nil
}

// Save 保存文件到MinIO存储
func (s *MinioStorage) Save(ctx context.Context, reader io.Reader, filename string) (FileInfo, error) {
	// 需要先得到摘要才能确定对象键，因此整体读入内存
	content, err := io.ReadAll(reader)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to read file content: %v", err)
	}

	sum := sha256.Sum256(content)
	id := hex.EncodeToString(sum[:])

	if existing, err := s.findObject(ctx, id); err == nil {
		return FileInfo{
			ID:          id,
			Name:        filename,
			Size:        existing.Size,
			MimeType:    getMimeType(existing.Key),
			Path:        existing.Key,
			Fingerprint: id,
		}, nil
	}

	objectName := id + strings.ToLower(filepath.Ext(filename))
	contentType := getMimeType(filename)
	size := int64(len(content))

	_, err = s.client.PutObject(ctx, s.bucketName, objectName, bytes.NewReader(content), size,
		minio.PutObjectOptions{
			ContentType:  contentType,
			UserMetadata: map[string]string{metaOriginalName: filename},
		})
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to upload file: %v", err)
	}

	return FileInfo{
		ID:          id,
		Name:        filename,
		Size:        size,
		MimeType:    contentType,
		Path:        objectName,
		Fingerprint: id,
	}, nil
}

// Get 获取MinIO中的文件
func (s *MinioStorage) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	obj, err := s.findObject(ctx, id)
	if err != nil {
		return nil, err
	}

	reader, err := s.client.GetObject(ctx, s.bucketName, obj.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %v", err)
	}
	return reader, nil
}

// Delete 从MinIO中删除文件
func (s *MinioStorage) Delete(ctx context.Context, id string) error {
	obj, err := s.findObject(ctx, id)
	if err != nil {
		return err
	}

	if err := s.client.RemoveObject(ctx, s.bucketName, obj.Key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %v", err)
	}
	return nil
}

// List 列出MinIO中的所有文件
func (s *MinioStorage) List(ctx context.Context) ([]FileInfo, error) {
	var files []FileInfo

	objectCh := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Recursive:    true,
		WithMetadata: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("error listing objects: %v", object.Err)
		}

		id := idFromName(object.Key)
		name := object.UserMetadata["X-Amz-Meta-"+metaOriginalName]
		if name == "" {
			name = object.Key
		}
		files = append(files, FileInfo{
			ID:          id,
			Name:        name,
			Size:        object.Size,
			MimeType:    getMimeType(object.Key),
			Path:        object.Key,
			Fingerprint: id,
		})
	}

	return files, nil
}

// Exists 检查MinIO中是否存在指定ID的文件
func (s *MinioStorage) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.findObject(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrFileNotFound) {
		return false, nil
	}
	return false, err
}

// findObject 用ID作为前缀查找对象
func (s *MinioStorage) findObject(ctx context.Context, id string) (minio.ObjectInfo, error) {
	if id == "" {
		return minio.ObjectInfo{}, fmt.Errorf("%w: empty id", ErrFileNotFound)
	}

	// 提前返回时取消上下文，结束列举协程
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for object := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{Prefix: id}) {
		if object.Err != nil {
			return minio.ObjectInfo{}, fmt.Errorf("error listing objects: %v", object.Err)
		}
		if idFromName(object.Key) == id {
			return object, nil
		}
	}
	return minio.ObjectInfo{}, fmt.Errorf("%w: %s", ErrFileNotFound, id)
}
