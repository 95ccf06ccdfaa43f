package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage 本地文件存储实现
// 文件按内容sha256寻址，存放在 <base>/<id前两位>/<id><ext>
type LocalStorage struct {
	basePath string // 基础存储路径
}

// LocalConfig 本地存储配置
type LocalConfig struct {
	Path string // 本地存储路径
}

// NewLocalStorage 创建本地存储实例
func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %v", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %v", err)
	}

	return &LocalStorage{
		basePath: absPath,
	}, nil
}

// Save 保存文件到本地存储
// 先写入临时文件并计算摘要，再移动到按摘要命名的位置
func (s *LocalStorage) Save(ctx context.Context, reader io.Reader, filename string) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}

	tmp, err := os.CreateTemp(s.basePath, ".upload-*")
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to create temp file: %v", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), reader)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to write file: %v", err)
	}

	id := hex.EncodeToString(hasher.Sum(nil))
	ext := strings.ToLower(filepath.Ext(filename))
	relPath := filepath.Join(id[:2], id+ext)
	fullPath := filepath.Join(s.basePath, relPath)

	// 相同内容已存在时复用原文件
	if existing, err := s.findFilePath(id); err == nil {
		relPath, _ = filepath.Rel(s.basePath, existing)
	} else {
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return FileInfo{}, fmt.Errorf("failed to create directory: %v", err)
		}
		if err := os.Rename(tmpName, fullPath); err != nil {
			return FileInfo{}, fmt.Errorf("failed to move file into place: %v", err)
		}
	}

	return FileInfo{
		ID:          id,
		Name:        filename,
		Size:        size,
		MimeType:    getMimeType(filename),
		Path:        relPath,
		Fingerprint: id,
	}, nil
}

// Get 获取文件内容
func (s *LocalStorage) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	filePath, err := s.findFilePath(id)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %v", err)
	}
	return file, nil
}

// Delete 删除文件
func (s *LocalStorage) Delete(ctx context.Context, id string) error {
	filePath, err := s.findFilePath(id)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %v", err)
	}
	return nil
}

// List 列出所有文件
func (s *LocalStorage) List(ctx context.Context) ([]FileInfo, error) {
	var files []FileInfo

	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}

		id := idFromName(d.Name())
		files = append(files, FileInfo{
			ID:          id,
			Name:        d.Name(),
			Size:        info.Size(),
			MimeType:    getMimeType(d.Name()),
			Path:        relPath,
			Fingerprint: id,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %v", err)
	}

	return files, nil
}

// Exists 检查文件是否存在
func (s *LocalStorage) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.findFilePath(id)
	if errors.Is(err, ErrFileNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// findFilePath 根据ID定位文件，只需查看ID前两位对应的目录
func (s *LocalStorage) findFilePath(id string) (string, error) {
	if len(id) < 2 || strings.ContainsAny(id, `/\.`) {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}

	matches, err := filepath.Glob(filepath.Join(s.basePath, id[:2], id+"*"))
	if err != nil {
		return "", fmt.Errorf("error searching for file: %v", err)
	}
	for _, m := range matches {
		if idFromName(m) == id {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrFileNotFound, id)
}
