package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"scrap_ctf/internal/config"
	"scrap_ctf/internal/util"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/crypto/sha3"
)

// AssetHashBytes is the truncated digest width. Collisions at this width are
// an accepted risk, not a security boundary.
const AssetHashBytes = 8

var (
	ErrAssetNotFound = errors.New("asset not found")
	ErrInvalidAsset  = errors.New("invalid asset name")

	assetHashPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)
)

// Asset is a content-addressed attachment.
type Asset struct {
	Hash string
	Name string
	URL  string
	// Fresh 本次 Store 之前该哈希下没有任何内容
	Fresh bool
}

// AssetStore 题目附件的内容寻址存储
type AssetStore interface {
	// Store places data under its content hash and original name. Re-storing
	// identical content is a no-op.
	Store(ctx context.Context, data []byte, name string) (Asset, error)
	// Sweep removes every asset whose hash is not in live and returns the removed hashes.
	Sweep(ctx context.Context, live map[string]struct{}) ([]string, error)
	// Remove deletes everything stored under one hash.
	Remove(ctx context.Context, hash string) error
	// Open streams a stored asset.
	Open(ctx context.Context, hash, name string) (io.ReadCloser, int64, error)
}

// AssetFor computes the hash and public URL of a file without storing it.
func AssetFor(data []byte, name string) (Asset, error) {
	if err := ValidateAssetName(name); err != nil {
		return Asset{}, err
	}
	digest := sha3.Sum256(data)
	hash := hex.EncodeToString(digest[:AssetHashBytes])
	return Asset{
		Hash: hash,
		Name: name,
		URL:  util.AssetURLPrefix + hash + "/" + name,
	}, nil
}

// ValidateAssetName accepts a single path element only.
func ValidateAssetName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidAsset, name)
	}
	return nil
}

func ValidateAssetHash(hash string) error {
	if !assetHashPattern.MatchString(hash) {
		return fmt.Errorf("%w: hash %q", ErrInvalidAsset, hash)
	}
	return nil
}

func NewAssetStore(cfg *config.StorageConfig) (AssetStore, error) {
	switch cfg.Type {
	case util.StorageMinio:
		return NewMinioAssetStore(cfg)
	default:
		return NewLocalAssetStore(filepath.Join(cfg.StaticPath, "files"))
	}
}

// LocalAssetStore keeps assets under <root>/<hash>/<name>.
type LocalAssetStore struct {
	Root string
}

func NewLocalAssetStore(root string) (*LocalAssetStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	return &LocalAssetStore{Root: root}, nil
}

func (s *LocalAssetStore) Store(ctx context.Context, data []byte, name string) (Asset, error) {
	asset, err := AssetFor(data, name)
	if err != nil {
		return Asset{}, err
	}

	dir := filepath.Join(s.Root, asset.Hash)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		asset.Fresh = true
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Asset{}, err
	}

	dst := filepath.Join(dir, asset.Name)
	if current, err := os.ReadFile(dst); err == nil && bytes.Equal(current, data) {
		return asset, nil
	}

	// 先写临时文件再重命名，避免下载到半截文件
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return Asset{}, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return Asset{}, err
	}
	if err := tmp.Close(); err != nil {
		return Asset{}, err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return Asset{}, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return Asset{}, err
	}
	return asset, nil
}

// Sweep only ever removes directories directly under Root. Plain files and
// symlinks in the root are left alone.
func (s *LocalAssetStore) Sweep(ctx context.Context, live map[string]struct{}) ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, ok := live[entry.Name()]; ok {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.Root, entry.Name())); err != nil {
			return removed, err
		}
		removed = append(removed, entry.Name())
	}
	return removed, nil
}

func (s *LocalAssetStore) Remove(ctx context.Context, hash string) error {
	if err := ValidateAssetHash(hash); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.Root, hash))
}

func (s *LocalAssetStore) Open(ctx context.Context, hash, name string) (io.ReadCloser, int64, error) {
	if err := ValidateAssetHash(hash); err != nil {
		return nil, 0, err
	}
	if err := ValidateAssetName(name); err != nil {
		return nil, 0, err
	}
	f, err := os.Open(filepath.Join(s.Root, hash, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, ErrAssetNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, 0, ErrAssetNotFound
	}
	return f, info.Size(), nil
}

// MinioAssetStore keeps assets as objects files/<hash>/<name> in one bucket.
type MinioAssetStore struct {
	Client *minio.Client
	Bucket string
}

const minioAssetPrefix = "files/"

func NewMinioAssetStore(cfg *config.StorageConfig) (*MinioAssetStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioSecure,
	})
	if err != nil {
		return nil, err
	}
	return &MinioAssetStore{Client: client, Bucket: cfg.MinioBucket}, nil
}

func (s *MinioAssetStore) objectKey(hash, name string) string {
	return minioAssetPrefix + path.Join(hash, name)
}

func (s *MinioAssetStore) hashPrefix(hash string) string {
	return minioAssetPrefix + hash + "/"
}

func (s *MinioAssetStore) Store(ctx context.Context, data []byte, name string) (Asset, error) {
	asset, err := AssetFor(data, name)
	if err != nil {
		return Asset{}, err
	}

	key := s.objectKey(asset.Hash, asset.Name)
	if info, err := s.Client.StatObject(ctx, s.Bucket, key, minio.StatObjectOptions{}); err == nil && info.Size == int64(len(data)) {
		return asset, nil
	}

	fresh := true
	for object := range s.Client.ListObjects(ctx, s.Bucket, minio.ListObjectsOptions{
		Prefix:  s.hashPrefix(asset.Hash),
		MaxKeys: 1,
	}) {
		if object.Err != nil {
			return Asset{}, object.Err
		}
		fresh = false
	}
	asset.Fresh = fresh

	_, err = s.Client.PutObject(ctx, s.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return Asset{}, err
	}
	return asset, nil
}

func (s *MinioAssetStore) Sweep(ctx context.Context, live map[string]struct{}) ([]string, error) {
	seen := make(map[string]bool)
	var removed []string

	for object := range s.Client.ListObjects(ctx, s.Bucket, minio.ListObjectsOptions{
		Prefix:    minioAssetPrefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return removed, object.Err
		}
		rest := strings.TrimPrefix(object.Key, minioAssetPrefix)
		hash, _, ok := strings.Cut(rest, "/")
		if !ok {
			continue
		}
		if _, ok := live[hash]; ok {
			continue
		}
		if err := s.Client.RemoveObject(ctx, s.Bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return removed, err
		}
		if !seen[hash] {
			seen[hash] = true
			removed = append(removed, hash)
		}
	}
	return removed, nil
}

func (s *MinioAssetStore) Remove(ctx context.Context, hash string) error {
	if err := ValidateAssetHash(hash); err != nil {
		return err
	}
	for object := range s.Client.ListObjects(ctx, s.Bucket, minio.ListObjectsOptions{
		Prefix:    s.hashPrefix(hash),
		Recursive: true,
	}) {
		if object.Err != nil {
			return object.Err
		}
		if err := s.Client.RemoveObject(ctx, s.Bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func (s *MinioAssetStore) Open(ctx context.Context, hash, name string) (io.ReadCloser, int64, error) {
	if err := ValidateAssetHash(hash); err != nil {
		return nil, 0, err
	}
	if err := ValidateAssetName(name); err != nil {
		return nil, 0, err
	}
	key := s.objectKey(hash, name)
	info, err := s.Client.StatObject(ctx, s.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, 0, ErrAssetNotFound
		}
		return nil, 0, err
	}
	object, err := s.Client.GetObject(ctx, s.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, err
	}
	return object, info.Size, nil
}
