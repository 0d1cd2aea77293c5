package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestAssetFor(t *testing.T) {
	asset, err := AssetFor(nil, "empty.txt")
	if err != nil {
		t.Fatalf("AssetFor() error = %v", err)
	}
	// SHA3-256("") = a7ffc6f8bf1ed766...
	if asset.Hash != "a7ffc6f8bf1ed766" {
		t.Errorf("Hash = %q, want a7ffc6f8bf1ed766", asset.Hash)
	}
	if asset.URL != "/static/files/a7ffc6f8bf1ed766/empty.txt" {
		t.Errorf("URL = %q", asset.URL)
	}

	other, _ := AssetFor([]byte("x"), "empty.txt")
	if other.Hash == asset.Hash {
		t.Error("different content should hash differently")
	}
}

func TestValidateAssetName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"chall.zip", false},
		{"libc.so.6", false},
		{"", true},
		{".", true},
		{"..", true},
		{"a/b", true},
		{`a\b`, true},
	}
	for _, tt := range tests {
		err := ValidateAssetName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateAssetName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidAsset) {
			t.Errorf("ValidateAssetName(%q) error should wrap ErrInvalidAsset", tt.name)
		}
	}
}

func TestLocalAssetStoreStoreIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalAssetStore(filepath.Join(t.TempDir(), "files"))
	if err != nil {
		t.Fatal(err)
	}

	first, err := store.Store(ctx, []byte("payload"), "chall.bin")
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	second, err := store.Store(ctx, []byte("payload"), "chall.bin")
	if err != nil {
		t.Fatalf("second Store() error = %v", err)
	}
	if first != second {
		t.Errorf("Store() not stable: %+v vs %+v", first, second)
	}

	entries, err := os.ReadDir(filepath.Join(store.Root, first.Hash))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "chall.bin" {
		t.Errorf("asset dir entries = %v, want only chall.bin", entries)
	}

	rc, size, err := store.Open(ctx, first.Hash, "chall.bin")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "payload" || size != int64(len("payload")) {
		t.Errorf("Open() = %q (%d bytes)", data, size)
	}
}

func TestLocalAssetStoreSweep(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalAssetStore(filepath.Join(t.TempDir(), "files"))
	if err != nil {
		t.Fatal(err)
	}

	keep, _ := store.Store(ctx, []byte("keep"), "keep.txt")
	drop, _ := store.Store(ctx, []byte("drop"), "drop.txt")
	stray := filepath.Join(store.Root, "README")
	if err := os.WriteFile(stray, []byte("not an asset"), 0644); err != nil {
		t.Fatal(err)
	}

	removed, err := store.Sweep(ctx, map[string]struct{}{keep.Hash: {}})
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	sort.Strings(removed)
	if len(removed) != 1 || removed[0] != drop.Hash {
		t.Errorf("Sweep() removed %v, want [%s]", removed, drop.Hash)
	}

	if _, err := os.Stat(filepath.Join(store.Root, keep.Hash, "keep.txt")); err != nil {
		t.Errorf("live asset removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Root, drop.Hash)); !os.IsNotExist(err) {
		t.Errorf("dead asset still present: %v", err)
	}
	if _, err := os.Stat(stray); err != nil {
		t.Errorf("plain file in asset root should be left alone: %v", err)
	}
}

func TestLocalAssetStoreOpenRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalAssetStore(filepath.Join(t.TempDir(), "files"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		hash, name string
		want       error
	}{
		{"a7ffc6f8bf1ed766", "missing.txt", ErrAssetNotFound},
		{"../../etc", "passwd", ErrInvalidAsset},
		{"a7ffc6f8bf1ed766", "..", ErrInvalidAsset},
		{"A7FFC6F8BF1ED766", "x", ErrInvalidAsset},
	}
	for _, tt := range tests {
		_, _, err := store.Open(ctx, tt.hash, tt.name)
		if !errors.Is(err, tt.want) {
			t.Errorf("Open(%q, %q) error = %v, want %v", tt.hash, tt.name, err, tt.want)
		}
	}
}

func TestLocalAssetStoreFreshAndRemove(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalAssetStore(filepath.Join(t.TempDir(), "files"))
	if err != nil {
		t.Fatal(err)
	}

	first, err := store.Store(ctx, []byte("payload"), "a.bin")
	if err != nil {
		t.Fatal(err)
	}
	if !first.Fresh {
		t.Error("first store should be fresh")
	}
	// 同一内容换个文件名，哈希目录已存在
	second, err := store.Store(ctx, []byte("payload"), "b.bin")
	if err != nil {
		t.Fatal(err)
	}
	if second.Fresh {
		t.Error("store under an existing hash should not be fresh")
	}

	if err := store.Remove(ctx, first.Hash); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Root, first.Hash)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("hash dir still present: %v", err)
	}
	if err := store.Remove(ctx, "../escape"); !errors.Is(err, ErrInvalidAsset) {
		t.Errorf("Remove(bad hash) error = %v", err)
	}
}
