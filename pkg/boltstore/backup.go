package boltstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/littlemud/littlemud/pkg/logger"
	bbolt "go.etcd.io/bbolt"
)

// BackupExt is appended to compressed snapshot files.
const BackupExt = ".zst"

// Backup writes a zstd-compressed hot snapshot of the dump file into dir
// and returns the snapshot path.
func (s *Store) Backup(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("boltstore: backup dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s%s",
		filepath.Base(s.Path()), time.Now().UTC().Format("20060102-150405.000"), BackupExt)
	path := filepath.Join(dir, name)

	err := s.bolt.View(func(tx *bbolt.Tx) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("boltstore: create backup %s: %w", path, err)
		}
		defer f.Close()

		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		if _, err := tx.WriteTo(enc); err != nil {
			enc.Close()
			return fmt.Errorf("boltstore: write backup: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("boltstore: flush backup: %w", err)
		}
		return f.Sync()
	})
	if err != nil {
		os.Remove(path)
		return "", err
	}
	logger.Log.Infof("boltstore: backup written to %s", path)
	return path, nil
}

// Restore decompresses a snapshot made by Backup into a new dump file at
// dst. dst must not exist.
func Restore(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("boltstore: open backup: %w", err)
	}
	defer in.Close()

	dec, err := zstd.NewReader(in)
	if err != nil {
		return fmt.Errorf("boltstore: backup %s: %w", src, err)
	}
	defer dec.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("boltstore: restore target: %w", err)
	}
	if _, err := io.Copy(out, dec); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("boltstore: restore %s: %w", src, err)
	}
	return out.Close()
}
