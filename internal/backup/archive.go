package backup

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"upkeep/internal/logging"
)

// ArchiveEtc writes a tar.gz archive of the configuration directory.
// Symlinks are stored as links; unreadable entries are skipped and counted
// rather than failing the archive, since a partially-readable /etc is still
// worth keeping.
func (m *Manager) ArchiveEtc(ctx context.Context, etcDir string) (Artifact, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create backup directory: %w", err)
	}

	path := m.artifactPath("etc.tar.gz")
	file, err := os.Create(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("create archive: %w", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	tw := tar.NewWriter(gz)

	skipped := 0
	walkErr := filepath.WalkDir(etcDir, func(entry string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			skipped++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		return m.addEntry(tw, etcDir, entry, d, &skipped)
	})

	if err := tw.Close(); err != nil && walkErr == nil {
		walkErr = fmt.Errorf("finalize tar: %w", err)
	}
	if err := gz.Close(); err != nil && walkErr == nil {
		walkErr = fmt.Errorf("finalize gzip: %w", err)
	}
	if err := file.Close(); err != nil && walkErr == nil {
		walkErr = fmt.Errorf("close archive: %w", err)
	}
	if walkErr != nil {
		_ = os.Remove(path)
		return Artifact{}, fmt.Errorf("archive %s: %w", etcDir, walkErr)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("stat archive: %w", err)
	}
	if skipped > 0 {
		m.logger.Warn("some entries skipped during config archive",
			logging.String("dir", etcDir),
			logging.Int("skipped", skipped),
		)
	}
	m.logger.Info("backup artifact written",
		logging.String("artifact", "etc"),
		logging.String("path", path),
		logging.Int64("bytes", info.Size()),
	)
	return Artifact{Name: "etc", Path: path, Size: info.Size()}, nil
}

func (m *Manager) addEntry(tw *tar.Writer, root, entry string, d fs.DirEntry, skipped *int) error {
	info, err := d.Info()
	if err != nil {
		*skipped++
		return nil
	}

	var linkTarget string
	if info.Mode()&fs.ModeSymlink != 0 {
		linkTarget, err = os.Readlink(entry)
		if err != nil {
			*skipped++
			return nil
		}
	}

	header, err := tar.FileInfoHeader(info, linkTarget)
	if err != nil {
		*skipped++
		return nil
	}
	rel, err := filepath.Rel(filepath.Dir(root), entry)
	if err != nil {
		return err
	}
	header.Name = filepath.ToSlash(rel)
	if info.IsDir() {
		header.Name += "/"
	}

	if !info.Mode().IsRegular() {
		return tw.WriteHeader(header)
	}

	source, err := os.Open(entry)
	if err != nil {
		// Typical for root-only secrets when running unprivileged tests.
		*skipped++
		return nil
	}
	defer source.Close()

	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	if _, err := io.Copy(tw, source); err != nil {
		return fmt.Errorf("copy %s: %w", entry, err)
	}
	return nil
}
