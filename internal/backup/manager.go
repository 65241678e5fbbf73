package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"upkeep/internal/logging"
)

// ManifestSource supplies the package listings persisted as backups. The apt
// client satisfies this.
type ManifestSource interface {
	InstalledManifest(ctx context.Context) (string, error)
	ManualManifest(ctx context.Context) (string, error)
}

// Artifact is one persisted backup output.
type Artifact struct {
	Name string
	Path string
	Size int64
}

// Manager writes point-in-time backup artifacts. Every artifact path is
// namespaced by the run's start timestamp, so artifacts never collide within
// a run and sort chronologically across runs.
type Manager struct {
	dir    string
	stamp  string
	source ManifestSource
	logger *slog.Logger
}

// NewManager binds a manager to the backup directory and the run start time.
func NewManager(dir string, start time.Time, source ManifestSource, logger *slog.Logger) *Manager {
	return &Manager{
		dir:    dir,
		stamp:  start.UTC().Format("20060102-150405"),
		source: source,
		logger: logging.NewComponentLogger(logger, "backup"),
	}
}

func (m *Manager) artifactPath(suffix string) string {
	return filepath.Join(m.dir, m.stamp+"-"+suffix)
}

// SaveFullManifest persists the complete installed-package listing.
func (m *Manager) SaveFullManifest(ctx context.Context) (Artifact, error) {
	manifest, err := m.source.InstalledManifest(ctx)
	if err != nil {
		return Artifact{}, fmt.Errorf("full manifest: %w", err)
	}
	return m.writeArtifact("packages", m.artifactPath("packages.txt"), []byte(manifest))
}

// SaveManualManifest persists the manually-installed package listing.
func (m *Manager) SaveManualManifest(ctx context.Context) (Artifact, error) {
	manifest, err := m.source.ManualManifest(ctx)
	if err != nil {
		return Artifact{}, fmt.Errorf("manual manifest: %w", err)
	}
	return m.writeArtifact("manual", m.artifactPath("manual.txt"), []byte(manifest))
}

func (m *Manager) writeArtifact(name, path string, data []byte) (Artifact, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create backup directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("write %s: %w", path, err)
	}
	m.logger.Info("backup artifact written",
		logging.String("artifact", name),
		logging.String("path", path),
		logging.Int("bytes", len(data)),
	)
	return Artifact{Name: name, Path: path, Size: int64(len(data))}, nil
}
