package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aristath/riskdash/internal/database"
	"github.com/aristath/riskdash/internal/events"
	"github.com/rs/zerolog"
)

const (
	backupFilePrefix    = "riskdash-backup-"
	backupFileSuffix    = ".tar.gz"
	backupTimeLayout    = "2006-01-02-150405"
	metadataFilename    = "backup-metadata.json"
	minBackupsToKeep    = 3
	backupFormatVersion = "1"
)

// Publisher emits domain events
type Publisher interface {
	Emit(module, userID string, data events.EventData)
}

// BackupMetadata is written into every archive
type BackupMetadata struct {
	Timestamp time.Time          `json:"timestamp"`
	Version   string             `json:"version"`
	Databases []DatabaseMetadata `json:"databases"`
}

// DatabaseMetadata describes one database file inside an archive
type DatabaseMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupInfo is a backup found in the object store
type BackupInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// BackupService snapshots the databases into a tar.gz archive and uploads it
type BackupService struct {
	store      ObjectStore
	databases  map[string]*database.DB
	stagingDir string
	prefix     string
	bus        Publisher
	now        func() time.Time
	log        zerolog.Logger
}

// NewBackupService creates a backup service. Archives are staged under
// dataDir and stored under prefix in the object store. bus may be nil.
func NewBackupService(
	store ObjectStore,
	databases map[string]*database.DB,
	dataDir string,
	prefix string,
	bus Publisher,
	log zerolog.Logger,
) *BackupService {
	return &BackupService{
		store:      store,
		databases:  databases,
		stagingDir: filepath.Join(dataDir, "backup-staging"),
		prefix:     strings.Trim(prefix, "/"),
		bus:        bus,
		now:        time.Now,
		log:        log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUploadBackup snapshots every database and uploads one archive.
// It returns the object key of the new backup.
func (s *BackupService) CreateAndUploadBackup(ctx context.Context) (string, error) {
	s.log.Info().Msg("Starting backup")
	startTime := time.Now()

	// Leftovers from an interrupted run would make VACUUM INTO fail
	_ = os.RemoveAll(s.stagingDir)
	if err := os.MkdirAll(s.stagingDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(s.stagingDir)

	names := s.databaseNames()
	metadata := BackupMetadata{
		Timestamp: s.now().UTC(),
		Version:   backupFormatVersion,
		Databases: make([]DatabaseMetadata, 0, len(names)),
	}

	files := make([]string, 0, len(names)+1)
	for _, name := range names {
		filename := name + ".db"
		snapshotPath := filepath.Join(s.stagingDir, filename)

		if err := s.snapshot(s.databases[name], snapshotPath); err != nil {
			return "", fmt.Errorf("failed to snapshot %s: %w", name, err)
		}

		info, err := os.Stat(snapshotPath)
		if err != nil {
			return "", fmt.Errorf("failed to stat %s snapshot: %w", name, err)
		}
		checksum, err := calculateChecksum(snapshotPath)
		if err != nil {
			return "", fmt.Errorf("failed to calculate checksum for %s: %w", name, err)
		}

		metadata.Databases = append(metadata.Databases, DatabaseMetadata{
			Name:      name,
			Filename:  filename,
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
		files = append(files, filename)
	}

	if err := writeMetadata(filepath.Join(s.stagingDir, metadataFilename), metadata); err != nil {
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}
	files = append(files, metadataFilename)

	archiveName := backupFilePrefix + metadata.Timestamp.Format(backupTimeLayout) + backupFileSuffix
	archivePath := filepath.Join(s.stagingDir, archiveName)
	if err := createArchive(archivePath, s.stagingDir, files); err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat archive: %w", err)
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	key := s.key(archiveName)
	if err := s.store.Upload(ctx, key, archiveFile); err != nil {
		return "", err
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("key", key).
		Int64("size_bytes", archiveInfo.Size()).
		Msg("Backup completed")

	if s.bus != nil {
		s.bus.Emit("reliability", "", &events.BackupCompletedData{
			Key:       key,
			SizeBytes: archiveInfo.Size(),
			Databases: names,
		})
	}

	return key, nil
}

// ListBackups lists stored backups, newest first
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, s.key(backupFilePrefix))
	if err != nil {
		return nil, err
	}

	now := s.now()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		base := path.Base(obj.Key)
		if !strings.HasPrefix(base, backupFilePrefix) || !strings.HasSuffix(base, backupFileSuffix) {
			continue
		}

		stamp := strings.TrimSuffix(strings.TrimPrefix(base, backupFilePrefix), backupFileSuffix)
		timestamp, err := time.Parse(backupTimeLayout, stamp)
		if err != nil {
			s.log.Warn().Str("key", obj.Key).Msg("Failed to parse timestamp from backup key")
			continue
		}

		backups = append(backups, BackupInfo{
			Key:       obj.Key,
			Timestamp: timestamp,
			SizeBytes: obj.SizeBytes,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// RotateOldBackups deletes backups older than retentionDays. The newest
// three are always kept, and retentionDays <= 0 keeps everything.
func (s *BackupService) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) <= minBackupsToKeep {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, backup := range backups[minBackupsToKeep:] {
		if !backup.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, backup.Key); err != nil {
			s.log.Error().Err(err).Str("key", backup.Key).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")

	return deleted, nil
}

func (s *BackupService) databaseNames() []string {
	names := make([]string, 0, len(s.databases))
	for name, db := range s.databases {
		if db != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (s *BackupService) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// snapshot writes a consistent copy of db to dest
func (s *BackupService) snapshot(db *database.DB, dest string) error {
	if err := db.WALCheckpoint("TRUNCATE"); err != nil {
		// A busy checkpoint still leaves VACUUM INTO with a consistent view
		s.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
	}
	if _, err := db.Conn().Exec("VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("vacuum into failed: %w", err)
	}
	return nil
}

func calculateChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeMetadata(path string, metadata BackupMetadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

// createArchive packs the named files of sourceDir into a tar.gz
func createArchive(archivePath, sourceDir string, filenames []string) (err error) {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer func() {
		if cerr := archiveFile.Close(); err == nil {
			err = cerr
		}
	}()

	gzipWriter := gzip.NewWriter(archiveFile)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, filename := range filenames {
		if err := addFileToArchive(tarWriter, filepath.Join(sourceDir, filename), filename); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", filename, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}
	return gzipWriter.Close()
}

func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}
	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}

	_, err = io.Copy(tarWriter, file)
	return err
}
