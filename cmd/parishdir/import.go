package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kapu/parish-directory-go/internal/constants"
	"github.com/kapu/parish-directory-go/internal/directory"
	"github.com/kapu/parish-directory-go/internal/domain"
	"github.com/kapu/parish-directory-go/internal/service/contentstore"
	"github.com/kapu/parish-directory-go/internal/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	importDataFile  string
	importPhotosDir string
	importWorkers   int
	importDryRun    bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the legacy local member file into the store",
	Long: `Merge the members of a legacy parish_members.json (and their photos from
member_photos/) into the directory document.

Members already present with the same name and phone are skipped. Photos are
uploaded first, then the document is written once. With --dry-run everything
runs against an in-memory copy of the current document and nothing is written.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importDataFile, "data", constants.ImportConfig.LegacyDataFile, "legacy member file")
	importCmd.Flags().StringVar(&importPhotosDir, "photos", constants.ImportConfig.LegacyPhotosDir, "legacy photo folder")
	importCmd.Flags().IntVar(&importWorkers, "workers", constants.ImportConfig.UploadWorkers, "concurrent photo uploads")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "run against an in-memory copy of the store")
}

func runImport(cmd *cobra.Command, args []string) error {
	records, err := readLegacyMembers(importDataFile)
	if err != nil {
		return err
	}

	container, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	logger := container.Logger
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sess, err := operatorSession(container)
	if err != nil {
		return err
	}

	repo := container.Repository
	snap := repo.Load(ctx)
	if !snap.Available() {
		return fmt.Errorf("current directory is unavailable: %w", snap.Err)
	}

	if importDryRun {
		repo, snap, err = dryRunRepository(container.Config.Directory.TimeZone, repo, snap, logger)
		if err != nil {
			return err
		}
		logger.Info("Dry run: changes go to an in-memory copy only")
	}

	merged, summary, err := repo.ImportMembers(sess, snap.Document, records)
	if err != nil {
		return err
	}

	added := merged.Members[len(snap.Document.Members):]
	photos := collectPhotos(added, importPhotosDir, logger)

	results, err := repo.UploadPhotos(ctx, sess, photos, importWorkers)
	if err != nil {
		return err
	}
	failed := make(map[string]bool)
	for _, res := range results {
		if res.Outcome == directory.PhotoFailed {
			failed[res.Filename] = true
			logger.Warn("Photo upload failed", zap.String("filename", res.Filename), zap.Error(res.Err))
		}
	}
	for i := range added {
		if failed[added[i].Photo] {
			added[i].Photo = ""
		}
	}

	token, err := repo.Persist(ctx, sess, merged, snap.Token)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d members (%d skipped), %d photos (%d failed). Version %s\n",
		summary.Added, summary.Skipped, len(photos), len(failed), token)
	return nil
}

// readLegacyMembers accepts the old list layout as well as a full directory document.
func readLegacyMembers(path string) ([]domain.Member, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var members []domain.Member
		if err := json.Unmarshal(trimmed, &members); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return members, nil
	}

	doc, err := domain.ParseDocument(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc.Members, nil
}

// collectPhotos reads the photo file of every member that names one. Members whose file is
// missing lose the reference.
func collectPhotos(members []domain.Member, dir string, logger *zap.Logger) []directory.PhotoFile {
	var photos []directory.PhotoFile
	for i := range members {
		m := &members[i]
		if !m.HasPhoto() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, filepath.Base(m.Photo)))
		if err != nil {
			logger.Warn("Legacy photo missing", zap.String("member", m.Name), zap.String("photo", m.Photo), zap.Error(err))
			m.Photo = ""
			continue
		}
		m.Photo = filepath.Base(m.Photo)
		photos = append(photos, directory.PhotoFile{Filename: m.Photo, Data: data})
	}
	return photos
}

// dryRunRepository copies the current document into a MemoryStore and returns a repository
// over that copy.
func dryRunRepository(timezone string, live *directory.Repository, snap *directory.Snapshot, logger *zap.Logger) (*directory.Repository, *directory.Snapshot, error) {
	mem := contentstore.NewMemoryStore()
	if snap.Status == directory.StatusOK {
		data, err := snap.Document.Marshal()
		if err != nil {
			return nil, nil, err
		}
		mem.Seed(live.DataPath(), data)
	}

	repo := directory.NewRepository(mem, nil, directory.Config{
		DataPath:   live.DataPath(),
		PhotosPath: live.PhotoPath(""),
	}, util.NewClock(util.LoadLocation(timezone)), logger)
	return repo, repo.Load(context.Background()), nil
}
