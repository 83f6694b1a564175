package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dkorolev/slateboard/internal/common"
	"github.com/dkorolev/slateboard/internal/logging"
	"github.com/dkorolev/slateboard/internal/server/models"
	"github.com/dkorolev/slateboard/internal/server/repositories/repomanager"
	"github.com/dkorolev/slateboard/internal/server/storage"
)

// SavedUpload describes one accepted upload after its bytes reached the
// blob store: the storage key, plus the metadata kept for serving.
type SavedUpload struct {
	StoragePath  string
	OriginalName string
	MimeType     string
	Size         int64
}

// AttachmentService accepts uploads into the blob store and streams stored
// files back out.
type AttachmentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       storage.BlobStore
	mediaDir    string
	maxBytes    int64
	maxFiles    int
	logger      logging.Logger
}

func NewAttachmentService(db *sql.DB, rm repomanager.RepositoryManager, blobs storage.BlobStore,
	mediaDir string, maxBytes int64, maxFiles int, logger logging.Logger) *AttachmentService {
	return &AttachmentService{
		db:          db,
		repomanager: rm,
		blobs:       blobs,
		mediaDir:    mediaDir,
		maxBytes:    maxBytes,
		maxFiles:    maxFiles,
		logger:      logger.With("module", "attachments"),
	}
}

// generateUploadName assigns the collision-resistant stored name: upload
// time in unix milliseconds, a random hex suffix and the original extension.
// The user-supplied name never reaches the filesystem.
func generateUploadName(originalName string) (string, error) {
	suffix, err := common.MakeRandHexString(8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), suffix, filepath.Ext(originalName)), nil
}

// AcceptUploads persists up to maxFiles multipart file parts to the blob
// store. Parts beyond the limit are dropped, not rejected. Content type and
// extension are deliberately unrestricted; only the size ceiling applies.
func (s *AttachmentService) AcceptUploads(ctx context.Context, parts []*multipart.FileHeader) ([]SavedUpload, error) {
	if len(parts) > s.maxFiles {
		parts = parts[:s.maxFiles]
	}

	saved := make([]SavedUpload, 0, len(parts))
	for _, part := range parts {
		if part.Size > s.maxBytes {
			return nil, fmt.Errorf("file %q exceeds the %d byte limit: %w", part.Filename, s.maxBytes, common.ErrValidation)
		}

		name, err := generateUploadName(part.Filename)
		if err != nil {
			return nil, fmt.Errorf("naming upload: %w", common.ErrStorage)
		}

		src, err := part.Open()
		if err != nil {
			return nil, fmt.Errorf("opening upload: %w", common.ErrStorage)
		}

		key, err := s.blobs.Save(ctx, name, src)
		_ = src.Close()
		if err != nil {
			s.logger.Error(ctx, "blob write failed", "name", name, "error", err.Error())
			return nil, fmt.Errorf("storing upload: %w", common.ErrStorage)
		}

		mimeType := part.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}

		saved = append(saved, SavedUpload{
			StoragePath:  key,
			OriginalName: part.Filename,
			MimeType:     mimeType,
			Size:         part.Size,
		})
	}

	return saved, nil
}

// Serve resolves file metadata by id and opens the stored blob. The caller
// owns the returned reader and derives the response disposition from the
// metadata (inline for image/*, download with the original name otherwise).
func (s *AttachmentService) Serve(ctx context.Context, fileID int64) (*models.File, io.ReadCloser, error) {
	file, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.blobs.Open(ctx, file.StoragePath)
	if err != nil {
		s.logger.Error(ctx, "blob read failed", "file_id", fileID, "path", file.StoragePath, "error", err.Error())
		return nil, nil, fmt.Errorf("opening stored file: %w", common.ErrStorage)
	}

	return file, rc, nil
}

// ListGifs names the .gif files in the static media directory.
func (s *AttachmentService) ListGifs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.mediaDir)
	if err != nil {
		return nil, fmt.Errorf("reading media directory: %w", common.ErrStorage)
	}

	gifs := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".gif") {
			gifs = append(gifs, e.Name())
		}
	}
	return gifs, nil
}
