package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dkorolev/slateboard/internal/common"
	"github.com/dkorolev/slateboard/internal/dbx"
	"github.com/dkorolev/slateboard/internal/logging"
	"github.com/dkorolev/slateboard/internal/server/models"
	"github.com/dkorolev/slateboard/internal/server/repositories/repomanager"
)

// DefaultPerPage is the feed page size when the client does not ask for one.
const DefaultPerPage = 50

// BoardService owns posts, comments, topic links and the feed aggregation.
type BoardService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewBoardService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *BoardService {
	return &BoardService{
		db:          db,
		repomanager: rm,
		logger:      logger.With("module", "board"),
	}
}

// CreatePost persists a post for userID and, when topic is non-empty,
// attaches the single allowed topic. Topic lazy-create and link run in one
// transaction so a concurrent first use of a new topic name cannot race.
func (s *BoardService) CreatePost(ctx context.Context, userID int64, content, topic string) (int64, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return 0, fmt.Errorf("post content is required: %w", common.ErrValidation)
	}

	post := &models.Post{
		UserID:    userID,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}

	postID, err := s.repomanager.Posts(s.db).Create(ctx, post)
	if err != nil {
		return 0, fmt.Errorf("creating post: %w", common.ErrStorage)
	}

	if topic = strings.TrimSpace(topic); topic != "" {
		err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return s.repomanager.Posts(tx).AttachTopic(ctx, postID, topic)
		})
		if err != nil {
			return 0, err
		}
	}

	return postID, nil
}

// CreateComment persists a comment under postID. The referenced post must
// exist; a dangling reference is rejected rather than left to foreign-key
// enforcement so the caller gets a clean not-found instead of a driver error.
func (s *BoardService) CreateComment(ctx context.Context, userID, postID int64, content string) (int64, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return 0, fmt.Errorf("comment content is required: %w", common.ErrValidation)
	}
	if postID <= 0 {
		return 0, fmt.Errorf("valid post id is required: %w", common.ErrValidation)
	}

	exists, err := s.repomanager.Posts(s.db).Exists(ctx, postID)
	if err != nil {
		return 0, fmt.Errorf("checking post: %w", common.ErrStorage)
	}
	if !exists {
		return 0, fmt.Errorf("post not found: %w", common.ErrNotFound)
	}

	comment := &models.Comment{
		PostID:    postID,
		UserID:    userID,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}

	id, err := s.repomanager.Comments(s.db).Create(ctx, comment)
	if err != nil {
		return 0, fmt.Errorf("creating comment: %w", common.ErrStorage)
	}
	return id, nil
}

// AttachFiles inserts one file row per saved upload, all concurrently, and
// waits for the batch. Any failed insert fails the whole call with a single
// storage error; blobs already written stay behind (an accepted leak, not a
// correctness problem).
func (s *BoardService) AttachFiles(ctx context.Context, owner models.FileOwner, ownerID int64, uploads []SavedUpload) error {
	if len(uploads) == 0 {
		return nil
	}

	errs := make(chan error, len(uploads))
	var wg sync.WaitGroup
	for _, u := range uploads {
		wg.Add(1)
		go func(u SavedUpload) {
			defer wg.Done()

			file := &models.File{
				FileName:    u.OriginalName,
				StoragePath: u.StoragePath,
				MimeType:    u.MimeType,
			}
			switch owner {
			case models.OwnerComment:
				file.CommentID = ownerID
			default:
				file.PostID = ownerID
			}

			if _, err := s.repomanager.Files(s.db).Create(ctx, file); err != nil {
				errs <- err
			}
		}(u)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.logger.Error(ctx, "attachment insert failed", "owner", string(owner), "owner_id", ownerID, "error", err.Error())
		return fmt.Errorf("saving attachments: %w", common.ErrStorage)
	}
	return nil
}

// ListFeed assembles one page of the nested post/comment/file document.
// Posts come newest-first; comments oldest-first under their post. Comments
// and files are fetched scoped to the page's post ids and joined in memory.
func (s *BoardService) ListFeed(ctx context.Context, page, perPage int, topic string) (*models.Feed, error) {
	if perPage <= 0 {
		return nil, fmt.Errorf("perPage must be positive: %w", common.ErrValidation)
	}
	if page < 1 {
		page = 1
	}
	topic = strings.TrimSpace(topic)

	postRepo := s.repomanager.Posts(s.db)

	total, err := postRepo.Count(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("counting posts: %w", common.ErrStorage)
	}
	totalPages := (total + perPage - 1) / perPage

	posts, err := postRepo.SelectPage(ctx, perPage, (page-1)*perPage, topic)
	if err != nil {
		return nil, fmt.Errorf("selecting posts: %w", common.ErrStorage)
	}

	postIDs := make([]int64, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	comments, err := s.repomanager.Comments(s.db).SelectByPostIDs(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("selecting comments: %w", common.ErrStorage)
	}

	commentIDs := make([]int64, len(comments))
	for i, c := range comments {
		commentIDs[i] = c.ID
	}

	fileRepo := s.repomanager.Files(s.db)

	postFiles, err := fileRepo.SelectByPostIDs(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("selecting post files: %w", common.ErrStorage)
	}
	commentFiles, err := fileRepo.SelectByCommentIDs(ctx, commentIDs)
	if err != nil {
		return nil, fmt.Errorf("selecting comment files: %w", common.ErrStorage)
	}

	filesByPost := map[int64][]models.FeedFile{}
	for _, f := range postFiles {
		filesByPost[f.PostID] = append(filesByPost[f.PostID], models.FeedFile{
			ID: f.ID, FileName: f.FileName, MimeType: f.MimeType,
		})
	}
	filesByComment := map[int64][]models.FeedFile{}
	for _, f := range commentFiles {
		filesByComment[f.CommentID] = append(filesByComment[f.CommentID], models.FeedFile{
			ID: f.ID, FileName: f.FileName, MimeType: f.MimeType,
		})
	}

	commentsByPost := map[int64][]models.FeedComment{}
	for _, c := range comments {
		if files, ok := filesByComment[c.ID]; ok {
			c.Files = files
		}
		commentsByPost[c.PostID] = append(commentsByPost[c.PostID], c)
	}

	for i := range posts {
		posts[i].Files = filesByPost[posts[i].ID]
		if posts[i].Files == nil {
			posts[i].Files = []models.FeedFile{}
		}
		posts[i].Comments = commentsByPost[posts[i].ID]
		if posts[i].Comments == nil {
			posts[i].Comments = []models.FeedComment{}
		}
	}

	return &models.Feed{
		Posts:      posts,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}
