package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dkorolev/slateboard/internal/server/models"
	"github.com/dkorolev/slateboard/internal/server/services"
)

// multipartMemoryLimit is how much of a multipart body stays in memory
// before spilling to temp files; it is not an upload size cap.
const multipartMemoryLimit = 32 << 20

func (s *Server) handleGenerateKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Moniker string `json:"moniker"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reg, err := s.identity.Register(r.Context(), req.Moniker)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"moniker":    reg.Moniker,
		"publicKey":  reg.PublicKey,
		"privateKey": reg.PrivateKey,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PrivateKey string `json:"privateKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.identity.Authenticate(r.Context(), req.PrivateKey)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	token, err := s.identity.SessionToken(user.ID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.identity.SessionValidity().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "redirect": "/board"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "redirect": "/"})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.identity.GetUser(r.Context(), userID(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"moniker":   user.Moniker,
		"publicKey": user.PublicKey,
	})
}

// queryInt parses an integer query parameter. Absent or unparseable values
// fall back to def; out-of-range numbers are left for the service to judge.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "perPage", services.DefaultPerPage)
	topic := r.URL.Query().Get("topic")

	feed, err := s.board.ListFeed(r.Context(), page, perPage, topic)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, feed)
}

func (s *Server) formFiles(r *http.Request) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	return r.MultipartForm.File["files"]
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	uploads, err := s.attachments.AcceptUploads(r.Context(), s.formFiles(r))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	postID, err := s.board.CreatePost(r.Context(), userID(r.Context()),
		r.FormValue("content"), r.FormValue("topic"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	if err := s.board.AttachFiles(r.Context(), models.OwnerPost, postID, uploads); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	// A malformed postId flows through as zero and fails validation there.
	postID, _ := strconv.ParseInt(r.FormValue("postId"), 10, 64)

	uploads, err := s.attachments.AcceptUploads(r.Context(), s.formFiles(r))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	commentID, err := s.board.CreateComment(r.Context(), userID(r.Context()),
		postID, r.FormValue("content"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	if err := s.board.AttachFiles(r.Context(), models.OwnerComment, commentID, uploads); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.ParseInt(chi.URLParam(r, "fileID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	file, rc, err := s.attachments.Serve(r.Context(), fileID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", file.MimeType)
	if strings.HasPrefix(file.MimeType, "image/") {
		w.Header().Set("Content-Disposition", "inline")
	} else {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	}

	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error(r.Context(), "streaming file failed", "file_id", fileID, "error", err.Error())
	}
}

func (s *Server) handleListGifs(w http.ResponseWriter, r *http.Request) {
	gifs, err := s.attachments.ListGifs(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "gifs": gifs})
}
