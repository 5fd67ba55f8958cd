package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"hatimgo/internal/app"
	"hatimgo/internal/ratelimit"
	"hatimgo/internal/util"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	ClaimLimiter   *ratelimit.ClaimLimiter
	TrustedProxies *util.TrustedProxies
}

// Server exposes HTTP endpoints for the hatim service.
type Server struct {
	app          *app.App
	claimLimiter *ratelimit.ClaimLimiter
	trusted      *util.TrustedProxies
	mux          *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server requires an app")
	}
	s := &Server{
		app:          cfg.App,
		claimLimiter: cfg.ClaimLimiter,
		trusted:      cfg.TrustedProxies,
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("hatim", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// hatims
	s.mux.HandleFunc("/hatims", s.handleHatims)
	s.mux.HandleFunc("/hatims/", s.handleHatimByID)

	// pieces claimed by one participant
	s.mux.HandleFunc("/users/", s.handleUserPieces)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHatims(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateHatim(w, r)
	case http.MethodGet:
		s.handleListHatims(w, r)
	default:
		methodNotAllowed(w)
	}
}

type createHatimRequest struct {
	CreatorID int64 `json:"creatorId"`
}

func (s *Server) handleCreateHatim(w http.ResponseWriter, r *http.Request) {
	var req createHatimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	hatim, err := s.app.CreateHatim(req.CreatorID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, hatim)
}

func (s *Server) handleListHatims(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if rawCreator := strings.TrimSpace(query.Get("creatorId")); rawCreator != "" {
		creatorID, err := strconv.ParseInt(rawCreator, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid creatorId")
			return
		}
		hatims, err := s.app.ListHatimsByCreator(creatorID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeList(w, hatims)
		return
	}

	offset, ok := parseIntParam(w, query.Get("offset"), "invalid offset")
	if !ok {
		return
	}
	limit, ok := parseIntParam(w, query.Get("limit"), "invalid limit")
	if !ok {
		return
	}
	hatims, err := s.app.ListHatims(offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeList(w, hatims)
}

// /hatims/{id}, /hatims/{id}/pieces, /hatims/{id}/pieces/{index}[/read|/unread]
func (s *Server) handleHatimByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/hatims/")
	parts := strings.Split(path, "/")
	hatimID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || parts[0] == "" {
		notFound(w, "not found")
		return
	}

	switch {
	case len(parts) == 1:
		s.handleHatim(w, r, hatimID)
	case parts[1] != "pieces":
		notFound(w, "not found")
	case len(parts) == 2:
		s.handlePieces(w, r, hatimID)
	default:
		pieceIndex, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			notFound(w, "not found")
			return
		}
		switch {
		case len(parts) == 3:
			s.handlePieceBySlot(w, r, hatimID, pieceIndex)
		case len(parts) == 4 && (parts[3] == "read" || parts[3] == "unread"):
			s.handleMarkPiece(w, r, hatimID, pieceIndex, parts[3] == "read")
		default:
			notFound(w, "not found")
		}
	}
}

func (s *Server) handleHatim(w http.ResponseWriter, r *http.Request, hatimID int64) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	deleted, err := s.app.DeleteHatim(hatimID)
	if err != nil {
		if errors.Is(err, app.ErrHatimNotFound) {
			notFound(w, "hatim not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Server) handlePieces(w http.ResponseWriter, r *http.Request, hatimID int64) {
	switch r.Method {
	case http.MethodPost:
		s.handleClaimPiece(w, r, hatimID)
	case http.MethodGet:
		pieces, err := s.app.ListPiecesByHatim(hatimID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeList(w, pieces)
	default:
		methodNotAllowed(w)
	}
}

type claimPieceRequest struct {
	PieceIndex int64 `json:"pieceIndex"`
	UserID     int64 `json:"userId"`
}

func (s *Server) handleClaimPiece(w http.ResponseWriter, r *http.Request, hatimID int64) {
	if s.claimLimiter != nil && !s.claimLimiter.Allow(util.ClientIP(r, s.trusted)) {
		writeError(w, http.StatusTooManyRequests, "too many claims")
		return
	}
	var req claimPieceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	piece, err := s.app.ClaimPiece(hatimID, req.PieceIndex, req.UserID)
	if err != nil {
		var claimed *app.AlreadyClaimedError
		if errors.As(err, &claimed) {
			writeError(w, http.StatusConflict, claimed.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, piece)
}

func (s *Server) handlePieceBySlot(w http.ResponseWriter, r *http.Request, hatimID, pieceIndex int64) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	userID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("userId")), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId")
		return
	}
	released, err := s.app.ReleasePiece(hatimID, pieceIndex, userID)
	if err != nil {
		if errors.Is(err, app.ErrPieceNotFound) {
			notFound(w, "hatim piece not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"released": released})
}

type markPieceRequest struct {
	UserID int64 `json:"userId"`
}

func (s *Server) handleMarkPiece(w http.ResponseWriter, r *http.Request, hatimID, pieceIndex int64, read bool) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req markPieceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	mark := s.app.MarkPieceRead
	if !read {
		mark = s.app.MarkPieceUnread
	}
	piece, err := mark(hatimID, pieceIndex, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrPieceNotFound):
			notFound(w, "hatim piece not found")
		case errors.Is(err, app.ErrAmbiguousPiece):
			writeError(w, http.StatusInternalServerError, "piece state is ambiguous")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, piece)
}

// /users/{id}/pieces
func (s *Server) handleUserPieces(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/users/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "pieces" {
		notFound(w, "not found")
		return
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		notFound(w, "not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	pieces, err := s.app.ListPiecesByUser(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeList(w, pieces)
}

func parseIntParam(w http.ResponseWriter, raw, errMsg string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, errMsg)
		return 0, false
	}
	return n, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}

func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCodeForHatim(status, msg),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func errorCodeForHatim(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "hatim not found":
		return "HATIM_NOT_FOUND"
	case message == "hatim piece not found":
		return "HATIM_PIECE_NOT_FOUND"
	case strings.Contains(message, "already selected"):
		return "HATIM_PIECE_ALREADY_CLAIMED"
	case message == "piece state is ambiguous":
		return "HATIM_PIECE_AMBIGUOUS"
	case message == "too many claims":
		return "HATIM_CLAIM_RATE_LIMITED"
	case message == "invalid json body":
		return "HATIM_INVALID_REQUEST"
	case message == "method not allowed":
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case message == "not found":
		return "SYSTEM_NOT_FOUND"
	}

	switch status {
	case http.StatusBadRequest:
		return "HATIM_INVALID_REQUEST"
	case http.StatusNotFound:
		return "HATIM_NOT_FOUND"
	case http.StatusConflict:
		return "HATIM_PIECE_ALREADY_CLAIMED"
	case http.StatusTooManyRequests:
		return "HATIM_CLAIM_RATE_LIMITED"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	default:
		if status >= http.StatusInternalServerError {
			return "SYSTEM_INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}
