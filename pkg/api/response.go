package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"

	"github.com/vidhive/vidhive-server/pkg/models"
)

// envelope is the body of every successful response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// errorBody is the body of every failed response. Auth middleware
// failures and handler failures render identically.
type errorBody struct {
	Success bool       `json:"success"`
	Code    vherr.Code `json:"code"`
	Message string     `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("api: failed to encode response", "error", err)
	}
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// renderError writes err with the status derived from its code. It is
// also installed as the auth middleware's renderer, so every failure
// leaving the server has this one shape.
func renderError(w http.ResponseWriter, r *http.Request, err *vherr.Error) {
	writeJSON(w, err.HTTPStatus(), errorBody{
		Success: false,
		Code:    err.Code,
		Message: err.Message,
	})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	renderError(w, r, vherr.FromError(err))
}

// memberResponse is the client view of a member. The password hash
// and the withdrawal bookkeeping never leave the server.
type memberResponse struct {
	MemberID    string `json:"memberId"`
	MemberName  string `json:"memberName"`
	ProfilePath string `json:"profilePath"`
	MemberInfo  string `json:"memberInfo"`
}

func toMemberResponse(m *models.Member) memberResponse {
	return memberResponse{
		MemberID:    m.MemberID,
		MemberName:  m.Name,
		ProfilePath: m.ProfilePath,
		MemberInfo:  m.Info,
	}
}

// videoResponse is the client view of a video.
type videoResponse struct {
	VideoSeq      int64     `json:"videoSeq"`
	MemberID      string    `json:"memberId"`
	VideoPath     string    `json:"videoPath"`
	ThumbnailPath string    `json:"thumbnailPath"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Published     bool      `json:"published"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toVideoResponse(v *models.Video) videoResponse {
	return videoResponse{
		VideoSeq:      v.Seq,
		MemberID:      v.MemberID,
		VideoPath:     v.VideoPath,
		ThumbnailPath: v.ThumbnailPath,
		Title:         v.Title,
		Content:       v.Content,
		Published:     v.Published,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
}

func toVideoResponses(videos []*models.Video) []videoResponse {
	out := make([]videoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, toVideoResponse(v))
	}
	return out
}
