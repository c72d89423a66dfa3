package api

import (
	"fmt"
	"net/http"

	"github.com/vidhive/vidhive-server/pkg/auth"
	"github.com/vidhive/vidhive-server/pkg/service"
)

func (a *API) handleListPublished(w http.ResponseWriter, r *http.Request) {
	videos, err := a.videos.ListPublished(r.Context(), parsePage(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "videos retrieved", toVideoResponses(videos))
}

func (a *API) handleGetPublished(w http.ResponseWriter, r *http.Request) {
	seq, err := pathSeq(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	v, err := a.videos.GetPublished(r.Context(), seq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "video retrieved", toVideoResponse(v))
}

func (a *API) handleUploadVideo(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipalFromContext(r.Context())

	var meta service.VideoMetadata
	if err := parseMultipart(r, &meta); err != nil {
		writeError(w, r, err)
		return
	}

	videoFile, videoCleanup, err := formFile(r, "videoFile")
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer videoCleanup()

	thumbnailFile, thumbCleanup, err := formFile(r, "thumbnailFile")
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer thumbCleanup()

	v, err := a.videos.Upload(r.Context(), principal.Subject, meta, videoFile, thumbnailFile)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/movies/%d", v.Seq))
	writeSuccess(w, http.StatusCreated, "video uploaded", v.Seq)
}

func (a *API) handleListMyVideos(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipalFromContext(r.Context())

	videos, err := a.videos.ListMine(r.Context(), principal.Subject, parsePage(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "videos retrieved", toVideoResponses(videos))
}

func (a *API) handleGetMyVideo(w http.ResponseWriter, r *http.Request) {
	seq, err := pathSeq(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	v, err := a.videos.GetMine(r.Context(), seq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "video retrieved", toVideoResponse(v))
}

func (a *API) handleUpdateVideo(w http.ResponseWriter, r *http.Request) {
	seq, err := pathSeq(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var meta service.VideoMetadata
	if err := parseMultipart(r, &meta); err != nil {
		writeError(w, r, err)
		return
	}

	videoFile, videoCleanup, err := formFile(r, "videoFile")
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer videoCleanup()

	thumbnailFile, thumbCleanup, err := formFile(r, "thumbnailFile")
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer thumbCleanup()

	if err := a.videos.Update(r.Context(), seq, meta, videoFile, thumbnailFile); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "video updated", nil)
}

func (a *API) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	seq, err := pathSeq(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := a.videos.Delete(r.Context(), seq); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "video deleted", nil)
}

// handleTogglePublish flips the video's published flag and reports
// the new state.
func (a *API) handleTogglePublish(w http.ResponseWriter, r *http.Request) {
	seq, err := pathSeq(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	v, err := a.videos.GetMine(r.Context(), seq)
	if err != nil {
		writeError(w, r, err)
		return
	}

	published := !v.Published
	if err := a.videos.SetPublished(r.Context(), seq, published); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "publish state updated", published)
}
