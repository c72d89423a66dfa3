package api

import (
	"net/http"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"
)

// HeaderRefreshToken carries the refresh token on the refresh
// endpoint. Refresh tokens never travel in the Authorization header.
const HeaderRefreshToken = "Refresh-Token"

type loginRequest struct {
	MemberID string `json:"memberId"`
	Password string `json:"memberPw"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := a.sessions.Login(r.Context(), req.MemberID, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "login succeeded", session)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(HeaderRefreshToken)
	if token == "" {
		writeError(w, r, vherr.New(vherr.CodeAuthenticationMissing,
			"refresh token is required"))
		return
	}

	session, err := a.sessions.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "token refreshed", session)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Logout(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "logout succeeded", nil)
}
