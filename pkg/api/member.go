package api

import (
	"fmt"
	"net/http"

	"github.com/vidhive/vidhive-server/pkg/auth"
	"github.com/vidhive/vidhive-server/pkg/service"
)

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := parseMultipart(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	profile, cleanup, err := formFile(r, "profileImage")
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer cleanup()

	m, err := a.members.Register(r.Context(), req, profile)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/members/%d", m.Seq))
	writeSuccess(w, http.StatusCreated, "member registered", m.Seq)
}

func (a *API) handleCheckDuplicate(w http.ResponseWriter, r *http.Request) {
	taken, err := a.members.CheckDuplicate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	message := "member id is available"
	if taken {
		message = "member id is already in use"
	}
	writeSuccess(w, http.StatusOK, message, taken)
}

func (a *API) handleGetMyInfo(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipalFromContext(r.Context())

	m, err := a.members.GetMyInfo(r.Context(), principal.Subject)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "member info retrieved", toMemberResponse(m))
}

func (a *API) handleUpdateMyInfo(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipalFromContext(r.Context())

	var req service.UpdateMyInfoRequest
	if err := parseMultipart(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	profile, cleanup, err := formFile(r, "profileImage")
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer cleanup()

	if err := a.members.UpdateMyInfo(r.Context(), principal.Subject, req, profile); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "member info updated", nil)
}

func (a *API) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipalFromContext(r.Context())

	var req service.UpdatePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := a.members.UpdatePassword(r.Context(), principal.Subject, req); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "password updated", nil)
}

type withdrawRequest struct {
	Reason string `json:"reason"`
}

func (a *API) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustPrincipalFromContext(r.Context())

	// The body is optional; withdrawing without a reason is fine.
	var req withdrawRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	if err := a.members.Withdraw(r.Context(), principal.Subject, req.Reason); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "member withdrawn", nil)
}
