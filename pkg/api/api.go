// Package api exposes the HTTP surface of the server: session
// endpoints, member registration and profile management, and the
// video lifecycle.
//
// The route table is declared once in [API.routes] and feeds both the
// request mux and the access policy, so a route can never be public
// to one and protected to the other. Handlers run strictly after the
// auth middleware; owner-scoped handlers can assume the ownership
// check already passed and treat a missing row as their only failure
// mode.
package api

import (
	"context"
	"net/http"

	"github.com/vidhive/vidhive-server/pkg/auth"
	"github.com/vidhive/vidhive-server/pkg/models"
	"github.com/vidhive/vidhive-server/pkg/service"
	"github.com/vidhive/vidhive-server/pkg/store"
)

// SessionService is the slice of the auth session service this API
// uses.
type SessionService interface {
	Login(ctx context.Context, subject, password string) (*auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
	Logout(ctx context.Context) error
}

// MemberService is the slice of the member service this API uses.
type MemberService interface {
	Register(ctx context.Context, req service.RegisterRequest, profile *service.File) (*models.Member, error)
	CheckDuplicate(ctx context.Context, memberID string) (bool, error)
	GetMyInfo(ctx context.Context, memberID string) (*models.Member, error)
	UpdateMyInfo(ctx context.Context, memberID string, req service.UpdateMyInfoRequest, profile *service.File) error
	UpdatePassword(ctx context.Context, memberID string, req service.UpdatePasswordRequest) error
	Withdraw(ctx context.Context, memberID, reason string) error
}

// VideoService is the slice of the video service this API uses.
type VideoService interface {
	ListPublished(ctx context.Context, page store.Page) ([]*models.Video, error)
	GetPublished(ctx context.Context, seq int64) (*models.Video, error)
	ListMine(ctx context.Context, memberID string, page store.Page) ([]*models.Video, error)
	GetMine(ctx context.Context, seq int64) (*models.Video, error)
	Upload(ctx context.Context, memberID string, meta service.VideoMetadata, videoFile, thumbnailFile *service.File) (*models.Video, error)
	Update(ctx context.Context, seq int64, meta service.VideoMetadata, videoFile, thumbnailFile *service.File) error
	SetPublished(ctx context.Context, seq int64, published bool) error
	Delete(ctx context.Context, seq int64) error
}

var (
	_ SessionService = (*auth.SessionService)(nil)
	_ MemberService  = (*service.MemberService)(nil)
	_ VideoService   = (*service.VideoService)(nil)
)

// API holds the HTTP handlers and their dependencies.
type API struct {
	sessions SessionService
	members  MemberService
	videos   VideoService
	codec    *auth.Codec
	checker  auth.OwnershipChecker
}

// New creates an API over the given services. The codec and checker
// back the auth middleware built by [API.Handler].
func New(sessions SessionService, members MemberService, videos VideoService, codec *auth.Codec, checker auth.OwnershipChecker) *API {
	return &API{
		sessions: sessions,
		members:  members,
		videos:   videos,
		codec:    codec,
		checker:  checker,
	}
}

// route binds one method and pattern to its handler and its access
// requirement.
type route struct {
	method      string
	pattern     string
	requirement auth.Requirement
	kind        auth.ResourceKind
	handler     http.HandlerFunc
}

func (a *API) routes() []route {
	return []route{
		{http.MethodPost, "/api/auth/login", auth.RequirePublic, "", a.handleLogin},
		{http.MethodPost, "/api/auth/refresh", auth.RequirePublic, "", a.handleRefresh},
		{http.MethodPost, "/api/auth/logout", auth.RequireAuthenticated, "", a.handleLogout},

		{http.MethodPost, "/api/members", auth.RequirePublic, "", a.handleRegister},
		{http.MethodGet, "/api/members/{id}/duplicate", auth.RequirePublic, "", a.handleCheckDuplicate},
		{http.MethodGet, "/api/me/members", auth.RequireAuthenticated, "", a.handleGetMyInfo},
		{http.MethodPut, "/api/me/members", auth.RequireAuthenticated, "", a.handleUpdateMyInfo},
		{http.MethodPut, "/api/me/members/password", auth.RequireAuthenticated, "", a.handleUpdatePassword},
		{http.MethodDelete, "/api/me/members", auth.RequireAuthenticated, "", a.handleWithdraw},

		{http.MethodGet, "/api/movies", auth.RequirePublic, "", a.handleListPublished},
		{http.MethodGet, "/api/movies/{id}", auth.RequirePublic, "", a.handleGetPublished},
		{http.MethodPost, "/api/me/movies", auth.RequireAuthenticated, "", a.handleUploadVideo},
		{http.MethodGet, "/api/me/movies", auth.RequireAuthenticated, "", a.handleListMyVideos},
		{http.MethodGet, "/api/me/movies/{id}", auth.RequireOwner, auth.ResourceKindVideo, a.handleGetMyVideo},
		{http.MethodPut, "/api/me/movies/{id}", auth.RequireOwner, auth.ResourceKindVideo, a.handleUpdateVideo},
		{http.MethodDelete, "/api/me/movies/{id}", auth.RequireOwner, auth.ResourceKindVideo, a.handleDeleteVideo},
		{http.MethodPut, "/api/me/movies/{id}/publish", auth.RequireOwner, auth.ResourceKindVideo, a.handleTogglePublish},
	}
}

// Handler builds the routed handler wrapped in the auth middleware.
// The same table registers every mux pattern and every policy rule.
func (a *API) Handler() (http.Handler, error) {
	routes := a.routes()

	mux := http.NewServeMux()
	rules := make([]auth.Rule, 0, len(routes))
	for _, rt := range routes {
		mux.HandleFunc(rt.method+" "+rt.pattern, rt.handler)
		rules = append(rules, auth.Rule{
			Method:       rt.method,
			Pattern:      rt.pattern,
			Requirement:  rt.requirement,
			ResourceKind: rt.kind,
		})
	}

	policy, err := auth.NewPolicy(rules, a.checker)
	if err != nil {
		return nil, err
	}

	middleware := auth.Middleware(a.codec, policy, auth.WithErrorRenderer(renderError))
	return middleware(mux), nil
}
