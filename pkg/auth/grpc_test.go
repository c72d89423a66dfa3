package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// invokeUnary runs the interceptor with the given metadata and returns
// the context the handler saw.
func invokeUnary(t *testing.T, interceptor grpc.UnaryServerInterceptor, md metadata.MD, method string) (context.Context, error) {
	t.Helper()

	ctx := context.Background()
	if md != nil {
		ctx = metadata.NewIncomingContext(ctx, md)
	}

	var handlerCtx context.Context
	handler := func(ctx context.Context, req any) (any, error) {
		handlerCtx = ctx
		return "ok", nil
	}

	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: method}, handler)
	return handlerCtx, err
}

func requireGRPCCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok, "error %v is not a gRPC status", err)
	assert.Equal(t, want, st.Code())
}

// ---------------------------------------------------------------------------
// UnaryServerInterceptor tests
// ---------------------------------------------------------------------------

func TestUnaryServerInterceptor_ValidToken(t *testing.T) {
	codec := newTestCodec(t)
	interceptor := UnaryServerInterceptor(codec)

	token, err := codec.Issue("alice", RoleUser, TokenKindAccess)
	require.NoError(t, err)

	md := metadata.Pairs(metadataAuthorization, "Bearer "+token)
	handlerCtx, err := invokeUnary(t, interceptor, md, "/vidhive.v1.VideoService/ListMine")
	require.NoError(t, err)

	p, ok := PrincipalFromContext(handlerCtx)
	require.True(t, ok)
	assert.Equal(t, "alice", p.Subject)
	assert.Equal(t, RoleUser, p.Role)
}

func TestUnaryServerInterceptor_MissingToken(t *testing.T) {
	codec := newTestCodec(t)
	interceptor := UnaryServerInterceptor(codec)

	_, err := invokeUnary(t, interceptor, nil, "/vidhive.v1.VideoService/ListMine")
	requireGRPCCode(t, err, codes.Unauthenticated)
}

func TestUnaryServerInterceptor_PublicMethod_NoToken(t *testing.T) {
	codec := newTestCodec(t)
	interceptor := UnaryServerInterceptor(codec,
		WithPublicMethods("/vidhive.v1.VideoService/ListPublished"))

	handlerCtx, err := invokeUnary(t, interceptor, nil, "/vidhive.v1.VideoService/ListPublished")
	require.NoError(t, err)

	_, ok := PrincipalFromContext(handlerCtx)
	assert.False(t, ok)
}

func TestUnaryServerInterceptor_PublicMethod_InvalidTokenStillRejected(t *testing.T) {
	codec := newTestCodec(t)
	interceptor := UnaryServerInterceptor(codec,
		WithPublicMethods("/vidhive.v1.VideoService/ListPublished"))

	md := metadata.Pairs(metadataAuthorization, "Bearer garbage")
	_, err := invokeUnary(t, interceptor, md, "/vidhive.v1.VideoService/ListPublished")
	requireGRPCCode(t, err, codes.Unauthenticated)
}

func TestUnaryServerInterceptor_RefreshTokenRejected(t *testing.T) {
	codec := newTestCodec(t)
	interceptor := UnaryServerInterceptor(codec)

	token, err := codec.Issue("alice", RoleUser, TokenKindRefresh)
	require.NoError(t, err)

	md := metadata.Pairs(metadataAuthorization, "Bearer "+token)
	_, err = invokeUnary(t, interceptor, md, "/vidhive.v1.VideoService/ListMine")
	requireGRPCCode(t, err, codes.Unauthenticated)
}

func TestUnaryServerInterceptor_MalformedScheme(t *testing.T) {
	codec := newTestCodec(t)
	interceptor := UnaryServerInterceptor(codec)

	md := metadata.Pairs(metadataAuthorization, "Basic dXNlcjpwYXNz")
	_, err := invokeUnary(t, interceptor, md, "/vidhive.v1.VideoService/ListMine")
	requireGRPCCode(t, err, codes.Unauthenticated)
}
