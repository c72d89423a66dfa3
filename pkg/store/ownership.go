package store

import (
	"context"
	"strconv"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"

	"github.com/vidhive/vidhive-server/pkg/auth"
)

// Ownership resolves resource ownership for the access policy. It
// answers (false, nil) for resources that do not exist or whose id
// does not parse, so a denied caller cannot tell a missing video from
// someone else's video.
type Ownership struct {
	videos *VideoStore
}

// NewOwnership creates an Ownership over the video store.
func NewOwnership(videos *VideoStore) *Ownership {
	return &Ownership{videos: videos}
}

var _ auth.OwnershipChecker = (*Ownership)(nil)

// IsOwner implements [auth.OwnershipChecker].
func (o *Ownership) IsOwner(ctx context.Context, kind auth.ResourceKind, resourceID, subject string) (bool, error) {
	if kind != auth.ResourceKindVideo {
		return false, vherr.Newf(vherr.CodeInternal, "store: unknown resource kind %q", kind)
	}

	seq, err := strconv.ParseInt(resourceID, 10, 64)
	if err != nil {
		return false, nil
	}

	owner, err := o.videos.OwnerSubject(ctx, seq)
	if err != nil {
		if vherr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return owner == subject, nil
}
