package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type deadlineRepo struct {
	*memRepo
}

func (r deadlineRepo) FindUserByID(ctx context.Context, id int64) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if _, ok := ctx.Deadline(); !ok {
		return User{}, errors.New("lookup without deadline")
	}
	return r.memRepo.FindUserByID(ctx, id)
}

func TestReloadUserIgnoresCallerCancellation(t *testing.T) {
	repo := newMemRepo()
	repo.putUser(User{ID: 7, Email: "hod@campus.test", IsActive: true})
	svc := NewService(ServiceDeps{Repo: deadlineRepo{repo}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	user, err := svc.reloadUser(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), user.ID)
}
