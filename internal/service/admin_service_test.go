package service

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/charter-pool/internal/bracket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDefaultAdmin(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	// Without credentials nothing is created.
	require.NoError(t, ts.admins.EnsureDefaultAdmin(ctx, "", ""))
	_, err := ts.admins.Authenticate(ctx, "admin", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, ts.admins.EnsureDefaultAdmin(ctx, "admin", "changeme123"))
	admin, err := ts.admins.Authenticate(ctx, "admin", "changeme123")
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Username)

	// Once an admin exists the defaults are ignored.
	require.NoError(t, ts.admins.EnsureDefaultAdmin(ctx, "other", "changeme123"))
	_, err = ts.admins.Authenticate(ctx, "other", "changeme123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateAdmin(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	testCases := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "Valid", username: "root", password: "longenough"},
		{name: "Duplicate", username: "root", password: "longenough", wantErr: ErrAdminExists},
		{name: "Blank username", username: "  ", password: "longenough", wantErr: bracket.ErrValidation},
		{name: "Short password", username: "ops", password: "short", wantErr: bracket.ErrValidation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			admin, err := ts.admins.CreateAdmin(ctx, tc.username, tc.password)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, tc.password, admin.PasswordHash)
		})
	}
}

func TestChangePassword(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	admin, err := ts.admins.CreateAdmin(ctx, "root", "first-password")
	require.NoError(t, err)

	assert.ErrorIs(t, ts.admins.ChangePassword(ctx, admin.ID, "wrong-password", "second-password"), ErrInvalidCredentials)
	assert.ErrorIs(t, ts.admins.ChangePassword(ctx, admin.ID, "first-password", "short"), bracket.ErrValidation)
	assert.ErrorIs(t, ts.admins.ChangePassword(ctx, uuid.New(), "first-password", "second-password"), ErrNotFound)

	require.NoError(t, ts.admins.ChangePassword(ctx, admin.ID, "first-password", "second-password"))

	_, err = ts.admins.Authenticate(ctx, "root", "first-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = ts.admins.Authenticate(ctx, "root", "second-password")
	assert.NoError(t, err)
}
