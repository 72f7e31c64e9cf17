package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukikurage/teamwork-api/internal/config"
	apierrors "github.com/yukikurage/teamwork-api/internal/errors"
	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/patch"
	"github.com/yukikurage/teamwork-api/internal/repository"
	"github.com/yukikurage/teamwork-api/internal/tokens"
)

func newTestIssuer() *tokens.Issuer {
	return tokens.NewIssuer(config.JWTConfig{
		Secret:        "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	})
}

func signup(t *testing.T, svc *AuthService, email string) *models.User {
	t.Helper()

	user, err := svc.Signup(context.Background(), SignupInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  "Password123",
	})
	require.NoError(t, err)
	return user
}

func TestSignup(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	svc := NewAuthService(store, newTestIssuer())

	user := signup(t, svc, "  Ada@Example.com ")
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.Nil(t, user.TeamID)
	assert.NotEqual(t, "Password123", user.PasswordHash)

	tests := []struct {
		name  string
		input SignupInput
		want  error
	}{
		{
			name:  "duplicate email",
			input: SignupInput{FirstName: "A", LastName: "B", Email: "ADA@example.com", Password: "Password123"},
			want:  ErrEmailTaken,
		},
		{
			name:  "weak password",
			input: SignupInput{FirstName: "A", LastName: "B", Email: "weak@example.com", Password: "short"},
			want:  apierrors.New(apierrors.KindValidation, ""),
		},
		{
			name:  "missing name",
			input: SignupInput{Email: "noname@example.com", Password: "Password123"},
			want:  apierrors.New(apierrors.KindValidation, ""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoginAndTokens(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	svc := NewAuthService(store, newTestIssuer())
	user := signup(t, svc, "login@example.com")

	_, _, err := svc.Login(ctx, LoginInput{Email: "login@example.com", Password: "wrong-password1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "Password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	loggedIn, pair, err := svc.Login(ctx, LoginInput{Email: "LOGIN@example.com", Password: "Password123"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.Equal(t, "bearer", pair.TokenType)

	p, err := svc.ResolveToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, p.UserID)
	assert.Equal(t, models.RoleUser, p.Role)

	_, err = svc.ResolveToken(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	access, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	p, err = svc.ResolveToken(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, p.UserID)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	user.IsActive = false
	require.NoError(t, store.Users.Update(ctx, user))

	_, _, err = svc.Login(ctx, LoginInput{Email: "login@example.com", Password: "Password123"})
	assert.ErrorIs(t, err, ErrAccountInactive)

	_, err = svc.ResolveToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrAccountInactive)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestResolvePrincipal_ReflectsCurrentRole(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	svc := NewAuthService(store, newTestIssuer())

	team := createTeam(t, store, "Alpha", "AUTH01")
	user := createUser(t, store, models.RoleUser, nil)

	p, err := svc.ResolvePrincipal(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, p.HasTeam())

	user.TeamID = &team.ID
	user.Role = models.RoleManager
	require.NoError(t, store.Users.Update(ctx, user))

	p, err = svc.ResolvePrincipal(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, p.Role)
	assert.True(t, p.InTeam(team.ID))

	_, err = svc.ResolvePrincipal(ctx, 9999)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestUserService_Profile(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	auth := NewAuthService(store, newTestIssuer())
	svc := NewUserService(store, "super-secret")

	ada := signup(t, auth, "ada@example.com")
	signup(t, auth, "grace@example.com")
	p := principal(t, store, ada.ID)

	updated, err := svc.UpdateProfile(ctx, p, UpdateProfileInput{FirstName: patch.Some(" Augusta ")})
	require.NoError(t, err)
	assert.Equal(t, "Augusta", updated.FirstName)
	assert.Equal(t, "Lovelace", updated.LastName)

	_, err = svc.UpdateProfile(ctx, p, UpdateProfileInput{Email: patch.Some("GRACE@example.com")})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.UpdateProfile(ctx, p, UpdateProfileInput{LastName: patch.Some("")})
	assert.Equal(t, apierrors.KindValidation, apierrors.KindOf(err))

	assert.Equal(t, apierrors.KindValidation, apierrors.KindOf(svc.ChangePassword(ctx, p, "wrong", "NewPassword123")))
	assert.Equal(t, apierrors.KindValidation, apierrors.KindOf(svc.ChangePassword(ctx, p, "Password123", "short")))
	require.NoError(t, svc.ChangePassword(ctx, p, "Password123", "NewPassword123"))

	_, _, err = auth.Login(ctx, LoginInput{Email: "ada@example.com", Password: "NewPassword123"})
	assert.NoError(t, err)
}

func TestUserService_UpgradeToAdmin(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	user := createUser(t, store, models.RoleUser, nil)

	svc := NewUserService(store, "super-secret")
	_, err := svc.UpgradeToAdmin(ctx, principal(t, store, user.ID), "guess")
	assert.ErrorIs(t, err, ErrInvalidAdminKey)

	unset := NewUserService(store, "")
	_, err = unset.UpgradeToAdmin(ctx, principal(t, store, user.ID), "")
	assert.ErrorIs(t, err, ErrInvalidAdminKey)

	upgraded, err := svc.UpgradeToAdmin(ctx, principal(t, store, user.ID), "super-secret")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, upgraded.Role)
}

func TestUserService_AdminOperations(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	svc := NewUserService(store, "")

	team := createTeam(t, store, "Alpha", "ADMN01")
	admin := createUser(t, store, models.RoleAdmin, nil)
	member := createUser(t, store, models.RoleUser, &team.ID)
	loner := createUser(t, store, models.RoleUser, nil)

	t.Run("admin cannot change own role or status", func(t *testing.T) {
		_, err := svc.AdminUpdate(ctx, principal(t, store, admin.ID), admin.ID, AdminUpdateInput{Role: patch.Some(models.RoleUser)})
		assert.ErrorIs(t, err, ErrSelfOperation)

		_, err = svc.AdminUpdate(ctx, principal(t, store, admin.ID), admin.ID, AdminUpdateInput{IsActive: patch.Some(false)})
		assert.ErrorIs(t, err, ErrSelfOperation)
	})

	t.Run("non admin rejected", func(t *testing.T) {
		_, err := svc.AdminUpdate(ctx, principal(t, store, member.ID), loner.ID, AdminUpdateInput{IsActive: patch.Some(false)})
		assert.ErrorIs(t, err, ErrAdminOnly)

		_, _, err = svc.List(ctx, principal(t, store, member.ID), repository.UserFilter{})
		assert.ErrorIs(t, err, ErrAdminOnly)
	})

	t.Run("manager needs a team", func(t *testing.T) {
		_, err := svc.AdminUpdate(ctx, principal(t, store, admin.ID), loner.ID, AdminUpdateInput{Role: patch.Some(models.RoleManager)})
		assert.Equal(t, apierrors.KindValidation, apierrors.KindOf(err))

		updated, err := svc.AdminUpdate(ctx, principal(t, store, admin.ID), member.ID, AdminUpdateInput{Role: patch.Some(models.RoleManager)})
		require.NoError(t, err)
		assert.Equal(t, models.RoleManager, updated.Role)
	})

	t.Run("deactivate and list", func(t *testing.T) {
		updated, err := svc.AdminUpdate(ctx, principal(t, store, admin.ID), loner.ID, AdminUpdateInput{IsActive: patch.Some(false)})
		require.NoError(t, err)
		assert.False(t, updated.IsActive)
		assert.False(t, reloadUser(t, store, loner.ID).IsActive)

		role := models.RoleManager
		users, total, err := svc.List(ctx, principal(t, store, admin.ID), repository.UserFilter{Role: &role})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Equal(t, member.ID, users[0].ID)
	})

	t.Run("get and delete", func(t *testing.T) {
		_, err := svc.Get(ctx, principal(t, store, member.ID), loner.ID)
		assert.Equal(t, apierrors.KindForbidden, apierrors.KindOf(err))

		_, err = svc.Get(ctx, principal(t, store, member.ID), 9999)
		assert.ErrorIs(t, err, ErrUserNotFound)

		assert.Equal(t, apierrors.KindForbidden, apierrors.KindOf(svc.Delete(ctx, principal(t, store, member.ID), loner.ID)))
		require.NoError(t, svc.Delete(ctx, principal(t, store, admin.ID), loner.ID))
		require.NoError(t, svc.DeleteAccount(ctx, principal(t, store, member.ID)))

		_, err = svc.Get(ctx, principal(t, store, admin.ID), member.ID)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestUserService_Dashboard(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	svc := NewUserService(store, "")
	meetings := NewMeetingService(store)

	team := createTeam(t, store, "Alpha", "DASH01")
	manager := createUser(t, store, models.RoleManager, &team.ID)
	member := createUser(t, store, models.RoleUser, &team.ID)

	createTask(t, store, team.ID, &member.ID, models.TaskStatusOpen)
	createTask(t, store, team.ID, &member.ID, models.TaskStatusInProgress)
	createTask(t, store, team.ID, &member.ID, models.TaskStatusDone)
	createTask(t, store, team.ID, &manager.ID, models.TaskStatusOpen)

	_, err := meetings.CreateMeeting(ctx, principal(t, store, manager.ID), CreateMeetingInput{
		Title:          "Kickoff",
		ScheduledAt:    *future(time.Hour),
		ParticipantIDs: []uint64{member.ID},
	})
	require.NoError(t, err)
	_, err = meetings.CreateMeeting(ctx, principal(t, store, manager.ID), CreateMeetingInput{
		Title:       "Managers only",
		ScheduledAt: *future(time.Hour),
	})
	require.NoError(t, err)

	dashboard, err := svc.Dashboard(ctx, principal(t, store, member.ID))
	require.NoError(t, err)
	require.NotNil(t, dashboard.Team)
	assert.Equal(t, team.ID, dashboard.Team.ID)
	assert.Len(t, dashboard.Tasks, 2)
	require.Len(t, dashboard.Meetings, 1)
	assert.Equal(t, "Kickoff", dashboard.Meetings[0].Title)

	loner := createUser(t, store, models.RoleUser, nil)
	dashboard, err = svc.Dashboard(ctx, principal(t, store, loner.ID))
	require.NoError(t, err)
	assert.Nil(t, dashboard.Team)
	assert.Empty(t, dashboard.Tasks)
	assert.Empty(t, dashboard.Meetings)
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind apierrors.Kind
	}{
		{ErrInvalidCredentials, apierrors.KindUnauthenticated},
		{ErrUserNotFound, apierrors.KindNotFound},
		{ErrInvalidTeamCode, apierrors.KindNotFound},
		{ErrAlreadyInTeam, apierrors.KindConflict},
		{ErrNoPerformer, apierrors.KindConflict},
		{ErrNotPerformer, apierrors.KindForbidden},
		{ErrOutranked, apierrors.KindForbidden},
		{ErrSelfOperation, apierrors.KindSelfOperation},
		{ErrAIServiceNotConfigured, apierrors.KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.kind, apierrors.KindOf(tt.err))
			assert.ErrorIs(t, fmt.Errorf("wrapped: %w", tt.err), tt.err)
		})
	}
}
