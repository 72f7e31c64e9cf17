package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yukikurage/teamwork-api/internal/access"
	"github.com/yukikurage/teamwork-api/internal/config"
	"github.com/yukikurage/teamwork-api/internal/constants"
	"github.com/yukikurage/teamwork-api/internal/database"
	apierrors "github.com/yukikurage/teamwork-api/internal/errors"
	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/repository"
	"github.com/yukikurage/teamwork-api/internal/services"
	"github.com/yukikurage/teamwork-api/internal/tokens"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var dbSeq atomic.Int64

type testEnv struct {
	db    *gorm.DB
	store *repository.Store
	auth  *services.AuthService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:handlers_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(database.Models()...))

	store := repository.NewStore(db)
	issuer := tokens.NewIssuer(config.JWTConfig{
		Secret:        "handler-access",
		RefreshSecret: "handler-refresh",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	})

	return &testEnv{
		db:    db,
		store: store,
		auth:  services.NewAuthService(store, issuer),
	}
}

var emailSeq atomic.Int64

func (e *testEnv) createUser(t *testing.T, role models.Role, teamID *uint64) *models.User {
	t.Helper()

	user, err := e.auth.Signup(context.Background(), services.SignupInput{
		FirstName: "Test",
		LastName:  "User",
		Email:     fmt.Sprintf("user%d@example.com", emailSeq.Add(1)),
		Password:  "Password123",
	})
	require.NoError(t, err)

	if role != models.RoleUser || teamID != nil {
		user.Role = role
		user.TeamID = teamID
		require.NoError(t, e.store.Users.Update(context.Background(), user))
	}
	return user
}

func (e *testEnv) createTeam(t *testing.T, name, code string) *models.Team {
	t.Helper()

	team := &models.Team{Name: name, Code: code}
	require.NoError(t, e.store.Teams.Create(context.Background(), team))
	return team
}

func (e *testEnv) createTask(t *testing.T, teamID uint64, performerID *uint64, status models.TaskStatus) *models.Task {
	t.Helper()

	task := &models.Task{Title: "Test Task", Status: status, TeamID: teamID, PerformerID: performerID}
	require.NoError(t, e.store.Tasks.Create(context.Background(), task))
	return task
}

func (e *testEnv) principal(t *testing.T, userID uint64) access.Principal {
	t.Helper()

	p, err := e.auth.ResolvePrincipal(context.Background(), userID)
	require.NoError(t, err)
	return p
}

// serve runs one request through a minimal engine with sessions. When as is
// set, the request is authenticated as that user.
func (e *testEnv) serve(t *testing.T, route string, h gin.HandlerFunc, method, path string, body interface{}, as *models.User) *httptest.ResponseRecorder {
	t.Helper()

	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	if as != nil {
		p := e.principal(t, as.ID)
		r.Use(func(c *gin.Context) {
			c.Set(constants.ContextKeyUserID, p.UserID)
			c.Set(constants.ContextKeyPrincipal, p)
			c.Next()
		})
	}
	r.Handle(method, route, h)

	req := httptest.NewRequest(method, path, requestBody(t, body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// requestBody accepts raw JSON strings as-is and marshals anything else.
func requestBody(t *testing.T, body interface{}) io.Reader {
	t.Helper()

	switch b := body.(type) {
	case nil:
		return nil
	case string:
		return bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		return bytes.NewReader(raw)
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apierrors.APIError {
	t.Helper()

	var apiErr apierrors.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	return apiErr
}
