package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yukikurage/teamwork-api/internal/database"
	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/utils"
)

var dbSeq atomic.Int64

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:repo_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.Models()...))
	return db
}

func seedTeam(t *testing.T, store *Store, name string) *models.Team {
	code, err := utils.GenerateTeamCode()
	require.NoError(t, err)
	team := &models.Team{Name: name, Code: code}
	require.NoError(t, store.Teams.Create(context.Background(), team))
	return team
}

func seedUser(t *testing.T, store *Store, email string, role models.Role, teamID *uint64) *models.User {
	user := &models.User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: "x",
		IsActive:     true,
		Role:         role,
		TeamID:       teamID,
	}
	require.NoError(t, store.Users.Create(context.Background(), user))
	return user
}

func TestTeamRepository_DeleteDetachesMembers(t *testing.T) {
	ctx := context.Background()
	store := NewStore(setupTestDB(t))

	team := seedTeam(t, store, "Core")
	manager := seedUser(t, store, "m@example.com", models.RoleManager, &team.ID)
	member := seedUser(t, store, "u@example.com", models.RoleUser, &team.ID)

	task := &models.Task{Title: "t", Status: models.TaskStatusDone, TeamID: team.ID, PerformerID: &member.ID}
	require.NoError(t, store.Tasks.Create(ctx, task))
	require.NoError(t, store.Evaluations.Create(ctx, &models.Evaluation{Grade: 4, ManagerID: manager.ID, UserID: member.ID, TaskID: task.ID}))
	require.NoError(t, store.Meetings.Create(ctx, &models.Meeting{Title: "m", TeamID: team.ID, OrganizerID: manager.ID}, []uint64{manager.ID, member.ID}))

	require.NoError(t, store.Teams.Delete(ctx, team.ID))

	_, err := store.Teams.FindByID(ctx, team.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	reloaded, err := store.Users.FindByID(ctx, manager.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.TeamID)
	assert.Equal(t, models.RoleUser, reloaded.Role)

	tasks, total, err := store.Tasks.List(ctx, TaskFilter{TeamID: &team.ID})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, tasks)

	avg, err := store.Evaluations.AverageByUser(ctx, member.ID)
	require.NoError(t, err)
	assert.Nil(t, avg)
}

func TestTeamRepository_DuplicateCode(t *testing.T) {
	ctx := context.Background()
	store := NewStore(setupTestDB(t))

	require.NoError(t, store.Teams.Create(ctx, &models.Team{Name: "A", Code: "AAAAAA"}))
	err := store.Teams.Create(ctx, &models.Team{Name: "B", Code: "AAAAAA"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestEvaluationRepository_Averages(t *testing.T) {
	ctx := context.Background()
	store := NewStore(setupTestDB(t))

	team := seedTeam(t, store, "Core")
	manager := seedUser(t, store, "m@example.com", models.RoleManager, &team.ID)
	alice := seedUser(t, store, "a@example.com", models.RoleUser, &team.ID)
	bob := seedUser(t, store, "b@example.com", models.RoleUser, &team.ID)

	avg, err := store.Evaluations.AverageByTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Nil(t, avg)

	for _, e := range []struct {
		user  uint64
		grade int
	}{{alice.ID, 5}, {alice.ID, 4}, {bob.ID, 3}} {
		task := &models.Task{Title: "t", TeamID: team.ID, PerformerID: &e.user}
		require.NoError(t, store.Tasks.Create(ctx, task))
		require.NoError(t, store.Evaluations.Create(ctx, &models.Evaluation{Grade: e.grade, ManagerID: manager.ID, UserID: e.user, TaskID: task.ID}))
	}

	avg, err = store.Evaluations.AverageByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 4.5, *avg, 1e-9)

	avg, err = store.Evaluations.AverageByTeam(ctx, team.ID)
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 4.0, *avg, 1e-9)
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := NewStore(setupTestDB(t))

	team := seedTeam(t, store, "Core")
	manager := seedUser(t, store, "m@example.com", models.RoleManager, &team.ID)
	member := seedUser(t, store, "u@example.com", models.RoleUser, &team.ID)

	task := &models.Task{Title: "t", TeamID: team.ID, PerformerID: &member.ID}
	require.NoError(t, store.Tasks.Create(ctx, task))
	meeting := &models.Meeting{Title: "m", TeamID: team.ID, OrganizerID: manager.ID}
	require.NoError(t, store.Meetings.Create(ctx, meeting, []uint64{member.ID}))

	require.NoError(t, store.Users.Delete(ctx, member.ID))

	reloaded, err := store.Tasks.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.PerformerID)

	m, err := store.Meetings.FindByID(ctx, meeting.ID)
	require.NoError(t, err)
	assert.Empty(t, m.Participants)
}

func TestUserRepository_FilterTeamMembers(t *testing.T) {
	ctx := context.Background()
	store := NewStore(setupTestDB(t))

	core := seedTeam(t, store, "Core")
	other := seedTeam(t, store, "Other")
	a := seedUser(t, store, "a@example.com", models.RoleUser, &core.ID)
	b := seedUser(t, store, "b@example.com", models.RoleUser, &other.ID)
	c := seedUser(t, store, "c@example.com", models.RoleUser, nil)

	ids, err := store.Users.FilterTeamMembers(ctx, core.ID, []uint64{a.ID, b.ID, c.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, []uint64{a.ID}, ids)
}

func TestTaskRepository_ListFilters(t *testing.T) {
	ctx := context.Background()
	store := NewStore(setupTestDB(t))

	team := seedTeam(t, store, "Core")
	user := seedUser(t, store, "a@example.com", models.RoleUser, &team.ID)

	require.NoError(t, store.Tasks.Create(ctx, &models.Task{Title: "open", Status: models.TaskStatusOpen, TeamID: team.ID, PerformerID: &user.ID}))
	require.NoError(t, store.Tasks.Create(ctx, &models.Task{Title: "done", Status: models.TaskStatusDone, TeamID: team.ID}))

	tasks, total, err := store.Tasks.List(ctx, TaskFilter{
		TeamID:     &team.ID,
		Statuses:   []models.TaskStatus{models.TaskStatusOpen, models.TaskStatusInProgress},
		Pagination: utils.PaginationParams{Page: 1, Limit: 10},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, tasks, 1)
	assert.Equal(t, "open", tasks[0].Title)
	require.NotNil(t, tasks[0].Performer)
	assert.Equal(t, user.ID, tasks[0].Performer.ID)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewStore(setupTestDB(t))

	err := store.Transaction(ctx, func(tx *Store) error {
		if err := tx.Teams.Create(ctx, &models.Team{Name: "Temp", Code: "TMP001"}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	taken, err := store.Teams.NameTaken(ctx, "Temp", 0)
	require.NoError(t, err)
	assert.False(t, taken)
}
