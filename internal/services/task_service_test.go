package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/yukikurage/teamwork-api/internal/access"
	apierrors "github.com/yukikurage/teamwork-api/internal/errors"
	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/patch"
	"github.com/yukikurage/teamwork-api/internal/repository"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) GenerateTasksFromText(ctx context.Context, text string) ([]GeneratedTask, error) {
	args := m.Called(ctx, text)
	tasks, _ := args.Get(0).([]GeneratedTask)
	return tasks, args.Error(1)
}

type TaskServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	store     *repository.Store
	svc       *TaskService
	team      *models.Team
	manager   *models.User
	performer *models.User
	member    *models.User
	outsider  *models.User
	admin     *models.User
}

func (s *TaskServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = setupTestStore(s.T())
	s.svc = NewTaskService(s.store, nil)

	s.team = createTeam(s.T(), s.store, "Core", "TASK01")
	other := createTeam(s.T(), s.store, "Other", "TASK02")
	s.manager = createUser(s.T(), s.store, models.RoleManager, &s.team.ID)
	s.performer = createUser(s.T(), s.store, models.RoleUser, &s.team.ID)
	s.member = createUser(s.T(), s.store, models.RoleUser, &s.team.ID)
	s.outsider = createUser(s.T(), s.store, models.RoleManager, &other.ID)
	s.admin = createUser(s.T(), s.store, models.RoleAdmin, nil)
}

func (s *TaskServiceTestSuite) p(u *models.User) access.Principal {
	return principal(s.T(), s.store, u.ID)
}

func (s *TaskServiceTestSuite) TestCreateTask() {
	task, err := s.svc.CreateTask(s.ctx, s.p(s.member), CreateTaskInput{
		Title:       "  Write docs ",
		Deadline:    future(24 * time.Hour),
		PerformerID: &s.performer.ID,
	})
	s.Require().NoError(err)
	s.Equal("Write docs", task.Title)
	s.Equal(models.TaskStatusOpen, task.Status)
	s.Equal(s.team.ID, task.TeamID)
	s.Require().NotNil(task.Performer)
	s.Equal(s.performer.ID, task.Performer.ID)
}

func (s *TaskServiceTestSuite) TestCreateTask_Validation() {
	_, err := s.svc.CreateTask(s.ctx, s.p(s.member), CreateTaskInput{Title: ""})
	s.Equal(apierrors.KindValidation, apierrors.KindOf(err))

	past := time.Now().Add(-time.Hour)
	_, err = s.svc.CreateTask(s.ctx, s.p(s.member), CreateTaskInput{Title: "x", Deadline: &past})
	s.Equal(apierrors.KindValidation, apierrors.KindOf(err))

	_, err = s.svc.CreateTask(s.ctx, s.p(s.member), CreateTaskInput{Title: "x", PerformerID: &s.outsider.ID})
	s.Equal(apierrors.KindValidation, apierrors.KindOf(err))

	_, err = s.svc.CreateTask(s.ctx, s.p(s.admin), CreateTaskInput{Title: "x"})
	s.Equal(apierrors.KindValidation, apierrors.KindOf(err))
}

func (s *TaskServiceTestSuite) TestCreateTask_OtherTeamForbidden() {
	_, err := s.svc.CreateTask(s.ctx, s.p(s.outsider), CreateTaskInput{Title: "x", TeamID: &s.team.ID})
	s.Equal(apierrors.KindForbidden, apierrors.KindOf(err))

	task, err := s.svc.CreateTask(s.ctx, s.p(s.admin), CreateTaskInput{Title: "x", TeamID: &s.team.ID})
	s.Require().NoError(err)
	s.Equal(s.team.ID, task.TeamID)
}

func (s *TaskServiceTestSuite) TestChangeStatus_NonPerformerForbidden() {
	task := createTask(s.T(), s.store, s.team.ID, &s.performer.ID, models.TaskStatusOpen)

	for _, u := range []*models.User{s.member, s.manager, s.admin} {
		_, err := s.svc.ChangeStatus(s.ctx, s.p(u), task.ID, models.TaskStatusInProgress)
		s.ErrorIs(err, ErrNotPerformer)
	}

	updated, err := s.svc.ChangeStatus(s.ctx, s.p(s.performer), task.ID, models.TaskStatusInProgress)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusInProgress, updated.Status)

	reloaded, err := s.store.Tasks.FindByID(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusInProgress, reloaded.Status)
}

func (s *TaskServiceTestSuite) TestChangeStatus_TransitionTable() {
	all := []models.TaskStatus{models.TaskStatusOpen, models.TaskStatusInProgress, models.TaskStatusDone}

	for _, from := range all {
		for _, to := range all {
			task := createTask(s.T(), s.store, s.team.ID, &s.performer.ID, from)

			updated, err := s.svc.ChangeStatus(s.ctx, s.p(s.performer), task.ID, to)

			switch {
			case from == to:
				s.Require().NoError(err, "%s -> %s", from, to)
				s.Equal(from, updated.Status)
			case from.CanTransitionTo(to):
				s.Require().NoError(err, "%s -> %s", from, to)
				s.Equal(to, updated.Status)
			default:
				var te *apierrors.TransitionError
				s.Require().ErrorAs(err, &te, "%s -> %s", from, to)
				s.Equal(string(from), te.From)
				s.Equal(string(to), te.To)
			}
		}
	}
}

func (s *TaskServiceTestSuite) TestChangeStatus_OpenToDoneRejected() {
	task := createTask(s.T(), s.store, s.team.ID, &s.performer.ID, models.TaskStatusOpen)

	_, err := s.svc.ChangeStatus(s.ctx, s.p(s.performer), task.ID, models.TaskStatusDone)
	s.Equal(apierrors.KindInvalidTransition, apierrors.KindOf(err))

	reloaded, err := s.store.Tasks.FindByID(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusOpen, reloaded.Status)
}

func (s *TaskServiceTestSuite) TestChangeStatus_MissingTask() {
	_, err := s.svc.ChangeStatus(s.ctx, s.p(s.performer), 4040, models.TaskStatusInProgress)
	s.ErrorIs(err, ErrTaskNotFound)

	_, err = s.svc.ChangeStatus(s.ctx, s.p(s.performer), 4040, models.TaskStatus("archived"))
	s.Equal(apierrors.KindValidation, apierrors.KindOf(err))
}

func (s *TaskServiceTestSuite) TestUpdateTask_BoundByTransitionTable() {
	task := createTask(s.T(), s.store, s.team.ID, &s.performer.ID, models.TaskStatusOpen)

	for _, u := range []*models.User{s.manager, s.admin} {
		_, err := s.svc.UpdateTask(s.ctx, s.p(u), task.ID, UpdateTaskInput{Status: patch.Some(models.TaskStatusDone)})
		s.Equal(apierrors.KindInvalidTransition, apierrors.KindOf(err))
	}

	updated, err := s.svc.UpdateTask(s.ctx, s.p(s.manager), task.ID, UpdateTaskInput{
		Title:  patch.Some("Renamed"),
		Status: patch.Some(models.TaskStatusInProgress),
	})
	s.Require().NoError(err)
	s.Equal("Renamed", updated.Title)
	s.Equal(models.TaskStatusInProgress, updated.Status)
}

func (s *TaskServiceTestSuite) TestUpdateTask_PatchSemantics() {
	deadline := future(48 * time.Hour)
	task, err := s.svc.CreateTask(s.ctx, s.p(s.manager), CreateTaskInput{
		Title:       "Task",
		Description: "keep me",
		Deadline:    deadline,
		PerformerID: &s.performer.ID,
	})
	s.Require().NoError(err)

	updated, err := s.svc.UpdateTask(s.ctx, s.p(s.manager), task.ID, UpdateTaskInput{
		Deadline:    patch.Some[*time.Time](nil),
		PerformerID: patch.Some[*uint64](nil),
	})
	s.Require().NoError(err)
	s.Nil(updated.Deadline)
	s.Nil(updated.PerformerID)
	s.Equal("keep me", updated.Description)
	s.Equal("Task", updated.Title)

	_, err = s.svc.UpdateTask(s.ctx, s.p(s.manager), task.ID, UpdateTaskInput{PerformerID: patch.Some(&s.outsider.ID)})
	s.Equal(apierrors.KindValidation, apierrors.KindOf(err))

	_, err = s.svc.UpdateTask(s.ctx, s.p(s.manager), task.ID, UpdateTaskInput{Title: patch.Some("  ")})
	s.Equal(apierrors.KindValidation, apierrors.KindOf(err))
}

func (s *TaskServiceTestSuite) TestUpdateTask_Permissions() {
	task := createTask(s.T(), s.store, s.team.ID, nil, models.TaskStatusOpen)

	_, err := s.svc.UpdateTask(s.ctx, s.p(s.member), task.ID, UpdateTaskInput{Title: patch.Some("x")})
	s.Equal(apierrors.KindForbidden, apierrors.KindOf(err))

	_, err = s.svc.UpdateTask(s.ctx, s.p(s.outsider), task.ID, UpdateTaskInput{Title: patch.Some("x")})
	s.Equal(apierrors.KindForbidden, apierrors.KindOf(err))

	_, err = s.svc.UpdateTask(s.ctx, s.p(s.outsider), 9999, UpdateTaskInput{Title: patch.Some("x")})
	s.ErrorIs(err, ErrTaskNotFound)
}

func (s *TaskServiceTestSuite) TestGetAndDeleteTask() {
	task := createTask(s.T(), s.store, s.team.ID, &s.performer.ID, models.TaskStatusDone)
	s.Require().NoError(s.store.Evaluations.Create(s.ctx, &models.Evaluation{Grade: 5, ManagerID: s.manager.ID, UserID: s.performer.ID, TaskID: task.ID}))

	_, err := s.svc.GetTask(s.ctx, s.p(s.outsider), task.ID)
	s.Equal(apierrors.KindForbidden, apierrors.KindOf(err))

	got, err := s.svc.GetTask(s.ctx, s.p(s.member), task.ID)
	s.Require().NoError(err)
	s.Equal(task.ID, got.ID)

	s.Equal(apierrors.KindForbidden, apierrors.KindOf(s.svc.DeleteTask(s.ctx, s.p(s.member), task.ID)))
	s.Require().NoError(s.svc.DeleteTask(s.ctx, s.p(s.manager), task.ID))

	_, err = s.svc.GetTask(s.ctx, s.p(s.member), task.ID)
	s.ErrorIs(err, ErrTaskNotFound)

	evaluations, err := s.store.Evaluations.ListByTask(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Empty(evaluations)
}

func (s *TaskServiceTestSuite) TestListTasks() {
	createTask(s.T(), s.store, s.team.ID, &s.performer.ID, models.TaskStatusOpen)
	createTask(s.T(), s.store, s.team.ID, &s.performer.ID, models.TaskStatusDone)
	createTask(s.T(), s.store, s.team.ID, nil, models.TaskStatusOpen)
	createTask(s.T(), s.store, *s.outsider.TeamID, nil, models.TaskStatusOpen)

	tasks, total, err := s.svc.ListTasks(s.ctx, s.p(s.member), ListTasksInput{})
	s.Require().NoError(err)
	s.EqualValues(3, total)
	s.Len(tasks, 3)

	open := models.TaskStatusOpen
	_, total, err = s.svc.ListTasks(s.ctx, s.p(s.performer), ListTasksInput{Mine: true, Status: &open})
	s.Require().NoError(err)
	s.EqualValues(1, total)

	_, _, err = s.svc.ListTasks(s.ctx, s.p(s.member), ListTasksInput{TeamID: s.outsider.TeamID})
	s.Equal(apierrors.KindForbidden, apierrors.KindOf(err))

	_, total, err = s.svc.ListTasks(s.ctx, s.p(s.admin), ListTasksInput{})
	s.Require().NoError(err)
	s.EqualValues(4, total)

	loner := createUser(s.T(), s.store, models.RoleUser, nil)
	tasks, total, err = s.svc.ListTasks(s.ctx, s.p(loner), ListTasksInput{})
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(tasks)
}

func (s *TaskServiceTestSuite) TestGenerateTasks() {
	_, err := s.svc.GenerateTasks(s.ctx, s.p(s.manager), GenerateTasksInput{Text: "ship the release"})
	s.ErrorIs(err, ErrAIServiceNotConfigured)

	gen := new(mockGenerator)
	s.svc.ai = gen

	past := time.Now().Add(-48 * time.Hour)
	gen.On("GenerateTasksFromText", mock.Anything, "ship the release").Return([]GeneratedTask{
		{Title: "Tag release", Deadline: future(time.Hour)},
		{Title: "   "},
		{Title: "Write notes", Deadline: &past},
	}, nil).Once()

	drafts, err := s.svc.GenerateTasks(s.ctx, s.p(s.manager), GenerateTasksInput{Text: "ship the release"})
	s.Require().NoError(err)
	s.Require().Len(drafts, 2)
	s.NotNil(drafts[0].Deadline)
	s.Nil(drafts[1].Deadline)

	_, err = s.svc.GenerateTasks(s.ctx, s.p(s.member), GenerateTasksInput{Text: "ship the release"})
	s.Equal(apierrors.KindForbidden, apierrors.KindOf(err))

	gen.On("GenerateTasksFromText", mock.Anything, "boom").Return(nil, errors.New("upstream down")).Once()
	_, err = s.svc.GenerateTasks(s.ctx, s.p(s.manager), GenerateTasksInput{Text: "boom"})
	s.Error(err)

	gen.AssertExpectations(s.T())
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}

func TestParseGeneratedTasks(t *testing.T) {
	tasks, err := parseGeneratedTasks("```json\n[{\"title\":\"A\",\"description\":\"B\",\"deadline\":null}]\n```")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "A", tasks[0].Title)
	assert.Nil(t, tasks[0].Deadline)

	_, err = parseGeneratedTasks("not json")
	assert.Error(t, err)
}
