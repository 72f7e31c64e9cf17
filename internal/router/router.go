// Package router assembles the gin engine: middleware, handlers and routes.
package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/teamwork-api/internal/constants"
	"github.com/yukikurage/teamwork-api/internal/handlers"
	"github.com/yukikurage/teamwork-api/internal/middleware"
	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/services"
)

// Deps is everything the routes need.
type Deps struct {
	DB           *gorm.DB
	Log          *zap.SugaredLogger
	SessionStore sessions.Store

	Auth        *services.AuthService
	Users       *services.UserService
	Teams       *services.TeamService
	Tasks       *services.TaskService
	Meetings    *services.MeetingService
	Evaluations *services.EvaluationService
}

func New(d Deps) (*gin.Engine, error) {
	if err := handlers.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(d.Log),
		middleware.Recovery(d.Log),
		sessions.Sessions(constants.SessionCookieName, d.SessionStore),
	)

	authHandler := handlers.NewAuthHandler(d.Auth)
	userHandler := handlers.NewUserHandler(d.Users)
	teamHandler := handlers.NewTeamHandler(d.Teams)
	taskHandler := handlers.NewTaskHandler(d.Tasks)
	meetingHandler := handlers.NewMeetingHandler(d.Meetings)
	evaluationHandler := handlers.NewEvaluationHandler(d.Evaluations)
	healthHandler := handlers.NewHealthHandler(d.DB)

	r.GET("/health", healthHandler.Health)

	requireAuth := middleware.RequireAuth(d.Auth)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
		}

		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("/me", userHandler.GetMe)
			users.PATCH("/me", userHandler.UpdateMe)
			users.DELETE("/me", userHandler.DeleteMe)
			users.POST("/me/password", userHandler.ChangePassword)
			users.POST("/me/admin", userHandler.UpgradeToAdmin)
			users.GET("/me/dashboard", userHandler.Dashboard)
			users.GET("", adminOnly, userHandler.ListUsers)
			users.GET("/:id", userHandler.GetUser)
			users.PATCH("/:id", adminOnly, userHandler.UpdateUser)
			users.GET("/:id/average", evaluationHandler.UserAverage)
		}

		teams := api.Group("/teams")
		teams.Use(requireAuth)
		{
			teams.POST("", teamHandler.CreateTeam)
			teams.GET("", adminOnly, teamHandler.ListTeams)
			teams.POST("/join", teamHandler.JoinTeam)
			teams.POST("/leave", teamHandler.LeaveTeam)
			teams.GET("/:id", teamHandler.GetTeam)
			teams.PATCH("/:id", teamHandler.UpdateTeam)
			teams.DELETE("/:id", teamHandler.DeleteTeam)
			teams.POST("/:id/code", teamHandler.RegenerateCode)
			teams.GET("/:id/average", evaluationHandler.TeamAverage)
			teams.DELETE("/:id/members/:user_id", teamHandler.RemoveMember)
			teams.POST("/:id/members/:user_id/promote", teamHandler.PromoteMember)
			teams.POST("/:id/members/:user_id/demote", teamHandler.DemoteMember)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.POST("/generate", taskHandler.GenerateTasks)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PATCH("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.POST("/:id/status", taskHandler.ChangeStatus)
			tasks.GET("/:id/evaluations", evaluationHandler.ListTaskEvaluations)
		}

		meetings := api.Group("/meetings")
		meetings.Use(requireAuth)
		{
			meetings.GET("", meetingHandler.ListMeetings)
			meetings.POST("", meetingHandler.CreateMeeting)
			meetings.GET("/:id", meetingHandler.GetMeeting)
			meetings.PATCH("/:id", meetingHandler.UpdateMeeting)
			meetings.DELETE("/:id", meetingHandler.DeleteMeeting)
		}

		evaluations := api.Group("/evaluations")
		evaluations.Use(requireAuth)
		{
			evaluations.GET("", adminOnly, evaluationHandler.ListEvaluations)
			evaluations.POST("", evaluationHandler.CreateEvaluation)
			evaluations.GET("/:id", evaluationHandler.GetEvaluation)
			evaluations.PUT("/:id", evaluationHandler.UpdateEvaluation)
			evaluations.PATCH("/:id", evaluationHandler.UpdateEvaluation)
			evaluations.DELETE("/:id", evaluationHandler.DeleteEvaluation)
		}
	}

	return r, nil
}
