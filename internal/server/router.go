package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/opencampus-io/registrar-backend/internal/handlers"
	"github.com/opencampus-io/registrar-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler       *handlers.AuthHandler
	AuthMiddleware    *middleware.AuthMiddleware
	CourseHandler     *handlers.CourseHandler
	DashboardHandler  *handlers.DashboardHandler
	StudentHandler    *handlers.StudentHandler
	ProfessorHandler  *handlers.ProfessorHandler
	BlockchainHandler *handlers.BlockchainHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("registrar-backend"))

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/auth/register", cfg.AuthHandler.Register)
	router.POST("/auth/login", cfg.AuthHandler.Login)
	router.GET("/courses", cfg.CourseHandler.List)
	router.GET("/courses/:id", cfg.CourseHandler.Get)
	router.GET("/courses/:id/assignments", cfg.CourseHandler.ListAssignments)
	router.GET("/professors", cfg.ProfessorHandler.List)
	router.GET("/professors/:id", cfg.ProfessorHandler.Get)

	// Protected
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	protected.POST("/auth/change-password", cfg.AuthHandler.ChangePassword)
	protected.POST("/auth/logout", cfg.AuthHandler.Logout)

	protected.GET("/profile", cfg.DashboardHandler.Profile)
	protected.GET("/dashboard", cfg.DashboardHandler.Dashboard)

	protected.POST("/courses", cfg.CourseHandler.Create)
	protected.PUT("/courses/:id", cfg.CourseHandler.Update)
	protected.POST("/courses/:id/enroll", cfg.CourseHandler.Enroll)
	protected.DELETE("/courses/:id/enroll", cfg.CourseHandler.Drop)
	protected.POST("/courses/:id/assignments", cfg.CourseHandler.CreateAssignment)

	protected.GET("/students", cfg.StudentHandler.List)
	protected.GET("/students/:id", cfg.StudentHandler.Get)
	protected.GET("/students/:id/courses", cfg.StudentHandler.Courses)
	protected.GET("/students/:id/assignments", cfg.StudentHandler.Assignments)
	protected.GET("/students/:id/grades", cfg.StudentHandler.Grades)
	protected.POST("/students/:id/submissions", cfg.StudentHandler.Submit)

	protected.GET("/professors/:id/courses", cfg.ProfessorHandler.Courses)
	protected.GET("/professors/:id/courses/:cid/students", cfg.ProfessorHandler.CourseStudents)
	protected.POST("/professors/:id/assignments/grade", cfg.ProfessorHandler.GradeAssignment)
	protected.POST("/professors/:id/courses/:cid/grades", cfg.ProfessorHandler.SubmitFinalGrades)

	protected.GET("/blockchain/verify-enrollment/:id", cfg.BlockchainHandler.VerifyEnrollment)
	protected.POST("/blockchain/course/:id/certificate", cfg.BlockchainHandler.IssueCertificate)

	return router
}
