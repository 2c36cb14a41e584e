package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aalto-grades/aalto-grades-sub002/internal/config"
	"github.com/aalto-grades/aalto-grades-sub002/internal/handler"
	"github.com/aalto-grades/aalto-grades-sub002/internal/middleware"
	"github.com/aalto-grades/aalto-grades-sub002/internal/models"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CourseHandler       *handler.CourseHandler
	CourseTaskHandler   *handler.CourseTaskHandler
	GradingModelHandler *handler.GradingModelHandler
	TaskGradeHandler    *handler.TaskGradeHandler
	FinalGradeHandler   *handler.FinalGradeHandler
	JWTMiddleware       fiber.Handler
	ImportRateLimit     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleTeacher)
	anyRole := middleware.RequireRole(models.RoleAdmin, models.RoleTeacher, models.RoleStudent)

	courses := api.Group("/courses", jwtMiddleware)
	if deps.CourseHandler != nil {
		catalogue := courses.Group("/", anyRole)
		deps.CourseHandler.Register(catalogue)
	}

	if deps.CourseTaskHandler != nil {
		tasks := courses.Group("/:courseId/tasks", staff)
		deps.CourseTaskHandler.Register(tasks)
	}

	if deps.GradingModelHandler != nil {
		gradingModels := courses.Group("/:courseId/grading-models", staff)
		deps.GradingModelHandler.Register(gradingModels)
	}

	if deps.TaskGradeHandler != nil {
		grades := courses.Group("/:courseId/grades", staff)
		deps.TaskGradeHandler.Register(grades)

		importGroup := grades
		if deps.ImportRateLimit != nil {
			importGroup = courses.Group("/:courseId/grades", staff, deps.ImportRateLimit)
		}
		deps.TaskGradeHandler.RegisterImport(importGroup)
	}

	if deps.FinalGradeHandler != nil {
		finalGrades := courses.Group("/:courseId/final-grades", staff)
		deps.FinalGradeHandler.Register(finalGrades)
	}
}
