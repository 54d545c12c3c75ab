package FiberConfig

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/gorm"

	"github.com/wenjyue84/MakanManager-sub001/Budget"
	"github.com/wenjyue84/MakanManager-sub001/Controllers"
	"github.com/wenjyue84/MakanManager-sub001/Models"
	"github.com/wenjyue84/MakanManager-sub001/Scoring"
	"github.com/wenjyue84/MakanManager-sub001/Workflow"
	"github.com/wenjyue84/MakanManager-sub001/middleware"
)

// Deps bundles what the HTTP layer needs from main.
type Deps struct {
	DB        *gorm.DB
	Machine   *Workflow.Machine
	Guard     *Budget.Guard
	Suggester *Scoring.Suggester
	Events    *Models.EventLog
	Today     func() string
}

// New builds the Fiber app with all routes registered.
func New(deps Deps) *fiber.App {
	app := fiber.New()
	app.Use(cors.New(cors.Config{
		AllowCredentials: true,
	}))
	app.Use(compress.New())
	app.Use(middleware.Logger())

	SetupRoutes(app, deps)
	return app
}

func SetupRoutes(app *fiber.App, deps Deps) {
	// Initialize handlers
	authController := Controllers.NewAuthController(deps.DB)
	taskController := Controllers.NewTaskController(deps.DB, deps.Machine, deps.Events)
	suggestionController := Controllers.NewSuggestionController(deps.DB, deps.Suggester)
	budgetController := Controllers.NewBudgetController(deps.Guard, deps.Today)
	reportController := Controllers.NewReportController(deps.DB)

	api := app.Group("/api")

	// Auth
	api.Post("/register", authController.Register)
	api.Post("/login", authController.Login)
	api.Post("/logout", authController.Logout)
	api.Get("/me", middleware.Verify(""), authController.Me)
	api.Post("/fcm/token", middleware.Verify(""), Models.UpdateToken)

	// Tasks
	tasks := api.Group("/tasks", middleware.Verify(""))
	tasks.Get("/", taskController.GetTasks)
	tasks.Get("/mine", taskController.GetMyTasks)
	tasks.Get("/status/:status", taskController.GetTasksByStatus)
	tasks.Get("/station/:station", taskController.GetTasksByStation)
	tasks.Post("/", middleware.Verify("management"), taskController.CreateTask)
	tasks.Get("/:id", taskController.GetTask)
	tasks.Put("/:id", middleware.Verify("management"), taskController.UpdateTask)
	tasks.Delete("/:id", middleware.Verify("management"), taskController.DeleteTask)

	// Workflow transitions
	tasks.Post("/:id/claim", taskController.Claim)
	tasks.Post("/:id/submit", taskController.Submit)
	tasks.Post("/:id/proof/photo", taskController.SubmitPhotoProof)
	tasks.Post("/:id/approve", middleware.Verify("management"), taskController.Approve)
	tasks.Post("/:id/reject", middleware.Verify("management"), taskController.Reject)
	tasks.Post("/:id/hold", taskController.Hold)
	tasks.Post("/:id/resume", taskController.Resume)

	// Audit trail and suggestions
	tasks.Get("/:id/events", middleware.Verify("management"), taskController.GetTaskEvents)
	tasks.Get("/:id/suggestions", middleware.Verify("management"), suggestionController.GetSuggestions)

	// Budgets
	budgets := api.Group("/budgets", middleware.Verify("management"))
	budgets.Get("/remaining", budgetController.GetRemaining)

	// Reports
	reports := api.Group("/reports", middleware.Verify("management"))
	reports.Get("/leaderboard.xlsx", reportController.Leaderboard)
}
