package Controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/wenjyue84/MakanManager-sub001/Models"
	"github.com/wenjyue84/MakanManager-sub001/Workflow"
)

// TaskController exposes the task lifecycle over HTTP. All transition logic
// lives in the workflow machine; handlers only parse, authenticate and map
// errors.
type TaskController struct {
	DB      *gorm.DB
	Machine *Workflow.Machine
	Events  *Models.EventLog
}

func NewTaskController(db *gorm.DB, machine *Workflow.Machine, events *Models.EventLog) *TaskController {
	return &TaskController{DB: db, Machine: machine, Events: events}
}

func currentUser(ctx *fiber.Ctx) (Models.User, bool) {
	user, ok := ctx.Locals("user").(Models.User)
	return user, ok
}

func taskID(ctx *fiber.Ctx) (uint, error) {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil || id <= 0 {
		return 0, err
	}
	return uint(id), nil
}

type CreateTaskRequest struct {
	Title           string    `json:"title" validate:"required"`
	Description     string    `json:"description"`
	Station         string    `json:"station" validate:"required,oneof=kitchen front store outdoor"`
	BasePoints      int       `json:"base_points" validate:"required,min=1"`
	AllowMultiplier bool      `json:"allow_multiplier"`
	ProofType       string    `json:"proof_type" validate:"omitempty,oneof=none photo text checklist"`
	DueAt           time.Time `json:"due_at" validate:"required"`
	AssigneeID      *uint     `json:"assignee_id"`
}

func (c *TaskController) CreateTask(ctx *fiber.Ctx) error {
	user, ok := currentUser(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not logged in"})
	}

	var req CreateTaskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := validate.Struct(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": validationMessages(err)})
	}

	task := Models.Task{
		Title:           req.Title,
		Description:     req.Description,
		Station:         req.Station,
		BasePoints:      req.BasePoints,
		AllowMultiplier: req.AllowMultiplier,
		ProofType:       req.ProofType,
		DueAt:           req.DueAt,
		AssigneeID:      req.AssigneeID,
	}
	created, err := c.Machine.Create(&task, user.ID)
	if err != nil {
		return engineError(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(created)
}

func (c *TaskController) GetTasks(ctx *fiber.Ctx) error {
	var tasks []Models.Task
	query := c.DB.Order("due_at asc")
	if station := ctx.Query("station"); station != "" {
		query = query.Where("station = ?", station)
	}
	if status := ctx.Query("status"); status != "" {
		if status == Models.StatusOverdue {
			query = query.Where("overdue = ? AND status IN ?", true,
				[]string{Models.StatusOpen, Models.StatusInProgress})
		} else {
			query = query.Where("status = ?", status)
		}
	}
	if err := query.Find(&tasks).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve tasks"})
	}
	return ctx.JSON(tasks)
}

func (c *TaskController) GetTasksByStatus(ctx *fiber.Ctx) error {
	status := ctx.Params("status")
	tasks, err := c.Machine.Tasks.ListByStatus(status)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve tasks"})
	}
	return ctx.JSON(tasks)
}

func (c *TaskController) GetTasksByStation(ctx *fiber.Ctx) error {
	station := ctx.Params("station")
	if !Models.ValidStation(station) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid station"})
	}
	tasks, err := c.Machine.Tasks.ListByStation(station)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve tasks"})
	}
	return ctx.JSON(tasks)
}

func (c *TaskController) GetTask(ctx *fiber.Ctx) error {
	id, err := taskID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}
	var task Models.Task
	if err := c.DB.First(&task, id).Error; err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
	}
	return ctx.JSON(task)
}

func (c *TaskController) GetMyTasks(ctx *fiber.Ctx) error {
	user, ok := currentUser(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not logged in"})
	}
	var tasks []Models.Task
	if err := c.DB.Where("assignee_id = ?", user.ID).Order("due_at asc").Find(&tasks).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve tasks"})
	}
	return ctx.JSON(tasks)
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	BasePoints  *int       `json:"base_points"`
	DueAt       *time.Time `json:"due_at"`
}

// UpdateTask edits task metadata before any work has been settled. The edit
// goes through the optimistic store update so it cannot clobber a concurrent
// transition.
func (c *TaskController) UpdateTask(ctx *fiber.Ctx) error {
	id, err := taskID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}
	var req UpdateTaskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	task, err := c.Machine.Tasks.GetByID(id)
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
	}
	if task.Status == Models.StatusDone {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Settled tasks cannot be edited"})
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		if *req.Title == "" {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title cannot be empty"})
		}
		fields["title"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.BasePoints != nil {
		if *req.BasePoints <= 0 {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Base points must be positive"})
		}
		fields["base_points"] = *req.BasePoints
	}
	if req.DueAt != nil {
		fields["due_at"] = *req.DueAt
	}
	if len(fields) == 0 {
		return ctx.JSON(task)
	}

	if err := c.Machine.Tasks.Update(task.ID, fields, task.Version); err != nil {
		if errors.Is(err, Models.ErrStaleVersion) {
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Task was modified concurrently", "retryable": true})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update task"})
	}

	updated, err := c.Machine.Tasks.GetByID(task.ID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to reload task"})
	}
	return ctx.JSON(updated)
}

// DeleteTask removes a task that never entered the workflow's paid path.
func (c *TaskController) DeleteTask(ctx *fiber.Ctx) error {
	id, err := taskID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}
	var task Models.Task
	if err := c.DB.First(&task, id).Error; err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
	}
	if task.Status == Models.StatusDone {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Settled tasks cannot be deleted"})
	}
	if err := c.DB.Delete(&task).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete task"})
	}
	return ctx.JSON(fiber.Map{"message": "Deleted"})
}

func (c *TaskController) Claim(ctx *fiber.Ctx) error {
	user, ok := currentUser(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not logged in"})
	}
	id, err := taskID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}

	// Managers can claim on behalf of a suggested assignee
	assignee := user.ID
	if raw := ctx.Query("assignee_id"); raw != "" && user.IsManagement() {
		parsed, perr := strconv.Atoi(raw)
		if perr != nil || parsed <= 0 {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid assignee ID"})
		}
		assignee = uint(parsed)
	}

	task, err := c.Machine.Claim(id, assignee)
	if err != nil {
		return engineError(ctx, err)
	}
	return ctx.JSON(task)
}

type SubmitRequest struct {
	ProofData map[string]interface{} `json:"proof_data"`
}

func (c *TaskController) Submit(ctx *fiber.Ctx) error {
	user, ok := currentUser(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not logged in"})
	}
	id, err := taskID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}
	var req SubmitRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	task, err := c.Machine.Submit(id, user.ID, req.ProofData)
	if err != nil {
		return engineError(ctx, err)
	}
	return ctx.JSON(task)
}

type ApproveRequest struct {
	Multiplier *float64 `json:"multiplier"`
	Adjustment *int     `json:"adjustment"`
}

func (c *TaskController) Approve(ctx *fiber.Ctx) error {
	user, ok := currentUser(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not logged in"})
	}
	id, err := taskID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}
	var req ApproveRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	task, err := c.Machine.Approve(id, user.ID, req.Multiplier, req.Adjustment)
	if err != nil {
		return engineError(ctx, err)
	}
	return ctx.JSON(task)
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (c *TaskController) Reject(ctx *fiber.Ctx) error {
	user, ok := currentUser(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not logged in"})
	}
	id, err := taskID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}
	var req RejectRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := validate.Struct(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": validationMessages(err)})
	}
	task, err := c.Machine.Reject(id, user.ID, req.Reason)
	if err != nil {
		return engineError(ctx, err)
	}
	return ctx.JSON(task)
}

type HoldRequest struct {
	Reason string `json:"reason"`
}

func (c *TaskController) Hold(ctx *fiber.Ctx) error {
	user, ok := currentUser(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not logged in"})
	}
	id, err := taskID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}
	var req HoldRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	task, err := c.Machine.Hold(id, user.ID, req.Reason)
	if err != nil {
		return engineError(ctx, err)
	}
	return ctx.JSON(task)
}

func (c *TaskController) Resume(ctx *fiber.Ctx) error {
	user, ok := currentUser(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not logged in"})
	}
	id, err := taskID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}
	task, err := c.Machine.Resume(id, user.ID)
	if err != nil {
		return engineError(ctx, err)
	}
	return ctx.JSON(task)
}

func (c *TaskController) GetTaskEvents(ctx *fiber.Ctx) error {
	id, err := taskID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}
	events, err := c.Events.ListByTask(id)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve events"})
	}
	return ctx.JSON(events)
}
