package api

import (
	"strconv"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// WorkerController 工人控制器
type WorkerController struct {
	workerService service.WorkerService
}

// NewWorkerController 创建工人控制器
func NewWorkerController(workerService service.WorkerService) *WorkerController {
	return &WorkerController{workerService: workerService}
}

// Create 登记工人
func (c *WorkerController) Create(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req service.CreateWorkerRequest
	if !bindJSON(ctx, &req) {
		return
	}

	worker, err := c.workerService.Create(ctx.Request.Context(), actor, &req)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Created(ctx, worker)
}

// List 工人列表,active=true 时只返回在岗工人
func (c *WorkerController) List(ctx *gin.Context) {
	activeOnly, _ := strconv.ParseBool(ctx.Query("active"))

	workers, err := c.workerService.List(ctx.Request.Context(), activeOnly)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, workers)
}

// Get 工人详情
func (c *WorkerController) Get(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	worker, err := c.workerService.Get(ctx.Request.Context(), id)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, worker)
}

// Availability 工人在窗口内的忙闲
func (c *WorkerController) Availability(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	window, err := queryWindow(ctx)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	availability, err := c.workerService.Availability(ctx.Request.Context(), id, window)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, availability)
}
