package api

import (
	"strconv"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// TaskController 任务控制器
type TaskController struct {
	taskService     service.TaskService
	scheduleService *service.ScheduleService
}

// NewTaskController 创建任务控制器
func NewTaskController(taskService service.TaskService, scheduleService *service.ScheduleService) *TaskController {
	return &TaskController{
		taskService:     taskService,
		scheduleService: scheduleService,
	}
}

// Create 创建任务
// @Summary      创建排产任务
// @Description  时间窗口必须满足 start < end,冲突不会阻止创建
// @Tags         任务管理
// @Accept       json
// @Produce      json
// @Param        request body service.CreateTaskRequest true "任务信息"
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks [post]
// @Security     BearerAuth
func (c *TaskController) Create(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req service.CreateTaskRequest
	if !bindJSON(ctx, &req) {
		return
	}

	task, err := c.taskService.Create(ctx.Request.Context(), actor, &req)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Created(ctx, task)
}

// List 查询任务列表
// @Summary      查询任务列表
// @Description  操作员和技术员只能看到分配给自己的任务
// @Tags         任务管理
// @Produce      json
// @Param        machine_id   query string false "机器 ID"
// @Param        assignee_id  query string false "工人 ID"
// @Param        status       query string false "状态,逗号分隔"
// @Param        from         query string false "开始时间 RFC3339"
// @Param        to           query string false "结束时间 RFC3339"
// @Param        include_terminal query bool false "包含已完成和已取消的任务"
// @Param        page         query int    false "页码"
// @Param        page_size    query int    false "每页数量"
// @Success      200  {object}  PaginatedResponse
// @Router       /tasks [get]
// @Security     BearerAuth
func (c *TaskController) List(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	from, to, err := queryRange(ctx)
	if err != nil {
		HandleError(ctx, err)
		return
	}
	statuses, err := service.ParseStatuses(ctx.Query("status"))
	if err != nil {
		HandleError(ctx, err)
		return
	}
	includeTerminal, _ := strconv.ParseBool(ctx.Query("include_terminal"))
	page, pageSize := pageParams(ctx)

	tasks, total, err := c.taskService.List(ctx.Request.Context(), actor, service.TaskQuery{
		MachineID:       ctx.Query("machine_id"),
		AssigneeID:      ctx.Query("assignee_id"),
		Statuses:        statuses,
		From:            from,
		To:              to,
		IncludeTerminal: includeTerminal,
		Page:            page,
		PageSize:        pageSize,
	})
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Paginated(ctx, tasks, NewPaginationInfo(page, pageSize, total))
}

// Get 获取任务
// @Summary      获取任务详情
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks/{id} [get]
// @Security     BearerAuth
func (c *TaskController) Get(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	task, err := c.taskService.Get(ctx.Request.Context(), actor, id)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, task)
}

// UpdateStatus 变更任务状态
// @Summary      变更任务状态
// @Description  expected_version 与当前版本不一致时返回 409
// @Tags         任务管理
// @Accept       json
// @Produce      json
// @Param        id path string true "任务 ID"
// @Param        request body service.StatusRequest true "目标状态"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /tasks/{id}/status [patch]
// @Security     BearerAuth
func (c *TaskController) UpdateStatus(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.StatusRequest
	if !bindJSON(ctx, &req) {
		return
	}

	task, err := c.taskService.TransitionStatus(ctx.Request.Context(), actor, id, &req)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, task)
}

// Cancel 取消任务
// @Summary      取消任务
// @Tags         任务管理
// @Accept       json
// @Produce      json
// @Param        id path string true "任务 ID"
// @Param        request body service.CancelRequest true "取消信息"
// @Success      200  {object}  Response
// @Failure      409  {object}  ErrorResponse
// @Router       /tasks/{id}/cancel [post]
// @Security     BearerAuth
func (c *TaskController) Cancel(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.CancelRequest
	if !bindJSON(ctx, &req) {
		return
	}

	task, err := c.taskService.Cancel(ctx.Request.Context(), actor, id, &req)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, task)
}

// Reassign 改派任务
// @Summary      改派任务
// @Description  目标资源被占用时返回 409 和可选的替代安排;force 跳过占用检查
// @Tags         任务管理
// @Accept       json
// @Produce      json
// @Param        id path string true "任务 ID"
// @Param        request body service.ReassignRequest true "目标机器、工人或时间"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /tasks/{id}/reassign [post]
// @Security     BearerAuth
func (c *TaskController) Reassign(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.ReassignRequest
	if !bindJSON(ctx, &req) {
		return
	}

	task, err := c.scheduleService.Reassign(ctx.Request.Context(), actor, id, &req)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, task)
}

// History 任务变更历史
// @Summary      任务变更历史
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response
// @Router       /tasks/{id}/history [get]
// @Security     BearerAuth
func (c *TaskController) History(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	history, err := c.taskService.History(ctx.Request.Context(), actor, id)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, history)
}
