package api

import (
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// ScheduleController 冲突检测与排产优化控制器
type ScheduleController struct {
	scheduleService   *service.ScheduleService
	statisticsService service.StatisticsService
}

// NewScheduleController 创建排产控制器
func NewScheduleController(scheduleService *service.ScheduleService, statisticsService service.StatisticsService) *ScheduleController {
	return &ScheduleController{
		scheduleService:   scheduleService,
		statisticsService: statisticsService,
	}
}

// DetectRequest 对请求体中的任务做冲突检测
type DetectRequest struct {
	Tasks []schedule.Task `json:"tasks" binding:"required"`
}

// conflictReport 冲突检测结果
type conflictReport struct {
	Count     int                 `json:"count"`
	Conflicts []schedule.Conflict `json:"conflicts"`
}

func newConflictReport(conflicts []schedule.Conflict) conflictReport {
	if conflicts == nil {
		conflicts = []schedule.Conflict{}
	}
	return conflictReport{Count: len(conflicts), Conflicts: conflicts}
}

// Conflicts 检测当前排产中的冲突
// @Summary      检测当前冲突
// @Tags         排产
// @Produce      json
// @Param        machine_id   query string false "机器 ID"
// @Param        assignee_id  query string false "工人 ID"
// @Param        from         query string false "开始时间 RFC3339"
// @Param        to           query string false "结束时间 RFC3339"
// @Success      200  {object}  Response
// @Router       /schedule/conflicts [get]
// @Security     BearerAuth
func (c *ScheduleController) Conflicts(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	from, to, err := queryRange(ctx)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	conflicts, err := c.scheduleService.DetectFromStore(ctx.Request.Context(), actor, service.ConflictQuery{
		MachineID:  ctx.Query("machine_id"),
		AssigneeID: ctx.Query("assignee_id"),
		From:       from,
		To:         to,
	})
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, newConflictReport(conflicts))
}

// Detect 检测请求体中任务之间的冲突
// @Summary      检测给定任务的冲突
// @Tags         排产
// @Accept       json
// @Produce      json
// @Param        request body DetectRequest true "任务列表"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Router       /schedule/conflicts [post]
// @Security     BearerAuth
func (c *ScheduleController) Detect(ctx *gin.Context) {
	if _, ok := currentActor(ctx); !ok {
		return
	}
	var req DetectRequest
	if !bindJSON(ctx, &req) {
		return
	}

	conflicts, err := c.scheduleService.Detect(req.Tasks)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, newConflictReport(conflicts))
}

// Optimize 生成优化方案
// @Summary      生成优化方案
// @Description  方案只是建议,需要调用 apply 才会修改任务;无法解决的冲突在结果中列出
// @Tags         排产
// @Accept       json
// @Produce      json
// @Param        request body service.OptimizeRequest false "优化参数"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /schedule/optimize [post]
// @Security     BearerAuth
func (c *ScheduleController) Optimize(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req service.OptimizeRequest
	if ctx.Request.ContentLength != 0 {
		if !bindJSON(ctx, &req) {
			return
		}
	}

	proposal, err := c.scheduleService.Optimize(ctx.Request.Context(), actor, &req)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, proposal)
}

// GetProposal 查看方案
// @Summary      查看优化方案
// @Tags         排产
// @Produce      json
// @Param        id path string true "方案 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /schedule/proposals/{id} [get]
// @Security     BearerAuth
func (c *ScheduleController) GetProposal(ctx *gin.Context) {
	if _, ok := currentActor(ctx); !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	proposal, err := c.scheduleService.GetProposal(ctx.Request.Context(), id)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, proposal)
}

// ApplyProposal 应用方案
// @Summary      应用优化方案
// @Description  task_ids 为空时应用全部变更,每个变更的结果单独返回
// @Tags         排产
// @Accept       json
// @Produce      json
// @Param        id path string true "方案 ID"
// @Param        request body service.ApplyRequest false "接受的任务"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /schedule/proposals/{id}/apply [post]
// @Security     BearerAuth
func (c *ScheduleController) ApplyProposal(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.ApplyRequest
	if ctx.Request.ContentLength != 0 {
		if !bindJSON(ctx, &req) {
			return
		}
	}

	result, err := c.scheduleService.ApplyProposal(ctx.Request.Context(), actor, id, &req)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, result)
}

// DiscardProposal 丢弃方案
// @Summary      丢弃优化方案
// @Tags         排产
// @Param        id path string true "方案 ID"
// @Success      200  {object}  Response
// @Router       /schedule/proposals/{id} [delete]
// @Security     BearerAuth
func (c *ScheduleController) DiscardProposal(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.scheduleService.DiscardProposal(ctx.Request.Context(), actor, id); err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// Stats 排产概览
// @Summary      排产概览
// @Tags         排产
// @Produce      json
// @Success      200  {object}  Response
// @Router       /schedule/stats [get]
// @Security     BearerAuth
func (c *ScheduleController) Stats(ctx *gin.Context) {
	if _, ok := currentActor(ctx); !ok {
		return
	}

	overview, err := c.statisticsService.GetScheduleOverview(ctx.Request.Context())
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, overview)
}
