package api

import (
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// MaintenanceController 维护记录控制器
// 所有读取入口返回的状态都是有效状态,计划日期已过的 scheduled 记录显示为 overdue
type MaintenanceController struct {
	maintenanceService service.MaintenanceService
}

// NewMaintenanceController 创建维护记录控制器
func NewMaintenanceController(maintenanceService service.MaintenanceService) *MaintenanceController {
	return &MaintenanceController{maintenanceService: maintenanceService}
}

// maintenanceQuery 解析维护记录的查询参数
func maintenanceQuery(ctx *gin.Context) (service.MaintenanceQuery, int, int, error) {
	from, to, err := queryRange(ctx)
	if err != nil {
		return service.MaintenanceQuery{}, 0, 0, err
	}
	page, pageSize := pageParams(ctx)
	return service.MaintenanceQuery{
		MachineID:  ctx.Query("machine_id"),
		AssignedTo: ctx.Query("assigned_to"),
		Status:     ctx.Query("status"),
		From:       from,
		To:         to,
		Page:       page,
		PageSize:   pageSize,
	}, page, pageSize, nil
}

// List 维护记录列表
// @Summary      维护记录列表
// @Tags         维护
// @Produce      json
// @Param        machine_id   query string false "机器 ID"
// @Param        assigned_to  query string false "负责人"
// @Param        status       query string false "有效状态,包括 overdue"
// @Param        from         query string false "计划日期下界 RFC3339"
// @Param        to           query string false "计划日期上界 RFC3339"
// @Success      200  {object}  PaginatedResponse
// @Router       /maintenance [get]
// @Security     BearerAuth
func (c *MaintenanceController) List(ctx *gin.Context) {
	q, page, pageSize, err := maintenanceQuery(ctx)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	records, total, err := c.maintenanceService.List(ctx.Request.Context(), q)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Paginated(ctx, records, NewPaginationInfo(page, pageSize, total))
}

// Create 安排维护
// @Summary      安排维护
// @Tags         维护
// @Accept       json
// @Produce      json
// @Param        request body service.CreateMaintenanceRequest true "维护信息"
// @Success      201  {object}  Response
// @Router       /maintenance [post]
// @Security     BearerAuth
func (c *MaintenanceController) Create(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req service.CreateMaintenanceRequest
	if !bindJSON(ctx, &req) {
		return
	}

	record, err := c.maintenanceService.Create(ctx.Request.Context(), actor, &req)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Created(ctx, record)
}

// Get 维护记录详情
func (c *MaintenanceController) Get(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	record, err := c.maintenanceService.Get(ctx.Request.Context(), id)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, record)
}

// Calendar 维护日历
// @Summary      维护日历
// @Tags         维护
// @Produce      json
// @Param        from  query string true "开始时间 RFC3339"
// @Param        to    query string true "结束时间 RFC3339"
// @Success      200  {object}  Response
// @Router       /maintenance/calendar [get]
// @Security     BearerAuth
func (c *MaintenanceController) Calendar(ctx *gin.Context) {
	window, err := queryWindow(ctx)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	records, err := c.maintenanceService.Calendar(ctx.Request.Context(), window.Start, window.End)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, records)
}

// Complete 完成维护
func (c *MaintenanceController) Complete(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.CompleteMaintenanceRequest
	if ctx.Request.ContentLength != 0 {
		if !bindJSON(ctx, &req) {
			return
		}
	}

	record, err := c.maintenanceService.Complete(ctx.Request.Context(), actor, id, &req)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, record)
}
