package api

import (
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/repository"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// MachineController 机器控制器
type MachineController struct {
	machineService     service.MachineService
	maintenanceService service.MaintenanceService
}

// NewMachineController 创建机器控制器
func NewMachineController(machineService service.MachineService, maintenanceService service.MaintenanceService) *MachineController {
	return &MachineController{
		machineService:     machineService,
		maintenanceService: maintenanceService,
	}
}

// Create 登记机器
// @Summary      登记机器
// @Tags         机器
// @Accept       json
// @Produce      json
// @Param        request body service.CreateMachineRequest true "机器信息"
// @Success      201  {object}  Response
// @Router       /machines [post]
// @Security     BearerAuth
func (c *MachineController) Create(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req service.CreateMachineRequest
	if !bindJSON(ctx, &req) {
		return
	}

	machine, err := c.machineService.Create(ctx.Request.Context(), actor, &req)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Created(ctx, machine)
}

// List 机器列表
// @Summary      机器列表
// @Tags         机器
// @Produce      json
// @Param        type    query string false "机器类型"
// @Param        status  query string false "机器状态"
// @Success      200  {object}  Response
// @Router       /machines [get]
// @Security     BearerAuth
func (c *MachineController) List(ctx *gin.Context) {
	machines, err := c.machineService.List(ctx.Request.Context(), repository.MachineFilter{
		Type:   ctx.Query("type"),
		Status: ctx.Query("status"),
	})
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, machines)
}

// Get 机器详情
// @Summary      机器详情
// @Tags         机器
// @Produce      json
// @Param        id path string true "机器 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /machines/{id} [get]
// @Security     BearerAuth
func (c *MachineController) Get(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	machine, err := c.machineService.Get(ctx.Request.Context(), id)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, machine)
}

// UpdateStatus 更新机器状态
// @Summary      更新机器状态
// @Tags         机器
// @Accept       json
// @Produce      json
// @Param        id path string true "机器 ID"
// @Param        request body service.UpdateMachineStatusRequest true "状态"
// @Success      200  {object}  Response
// @Router       /machines/{id}/status [patch]
// @Security     BearerAuth
func (c *MachineController) UpdateStatus(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.UpdateMachineStatusRequest
	if !bindJSON(ctx, &req) {
		return
	}

	machine, err := c.machineService.UpdateStatus(ctx.Request.Context(), actor, id, req.Status)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, machine)
}

// Availability 机器在窗口内的忙闲
// @Summary      机器忙闲
// @Tags         机器
// @Produce      json
// @Param        id    path  string true "机器 ID"
// @Param        from  query string true "开始时间 RFC3339"
// @Param        to    query string true "结束时间 RFC3339"
// @Success      200  {object}  Response
// @Router       /machines/{id}/availability [get]
// @Security     BearerAuth
func (c *MachineController) Availability(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	window, err := queryWindow(ctx)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	availability, err := c.machineService.Availability(ctx.Request.Context(), id, window)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, availability)
}

// Maintenance 机器的维护记录
// @Summary      机器维护记录
// @Tags         机器
// @Produce      json
// @Param        id      path  string true  "机器 ID"
// @Param        status  query string false "有效状态,包括 overdue"
// @Success      200  {object}  PaginatedResponse
// @Router       /machines/{id}/maintenance [get]
// @Security     BearerAuth
func (c *MachineController) Maintenance(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	q, page, pageSize, err := maintenanceQuery(ctx)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	records, total, err := c.maintenanceService.ForMachine(ctx.Request.Context(), id, q)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Paginated(ctx, records, NewPaginationInfo(page, pageSize, total))
}
