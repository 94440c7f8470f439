package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/printmes/internal/workorder/service"
)

// TaskHandler 任务处理器
type TaskHandler struct {
	svc *service.TaskService
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// List 获取任务列表
// GET /api/v1/tasks?status=&department_id=&operator_id=
func (h *TaskHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	tasks, total, err := h.svc.List(c.Request.Context(),
		c.Query("status"), c.Query("department_id"), c.Query("operator_id"),
		page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, NewListResponse(tasks, page, pageSize, total))
}

// Get 获取任务详情
// GET /api/v1/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "Task ID is required")
		return
	}

	task, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, task)
}

// ListByWorkOrder 获取施工单的任务链
// GET /api/v1/work-orders/:id/tasks
func (h *TaskHandler) ListByWorkOrder(c *gin.Context) {
	tasks, err := h.svc.ListByWorkOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, tasks)
}

// ChangeStatus 变更任务状态
// PUT /api/v1/tasks/:id/status
func (h *TaskHandler) ChangeStatus(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Status      string `json:"status" binding:"required"`
		LockVersion int    `json:"lock_version" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	task, err := h.svc.ChangeStatus(c.Request.Context(), id, req.Status, req.LockVersion, GetActor(c))
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, task)
}

// Assign 指派任务给部门或操作工
// PUT /api/v1/tasks/:id/assignment
func (h *TaskHandler) Assign(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		DepartmentID *string `json:"department_id"`
		OperatorID   *string `json:"operator_id"`
		LockVersion  int     `json:"lock_version" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	task, err := h.svc.Assign(c.Request.Context(), id, req.DepartmentID, req.OperatorID, req.LockVersion, GetActor(c))
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, task)
}

// BindPlate 为待版任务手工绑版
// PUT /api/v1/tasks/:id/plate
func (h *TaskHandler) BindPlate(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Kind        string `json:"kind" binding:"required"`
		PlateID     string `json:"plate_id" binding:"required"`
		LockVersion int    `json:"lock_version" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	task, err := h.svc.BindPlate(c.Request.Context(), id, req.Kind, req.PlateID, req.LockVersion, GetActor(c))
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, task)
}

// UpdateQuantity 上报完成数量
// PUT /api/v1/tasks/:id/quantity
func (h *TaskHandler) UpdateQuantity(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		CompletedQuantity int `json:"completed_quantity" binding:"min=0"`
		LockVersion       int `json:"lock_version" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	task, err := h.svc.UpdateQuantity(c.Request.Context(), id, req.CompletedQuantity, req.LockVersion, GetActor(c))
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, task)
}

// Logs 获取任务操作日志
// GET /api/v1/tasks/:id/logs
func (h *TaskHandler) Logs(c *gin.Context) {
	logs, err := h.svc.Logs(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, logs)
}
