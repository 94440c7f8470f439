package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/printmes/internal/workorder/service"
)

// WorkOrderHandler 施工单处理器
type WorkOrderHandler struct {
	svc    *service.WorkOrderService
	export *service.ExportService
}

// NewWorkOrderHandler 创建施工单处理器
func NewWorkOrderHandler(svc *service.WorkOrderService, export *service.ExportService) *WorkOrderHandler {
	return &WorkOrderHandler{svc: svc, export: export}
}

// Create 创建施工单
// POST /api/v1/work-orders
func (h *WorkOrderHandler) Create(c *gin.Context) {
	var req service.WorkOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	order, err := h.svc.Create(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}

	Created(c, order)
}

// Get 获取施工单详情（含任务链与绑定的版）
// GET /api/v1/work-orders/:id
func (h *WorkOrderHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "Work order ID is required")
		return
	}

	order, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, order)
}

// List 获取施工单列表
// GET /api/v1/work-orders?status=&approval_status=&customer_id=&keyword=
func (h *WorkOrderHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	orders, total, err := h.svc.List(c.Request.Context(),
		c.Query("status"), c.Query("approval_status"),
		c.Query("customer_id"), c.Query("keyword"),
		page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, NewListResponse(orders, page, pageSize, total))
}

// Update 更新施工单基础信息
// PUT /api/v1/work-orders/:id
func (h *WorkOrderHandler) Update(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "Work order ID is required")
		return
	}

	var req service.WorkOrderUpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.svc.Update(c.Request.Context(), id, &req); err != nil {
		HandleError(c, err)
		return
	}

	order, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, order)
}

// BindPlate 绑定版到施工单
// POST /api/v1/work-orders/:id/plates
func (h *WorkOrderHandler) BindPlate(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Kind          string `json:"kind" binding:"required"`
		PlateID       string `json:"plate_id" binding:"required"`
		IncludeLinked bool   `json:"include_linked"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.svc.BindPlate(c.Request.Context(), id, req.Kind, req.PlateID, req.IncludeLinked); err != nil {
		HandleError(c, err)
		return
	}

	order, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, order)
}

// UnbindPlate 解绑版
// DELETE /api/v1/work-orders/:id/plates/:kind/:plateId
func (h *WorkOrderHandler) UnbindPlate(c *gin.Context) {
	id := c.Param("id")

	if err := h.svc.UnbindPlate(c.Request.Context(), id, c.Param("kind"), c.Param("plateId")); err != nil {
		HandleError(c, err)
		return
	}

	order, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, order)
}

// SetProcesses 设置工序链
// PUT /api/v1/work-orders/:id/processes
func (h *WorkOrderHandler) SetProcesses(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		ProcessCodes []string `json:"process_codes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.svc.SetProcesses(c.Request.Context(), id, req.ProcessCodes); err != nil {
		HandleError(c, err)
		return
	}

	order, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, order)
}

// SetPrintingType 设置印刷方式
// PUT /api/v1/work-orders/:id/printing-type
func (h *WorkOrderHandler) SetPrintingType(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		PrintingType string `json:"printing_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.svc.SetPrintingType(c.Request.Context(), id, req.PrintingType); err != nil {
		HandleError(c, err)
		return
	}

	Success(c, nil)
}

// SetPlateType 设置用版声明
// PUT /api/v1/work-orders/:id/plate-type
func (h *WorkOrderHandler) SetPlateType(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Kind  string `json:"kind" binding:"required"`
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.svc.SetPlateType(c.Request.Context(), id, req.Kind, req.Value); err != nil {
		HandleError(c, err)
		return
	}

	Success(c, nil)
}

// SetMaterials 替换施工单物料行
// PUT /api/v1/work-orders/:id/materials
func (h *WorkOrderHandler) SetMaterials(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Materials []service.MaterialLineInput `json:"materials" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.svc.SetMaterials(c.Request.Context(), id, req.Materials); err != nil {
		HandleError(c, err)
		return
	}

	order, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, order)
}

// Rederive 手动触发任务链重派生
// POST /api/v1/work-orders/:id/rederive
func (h *WorkOrderHandler) Rederive(c *gin.Context) {
	id := c.Param("id")

	if err := h.svc.Rederive(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}

	order, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, order)
}

// Approve 审批通过
// POST /api/v1/work-orders/:id/approve
func (h *WorkOrderHandler) Approve(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Comment string `json:"comment"`
	}
	_ = c.ShouldBindJSON(&req)

	if err := h.svc.Approve(c.Request.Context(), id, GetUserID(c), req.Comment); err != nil {
		HandleError(c, err)
		return
	}

	Success(c, nil)
}

// Reject 审批驳回
// POST /api/v1/work-orders/:id/reject
func (h *WorkOrderHandler) Reject(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Comment string `json:"comment"`
	}
	_ = c.ShouldBindJSON(&req)

	if err := h.svc.Reject(c.Request.Context(), id, GetUserID(c), req.Comment); err != nil {
		HandleError(c, err)
		return
	}

	Success(c, nil)
}

// SetStatus 切换施工单状态
// PUT /api/v1/work-orders/:id/status
func (h *WorkOrderHandler) SetStatus(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.svc.SetStatus(c.Request.Context(), id, req.Status); err != nil {
		HandleError(c, err)
		return
	}

	Success(c, nil)
}

// ExportTasks 导出任务链 Excel
// GET /api/v1/work-orders/:id/tasks/export
func (h *WorkOrderHandler) ExportTasks(c *gin.Context) {
	id := c.Param("id")

	f, filename, err := h.export.ExportTasks(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}
