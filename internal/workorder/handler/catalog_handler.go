package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/printmes/internal/workorder/service"
)

// CatalogHandler 工序目录处理器
type CatalogHandler struct {
	svc *service.CatalogService
}

// NewCatalogHandler 创建工序目录处理器
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// ============================================================
// 工序接口
// ============================================================

// ListProcesses 获取工序列表
// GET /api/v1/processes?category_id=&builtin=&page=&page_size=
func (h *CatalogHandler) ListProcesses(c *gin.Context) {
	page, pageSize := GetPagination(c)

	var builtin *bool
	if v := c.Query("builtin"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			BadRequest(c, "Invalid builtin filter: "+v)
			return
		}
		builtin = &b
	}

	processes, total, err := h.svc.ListProcesses(c.Request.Context(), c.Query("category_id"), builtin, page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, NewListResponse(processes, page, pageSize, total))
}

// GetProcess 获取工序详情
// GET /api/v1/processes/:id
func (h *CatalogHandler) GetProcess(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "Process ID is required")
		return
	}

	process, err := h.svc.GetProcess(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, process)
}

// CreateProcess 注册自定义工序
// POST /api/v1/processes
func (h *CatalogHandler) CreateProcess(c *gin.Context) {
	var req service.ProcessInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	process, err := h.svc.RegisterProcess(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}

	Created(c, process)
}

// UpdateProcess 更新自定义工序
// PUT /api/v1/processes/:id
func (h *CatalogHandler) UpdateProcess(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "Process ID is required")
		return
	}

	var req service.ProcessInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	process, err := h.svc.UpdateProcess(c.Request.Context(), id, &req)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, process)
}

// DeleteProcess 删除自定义工序
// DELETE /api/v1/processes/:id
func (h *CatalogHandler) DeleteProcess(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "Process ID is required")
		return
	}

	if err := h.svc.DeleteProcess(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}

	Success(c, nil)
}

// ============================================================
// 工序分类接口
// ============================================================

// ListCategories 获取工序分类列表
// GET /api/v1/process-categories
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, categories)
}

// CreateCategory 新增工序分类
// POST /api/v1/process-categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req service.CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	category, err := h.svc.RegisterCategory(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}

	Created(c, category)
}
