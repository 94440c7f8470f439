package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/printmes/internal/workorder/service"
)

// ProductHandler 产品/物料/客户处理器
type ProductHandler struct {
	svc *service.ProductService
}

// NewProductHandler 创建产品处理器
func NewProductHandler(svc *service.ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// ============================================================
// 产品接口
// ============================================================

// CreateProduct 创建产品
// POST /api/v1/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	product, err := h.svc.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}

	Created(c, product)
}

// UpdateProduct 更新产品
// PUT /api/v1/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "Product ID is required")
		return
	}

	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	product, err := h.svc.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, product)
}

// GetProduct 获取产品详情（含物料构成）
// GET /api/v1/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.svc.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, product)
}

// ListProducts 获取产品列表
// GET /api/v1/products?keyword=
func (h *ProductHandler) ListProducts(c *gin.Context) {
	page, pageSize := GetPagination(c)

	products, total, err := h.svc.ListProducts(c.Request.Context(), c.Query("keyword"), page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, NewListResponse(products, page, pageSize, total))
}

// DeleteProduct 删除产品
// DELETE /api/v1/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.svc.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}

	Success(c, nil)
}

// ============================================================
// 物料接口
// ============================================================

// CreateMaterial 创建物料
// POST /api/v1/materials
func (h *ProductHandler) CreateMaterial(c *gin.Context) {
	var req service.MaterialInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	material, err := h.svc.CreateMaterial(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}

	Created(c, material)
}

// ListMaterials 获取物料列表
// GET /api/v1/materials?keyword=
func (h *ProductHandler) ListMaterials(c *gin.Context) {
	page, pageSize := GetPagination(c)

	materials, total, err := h.svc.ListMaterials(c.Request.Context(), c.Query("keyword"), page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, NewListResponse(materials, page, pageSize, total))
}

// GetMaterial 获取物料详情
// GET /api/v1/materials/:id
func (h *ProductHandler) GetMaterial(c *gin.Context) {
	material, err := h.svc.GetMaterial(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, material)
}

// ============================================================
// 客户接口
// ============================================================

// CreateCustomer 创建客户
// POST /api/v1/customers
func (h *ProductHandler) CreateCustomer(c *gin.Context) {
	var req service.CustomerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	customer, err := h.svc.CreateCustomer(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}

	Created(c, customer)
}

// ListCustomers 获取客户列表
// GET /api/v1/customers?keyword=
func (h *ProductHandler) ListCustomers(c *gin.Context) {
	page, pageSize := GetPagination(c)

	customers, total, err := h.svc.ListCustomers(c.Request.Context(), c.Query("keyword"), page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, NewListResponse(customers, page, pageSize, total))
}

// GetCustomer 获取客户详情
// GET /api/v1/customers/:id
func (h *ProductHandler) GetCustomer(c *gin.Context) {
	customer, err := h.svc.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, customer)
}
