package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/printmes/internal/config"
	"github.com/bitfantasy/printmes/internal/workorder/entity"
	"github.com/bitfantasy/printmes/internal/workorder/repository"
	"github.com/bitfantasy/printmes/internal/workorder/service"
	"github.com/bitfantasy/printmes/internal/workorder/sse"
	"github.com/bitfantasy/printmes/internal/workorder/woerr"
)

// Handlers 处理器集合
type Handlers struct {
	Auth      *AuthHandler
	Catalog   *CatalogHandler
	Plate     *PlateHandler
	Product   *ProductHandler
	WorkOrder *WorkOrderHandler
	Task      *TaskHandler
	SSE       *SSEHandler
}

// 分页参数，可被配置覆盖
var (
	defaultPageSize = 20
	maxPageSize     = 1000
)

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, hub *sse.Hub, page config.PageConfig) *Handlers {
	if page.DefaultSize > 0 {
		defaultPageSize = page.DefaultSize
	}
	if page.MaxSize > 0 {
		maxPageSize = page.MaxSize
	}
	return &Handlers{
		Auth:      NewAuthHandler(svc.Auth),
		Catalog:   NewCatalogHandler(svc.Catalog),
		Plate:     NewPlateHandler(svc.Plate),
		Product:   NewProductHandler(svc.Product),
		WorkOrder: NewWorkOrderHandler(svc.WorkOrder, svc.Export),
		Task:      NewTaskHandler(svc.Task),
		SSE:       NewSSEHandler(svc.Auth, hub),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse 列表响应结构
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewListResponse 组装列表响应
func NewListResponse(items interface{}, page, pageSize int, total int64) *ListResponse {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	}
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// HandleError 把业务错误映射为响应码
func HandleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, woerr.ErrDuplicateCode):
		Error(c, 40900, err.Error())
	case errors.Is(err, woerr.ErrInUse):
		Error(c, 40901, err.Error())
	case errors.Is(err, woerr.ErrInconsistentPlateDeclaration):
		Error(c, 40902, err.Error())
	case errors.Is(err, woerr.ErrStaleReference):
		Error(c, 40903, err.Error())
	case errors.Is(err, repository.ErrStaleVersion):
		Error(c, 40904, err.Error())
	case errors.Is(err, woerr.ErrUnknownCategory),
		errors.Is(err, woerr.ErrMissingRequiredPlate),
		errors.Is(err, woerr.ErrPlateTypeMismatch):
		BadRequest(c, err.Error())
	case errors.Is(err, woerr.ErrImmutableBuiltin):
		Forbidden(c, err.Error())
	case errors.Is(err, woerr.ErrUnauthorized):
		Forbidden(c, err.Error())
	case errors.Is(err, woerr.ErrTimeout):
		Error(c, 50400, err.Error())
	case woerr.IsValidation(err):
		BadRequest(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetActor 从上下文获取当前用户（JWTAuth 中间件注入）
func GetActor(c *gin.Context) *entity.User {
	v, _ := c.Get("user")
	if u, ok := v.(*entity.User); ok {
		return u
	}
	return nil
}

// GetPagination 从请求获取分页参数，默认值和上限取自配置
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = defaultPageSize

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= maxPageSize {
			pageSize = v
		}
	}

	return page, pageSize
}
