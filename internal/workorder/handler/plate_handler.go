package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/printmes/internal/workorder/service"
)

// PlateHandler 版库处理器（图稿、刀模、烫版、压凸版）
type PlateHandler struct {
	svc *service.PlateService
}

// NewPlateHandler 创建版库处理器
func NewPlateHandler(svc *service.PlateService) *PlateHandler {
	return &PlateHandler{svc: svc}
}

// ============================================================
// 图稿接口
// ============================================================

// CreateArtwork 创建图稿（新基础编码，版本 1）
// POST /api/v1/artworks
func (h *PlateHandler) CreateArtwork(c *gin.Context) {
	var req service.ArtworkInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	artwork, err := h.svc.CreateArtwork(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}

	Created(c, artwork)
}

// ReviseArtwork 基于现有图稿出新版本
// POST /api/v1/artworks/:id/revise
func (h *PlateHandler) ReviseArtwork(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "Artwork ID is required")
		return
	}

	artwork, err := h.svc.ReviseArtwork(c.Request.Context(), id, GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}

	Created(c, artwork)
}

// ListArtworks 获取图稿列表
// GET /api/v1/artworks?keyword=&page=&page_size=
func (h *PlateHandler) ListArtworks(c *gin.Context) {
	page, pageSize := GetPagination(c)

	artworks, total, err := h.svc.ListArtworks(c.Request.Context(), c.Query("keyword"), page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, NewListResponse(artworks, page, pageSize, total))
}

// GetArtwork 获取图稿详情
// GET /api/v1/artworks/:id
func (h *PlateHandler) GetArtwork(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "Artwork ID is required")
		return
	}

	artwork, err := h.svc.GetArtwork(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, artwork)
}

// GetArtworkVersion 按基础编码取某个版本，不带 version 参数时返回最新版
// GET /api/v1/artworks/by-code/:base_code?version=
func (h *PlateHandler) GetArtworkVersion(c *gin.Context) {
	baseCode := c.Param("base_code")
	if baseCode == "" {
		BadRequest(c, "Base code is required")
		return
	}

	if v := c.Query("version"); v != "" {
		version, err := strconv.Atoi(v)
		if err != nil || version < 1 {
			BadRequest(c, "Invalid version: "+v)
			return
		}
		artwork, err := h.svc.GetArtworkByBaseVersion(c.Request.Context(), baseCode, version)
		if err != nil {
			HandleError(c, err)
			return
		}
		Success(c, artwork)
		return
	}

	artwork, err := h.svc.LatestArtwork(c.Request.Context(), baseCode)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, artwork)
}

// UpdateArtwork 更新图稿元数据（基础编码与版本不可改）
// PUT /api/v1/artworks/:id
func (h *PlateHandler) UpdateArtwork(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "Artwork ID is required")
		return
	}

	var req service.ArtworkInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	artwork, err := h.svc.UpdateArtwork(c.Request.Context(), id, &req)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, artwork)
}

// UploadDesignFile 上传图稿设计文件
// POST /api/v1/artworks/:id/design-file
func (h *PlateHandler) UploadDesignFile(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "Artwork ID is required")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "File is required: "+err.Error())
		return
	}

	src, err := file.Open()
	if err != nil {
		InternalError(c, "Failed to open uploaded file: "+err.Error())
		return
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	artwork, err := h.svc.UploadDesignFile(c.Request.Context(), id, file.Filename, contentType, src, file.Size)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, artwork)
}

// GetDesignFileURL 获取设计文件的临时下载链接
// GET /api/v1/artworks/:id/design-file-url
func (h *PlateHandler) GetDesignFileURL(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "Artwork ID is required")
		return
	}

	url, err := h.svc.DesignFileURL(c.Request.Context(), id, 15*time.Minute)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, gin.H{"url": url})
}

// ============================================================
// 刀模/烫版/压凸版接口
// ============================================================

// CreateDie 创建刀模
// POST /api/v1/dies
func (h *PlateHandler) CreateDie(c *gin.Context) {
	var req service.PlateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	die, err := h.svc.CreateDie(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}

	Created(c, die)
}

// ListDies 获取刀模列表
// GET /api/v1/dies
func (h *PlateHandler) ListDies(c *gin.Context) {
	page, pageSize := GetPagination(c)

	dies, total, err := h.svc.ListDies(c.Request.Context(), c.Query("keyword"), page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, NewListResponse(dies, page, pageSize, total))
}

// GetDie 获取刀模详情
// GET /api/v1/dies/:id
func (h *PlateHandler) GetDie(c *gin.Context) {
	die, err := h.svc.GetDie(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, die)
}

// CreateFoilingPlate 创建烫版
// POST /api/v1/foiling-plates
func (h *PlateHandler) CreateFoilingPlate(c *gin.Context) {
	var req service.PlateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	plate, err := h.svc.CreateFoilingPlate(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}

	Created(c, plate)
}

// ListFoilingPlates 获取烫版列表
// GET /api/v1/foiling-plates?foiling_type=
func (h *PlateHandler) ListFoilingPlates(c *gin.Context) {
	page, pageSize := GetPagination(c)

	plates, total, err := h.svc.ListFoilingPlates(c.Request.Context(), c.Query("foiling_type"), c.Query("keyword"), page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, NewListResponse(plates, page, pageSize, total))
}

// GetFoilingPlate 获取烫版详情
// GET /api/v1/foiling-plates/:id
func (h *PlateHandler) GetFoilingPlate(c *gin.Context) {
	plate, err := h.svc.GetFoilingPlate(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, plate)
}

// CreateEmbossingPlate 创建压凸版
// POST /api/v1/embossing-plates
func (h *PlateHandler) CreateEmbossingPlate(c *gin.Context) {
	var req service.PlateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	plate, err := h.svc.CreateEmbossingPlate(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}

	Created(c, plate)
}

// ListEmbossingPlates 获取压凸版列表
// GET /api/v1/embossing-plates
func (h *PlateHandler) ListEmbossingPlates(c *gin.Context) {
	page, pageSize := GetPagination(c)

	plates, total, err := h.svc.ListEmbossingPlates(c.Request.Context(), c.Query("keyword"), page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, NewListResponse(plates, page, pageSize, total))
}

// GetEmbossingPlate 获取压凸版详情
// GET /api/v1/embossing-plates/:id
func (h *PlateHandler) GetEmbossingPlate(c *gin.Context) {
	plate, err := h.svc.GetEmbossingPlate(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, plate)
}

// ============================================================
// 通用版操作
// ============================================================

// ConfirmPlate 确认版可用于生产
// POST /api/v1/plates/:kind/:id/confirm
func (h *PlateHandler) ConfirmPlate(c *gin.Context) {
	if err := h.svc.Confirm(c.Request.Context(), c.Param("kind"), c.Param("id"), GetUserID(c)); err != nil {
		HandleError(c, err)
		return
	}

	Success(c, nil)
}

// DeletePlate 删除版（级联解绑并重派生受影响施工单）
// DELETE /api/v1/plates/:kind/:id
func (h *PlateHandler) DeletePlate(c *gin.Context) {
	if err := h.svc.DeletePlate(c.Request.Context(), c.Param("kind"), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}

	Success(c, nil)
}

// ListPlateLinks 获取版的关联关系
// GET /api/v1/plates/:kind/:id/links
func (h *PlateHandler) ListPlateLinks(c *gin.Context) {
	links, err := h.svc.LinkedPlates(c.Request.Context(), c.Param("id"), c.Param("kind"))
	if err != nil {
		HandleError(c, err)
		return
	}

	Success(c, links)
}

type plateLinkRequest struct {
	AID   string `json:"a_id" binding:"required"`
	AKind string `json:"a_kind" binding:"required"`
	BID   string `json:"b_id" binding:"required"`
	BKind string `json:"b_kind" binding:"required"`
}

// LinkPlates 建立版间关联
// POST /api/v1/plate-links
func (h *PlateHandler) LinkPlates(c *gin.Context) {
	var req plateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.svc.LinkPlates(c.Request.Context(), req.AID, req.AKind, req.BID, req.BKind); err != nil {
		HandleError(c, err)
		return
	}

	Created(c, nil)
}

// UnlinkPlates 解除版间关联
// DELETE /api/v1/plate-links
func (h *PlateHandler) UnlinkPlates(c *gin.Context) {
	var req plateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.svc.UnlinkPlates(c.Request.Context(), req.AID, req.AKind, req.BID, req.BKind); err != nil {
		HandleError(c, err)
		return
	}

	Success(c, nil)
}
