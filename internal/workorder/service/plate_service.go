package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/bitfantasy/printmes/internal/workorder/derive"
	"github.com/bitfantasy/printmes/internal/workorder/entity"
	"github.com/bitfantasy/printmes/internal/workorder/repository"
	"github.com/bitfantasy/printmes/internal/workorder/woerr"
)

// 编码前缀
const (
	codePrefixArtwork   = "ART"
	codePrefixDie       = "DIE"
	codePrefixFoiling   = "FP"
	codePrefixEmbossing = "EP"
)

// PlateService 版库：图稿、刀模、烫版、压凸版的登记与关联。
//
// 跨种类操作（关联、删除级联）按 PlateKindOrder 的固定顺序处理，
// 避免并发时互相持锁死锁。
type PlateService struct {
	repos       *repository.Repositories
	minioClient *minio.Client
	bucket      string
	logger      *zap.Logger

	// 删版级联要触发受影响施工单重派生
	workOrders *WorkOrderService
}

// NewPlateService 创建版库服务
func NewPlateService(repos *repository.Repositories, minioClient *minio.Client, bucket string, logger *zap.Logger) *PlateService {
	return &PlateService{
		repos:       repos,
		minioClient: minioClient,
		bucket:      bucket,
		logger:      logger,
	}
}

// nextCode 生成 前缀+年月+三位序号 的编码
func nextCode(prefix, maxExisting string) string {
	month := time.Now().Format("200601")
	full := prefix + month
	seq := 1
	if strings.HasPrefix(maxExisting, full) {
		if n, err := strconv.Atoi(maxExisting[len(full):]); err == nil {
			seq = n + 1
		}
	}
	return fmt.Sprintf("%s%03d", full, seq)
}

// ArtworkInput 图稿入参
type ArtworkInput struct {
	BaseCode       string   `json:"base_code"`
	Name           string   `json:"name"`
	CMYKColors     []string `json:"cmyk_colors"`
	OtherColors    []string `json:"other_colors"`
	ImpositionSize string   `json:"imposition_size"`
	Notes          string   `json:"notes"`
}

// CreateArtwork 创建图稿。base_code 留空时自动生成；
// 已有同 base_code 的图稿时，新行版本号为当前最大版本 +1。
func (s *PlateService) CreateArtwork(ctx context.Context, in *ArtworkInput, userID string) (*entity.Artwork, error) {
	if in.Name == "" {
		return nil, woerr.NewValidation("name", "name is required")
	}
	for _, c := range in.CMYKColors {
		if !derive.IsCMYKColor(c) {
			return nil, woerr.NewValidation("cmyk_colors", "invalid channel %q", c)
		}
	}

	baseCode := in.BaseCode
	if baseCode == "" {
		maxCode, err := s.repos.Artwork.MaxBaseCodeWithPrefix(ctx, codePrefixArtwork+time.Now().Format("200601"))
		if err != nil {
			return nil, err
		}
		baseCode = nextCode(codePrefixArtwork, maxCode)
	}

	version, err := s.repos.Artwork.MaxVersion(ctx, baseCode)
	if err != nil {
		return nil, err
	}

	cmyk, other := derive.NormalizeColorInput(append(append([]string{}, in.CMYKColors...), in.OtherColors...))
	a := &entity.Artwork{
		ID:             newID(),
		BaseCode:       baseCode,
		Version:        version + 1,
		Name:           in.Name,
		CMYKColors:     cmyk,
		OtherColors:    other,
		ImpositionSize: in.ImpositionSize,
		Notes:          in.Notes,
		CreatedBy:      userID,
	}
	if err := s.repos.Artwork.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("artwork created",
		zap.String("base_code", a.BaseCode), zap.Int("version", a.Version))
	return a, nil
}

// ReviseArtwork 以现有图稿为模板生成下一个版本
func (s *PlateService) ReviseArtwork(ctx context.Context, id, userID string) (*entity.Artwork, error) {
	prior, err := s.repos.Artwork.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.CreateArtwork(ctx, &ArtworkInput{
		BaseCode:       prior.BaseCode,
		Name:           prior.Name,
		CMYKColors:     prior.CMYKColors,
		OtherColors:    prior.OtherColors,
		ImpositionSize: prior.ImpositionSize,
		Notes:          prior.Notes,
	}, userID)
}

// GetArtwork 根据ID查图稿
func (s *PlateService) GetArtwork(ctx context.Context, id string) (*entity.Artwork, error) {
	return s.repos.Artwork.FindByID(ctx, id)
}

// GetArtworkByBaseVersion 根据基础编码与版本查图稿
func (s *PlateService) GetArtworkByBaseVersion(ctx context.Context, baseCode string, version int) (*entity.Artwork, error) {
	return s.repos.Artwork.FindByBaseVersion(ctx, baseCode, version)
}

// LatestArtwork 某基础编码的最新版本
func (s *PlateService) LatestArtwork(ctx context.Context, baseCode string) (*entity.Artwork, error) {
	return s.repos.Artwork.Latest(ctx, baseCode)
}

// ListArtworks 分页查询图稿
func (s *PlateService) ListArtworks(ctx context.Context, keyword string, page, pageSize int) ([]entity.Artwork, int64, error) {
	return s.repos.Artwork.List(ctx, keyword, page, pageSize)
}

// UpdateArtwork 修改图稿的非标识字段。编码与版本号不可改。
func (s *PlateService) UpdateArtwork(ctx context.Context, id string, in *ArtworkInput) (*entity.Artwork, error) {
	a, err := s.repos.Artwork.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.BaseCode != "" && in.BaseCode != a.BaseCode {
		return nil, woerr.NewValidation("base_code", "base_code is immutable, revise instead")
	}
	if in.Name != "" {
		a.Name = in.Name
	}
	if in.CMYKColors != nil || in.OtherColors != nil {
		cmyk, other := derive.NormalizeColorInput(append(append([]string{}, in.CMYKColors...), in.OtherColors...))
		a.CMYKColors = cmyk
		a.OtherColors = other
	}
	if in.ImpositionSize != "" {
		a.ImpositionSize = in.ImpositionSize
	}
	if in.Notes != "" {
		a.Notes = in.Notes
	}
	if err := s.repos.Artwork.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// UploadDesignFile 上传图稿设计文件到对象存储
func (s *PlateService) UploadDesignFile(ctx context.Context, artworkID, filename, contentType string, reader io.Reader, size int64) (*entity.Artwork, error) {
	if s.minioClient == nil {
		return nil, errors.New("object storage not configured")
	}
	a, err := s.repos.Artwork.FindByID(ctx, artworkID)
	if err != nil {
		return nil, err
	}

	key := path.Join("artworks", a.ID, filename)
	_, err = s.minioClient.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload design file: %w", err)
	}

	a.DesignFileKey = key
	if err := s.repos.Artwork.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DesignFileURL 设计文件的临时下载地址
func (s *PlateService) DesignFileURL(ctx context.Context, artworkID string, expire time.Duration) (string, error) {
	if s.minioClient == nil {
		return "", errors.New("object storage not configured")
	}
	a, err := s.repos.Artwork.FindByID(ctx, artworkID)
	if err != nil {
		return "", err
	}
	if a.DesignFileKey == "" {
		return "", woerr.NewValidation("design_file", "no design file attached")
	}
	u, err := s.minioClient.PresignedGetObject(ctx, s.bucket, a.DesignFileKey, expire, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// PlateInput 刀模/烫版/压凸版入参
type PlateInput struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	FoilingType string `json:"foiling_type"`
	Size        string `json:"size"`
	Material    string `json:"material"`
	Thickness   string `json:"thickness"`
	Notes       string `json:"notes"`
}

// CreateDie 创建刀模，编码留空自动生成
func (s *PlateService) CreateDie(ctx context.Context, in *PlateInput, userID string) (*entity.Die, error) {
	if in.Name == "" {
		return nil, woerr.NewValidation("name", "name is required")
	}
	code := in.Code
	if code == "" {
		maxCode, err := s.repos.Die.MaxCodeWithPrefix(ctx, codePrefixDie+time.Now().Format("200601"))
		if err != nil {
			return nil, err
		}
		code = nextCode(codePrefixDie, maxCode)
	} else if _, err := s.repos.Die.FindByCode(ctx, code); err == nil {
		return nil, woerr.ErrDuplicateCode
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	d := &entity.Die{
		ID:        newID(),
		Code:      code,
		Name:      in.Name,
		Size:      in.Size,
		Material:  in.Material,
		Thickness: in.Thickness,
		Notes:     in.Notes,
		CreatedBy: userID,
	}
	if err := s.repos.Die.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// CreateFoilingPlate 创建烫版，类型必须为 gold 或 silver
func (s *PlateService) CreateFoilingPlate(ctx context.Context, in *PlateInput, userID string) (*entity.FoilingPlate, error) {
	if in.Name == "" {
		return nil, woerr.NewValidation("name", "name is required")
	}
	if in.FoilingType != entity.FoilingTypeGold && in.FoilingType != entity.FoilingTypeSilver {
		return nil, woerr.NewValidation("foiling_type", "must be gold or silver")
	}
	code := in.Code
	if code == "" {
		maxCode, err := s.repos.Foiling.MaxCodeWithPrefix(ctx, codePrefixFoiling+time.Now().Format("200601"))
		if err != nil {
			return nil, err
		}
		code = nextCode(codePrefixFoiling, maxCode)
	} else if _, err := s.repos.Foiling.FindByCode(ctx, code); err == nil {
		return nil, woerr.ErrDuplicateCode
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	p := &entity.FoilingPlate{
		ID:          newID(),
		Code:        code,
		Name:        in.Name,
		FoilingType: in.FoilingType,
		Size:        in.Size,
		Material:    in.Material,
		Thickness:   in.Thickness,
		Notes:       in.Notes,
		CreatedBy:   userID,
	}
	if err := s.repos.Foiling.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateEmbossingPlate 创建压凸版，编码留空自动生成
func (s *PlateService) CreateEmbossingPlate(ctx context.Context, in *PlateInput, userID string) (*entity.EmbossingPlate, error) {
	if in.Name == "" {
		return nil, woerr.NewValidation("name", "name is required")
	}
	code := in.Code
	if code == "" {
		maxCode, err := s.repos.Embossing.MaxCodeWithPrefix(ctx, codePrefixEmbossing+time.Now().Format("200601"))
		if err != nil {
			return nil, err
		}
		code = nextCode(codePrefixEmbossing, maxCode)
	} else if _, err := s.repos.Embossing.FindByCode(ctx, code); err == nil {
		return nil, woerr.ErrDuplicateCode
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	p := &entity.EmbossingPlate{
		ID:        newID(),
		Code:      code,
		Name:      in.Name,
		Size:      in.Size,
		Material:  in.Material,
		Thickness: in.Thickness,
		Notes:     in.Notes,
		CreatedBy: userID,
	}
	if err := s.repos.Embossing.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Confirm 确认某个版可用于生产
func (s *PlateService) Confirm(ctx context.Context, kind, id, userID string) error {
	now := time.Now()
	switch kind {
	case entity.PlateKindArtwork:
		a, err := s.repos.Artwork.FindByID(ctx, id)
		if err != nil {
			return err
		}
		a.Confirmed, a.ConfirmedBy, a.ConfirmedAt = true, &userID, &now
		return s.repos.Artwork.Update(ctx, a)
	case entity.PlateKindDie:
		d, err := s.repos.Die.FindByID(ctx, id)
		if err != nil {
			return err
		}
		d.Confirmed, d.ConfirmedBy, d.ConfirmedAt = true, &userID, &now
		return s.repos.Die.Update(ctx, d)
	case entity.PlateKindFoilingPlate:
		p, err := s.repos.Foiling.FindByID(ctx, id)
		if err != nil {
			return err
		}
		p.Confirmed, p.ConfirmedBy, p.ConfirmedAt = true, &userID, &now
		return s.repos.Foiling.Update(ctx, p)
	case entity.PlateKindEmbossingPlate:
		p, err := s.repos.Embossing.FindByID(ctx, id)
		if err != nil {
			return err
		}
		p.Confirmed, p.ConfirmedBy, p.ConfirmedAt = true, &userID, &now
		return s.repos.Embossing.Update(ctx, p)
	}
	return woerr.NewValidation("kind", "unknown plate kind %q", kind)
}

// exists 校验版存在
func (s *PlateService) exists(ctx context.Context, kind, id string) error {
	var err error
	switch kind {
	case entity.PlateKindArtwork:
		_, err = s.repos.Artwork.FindByID(ctx, id)
	case entity.PlateKindDie:
		_, err = s.repos.Die.FindByID(ctx, id)
	case entity.PlateKindFoilingPlate:
		_, err = s.repos.Foiling.FindByID(ctx, id)
	case entity.PlateKindEmbossingPlate:
		_, err = s.repos.Embossing.FindByID(ctx, id)
	default:
		return woerr.NewValidation("kind", "unknown plate kind %q", kind)
	}
	return err
}

// LinkPlates 建立两个版之间的对称关联
func (s *PlateService) LinkPlates(ctx context.Context, aID, aKind, bID, bKind string) error {
	if aID == bID && aKind == bKind {
		return woerr.NewValidation("plate_b_id", "cannot link a plate to itself")
	}
	if err := s.exists(ctx, aKind, aID); err != nil {
		return err
	}
	if err := s.exists(ctx, bKind, bID); err != nil {
		return err
	}

	aID, aKind, bID, bKind = entity.NormalizePlatePair(aID, aKind, bID, bKind)
	ok, err := s.repos.PlateLink.Exists(ctx, aID, aKind, bID, bKind)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return s.repos.PlateLink.Create(ctx, &entity.PlateLink{
		ID:         newID(),
		PlateAID:   aID,
		PlateAKind: aKind,
		PlateBID:   bID,
		PlateBKind: bKind,
	})
}

// UnlinkPlates 解除关联
func (s *PlateService) UnlinkPlates(ctx context.Context, aID, aKind, bID, bKind string) error {
	aID, aKind, bID, bKind = entity.NormalizePlatePair(aID, aKind, bID, bKind)
	return s.repos.PlateLink.Delete(ctx, aID, aKind, bID, bKind)
}

// LinkedPlates 某个版的全部关联
func (s *PlateService) LinkedPlates(ctx context.Context, plateID, kind string) ([]entity.PlateLink, error) {
	if err := s.exists(ctx, kind, plateID); err != nil {
		return nil, err
	}
	return s.repos.PlateLink.ListFor(ctx, plateID, kind)
}

// DeletePlate 删除版并级联处理：
// 解除全部施工单绑定与版间关联，清空任务引用，
// 受影响的进行中施工单随后逐一重派生（引用该版的任务退回待版）。
func (s *PlateService) DeletePlate(ctx context.Context, kind, id string) error {
	if err := s.exists(ctx, kind, id); err != nil {
		return err
	}

	affected, err := s.repos.WorkOrder.ListOpenIDsByPlate(ctx, kind, id)
	if err != nil {
		return err
	}
	// 手工改绑过的任务可能挂在未绑定该版的施工单上
	tasks, err := s.repos.Task.ListActiveByPlate(ctx, kind, id)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(affected))
	for _, oid := range affected {
		seen[oid] = true
	}
	for _, t := range tasks {
		if !seen[t.WorkOrderID] {
			seen[t.WorkOrderID] = true
			affected = append(affected, t.WorkOrderID)
		}
	}

	err = s.repos.Transaction(func(tx *repository.Repositories) error {
		if err := tx.WorkOrder.UnbindPlateEverywhere(ctx, kind, id); err != nil {
			return err
		}
		if err := tx.PlateLink.DeleteAllFor(ctx, id, kind); err != nil {
			return err
		}
		if err := tx.Task.ClearPlateRefs(ctx, kind, id); err != nil {
			return err
		}
		switch kind {
		case entity.PlateKindArtwork:
			return tx.Artwork.Delete(ctx, id)
		case entity.PlateKindDie:
			return tx.Die.Delete(ctx, id)
		case entity.PlateKindFoilingPlate:
			return tx.Foiling.Delete(ctx, id)
		case entity.PlateKindEmbossingPlate:
			return tx.Embossing.Delete(ctx, id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, orderID := range affected {
		if err := s.workOrders.RepairAfterPlateRemoved(ctx, orderID, kind); err != nil {
			s.logger.Error("rederive after plate delete failed",
				zap.String("work_order_id", orderID),
				zap.String("plate_kind", kind),
				zap.Error(err))
		}
	}
	s.logger.Info("plate deleted",
		zap.String("kind", kind), zap.String("id", id),
		zap.Int("affected_orders", len(affected)))
	return nil
}

// GetDie 获取刀模详情
func (s *PlateService) GetDie(ctx context.Context, id string) (*entity.Die, error) {
	return s.repos.Die.FindByID(ctx, id)
}

// ListDies 获取刀模列表
func (s *PlateService) ListDies(ctx context.Context, keyword string, page, pageSize int) ([]entity.Die, int64, error) {
	return s.repos.Die.List(ctx, keyword, page, pageSize)
}

// GetFoilingPlate 获取烫版详情
func (s *PlateService) GetFoilingPlate(ctx context.Context, id string) (*entity.FoilingPlate, error) {
	return s.repos.Foiling.FindByID(ctx, id)
}

// ListFoilingPlates 获取烫版列表，可按金/银过滤
func (s *PlateService) ListFoilingPlates(ctx context.Context, foilingType, keyword string, page, pageSize int) ([]entity.FoilingPlate, int64, error) {
	if foilingType != "" && foilingType != entity.FoilingTypeGold && foilingType != entity.FoilingTypeSilver {
		return nil, 0, woerr.NewValidation("foiling_type", "must be gold or silver")
	}
	return s.repos.Foiling.List(ctx, foilingType, keyword, page, pageSize)
}

// GetEmbossingPlate 获取压凸版详情
func (s *PlateService) GetEmbossingPlate(ctx context.Context, id string) (*entity.EmbossingPlate, error) {
	return s.repos.Embossing.FindByID(ctx, id)
}

// ListEmbossingPlates 获取压凸版列表
func (s *PlateService) ListEmbossingPlates(ctx context.Context, keyword string, page, pageSize int) ([]entity.EmbossingPlate, int64, error) {
	return s.repos.Embossing.List(ctx, keyword, page, pageSize)
}
