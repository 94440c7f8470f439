package service

import (
	"context"
	"errors"
	"regexp"
	"sync"

	"go.uber.org/zap"

	"github.com/bitfantasy/printmes/internal/workorder/entity"
	"github.com/bitfantasy/printmes/internal/workorder/repository"
	"github.com/bitfantasy/printmes/internal/workorder/woerr"
)

var processCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{0,49}$`)

// CatalogService 工序目录。
//
// 目录读多写少：内存快照供派生和校验无锁读取（RWMutex 读锁），
// 注册、修改、删除走写锁并同步落库。启动时 Reload 一次。
type CatalogService struct {
	repos  *repository.Repositories
	logger *zap.Logger

	mu         sync.RWMutex
	byCode     map[string]*entity.Process
	categories map[string]*entity.ProcessCategory
}

// NewCatalogService 创建工序目录服务
func NewCatalogService(repos *repository.Repositories, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		repos:      repos,
		logger:     logger,
		byCode:     make(map[string]*entity.Process),
		categories: make(map[string]*entity.ProcessCategory),
	}
}

// Reload 从数据库重建内存快照
func (s *CatalogService) Reload(ctx context.Context) error {
	procs, err := s.repos.Process.ListAll(ctx)
	if err != nil {
		return err
	}
	cats, err := s.repos.Category.ListAll(ctx)
	if err != nil {
		return err
	}

	byCode := make(map[string]*entity.Process, len(procs))
	for i := range procs {
		byCode[procs[i].Code] = &procs[i]
	}
	categories := make(map[string]*entity.ProcessCategory, len(cats))
	for i := range cats {
		categories[cats[i].ID] = &cats[i]
	}

	s.mu.Lock()
	s.byCode = byCode
	s.categories = categories
	s.mu.Unlock()

	s.logger.Info("process catalog loaded",
		zap.Int("processes", len(byCode)),
		zap.Int("categories", len(categories)))
	return nil
}

// Lookup 根据编码查工序，O(1)
func (s *CatalogService) Lookup(code string) (*entity.Process, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byCode[code]
	return p, ok
}

// Snapshot 当前目录的浅拷贝，交给派生引擎使用
func (s *CatalogService) Snapshot() map[string]*entity.Process {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*entity.Process, len(s.byCode))
	for code, p := range s.byCode {
		out[code] = p
	}
	return out
}

// ValidateCodes 校验一组工序编码全部存在且启用
func (s *CatalogService) ValidateCodes(codes []string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, code := range codes {
		p, ok := s.byCode[code]
		if !ok {
			return woerr.NewValidation("process_codes", "unknown process code %q", code)
		}
		if !p.IsActive {
			return woerr.NewValidation("process_codes", "process %q is inactive", code)
		}
	}
	return nil
}

// ProcessInput 工序注册/修改入参
type ProcessInput struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CategoryID  *string `json:"category_id"`
	SortOrder   int     `json:"sort_order"`
	IsActive    *bool   `json:"is_active"`

	RequiresArtwork        bool `json:"requires_artwork"`
	RequiresDie            bool `json:"requires_die"`
	RequiresFoilingPlate   bool `json:"requires_foiling_plate"`
	RequiresEmbossingPlate bool `json:"requires_embossing_plate"`
}

// RegisterProcess 注册自定义工序
func (s *CatalogService) RegisterProcess(ctx context.Context, in *ProcessInput) (*entity.Process, error) {
	if !processCodePattern.MatchString(in.Code) {
		return nil, woerr.NewValidation("code", "code must match %s", processCodePattern.String())
	}
	if in.Name == "" {
		return nil, woerr.NewValidation("name", "name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byCode[in.Code]; exists {
		return nil, woerr.ErrDuplicateCode
	}
	if in.CategoryID != nil {
		if _, ok := s.categories[*in.CategoryID]; !ok {
			return nil, woerr.ErrUnknownCategory
		}
	}

	p := &entity.Process{
		ID:                     newID(),
		Code:                   in.Code,
		Name:                   in.Name,
		Description:            in.Description,
		CategoryID:             in.CategoryID,
		SortOrder:              in.SortOrder,
		IsActive:               true,
		RequiresArtwork:        in.RequiresArtwork,
		RequiresDie:            in.RequiresDie,
		RequiresFoilingPlate:   in.RequiresFoilingPlate,
		RequiresEmbossingPlate: in.RequiresEmbossingPlate,
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}

	if err := s.repos.Process.Create(ctx, p); err != nil {
		return nil, err
	}
	s.byCode[p.Code] = p
	s.logger.Info("process registered", zap.String("code", p.Code))
	return p, nil
}

// UpdateProcess 修改工序。内置工序的编码与版需求不可变。
func (s *CatalogService) UpdateProcess(ctx context.Context, id string, in *ProcessInput) (*entity.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repos.Process.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if current.IsBuiltin {
		if in.Code != "" && in.Code != current.Code {
			return nil, woerr.ErrImmutableBuiltin
		}
		if in.RequiresArtwork != current.RequiresArtwork ||
			in.RequiresDie != current.RequiresDie ||
			in.RequiresFoilingPlate != current.RequiresFoilingPlate ||
			in.RequiresEmbossingPlate != current.RequiresEmbossingPlate {
			return nil, woerr.ErrImmutableBuiltin
		}
	} else if in.Code != "" && in.Code != current.Code {
		if !processCodePattern.MatchString(in.Code) {
			return nil, woerr.NewValidation("code", "code must match %s", processCodePattern.String())
		}
		if _, exists := s.byCode[in.Code]; exists {
			return nil, woerr.ErrDuplicateCode
		}
		delete(s.byCode, current.Code)
		current.Code = in.Code
	}

	if in.CategoryID != nil {
		if _, ok := s.categories[*in.CategoryID]; !ok {
			return nil, woerr.ErrUnknownCategory
		}
		current.CategoryID = in.CategoryID
	}
	if in.Name != "" {
		current.Name = in.Name
	}
	if in.Description != "" {
		current.Description = in.Description
	}
	if in.SortOrder != 0 {
		current.SortOrder = in.SortOrder
	}
	if in.IsActive != nil {
		current.IsActive = *in.IsActive
	}
	if !current.IsBuiltin {
		current.RequiresArtwork = in.RequiresArtwork
		current.RequiresDie = in.RequiresDie
		current.RequiresFoilingPlate = in.RequiresFoilingPlate
		current.RequiresEmbossingPlate = in.RequiresEmbossingPlate
	}

	if err := s.repos.Process.Update(ctx, current); err != nil {
		return nil, err
	}
	s.byCode[current.Code] = current
	return current, nil
}

// DeleteProcess 删除工序。内置工序不可删，被进行中施工单引用的不可删。
func (s *CatalogService) DeleteProcess(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.repos.Process.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p.IsBuiltin {
		return woerr.ErrImmutableBuiltin
	}

	count, err := s.repos.Process.CountOpenWorkOrdersUsing(ctx, p.Code)
	if err != nil {
		return err
	}
	if count > 0 {
		return woerr.ErrInUse
	}

	if err := s.repos.Process.Delete(ctx, id); err != nil {
		return err
	}
	delete(s.byCode, p.Code)
	s.logger.Info("process deleted", zap.String("code", p.Code))
	return nil
}

// GetProcess 查询单个工序
func (s *CatalogService) GetProcess(ctx context.Context, id string) (*entity.Process, error) {
	return s.repos.Process.FindByID(ctx, id)
}

// ListProcesses 分页查询工序
func (s *CatalogService) ListProcesses(ctx context.Context, categoryID string, builtin *bool, page, pageSize int) ([]entity.Process, int64, error) {
	return s.repos.Process.List(ctx, categoryID, builtin, page, pageSize)
}

// CategoryInput 分类入参
type CategoryInput struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

// RegisterCategory 注册工序分类
func (s *CatalogService) RegisterCategory(ctx context.Context, in *CategoryInput) (*entity.ProcessCategory, error) {
	if in.Code == "" {
		return nil, woerr.NewValidation("code", "code is required")
	}
	if in.Name == "" {
		return nil, woerr.NewValidation("name", "name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repos.Category.FindByCode(ctx, in.Code); err == nil {
		return nil, woerr.ErrDuplicateCode
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	c := &entity.ProcessCategory{
		ID:        newID(),
		Code:      in.Code,
		Name:      in.Name,
		SortOrder: in.SortOrder,
		IsActive:  true,
	}
	if err := s.repos.Category.Create(ctx, c); err != nil {
		return nil, err
	}
	s.categories[c.ID] = c
	return c, nil
}

// ListCategories 分类列表
func (s *CatalogService) ListCategories(ctx context.Context) ([]entity.ProcessCategory, error) {
	return s.repos.Category.ListAll(ctx)
}
