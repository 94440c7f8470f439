package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/bitfantasy/printmes/internal/workorder/entity"
	"github.com/bitfantasy/printmes/internal/workorder/repository"
	"github.com/bitfantasy/printmes/internal/workorder/woerr"
)

// ProductService 产品与物料档案
type ProductService struct {
	repos   *repository.Repositories
	catalog *CatalogService
	logger  *zap.Logger
}

// NewProductService 创建产品服务
func NewProductService(repos *repository.Repositories, catalog *CatalogService, logger *zap.Logger) *ProductService {
	return &ProductService{repos: repos, catalog: catalog, logger: logger}
}

// ProductMaterialInput 产品默认物料
type ProductMaterialInput struct {
	MaterialID  string `json:"material_id"`
	Usage       string `json:"usage"`
	NeedCutting bool   `json:"need_cutting"`
	Notes       string `json:"notes"`
	SortOrder   int    `json:"sort_order"`
}

// ProductInput 产品入参
type ProductInput struct {
	Code          string                 `json:"code"`
	Name          string                 `json:"name"`
	Specification string                 `json:"specification"`
	Unit          string                 `json:"unit"`
	ProcessCodes  []string               `json:"process_codes"`
	Description   string                 `json:"description"`
	Materials     []ProductMaterialInput `json:"materials"`
}

// CreateProduct 创建产品。工序编码列表有序、允许重复，但每个编码必须存在。
func (s *ProductService) CreateProduct(ctx context.Context, in *ProductInput) (*entity.Product, error) {
	if in.Code == "" {
		return nil, woerr.NewValidation("code", "code is required")
	}
	if in.Name == "" {
		return nil, woerr.NewValidation("name", "name is required")
	}
	if err := s.catalog.ValidateCodes(in.ProcessCodes); err != nil {
		return nil, err
	}
	if _, err := s.repos.Product.FindByCode(ctx, in.Code); err == nil {
		return nil, woerr.ErrDuplicateCode
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	for _, m := range in.Materials {
		if _, err := s.repos.Material.FindByID(ctx, m.MaterialID); err != nil {
			return nil, woerr.NewValidation("materials", "unknown material %q", m.MaterialID)
		}
	}

	p := &entity.Product{
		ID:            newID(),
		Code:          in.Code,
		Name:          in.Name,
		Specification: in.Specification,
		Unit:          in.Unit,
		ProcessCodes:  entity.StringList(in.ProcessCodes),
		Description:   in.Description,
		IsActive:      true,
	}
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		if err := tx.Product.Create(ctx, p); err != nil {
			return err
		}
		materials := make([]entity.ProductMaterial, 0, len(in.Materials))
		for _, m := range in.Materials {
			materials = append(materials, entity.ProductMaterial{
				ID:          newID(),
				ProductID:   p.ID,
				MaterialID:  m.MaterialID,
				Usage:       m.Usage,
				NeedCutting: m.NeedCutting,
				Notes:       m.Notes,
				SortOrder:   m.SortOrder,
			})
		}
		if len(materials) == 0 {
			return nil
		}
		return tx.Product.ReplaceMaterials(ctx, p.ID, materials)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("product created", zap.String("code", p.Code))
	return s.repos.Product.FindByID(ctx, p.ID)
}

// UpdateProduct 修改产品。已建施工单持有自己的快照，不受影响。
func (s *ProductService) UpdateProduct(ctx context.Context, id string, in *ProductInput) (*entity.Product, error) {
	p, err := s.repos.Product.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		p.Name = in.Name
	}
	if in.Specification != "" {
		p.Specification = in.Specification
	}
	if in.Unit != "" {
		p.Unit = in.Unit
	}
	if in.Description != "" {
		p.Description = in.Description
	}
	if in.ProcessCodes != nil {
		if err := s.catalog.ValidateCodes(in.ProcessCodes); err != nil {
			return nil, err
		}
		p.ProcessCodes = entity.StringList(in.ProcessCodes)
	}

	err = s.repos.Transaction(func(tx *repository.Repositories) error {
		if err := tx.Product.Update(ctx, p); err != nil {
			return err
		}
		if in.Materials == nil {
			return nil
		}
		materials := make([]entity.ProductMaterial, 0, len(in.Materials))
		for _, m := range in.Materials {
			materials = append(materials, entity.ProductMaterial{
				ID:          newID(),
				ProductID:   p.ID,
				MaterialID:  m.MaterialID,
				Usage:       m.Usage,
				NeedCutting: m.NeedCutting,
				Notes:       m.Notes,
				SortOrder:   m.SortOrder,
			})
		}
		return tx.Product.ReplaceMaterials(ctx, p.ID, materials)
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Product.FindByID(ctx, id)
}

// GetProduct 查询产品
func (s *ProductService) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	return s.repos.Product.FindByID(ctx, id)
}

// ListProducts 分页查询产品
func (s *ProductService) ListProducts(ctx context.Context, keyword string, page, pageSize int) ([]entity.Product, int64, error) {
	return s.repos.Product.List(ctx, keyword, page, pageSize)
}

// DeleteProduct 删除产品
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if _, err := s.repos.Product.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repos.Product.Delete(ctx, id)
}

// MaterialInput 物料入参
type MaterialInput struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Specification string `json:"specification"`
	Unit          string `json:"unit"`
}

// CreateMaterial 创建物料
func (s *ProductService) CreateMaterial(ctx context.Context, in *MaterialInput) (*entity.Material, error) {
	if in.Code == "" {
		return nil, woerr.NewValidation("code", "code is required")
	}
	if in.Name == "" {
		return nil, woerr.NewValidation("name", "name is required")
	}
	if _, err := s.repos.Material.FindByCode(ctx, in.Code); err == nil {
		return nil, woerr.ErrDuplicateCode
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	m := &entity.Material{
		ID:            newID(),
		Code:          in.Code,
		Name:          in.Name,
		Specification: in.Specification,
		Unit:          in.Unit,
		IsActive:      true,
	}
	if err := s.repos.Material.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMaterials 分页查询物料
func (s *ProductService) ListMaterials(ctx context.Context, keyword string, page, pageSize int) ([]entity.Material, int64, error) {
	return s.repos.Material.List(ctx, keyword, page, pageSize)
}

// GetMaterial 查询物料
func (s *ProductService) GetMaterial(ctx context.Context, id string) (*entity.Material, error) {
	return s.repos.Material.FindByID(ctx, id)
}

// CustomerInput 客户入参
type CustomerInput struct {
	Name          string  `json:"name"`
	ContactPerson string  `json:"contact_person"`
	Phone         string  `json:"phone"`
	Email         string  `json:"email"`
	Address       string  `json:"address"`
	SalespersonID *string `json:"salesperson_id"`
	Notes         string  `json:"notes"`
}

// CreateCustomer 创建客户
func (s *ProductService) CreateCustomer(ctx context.Context, in *CustomerInput) (*entity.Customer, error) {
	if in.Name == "" {
		return nil, woerr.NewValidation("name", "name is required")
	}
	c := &entity.Customer{
		ID:            newID(),
		Name:          in.Name,
		ContactPerson: in.ContactPerson,
		Phone:         in.Phone,
		Email:         in.Email,
		Address:       in.Address,
		SalespersonID: in.SalespersonID,
		Notes:         in.Notes,
	}
	if err := s.repos.Customer.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCustomers 分页查询客户
func (s *ProductService) ListCustomers(ctx context.Context, keyword string, page, pageSize int) ([]entity.Customer, int64, error) {
	return s.repos.Customer.List(ctx, keyword, page, pageSize)
}

// GetCustomer 查询客户
func (s *ProductService) GetCustomer(ctx context.Context, id string) (*entity.Customer, error) {
	return s.repos.Customer.FindByID(ctx, id)
}
