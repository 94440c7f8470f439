package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/bitfantasy/printmes/internal/workorder/entity"
)

type ArtworkRepository struct {
	db *gorm.DB
}

func NewArtworkRepository(db *gorm.DB) *ArtworkRepository {
	return &ArtworkRepository{db: db}
}

// Create 创建图稿版本
func (r *ArtworkRepository) Create(ctx context.Context, a *entity.Artwork) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// FindByID 根据ID查找图稿
func (r *ArtworkRepository) FindByID(ctx context.Context, id string) (*entity.Artwork, error) {
	var a entity.Artwork
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &a, nil
}

// FindByBaseVersion 根据基础编码和版本号查找图稿
func (r *ArtworkRepository) FindByBaseVersion(ctx context.Context, baseCode string, version int) (*entity.Artwork, error) {
	var a entity.Artwork
	err := r.db.WithContext(ctx).
		First(&a, "base_code = ? AND version = ?", baseCode, version).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &a, nil
}

// Latest 返回某基础编码下版本号最大的图稿
func (r *ArtworkRepository) Latest(ctx context.Context, baseCode string) (*entity.Artwork, error) {
	var a entity.Artwork
	err := r.db.WithContext(ctx).
		Where("base_code = ?", baseCode).
		Order("version DESC").First(&a).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &a, nil
}

// MaxVersion 某基础编码当前的最大版本号，不存在返回 0
func (r *ArtworkRepository) MaxVersion(ctx context.Context, baseCode string) (int, error) {
	var version int
	err := r.db.WithContext(ctx).Model(&entity.Artwork{}).
		Where("base_code = ?", baseCode).
		Select("COALESCE(MAX(version), 0)").Scan(&version).Error
	return version, err
}

// MaxBaseCodeWithPrefix 某前缀下最大的基础编码，用于编码生成
func (r *ArtworkRepository) MaxBaseCodeWithPrefix(ctx context.Context, prefix string) (string, error) {
	var code string
	err := r.db.WithContext(ctx).Model(&entity.Artwork{}).
		Where("base_code LIKE ?", prefix+"%").
		Select("COALESCE(MAX(base_code), '')").Scan(&code).Error
	return code, err
}

// List 分页查询图稿
func (r *ArtworkRepository) List(ctx context.Context, keyword string, page, pageSize int) ([]entity.Artwork, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Artwork{})
	if keyword != "" {
		kw := "%" + keyword + "%"
		query = query.Where("base_code ILIKE ? OR name ILIKE ?", kw, kw)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []entity.Artwork
	err := query.Order("base_code ASC, version DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&rows).Error
	return rows, total, err
}

// ListByIDs 批量查询
func (r *ArtworkRepository) ListByIDs(ctx context.Context, ids []string) ([]entity.Artwork, error) {
	var rows []entity.Artwork
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).Find(&rows, "id IN ?", ids).Error
	return rows, err
}

// Update 更新图稿
func (r *ArtworkRepository) Update(ctx context.Context, a *entity.Artwork) error {
	return r.db.WithContext(ctx).Save(a).Error
}

// Delete 删除图稿
func (r *ArtworkRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.Artwork{}, "id = ?", id).Error
}

type DieRepository struct {
	db *gorm.DB
}

func NewDieRepository(db *gorm.DB) *DieRepository {
	return &DieRepository{db: db}
}

func (r *DieRepository) Create(ctx context.Context, d *entity.Die) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DieRepository) FindByID(ctx context.Context, id string) (*entity.Die, error) {
	var d entity.Die
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &d, nil
}

func (r *DieRepository) FindByCode(ctx context.Context, code string) (*entity.Die, error) {
	var d entity.Die
	if err := r.db.WithContext(ctx).First(&d, "code = ?", code).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &d, nil
}

// MaxCodeWithPrefix 某前缀下最大的编码，用于编码生成
func (r *DieRepository) MaxCodeWithPrefix(ctx context.Context, prefix string) (string, error) {
	var code string
	err := r.db.WithContext(ctx).Model(&entity.Die{}).
		Where("code LIKE ?", prefix+"%").
		Select("COALESCE(MAX(code), '')").Scan(&code).Error
	return code, err
}

func (r *DieRepository) List(ctx context.Context, keyword string, page, pageSize int) ([]entity.Die, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Die{})
	if keyword != "" {
		kw := "%" + keyword + "%"
		query = query.Where("code ILIKE ? OR name ILIKE ?", kw, kw)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []entity.Die
	err := query.Order("code ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&rows).Error
	return rows, total, err
}

func (r *DieRepository) Update(ctx context.Context, d *entity.Die) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *DieRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.Die{}, "id = ?", id).Error
}

type FoilingPlateRepository struct {
	db *gorm.DB
}

func NewFoilingPlateRepository(db *gorm.DB) *FoilingPlateRepository {
	return &FoilingPlateRepository{db: db}
}

func (r *FoilingPlateRepository) Create(ctx context.Context, p *entity.FoilingPlate) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *FoilingPlateRepository) FindByID(ctx context.Context, id string) (*entity.FoilingPlate, error) {
	var p entity.FoilingPlate
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &p, nil
}

func (r *FoilingPlateRepository) FindByCode(ctx context.Context, code string) (*entity.FoilingPlate, error) {
	var p entity.FoilingPlate
	if err := r.db.WithContext(ctx).First(&p, "code = ?", code).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &p, nil
}

func (r *FoilingPlateRepository) MaxCodeWithPrefix(ctx context.Context, prefix string) (string, error) {
	var code string
	err := r.db.WithContext(ctx).Model(&entity.FoilingPlate{}).
		Where("code LIKE ?", prefix+"%").
		Select("COALESCE(MAX(code), '')").Scan(&code).Error
	return code, err
}

func (r *FoilingPlateRepository) List(ctx context.Context, foilingType, keyword string, page, pageSize int) ([]entity.FoilingPlate, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.FoilingPlate{})
	if foilingType != "" {
		query = query.Where("foiling_type = ?", foilingType)
	}
	if keyword != "" {
		kw := "%" + keyword + "%"
		query = query.Where("code ILIKE ? OR name ILIKE ?", kw, kw)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []entity.FoilingPlate
	err := query.Order("code ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&rows).Error
	return rows, total, err
}

func (r *FoilingPlateRepository) Update(ctx context.Context, p *entity.FoilingPlate) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *FoilingPlateRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.FoilingPlate{}, "id = ?", id).Error
}

type EmbossingPlateRepository struct {
	db *gorm.DB
}

func NewEmbossingPlateRepository(db *gorm.DB) *EmbossingPlateRepository {
	return &EmbossingPlateRepository{db: db}
}

func (r *EmbossingPlateRepository) Create(ctx context.Context, p *entity.EmbossingPlate) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *EmbossingPlateRepository) FindByID(ctx context.Context, id string) (*entity.EmbossingPlate, error) {
	var p entity.EmbossingPlate
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &p, nil
}

func (r *EmbossingPlateRepository) FindByCode(ctx context.Context, code string) (*entity.EmbossingPlate, error) {
	var p entity.EmbossingPlate
	if err := r.db.WithContext(ctx).First(&p, "code = ?", code).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &p, nil
}

func (r *EmbossingPlateRepository) MaxCodeWithPrefix(ctx context.Context, prefix string) (string, error) {
	var code string
	err := r.db.WithContext(ctx).Model(&entity.EmbossingPlate{}).
		Where("code LIKE ?", prefix+"%").
		Select("COALESCE(MAX(code), '')").Scan(&code).Error
	return code, err
}

func (r *EmbossingPlateRepository) List(ctx context.Context, keyword string, page, pageSize int) ([]entity.EmbossingPlate, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.EmbossingPlate{})
	if keyword != "" {
		kw := "%" + keyword + "%"
		query = query.Where("code ILIKE ? OR name ILIKE ?", kw, kw)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []entity.EmbossingPlate
	err := query.Order("code ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&rows).Error
	return rows, total, err
}

func (r *EmbossingPlateRepository) Update(ctx context.Context, p *entity.EmbossingPlate) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *EmbossingPlateRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.EmbossingPlate{}, "id = ?", id).Error
}

// PlateLinkRepository 版与版关联
type PlateLinkRepository struct {
	db *gorm.DB
}

func NewPlateLinkRepository(db *gorm.DB) *PlateLinkRepository {
	return &PlateLinkRepository{db: db}
}

// Create 建立关联，入参须已按 NormalizePlatePair 规范化
func (r *PlateLinkRepository) Create(ctx context.Context, link *entity.PlateLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// Exists 判断关联是否已存在
func (r *PlateLinkRepository) Exists(ctx context.Context, aID, aKind, bID, bKind string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.PlateLink{}).
		Where("plate_a_id = ? AND plate_a_kind = ? AND plate_b_id = ? AND plate_b_kind = ?",
			aID, aKind, bID, bKind).
		Count(&count).Error
	return count > 0, err
}

// Delete 解除关联
func (r *PlateLinkRepository) Delete(ctx context.Context, aID, aKind, bID, bKind string) error {
	return r.db.WithContext(ctx).
		Delete(&entity.PlateLink{},
			"plate_a_id = ? AND plate_a_kind = ? AND plate_b_id = ? AND plate_b_kind = ?",
			aID, aKind, bID, bKind).Error
}

// ListFor 某个版参与的全部关联
func (r *PlateLinkRepository) ListFor(ctx context.Context, plateID, kind string) ([]entity.PlateLink, error) {
	var links []entity.PlateLink
	err := r.db.WithContext(ctx).
		Where("(plate_a_id = ? AND plate_a_kind = ?) OR (plate_b_id = ? AND plate_b_kind = ?)",
			plateID, kind, plateID, kind).
		Order("created_at ASC").
		Find(&links).Error
	return links, err
}

// DeleteAllFor 删除某个版参与的全部关联（删版时级联）
func (r *PlateLinkRepository) DeleteAllFor(ctx context.Context, plateID, kind string) error {
	return r.db.WithContext(ctx).
		Delete(&entity.PlateLink{},
			"(plate_a_id = ? AND plate_a_kind = ?) OR (plate_b_id = ? AND plate_b_kind = ?)",
			plateID, kind, plateID, kind).Error
}
