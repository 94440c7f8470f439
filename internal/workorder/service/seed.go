package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/bitfantasy/printmes/internal/workorder/entity"
	"github.com/bitfantasy/printmes/internal/workorder/repository"
)

// 内置工序分类编码
const (
	CategoryPrepress   = "prepress"
	CategoryPrinting   = "printing"
	CategorySurface    = "surface"
	CategoryPostpress  = "postpress"
	CategoryLaminating = "laminating"
	CategoryForming    = "forming"
	CategoryOther      = "other"
)

type seedCategory struct {
	code string
	name string
}

var builtinCategories = []seedCategory{
	{CategoryPrepress, "印前"},
	{CategoryPrinting, "印刷"},
	{CategorySurface, "表面处理"},
	{CategoryPostpress, "印后"},
	{CategoryLaminating, "覆膜裱糊"},
	{CategoryForming, "成型"},
	{CategoryOther, "其他"},
}

type seedProcess struct {
	code     string
	name     string
	category string

	requiresArtwork        bool
	requiresDie            bool
	requiresFoilingPlate   bool
	requiresEmbossingPlate bool
}

// builtinProcesses 21个内置工序及其版需求
var builtinProcesses = []seedProcess{
	{code: entity.ProcessCTP, name: "出版", category: CategoryPrepress},
	{code: entity.ProcessCut, name: "开料", category: CategoryPrepress},
	{code: entity.ProcessPrint, name: "印刷", category: CategoryPrinting, requiresArtwork: true},
	{code: entity.ProcessVan, name: "过油", category: CategorySurface},
	{code: entity.ProcessLamG, name: "覆光膜", category: CategoryLaminating},
	{code: entity.ProcessLamM, name: "覆哑膜", category: CategoryLaminating},
	{code: entity.ProcessUV, name: "UV", category: CategorySurface},
	{code: entity.ProcessFoilG, name: "烫金", category: CategorySurface, requiresFoilingPlate: true},
	{code: entity.ProcessFoilS, name: "烫银", category: CategorySurface, requiresFoilingPlate: true},
	{code: entity.ProcessEmboss, name: "压凸", category: CategorySurface, requiresEmbossingPlate: true},
	{code: entity.ProcessTex, name: "压纹", category: CategorySurface},
	{code: entity.ProcessScore, name: "压线", category: CategoryPostpress},
	{code: entity.ProcessDie, name: "模切", category: CategoryPostpress, requiresDie: true},
	{code: entity.ProcessTrim, name: "切成品", category: CategoryPostpress},
	{code: entity.ProcessLamB, name: "对裱", category: CategoryLaminating},
	{code: entity.ProcessMount, name: "裱坑", category: CategoryLaminating},
	{code: entity.ProcessGlue, name: "粘盒", category: CategoryForming},
	{code: entity.ProcessBox, name: "糊盒", category: CategoryForming},
	{code: entity.ProcessWindow, name: "开窗", category: CategoryForming},
	{code: entity.ProcessStaple, name: "钉装", category: CategoryForming},
	{code: entity.ProcessPack, name: "包装", category: CategoryOther},
}

// SeedCatalog 写入内置分类与工序，已存在的跳过。幂等，可重复执行。
func SeedCatalog(ctx context.Context, repos *repository.Repositories, logger *zap.Logger) error {
	categoryIDs := make(map[string]string, len(builtinCategories))
	for i, sc := range builtinCategories {
		existing, err := repos.Category.FindByCode(ctx, sc.code)
		if err == nil {
			categoryIDs[sc.code] = existing.ID
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		c := &entity.ProcessCategory{
			ID:        newID(),
			Code:      sc.code,
			Name:      sc.name,
			SortOrder: (i + 1) * 10,
			IsActive:  true,
		}
		if err := repos.Category.Create(ctx, c); err != nil {
			return err
		}
		categoryIDs[sc.code] = c.ID
	}

	created := 0
	for i, sp := range builtinProcesses {
		if _, err := repos.Process.FindByCode(ctx, sp.code); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		catID := categoryIDs[sp.category]
		p := &entity.Process{
			ID:                     newID(),
			Code:                   sp.code,
			Name:                   sp.name,
			CategoryID:             &catID,
			SortOrder:              (i + 1) * 10,
			IsActive:               true,
			IsBuiltin:              true,
			RequiresArtwork:        sp.requiresArtwork,
			RequiresDie:            sp.requiresDie,
			RequiresFoilingPlate:   sp.requiresFoilingPlate,
			RequiresEmbossingPlate: sp.requiresEmbossingPlate,
		}
		if err := repos.Process.Create(ctx, p); err != nil {
			return err
		}
		created++
	}

	logger.Info("catalog seeded", zap.Int("created", created))
	return nil
}

// SeedGroups 写入内置角色组
func SeedGroups(ctx context.Context, repos *repository.Repositories, logger *zap.Logger) error {
	for _, name := range []string{entity.RoleSalesperson, entity.RoleAdmin} {
		if _, err := repos.User.FindGroupByName(ctx, name); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		g := &entity.Group{ID: newID(), Name: name}
		if err := repos.User.CreateGroup(ctx, g); err != nil {
			return err
		}
		logger.Info("group created", zap.String("name", name))
	}
	return nil
}
