package entity

import (
	"time"
)

// ProcessCategory 工序分类
type ProcessCategory struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:64;not null"`
	Code      string    `json:"code" gorm:"size:32;not null;uniqueIndex"`
	SortOrder int       `json:"sort_order" gorm:"not null;default:0"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProcessCategory) TableName() string {
	return "process_categories"
}

// Process 工序定义
//
// requires_* 四个布尔描述该工序需要哪些版，是任务派生的唯一依据。
// *_required 一组为历史遗留字段，仅保留默认值，业务代码不读取。
type Process struct {
	ID          string  `json:"id" gorm:"primaryKey;size:32"`
	Code        string  `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name        string  `json:"name" gorm:"size:100;not null"`
	Description string  `json:"description" gorm:"type:text"`
	CategoryID  *string `json:"category_id" gorm:"size:32"`
	SortOrder   int     `json:"sort_order" gorm:"not null;default:0"`
	IsActive    bool    `json:"is_active" gorm:"default:true"`
	IsBuiltin   bool    `json:"is_builtin" gorm:"default:false"`

	RequiresArtwork        bool `json:"requires_artwork" gorm:"default:false"`
	RequiresDie            bool `json:"requires_die" gorm:"default:false"`
	RequiresFoilingPlate   bool `json:"requires_foiling_plate" gorm:"default:false"`
	RequiresEmbossingPlate bool `json:"requires_embossing_plate" gorm:"default:false"`

	// 遗留字段，勿在业务逻辑中使用
	ArtworkRequired        bool `json:"-" gorm:"default:true"`
	DieRequired            bool `json:"-" gorm:"default:true"`
	FoilingPlateRequired   bool `json:"-" gorm:"default:true"`
	EmbossingPlateRequired bool `json:"-" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Category *ProcessCategory `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

func (Process) TableName() string {
	return "processes"
}

// RequiredPlateKinds 返回该工序需要的版种类列表
func (p *Process) RequiredPlateKinds() []string {
	var kinds []string
	if p.RequiresArtwork {
		kinds = append(kinds, PlateKindArtwork)
	}
	if p.RequiresDie {
		kinds = append(kinds, PlateKindDie)
	}
	if p.RequiresFoilingPlate {
		kinds = append(kinds, PlateKindFoilingPlate)
	}
	if p.RequiresEmbossingPlate {
		kinds = append(kinds, PlateKindEmbossingPlate)
	}
	return kinds
}

// 内置工序编码
const (
	ProcessCTP    = "CTP"
	ProcessCut    = "CUT"
	ProcessPrint  = "PRT"
	ProcessVan    = "VAN"
	ProcessLamG   = "LAM_G"
	ProcessLamM   = "LAM_M"
	ProcessUV     = "UV"
	ProcessFoilG  = "FOIL_G"
	ProcessFoilS  = "FOIL_S"
	ProcessEmboss = "EMB"
	ProcessTex    = "TEX"
	ProcessScore  = "SCORE"
	ProcessDie    = "DIE"
	ProcessTrim   = "TRIM"
	ProcessLamB   = "LAM_B"
	ProcessMount  = "MOUNT"
	ProcessGlue   = "GLUE"
	ProcessBox    = "BOX"
	ProcessWindow = "WINDOW"
	ProcessStaple = "STAPLE"
	ProcessPack   = "PACK"
)
