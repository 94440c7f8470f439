package entity

import (
	"fmt"
	"time"
)

// 版种类
const (
	PlateKindArtwork        = "artwork"
	PlateKindDie            = "die"
	PlateKindFoilingPlate   = "foiling_plate"
	PlateKindEmbossingPlate = "embossing_plate"
)

// PlateKindOrder 跨种类加锁的固定顺序，避免死锁
var PlateKindOrder = []string{
	PlateKindArtwork,
	PlateKindDie,
	PlateKindFoilingPlate,
	PlateKindEmbossingPlate,
}

// 烫版类型
const (
	FoilingTypeGold   = "gold"
	FoilingTypeSilver = "silver"
)

// Artwork 图稿（CTP版）
//
// base_code + version 组合唯一。新版本只会追加，历史版本永不修改。
type Artwork struct {
	ID             string     `json:"id" gorm:"primaryKey;size:32"`
	BaseCode       string     `json:"base_code" gorm:"size:50;not null;uniqueIndex:idx_artwork_base_version"`
	Version        int        `json:"version" gorm:"not null;default:1;uniqueIndex:idx_artwork_base_version"`
	Name           string     `json:"name" gorm:"size:200;not null"`
	CMYKColors     StringList `json:"cmyk_colors" gorm:"type:jsonb"`
	OtherColors    StringList `json:"other_colors" gorm:"type:jsonb"`
	ImpositionSize string     `json:"imposition_size" gorm:"size:100"`
	DesignFileKey  string     `json:"design_file_key" gorm:"size:255"`
	Confirmed      bool       `json:"confirmed" gorm:"default:false"`
	ConfirmedBy    *string    `json:"confirmed_by" gorm:"size:32"`
	ConfirmedAt    *time.Time `json:"confirmed_at"`
	Notes          string     `json:"notes" gorm:"type:text"`
	CreatedBy      string     `json:"created_by" gorm:"size:32"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Artwork) TableName() string {
	return "artworks"
}

// FullCode 完整编码（含版本号）
func (a *Artwork) FullCode() string {
	if a.Version > 1 {
		return fmt.Sprintf("%s-v%d", a.BaseCode, a.Version)
	}
	return a.BaseCode
}

// Colors 返回该图稿的全部颜色（CMYK + 专色）
func (a *Artwork) Colors() []string {
	colors := make([]string, 0, len(a.CMYKColors)+len(a.OtherColors))
	colors = append(colors, a.CMYKColors...)
	colors = append(colors, a.OtherColors...)
	return colors
}

// Die 刀模
type Die struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	Code        string     `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name        string     `json:"name" gorm:"size:200;not null"`
	Size        string     `json:"size" gorm:"size:100"`
	Material    string     `json:"material" gorm:"size:100"`
	Thickness   string     `json:"thickness" gorm:"size:50"`
	Confirmed   bool       `json:"confirmed" gorm:"default:false"`
	ConfirmedBy *string    `json:"confirmed_by" gorm:"size:32"`
	ConfirmedAt *time.Time `json:"confirmed_at"`
	Notes       string     `json:"notes" gorm:"type:text"`
	CreatedBy   string     `json:"created_by" gorm:"size:32"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Die) TableName() string {
	return "dies"
}

// FoilingPlate 烫金/烫银版
type FoilingPlate struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	Code        string     `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name        string     `json:"name" gorm:"size:200;not null"`
	FoilingType string     `json:"foiling_type" gorm:"size:20;not null;default:gold"`
	Size        string     `json:"size" gorm:"size:100"`
	Material    string     `json:"material" gorm:"size:100"`
	Thickness   string     `json:"thickness" gorm:"size:50"`
	Confirmed   bool       `json:"confirmed" gorm:"default:false"`
	ConfirmedBy *string    `json:"confirmed_by" gorm:"size:32"`
	ConfirmedAt *time.Time `json:"confirmed_at"`
	Notes       string     `json:"notes" gorm:"type:text"`
	CreatedBy   string     `json:"created_by" gorm:"size:32"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (FoilingPlate) TableName() string {
	return "foiling_plates"
}

// EmbossingPlate 压凸版
type EmbossingPlate struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	Code        string     `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name        string     `json:"name" gorm:"size:200;not null"`
	Size        string     `json:"size" gorm:"size:100"`
	Material    string     `json:"material" gorm:"size:100"`
	Thickness   string     `json:"thickness" gorm:"size:50"`
	Confirmed   bool       `json:"confirmed" gorm:"default:false"`
	ConfirmedBy *string    `json:"confirmed_by" gorm:"size:32"`
	ConfirmedAt *time.Time `json:"confirmed_at"`
	Notes       string     `json:"notes" gorm:"type:text"`
	CreatedBy   string     `json:"created_by" gorm:"size:32"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (EmbossingPlate) TableName() string {
	return "embossing_plates"
}

// PlateLink 版与版之间的关联（图稿↔刀模、图稿↔烫金版等）
//
// 对称关联表，约定 plate_a_kind 按 PlateKindOrder 先于 plate_b_kind，
// 同种类时按 ID 升序，保证一对版只存一行。
type PlateLink struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	PlateAID   string    `json:"plate_a_id" gorm:"size:32;not null;uniqueIndex:idx_plate_link"`
	PlateAKind string    `json:"plate_a_kind" gorm:"size:20;not null;uniqueIndex:idx_plate_link"`
	PlateBID   string    `json:"plate_b_id" gorm:"size:32;not null;uniqueIndex:idx_plate_link"`
	PlateBKind string    `json:"plate_b_kind" gorm:"size:20;not null;uniqueIndex:idx_plate_link"`
	CreatedAt  time.Time `json:"created_at"`
}

func (PlateLink) TableName() string {
	return "plate_links"
}

// NormalizePlatePair 将两个版规范为存储顺序
func NormalizePlatePair(aID, aKind, bID, bKind string) (string, string, string, string) {
	rank := func(kind string) int {
		for i, k := range PlateKindOrder {
			if k == kind {
				return i
			}
		}
		return len(PlateKindOrder)
	}
	if rank(aKind) > rank(bKind) || (aKind == bKind && aID > bID) {
		return bID, bKind, aID, aKind
	}
	return aID, aKind, bID, bKind
}
