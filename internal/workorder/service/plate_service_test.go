package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bitfantasy/printmes/internal/workorder/entity"
	"github.com/bitfantasy/printmes/internal/workorder/woerr"
)

func TestArtworkVersionChain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	plates := env.services.Plate

	v1, err := plates.CreateArtwork(ctx, &ArtworkInput{
		Name:        "外盒正面",
		CMYKColors:  []string{"M", "C", "K"},
		OtherColors: []string{"528C"},
	}, "test-user")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	wantPrefix := "ART" + time.Now().Format("200601")
	if !strings.HasPrefix(v1.BaseCode, wantPrefix) {
		t.Errorf("base code = %s, want prefix %s", v1.BaseCode, wantPrefix)
	}
	if v1.Version != 1 {
		t.Errorf("version = %d, want 1", v1.Version)
	}
	// 颜色按通道顺序归一
	if len(v1.CMYKColors) != 3 || v1.CMYKColors[0] != "C" || v1.CMYKColors[1] != "M" || v1.CMYKColors[2] != "K" {
		t.Errorf("cmyk colors = %v, want [C M K]", v1.CMYKColors)
	}

	v2, err := plates.ReviseArtwork(ctx, v1.ID, "test-user")
	if err != nil {
		t.Fatalf("revise: %v", err)
	}
	if v2.BaseCode != v1.BaseCode || v2.Version != 2 {
		t.Errorf("revision = %s v%d, want %s v2", v2.BaseCode, v2.Version, v1.BaseCode)
	}

	latest, err := plates.LatestArtwork(ctx, v1.BaseCode)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != v2.ID {
		t.Errorf("latest = v%d, want v2", latest.Version)
	}
	prior, err := plates.GetArtworkByBaseVersion(ctx, v1.BaseCode, 1)
	if err != nil {
		t.Fatalf("get v1: %v", err)
	}
	if prior.ID != v1.ID {
		t.Errorf("by base/version = %s, want %s", prior.ID, v1.ID)
	}

	// 编码不可改，只能通过改版生成新行
	if _, err := plates.UpdateArtwork(ctx, v1.ID, &ArtworkInput{BaseCode: "ART999999001"}); !woerr.IsValidation(err) {
		t.Fatalf("err = %v, want validation error on base_code change", err)
	}
	if _, err := plates.CreateArtwork(ctx, &ArtworkInput{Name: "坏通道", CMYKColors: []string{"X"}}, "test-user"); !woerr.IsValidation(err) {
		t.Fatalf("err = %v, want validation error on bad channel", err)
	}
}

func TestPlateCodeGeneration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	plates := env.services.Plate

	d1 := env.seedDie(t, "刀模一")
	d2 := env.seedDie(t, "刀模二")
	month := time.Now().Format("200601")
	if d1.Code != "DIE"+month+"001" || d2.Code != "DIE"+month+"002" {
		t.Errorf("die codes = %s, %s, want DIE%s001/002", d1.Code, d2.Code, month)
	}

	if _, err := plates.CreateDie(ctx, &PlateInput{Name: "撞码", Code: d1.Code}, "test-user"); !errors.Is(err, woerr.ErrDuplicateCode) {
		t.Fatalf("err = %v, want ErrDuplicateCode", err)
	}
	if _, err := plates.CreateFoilingPlate(ctx, &PlateInput{Name: "坏类型", FoilingType: "copper"}, "test-user"); !woerr.IsValidation(err) {
		t.Fatalf("err = %v, want validation error on foiling type", err)
	}

	e1, err := plates.CreateEmbossingPlate(ctx, &PlateInput{Name: "压凸一"}, "test-user")
	if err != nil {
		t.Fatalf("create embossing: %v", err)
	}
	if e1.Code != "EP"+month+"001" {
		t.Errorf("embossing code = %s, want EP%s001", e1.Code, month)
	}
}

func TestConfirmPlate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	plates := env.services.Plate

	die := env.seedDie(t, "待确认刀模")
	if die.Confirmed {
		t.Fatal("new die must start unconfirmed")
	}
	if err := plates.Confirm(ctx, entity.PlateKindDie, die.ID, "reviewer-1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	got, err := plates.GetDie(ctx, die.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Confirmed || got.ConfirmedBy == nil || *got.ConfirmedBy != "reviewer-1" || got.ConfirmedAt == nil {
		t.Errorf("confirm state = %+v, want confirmed by reviewer-1", got)
	}

	if err := plates.Confirm(ctx, "bogus", die.ID, "reviewer-1"); !woerr.IsValidation(err) {
		t.Fatalf("err = %v, want validation error on unknown kind", err)
	}
}

func TestLinkPlates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	plates := env.services.Plate

	die := env.seedDie(t, "刀模")
	foil := env.seedFoilingPlate(t, "烫金版", entity.FoilingTypeGold)

	if err := plates.LinkPlates(ctx, die.ID, entity.PlateKindDie, die.ID, entity.PlateKindDie); !woerr.IsValidation(err) {
		t.Fatalf("err = %v, want validation error on self link", err)
	}

	if err := plates.LinkPlates(ctx, foil.ID, entity.PlateKindFoilingPlate, die.ID, entity.PlateKindDie); err != nil {
		t.Fatalf("link: %v", err)
	}
	// 关联对称，重复建立是幂等的
	if err := plates.LinkPlates(ctx, die.ID, entity.PlateKindDie, foil.ID, entity.PlateKindFoilingPlate); err != nil {
		t.Fatalf("relink: %v", err)
	}

	links, err := plates.LinkedPlates(ctx, die.ID, entity.PlateKindDie)
	if err != nil {
		t.Fatalf("list links: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("link count = %d, want 1", len(links))
	}

	if err := plates.UnlinkPlates(ctx, die.ID, entity.PlateKindDie, foil.ID, entity.PlateKindFoilingPlate); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	links, err = plates.LinkedPlates(ctx, die.ID, entity.PlateKindDie)
	if err != nil {
		t.Fatalf("list links: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("link count after unlink = %d, want 0", len(links))
	}
}
