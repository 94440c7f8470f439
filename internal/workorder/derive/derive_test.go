package derive

import (
	"errors"
	"reflect"
	"testing"

	"github.com/bitfantasy/printmes/internal/workorder/entity"
	"github.com/bitfantasy/printmes/internal/workorder/woerr"
)

// testCatalog 构造测试用的内置工序目录
func testCatalog() map[string]*entity.Process {
	procs := []*entity.Process{
		{Code: entity.ProcessCTP, Name: "出版"},
		{Code: entity.ProcessCut, Name: "开料"},
		{Code: entity.ProcessPrint, Name: "印刷", RequiresArtwork: true},
		{Code: entity.ProcessDie, Name: "模切", RequiresDie: true},
		{Code: entity.ProcessFoilG, Name: "烫金", RequiresFoilingPlate: true},
		{Code: entity.ProcessFoilS, Name: "烫银", RequiresFoilingPlate: true},
		{Code: entity.ProcessEmboss, Name: "压凸", RequiresEmbossingPlate: true},
		{Code: entity.ProcessLamG, Name: "覆光膜"},
		{Code: entity.ProcessPack, Name: "包装"},
	}
	m := make(map[string]*entity.Process, len(procs))
	for _, p := range procs {
		p.IsActive = true
		p.IsBuiltin = true
		m[p.Code] = p
	}
	return m
}

func strPtr(s string) *string { return &s }

func testOrder(codes ...string) *entity.WorkOrder {
	return &entity.WorkOrder{
		ID:                 "wo1",
		OrderNumber:        "202608001",
		ProcessCodes:       codes,
		ProductionQuantity: 5000,
	}
}

func TestDeriveHappyPath(t *testing.T) {
	order := testOrder(entity.ProcessPrint, entity.ProcessDie, entity.ProcessPack)
	order.ArtworkType = entity.ArtworkTypeNeed
	order.DieType = entity.DieTypeNeed
	order.PrintingType = entity.PrintingTypeFront
	order.PrintingCMYKColors = entity.StringList{"C", "M", "K"}
	order.PrintingOtherColors = entity.StringList{"528C"}
	order.Artworks = []entity.Artwork{{
		ID: "a1", BaseCode: "ART202608001", Version: 1,
		CMYKColors: entity.StringList{"C", "M", "K"}, OtherColors: entity.StringList{"528C"},
	}}
	order.Dies = []entity.Die{{ID: "d1", Code: "DIE202608001"}}

	specs, err := Derive(order, testCatalog(), nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("want 3 tasks, got %d", len(specs))
	}
	for i, s := range specs {
		if s.Status != entity.TaskStatusPending {
			t.Errorf("task %d status = %s, want pending", i, s.Status)
		}
		if s.Position != i+1 {
			t.Errorf("task %d position = %d", i, s.Position)
		}
		if s.DependsOnPosition != i {
			t.Errorf("task %d depends_on = %d, want %d", i, s.DependsOnPosition, i)
		}
		if s.ProductionQuantity != 5000 {
			t.Errorf("task %d quantity = %d", i, s.ProductionQuantity)
		}
	}
	if specs[0].ArtworkID == nil || *specs[0].ArtworkID != "a1" {
		t.Errorf("PRT task artwork = %v, want a1", specs[0].ArtworkID)
	}
	if specs[1].DieID == nil || *specs[1].DieID != "d1" {
		t.Errorf("DIE task die = %v, want d1", specs[1].DieID)
	}
	if specs[2].ArtworkID != nil || specs[2].DieID != nil {
		t.Errorf("PACK task should have no plate bindings")
	}
}

func TestDeriveMissingDie(t *testing.T) {
	order := testOrder(entity.ProcessPrint, entity.ProcessDie, entity.ProcessPack)
	order.PrintingCMYKColors = entity.StringList{"C", "M", "K"}
	order.Artworks = []entity.Artwork{{
		ID: "a1", CMYKColors: entity.StringList{"C", "M", "K"},
	}}

	specs, err := Derive(order, testCatalog(), nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("want 3 tasks, got %d", len(specs))
	}
	if specs[1].Status != entity.TaskStatusAwaitingPlate {
		t.Errorf("DIE task status = %s, want awaiting_plate", specs[1].Status)
	}
	if specs[1].DieID != nil {
		t.Errorf("DIE task should not bind a die")
	}
	if specs[0].Status != entity.TaskStatusPending || specs[2].Status != entity.TaskStatusPending {
		t.Errorf("PRT/PACK tasks should stay pending")
	}
}

func TestDeriveDieDisambiguationByLink(t *testing.T) {
	order := testOrder(entity.ProcessDie)
	order.Artworks = []entity.Artwork{{ID: "a1"}}
	order.Dies = []entity.Die{{ID: "d1", Code: "DIE202608001"}, {ID: "d2", Code: "DIE202608002"}}

	// 没有关联时两个刀模无法消歧
	specs, err := Derive(order, testCatalog(), nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if specs[0].Status != entity.TaskStatusAwaitingPlate || specs[0].DieID != nil {
		t.Errorf("ambiguous dies should leave the task awaiting_plate, got %s/%v", specs[0].Status, specs[0].DieID)
	}

	// 图稿关联到 d2 后选中它
	links := []entity.PlateLink{{
		PlateAID: "a1", PlateAKind: entity.PlateKindArtwork,
		PlateBID: "d2", PlateBKind: entity.PlateKindDie,
	}}
	specs, err = Derive(order, testCatalog(), links)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if specs[0].DieID == nil || *specs[0].DieID != "d2" {
		t.Errorf("DIE task die = %v, want linked d2", specs[0].DieID)
	}
	if specs[0].Status != entity.TaskStatusPending {
		t.Errorf("DIE task status = %s, want pending", specs[0].Status)
	}
}

func TestDeriveFoilingTypeMatch(t *testing.T) {
	gold := entity.FoilingPlate{ID: "fg", Code: "FP202608002", FoilingType: entity.FoilingTypeGold}
	silver := entity.FoilingPlate{ID: "fs", Code: "FP202608001", FoilingType: entity.FoilingTypeSilver}

	order := testOrder(entity.ProcessFoilG, entity.ProcessFoilS)
	order.FoilingPlates = []entity.FoilingPlate{silver, gold}

	specs, err := Derive(order, testCatalog(), nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if specs[0].FoilingPlateID == nil || *specs[0].FoilingPlateID != "fg" {
		t.Errorf("FOIL_G bound %v, want gold plate fg", specs[0].FoilingPlateID)
	}
	if specs[1].FoilingPlateID == nil || *specs[1].FoilingPlateID != "fs" {
		t.Errorf("FOIL_S bound %v, want silver plate fs", specs[1].FoilingPlateID)
	}
}

func TestDeriveFoilingTypeMismatch(t *testing.T) {
	order := testOrder(entity.ProcessPrint, entity.ProcessFoilG)
	order.Artworks = []entity.Artwork{{ID: "a1"}}
	order.FoilingPlates = []entity.FoilingPlate{
		{ID: "fs", Code: "FP202608001", FoilingType: entity.FoilingTypeSilver},
	}

	specs, err := Derive(order, testCatalog(), nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if specs[1].Status != entity.TaskStatusAwaitingPlate {
		t.Errorf("FOIL_G task status = %s, want awaiting_plate", specs[1].Status)
	}
	if specs[1].FoilingPlateID != nil {
		t.Errorf("FOIL_G task must not bind a silver plate")
	}
}

func TestDeriveFoilingPicksLowestCode(t *testing.T) {
	order := testOrder(entity.ProcessFoilG)
	order.FoilingPlates = []entity.FoilingPlate{
		{ID: "f2", Code: "FP202608005", FoilingType: entity.FoilingTypeGold},
		{ID: "f1", Code: "FP202608003", FoilingType: entity.FoilingTypeGold},
	}

	specs, err := Derive(order, testCatalog(), nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if specs[0].FoilingPlateID == nil || *specs[0].FoilingPlateID != "f1" {
		t.Errorf("bound %v, want plate with lowest code f1", specs[0].FoilingPlateID)
	}
}

func TestDeriveNeedCuttingPrepend(t *testing.T) {
	order := testOrder(entity.ProcessPrint)
	order.Artworks = []entity.Artwork{{ID: "a1"}}
	order.Materials = []entity.WorkOrderMaterial{
		{MaterialID: "paper", NeedCutting: true, SortOrder: 1,
			Material: &entity.Material{ID: "paper", Name: "铜版纸"}},
		{MaterialID: "film", NeedCutting: false, SortOrder: 2,
			Material: &entity.Material{ID: "film", Name: "光膜"}},
	}

	specs, err := Derive(order, testCatalog(), nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("want [CUT PRT], got %d tasks", len(specs))
	}
	if specs[0].ProcessCode != entity.ProcessCut {
		t.Errorf("first task = %s, want CUT", specs[0].ProcessCode)
	}
	if specs[0].MaterialID == nil || *specs[0].MaterialID != "paper" {
		t.Errorf("CUT task material = %v, want paper", specs[0].MaterialID)
	}
	if specs[1].ProcessCode != entity.ProcessPrint {
		t.Errorf("second task = %s, want PRT", specs[1].ProcessCode)
	}
}

func TestDeriveExplicitCutAbsorbed(t *testing.T) {
	order := testOrder(entity.ProcessCut, entity.ProcessPrint)
	order.Artworks = []entity.Artwork{{ID: "a1"}}
	order.Materials = []entity.WorkOrderMaterial{
		{MaterialID: "paper", NeedCutting: true},
	}

	specs, err := Derive(order, testCatalog(), nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("explicit leading CUT must merge with material CUT, got %d tasks", len(specs))
	}
	if specs[0].ProcessCode != entity.ProcessCut || specs[0].MaterialID == nil {
		t.Errorf("first task should be CUT bound to the material")
	}
}

func TestDeriveExplicitCutWithoutMaterials(t *testing.T) {
	order := testOrder(entity.ProcessCut, entity.ProcessPack)

	specs, err := Derive(order, testCatalog(), nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if len(specs) != 2 || specs[0].ProcessCode != entity.ProcessCut {
		t.Fatalf("explicit CUT without materials must survive, got %+v", specs)
	}
	if specs[0].MaterialID != nil {
		t.Errorf("plain CUT task must not carry a material")
	}
}

func TestDeriveMultipleCuttingMaterials(t *testing.T) {
	order := testOrder(entity.ProcessPack)
	order.Materials = []entity.WorkOrderMaterial{
		{MaterialID: "m2", NeedCutting: true, SortOrder: 2},
		{MaterialID: "m1", NeedCutting: true, SortOrder: 1},
		{MaterialID: "m1", NeedCutting: true, SortOrder: 3}, // 重复物料只开料一次
	}

	specs, err := Derive(order, testCatalog(), nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("want 2 CUT + 1 PACK, got %d", len(specs))
	}
	if *specs[0].MaterialID != "m1" || *specs[1].MaterialID != "m2" {
		t.Errorf("CUT tasks out of order: %v, %v", *specs[0].MaterialID, *specs[1].MaterialID)
	}
}

func TestDeriveArtworkColorCoverage(t *testing.T) {
	order := testOrder(entity.ProcessPrint)
	order.PrintingCMYKColors = entity.StringList{"C", "M", "K"}
	order.PrintingOtherColors = entity.StringList{"528C"}
	order.Artworks = []entity.Artwork{{
		ID: "a1", CMYKColors: entity.StringList{"C", "M", "K"}, // 缺 528C
	}}

	specs, err := Derive(order, testCatalog(), nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if specs[0].Status != entity.TaskStatusAwaitingPlate || specs[0].ArtworkID != nil {
		t.Errorf("artwork missing a spot color must not be selected: %+v", specs[0])
	}
}

func TestDeriveArtworkAmbiguous(t *testing.T) {
	order := testOrder(entity.ProcessPrint)
	order.PrintingCMYKColors = entity.StringList{"C"}
	order.Artworks = []entity.Artwork{
		{ID: "a1", CMYKColors: entity.StringList{"C", "M"}},
		{ID: "a2", CMYKColors: entity.StringList{"C", "K"}},
	}

	specs, err := Derive(order, testCatalog(), nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if specs[0].Status != entity.TaskStatusAwaitingPlate {
		t.Errorf("two qualifying artworks must leave the task awaiting_plate")
	}
}

func TestDeriveUnknownProcess(t *testing.T) {
	order := testOrder(entity.ProcessPrint, "NOPE")
	order.Artworks = []entity.Artwork{{ID: "a1"}}

	_, err := Derive(order, testCatalog(), nil)
	if !errors.Is(err, woerr.ErrStaleReference) {
		t.Fatalf("err = %v, want ErrStaleReference", err)
	}
}

func TestDeriveIdempotent(t *testing.T) {
	order := testOrder(entity.ProcessPrint, entity.ProcessDie, entity.ProcessPack)
	order.PrintingCMYKColors = entity.StringList{"C", "M"}
	order.Artworks = []entity.Artwork{{ID: "a1", CMYKColors: entity.StringList{"C", "M"}}}
	order.Materials = []entity.WorkOrderMaterial{{MaterialID: "paper", NeedCutting: true}}

	first, err := Derive(order, testCatalog(), nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	second, err := Derive(order, testCatalog(), nil)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("derivation is not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestMergeArtworkColors(t *testing.T) {
	cmyk, other := MergeArtworkColors([]entity.Artwork{
		{CMYKColors: entity.StringList{"K", "C"}, OtherColors: entity.StringList{"528C"}},
		{CMYKColors: entity.StringList{"M", "C"}, OtherColors: entity.StringList{"877C", "528C"}},
	})
	if !reflect.DeepEqual([]string(cmyk), []string{"C", "M", "K"}) {
		t.Errorf("cmyk = %v, want [C M K]", cmyk)
	}
	if !reflect.DeepEqual([]string(other), []string{"528C", "877C"}) {
		t.Errorf("other = %v, want [528C 877C]", other)
	}
}

func TestNormalizeColorInput(t *testing.T) {
	cmyk, other := NormalizeColorInput([]string{"Y", "528C", "C", "", "C", "528C"})
	if !reflect.DeepEqual([]string(cmyk), []string{"C", "Y"}) {
		t.Errorf("cmyk = %v, want [C Y]", cmyk)
	}
	if !reflect.DeepEqual([]string(other), []string{"528C"}) {
		t.Errorf("other = %v, want [528C]", other)
	}
}
