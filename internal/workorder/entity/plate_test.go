package entity

import "testing"

func TestArtworkFullCode(t *testing.T) {
	a := &Artwork{BaseCode: "ART202601001", Version: 1}
	if got := a.FullCode(); got != "ART202601001" {
		t.Errorf("FullCode() = %q, want base code for version 1", got)
	}

	a.Version = 3
	if got := a.FullCode(); got != "ART202601001-v3" {
		t.Errorf("FullCode() = %q, want ART202601001-v3", got)
	}
}

func TestArtworkColors(t *testing.T) {
	a := &Artwork{
		CMYKColors:  StringList{"C", "M", "K"},
		OtherColors: StringList{"528C"},
	}
	colors := a.Colors()
	want := []string{"C", "M", "K", "528C"}
	if len(colors) != len(want) {
		t.Fatalf("Colors() = %v, want %v", colors, want)
	}
	for i := range want {
		if colors[i] != want[i] {
			t.Errorf("Colors()[%d] = %q, want %q", i, colors[i], want[i])
		}
	}
}

func TestNormalizePlatePair(t *testing.T) {
	// 不同种类按固定顺序排列
	aID, aKind, bID, bKind := NormalizePlatePair("d1", PlateKindDie, "a1", PlateKindArtwork)
	if aKind != PlateKindArtwork || aID != "a1" || bKind != PlateKindDie || bID != "d1" {
		t.Errorf("got (%s,%s,%s,%s), want artwork first", aID, aKind, bID, bKind)
	}

	// 同种类按ID排序
	aID, _, bID, _ = NormalizePlatePair("z9", PlateKindDie, "a1", PlateKindDie)
	if aID != "a1" || bID != "z9" {
		t.Errorf("got (%s,%s), want lexicographic order", aID, bID)
	}

	// 已是规范顺序则保持不变
	aID, aKind, bID, bKind = NormalizePlatePair("a1", PlateKindArtwork, "f1", PlateKindFoilingPlate)
	if aID != "a1" || aKind != PlateKindArtwork || bID != "f1" || bKind != PlateKindFoilingPlate {
		t.Errorf("got (%s,%s,%s,%s), want unchanged", aID, aKind, bID, bKind)
	}
}

func TestPlateDeclarationHelpers(t *testing.T) {
	w := &WorkOrder{
		ArtworkType:        ArtworkTypeNeed,
		DieType:            DieTypeNone,
		FoilingPlateType:   FoilingPlateTypeNeed,
		EmbossingPlateType: EmbossingPlateTypeNone,
	}

	if w.PlateTypeFor(PlateKindArtwork) != ArtworkTypeNeed {
		t.Error("PlateTypeFor(artwork) mismatch")
	}
	if w.PlateTypeFor(PlateKindDie) != DieTypeNone {
		t.Error("PlateTypeFor(die) mismatch")
	}
	if NeedTypeFor(PlateKindFoilingPlate) != FoilingPlateTypeNeed {
		t.Error("NeedTypeFor(foiling_plate) mismatch")
	}
	if NoTypeFor(PlateKindEmbossingPlate) != EmbossingPlateTypeNone {
		t.Error("NoTypeFor(embossing_plate) mismatch")
	}
	if NeedTypeFor("bogus") != "" {
		t.Error("NeedTypeFor(bogus) should be empty")
	}
}
