package derive

import "github.com/bitfantasy/printmes/internal/workorder/entity"

// cmykOrder CMYK 的规范输出顺序
var cmykOrder = []string{"C", "M", "Y", "K"}

var cmykSet = map[string]bool{"C": true, "M": true, "Y": true, "K": true}

// IsCMYKColor 判断是否为四色通道
func IsCMYKColor(c string) bool {
	return cmykSet[c]
}

// MergeArtworkColors 汇总多张图稿的颜色为施工单印刷颜色。
//
// CMYK 通道按 C、M、Y、K 固定顺序输出，专色去重后保持首次出现的顺序。
func MergeArtworkColors(artworks []entity.Artwork) (cmyk, other entity.StringList) {
	seenCMYK := make(map[string]bool)
	seenOther := make(map[string]bool)
	for i := range artworks {
		for _, c := range artworks[i].CMYKColors {
			seenCMYK[c] = true
		}
		for _, c := range artworks[i].OtherColors {
			if c == "" || seenOther[c] {
				continue
			}
			seenOther[c] = true
			other = append(other, c)
		}
	}
	for _, c := range cmykOrder {
		if seenCMYK[c] {
			cmyk = append(cmyk, c)
		}
	}
	return cmyk, other
}

// NormalizeColorInput 将外部传入的颜色列表拆分为规范的 CMYK 与专色两组
func NormalizeColorInput(colors []string) (cmyk, other entity.StringList) {
	seenCMYK := make(map[string]bool)
	seenOther := make(map[string]bool)
	for _, c := range colors {
		if c == "" {
			continue
		}
		if IsCMYKColor(c) {
			seenCMYK[c] = true
			continue
		}
		if !seenOther[c] {
			seenOther[c] = true
			other = append(other, c)
		}
	}
	for _, c := range cmykOrder {
		if seenCMYK[c] {
			cmyk = append(cmyk, c)
		}
	}
	return cmyk, other
}
