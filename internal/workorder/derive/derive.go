// Package derive 实现施工单任务派生引擎。
//
// 派生是纯函数：输入施工单快照（工序链、版绑定、物料、印刷颜色）和
// 工序目录，输出期望的任务列表。不访问数据库，不产生副作用，
// 同样的输入永远得到同样的输出。
package derive

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bitfantasy/printmes/internal/workorder/entity"
	"github.com/bitfantasy/printmes/internal/workorder/woerr"
)

// TaskSpec 派生出的单个任务的期望形态
type TaskSpec struct {
	Position    int
	ProcessCode string
	WorkContent string

	ArtworkID        *string
	DieID            *string
	FoilingPlateID   *string
	EmbossingPlateID *string
	MaterialID       *string

	DependsOnPosition  int
	Status             string
	ProductionQuantity int
}

// PlateIDFor 返回指定种类的版绑定
func (s *TaskSpec) PlateIDFor(kind string) *string {
	switch kind {
	case entity.PlateKindArtwork:
		return s.ArtworkID
	case entity.PlateKindDie:
		return s.DieID
	case entity.PlateKindFoilingPlate:
		return s.FoilingPlateID
	case entity.PlateKindEmbossingPlate:
		return s.EmbossingPlateID
	}
	return nil
}

func (s *TaskSpec) setPlateID(kind string, id *string) {
	switch kind {
	case entity.PlateKindArtwork:
		s.ArtworkID = id
	case entity.PlateKindDie:
		s.DieID = id
	case entity.PlateKindFoilingPlate:
		s.FoilingPlateID = id
	case entity.PlateKindEmbossingPlate:
		s.EmbossingPlateID = id
	}
}

// FoilingTypeForProcess 返回烫印工序对应的烫版类型，非烫印工序返回空串
func FoilingTypeForProcess(code string) string {
	switch code {
	case entity.ProcessFoilG:
		return entity.FoilingTypeGold
	case entity.ProcessFoilS:
		return entity.FoilingTypeSilver
	}
	return ""
}

// step 工序链展开后的一步
type step struct {
	code       string
	materialID *string
	material   *entity.WorkOrderMaterial
}

// Derive 由施工单快照派生期望任务列表。
//
// 工序链展开规则：每个 need_cutting 物料在链首生成一个开料任务
// （按物料排序），此时链中显式写在最前面的 CUT 被吸收；
// 没有 need_cutting 物料时显式 CUT 原样保留。
//
// 每步按工序的 requires_* 选版：
//   - 图稿：绑定图稿中恰有一张颜色覆盖施工单印刷颜色时选中；
//   - 刀模：恰好绑定一个时选中；绑定多个时用唯一图稿的关联刀模消歧；
//   - 压凸版：恰好绑定一个时选中；
//   - 烫版：按工序对应烫印类型过滤，命中多个取编码最小的一个。
//
// links 为施工单已绑定图稿的版间关联，仅用于刀模消歧，可为 nil。
// 任一所需版未选中的任务状态为 awaiting_plate，其余为 pending。
// 工序编码查不到目录时返回 ErrStaleReference，调用方回滚重试。
func Derive(order *entity.WorkOrder, processes map[string]*entity.Process, links []entity.PlateLink) ([]TaskSpec, error) {
	steps := expandChain(order)

	required := requiredColors(order)
	specs := make([]TaskSpec, 0, len(steps))
	for i, st := range steps {
		proc, ok := processes[st.code]
		if !ok {
			return nil, fmt.Errorf("process %q: %w", st.code, woerr.ErrStaleReference)
		}

		spec := TaskSpec{
			Position:           i + 1,
			ProcessCode:        st.code,
			MaterialID:         st.materialID,
			DependsOnPosition:  i,
			Status:             entity.TaskStatusPending,
			ProductionQuantity: order.ProductionQuantity,
		}

		for _, kind := range proc.RequiredPlateKinds() {
			id := selectPlate(order, st.code, kind, required, links)
			if id == nil {
				spec.Status = entity.TaskStatusAwaitingPlate
				continue
			}
			spec.setPlateID(kind, id)
		}

		spec.WorkContent = workContent(proc, st, order)
		specs = append(specs, spec)
	}
	return specs, nil
}

// expandChain 将工序编码列表展开为带物料的任务步骤
func expandChain(order *entity.WorkOrder) []step {
	cutting := cuttingMaterials(order)

	codes := order.ProcessCodes
	hadLeadingCut := false
	for len(codes) > 0 && codes[0] == entity.ProcessCut {
		hadLeadingCut = true
		codes = codes[1:]
	}

	var steps []step
	if len(cutting) > 0 {
		for _, m := range cutting {
			id := m.MaterialID
			steps = append(steps, step{code: entity.ProcessCut, materialID: &id, material: m})
		}
	} else if hadLeadingCut {
		steps = append(steps, step{code: entity.ProcessCut})
	}
	for _, code := range codes {
		steps = append(steps, step{code: code})
	}
	return steps
}

// cuttingMaterials 返回去重后的 need_cutting 物料，按排序字段稳定排列
func cuttingMaterials(order *entity.WorkOrder) []*entity.WorkOrderMaterial {
	var out []*entity.WorkOrderMaterial
	seen := make(map[string]bool)
	for i := range order.Materials {
		m := &order.Materials[i]
		if !m.NeedCutting || seen[m.MaterialID] {
			continue
		}
		seen[m.MaterialID] = true
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortOrder < out[j].SortOrder
	})
	return out
}

// requiredColors 施工单声明的全部印刷颜色
func requiredColors(order *entity.WorkOrder) []string {
	colors := make([]string, 0, len(order.PrintingCMYKColors)+len(order.PrintingOtherColors))
	colors = append(colors, order.PrintingCMYKColors...)
	colors = append(colors, order.PrintingOtherColors...)
	return colors
}

// selectPlate 在施工单已绑定的版中为某工序选版，选不出唯一结果返回 nil
func selectPlate(order *entity.WorkOrder, processCode, kind string, required []string, links []entity.PlateLink) *string {
	switch kind {
	case entity.PlateKindArtwork:
		var match *entity.Artwork
		for i := range order.Artworks {
			a := &order.Artworks[i]
			if !coversColors(a.Colors(), required) {
				continue
			}
			if match != nil {
				return nil // 多张图稿都满足，无法自动选择
			}
			match = a
		}
		if match == nil {
			return nil
		}
		return &match.ID

	case entity.PlateKindDie:
		if len(order.Dies) == 1 {
			return &order.Dies[0].ID
		}
		// 多个刀模时，唯一图稿关联到的那一个胜出
		if len(order.Artworks) != 1 {
			return nil
		}
		linked := linkedIDs(links, order.Artworks[0].ID, entity.PlateKindArtwork, entity.PlateKindDie)
		var match *entity.Die
		for i := range order.Dies {
			if !linked[order.Dies[i].ID] {
				continue
			}
			if match != nil {
				return nil
			}
			match = &order.Dies[i]
		}
		if match == nil {
			return nil
		}
		return &match.ID

	case entity.PlateKindFoilingPlate:
		want := FoilingTypeForProcess(processCode)
		var match *entity.FoilingPlate
		for i := range order.FoilingPlates {
			p := &order.FoilingPlates[i]
			if want != "" && p.FoilingType != want {
				continue
			}
			if match == nil || p.Code < match.Code {
				match = p
			}
		}
		if match == nil {
			return nil
		}
		return &match.ID

	case entity.PlateKindEmbossingPlate:
		if len(order.EmbossingPlates) != 1 {
			return nil
		}
		return &order.EmbossingPlates[0].ID
	}
	return nil
}

// linkedIDs 从对称关联表中取出与 (id, kind) 相连的 wantKind 版的 ID 集合
func linkedIDs(links []entity.PlateLink, id, kind, wantKind string) map[string]bool {
	out := make(map[string]bool)
	for _, l := range links {
		if l.PlateAID == id && l.PlateAKind == kind && l.PlateBKind == wantKind {
			out[l.PlateBID] = true
		}
		if l.PlateBID == id && l.PlateBKind == kind && l.PlateAKind == wantKind {
			out[l.PlateAID] = true
		}
	}
	return out
}

// coversColors 判断 have 是否覆盖 want 中的全部颜色
func coversColors(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, c := range have {
		set[c] = true
	}
	for _, c := range want {
		if !set[c] {
			return false
		}
	}
	return true
}

// workContent 生成任务工作内容描述
func workContent(proc *entity.Process, st step, order *entity.WorkOrder) string {
	switch proc.Code {
	case entity.ProcessCut:
		if st.material != nil {
			name := st.material.MaterialID
			if st.material.Material != nil {
				name = st.material.Material.Name
			}
			parts := []string{"开料：" + name}
			if st.material.Size != "" {
				parts = append(parts, st.material.Size)
			}
			return strings.Join(parts, " ")
		}
		return proc.Name
	case entity.ProcessPrint:
		colors := requiredColors(order)
		if len(colors) > 0 {
			return fmt.Sprintf("%s %s", proc.Name, strings.Join(colors, "+"))
		}
		return proc.Name
	}
	return proc.Name
}
