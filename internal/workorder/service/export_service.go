package service

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/bitfantasy/printmes/internal/workorder/entity"
	"github.com/bitfantasy/printmes/internal/workorder/repository"
)

// ExportService 施工单导出
type ExportService struct {
	repos *repository.Repositories
}

// NewExportService 创建导出服务
func NewExportService(repos *repository.Repositories) *ExportService {
	return &ExportService{repos: repos}
}

var taskExportHeaders = []string{
	"序号", "工序", "工作内容", "状态", "版编码", "物料", "生产数量", "完成数量", "指派部门",
}

// ExportTasks 导出施工单任务链为表格
func (s *ExportService) ExportTasks(ctx context.Context, workOrderID string) (*excelize.File, string, error) {
	order, err := s.repos.WorkOrder.FindByID(ctx, workOrderID)
	if err != nil {
		return nil, "", fmt.Errorf("work order not found: %w", err)
	}
	tasks, err := s.repos.Task.ListByWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, "", fmt.Errorf("list tasks: %w", err)
	}

	f := excelize.NewFile()
	sheet := "任务"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, h := range taskExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	row := 2
	for _, t := range tasks {
		if t.Status == entity.TaskStatusCancelled {
			continue
		}
		values := []interface{}{
			t.Position,
			t.ProcessCode,
			t.WorkContent,
			t.Status,
			taskPlateCode(&t),
			taskMaterialName(&t),
			t.ProductionQuantity,
			t.QuantityCompleted,
			derefStr(t.AssignedDepartmentID),
		}
		for i, v := range values {
			col, _ := excelize.ColumnNumberToName(i + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
		}
		row++
	}

	filename := fmt.Sprintf("workorder_%s_tasks.xlsx", order.OrderNumber)
	return f, filename, nil
}

func taskPlateCode(t *entity.WorkOrderTask) string {
	switch {
	case t.Artwork != nil:
		return t.Artwork.FullCode()
	case t.Die != nil:
		return t.Die.Code
	case t.FoilingPlate != nil:
		return t.FoilingPlate.Code
	case t.EmbossingPlate != nil:
		return t.EmbossingPlate.Code
	}
	return ""
}

func taskMaterialName(t *entity.WorkOrderTask) string {
	if t.Material != nil {
		return t.Material.Name
	}
	return ""
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
