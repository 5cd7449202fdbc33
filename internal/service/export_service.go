package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"ludotheque-admin/internal/domain"
	"ludotheque-admin/internal/repository"
)

// ExportService accounting export: persisted reductions grouped by operation.
type ExportService interface {
	ExportReductionsParOperation(ctx context.Context, start, end time.Time, structureID string) ([]domain.AggregatOperation, error)
	ExportReductionsXLSX(ctx context.Context, start, end time.Time, structureID string) ([]byte, error)
}

type exportService struct {
	reductions repository.ReductionsRepository
	logger     *zap.Logger
}

func NewExportService(reductions repository.ReductionsRepository, logger *zap.Logger) ExportService {
	return &exportService{reductions: reductions, logger: logger}
}

func (s *exportService) ExportReductionsParOperation(ctx context.Context, start, end time.Time, structureID string) ([]domain.AggregatOperation, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("date range is empty: start must be before end")
	}
	aggregats, err := s.reductions.AggregateByOperation(ctx, start, end, structureID)
	if err != nil {
		return nil, err
	}
	if aggregats == nil {
		aggregats = []domain.AggregatOperation{}
	}
	return aggregats, nil
}

// ReductionsExportHeader export sheet header.
var ReductionsExportHeader = []string{
	"Operation",
	"Nombre de lignes",
	"Total réductions",
}

// ExportReductionsXLSX builds the per-operation workbook handed to accounting.
func (s *exportService) ExportReductionsXLSX(ctx context.Context, start, end time.Time, structureID string) ([]byte, error) {
	aggregats, err := s.ExportReductionsParOperation(ctx, start, end, structureID)
	if err != nil {
		return nil, err
	}
	return generateReductionsExcel(aggregats, start, end)
}

func generateReductionsExcel(aggregats []domain.AggregatOperation, start, end time.Time) ([]byte, error) {
	f := excelize.NewFile()
	// Don't defer Close() here: WriteToBuffer needs the file open.

	sheetName := "Reductions"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range ReductionsExportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header: %w", err)
		}
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for row, agg := range aggregats {
		values := []any{agg.OperationID, agg.NbLignes, agg.TotalMontant}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell: %w", err)
			}
		}
	}

	// Range footer so accounting can trace which period the workbook covers.
	footerRow := len(aggregats) + 3
	cell, _ := excelize.CoordinatesToCellName(1, footerRow)
	_ = f.SetCellValue(sheetName, cell, fmt.Sprintf("Période du %s au %s",
		start.Format("2006-01-02"), end.Format("2006-01-02")))

	buf, err := f.WriteToBuffer()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}
