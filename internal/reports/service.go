// Package reports renders workflow data into downloadable artifacts:
// per-document review history as PDF and per-workflow statistics as Excel.
package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"docflow/review-portal/review-portal-backend/internal/cache"
	"docflow/review-portal/review-portal-backend/internal/workflow"
)

type Service struct {
	registry Registry
	store    workflow.StateStore
	stats    *cache.TTLCache
	logger   *zap.Logger
}

// Registry is the slice of the workflow registry the report service needs.
type Registry interface {
	Definition(id string) *workflow.Definition
}

func NewService(registry Registry, store workflow.StateStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry: registry,
		store:    store,
		stats:    cache.New(time.Minute),
		logger:   logger,
	}
}

// HistoryPDF renders a document's full review trail as a PDF.
func (s *Service) HistoryPDF(ctx context.Context, documentID, documentTitle string) ([]byte, error) {
	state, err := s.store.GetState(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("%w: state for document %s", workflow.ErrNotFound, documentID)
	}

	def := s.registry.Definition(state.WorkflowID)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Workflow History Report", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.SetTextColor(100, 100, 100)
	title := documentTitle
	if title == "" {
		title = documentID
	}
	pdf.CellFormat(0, 8, title, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s", time.Now().Format("2006-01-02 15:04")), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "B", 11)
	workflowName := state.WorkflowID
	if def != nil {
		workflowName = def.Name
	}
	pdf.CellFormat(0, 7, fmt.Sprintf("Workflow: %s", workflowName), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Status: %s    Current stage: %s", state.Status, s.stageName(def, state.CurrentStage)), "", 1, "L", false, 0, "")
	if state.CompletedAt != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("Completed: %s (total %s)", state.CompletedAt.Format("2006-01-02 15:04"), state.CompletedAt.Sub(state.StartedAt).Round(time.Minute)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	widths := []float64{32, 42, 34, 32, 40}
	headers := []string{"Timestamp", "Stage", "Action", "User", "Comment"}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(68, 114, 196)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for i, entry := range state.History {
		if i%2 == 1 {
			pdf.SetFillColor(242, 242, 242)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		user := entry.UserName
		if user == "" {
			user = entry.UserID
		}
		cells := []string{
			entry.Timestamp.Format("2006-01-02 15:04"),
			s.stageName(def, entry.StageID),
			entry.Action,
			user,
			truncate(entry.Comment, 34),
		}
		for j, c := range cells {
			pdf.CellFormat(widths[j], 7, c, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering history pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// StatisticsWorkbook builds an Excel workbook summarizing one workflow:
// a summary sheet plus a sheet listing every document in flight.
func (s *Service) StatisticsWorkbook(ctx context.Context, workflowID string) ([]byte, error) {
	def := s.registry.Definition(workflowID)
	if def == nil {
		return nil, fmt.Errorf("%w: workflow %s", workflow.ErrNotFound, workflowID)
	}

	cached, err := s.stats.GetOrCompute("stats:"+workflowID, func() (any, error) {
		return s.store.Statistics(ctx, workflowID)
	})
	if err != nil {
		return nil, err
	}
	stats := cached.(*workflow.Statistics)
	states, err := s.store.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	f.SetSheetName("Sheet1", summary)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
	})

	f.SetCellValue(summary, "A1", "Workflow")
	f.SetCellValue(summary, "B1", def.Name)
	f.SetCellValue(summary, "A2", "Total documents")
	f.SetCellValue(summary, "B2", stats.Total)
	f.SetCellValue(summary, "A3", "Average completion time")
	f.SetCellValue(summary, "B3", stats.AverageCompletionTime.Round(time.Minute).String())

	row := 5
	f.SetCellValue(summary, fmt.Sprintf("A%d", row), "Status")
	f.SetCellValue(summary, fmt.Sprintf("B%d", row), "Count")
	f.SetCellStyle(summary, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), headerStyle)
	for status, count := range stats.ByStatus {
		row++
		f.SetCellValue(summary, fmt.Sprintf("A%d", row), string(status))
		f.SetCellValue(summary, fmt.Sprintf("B%d", row), count)
	}

	row += 2
	f.SetCellValue(summary, fmt.Sprintf("A%d", row), "Stage")
	f.SetCellValue(summary, fmt.Sprintf("B%d", row), "Documents")
	f.SetCellStyle(summary, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), headerStyle)
	for _, stage := range def.Stages() {
		row++
		f.SetCellValue(summary, fmt.Sprintf("A%d", row), stage.Name)
		f.SetCellValue(summary, fmt.Sprintf("B%d", row), stats.ByStage[stage.ID])
	}
	f.SetColWidth(summary, "A", "A", 30)
	f.SetColWidth(summary, "B", "B", 24)

	const docs = "Documents"
	if _, err := f.NewSheet(docs); err != nil {
		return nil, err
	}
	columns := []string{"Document ID", "Current Stage", "Status", "Started", "Updated", "Transitions"}
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(docs, cell, col)
		f.SetCellStyle(docs, cell, cell, headerStyle)
	}
	for i, st := range states {
		values := []any{
			st.DocumentID,
			s.stageName(def, st.CurrentStage),
			string(st.Status),
			st.StartedAt.Format("2006-01-02 15:04"),
			st.UpdatedAt.Format("2006-01-02 15:04"),
			len(st.History),
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			f.SetCellValue(docs, cell, v)
		}
	}
	f.SetColWidth(docs, "A", "A", 38)
	f.SetColWidth(docs, "B", "F", 20)
	f.SetPanes(docs, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("writing statistics workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) stageName(def *workflow.Definition, stageID string) string {
	if def != nil {
		if stage, ok := def.Stage(stageID); ok {
			return stage.Name
		}
	}
	return stageID
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
