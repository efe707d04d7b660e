package export

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"gantry/api/internal/datemath"
	"gantry/api/internal/severity"
	"gantry/api/internal/store"
)

// reportRow is one pre-derived table row for the PDF template. Severity
// levels double as CSS class names.
type reportRow struct {
	Cells  []string
	Status string
	Level  severity.Level
}

type reportData struct {
	ProjectName string
	GeneratedAt string
	Progress    int

	ProcurementHeaders []string
	Procurement        []reportRow
	OperationsHeaders  []string
	Operations         []reportRow
}

// The PDF moves the status column to the end of each row so the colored
// cell closes the line; the CSV column order is unchanged.
var pdfProcurementHeaders = []string{
	"工程項目", "預定提出時間", "實際提出時間", "時程差異",
	"工地主辦", "採發主辦", "退件日期", "退件原因", "重新提送日期",
	"確認承攬商日期", "廠商", "備註", "燈號狀態",
}

var pdfOperationsHeaders = []string{
	"區分", "工程項目",
	"預定開始", "預定完成", "預定工期",
	"實際開始", "實際完成", "實際工期",
	"差異天數", "工期百分比", "備註", "燈號狀態",
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="zh-TW">
<head>
  <meta charset="UTF-8">
  <title>{{.ProjectName}}</title>
  <style>
    body { font-family: "Noto Sans CJK TC", "Microsoft JhengHei", sans-serif; font-size: 10px; margin: 1rem; }
    h1 { font-size: 16px; margin-bottom: 0; }
    .meta { color: #666; margin-bottom: 1rem; }
    table { border-collapse: collapse; width: 100%; margin-bottom: 1.5rem; }
    th, td { border: 1px solid #bbb; padding: 3px 5px; text-align: left; }
    th { background: #f0f0f0; }
    td.normal { color: #15803d; }
    td.warning, td.yellow { color: #a16207; }
    td.escalate-to-site, td.orange { color: #c2410c; }
    td.escalate-to-management, td.critical { color: #b91c1c; font-weight: bold; }
  </style>
</head>
<body>
  <h1>{{.ProjectName}}</h1>
  <div class="meta">進度 {{.Progress}}% | 產出日期 {{.GeneratedAt}}</div>
  <h2>採購發包控制表</h2>
  <table>
    <tr>{{range .ProcurementHeaders}}<th>{{.}}</th>{{end}}</tr>
    {{range .Procurement}}<tr>{{range .Cells}}<td>{{.}}</td>{{end}}<td class="{{.Level}}">{{.Status}}</td></tr>
    {{end}}
  </table>
  <h2>全程營運管理控制表</h2>
  <table>
    <tr>{{range .OperationsHeaders}}<th>{{.}}</th>{{end}}</tr>
    {{range .Operations}}<tr>{{range .Cells}}<td>{{.}}</td>{{end}}<td class="{{.Level}}">{{.Status}}</td></tr>
    {{end}}
  </table>
</body>
</html>`))

// PDFReport renders both control tables for one project as a single PDF.
// The status column is recomputed the same way the CSV exports do.
func PDFReport(projectName string, procurement []store.ProcurementRecord, operations []store.OperationRecord, progress int, now time.Time) (*Result, error) {
	data := reportData{
		ProjectName:        projectName,
		GeneratedAt:        now.Format("2006-01-02"),
		Progress:           progress,
		ProcurementHeaders: pdfProcurementHeaders,
		OperationsHeaders:  pdfOperationsHeaders,
	}

	for _, r := range procurement {
		v, ok := datemath.VarianceDays(r.ScheduledRequestDate, r.ActualRequestDate)
		class := severity.PointEvent.Classify(v, ok)
		data.Procurement = append(data.Procurement, reportRow{
			Cells: []string{
				r.EngineeringItem, r.ScheduledRequestDate, r.ActualRequestDate,
				formatVariance(v, ok), r.SiteOrganizer, r.ProcurementOrganizer,
				r.ReturnDate, r.ReturnReason, r.ResubmissionDate,
				r.ContractorConfirmDate, r.ContractorName, r.Remarks,
			},
			Status: class.Label,
			Level:  class.Level,
		})
	}

	for _, r := range operations {
		scheduled, scheduledOK := datemath.DurationDays(r.ScheduledStartDate, r.ScheduledEndDate)
		actual, actualOK := datemath.DurationDays(r.ActualStartDate, r.ActualEndDate)
		v, ok := datemath.VarianceDays(r.ScheduledEndDate, r.ActualEndDate)
		class := severity.StageRange.Classify(v, ok)
		data.Operations = append(data.Operations, reportRow{
			Cells: []string{
				r.Category, r.Item,
				r.ScheduledStartDate, r.ScheduledEndDate, formatCount(scheduled, scheduledOK),
				r.ActualStartDate, r.ActualEndDate, formatCount(actual, actualOK),
				formatVariance(v, ok),
				fmt.Sprintf("%d%%", severity.RangeProgress(r.ActualStartDate, r.ActualEndDate, r.ScheduledEndDate, now)),
				r.Remarks,
			},
			Status: class.Label,
			Level:  class.Level,
		})
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	pdf, err := renderPDF(buf.String())
	if err != nil {
		return nil, err
	}
	return &Result{
		Data:     pdf,
		Filename: fmt.Sprintf("%s_進度報告_%s.pdf", projectName, now.Format("2006-01-02")),
		MimeType: "application/pdf",
	}, nil
}
