package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gantry/api/internal/datemath"
	"gantry/api/internal/severity"
	"gantry/api/internal/store"
)

// bom makes Excel decode the non-ASCII headers correctly.
const bom = "\uFEFF"

const csvMimeType = "text/csv; charset=utf-8"

var procurementHeaders = []string{
	"工程項目", "預定提出時間", "實際提出時間", "時程差異", "燈號狀態",
	"工地主辦", "採發主辦", "退件日期", "退件原因", "重新提送日期",
	"確認承攬商日期", "廠商", "備註",
}

var operationsHeaders = []string{
	"區分", "工程項目",
	"預定開始", "預定完成", "預定工期",
	"實際開始", "實際完成", "實際工期",
	"差異天數", "燈號狀態", "工期百分比", "備註",
}

// ProcurementCSV serializes one project's procurement records in insertion
// order, with the derived variance and status columns recomputed at export
// time.
func ProcurementCSV(projectName string, records []store.ProcurementRecord, now time.Time) *Result {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		v, ok := datemath.VarianceDays(r.ScheduledRequestDate, r.ActualRequestDate)
		rows = append(rows, []string{
			r.EngineeringItem,
			r.ScheduledRequestDate,
			r.ActualRequestDate,
			formatVariance(v, ok),
			severity.PointEvent.Classify(v, ok).Label,
			r.SiteOrganizer,
			r.ProcurementOrganizer,
			r.ReturnDate,
			r.ReturnReason,
			r.ResubmissionDate,
			r.ContractorConfirmDate,
			r.ContractorName,
			r.Remarks,
		})
	}
	return &Result{
		Data:     buildCSV(procurementHeaders, rows),
		Filename: fmt.Sprintf("%s_%s.csv", projectName, now.Format("2006-01-02")),
		MimeType: csvMimeType,
	}
}

// OperationsCSV serializes one project's operations control table, with
// durations, schedule-end variance, status and range progress derived per
// row.
func OperationsCSV(projectName string, records []store.OperationRecord, now time.Time) *Result {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		scheduled, scheduledOK := datemath.DurationDays(r.ScheduledStartDate, r.ScheduledEndDate)
		actual, actualOK := datemath.DurationDays(r.ActualStartDate, r.ActualEndDate)
		v, ok := datemath.VarianceDays(r.ScheduledEndDate, r.ActualEndDate)
		progress := severity.RangeProgress(r.ActualStartDate, r.ActualEndDate, r.ScheduledEndDate, now)
		rows = append(rows, []string{
			r.Category,
			r.Item,
			r.ScheduledStartDate,
			r.ScheduledEndDate,
			formatCount(scheduled, scheduledOK),
			r.ActualStartDate,
			r.ActualEndDate,
			formatCount(actual, actualOK),
			formatVariance(v, ok),
			severity.StageRange.Classify(v, ok).Label,
			fmt.Sprintf("%d%%", progress),
			r.Remarks,
		})
	}
	return &Result{
		Data:     buildCSV(operationsHeaders, rows),
		Filename: fmt.Sprintf("%s_營運管理控制表_%s.csv", projectName, now.Format("2006-01-02")),
		MimeType: csvMimeType,
	}
}

// buildCSV quotes every field unconditionally, escaping embedded quotes per
// RFC 4180. Headers stay unquoted.
func buildCSV(headers []string, rows [][]string) []byte {
	var b strings.Builder
	b.WriteString(bom)
	b.WriteString(strings.Join(headers, ","))
	for _, row := range rows {
		b.WriteByte('\n')
		for i, field := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(field, `"`, `""`))
			b.WriteByte('"')
		}
	}
	return []byte(b.String())
}

// formatVariance renders a signed day count with an explicit + for early
// completion, so a spreadsheet column scans unambiguously.
func formatVariance(v int, ok bool) string {
	if !ok {
		return ""
	}
	if v > 0 {
		return "+" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}

func formatCount(n int, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.Itoa(n)
}
