package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/noah-isme/enrollment-dashboard-api/internal/dto"
	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
)

var (
	title   = color.New(color.FgCyan, color.Bold)
	section = color.New(color.FgYellow)
	warning = color.New(color.FgRed)
)

func printHeader(w io.Writer, meta models.TableMeta, resp *dto.DashboardResponse) {
	title.Fprintln(w, "\n=== Batch Enrollment Report ===")
	fmt.Fprintf(w, "Range: %s to %s\n", orDash(resp.Range.From), orDash(resp.Range.To))
	fmt.Fprintf(w, "Source: %s", meta.Source)
	if !meta.FetchedAt.IsZero() {
		fmt.Fprintf(w, " (fetched %s)", meta.FetchedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintln(w)
	if meta.Source == models.CacheSourceEmpty {
		warning.Fprintln(w, "No data could be loaded from the spreadsheet.")
	}
}

func printSummary(w io.Writer, resp *dto.DashboardResponse) {
	section.Fprintln(w, "\nSummary")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Total Enrollments", strconv.Itoa(resp.Summary.TotalEnrollments)})
	last7 := "n/a"
	if resp.Summary.Last7Days != nil {
		last7 = strconv.Itoa(*resp.Summary.Last7Days)
	}
	table.Append([]string{"Last 7 Days", last7})
	revenue := "n/a"
	if resp.Summary.TotalRevenue != nil {
		revenue = fmt.Sprintf("₹%.2f Cr", *resp.Summary.TotalRevenue)
	}
	table.Append([]string{"Total Revenue", revenue})
	table.Append([]string{"Matched Rows", strconv.Itoa(resp.MatchedRows)})
	table.Render()
}

func printBatchSummary(w io.Writer, summary *models.BatchSummary) {
	section.Fprintln(w, "\nBatch Summary")
	if summary == nil {
		warning.Fprintln(w, "The source sheets carry no batch names.")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader(summary.Columns)
	for _, r := range summary.Rows {
		table.Append(batchRow(summary, r.Batch, r.Enrollments, r.Exam, r.Revenue, r.Leader, r.OrderTypes))
	}
	totals := summary.Totals
	orderTypes := ""
	if summary.HasColumn(models.ColumnOrderTypes) {
		orderTypes = fmt.Sprintf("%d Primary, %d Upgrade", totals.PrimaryOrders, totals.UpgradeOrders)
	}
	table.SetFooter(batchRow(summary, "TOTAL", totals.Enrollments, "", totals.Revenue, "", orderTypes))
	table.Render()
}

func batchRow(summary *models.BatchSummary, batch string, enrollments int, exam string, revenue float64, leader, orderTypes string) []string {
	row := make([]string, 0, len(summary.Columns))
	for _, col := range summary.Columns {
		switch col {
		case models.ColumnBatchName:
			row = append(row, batch)
		case models.ColumnTotalEnrollments:
			row = append(row, strconv.Itoa(enrollments))
		case models.ColumnExamCategory:
			row = append(row, exam)
		case models.ColumnTotalRevenue:
			row = append(row, fmt.Sprintf("%.4f", revenue))
		case models.ColumnLeader:
			row = append(row, leader)
		case models.ColumnOrderTypes:
			row = append(row, orderTypes)
		default:
			row = append(row, "")
		}
	}
	return row
}

func printTopBatches(w io.Writer, batches []models.BatchCount) {
	section.Fprintln(w, "\nTop Batches")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Rank", "Batch", "Enrollments"})
	for i := len(batches) - 1; i >= 0; i-- {
		table.Append([]string{strconv.Itoa(len(batches) - i), batches[i].Batch, strconv.Itoa(batches[i].Count)})
	}
	table.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
