package service

import (
	"time"

	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
)

var fixtureAnchor = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return fixtureAnchor.AddDate(0, 0, offset)
}

func enrollment(batch, exam, plan string, converted time.Time, amount float64) models.Enrollment {
	return models.Enrollment{Batch: batch, Exam: exam, Plan: plan, ConvertedDate: converted, NetAmount: amount}
}

// sampleTable has every field and spans eleven days ending on fixtureAnchor.
func sampleTable() *models.Table {
	return &models.Table{
		Fields: models.AllFields,
		Records: []models.Enrollment{
			enrollment("Arjuna JEE", "JEE", "Pro", day(0), 4000),
			enrollment("Arjuna JEE", "JEE", "Pro", day(-1), 4000),
			enrollment("Arjuna JEE", "JEE", "Lite", day(-6), 2000),
			enrollment("Lakshya NEET", "NEET", "Pro", day(-2), 5000),
			enrollment("Lakshya NEET", "NEET", "none", day(-7), 5000),
			enrollment("Udaan CUET", "CUET", "", day(-10), 1000),
		},
	}
}

// twoSheetFixture mirrors a workbook with one clean sheet and one sheet
// carrying a metadata row above its header.
func twoSheetFixture() []models.RawSheet {
	today := fixtureAnchor.Format("2006-01-02")
	yesterday := day(-1).Format("2006-01-02")
	return []models.RawSheet{
		{
			Name: "Foundation Data",
			Rows: [][]string{
				{"_id", "name", "converteddate", "net_amount"},
				{"a1", "Arjuna JEE", today, "100"},
				{"a2", "Arjuna JEE", yesterday, "200"},
				{"a3", "Lakshya NEET", today, "0"},
			},
		},
		{
			Name: "CUET UG Data",
			Rows: [][]string{
				{"Exported on 2024-03-10", "", "", ""},
				{"_id", "name", "converteddate", "net_amount"},
				{"c1", "Udaan CUET", yesterday, ""},
				{"c2", "Udaan CUET", "not a date", "50"},
			},
		},
	}
}
