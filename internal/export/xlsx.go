// Package export renders analytics query results into spreadsheet reports
// for offline distribution.
package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/scout-pos/geo-analytics/internal/analytics"
)

// WriteRankingXLSX writes a dot strip ranking to an .xlsx workbook with a
// Rankings sheet and a Summary sheet.
func WriteRankingXLSX(path string, resp *analytics.DotstripResponse) error {
	f := xlsx.NewFile()

	rankings, err := f.AddSheet("Rankings")
	if err != nil {
		return eris.Wrap(err, "export: add rankings sheet")
	}
	header := rankings.AddRow()
	for _, h := range []string{"Rank", "Region Code", "Region Name", "Value", "Formatted", "% of Leader", "Color Bucket"} {
		header.AddCell().Value = h
	}
	for _, item := range resp.Dotstrip {
		row := rankings.AddRow()
		row.AddCell().SetInt(item.Rank)
		row.AddCell().Value = item.RegionCode
		row.AddCell().Value = item.RegionName
		row.AddCell().SetFloat(item.Value)
		row.AddCell().Value = item.FormattedValue
		row.AddCell().SetFloat(item.PercentageOfLeader)
		row.AddCell().SetInt(item.ColorBucket)
	}

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}
	addPair := func(k, v string) {
		row := summary.AddRow()
		row.AddCell().Value = k
		row.AddCell().Value = v
	}
	addPair("Metric", string(resp.Summary.Metric))
	addPair("From", resp.Summary.DateRange.From)
	addPair("To", resp.Summary.DateRange.To)
	totalRow := summary.AddRow()
	totalRow.AddCell().Value = "Total"
	totalRow.AddCell().SetFloat(resp.Summary.Total)

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
