package s3_join

import (
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/wonny/factorlab/internal/contracts"
)

// SetBuckets attaches quantile bucket labels (one per row) for export
func (j *JoinedTable) SetBuckets(labels []int) error {
	if len(labels) != len(j.Rows) {
		return fmt.Errorf("%w: %d labels for %d rows", contracts.ErrMisaligned, len(labels), len(j.Rows))
	}
	j.buckets = append([]int(nil), labels...)
	return nil
}

// DataFrame exports the table as date, stock, industry, factor, ret_<k>... [, bucket]
func (j *JoinedTable) DataFrame() dataframe.DataFrame {
	n := len(j.Rows)
	dates := make([]string, n)
	stocks := make([]string, n)
	industries := make([]string, n)
	factors := make([]float64, n)
	returns := make([][]float64, len(j.Intervals))
	for k := range returns {
		returns[k] = make([]float64, n)
	}

	for i, r := range j.Rows {
		dates[i] = r.Date.Format("2006-01-02")
		stocks[i] = r.Stock
		industries[i] = r.Industry
		factors[i] = r.Factor
		for k := range j.Intervals {
			returns[k][i] = r.Returns[k]
		}
	}

	cols := []series.Series{
		series.New(dates, series.String, "date"),
		series.New(stocks, series.String, "stock"),
		series.New(industries, series.String, "industry"),
		series.New(factors, series.Float, "factor"),
	}
	for k, interval := range j.Intervals {
		cols = append(cols, series.New(returns[k], series.Float, ReturnColumn(interval)))
	}
	if j.buckets != nil {
		cols = append(cols, series.New(j.buckets, series.Int, "bucket"))
	}

	return dataframe.New(cols...)
}

// WriteCSV writes the exported table with a header row
func (j *JoinedTable) WriteCSV(w io.Writer) error {
	df := j.DataFrame()
	if df.Err != nil {
		return fmt.Errorf("build joined frame: %w", df.Err)
	}
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("write joined csv: %w", err)
	}
	return nil
}
