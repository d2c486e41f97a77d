package s5_evaluate

import (
	"fmt"

	"github.com/wonny/factorlab/internal/contracts"
	"github.com/wonny/factorlab/internal/runconfig"
	"github.com/wonny/factorlab/internal/s3_join"
	"github.com/wonny/factorlab/internal/s4_crosssection"
)

// Options controls the preparation of one factor for evaluation
type Options struct {
	Intervals    []int
	WinsorizePct float64
	Bins         int
	ByIndustry   bool
}

// OptionsFromRun reads the evaluation block of a run file (defaults already applied)
func OptionsFromRun(cfg *runconfig.Config) Options {
	opts := Options{
		Intervals: cfg.Evaluation.Intervals,
		Bins:      cfg.Evaluation.Bins,
	}
	if cfg.Evaluation.WinsorizePct != nil {
		opts.WinsorizePct = *cfg.Evaluation.WinsorizePct
	}
	if cfg.Evaluation.ByIndustry != nil {
		opts.ByIndustry = *cfg.Evaluation.ByIndustry
	}
	return opts
}

// Prepare turns a factor panel into an evaluation table
// ⭐ SSOT: winsorize → join → normalize → bucket 순서는 여기서만
//
// The factor is clipped per date, joined with forward returns and industries, replaced
// by its cross-sectional z-score (rows that cannot be scored are dropped) and labelled
// with equal-width buckets of the z-score.
func Prepare(factor, prices *contracts.Panel, industries contracts.IndustryMap, opts Options) (*s3_join.JoinedTable, error) {
	clipped := factor
	if opts.WinsorizePct > 0 {
		var err error
		if clipped, err = s4_crosssection.Winsorize(factor, opts.WinsorizePct); err != nil {
			return nil, fmt.Errorf("winsorize: %w", err)
		}
	}

	joined, err := s3_join.Join(clipped, prices, industries, opts.Intervals)
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}

	scores := s4_crosssection.Normalize(joined.Observations(), opts.ByIndustry)
	normalized, err := joined.WithFactor(scores)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	labels, err := s4_crosssection.Bucket(normalized.Observations(), opts.Bins, opts.ByIndustry)
	if err != nil {
		return nil, fmt.Errorf("bucket: %w", err)
	}
	if err := normalized.SetBuckets(labels); err != nil {
		return nil, err
	}
	return normalized, nil
}
