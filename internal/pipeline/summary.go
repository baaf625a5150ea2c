package pipeline

import (
	"errors"
	"fmt"

	"github.com/montanaflynn/stats"
)

// Summary describes the distribution of a batch's predicted scores.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
	P90    float64 `json:"p90"`
}

// Summarize computes the summary of scores. StdDev is the population deviation.
func Summarize(scores []float64) (Summary, error) {
	data := stats.Float64Data(scores)
	if data.Len() == 0 {
		return Summary{}, errors.New("summarize: no scores")
	}

	var s Summary
	var err error
	s.Count = data.Len()
	if s.Mean, err = stats.Mean(data); err != nil {
		return Summary{}, fmt.Errorf("mean: %w", err)
	}
	if s.Median, err = stats.Median(data); err != nil {
		return Summary{}, fmt.Errorf("median: %w", err)
	}
	if s.Min, err = stats.Min(data); err != nil {
		return Summary{}, fmt.Errorf("min: %w", err)
	}
	if s.Max, err = stats.Max(data); err != nil {
		return Summary{}, fmt.Errorf("max: %w", err)
	}
	if s.StdDev, err = stats.StandardDeviation(data); err != nil {
		return Summary{}, fmt.Errorf("std dev: %w", err)
	}
	if s.P90, err = stats.PercentileNearestRank(data, 90); err != nil {
		return Summary{}, fmt.Errorf("p90: %w", err)
	}
	return s, nil
}
