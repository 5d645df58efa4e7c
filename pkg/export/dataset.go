package export

import "fmt"

// Dataset defines tabular export content. Rows and Footer are keyed by header.
// Weights optionally sizes columns relative to each other; missing entries count as 1.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	Footer  map[string]string
	Weights []float64
}

func (d Dataset) validate(format string) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", format)
	}
	return nil
}

func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		out[i] = row[header]
	}
	return out
}

// widths splits total across the columns according to Weights.
func (d Dataset) widths(total float64) []float64 {
	weights := make([]float64, len(d.Headers))
	var sum float64
	for i := range weights {
		weights[i] = 1
		if i < len(d.Weights) && d.Weights[i] > 0 {
			weights[i] = d.Weights[i]
		}
		sum += weights[i]
	}
	for i := range weights {
		weights[i] = total * weights[i] / sum
	}
	return weights
}
