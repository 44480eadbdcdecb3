package enums

import "fmt"

type PredictionSource string

const (
	PredictionSourceManual PredictionSource = "manual"
	PredictionSourceImport PredictionSource = "import"
)

var validPredictionSources = []PredictionSource{
	PredictionSourceManual,
	PredictionSourceImport,
}

func (p PredictionSource) IsValid() bool {
	for _, candidate := range validPredictionSources {
		if candidate == p {
			return true
		}
	}
	return false
}

func ParsePredictionSource(value string) (PredictionSource, error) {
	for _, candidate := range validPredictionSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid prediction source %q", value)
}
