package enums

import "fmt"

type WinningStatus string

const (
	WinningStatusWon  WinningStatus = "won"
	WinningStatusLost WinningStatus = "lost"
)

var validWinningStatuses = []WinningStatus{
	WinningStatusWon,
	WinningStatusLost,
}

func (w WinningStatus) IsValid() bool {
	for _, candidate := range validWinningStatuses {
		if candidate == w {
			return true
		}
	}
	return false
}

func ParseWinningStatus(value string) (WinningStatus, error) {
	for _, candidate := range validWinningStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid winning status %q", value)
}
