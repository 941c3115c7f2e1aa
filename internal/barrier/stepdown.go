package barrier

import (
	"sort"
	"strconv"
	"strings"

	"structured-notes-tracker/internal/domain"
)

// ParseStepDownBarriers parses a Phoenix step-down KO table from its
// termsheet text form "period:price, period:price, ...", e.g.
// "1:608.84, 2:596.66, 3:584.48". Malformed entries are dropped; the
// result is ordered by period.
func ParseStepDownBarriers(text string) []domain.StepDownBarrier {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var barriers []domain.StepDownBarrier
	for _, item := range strings.Split(text, ",") {
		period, price, ok := strings.Cut(strings.TrimSpace(item), ":")
		if !ok {
			continue
		}
		p, err := strconv.Atoi(strings.TrimSpace(period))
		if err != nil {
			continue
		}
		level, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
		if err != nil {
			continue
		}
		barriers = append(barriers, domain.StepDownBarrier{Period: p, Price: level})
	}

	sort.Slice(barriers, func(i, j int) bool { return barriers[i].Period < barriers[j].Period })
	return barriers
}
