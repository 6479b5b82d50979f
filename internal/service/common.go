package service

import (
	"math"
	"sort"
	"strings"

	"github.com/saadjs/niclog/internal/model"
)

func normalizeKey(key string) string {
	return strings.TrimSpace(strings.ToLower(key))
}

func sortEntries(entries []model.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
}

func totalsMismatch(e model.Entry, recalculated model.Entry) bool {
	if math.Abs(e.TotalMg-recalculated.TotalMg) > 1e-9 {
		return true
	}
	return !e.TotalCost.Equal(recalculated.TotalCost)
}
