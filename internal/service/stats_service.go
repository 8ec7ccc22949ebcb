package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"dream-journal/internal/domain"
	"dream-journal/internal/repository"
)

const topTagsLimit = 5

type StatsService struct {
	dreams repository.DreamRepository
}

func NewStatsService(dreams repository.DreamRepository) *StatsService {
	return &StatsService{dreams: dreams}
}

// Compute agrega conteos, duración media (con cruce de medianoche) y etiquetas más usadas.
func (s *StatsService) Compute(ctx context.Context) (domain.Stats, error) {
	dreams, err := s.dreams.List(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	lucid, err := s.dreams.CountLucid(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	tags, err := s.dreams.AllTags(ctx)
	if err != nil {
		return domain.Stats{}, err
	}

	stats := domain.Stats{
		Total:    len(dreams),
		Lucid:    lucid,
		NonLucid: len(dreams) - lucid,
		TopTags:  TopTags(tags, topTagsLimit),
	}
	if len(dreams) > 0 {
		var totalMinutes int64
		for _, d := range dreams {
			totalMinutes += int64(d.Duration() / time.Minute)
		}
		stats.AverageMinutes = totalMinutes / int64(len(dreams))
		stats.AverageDuration = time.Duration(stats.AverageMinutes) * time.Minute
	}
	stats.AverageLabel = FormatDuration(stats.AverageDuration)
	return stats, nil
}

// TopTags cuenta etiquetas y devuelve las n más frecuentes; empates por orden alfabético.
func TopTags(tags []string, n int) []domain.TagCount {
	counts := make(map[string]int)
	for _, tag := range tags {
		counts[tag]++
	}
	out := make([]domain.TagCount, 0, len(counts))
	for tag, count := range counts {
		out = append(out, domain.TagCount{Tag: tag, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// FormatDuration muestra una duración como "7h 30m".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int64(d / time.Minute)
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
