package main

import (
	"bufio"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"dream-journal/internal/domain"
)

func newTestJournal(input string) *journal {
	return &journal{reader: bufio.NewReader(strings.NewReader(input))}
}

func TestExampleLoggerConstructs(t *testing.T) {
	logger := zap.NewExample()
	defer logger.Sync()
	logger.Info("journal cli logger ready")
}

func TestPromptDefault(t *testing.T) {
	j := newTestJournal("\n  new value \n")
	if got := j.promptDefault("Titulo", "old"); got != "old" {
		t.Fatalf("empty line must keep current value, got %q", got)
	}
	if got := j.promptDefault("Titulo", "old"); got != "new value" {
		t.Fatalf("expected trimmed input, got %q", got)
	}
}

func TestFillDreamKeepsDefaultsAndParsesInput(t *testing.T) {
	input := strings.Join([]string{
		"2024-05-01", // fecha
		"",           // inicio: conserva 23:00
		"06:15",      // fin
		"Flight",     // titulo
		"I was flying",
		"flying, ocean",
		"s",
	}, "\n") + "\n"
	j := newTestJournal(input)

	got, err := j.fillDream(domain.Dream{
		StartTime: domain.NewTimeOfDay(23, 0),
		EndTime:   domain.NewTimeOfDay(7, 0),
	})
	if err != nil {
		t.Fatalf("fillDream: %v", err)
	}
	want := domain.Dream{
		Date:      domain.NewDate(2024, 5, 1),
		StartTime: domain.NewTimeOfDay(23, 0),
		EndTime:   domain.NewTimeOfDay(6, 15),
		Title:     "Flight",
		Content:   "I was flying",
		Tags:      []string{"flying", " ocean"},
		IsLucid:   true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected dream (-want +got):\n%s", diff)
	}
}

func TestFillDreamRejectsBadTime(t *testing.T) {
	j := newTestJournal("2024-05-01\n25:99\n")
	if _, err := j.fillDream(domain.Dream{}); err == nil {
		t.Fatalf("expected invalid time error")
	}
}
