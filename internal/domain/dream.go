package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	ErrDreamTitleRequired   = errors.New("dream title is required")
	ErrDreamContentRequired = errors.New("dream content is required")
	ErrDreamDateRequired    = errors.New("dream date is required")
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidTimeOfDay     = errors.New("invalid time of day")
)

// Dream es una entrada del diario: rango horario, narrativa, etiquetas y lucidez.
// ID cero significa que todavía no fue persistido localmente.
type Dream struct {
	ID        int64     `json:"id"`
	Date      Date      `json:"date"`
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	IsLucid   bool      `json:"is_lucid"`
}

// Duration calcula la duración del sueño. Si EndTime <= StartTime el sueño
// cruzó la medianoche y el final cae al día siguiente.
func (d Dream) Duration() time.Duration {
	start := d.StartTime.Minutes()
	end := d.EndTime.Minutes()
	if end <= start {
		end += 24 * 60
	}
	return time.Duration(end-start) * time.Minute
}

// Validate aplica las reglas mínimas para guardar un sueño.
func (d Dream) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrDreamTitleRequired
	}
	if strings.TrimSpace(d.Content) == "" {
		return ErrDreamContentRequired
	}
	if d.Date.IsZero() {
		return ErrDreamDateRequired
	}
	if !d.StartTime.Valid() || !d.EndTime.Valid() {
		return ErrInvalidTimeOfDay
	}
	return nil
}

// Normalize recorta título/contenido y limpia las etiquetas.
func (d Dream) Normalize() Dream {
	d.Title = strings.TrimSpace(d.Title)
	d.Content = strings.TrimSpace(d.Content)
	d.Tags = NormalizeTags(d.Tags)
	return d
}

// NormalizeTags recorta cada etiqueta, colapsa espacios internos y descarta
// vacías y duplicadas conservando el orden de la primera aparición.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.Join(strings.Fields(tag), " ")
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Date representa una fecha de calendario sin hora ni zona.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf toma la fecha de calendario de t en su propia zona.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{t: t}, nil
}

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

func (d Date) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay es una hora local HH:MM.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute}
}

// ParseTimeOfDay acepta "HH:MM" y "HH:MM:SS" (los segundos se descartan).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
}

func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// Minutes devuelve los minutos transcurridos desde la medianoche.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
