package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"dream-journal/internal/domain"
)

var ErrDreamNotFound = errors.New("dream not found")

// DreamRepository define el contrato del almacén local de sueños.
type DreamRepository interface {
	Insert(ctx context.Context, dream domain.Dream) (int64, error)
	Update(ctx context.Context, dream domain.Dream) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (domain.Dream, error)
	List(ctx context.Context) ([]domain.Dream, error)
	Count(ctx context.Context) (int, error)
	CountLucid(ctx context.Context) (int, error)
	AllTags(ctx context.Context) ([]string, error)
}

// SQLiteDreamRepository implementa DreamRepository sobre la base embebida.
type SQLiteDreamRepository struct {
	db *sql.DB
}

func NewSQLiteDreamRepository(db *sql.DB) *SQLiteDreamRepository {
	return &SQLiteDreamRepository{db: db}
}

// Insert guarda un sueño nuevo y devuelve el id asignado. Con id distinto de
// cero reemplaza la fila existente.
func (r *SQLiteDreamRepository) Insert(ctx context.Context, dream domain.Dream) (int64, error) {
	tags, err := encodeTags(dream.Tags)
	if err != nil {
		return 0, err
	}

	var res sql.Result
	if dream.ID == 0 {
		const query = `
			INSERT INTO dreams (date, start_time, end_time, title, content, tags, is_lucid)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		res, err = r.db.ExecContext(ctx, query,
			dream.Date.String(),
			dream.StartTime.String(),
			dream.EndTime.String(),
			dream.Title,
			dream.Content,
			tags,
			dream.IsLucid,
		)
	} else {
		const query = `
			INSERT OR REPLACE INTO dreams (id, date, start_time, end_time, title, content, tags, is_lucid)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		res, err = r.db.ExecContext(ctx, query,
			dream.ID,
			dream.Date.String(),
			dream.StartTime.String(),
			dream.EndTime.String(),
			dream.Title,
			dream.Content,
			tags,
			dream.IsLucid,
		)
	}
	if err != nil {
		return 0, fmt.Errorf("insert dream: %w", err)
	}
	if dream.ID != 0 {
		return dream.ID, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert dream id: %w", err)
	}
	return id, nil
}

func (r *SQLiteDreamRepository) Update(ctx context.Context, dream domain.Dream) error {
	tags, err := encodeTags(dream.Tags)
	if err != nil {
		return err
	}
	const query = `
		UPDATE dreams
		SET date = ?, start_time = ?, end_time = ?, title = ?, content = ?, tags = ?, is_lucid = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		dream.Date.String(),
		dream.StartTime.String(),
		dream.EndTime.String(),
		dream.Title,
		dream.Content,
		tags,
		dream.IsLucid,
		dream.ID,
	)
	if err != nil {
		return fmt.Errorf("update dream %d: %w", dream.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update dream %d: %w", dream.ID, err)
	}
	if n == 0 {
		return ErrDreamNotFound
	}
	return nil
}

func (r *SQLiteDreamRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM dreams WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete dream %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteDreamRepository) GetByID(ctx context.Context, id int64) (domain.Dream, error) {
	const query = `
		SELECT id, date, start_time, end_time, title, content, tags, is_lucid
		FROM dreams
		WHERE id = ?
	`
	dream, err := scanDream(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Dream{}, ErrDreamNotFound
	}
	return dream, err
}

// List devuelve los sueños del más reciente al más antiguo.
func (r *SQLiteDreamRepository) List(ctx context.Context) ([]domain.Dream, error) {
	const query = `
		SELECT id, date, start_time, end_time, title, content, tags, is_lucid
		FROM dreams
		ORDER BY date DESC, start_time DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list dreams: %w", err)
	}
	defer rows.Close()

	dreams := []domain.Dream{}
	for rows.Next() {
		dream, err := scanDream(rows)
		if err != nil {
			return nil, err
		}
		dreams = append(dreams, dream)
	}
	return dreams, rows.Err()
}

func (r *SQLiteDreamRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dreams`).Scan(&n)
	return n, err
}

func (r *SQLiteDreamRepository) CountLucid(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dreams WHERE is_lucid = 1`).Scan(&n)
	return n, err
}

// AllTags devuelve todas las etiquetas de todos los sueños, con repeticiones.
func (r *SQLiteDreamRepository) AllTags(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tags FROM dreams WHERE tags IS NOT NULL AND tags != ''`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var all []string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		all = append(all, decodeTags(raw)...)
	}
	return all, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDream(row rowScanner) (domain.Dream, error) {
	var (
		d                    domain.Dream
		date, start, end, tg string
	)
	if err := row.Scan(&d.ID, &date, &start, &end, &d.Title, &d.Content, &tg, &d.IsLucid); err != nil {
		return domain.Dream{}, err
	}
	var err error
	if d.Date, err = domain.ParseDate(date); err != nil {
		return domain.Dream{}, fmt.Errorf("dream %d: %w", d.ID, err)
	}
	if d.StartTime, err = domain.ParseTimeOfDay(start); err != nil {
		return domain.Dream{}, fmt.Errorf("dream %d: %w", d.ID, err)
	}
	if d.EndTime, err = domain.ParseTimeOfDay(end); err != nil {
		return domain.Dream{}, fmt.Errorf("dream %d: %w", d.ID, err)
	}
	d.Tags = decodeTags(tg)
	return d, nil
}

// encodeTags serializa las etiquetas normalizadas como arreglo JSON.
func encodeTags(tags []string) (string, error) {
	raw, err := json.Marshal(domain.NormalizeTags(tags))
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(raw), nil
}

// decodeTags acepta el arreglo JSON y también el formato heredado separado por comas.
func decodeTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	if strings.HasPrefix(raw, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err == nil {
			return domain.NormalizeTags(tags)
		}
	}
	return domain.NormalizeTags(strings.Split(raw, ","))
}
