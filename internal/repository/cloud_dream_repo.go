package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"dream-journal/internal/domain"
)

// CloudDreamRepository es la colección remota de documentos de un usuario.
type CloudDreamRepository interface {
	List(ctx context.Context, userID string) ([]domain.CloudDream, error)
	Add(ctx context.Context, userID string, dream domain.Dream) (string, error)
	Update(ctx context.Context, userID string, dream domain.Dream) error
	Delete(ctx context.Context, userID string, localID int64) error
}

// PgCloudDreamRepository implementa CloudDreamRepository usando documentos JSONB.
type PgCloudDreamRepository struct {
	pool *pgxpool.Pool
}

func NewPgCloudDreamRepository(pool *pgxpool.Pool) *PgCloudDreamRepository {
	return &PgCloudDreamRepository{pool: pool}
}

// cloudDreamDoc es el cuerpo del documento remoto.
type cloudDreamDoc struct {
	ID        int64    `json:"id"`
	Date      string   `json:"date"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	IsLucid   bool     `json:"isLucid"`
	CreatedAt int64    `json:"createdAt"`
}

func newCloudDreamDoc(dream domain.Dream, createdAt time.Time) cloudDreamDoc {
	return cloudDreamDoc{
		ID:        dream.ID,
		Date:      dream.Date.String(),
		StartTime: dream.StartTime.String(),
		EndTime:   dream.EndTime.String(),
		Title:     dream.Title,
		Content:   dream.Content,
		Tags:      domain.NormalizeTags(dream.Tags),
		IsLucid:   dream.IsLucid,
		CreatedAt: createdAt.UnixMilli(),
	}
}

func (d cloudDreamDoc) toDream() (domain.Dream, error) {
	date, err := domain.ParseDate(d.Date)
	if err != nil {
		return domain.Dream{}, err
	}
	start, err := domain.ParseTimeOfDay(d.StartTime)
	if err != nil {
		return domain.Dream{}, err
	}
	end, err := domain.ParseTimeOfDay(d.EndTime)
	if err != nil {
		return domain.Dream{}, err
	}
	return domain.Dream{
		ID:        d.ID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Title:     d.Title,
		Content:   d.Content,
		Tags:      domain.NormalizeTags(d.Tags),
		IsLucid:   d.IsLucid,
	}, nil
}

// List devuelve los documentos del usuario, del más reciente al más antiguo.
// Los documentos ilegibles se omiten.
func (r *PgCloudDreamRepository) List(ctx context.Context, userID string) ([]domain.CloudDream, error) {
	const query = `
		SELECT doc_id, user_id, payload, created_at, updated_at
		FROM cloud_dreams
		WHERE user_id = $1
		ORDER BY payload->>'date' DESC, local_id DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list cloud dreams: %w", err)
	}
	defer rows.Close()

	var docs []domain.CloudDream
	for rows.Next() {
		var (
			doc     domain.CloudDream
			docID   uuid.UUID
			payload []byte
		)
		if err := rows.Scan(&docID, &doc.UserID, &payload, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		var body cloudDreamDoc
		if err := json.Unmarshal(payload, &body); err != nil {
			continue
		}
		dream, err := body.toDream()
		if err != nil {
			continue
		}
		doc.DocID = docID.String()
		doc.Dream = dream
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// upsertCloudDreamQuery conserva doc_id, created_at y el createdAt del
// documento cuando el sueño ya existe para el usuario.
const upsertCloudDreamQuery = `
	INSERT INTO cloud_dreams (doc_id, user_id, local_id, payload, created_at, updated_at)
	VALUES ($1, $2, $3, $4::jsonb, $5, $5)
	ON CONFLICT (user_id, local_id) DO UPDATE
	SET payload = jsonb_set(
			EXCLUDED.payload,
			'{createdAt}',
			COALESCE(cloud_dreams.payload->'createdAt', EXCLUDED.payload->'createdAt')
		),
		updated_at = EXCLUDED.updated_at
	RETURNING doc_id
`

// Add crea el documento del sueño. Está indexado por (user_id, local_id), de
// modo que repetir la subida de un mismo sueño no genera duplicados.
func (r *PgCloudDreamRepository) Add(ctx context.Context, userID string, dream domain.Dream) (string, error) {
	now := time.Now().UTC()
	payload, err := json.Marshal(newCloudDreamDoc(dream, now))
	if err != nil {
		return "", err
	}
	var docID uuid.UUID
	if err := r.pool.QueryRow(ctx, upsertCloudDreamQuery, uuid.New(), userID, dream.ID, string(payload), now).Scan(&docID); err != nil {
		return "", fmt.Errorf("add cloud dream: %w", err)
	}
	return docID.String(), nil
}

// Update sobrescribe el documento; si no existe lo crea.
func (r *PgCloudDreamRepository) Update(ctx context.Context, userID string, dream domain.Dream) error {
	_, err := r.Add(ctx, userID, dream)
	return err
}

func (r *PgCloudDreamRepository) Delete(ctx context.Context, userID string, localID int64) error {
	const query = `DELETE FROM cloud_dreams WHERE user_id = $1 AND local_id = $2`
	if _, err := r.pool.Exec(ctx, query, userID, localID); err != nil {
		return fmt.Errorf("delete cloud dream: %w", err)
	}
	return nil
}
