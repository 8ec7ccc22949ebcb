package repository

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"dream-journal/internal/config"
	"dream-journal/internal/db"
	"dream-journal/internal/domain"
)

func TestUpsertCloudDreamQuery_KeysByUserAndLocalID(t *testing.T) {
	for _, want := range []string{
		"ON CONFLICT (user_id, local_id) DO UPDATE",
		"cloud_dreams.payload->'createdAt'",
		"RETURNING doc_id",
	} {
		if !strings.Contains(upsertCloudDreamQuery, want) {
			t.Fatalf("upsert query missing %q:\n%s", want, upsertCloudDreamQuery)
		}
	}
	if strings.Contains(upsertCloudDreamQuery, "created_at = EXCLUDED") {
		t.Fatalf("upsert must not overwrite created_at")
	}
}

// Requiere un Postgres real en DATABASE_URL.
func TestPgCloudDreamRepository_RepeatedAddKeepsOneDocument(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, &config.Config{DatabaseURL: url})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := db.EnsureCloudSchema(ctx, pool); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	userID := "test-" + uuid.NewString()
	if err := NewPgUserRepository(pool).Create(ctx, domain.User{
		ID:        userID,
		Email:     userID + "@example.com",
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, userID)
	})

	repo := NewPgCloudDreamRepository(pool)
	dream := sampleDream(1, "First flight", "flying")
	dream.ID = 42

	firstID, err := repo.Add(ctx, userID, dream)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	var firstCreated int64
	if err := pool.QueryRow(ctx, `SELECT (payload->>'createdAt')::bigint FROM cloud_dreams WHERE user_id = $1`, userID).Scan(&firstCreated); err != nil {
		t.Fatalf("read createdAt: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	dream.Title = "Second flight"
	secondID, err := repo.Add(ctx, userID, dream)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if secondID != firstID {
		t.Fatalf("expected same document id, got %s and %s", firstID, secondID)
	}
	if err := repo.Update(ctx, userID, dream); err != nil {
		t.Fatalf("update: %v", err)
	}

	docs, err := repo.List(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected one document, got %d", len(docs))
	}
	if docs[0].Dream.Title != "Second flight" || docs[0].Dream.ID != 42 {
		t.Fatalf("unexpected document: %+v", docs[0].Dream)
	}

	var created int64
	if err := pool.QueryRow(ctx, `SELECT (payload->>'createdAt')::bigint FROM cloud_dreams WHERE user_id = $1`, userID).Scan(&created); err != nil {
		t.Fatalf("read createdAt: %v", err)
	}
	if created != firstCreated {
		t.Fatalf("createdAt changed from %d to %d", firstCreated, created)
	}

	if err := repo.Delete(ctx, userID, 42); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if docs, _ := repo.List(ctx, userID); len(docs) != 0 {
		t.Fatalf("expected no documents after delete, got %d", len(docs))
	}
}
