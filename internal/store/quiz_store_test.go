package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
)

func TestQuizStoreRecordPassKeepsBestScore(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "ON CONFLICT (account_id, article_id)") {
				t.Fatalf("expected an upsert: %s", query)
			}
			if !strings.Contains(query, "GREATEST") {
				t.Fatalf("repeat passes must keep the best score: %s", query)
			}
			if args[0] != "acc-1" || args[1] != "article-1" || args[2] != 80 {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewQuizStore(stubDB{})
	if err := store.RecordPass(ctx, execer, "acc-1", "article-1", 80); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQuizStoreHasPassed(t *testing.T) {
	ctx := context.Background()
	store := NewQuizStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FROM quiz_passes") {
				t.Fatalf("unexpected query: %s", query)
			}
			if args[0] != "acc-1" || args[1] != "article-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*int) = 1
			return nil
		},
	})
	passed, err := store.HasPassed(ctx, "acc-1", "article-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !passed {
		t.Fatalf("expected a recorded pass")
	}
}
