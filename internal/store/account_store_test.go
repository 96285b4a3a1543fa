package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"xpledger/internal/models"
)

func TestAccountStoreCreate(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO accounts") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 2 || args[0] != "acc-1" || args[1] != "user-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewAccountStore(stubDB{})
	if err := store.Create(ctx, execer, "acc-1", "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAccountStoreGetForUpdate(t *testing.T) {
	ctx := context.Background()
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FOR UPDATE") {
				t.Fatalf("expected a locking read: %s", query)
			}
			if len(args) != 1 || args[0] != "acc-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*models.Account) = models.Account{ID: "acc-1", SpendableBalance: 90}
			return nil
		},
	}
	store := NewAccountStore(stubDB{})
	row, err := store.GetForUpdate(ctx, getter, "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.SpendableBalance != 90 {
		t.Fatalf("unexpected row: %#v", row)
	}
}

func TestAccountStoreUpdateBalances(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "SET spendable_balance = $1, total_xp = $2") {
				t.Fatalf("unexpected query: %s", query)
			}
			if args[0] != int64(120) || args[1] != int64(500) || args[2] != "acc-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewAccountStore(stubDB{})
	if err := store.UpdateBalances(ctx, execer, "acc-1", 120, 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAccountStoreAdjustFreeCommentCreditsGuarded(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "free_comment_credits + $1 >= 0") {
				t.Fatalf("expected the non-negative guard: %s", query)
			}
			// Guard fails, no row updated.
			return stubResult{rows: 0}, nil
		},
	}
	store := NewAccountStore(stubDB{})
	affected, err := store.AdjustFreeCommentCredits(ctx, execer, "acc-1", -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected no rows affected, got %d", affected)
	}
}

func TestAccountStoreAuditSummary(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "COALESCE(SUM(t.amount), 0)") {
				t.Fatalf("expected a ledger replay: %s", query)
			}
			if len(args) != 1 || args[0] != "acc-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*AccountAuditSummary) = AccountAuditSummary{ID: "acc-1", StoredBalance: 100, ReplayedBalance: 90, Difference: 10}
			return nil
		},
	})
	row, err := store.AuditSummary(ctx, "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Difference != 10 {
		t.Fatalf("unexpected summary: %#v", row)
	}
}

func TestAccountStoreListPenalties(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "a.penalty_score > 0") {
				t.Fatalf("expected clean accounts filtered out: %s", query)
			}
			if !strings.Contains(query, "ORDER BY a.penalty_score DESC") {
				t.Fatalf("expected worst offenders first: %s", query)
			}
			if len(args) != 1 || args[0] != 25 {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*[]PenaltyRow) = []PenaltyRow{{AccountID: "acc-1", PenaltyScore: 6, ReportedComments: 2, ReportsReceived: 4}}
			return nil
		},
	})
	rows, err := store.ListPenalties(ctx, 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].PenaltyScore != 6 {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}

func TestAccountStoreSetFrozen(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "SET frozen = $1") {
				t.Fatalf("unexpected query: %s", query)
			}
			if args[0] != true || args[1] != "acc-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewAccountStore(stubDB{})
	if err := store.SetFrozen(ctx, execer, "acc-1", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
