package economy

import (
	"context"
	"testing"

	"xpledger/internal/models"
	"xpledger/internal/store"
	"xpledger/internal/xp"

	"github.com/shopspring/decimal"
)

func testEngine() xp.Engine {
	return xp.NewEngine(xp.Config{
		PassingThreshold:  60,
		PerfectMultiplier: decimal.RequireFromString("1.25"),
	})
}

func passingResult(score int) xp.QuizResult {
	return xp.QuizResult{
		WordCount:    500,
		WPMUsed:      300,
		BaselineWPM:  250,
		ReadingLevel: decimal.RequireFromString("8.0"),
		ScorePercent: score,
	}
}

func TestCompleteQuizRequiresAttemptID(t *testing.T) {
	service := NewQuizService(fakeTxRunner{}, newFakeLedger(), stubAccounts{}, stubQuizzes{}, testEngine(), testEconomy())
	_, err := service.CompleteQuiz(context.Background(), QuizCompletionRequest{
		AccountID: "a1", ArticleID: "article-1", Result: passingResult(75),
	})
	if err != ErrQuizAttemptRequired {
		t.Fatalf("expected ErrQuizAttemptRequired, got %v", err)
	}
}

func TestCompleteQuizRejectsMalformedResult(t *testing.T) {
	service := NewQuizService(fakeTxRunner{}, newFakeLedger(), stubAccounts{}, stubQuizzes{}, testEngine(), testEconomy())
	result := passingResult(75)
	result.BaselineWPM = 0
	_, err := service.CompleteQuiz(context.Background(), QuizCompletionRequest{
		AccountID: "a1", ArticleID: "article-1", AttemptID: "attempt-1", Result: result,
	})
	if err != xp.ErrInvalidResult {
		t.Fatalf("expected ErrInvalidResult, got %v", err)
	}
}

func TestCompleteQuizFailingScoreCommitsNothing(t *testing.T) {
	fl := newFakeLedger()
	service := NewQuizService(fakeTxRunner{}, fl, stubAccounts{}, stubQuizzes{
		recordPassFn: func(context.Context, store.Execer, string, string, int) error {
			t.Fatalf("failing attempt must not record a pass")
			return nil
		},
	}, testEngine(), testEconomy())

	result, err := service.CompleteQuiz(context.Background(), QuizCompletionRequest{
		AccountID: "a1", ArticleID: "article-1", AttemptID: "attempt-1", Result: passingResult(40),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Passed || result.Transaction != nil || len(fl.commits) != 0 {
		t.Fatalf("expected no economic effect: %#v", result)
	}
}

func TestCompleteQuizAwardsAndRecordsPass(t *testing.T) {
	fl := newFakeLedger()
	recorded := false
	service := NewQuizService(fakeTxRunner{}, fl, stubAccounts{}, stubQuizzes{
		recordPassFn: func(_ context.Context, _ store.Execer, accountID, articleID string, scorePercent int) error {
			recorded = accountID == "a1" && articleID == "article-1" && scorePercent == 75
			return nil
		},
	}, testEngine(), testEconomy())

	result, err := service.CompleteQuiz(context.Background(), QuizCompletionRequest{
		AccountID: "a1", ArticleID: "article-1", AttemptID: "attempt-1", Result: passingResult(75),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Passed || !recorded {
		t.Fatalf("expected a recorded pass: %#v", result)
	}
	// 500 * 1.2 * 0.8 * 0.75 = 360
	if result.Award.XP != 360 || result.Transaction == nil || result.Transaction.Amount != 360 {
		t.Fatalf("unexpected award: %#v", result)
	}
	if len(fl.commits) != 1 || fl.commits[0].Kind != models.KindEarn || fl.commits[0].Reference != "attempt-1" {
		t.Fatalf("unexpected commit: %#v", fl.commits)
	}
	if fl.grants != 0 {
		t.Fatalf("non-perfect score must not grant a free comment")
	}
	if len(fl.broadcasts) != 1 {
		t.Fatalf("expected one balance broadcast, got %d", len(fl.broadcasts))
	}
}

func TestCompleteQuizPerfectGrantsFreeComment(t *testing.T) {
	fl := newFakeLedger()
	service := NewQuizService(fakeTxRunner{}, fl, stubAccounts{}, stubQuizzes{}, testEngine(), testEconomy())

	result, err := service.CompleteQuiz(context.Background(), QuizCompletionRequest{
		AccountID: "a1", ArticleID: "article-1", AttemptID: "attempt-1", Result: passingResult(100),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Award.Perfect || fl.grants != 1 || fl.credits["a1"] != 1 {
		t.Fatalf("expected a free comment grant: %#v grants=%d", result.Award, fl.grants)
	}
}

func TestCompleteQuizReplayDoesNotRegrant(t *testing.T) {
	fl := newFakeLedger()
	fl.replay = true
	service := NewQuizService(fakeTxRunner{}, fl, stubAccounts{}, stubQuizzes{}, testEngine(), testEconomy())

	result, err := service.CompleteQuiz(context.Background(), QuizCompletionRequest{
		AccountID: "a1", ArticleID: "article-1", AttemptID: "attempt-1", Result: passingResult(100),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Replayed {
		t.Fatalf("expected a replayed completion")
	}
	if fl.grants != 0 {
		t.Fatalf("replays must not grant another credit, got %d", fl.grants)
	}
	if len(fl.broadcasts) != 0 {
		t.Fatalf("replays must not broadcast, got %d", len(fl.broadcasts))
	}
}
