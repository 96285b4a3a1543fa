package economy

import (
	"context"
	"errors"

	"xpledger/internal/config"
	"xpledger/internal/db"
	"xpledger/internal/ledger"
	"xpledger/internal/models"
	"xpledger/internal/xp"

	"github.com/jmoiron/sqlx"
)

var ErrQuizAttemptRequired = errors.New("quiz attempt id required")

// QuizService is the entry point the quiz subsystem calls after grading an
// attempt: score the result, then commit the award as a single EARN keyed
// by the attempt id so network retries cannot double-credit.
type QuizService struct {
	txRunner db.TxRunner
	ledger   Ledger
	accounts AccountStore
	quizzes  QuizStore
	engine   xp.Engine
	cfg      config.Economy
}

func NewQuizService(txRunner db.TxRunner, ledgerSvc Ledger, accounts AccountStore, quizzes QuizStore, engine xp.Engine, cfg config.Economy) *QuizService {
	return &QuizService{
		txRunner: txRunner,
		ledger:   ledgerSvc,
		accounts: accounts,
		quizzes:  quizzes,
		engine:   engine,
		cfg:      cfg,
	}
}

type QuizCompletionRequest struct {
	AccountID string
	ArticleID string
	AttemptID string
	Result    xp.QuizResult
}

type QuizCompletionResult struct {
	Award       xp.Award
	Passed      bool
	Transaction *models.Transaction
	Replayed    bool
}

func (s *QuizService) CompleteQuiz(ctx context.Context, req QuizCompletionRequest) (QuizCompletionResult, error) {
	if req.AttemptID == "" {
		return QuizCompletionResult{}, ErrQuizAttemptRequired
	}
	award, err := s.engine.Score(req.Result)
	if err != nil {
		return QuizCompletionResult{}, err
	}
	passed := req.Result.ScorePercent >= s.cfg.PassingThreshold
	result := QuizCompletionResult{Award: award, Passed: passed}
	if !passed {
		return result, nil
	}

	account, err := s.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		return QuizCompletionResult{}, ledger.TranslateError(err)
	}

	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.quizzes.RecordPass(ctx, tx, req.AccountID, req.ArticleID, req.Result.ScorePercent); err != nil {
			return err
		}
		if award.XP <= 0 {
			return nil
		}
		txn, created, err := s.ledger.CommitInTx(ctx, tx, ledger.CommitRequest{
			AccountID: req.AccountID,
			Kind:      models.KindEarn,
			Amount:    award.XP,
			Source:    models.SourceQuiz,
			Reference: req.AttemptID,
		})
		if err != nil {
			return err
		}
		result.Transaction = &txn
		result.Replayed = !created
		if created && award.GrantsFreeComment {
			return s.ledger.GrantFreeCommentInTx(ctx, tx, req.AccountID)
		}
		return nil
	})
	if err != nil {
		return QuizCompletionResult{}, ledger.TranslateError(err)
	}
	if result.Transaction != nil && !result.Replayed {
		s.ledger.Broadcast(account.UserID, req.AccountID, result.Transaction.BalanceAfter)
	}
	return result, nil
}
