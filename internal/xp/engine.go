// Package xp turns a finished comprehension quiz into an XP award. The
// engine is pure: no storage, no clock, no side effects, so the quiz
// subsystem can call it before anything touches the ledger.
package xp

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidResult = errors.New("invalid quiz result")
)

type Config struct {
	PassingThreshold  int
	PerfectMultiplier decimal.Decimal
}

// QuizResult is the quiz subsystem's report of one attempt.
type QuizResult struct {
	WordCount    int64
	WPMUsed      int64
	BaselineWPM  int64
	ReadingLevel decimal.Decimal
	ScorePercent int
}

// Award is what the attempt is worth. GrantsFreeComment marks the one-time
// fee waiver earned by a perfect score; the caller decides whether the
// grant is new or a replay.
type Award struct {
	XP                int64
	Perfect           bool
	GrantsFreeComment bool
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) Engine {
	return Engine{cfg: cfg}
}

// Score computes the award:
//
//	base = floor(words * (wpm/baseline) * (level/10) * (score/100))
//	award = floor(base * perfect_multiplier) when score is 100
//
// A score under the passing threshold awards nothing. Malformed input is
// rejected before any arithmetic runs.
func (e Engine) Score(result QuizResult) (Award, error) {
	if result.WordCount < 0 || result.WPMUsed <= 0 || result.BaselineWPM <= 0 {
		return Award{}, ErrInvalidResult
	}
	if result.ReadingLevel.Sign() < 0 {
		return Award{}, ErrInvalidResult
	}
	if result.ScorePercent < 0 || result.ScorePercent > 100 {
		return Award{}, ErrInvalidResult
	}
	if result.ScorePercent < e.cfg.PassingThreshold {
		return Award{}, nil
	}

	speedMultiplier := decimal.NewFromInt(result.WPMUsed).Div(decimal.NewFromInt(result.BaselineWPM))
	complexityFactor := result.ReadingLevel.Div(decimal.NewFromInt(10))
	accuracyBonus := decimal.NewFromInt(int64(result.ScorePercent)).Div(decimal.NewFromInt(100))

	base := decimal.NewFromInt(result.WordCount).
		Mul(speedMultiplier).
		Mul(complexityFactor).
		Mul(accuracyBonus).
		Floor()

	award := Award{XP: base.IntPart()}
	if result.ScorePercent == 100 {
		award.XP = base.Mul(e.cfg.PerfectMultiplier).Floor().IntPart()
		award.Perfect = true
		award.GrantsFreeComment = true
	}
	return award, nil
}
