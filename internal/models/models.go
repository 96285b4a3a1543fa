package models

import "time"

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Account is a user's ledger state. SpendableBalance is a cache over the
// transaction log; TotalXP and PenaltyScore only ever grow. Frozen is set
// when a replay audit finds the cache and the log disagreeing, and blocks
// every further commit until an operator clears it.
type Account struct {
	ID                 string    `db:"id" json:"id"`
	UserID             string    `db:"user_id" json:"user_id"`
	TotalXP            int64     `db:"total_xp" json:"total_xp"`
	SpendableBalance   int64     `db:"spendable_balance" json:"spendable_balance"`
	PenaltyScore       int64     `db:"penalty_score" json:"penalty_score"`
	FreeCommentCredits int64     `db:"free_comment_credits" json:"free_comment_credits"`
	Frozen             bool      `db:"frozen" json:"frozen"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

type TransactionKind string

const (
	KindEarn        TransactionKind = "EARN"
	KindSpend       TransactionKind = "SPEND"
	KindRefund      TransactionKind = "REFUND"
	KindTransferIn  TransactionKind = "TRANSFER_IN"
	KindTransferOut TransactionKind = "TRANSFER_OUT"
)

type TransactionSource string

const (
	SourceQuiz               TransactionSource = "quiz"
	SourceCommentPost        TransactionSource = "comment_post"
	SourceReaction           TransactionSource = "reaction"
	SourceFeaturePurchase    TransactionSource = "feature_purchase"
	SourceBonus              TransactionSource = "bonus"
	SourceModerationReversal TransactionSource = "moderation_reversal"
)

// Transaction is one immutable, append-only change to an account balance.
// Reference carries the originating event id (quiz attempt, feature key)
// where replays must not double-commit; BalanceAfter snapshots the running
// sum at commit time.
type Transaction struct {
	ID           string            `db:"id" json:"id"`
	AccountID    string            `db:"account_id" json:"account_id"`
	Kind         TransactionKind   `db:"kind" json:"kind"`
	Amount       int64             `db:"amount" json:"amount"`
	Source       TransactionSource `db:"source" json:"source"`
	Reference    string            `db:"reference" json:"reference"`
	Note         string            `db:"note" json:"note"`
	BalanceAfter int64             `db:"balance_after" json:"balance_after"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
}

type Feature struct {
	Key         string    `db:"key" json:"key"`
	Cost        int64     `db:"cost" json:"cost"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type Ownership struct {
	AccountID     string    `db:"account_id" json:"account_id"`
	FeatureKey    string    `db:"feature_key" json:"feature_key"`
	TransactionID string    `db:"transaction_id" json:"transaction_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

type Comment struct {
	ID              string    `db:"id" json:"id"`
	ArticleID       string    `db:"article_id" json:"article_id"`
	AuthorAccountID string    `db:"author_account_id" json:"author_account_id"`
	ParentID        *string   `db:"parent_id" json:"parent_id,omitempty"`
	Body            string    `db:"body" json:"body"`
	BronzeCount     int64     `db:"bronze_count" json:"bronze_count"`
	SilverCount     int64     `db:"silver_count" json:"silver_count"`
	GoldCount       int64     `db:"gold_count" json:"gold_count"`
	ReportCount     int64     `db:"report_count" json:"report_count"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

type InteractionPolarity string

const (
	PolarityPositive InteractionPolarity = "positive"
	PolarityNegative InteractionPolarity = "negative"
)

// Interaction is the single active state per (reactor, comment): the
// current positive tier, or the negative report tier. There is no path
// between the two sets on one row.
type Interaction struct {
	ID        string              `db:"id" json:"id"`
	AccountID string              `db:"account_id" json:"account_id"`
	CommentID string              `db:"comment_id" json:"comment_id"`
	Polarity  InteractionPolarity `db:"polarity" json:"polarity"`
	Tier      string              `db:"tier" json:"tier"`
	CreatedAt time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt time.Time           `db:"updated_at" json:"updated_at"`
}

type QuizPass struct {
	AccountID    string    `db:"account_id" json:"account_id"`
	ArticleID    string    `db:"article_id" json:"article_id"`
	ScorePercent int       `db:"score_percent" json:"score_percent"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
