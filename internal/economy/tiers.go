package economy

import (
	"github.com/shopspring/decimal"

	"xpledger/internal/config"
)

const (
	TierBronze = "bronze"
	TierSilver = "silver"
	TierGold   = "gold"

	ReportTroll         = "troll"
	ReportBad           = "bad"
	ReportInappropriate = "inappropriate"
)

// positiveTiers orders the escalation ladder; index+1 is the tier rank,
// rank 0 meaning no reaction.
var positiveTiers = []string{TierBronze, TierSilver, TierGold}

func tierRank(tier string) int {
	for i, t := range positiveTiers {
		if t == tier {
			return i + 1
		}
	}
	return 0
}

func tierName(rank int) string {
	if rank < 1 || rank > len(positiveTiers) {
		return ""
	}
	return positiveTiers[rank-1]
}

// tierCost is the absolute cost of holding a tier; rank 0 costs nothing.
// Escalation and de-escalation always charge or refund the difference
// between two absolute costs, never the full amount again.
func tierCost(cfg config.Economy, rank int) int64 {
	switch rank {
	case 1:
		return cfg.BronzeCost
	case 2:
		return cfg.SilverCost
	case 3:
		return cfg.GoldCost
	default:
		return 0
	}
}

func authorShare(cfg config.Economy, marginal int64) int64 {
	return decimal.NewFromInt(marginal).Mul(cfg.AuthorShare).Floor().IntPart()
}

// authorShareTotal is the sum an author has received from one reactor's
// walk up to rank, share-of-marginal floored at every step. Needed when a
// moderator removes an interaction outright and the whole reward has to be
// reversed.
func authorShareTotal(cfg config.Economy, rank int) int64 {
	var total int64
	for step := 1; step <= rank; step++ {
		marginal := tierCost(cfg, step) - tierCost(cfg, step-1)
		total += authorShare(cfg, marginal)
	}
	return total
}

func reportCost(cfg config.Economy, tier string) (int64, bool) {
	switch tier {
	case ReportTroll:
		return cfg.TrollReportCost, true
	case ReportBad:
		return cfg.BadReportCost, true
	case ReportInappropriate:
		return cfg.InappropriateReportCost, true
	default:
		return 0, false
	}
}

func penaltyWeight(cfg config.Economy, tier string) int64 {
	switch tier {
	case ReportTroll:
		return cfg.TrollPenaltyWeight
	case ReportBad:
		return cfg.BadPenaltyWeight
	case ReportInappropriate:
		return cfg.InappropriatePenaltyWeight
	default:
		return 0
	}
}
