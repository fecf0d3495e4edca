package fusion

// Rank position policy: pure functions of a zero-based rank.
//
// Top-ranked retrieval hits are trusted more than the oracle; the oracle's
// influence grows for deeper ranks where retrieval confidence is lower.

// BlendWeights returns the (retrieval, oracle) weight pair for a result at
// the given zero-based rank.
//
// Ranks 0-3 use 0.75/0.25, ranks 4-10 use 0.60/0.40, ranks 11+ use
// 0.40/0.60. The top band deliberately covers four positions (rank <= 3).
func BlendWeights(rank int) (retrievalWeight, oracleWeight float64) {
	switch {
	case rank <= 3:
		return 0.75, 0.25
	case rank <= 10:
		return 0.60, 0.40
	default:
		return 0.40, 0.60
	}
}

// Blend combines a retrieval score and an oracle score using the positional
// weight pair for rank.
func Blend(retrievalScore, oracleScore float64, rank int) float64 {
	rw, ow := BlendWeights(rank)
	return rw*retrievalScore + ow*oracleScore
}

// TopRankBonus rewards near-consensus top hits during fusion: scores at the
// first three ranks are multiplied by 1.15, 1.10 and 1.05 respectively;
// rank 3 and beyond receive no bonus.
func TopRankBonus(score float64, rank int) float64 {
	switch rank {
	case 0:
		return score * 1.15
	case 1:
		return score * 1.10
	case 2:
		return score * 1.05
	default:
		return score
	}
}
