package models

// Prize is one row of a tournament prize table.
type Prize struct {
	Position    int   `json:"position"`
	PatronNFTs  int   `json:"patronNFTs"`
	ClashTokens int64 `json:"clashTokens"`
}

// DefaultPrizes is the standard weekly payout for positions 1..50.
func DefaultPrizes() []Prize {
	prizes := []Prize{
		{Position: 1, PatronNFTs: 3, ClashTokens: 40000},
		{Position: 2, PatronNFTs: 2, ClashTokens: 25000},
		{Position: 3, PatronNFTs: 1, ClashTokens: 15000},
	}
	for i := 4; i <= 50; i++ {
		var clash int64
		switch {
		case i <= 5:
			clash = 7500
		case i <= 10:
			clash = 3000
		default:
			clash = 1500
		}
		prizes = append(prizes, Prize{Position: i, ClashTokens: clash})
	}
	return prizes
}

// PrizePool totals a prize table.
func PrizePool(prizes []Prize) (clash int64, nfts int) {
	for _, p := range prizes {
		clash += p.ClashTokens
		nfts += p.PatronNFTs
	}
	return clash, nfts
}
