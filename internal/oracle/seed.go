package oracle

// SeedEntry describes one default asset feed: id 0 is reserved for v-USD
// and never appears here.
type SeedEntry struct {
	AssetID     int64
	Symbol      string
	Description string
	PriceMicros int64
}

// DefaultSeed mirrors a typical launch registry: majors first, priced in
// v-USD micros per whole unit.
func DefaultSeed() []SeedEntry {
	return []SeedEntry{
		{1, "BTC", "BTC / USD", 64_250 * 1_000_000},
		{2, "ETH", "ETH / USD", 3_150 * 1_000_000},
		{3, "LINK", "LINK / USD", 14_800_000},
		{4, "MATIC", "MATIC / USD", 720_000},
		{5, "AAVE", "AAVE / USD", 92 * 1_000_000},
		{6, "CRV", "CRV / USD", 540_000},
		{7, "BAL", "BAL / USD", 3_600_000},
		{8, "COMP", "COMP / USD", 58 * 1_000_000},
		{9, "DOGE", "DOGE / USD", 120_000},
		{10, "DOT", "DOT / USD", 6_800_000},
	}
}

// SeedHub registers the given entries as feeds. With feedBaseURL empty the
// entries become static feeds at their seed prices; otherwise each asset
// gets an HTTP feed against the remote price service.
func SeedHub(hub *Hub, entries []SeedEntry, feedBaseURL string) error {
	for _, e := range entries {
		var feed Feed
		if feedBaseURL == "" {
			feed = NewStaticFeed(e.Description, e.PriceMicros)
		} else {
			feed = NewHTTPFeed(feedBaseURL, e.Symbol)
		}
		if err := hub.Register(e.AssetID, feed); err != nil {
			return err
		}
	}
	return nil
}
