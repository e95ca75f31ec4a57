package game

import "time"

type Asset struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
}

type AssetView struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	PriceMicros int64  `json:"price_micros"`
}

type PositionView struct {
	AssetID       int64  `json:"asset_id"`
	Description   string `json:"description"`
	BalanceMicros int64  `json:"balance_micros"`
	PriceMicros   int64  `json:"price_micros"`
	ValueMicros   int64  `json:"value_micros"`
}

type PortfolioView struct {
	Handle           string         `json:"handle"`
	Positions        []PositionView `json:"positions"`
	TotalValueMicros int64          `json:"total_value_micros"`
}

type SwapResult struct {
	FromAsset     int64 `json:"from_asset"`
	ToAsset       int64 `json:"to_asset"`
	AmountMicros  int64 `json:"amount_micros"`
	GrossMicros   int64 `json:"gross_micros"`
	NetMicros     int64 `json:"net_micros"`
	FeeMicros     int64 `json:"fee_micros"`
	FromRemaining int64 `json:"from_remaining_micros"`
	ToBalance     int64 `json:"to_balance_micros"`
}

type CrownView struct {
	Holder      string    `json:"holder,omitempty"`
	ValueMicros int64     `json:"value_micros"`
	TakenAt     time.Time `json:"taken_at,omitzero"`
}

type StealResult struct {
	Taken bool `json:"taken"`
	// Value is the caller's portfolio value at the moment of the attempt.
	Value int64     `json:"value_micros"`
	Crown CrownView `json:"crown"`
}

type PrizeView struct {
	Token           string `json:"token"`
	DepositedMicros int64  `json:"deposited_micros"`
	RedeemedMicros  int64  `json:"redeemed_micros"`
	RemainingMicros int64  `json:"remaining_micros"`
}

type LeaderboardRow struct {
	Rank        int64  `json:"rank"`
	Handle      string `json:"handle"`
	ValueMicros int64  `json:"value_micros"`
	HasCrown    bool   `json:"has_crown"`
}

type GameView struct {
	Phase      string    `json:"phase"`
	Start      time.Time `json:"start"`
	TradingEnd time.Time `json:"trading_end"`
	DisputeEnd time.Time `json:"dispute_end"`
	AssetCount int       `json:"asset_count"`
	Players    int       `json:"players"`
	FeeBps     int64     `json:"fee_bps"`
	Cooldown   string    `json:"swap_cooldown"`
	Crown      CrownView `json:"crown"`
}

// Event is the journal record emitted after a successful mutation. Zero
// fields are omitted; each kind fills the fields that apply to it.
type Event struct {
	Kind         string    `json:"kind"`
	Player       string    `json:"player,omitempty"`
	Token        string    `json:"token,omitempty"`
	FromAsset    int64     `json:"from_asset,omitempty"`
	ToAsset      int64     `json:"to_asset,omitempty"`
	AmountMicros int64     `json:"amount_micros,omitempty"`
	NetMicros    int64     `json:"net_micros,omitempty"`
	FeeMicros    int64     `json:"fee_micros,omitempty"`
	ValueMicros  int64     `json:"value_micros,omitempty"`
	At           time.Time `json:"at"`
}

const (
	EventSubscribe     = "subscribe"
	EventSwap          = "swap"
	EventCrownSteal    = "crown_steal"
	EventPrizeTopUp    = "prize_topup"
	EventPrizeRedeem   = "prize_redeem"
	EventAssetRegister = "asset_register"
)
