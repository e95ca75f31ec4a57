package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"sync"
	"time"
)

// PriceSource is the read-only oracle capability the engine depends on.
// *oracle.Hub satisfies it; tests substitute deterministic fakes.
type PriceSource interface {
	Description(ctx context.Context, assetID int64) (string, error)
	CurrentPrice(ctx context.Context, assetID int64) (int64, error)
}

// Transferor moves real reward tokens in and out of vault custody with
// all-or-nothing semantics.
type Transferor interface {
	TransferIn(ctx context.Context, token, from string, amountMicros int64) error
	TransferOut(ctx context.Context, token, to string, amountMicros int64) error
}

// Recorder receives the event stream. Failures are logged and swallowed;
// the ledger never depends on the journal.
type Recorder interface {
	RecordEvent(ctx context.Context, ev Event) error
}

type pairKey struct {
	from, to int64
}

type playerState struct {
	handle       string
	balances     map[int64]int64
	lastSwap     map[pairKey]time.Time
	subscribedAt time.Time
}

func (p *playerState) debit(assetID, amountMicros int64) error {
	if p.balances[assetID] < amountMicros {
		return fmt.Errorf("%w: asset %d has %d micros, need %d",
			ErrInsufficientBalance, assetID, p.balances[assetID], amountMicros)
	}
	p.balances[assetID] -= amountMicros
	return nil
}

func (p *playerState) credit(assetID, amountMicros int64) {
	p.balances[assetID] += amountMicros
}

type crownState struct {
	holder      string
	valueMicros int64
	takenAt     time.Time
}

type prizeEntry struct {
	depositedMicros int64
	redeemedMicros  int64
}

// Game is one independently owned game instance. Every mutating operation
// is serialized under mu and either fully applies or fully rejects.
type Game struct {
	cfg       Config
	sched     schedule
	clock     Clock
	prices    PriceSource
	vault     Transferor
	journal   Recorder
	log       *slog.Logger
	organizer string

	mu      sync.Mutex
	assets  []Asset
	players map[string]*playerState
	crown   crownState
	prizes  map[string]*prizeEntry
	sealed  bool
}

type Deps struct {
	Clock     Clock
	Prices    PriceSource
	Vault     Transferor
	Journal   Recorder
	Logger    *slog.Logger
	Organizer string
}

func New(cfg Config, deps Deps) (*Game, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if deps.Prices == nil {
		return nil, fmt.Errorf("price source is required")
	}
	if deps.Vault == nil {
		return nil, fmt.Errorf("vault transferor is required")
	}
	if deps.Organizer == "" {
		return nil, fmt.Errorf("organizer handle is required")
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	start := deps.Clock.Now()
	return &Game{
		cfg:       cfg,
		sched:     newSchedule(start, cfg),
		clock:     deps.Clock,
		prices:    deps.Prices,
		vault:     deps.Vault,
		journal:   deps.Journal,
		log:       deps.Logger,
		organizer: deps.Organizer,
		assets:    []Asset{{ID: VUSD, Description: "v-USD"}},
		players:   map[string]*playerState{},
		prizes:    map[string]*prizeEntry{},
	}, nil
}

// Phase reports the active phase at the current clock read.
func (g *Game) Phase() Phase {
	return g.sched.phaseAt(g.clock.Now())
}

// Organizer is the handle allowed to register assets and fund prizes.
func (g *Game) Organizer() string {
	return g.organizer
}

func (g *Game) View() GameView {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GameView{
		Phase:      g.sched.phaseAt(g.clock.Now()).String(),
		Start:      g.sched.start,
		TradingEnd: g.sched.tradingEnd,
		DisputeEnd: g.sched.disputeEnd,
		AssetCount: len(g.assets),
		Players:    len(g.players),
		FeeBps:     g.cfg.FeeBps,
		Cooldown:   g.cfg.SwapCooldown.String(),
		Crown:      g.crownViewLocked(),
	}
}

// RegisterAsset appends the next asset to the registry, bound to the
// oracle entry of the same id. The registry is append-only and seals
// permanently once the first subscription lands.
func (g *Game) RegisterAsset(ctx context.Context, caller string, assetID int64) (Asset, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if caller != g.organizer {
		return Asset{}, ErrNotOrganizer
	}
	if g.sealed {
		return Asset{}, ErrRegistrySealed
	}
	if assetID != int64(len(g.assets)) {
		return Asset{}, fmt.Errorf("asset ids are sequential: next is %d", len(g.assets))
	}
	desc, err := g.prices.Description(ctx, assetID)
	if err != nil {
		return Asset{}, err
	}
	asset := Asset{ID: assetID, Description: desc}
	g.assets = append(g.assets, asset)
	g.record(ctx, Event{Kind: EventAssetRegister, Player: caller, FromAsset: assetID, At: g.clock.Now()})
	return asset, nil
}

// Subscribe enrolls a player and credits the starting v-USD allotment.
// Accepted for the whole trading window, rejected after it closes.
func (g *Game) Subscribe(ctx context.Context, handle string) (PortfolioView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if !now.Before(g.sched.tradingEnd) {
		return PortfolioView{}, fmt.Errorf("%w: subscriptions closed", ErrPhaseViolation)
	}
	if _, ok := g.players[handle]; ok {
		return PortfolioView{}, ErrAlreadySubscribed
	}

	p := &playerState{
		handle:       handle,
		balances:     map[int64]int64{VUSD: g.cfg.AllotmentMicros},
		lastSwap:     map[pairKey]time.Time{},
		subscribedAt: now,
	}
	g.players[handle] = p
	g.sealed = true

	g.record(ctx, Event{Kind: EventSubscribe, Player: handle, AmountMicros: g.cfg.AllotmentMicros, At: now})
	return g.portfolioLocked(ctx, p)
}

// Swap converts amountMicros of fromAsset into toAsset at current oracle
// prices, burning the fee off the out-amount. All-or-nothing: no balance
// moves unless every precondition and both price reads succeed.
func (g *Game) Swap(ctx context.Context, handle string, fromAsset, toAsset, amountMicros int64) (SwapResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if g.sched.phaseAt(now) != PhaseTrading {
		return SwapResult{}, fmt.Errorf("%w: trading closed", ErrPhaseViolation)
	}
	if amountMicros <= 0 {
		return SwapResult{}, ErrInvalidAmount
	}
	if fromAsset == toAsset {
		return SwapResult{}, fmt.Errorf("%w: cannot swap an asset for itself", ErrInvalidAmount)
	}
	p, ok := g.players[handle]
	if !ok {
		return SwapResult{}, ErrUnknownPlayer
	}
	if !g.assetRegistered(fromAsset) || !g.assetRegistered(toAsset) {
		return SwapResult{}, ErrUnknownAsset
	}

	key := pairKey{from: fromAsset, to: toAsset}
	if last, ok := p.lastSwap[key]; ok && now.Sub(last) < g.cfg.SwapCooldown {
		return SwapResult{}, ErrCooldownActive
	}
	if p.balances[fromAsset] < amountMicros {
		return SwapResult{}, fmt.Errorf("%w: asset %d has %d micros, need %d",
			ErrInsufficientBalance, fromAsset, p.balances[fromAsset], amountMicros)
	}

	priceFrom, err := g.priceLocked(ctx, fromAsset)
	if err != nil {
		return SwapResult{}, err
	}
	priceTo, err := g.priceLocked(ctx, toAsset)
	if err != nil {
		return SwapResult{}, err
	}
	gross, err := convertMicros(amountMicros, priceFrom, priceTo)
	if err != nil {
		return SwapResult{}, err
	}
	net, fee := applyFee(gross, g.cfg.FeeBps)

	if err := p.debit(fromAsset, amountMicros); err != nil {
		return SwapResult{}, err
	}
	p.credit(toAsset, net)
	p.lastSwap[key] = now

	res := SwapResult{
		FromAsset:     fromAsset,
		ToAsset:       toAsset,
		AmountMicros:  amountMicros,
		GrossMicros:   gross,
		NetMicros:     net,
		FeeMicros:     fee,
		FromRemaining: p.balances[fromAsset],
		ToBalance:     p.balances[toAsset],
	}
	g.record(ctx, Event{
		Kind:         EventSwap,
		Player:       handle,
		FromAsset:    fromAsset,
		ToAsset:      toAsset,
		AmountMicros: amountMicros,
		NetMicros:    net,
		FeeMicros:    fee,
		At:           now,
	})
	return res, nil
}

// TotalValue is the player's portfolio priced in v-USD micros at current
// oracle prices. A single evaluation snapshot: two calls may differ.
func (g *Game) TotalValue(ctx context.Context, handle string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.players[handle]
	if !ok {
		return 0, ErrUnknownPlayer
	}
	return g.totalValueLocked(ctx, p)
}

func (g *Game) Portfolio(ctx context.Context, handle string) (PortfolioView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.players[handle]
	if !ok {
		return PortfolioView{}, ErrUnknownPlayer
	}
	return g.portfolioLocked(ctx, p)
}

// Leaderboard values every subscribed player at current prices, highest
// first. Equal values keep handle order so repeated reads are stable.
func (g *Game) Leaderboard(ctx context.Context) ([]LeaderboardRow, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	handles := make([]string, 0, len(g.players))
	for h := range g.players {
		handles = append(handles, h)
	}
	sort.Strings(handles)

	rows := make([]LeaderboardRow, 0, len(handles))
	for _, h := range handles {
		v, err := g.totalValueLocked(ctx, g.players[h])
		if err != nil {
			return nil, err
		}
		rows = append(rows, LeaderboardRow{
			Handle:      h,
			ValueMicros: v,
			HasCrown:    g.crown.holder == h,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ValueMicros > rows[j].ValueMicros
	})
	for i := range rows {
		rows[i].Rank = int64(i + 1)
	}
	return rows, nil
}

func (g *Game) Crown() CrownView {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.crownViewLocked()
}

// StealCrown contends for the crown with the caller's current portfolio
// value. A contention that falls short is a no-op success: the result
// reports whether the crown moved. Strictly greater value is required to
// unseat; ties keep the incumbent.
func (g *Game) StealCrown(ctx context.Context, handle string) (StealResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if g.sched.phaseAt(now) != PhaseDisputing {
		return StealResult{}, fmt.Errorf("%w: only during dispute time", ErrPhaseViolation)
	}
	p, ok := g.players[handle]
	if !ok {
		return StealResult{}, ErrUnknownPlayer
	}
	v, err := g.totalValueLocked(ctx, p)
	if err != nil {
		return StealResult{}, err
	}

	res := StealResult{Value: v}
	if g.crown.holder == "" || v > g.crown.valueMicros {
		prev := g.crown.holder
		g.crown = crownState{holder: handle, valueMicros: v, takenAt: now}
		res.Taken = true
		g.log.Info("crown handover", "from", prev, "to", handle, "value_micros", v)
		g.record(ctx, Event{Kind: EventCrownSteal, Player: handle, ValueMicros: v, At: now})
	}
	res.Crown = g.crownViewLocked()
	return res, nil
}

// TopUpPrize moves amountMicros of a reward token from the organizer into
// vault custody. Allowed any time before the claim phase opens.
func (g *Game) TopUpPrize(ctx context.Context, caller, token string, amountMicros int64) (PrizeView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if caller != g.organizer {
		return PrizeView{}, ErrNotOrganizer
	}
	now := g.clock.Now()
	if g.sched.phaseAt(now) == PhaseClaimable {
		return PrizeView{}, fmt.Errorf("%w: prize pool is locked for redemption", ErrPhaseViolation)
	}
	if amountMicros <= 0 {
		return PrizeView{}, ErrInvalidAmount
	}
	if token == "" {
		return PrizeView{}, fmt.Errorf("token is required")
	}

	if err := g.vault.TransferIn(ctx, token, caller, amountMicros); err != nil {
		return PrizeView{}, fmt.Errorf("prize deposit: %w", err)
	}
	entry := g.prizes[token]
	if entry == nil {
		entry = &prizeEntry{}
		g.prizes[token] = entry
	}
	entry.depositedMicros += amountMicros

	g.record(ctx, Event{Kind: EventPrizeTopUp, Player: caller, Token: token, AmountMicros: amountMicros, At: now})
	return prizeView(token, entry), nil
}

// RedeemPrize releases reward tokens to the crown holder once the dispute
// window has closed. Repeatable up to the deposited cap; each successful
// call moves exactly the requested amount, once.
func (g *Game) RedeemPrize(ctx context.Context, caller, token string, amountMicros int64) (PrizeView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if g.sched.phaseAt(now) != PhaseClaimable {
		return PrizeView{}, fmt.Errorf("%w: can't redeem yet", ErrPhaseViolation)
	}
	if g.crown.holder == "" || caller != g.crown.holder {
		return PrizeView{}, ErrNotCrownHolder
	}
	if amountMicros <= 0 {
		return PrizeView{}, ErrInvalidAmount
	}
	entry := g.prizes[token]
	if entry == nil || entry.depositedMicros-entry.redeemedMicros < amountMicros {
		return PrizeView{}, ErrInsufficientPrizePool
	}

	if err := g.vault.TransferOut(ctx, token, caller, amountMicros); err != nil {
		return PrizeView{}, fmt.Errorf("prize release: %w", err)
	}
	entry.redeemedMicros += amountMicros

	g.record(ctx, Event{Kind: EventPrizeRedeem, Player: caller, Token: token, AmountMicros: amountMicros, At: now})
	return prizeView(token, entry), nil
}

func (g *Game) Prizes() []PrizeView {
	g.mu.Lock()
	defer g.mu.Unlock()

	tokens := make([]string, 0, len(g.prizes))
	for t := range g.prizes {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)

	out := make([]PrizeView, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, prizeView(t, g.prizes[t]))
	}
	return out
}

// Assets lists the registry with current prices.
func (g *Game) Assets(ctx context.Context) ([]AssetView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]AssetView, 0, len(g.assets))
	for _, a := range g.assets {
		price, err := g.priceLocked(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, AssetView{ID: a.ID, Description: a.Description, PriceMicros: price})
	}
	return out, nil
}

func (g *Game) assetRegistered(assetID int64) bool {
	return assetID >= 0 && assetID < int64(len(g.assets))
}

func (g *Game) priceLocked(ctx context.Context, assetID int64) (int64, error) {
	if !g.assetRegistered(assetID) {
		return 0, ErrUnknownAsset
	}
	if assetID == VUSD {
		return MicrosPerUnit, nil
	}
	return g.prices.CurrentPrice(ctx, assetID)
}

func (g *Game) totalValueLocked(ctx context.Context, p *playerState) (int64, error) {
	// Per-asset values fit int64 but their sum may not, so accumulate wide.
	total := new(big.Int)
	for _, a := range g.assets {
		bal := p.balances[a.ID]
		if bal == 0 {
			continue
		}
		price, err := g.priceLocked(ctx, a.ID)
		if err != nil {
			return 0, err
		}
		v, err := valueMicros(bal, price)
		if err != nil {
			return 0, err
		}
		total.Add(total, big.NewInt(v))
	}
	if !total.IsInt64() {
		return 0, errors.New("valuation overflow")
	}
	return total.Int64(), nil
}

func (g *Game) portfolioLocked(ctx context.Context, p *playerState) (PortfolioView, error) {
	out := PortfolioView{Handle: p.handle}
	total := new(big.Int)
	for _, a := range g.assets {
		bal := p.balances[a.ID]
		if bal == 0 {
			continue
		}
		price, err := g.priceLocked(ctx, a.ID)
		if err != nil {
			return PortfolioView{}, err
		}
		v, err := valueMicros(bal, price)
		if err != nil {
			return PortfolioView{}, err
		}
		out.Positions = append(out.Positions, PositionView{
			AssetID:       a.ID,
			Description:   a.Description,
			BalanceMicros: bal,
			PriceMicros:   price,
			ValueMicros:   v,
		})
		total.Add(total, big.NewInt(v))
	}
	if !total.IsInt64() {
		return PortfolioView{}, errors.New("valuation overflow")
	}
	out.TotalValueMicros = total.Int64()
	return out, nil
}

func (g *Game) crownViewLocked() CrownView {
	return CrownView{
		Holder:      g.crown.holder,
		ValueMicros: g.crown.valueMicros,
		TakenAt:     g.crown.takenAt,
	}
}

func (g *Game) record(ctx context.Context, ev Event) {
	if g.journal == nil {
		return
	}
	if err := g.journal.RecordEvent(ctx, ev); err != nil {
		g.log.Error("journal record failed", "kind", ev.Kind, "err", err)
	}
}

func prizeView(token string, e *prizeEntry) PrizeView {
	return PrizeView{
		Token:           token,
		DepositedMicros: e.depositedMicros,
		RedeemedMicros:  e.redeemedMicros,
		RemainingMicros: e.depositedMicros - e.redeemedMicros,
	}
}
