package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"kingo/internal/game"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

// promptSecret reads without echo when stdin is a terminal, so pasted
// tokens never land in scrollback.
func promptSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptRequired(label)
	}
	for {
		fmt.Printf("%s: ", label)
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		text := strings.TrimSpace(string(raw))
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptFloat(label string, min float64) (float64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			printWarn("Enter a valid number.")
			continue
		}
		if v <= min {
			printWarn(fmt.Sprintf("Value must be > %.4f", min))
			continue
		}
		return v, nil
	}
}

func promptInt64(label string, min int64) (int64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func renderGame(g game.GameView) {
	accent.Println("\n== GAME ==")
	fmt.Printf("Phase:        %s\n", strings.ToUpper(g.Phase))
	fmt.Printf("Started:      %s\n", g.Start.Local().Format("2006-01-02 15:04"))
	fmt.Printf("Trading ends: %s\n", g.TradingEnd.Local().Format("2006-01-02 15:04"))
	fmt.Printf("Dispute ends: %s\n", g.DisputeEnd.Local().Format("2006-01-02 15:04"))
	fmt.Printf("Assets:       %d\n", g.AssetCount)
	fmt.Printf("Players:      %d\n", g.Players)
	fmt.Printf("Swap fee:     %.2f%%\n", float64(g.FeeBps)/100)
	fmt.Printf("Cooldown:     %s\n", g.Cooldown)
	if g.Crown.Holder != "" {
		fmt.Printf("Crown:        %s (%s v-USD)\n", g.Crown.Holder, formatMicros(g.Crown.ValueMicros))
	} else {
		fmt.Printf("Crown:        unclaimed\n")
	}
	fmt.Println()
}

func renderAssets(assets []game.AssetView) {
	accent.Println("\n== ASSETS ==")
	if len(assets) == 0 {
		printInfo("No assets registered.")
		return
	}
	fmt.Printf("%-4s %-28s %16s\n", "ID", "DESCRIPTION", "PRICE (v-USD)")
	for _, a := range assets {
		fmt.Printf("%-4d %-28s %16s\n", a.ID, truncate(a.Description, 28), formatMicros(a.PriceMicros))
	}
	fmt.Println()
}

func renderSwap(out game.SwapResult) {
	accent.Println("\n== SWAP ==")
	fmt.Printf("Route:     #%d -> #%d\n", out.FromAsset, out.ToAsset)
	fmt.Printf("Spent:     %s\n", formatMicros(out.AmountMicros))
	fmt.Printf("Gross:     %s\n", formatMicros(out.GrossMicros))
	fmt.Printf("Fee:       %s\n", formatMicros(out.FeeMicros))
	fmt.Printf("Received:  %s\n", formatMicros(out.NetMicros))
	fmt.Printf("Remaining #%d: %s\n", out.FromAsset, formatMicros(out.FromRemaining))
	fmt.Printf("Balance   #%d: %s\n", out.ToAsset, formatMicros(out.ToBalance))
	fmt.Println()
}

func renderPortfolio(p game.PortfolioView) {
	accent.Printf("\n== PORTFOLIO (%s) ==\n", p.Handle)
	if len(p.Positions) == 0 {
		printInfo("No positions.")
		return
	}
	fmt.Printf("%-4s %-28s %16s %16s %16s\n", "ID", "ASSET", "BALANCE", "PRICE", "VALUE")
	for _, pos := range p.Positions {
		fmt.Printf("%-4d %-28s %16s %16s %16s\n",
			pos.AssetID,
			truncate(pos.Description, 28),
			formatMicros(pos.BalanceMicros),
			formatMicros(pos.PriceMicros),
			formatMicros(pos.ValueMicros),
		)
	}
	fmt.Printf("%-50s %33s\n", "TOTAL", formatMicros(p.TotalValueMicros))
	fmt.Println()
}

func renderLeaderboard(rows []game.LeaderboardRow) {
	accent.Println("\n== LEADERBOARD ==")
	if len(rows) == 0 {
		printInfo("No subscribers yet.")
		return
	}
	fmt.Printf("%-6s %-26s %16s %-6s\n", "RANK", "PLAYER", "VALUE (v-USD)", "CROWN")
	for _, row := range rows {
		crown := ""
		if row.HasCrown {
			crown = "*"
		}
		fmt.Printf("%-6d %-26s %16s %-6s\n", row.Rank, truncate(row.Handle, 26), formatMicros(row.ValueMicros), crown)
	}
	fmt.Println()
}

func renderCrown(c game.CrownView) {
	accent.Println("\n== CROWN ==")
	if c.Holder == "" {
		printInfo("The crown is unclaimed.")
		return
	}
	fmt.Printf("Holder:   %s\n", c.Holder)
	fmt.Printf("Value:    %s v-USD\n", formatMicros(c.ValueMicros))
	if !c.TakenAt.IsZero() {
		fmt.Printf("Taken at: %s\n", c.TakenAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Println()
}

func renderSteal(out game.StealResult) {
	if out.Taken {
		printSuccess(fmt.Sprintf("Crown taken at %s v-USD.", formatMicros(out.Value)))
		return
	}
	printWarn(fmt.Sprintf("Crown kept by %s (%s v-USD); your value was %s.",
		out.Crown.Holder, formatMicros(out.Crown.ValueMicros), formatMicros(out.Value)))
}

func renderPrizes(pools []game.PrizeView) {
	accent.Println("\n== PRIZE POOLS ==")
	if len(pools) == 0 {
		printInfo("No prize pools funded yet.")
		return
	}
	fmt.Printf("%-12s %16s %16s %16s\n", "TOKEN", "DEPOSITED", "REDEEMED", "REMAINING")
	for _, p := range pools {
		fmt.Printf("%-12s %16s %16s %16s\n",
			p.Token,
			formatMicros(p.DepositedMicros),
			formatMicros(p.RedeemedMicros),
			formatMicros(p.RemainingMicros),
		)
	}
	fmt.Println()
}

func renderEvents(events []map[string]any) {
	accent.Println("\n== EVENTS ==")
	if len(events) == 0 {
		printInfo("No events yet.")
		return
	}
	fmt.Printf("%-20s %-16s %-18s %s\n", "TIME", "KIND", "PLAYER", "DETAIL")
	for _, ev := range events {
		at := stringField(ev, "at")
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			at = t.Local().Format("2006-01-02 15:04")
		}
		fmt.Printf("%-20s %-16s %-18s %s\n",
			at,
			stringField(ev, "kind"),
			truncate(stringField(ev, "player"), 18),
			eventDetail(ev),
		)
	}
	fmt.Println()
}

func eventDetail(ev map[string]any) string {
	switch stringField(ev, "kind") {
	case game.EventSwap:
		return fmt.Sprintf("#%d -> #%d %s (fee %s)",
			intField(ev, "from_asset"), intField(ev, "to_asset"),
			formatMicros(intField(ev, "amount_micros")), formatMicros(intField(ev, "fee_micros")))
	case game.EventCrownSteal:
		return fmt.Sprintf("value %s", formatMicros(intField(ev, "value_micros")))
	case game.EventPrizeTopUp, game.EventPrizeRedeem:
		return fmt.Sprintf("%s %s", stringField(ev, "token"), formatMicros(intField(ev, "amount_micros")))
	case game.EventAssetRegister:
		return fmt.Sprintf("asset #%d", intField(ev, "from_asset"))
	case game.EventSubscribe:
		return fmt.Sprintf("allotted %s", formatMicros(intField(ev, "amount_micros")))
	default:
		return ""
	}
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func intField(m map[string]any, key string) int64 {
	if v, ok := m[key].(float64); ok {
		return int64(v)
	}
	return 0
}

func formatMicros(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / game.MicrosPerUnit
	frac := (v % game.MicrosPerUnit) / 10_000
	return fmt.Sprintf("%s%s.%02d", sign, comma(whole), frac)
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

// truncate shortens s to n runes, never cutting inside a character.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
