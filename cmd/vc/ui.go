package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"vencha/internal/catalog"
	"vencha/internal/portfolio"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

type startupsPayload struct {
	Startups []catalog.Startup `json:"startups"`
}

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

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
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

// promptOptionalPercent reads a percentage in (0, 100]; empty input
// returns 0, which downstream treats as "no ask".
func promptOptionalPercent(label string) (float64, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return 0, err
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "%")
		if text == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil || v <= 0 || v > 100 {
			printWarn("Enter a percentage between 0 and 100, or leave blank.")
			continue
		}
		return v, nil
	}
}

// promptFraction accepts a value in (0, 1], defaulting on empty input.
func promptFraction(label string, defaultValue float64) (float64, error) {
	for {
		fmt.Printf("%s [%.2f]: ", label, defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return 0, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return defaultValue, nil
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil || v <= 0 || v > 1 {
			printWarn("Enter a fraction greater than 0 and at most 1.")
			continue
		}
		return v, nil
	}
}

func renderPortfolio(raw map[string]any) error {
	s, err := decodeInto[portfolio.Summary](raw)
	if err != nil {
		return err
	}

	accent.Println("\n== PORTFOLIO ==")
	fmt.Printf("Balance:       $%s\n", formatMoney(s.Profile.Balance))
	fmt.Printf("Net Worth:     $%s\n", formatMoney(s.NetWorth))
	fmt.Printf("Invested:      $%s\n", formatMoney(s.TotalInvested))
	fmt.Printf("Holdings:      $%s (%s)\n", formatMoney(s.TotalValue), colorizePercent(s.OverallChange))
	fmt.Printf("Level:         %d (%d XP, next at %d)\n", s.Profile.Level, s.Profile.XP, s.Profile.XPToNext)

	fmt.Println()
	accent.Println("Holdings")
	if len(s.Holdings) == 0 {
		printInfo("No holdings yet. Try `vc startups`.")
		fmt.Println()
		return nil
	}
	fmt.Printf("%-36s %-10s %12s %9s %12s %9s\n", "ID", "STATUS", "INVESTED", "EQUITY", "VALUE", "CHANGE")
	for _, h := range s.Holdings {
		fmt.Printf("%-36s %-10s %12s %8.2f%% %12s %9s\n",
			h.ID,
			string(h.Status),
			formatMoney(h.InvestedAmount),
			h.EquityFraction*100,
			formatMoney(h.CurrentValue),
			colorizePercent(h.ChangePercent),
		)
	}
	fmt.Println()
	return nil
}

func renderStartupsList(raw map[string]any) error {
	payload, err := decodeInto[startupsPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== PITCH DECK ==")
	if len(payload.Startups) == 0 {
		printInfo("No startups found.")
		return nil
	}
	fmt.Printf("%-36s %-16s %-12s %14s %12s %8s %12s\n", "ID", "NAME", "INDUSTRY", "VALUATION", "ASK", "EQUITY", "MIN INVEST")
	for _, s := range payload.Startups {
		fmt.Printf("%-36s %-16s %-12s %14s %12s %7.1f%% %12s\n",
			s.ID,
			truncate(s.Name, 16),
			truncate(s.Industry, 12),
			formatMoney(s.Valuation),
			formatMoney(s.AskAmount),
			s.EquityOffered*100,
			formatMoney(s.MinInvestment),
		)
	}
	fmt.Println()
	return nil
}

func renderStartupDetail(raw map[string]any) error {
	s, err := decodeInto[catalog.Startup](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s ==\n", s.Name)
	fmt.Printf("ID:             %s\n", s.ID)
	fmt.Printf("Industry:       %s (%s, %s risk)\n", s.Industry, s.Stage, s.RiskLevel)
	fmt.Printf("Valuation:      $%s\n", formatMoney(s.Valuation))
	fmt.Printf("Ask:            $%s for %.1f%%\n", formatMoney(s.AskAmount), s.EquityOffered*100)
	fmt.Printf("Funding goal:   $%s\n", formatMoney(s.FundingGoal))
	fmt.Printf("Min investment: $%s\n", formatMoney(s.MinInvestment))
	fmt.Println()
	return nil
}

func renderInvestResult(raw map[string]any, title string) error {
	out, err := decodeInto[portfolio.InvestResult](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s ==\n", title)
	fmt.Printf("Invested: $%s for %.4f%% equity\n", formatMoney(out.Holding.InvestedAmount), out.Holding.EquityFraction*100)
	fmt.Printf("Holding:  %s\n", out.Holding.ID)
	fmt.Printf("Balance:  $%s\n", formatMoney(out.Balance))
	if out.XPGained > 0 {
		fmt.Printf("XP:       +%d (level %d)\n", out.XPGained, out.Level)
	}
	fmt.Println()
	return nil
}

// renderCounterOffer shows the founder's reply and returns the session id
// for the follow-up call.
func renderCounterOffer(raw map[string]any) (string, error) {
	out, err := decodeInto[portfolio.NegotiationView](raw)
	if err != nil {
		return "", err
	}
	accent.Printf("\n== COUNTER-OFFER: %s ==\n", out.StartupName)
	fmt.Printf("Your offer:   $%s for %.4f%%\n", formatMoney(out.Amount), out.RequestedEquity*100)
	fmt.Printf("They counter: %.4f%% for the same money\n", out.CounterEquity*100)
	fmt.Printf("Expires:      %s\n", out.ExpiresAt.Local().Format("15:04:05"))
	fmt.Println()
	return out.ID, nil
}

func renderExitResult(raw map[string]any) error {
	out, err := decodeInto[portfolio.ExitResult](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== EXIT ==")
	fmt.Println(out.Outcome.Message)
	fmt.Printf("Multiplier: %.2fx\n", out.Outcome.Multiplier)
	fmt.Printf("Payout:     $%s\n", formatMoney(out.Outcome.Payout))
	fmt.Printf("Balance:    $%s\n", formatMoney(out.Balance))
	if string(out.Holding.Status) == "sold" {
		printInfo("Holding fully exited.")
	} else {
		fmt.Printf("Remaining:  $%s invested, %.4f%% equity\n", formatMoney(out.Holding.InvestedAmount), out.Holding.EquityFraction*100)
	}
	fmt.Println()
	return nil
}

func decodeInto[T any](in any) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func colorizePercent(v float64) string {
	text := fmt.Sprintf("%+.2f%%", v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func formatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := int64(v)
	frac := int64((v - float64(whole)) * 100)
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

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
