package executor

import (
	"fmt"
	"strings"
	"time"

	"papertrade-api/pkg/llm"
)

const defaultPromptTemplate = `You are a paper-trading agent managing a simulated account.
{{if .Persona}}
Persona and strategy guidance:
{{.Persona}}
{{end}}
Current time: {{.CurrentTime}}
Trading pair: {{.Pair}}

Account:
{{.AccountOverview}}

Open positions:
{{.OpenPositions}}

Performance:
{{.PerformanceView}}

Market:
{{.MarketView}}
{{if .Suppression}}
Risk gate: {{.Suppression}}. New entries are suppressed this cycle; you may only hold or close.
{{end}}
Decide the next action. Respond with a single JSON object with fields:
action (buy|sell|hold|close), confidence (0..1), reasoning (string),
target_pair (optional), suggested_position_size_pct (optional, 0..100).`

// PromptInputs contains dynamic data injected into the oracle prompt template.
type PromptInputs struct {
	CurrentTime     string
	Pair            string
	Persona         string
	AccountOverview string
	OpenPositions   string
	PerformanceView string
	MarketView      string
	Suppression     string
}

// PromptRenderer renders the oracle system prompt.
type PromptRenderer struct {
	cfg *Config
	tpl *llm.PromptTemplate
}

// NewPromptRenderer constructs a renderer. With an empty templatePath the
// built-in prompt is used.
func NewPromptRenderer(cfg *Config, templatePath string) (*PromptRenderer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("executor prompt renderer requires config")
	}
	var (
		tpl *llm.PromptTemplate
		err error
	)
	if strings.TrimSpace(templatePath) == "" {
		tpl, err = llm.NewPromptTemplateFromString("decision", defaultPromptTemplate, nil)
	} else {
		tpl, err = llm.NewPromptTemplate(templatePath, nil)
	}
	if err != nil {
		return nil, err
	}
	return &PromptRenderer{cfg: cfg, tpl: tpl}, nil
}

// Render generates the final prompt string populated with inputs.
func (r *PromptRenderer) Render(inputs PromptInputs) (string, error) {
	if r == nil || r.tpl == nil {
		return "", fmt.Errorf("executor prompt renderer not initialised")
	}
	return r.tpl.Render(inputs)
}

// Digest returns the underlying template digest for observability.
func (r *PromptRenderer) Digest() string {
	if r == nil || r.tpl == nil {
		return ""
	}
	return r.tpl.Digest()
}

// buildPromptInputs renders the dynamic sections used by the prompt template.
func buildPromptInputs(cfg *Config, ctx *Context) PromptInputs {
	return PromptInputs{
		CurrentTime:     time.Now().UTC().Format(time.RFC3339),
		Pair:            ctx.Pair,
		Persona:         strings.TrimSpace(ctx.Persona),
		AccountOverview: formatLedger(ctx.Ledger),
		OpenPositions:   formatPositions(ctx.Ledger.OpenPositions),
		PerformanceView: formatPerformance(ctx.Ledger),
		MarketView:      formatMarket(cfg, ctx),
		Suppression:     strings.TrimSpace(ctx.Suppression),
	}
}

func formatLedger(v LedgerView) string {
	return fmt.Sprintf("balance=%.2f, initial=%.2f, total_pnl=%.2f%%, daily_pnl=%.2f%%, open_positions=%d",
		v.Balance, v.InitialBalance, v.TotalPnlPct, v.DailyPnlPct, len(v.OpenPositions),
	)
}

func formatPositions(positions []PositionView) string {
	if len(positions) == 0 {
		return "(none)"
	}
	items := make([]string, 0, len(positions))
	for _, p := range positions {
		items = append(items, fmt.Sprintf("%s %s notional=%.2f entry=%.4f upnl=%.2f%% opened=%s",
			p.Pair, p.Side, p.AmountUSD, p.EntryPrice, p.UnrealizedPnlPct, p.OpenedAt.UTC().Format(time.RFC3339),
		))
	}
	return strings.Join(items, "\n")
}

func formatPerformance(v LedgerView) string {
	return fmt.Sprintf("win_rate=%.1f%%, trades=%d", v.WinRate*100, v.TotalTrades)
}

func formatMarket(cfg *Config, ctx *Context) string {
	snap := ctx.Market
	if snap == nil {
		return "(unavailable)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "price=%.4f, change_24h=%.2f%%", snap.Price, snap.Change24hPct)
	series := snap.Series
	if max := cfg.MaxSeriesPoints; max > 0 && len(series) > max {
		series = series[len(series)-max:]
	}
	if len(series) > 0 {
		points := make([]string, 0, len(series))
		for _, p := range series {
			points = append(points, fmt.Sprintf("%.4f", p))
		}
		fmt.Fprintf(&b, "\nrecent closes (oldest first): %s", strings.Join(points, ", "))
	}
	return b.String()
}
