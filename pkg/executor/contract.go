package executor

import (
	"fmt"
	"strings"
)

// intentContract mirrors the structured JSON contract expected from the oracle.
type intentContract struct {
	Action                   string  `json:"action" description:"Trade action to take" enum:"buy,sell,hold,close"`
	Confidence               float64 `json:"confidence" description:"Certainty in the action, 0 to 1"`
	Reasoning                string  `json:"reasoning" description:"Short free-text rationale"`
	TargetPair               string  `json:"target_pair,omitempty" description:"Trading pair the action applies to"`
	SuggestedPositionSizePct float64 `json:"suggested_position_size_pct,omitempty" description:"Suggested position size as percent of balance, 0 to 100"`
}

// mapIntentContract validates the oracle output and coerces anything out of
// contract to a hold intent with the cause preserved.
func mapIntentContract(cfg *Config, ctx *Context, raw intentContract) (Intent, string) {
	action := Action(strings.ToLower(strings.TrimSpace(raw.Action)))
	if !action.Valid() {
		return holdIntent(ctx, raw.Reasoning), fmt.Sprintf("unknown action %q", raw.Action)
	}
	if raw.Confidence < 0 || raw.Confidence > 1 {
		return holdIntent(ctx, raw.Reasoning), fmt.Sprintf("confidence %v out of range [0,1]", raw.Confidence)
	}
	if raw.SuggestedPositionSizePct < 0 || raw.SuggestedPositionSizePct > 100 {
		return holdIntent(ctx, raw.Reasoning), fmt.Sprintf("size pct %v out of range [0,100]", raw.SuggestedPositionSizePct)
	}
	if (action == ActionBuy || action == ActionSell) && raw.Confidence < cfg.MinConfidence {
		return holdIntent(ctx, raw.Reasoning),
			fmt.Sprintf("confidence %.2f below minimum %.2f", raw.Confidence, cfg.MinConfidence)
	}

	pair := strings.TrimSpace(raw.TargetPair)
	if pair == "" {
		pair = ctx.Pair
	}
	return Intent{
		Action:     action,
		Confidence: raw.Confidence,
		Reasoning:  strings.TrimSpace(raw.Reasoning),
		TargetPair: pair,
		SizePct:    raw.SuggestedPositionSizePct,
	}, ""
}

func holdIntent(ctx *Context, reasoning string) Intent {
	return Intent{
		Action:     ActionHold,
		Confidence: 0,
		Reasoning:  strings.TrimSpace(reasoning),
		TargetPair: ctx.Pair,
	}
}
