package hyperliquid

import (
	"encoding/json"
	"fmt"
)

// infoRequest is the shared envelope for Hyperliquid info endpoint requests.
type infoRequest struct {
	Type string      `json:"type"`
	Req  interface{} `json:"req,omitempty"`
}

// candleSnapshotRequest carries parameters for the candleSnapshot request.
type candleSnapshotRequest struct {
	Coin      string `json:"coin"`
	Interval  string `json:"interval"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
}

// candleResponse mirrors the payload returned from candleSnapshot requests.
type candleResponse []struct {
	T int64   `json:"t"`        // open timestamp (ms)
	O float64 `json:"o,string"` // open price
	C float64 `json:"c,string"` // close price
	H float64 `json:"h,string"` // high price
	L float64 `json:"l,string"` // low price
	V float64 `json:"v,string"` // volume
}

// Candle is a single OHLCV candlestick.
type Candle struct {
	OpenTime int64
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// universeEntry enumerates tradable assets on Hyperliquid.
type universeEntry struct {
	Name       string `json:"name"`
	SzDecimals int    `json:"szDecimals"`
	IsDelisted bool   `json:"isDelisted"`
}

// assetCtx holds per-symbol market context.
type assetCtx struct {
	PrevDayPx string `json:"prevDayPx"`
	MarkPx    string `json:"markPx"`
	MidPx     string `json:"midPx"`
}

// metaAndAssetCtxsResponse contains market meta data and per-asset contexts.
type metaAndAssetCtxsResponse struct {
	Universe  []universeEntry
	AssetCtxs []assetCtx
}

// UnmarshalJSON accommodates both documented and live API payload shapes.
func (m *metaAndAssetCtxsResponse) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch len(raw) {
	case 0:
		return fmt.Errorf("unexpected metaAndAssetCtxs payload: empty array")
	case 1:
		var meta struct {
			Universe  []universeEntry `json:"universe"`
			AssetCtxs []assetCtx      `json:"assetCtxs"`
		}
		if err := json.Unmarshal(raw[0], &meta); err != nil {
			return err
		}
		m.Universe = meta.Universe
		m.AssetCtxs = meta.AssetCtxs
	default:
		var meta struct {
			Universe []universeEntry `json:"universe"`
		}
		if err := json.Unmarshal(raw[0], &meta); err != nil {
			return err
		}
		var ctxs []assetCtx
		if err := json.Unmarshal(raw[1], &ctxs); err != nil {
			return err
		}
		m.Universe = meta.Universe
		m.AssetCtxs = ctxs
	}
	return nil
}

// Quote is the normalized per-symbol context used to build snapshots.
type Quote struct {
	Symbol       string
	MidPrice     float64
	PrevDayPrice float64
}
