package source

import (
	"fmt"
	"strings"

	"github.com/treumlabs/signalforge/internal/core"
)

const analystSystemPrompt = `You are an expert quantitative analyst and trader with 20+ years of experience in global financial markets.

Your task is to analyze market data and provide trading signals with the following JSON structure:

{
    "signal": "BUY" | "SELL" | "HOLD",
    "strength": 1-10,
    "target_price": number,
    "stop_loss": number,
    "time_horizon": "1h" | "4h" | "1d" | "1w" | "1m",
    "reasoning": "detailed explanation",
    "risk_factors": ["factor1", "factor2"],
    "technical_score": 0-100,
    "fundamental_score": 0-100,
    "probability": 0-100
}

Consider technical indicators, market sentiment, volume analysis, support/resistance levels, and macroeconomic factors. Provide conservative, risk-aware recommendations.`

const conservativeSystemPrompt = `You are a risk-focused portfolio analyst. Analyze the market data and return a JSON trading recommendation with the following structure:

{
    "signal": "BUY" | "SELL" | "HOLD",
    "strength": 1-10,
    "target_price": number,
    "stop_loss": number,
    "time_horizon": "1h" | "4h" | "1d" | "1w" | "1m",
    "reasoning": "detailed explanation",
    "risk_factors": ["factor1", "factor2"],
    "risk_level": "LOW" | "MEDIUM" | "HIGH",
    "technical_score": 0-100,
    "fundamental_score": 0-100,
    "probability": 0-100
}

Focus on capital preservation and risk management. Prefer HOLD when the picture is mixed.`

// buildAnalysisPrompt renders a snapshot as the analyst prompt.
func buildAnalysisPrompt(snap *core.MarketSnapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze %s for trading opportunities:\n\n", snap.Symbol)

	b.WriteString("PRICE DATA:\n")
	fmt.Fprintf(&b, "- Current Price: %.2f\n", snap.CurrentPrice)
	fmt.Fprintf(&b, "- 24h Change: %.2f%%\n", snap.Change24h)
	fmt.Fprintf(&b, "- Volume: %.0f\n", snap.Volume24h)
	fmt.Fprintf(&b, "- 52W High/Low: %.2f/%.2f\n", snap.High52W, snap.Low52W)
	if snap.MarketCap != nil {
		fmt.Fprintf(&b, "- Market Cap: %.0f\n", *snap.MarketCap)
	}

	b.WriteString("\nTECHNICAL INDICATORS:\n")
	fmt.Fprintf(&b, "- RSI(14): %.2f\n", snap.RSI14)
	fmt.Fprintf(&b, "- MACD Signal: %s\n", snap.MACDSignal)
	fmt.Fprintf(&b, "- Bollinger Position: %.1f%%\n", snap.BollingerPosition)
	fmt.Fprintf(&b, "- Volume/SMA Ratio: %.2f\n", snap.VolumeSMARatio)
	fmt.Fprintf(&b, "- SMA 50: %.2f\n", snap.SMA50)
	fmt.Fprintf(&b, "- SMA 200: %.2f\n", snap.SMA200)
	fmt.Fprintf(&b, "- Support Levels: %v\n", snap.SupportLevels)
	fmt.Fprintf(&b, "- Resistance Levels: %v\n", snap.ResistanceLevels)

	b.WriteString("\nFUNDAMENTAL DATA:\n")
	fmt.Fprintf(&b, "- P/E Ratio: %s\n", optional(snap.PERatio, "%.2f"))
	fmt.Fprintf(&b, "- Dividend Yield: %s%%\n", optional(snap.DividendYield, "%.2f"))
	fmt.Fprintf(&b, "- Beta: %s\n", optional(snap.Beta, "%.2f"))

	b.WriteString("\nProvide a comprehensive trading recommendation with risk management parameters.\n")

	return b.String()
}

func optional(v *float64, format string) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf(format, *v)
}
