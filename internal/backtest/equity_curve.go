package backtest

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// EquityPoint samples the account once per bar
type EquityPoint struct {
	BarIndex int       `json:"bar_index"`
	Time     time.Time `json:"time"`
	Balance  float64   `json:"balance"`
	Equity   float64   `json:"equity"`
	Drawdown float64   `json:"drawdown"`
}

// EquityCurve is the bar-ordered series of equity samples
type EquityCurve []EquityPoint

// GetReturns calculates per-bar equity returns
func (e EquityCurve) GetReturns() []float64 {
	if len(e) < 2 {
		return []float64{}
	}
	returns := make([]float64, 0, len(e)-1)
	for i := 1; i < len(e); i++ {
		prev := e[i-1].Equity
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (e[i].Equity-prev)/prev)
	}
	return returns
}

// ToCSV exports the curve as a CSV string
func (e EquityCurve) ToCSV() string {
	var buf bytes.Buffer
	buf.WriteString("bar_index,time,balance,equity,drawdown\n")
	for _, p := range e {
		buf.WriteString(strconv.Itoa(p.BarIndex))
		buf.WriteString(",")
		buf.WriteString(p.Time.Format(time.RFC3339))
		buf.WriteString(",")
		buf.WriteString(formatFloat(p.Balance))
		buf.WriteString(",")
		buf.WriteString(formatFloat(p.Equity))
		buf.WriteString(",")
		buf.WriteString(formatFloat(p.Drawdown))
		buf.WriteString("\n")
	}
	return buf.String()
}

// ToJSON exports the curve as a JSON string
func (e EquityCurve) ToJSON() string {
	data, _ := json.Marshal(e)
	return string(data)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
