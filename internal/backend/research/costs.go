package research

import "strings"

// price is USD per million tokens
type price struct {
	input  float64
	output float64
}

var modelPrices = map[string]price{
	"gpt-4o-mini":      {input: 0.15, output: 0.60},
	"gpt-4o":           {input: 2.50, output: 10.00},
	"gpt-4.1-mini":     {input: 0.40, output: 1.60},
	"gpt-4.1":          {input: 2.00, output: 8.00},
	"gemini-2.5-flash": {input: 0.30, output: 2.50},
	"gemini-2.5-pro":   {input: 1.25, output: 10.00},
}

// Cost estimates the USD cost of one call. Unknown models cost nothing.
// Dated model snapshots ("gpt-4o-mini-2024-07-18") price as their base model.
func Cost(model string, inputTokens, outputTokens int) float64 {
	p, ok := modelPrices[model]
	if !ok {
		best := ""
		for name := range modelPrices {
			if strings.HasPrefix(model, name+"-") && len(name) > len(best) {
				best = name
			}
		}
		if best == "" {
			return 0
		}
		p = modelPrices[best]
	}
	return (float64(inputTokens)*p.input + float64(outputTokens)*p.output) / 1_000_000
}
