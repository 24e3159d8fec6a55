package llm

// modelPrice is USD per 1K tokens.
type modelPrice struct {
	Input  float64
	Output float64
}

// priceTable is a static snapshot of published per-model prices. Unknown
// provider/model combinations produce no estimate rather than a guess.
var priceTable = map[string]map[string]modelPrice{
	"openai": {
		"gpt-4o":        {Input: 0.0025, Output: 0.01},
		"gpt-4o-mini":   {Input: 0.00015, Output: 0.0006},
		"gpt-4-turbo":   {Input: 0.01, Output: 0.03},
		"gpt-4":         {Input: 0.03, Output: 0.06},
		"gpt-3.5-turbo": {Input: 0.0005, Output: 0.0015},
	},
	"anthropic": {
		"claude-3-5-sonnet-latest": {Input: 0.003, Output: 0.015},
		"claude-3-5-haiku-latest":  {Input: 0.0008, Output: 0.004},
		"claude-3-opus-latest":     {Input: 0.015, Output: 0.075},
	},
	"deepseek": {
		"deepseek-chat":     {Input: 0.00027, Output: 0.0011},
		"deepseek-reasoner": {Input: 0.00055, Output: 0.00219},
	},
}

// EstimateCost returns a rough USD cost for a call. The second return is
// false when the provider/model combination is not in the price table.
func EstimateCost(provider, model string, inputTokens, outputTokens int) (float64, bool) {
	models, ok := priceTable[provider]
	if !ok {
		return 0, false
	}
	price, ok := models[model]
	if !ok {
		return 0, false
	}
	cost := float64(inputTokens)/1000*price.Input + float64(outputTokens)/1000*price.Output
	return cost, true
}
