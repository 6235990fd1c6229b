package executor

import "strings"

// PricingVersion identifies the rate table cost figures were computed with.
const PricingVersion = "local-2026-08"

// USD per 1000 tokens. Models not in the table price at the default rate and
// are flagged so callers can surface the gap.
var pricePerKiloToken = map[string]struct{ input, output float64 }{
	"gpt-test":  {0.0005, 0.0015},
	"gpt-large": {0.0050, 0.0150},
	"local":     {0, 0},
}

const (
	defaultInputPricePerKiloToken  = 0.0010
	defaultOutputPricePerKiloToken = 0.0030
)

// EstimateUsage approximates token counts for a prompt/response pair. Four
// characters per token, matching the executor's deterministic responses.
func EstimateUsage(prompt, response string) map[string]int {
	input := (len(prompt) + 3) / 4
	output := (len(response) + 3) / 4
	return map[string]int{
		"input_tokens":  input,
		"output_tokens": output,
		"total_tokens":  input + output,
	}
}

// CalculateCost prices a usage record for the given model. The second return
// is false when the model has no entry in the rate table and the default rate
// was used.
func CalculateCost(model string, usage map[string]int) (float64, bool) {
	inputRate, outputRate := defaultInputPricePerKiloToken, defaultOutputPricePerKiloToken
	rates, known := pricePerKiloToken[strings.ToLower(strings.TrimSpace(model))]
	if known {
		inputRate, outputRate = rates.input, rates.output
	}
	cost := float64(usage["input_tokens"])/1000*inputRate +
		float64(usage["output_tokens"])/1000*outputRate
	return cost, known
}
