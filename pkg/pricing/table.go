package pricing

import "encoding/json"

// Entry holds per-million-token USD rates for one model key.
type Entry struct {
	InputPerMillion  float64
	OutputPerMillion float64

	// Cache rates default to the input rate when the source document does
	// not price them separately; the defaulting happens at parse time so
	// cost computation never special-cases absence.
	CacheReadPerMillion  float64
	CacheWritePerMillion float64
}

// rawEntry is one model entry of the LiteLLM-shaped source document.
// All costs are per single token.
type rawEntry struct {
	InputCostPerToken  *float64 `json:"input_cost_per_token"`
	OutputCostPerToken *float64 `json:"output_cost_per_token"`
	CacheReadCost      *float64 `json:"cache_read_input_token_cost"`
	CacheCreationCost  *float64 `json:"cache_creation_input_token_cost"`
}

// parsePayload converts a raw price document into a table of per-million
// rates. Malformed entries, entries without numeric input/output costs,
// and the reserved "sample_spec" key are skipped.
func parsePayload(payload []byte) (map[string]Entry, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	table := make(map[string]Entry, len(raw))
	for key, msg := range raw {
		if key == "sample_spec" {
			continue
		}
		var re rawEntry
		if err := json.Unmarshal(msg, &re); err != nil {
			continue
		}
		if re.InputCostPerToken == nil || re.OutputCostPerToken == nil {
			continue
		}

		e := Entry{
			InputPerMillion:  *re.InputCostPerToken * 1_000_000,
			OutputPerMillion: *re.OutputCostPerToken * 1_000_000,
		}
		e.CacheReadPerMillion = e.InputPerMillion
		e.CacheWritePerMillion = e.InputPerMillion
		if re.CacheReadCost != nil {
			e.CacheReadPerMillion = *re.CacheReadCost * 1_000_000
		}
		if re.CacheCreationCost != nil {
			e.CacheWritePerMillion = *re.CacheCreationCost * 1_000_000
		}
		table[key] = e
	}
	return table, nil
}
