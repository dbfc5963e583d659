package models

// AI model providers.
const (
	ProviderOpenAI    = "OpenAI"
	ProviderDeepSeek  = "DeepSeek"
	ProviderGoogle    = "Google"
	ProviderAnthropic = "Anthropic"
)

// AIModel is a named AI configuration. APIKey arrives already decrypted.
// MaxCharInput bounds the text chunk sent per call; cost columns are
// per-1000-token unit prices used for usage accounting.
type AIModel struct {
	ID           int64    `db:"id_ai_model"        json:"id_ai_model"`
	UserID       int64    `db:"id_user"            json:"id_user"`
	Provider     string   `db:"provider"           json:"provider"`
	ModelName    string   `db:"model_name"         json:"model_name"`
	APIKey       string   `db:"api_key"            json:"-"`
	BaseURL      string   `db:"base_url"           json:"base_url"`
	Temperature  *float64 `db:"temperature"        json:"temperature,omitempty"`
	MaxTokens    *int64   `db:"max_tokens"         json:"max_tokens,omitempty"`
	MaxCharInput int64    `db:"max_char_input"     json:"max_char_input"`
	CostPer1KIn  float64  `db:"cost_per_1k_input"  json:"cost_per_1k_input"`
	CostPer1KOut float64  `db:"cost_per_1k_output" json:"cost_per_1k_output"`
	IsActive     bool     `db:"is_active"          json:"is_active"`
}

// Cost computes the dollar cost of one call from its token counts.
func (m *AIModel) Cost(tokensIn, tokensOut int64) float64 {
	return float64(tokensIn)/1000*m.CostPer1KIn + float64(tokensOut)/1000*m.CostPer1KOut
}
