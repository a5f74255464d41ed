package llm

// CustomModel is the model selector that routes requests to the secondary
// provider slot.
const CustomModel = "custom"

// ProviderKind names the backend used for the secondary slot.
type ProviderKind string

const (
	ProviderCerebras ProviderKind = "cerebras"
	ProviderGoogle   ProviderKind = "google"
	ProviderOpenAI   ProviderKind = "openai"
)

// Config holds the per-request settings. It is read, never mutated, by the
// dispatcher and adapters.
type Config struct {
	Model       string
	Provider    ProviderKind
	Temperature float64
	TopP        float64
	TopK        int
	MaxTokens   int

	// APIKey and TargetModel apply to the secondary slot only.
	APIKey      string
	TargetModel string

	SystemPrompt string
}

// ModelInfo describes an entry of the model catalogue.
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var models = []ModelInfo{
	{ID: "llama-3.3-70b", Name: "Llama 3.3 70B"},
	{ID: "llama3.1-8b", Name: "Llama 3.1 8B"},
	{ID: "gpt-oss-120b", Name: "GPT OSS 120B"},
	{ID: "qwen-3-235b-a22b-instruct-2507", Name: "Qwen 3 235B Instruct"},
	{ID: "qwen-3-32b", Name: "Qwen 3 32B"},
	{ID: "zai-glm-4.6", Name: "Z.ai GLM 4.6"},
	{ID: CustomModel, Name: "Custom provider"},
}

// Models returns the known model selectors, ending with CustomModel.
func Models() []ModelInfo {
	out := make([]ModelInfo, len(models))
	copy(out, models)
	return out
}

// DefaultModel is the primary model used when none is configured.
const DefaultModel = "llama-3.3-70b"
