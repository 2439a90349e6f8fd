package providers

// Model describes a chat model offered to the editor.
type Model struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Family          string `json:"family"`
	MaxInputTokens  int    `json:"maxInputTokens"`
	MaxOutputTokens int    `json:"maxOutputTokens"`
	ToolCalling     bool   `json:"toolCalling"`
	ImageInput      bool   `json:"imageInput"`
}

var models = []Model{
	{
		ID:              "moonshotai/Kimi-K2-Thinking",
		Name:            "Kimi K2 Thinking",
		Family:          "moonshotai",
		MaxInputTokens:  200000,
		MaxOutputTokens: 8192,
		ToolCalling:     true,
	},
	{
		ID:              "zai-org/GLM-4.6",
		Name:            "GLM 4.6",
		Family:          "zai-org",
		MaxInputTokens:  200000,
		MaxOutputTokens: 4096,
		ToolCalling:     true,
	},
	{
		ID:              "Qwen/Qwen3-Coder-480B-A35B-Instruct-FP8",
		Name:            "Qwen 3 Coder",
		Family:          "qwen",
		MaxInputTokens:  200000,
		MaxOutputTokens: 4096,
		ToolCalling:     true,
	},
}

// Models returns the model catalog.
func Models() []Model {
	return append([]Model(nil), models...)
}

func FindModel(id string) (Model, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}

	return Model{}, false
}
