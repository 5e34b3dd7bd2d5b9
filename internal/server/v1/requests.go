package v1

type FetchModelsRequest struct {
	URL       string `json:"url"`
	APIKey    string `json:"api_key"`
	APIType   string `json:"api_type" binding:"required"`
	OllamaURL string `json:"ollama_url"`
}

type RegisterChatRequest struct {
	URL             string `json:"url"`
	APIKey          string `json:"api_key"`
	ModelID         string `json:"model_id" binding:"required,notblank"`
	Name            string `json:"name"`
	StreamAvailable bool   `json:"stream_available"`
	APIType         string `json:"api_type" binding:"required"`
}

type RegisterEmbeddingRequest struct {
	URL       string `json:"url"`
	APIKey    string `json:"api_key"`
	ModelID   string `json:"model_id" binding:"required,notblank"`
	ModelName string `json:"model_name"`
	APIType   string `json:"api_type" binding:"required"`
}

type ModelIDRequest struct {
	ID string `json:"id" binding:"required,notblank"`
}

type SettingsRequest struct {
	HideDefaultModels *bool `json:"hide_default_models" binding:"required"`
}
