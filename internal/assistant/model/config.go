package model

// ================ Config ================

type ConversationConfig struct {
	// ChatWindow is the number of recent turns sent on the plain
	// conversational path.
	ChatWindow int `envconfig:"CONVERSATION_CHAT_WINDOW" default:"10"`
	// SearchWindow is the tighter window used when evidence is present.
	SearchWindow int `envconfig:"CONVERSATION_SEARCH_WINDOW" default:"3"`
	// PersistLimit caps how many turns the repository keeps on disk.
	PersistLimit int `envconfig:"CONVERSATION_PERSIST_LIMIT" default:"50"`
	// TTL bounds the lifetime of a session in the redis backend ("0" keeps
	// sessions until explicitly cleared).
	TTL string `envconfig:"CONVERSATION_TTL" default:"0"`
}

type ClassifierModelConfig struct {
	// Model overrides the resolver's pick when non-empty.
	Model       string  `envconfig:"CLASSIFIER_MODEL"`
	MaxTokens   int     `envconfig:"CLASSIFIER_MAX_TOKENS" default:"256"`
	Temperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" default:"0.7"`
	// MaxRetries bounds the re-ask on a placeholder-echo reply.
	MaxRetries int `envconfig:"CLASSIFIER_MAX_RETRIES" default:"1"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"512"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.3"`
	TopP        float32 `envconfig:"RESPONSE_TOP_P" default:"0.8"`
	// Stream transports the completion as SSE chunks, concatenated
	// client-side before composition.
	Stream bool `envconfig:"RESPONSE_STREAM" default:"false"`
}

type PersonaConfig struct {
	Username      string `envconfig:"USERNAME" default:"User"`
	AssistantName string `envconfig:"ASSISTANT_NAME" default:"Nova"`
}

type SearchConfig struct {
	BaseURL        string `envconfig:"SEARCH_BASE_URL" default:"https://www.bing.com/search"`
	ResultCount    int    `envconfig:"SEARCH_RESULT_COUNT" default:"20"`
	TimeoutSeconds int    `envconfig:"SEARCH_TIMEOUT_SECONDS" default:"15"`
	UserAgent      string `envconfig:"SEARCH_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/91.0.4472.124 Safari/537.36"`
}

type HistoryConfig struct {
	// Backend selects the conversation store: "file" or "redis".
	Backend  string `envconfig:"HISTORY_BACKEND" default:"file"`
	FilePath string `envconfig:"HISTORY_FILE_PATH" default:"data/chatlog.json"`
}
