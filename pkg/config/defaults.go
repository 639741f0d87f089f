package config

const (
	defaultVectorProvider = "sqlite"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "embeddinggemma"
	defaultEmbeddingDimensions = 768

	defaultDedupThreshold = 0.95
	defaultDedupPolicy    = "skip"

	defaultMaxItems      = 20
	defaultMaxItemLength = 64

	defaultSearchLimit = 10

	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultEventsProvider = "none"
	defaultEventsTopic    = "recall.memories"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Dedup: DedupConfig{
			Enabled:   true,
			Threshold: defaultDedupThreshold,
			Policy:    defaultDedupPolicy,
		},
		Metadata: MetadataConfig{
			MaxItems:      defaultMaxItems,
			MaxItemLength: defaultMaxItemLength,
		},
		Search: SearchConfig{
			DefaultLimit: defaultSearchLimit,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
	}
}
