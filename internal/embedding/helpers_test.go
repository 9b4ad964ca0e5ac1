package embedding

import "github.com/nandhiniannika/online-voting/internal/config"

func configFor(provider string) config.EmbeddingConfig {
	return config.EmbeddingConfig{Provider: provider, URL: "http://localhost:8000"}
}
