package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv_ExplicitProvider(t *testing.T) {
	t.Setenv(EnvProvider, "local")
	t.Setenv(EnvOpenAIAPIKey, "")

	emb, err := NewFromEnv()
	require.NoError(t, err)
	defer emb.Close()

	assert.Equal(t, ProviderLocal, emb.Provider())
}

func TestNewFromEnv_OpenAIKeyImpliesOpenAI(t *testing.T) {
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvOpenAIAPIKey, "sk-test")

	emb, err := NewFromEnv()
	require.NoError(t, err)
	defer emb.Close()

	assert.Equal(t, ProviderOpenAI, emb.Provider())
}

func TestNewFromEnv_DefaultsToOllama(t *testing.T) {
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvOpenAIAPIKey, "")

	emb, err := NewFromEnv()
	require.NoError(t, err)
	defer emb.Close()

	assert.Equal(t, ProviderOllama, emb.Provider())
}

func TestNewFromEnv_UnknownProvider(t *testing.T) {
	t.Setenv(EnvProvider, "carrier-pigeon")

	_, err := NewFromEnv()
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestNew_ExplicitConfig(t *testing.T) {
	emb, err := New(Config{Provider: "local", CacheSize: 100})
	require.NoError(t, err)
	defer emb.Close()

	assert.Equal(t, ProviderLocal, emb.Provider())

	_, err = New(Config{Provider: "nope"})
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestDetectProvider(t *testing.T) {
	t.Setenv(EnvProvider, "OLLAMA")
	assert.Equal(t, ProviderOllama, DetectProvider())

	t.Setenv(EnvProvider, "")
	t.Setenv(EnvOpenAIAPIKey, "sk-test")
	assert.Equal(t, ProviderOpenAI, DetectProvider())

	t.Setenv(EnvOpenAIAPIKey, "")
	assert.Equal(t, ProviderOllama, DetectProvider())
}
