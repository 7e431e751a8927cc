package ai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/filevec/core"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		input   string
		want    Provider
		wantErr bool
	}{
		{input: "openai", want: ProviderOpenAI},
		{input: "OpenAI", want: ProviderOpenAI},
		{input: " Cohere ", want: ProviderCohere},
		{input: "COHERE", want: ProviderCohere},
		{input: "", wantErr: true},
		{input: "anthropic", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProvider(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProviderNames(t *testing.T) {
	assert.Equal(t, []string{"openai", "cohere"}, ProviderNames())

	_, err := ParseProvider("anthropic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai, cohere")
}

func TestProvider_String(t *testing.T) {
	assert.Equal(t, "openai", ProviderOpenAI.String())
	assert.Equal(t, "cohere", ProviderCohere.String())
	assert.Equal(t, "provider(7)", Provider(7).String())
	assert.False(t, Provider(7).Valid())
}

func TestProvider_TextRoundTrip(t *testing.T) {
	var holder struct {
		Provider Provider `json:"provider"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"provider":"Cohere"}`), &holder))
	assert.Equal(t, ProviderCohere, holder.Provider)

	out, err := json.Marshal(holder)
	require.NoError(t, err)
	assert.JSONEq(t, `{"provider":"cohere"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"provider":"nope"}`), &holder))
}
