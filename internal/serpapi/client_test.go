package serpapi

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthseekerlabs/truthseeker/internal/search"
)

func TestSearch_UnavailableWithoutKey(t *testing.T) {
	c := NewClient("")
	_, err := c.Search(context.Background(), "q", search.Options{})
	assert.ErrorIs(t, err, search.ErrProviderUnavailable)
}

func TestSearch_BuildsGoogleParameters(t *testing.T) {
	var got map[string]string
	c := NewClient("serp-key")
	c.fetch = func(parameter map[string]string) (map[string]any, error) {
		got = parameter
		return map[string]any{}, nil
	}

	_, err := c.Search(context.Background(), "golang generics", search.Options{
		SerpAPI: search.SerpAPIOptions{Num: 5, Page: 3, CountryCode: "de", Language: "de"},
	})
	require.NoError(t, err)

	assert.Equal(t, "google", got["engine"])
	assert.Equal(t, "golang generics", got["q"])
	assert.Equal(t, "de", got["gl"])
	assert.Equal(t, "de", got["hl"])
	assert.Equal(t, "5", got["num"])
	assert.Equal(t, "10", got["start"]) // (page-1)*num
}

func TestSearch_DefaultParameters(t *testing.T) {
	var got map[string]string
	c := NewClient("serp-key")
	c.fetch = func(parameter map[string]string) (map[string]any, error) {
		got = parameter
		return map[string]any{}, nil
	}

	_, err := c.Search(context.Background(), "q", search.Options{})
	require.NoError(t, err)

	assert.Equal(t, "us", got["gl"])
	assert.Equal(t, "en", got["hl"])
	assert.Equal(t, "10", got["num"])
	assert.Equal(t, "0", got["start"])
}

func TestSearch_FetchErrorPropagates(t *testing.T) {
	c := NewClient("serp-key")
	boom := errors.New("quota exhausted")
	c.fetch = func(parameter map[string]string) (map[string]any, error) {
		return nil, boom
	}

	_, err := c.Search(context.Background(), "q", search.Options{})
	assert.ErrorIs(t, err, boom)
}

func TestNormalize_OrganicResultsScoredByPosition(t *testing.T) {
	raw := map[string]any{
		"organic_results": []any{
			map[string]any{"title": "First", "link": "https://1.example", "snippet": "one"},
			map[string]any{"title": "Second", "link": "https://2.example", "snippet": "two"},
			map[string]any{"title": "", "link": "https://skip.example"}, // dropped, no title
		},
	}

	results := normalize(raw)
	require.Len(t, results, 2)

	assert.Equal(t, "First", results[0].Title)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.InDelta(t, 0.95, results[1].Score, 1e-9)
	assert.Equal(t, search.ProviderSerpAPI, results[0].Source)
}

func TestNormalize_KnowledgeGraphOutranksOrganic(t *testing.T) {
	raw := map[string]any{
		"organic_results": []any{
			map[string]any{"title": "Organic", "link": "https://o.example", "snippet": "s"},
		},
		"knowledge_graph": map[string]any{
			"title":            "Albert Einstein",
			"description":      "Theoretical physicist",
			"description_link": "https://kg.example",
		},
	}

	results := normalize(raw)
	require.Len(t, results, 2)

	kg := results[1]
	assert.Equal(t, "Albert Einstein", kg.Title)
	assert.Equal(t, "Theoretical physicist", kg.Content)
	assert.InDelta(t, 1.0, kg.Score, 1e-9)
}

func TestNormalize_RelatedQuestionsRankLower(t *testing.T) {
	raw := map[string]any{
		"related_questions": []any{
			map[string]any{"question": "Why is the sky blue?", "link": "https://q.example", "snippet": "scattering"},
			map[string]any{"question": "What is Rayleigh scattering?", "snippet": "physics"},
		},
	}

	results := normalize(raw)
	require.Len(t, results, 2)

	assert.Equal(t, "Why is the sky blue?", results[0].Title)
	assert.InDelta(t, 0.8, results[0].Score, 1e-9)
	assert.InDelta(t, 0.75, results[1].Score, 1e-9)
}

func TestNormalize_ScoreNeverFallsBelowFloor(t *testing.T) {
	var organic []any
	for i := 0; i < 30; i++ {
		organic = append(organic, map[string]any{
			"title":   "Result",
			"link":    "https://r.example",
			"snippet": "s",
		})
	}

	results := normalize(map[string]any{"organic_results": organic})
	require.Len(t, results, 30)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.1)
	}
}

func TestNormalize_EmptyPayload(t *testing.T) {
	assert.Empty(t, normalize(map[string]any{}))
}
