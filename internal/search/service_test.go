package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider is a canned-response Provider for registry tests.
type stubProvider struct {
	name      string
	available bool
	resp      *Response
	err       error
	calls     int
}

func (s *stubProvider) Name() string      { return s.name }
func (s *stubProvider) IsAvailable() bool { return s.available }

func (s *stubProvider) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func okProvider(name string, results ...Result) *stubProvider {
	return &stubProvider{
		name:      name,
		available: true,
		resp:      &Response{Provider: name, Results: results},
	}
}

func TestRegister_RejectsUnavailableProvider(t *testing.T) {
	svc := NewService()

	err := svc.Register(&stubProvider{name: "dead", available: false})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Empty(t, svc.Providers())
}

func TestRegister_KeepsRegistrationOrder(t *testing.T) {
	svc := NewService()
	require.NoError(t, svc.Register(okProvider("b")))
	require.NoError(t, svc.Register(okProvider("a")))
	require.NoError(t, svc.Register(okProvider("c")))

	assert.Equal(t, []string{"b", "a", "c"}, svc.Providers())
}

func TestSearch_NamedProviderPassesThrough(t *testing.T) {
	svc := NewService()
	want := Result{Title: "t", URL: "u", Content: "c", Score: 1.0, Source: "one"}
	require.NoError(t, svc.Register(okProvider("one", want)))
	require.NoError(t, svc.Register(okProvider("two", Result{Title: "other"})))

	agg, err := svc.Search(context.Background(), "q", Options{Provider: "one"})
	require.NoError(t, err)

	assert.Equal(t, "one", agg.Provider)
	assert.Equal(t, []string{"one"}, agg.UsedProviders)
	require.Len(t, agg.Responses, 1)
	assert.Equal(t, []Result{want}, agg.CombinedResults)
}

func TestSearch_NamedProviderErrorPropagates(t *testing.T) {
	svc := NewService()
	boom := errors.New("backend down")
	require.NoError(t, svc.Register(&stubProvider{name: "one", available: true, err: boom}))

	_, err := svc.Search(context.Background(), "q", Options{Provider: "one"})
	assert.ErrorIs(t, err, boom)
}

func TestSearch_UnknownProviderIsUnavailable(t *testing.T) {
	svc := NewService()
	require.NoError(t, svc.Register(okProvider("one")))

	_, err := svc.Search(context.Background(), "q", Options{Provider: "nope"})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestSearch_FanOutMergesAllProviders(t *testing.T) {
	svc := NewService()
	r1 := Result{Title: "first", Source: "one"}
	r2 := Result{Title: "second", Source: "two"}
	r3 := Result{Title: "third", Source: "two"}
	require.NoError(t, svc.Register(okProvider("one", r1)))
	require.NoError(t, svc.Register(okProvider("two", r2, r3)))

	agg, err := svc.Search(context.Background(), "q", Options{})
	require.NoError(t, err)

	assert.Equal(t, ProviderAll, agg.Provider)
	assert.Equal(t, []string{"one", "two"}, agg.UsedProviders)
	assert.Equal(t, []Result{r1, r2, r3}, agg.CombinedResults)
	assert.Equal(t, "first", agg.Responses["one"].Results[0].Title)
}

func TestSearch_FanOutSkipsFailedProvider(t *testing.T) {
	svc := NewService()
	require.NoError(t, svc.Register(okProvider("stubA",
		Result{Title: "T1", URL: "u1", Content: "c1", Score: 0.9, Source: "stubA"})))
	require.NoError(t, svc.Register(&stubProvider{name: "stubB", available: true, err: errors.New("boom")}))

	agg, err := svc.Search(context.Background(), "climate change", Options{Provider: ProviderAll})
	require.NoError(t, err)

	assert.Equal(t, []string{"stubA"}, agg.UsedProviders)
	assert.Equal(t, []Result{{Title: "T1", URL: "u1", Content: "c1", Score: 0.9, Source: "stubA"}}, agg.CombinedResults)
	assert.NotContains(t, agg.Responses, "stubB")
}

func TestSearch_FanOutAllFailedReturnsErrNoProviders(t *testing.T) {
	svc := NewService()
	require.NoError(t, svc.Register(&stubProvider{name: "a", available: true, err: errors.New("x")}))
	require.NoError(t, svc.Register(&stubProvider{name: "b", available: true, err: errors.New("y")}))

	_, err := svc.Search(context.Background(), "q", Options{})
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestSearch_FanOutEmptyRegistryReturnsErrNoProviders(t *testing.T) {
	svc := NewService()

	_, err := svc.Search(context.Background(), "q", Options{})
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestSearch_FanOutTagsUntaggedResults(t *testing.T) {
	svc := NewService()
	require.NoError(t, svc.Register(okProvider("one", Result{Title: "untagged"})))

	agg, err := svc.Search(context.Background(), "q", Options{})
	require.NoError(t, err)
	require.Len(t, agg.CombinedResults, 1)
	assert.Equal(t, "one", agg.CombinedResults[0].Source)
}

func TestSearch_SugarMethodsRouteToNamedProvider(t *testing.T) {
	svc := NewService()
	tav := okProvider(ProviderTavily)
	tw := okProvider(ProviderTwitter)
	require.NoError(t, svc.Register(tav))
	require.NoError(t, svc.Register(tw))

	_, err := svc.SearchTavily(context.Background(), "q", Options{})
	require.NoError(t, err)
	_, err = svc.SearchTwitter(context.Background(), "q", Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, tav.calls)
	assert.Equal(t, 1, tw.calls)

	_, err = svc.SearchExa(context.Background(), "q", Options{})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}
