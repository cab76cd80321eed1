package verdict

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/truthseekerlabs/truthseeker/internal/scraper"
	"github.com/truthseekerlabs/truthseeker/internal/search"
)

// Searcher is the slice of the search aggregator the engine depends on.
type Searcher interface {
	Search(ctx context.Context, query string, opts search.Options) (*search.Aggregated, error)
	Providers() []string
}

// Engine runs the adversarial verification pipeline: blue team (assumes the
// claim is true), red team (assumes false, sees blue's findings), then a
// neutral aggregation of both.
type Engine struct {
	search  Searcher
	gen     Generator
	scraper *scraper.Scraper // optional, expands thin evidence snippets

	// decision rounds per team, counting additional-query follow-ups
	maxDecisionTries int
}

// NewEngine creates a verdict engine over the given search aggregator and
// text generator.
func NewEngine(s Searcher, gen Generator) *Engine {
	return &Engine{
		search:           s,
		gen:              gen,
		maxDecisionTries: 5,
	}
}

// SetScraper enables full-page evidence expansion for thin search snippets.
func (e *Engine) SetScraper(s *scraper.Scraper) {
	e.scraper = s
}

// Verify runs the full debate for one claim. logf may be nil.
func (e *Engine) Verify(ctx context.Context, claim string, logf LogFunc) (*Result, error) {
	if logf == nil {
		logf = func(team, message string) { log.Printf("[Verdict.%s] %s", team, message) }
	}

	blueInfo, blueDecision, err := e.runTeam(ctx, claim, TeamBlue, nil, "", logf)
	if err != nil {
		return nil, fmt.Errorf("blue team failed: %w", err)
	}

	redInfo, redDecision, err := e.runTeam(ctx, claim, TeamRed, &blueDecision, blueInfo, logf)
	if err != nil {
		return nil, fmt.Errorf("red team failed: %w", err)
	}

	final, err := e.aggregate(ctx, claim, blueInfo, blueDecision, redInfo, redDecision, logf)
	if err != nil {
		return nil, fmt.Errorf("aggregation failed: %w", err)
	}

	return &Result{
		Claim: claim,
		Final: final,
		Blue:  blueDecision,
		Red:   redDecision,
	}, nil
}

func (e *Engine) runTeam(ctx context.Context, claim, team string, prev *Decision, prevInfo string, logf LogFunc) (string, Decision, error) {
	data := newTeamData(claim, team, prev, prevInfo)

	queryPrompt, err := render(queryTmpl, data)
	if err != nil {
		return "", Decision{}, err
	}
	raw, err := e.gen.Generate(ctx, queryPrompt)
	if err != nil {
		return "", Decision{}, fmt.Errorf("query generation failed: %w", err)
	}
	queries := extractQueries(raw)
	if len(queries) == 0 {
		return "", Decision{}, fmt.Errorf("no queries generated")
	}
	logf(team, fmt.Sprintf("Generated %s team queries: %s", team, strings.Join(queries, ", ")))
	logf(team, fmt.Sprintf("Available search providers: %s", strings.Join(e.search.Providers(), ", ")))

	logf(team, "Searching for information...")
	synthesis, err := e.searchAndSynthesize(ctx, claim, team, queries, logf)
	if err != nil {
		return "", Decision{}, err
	}
	logf(team, fmt.Sprintf("Completed %s team query searches", team))

	queriesJSON, _ := json.Marshal(queries)
	data.Queries = string(queriesJSON)
	data.Synthesis = synthesis

	logf(team, fmt.Sprintf("Starting %s team decision making process", team))
	var decision Decision
	for try := 0; try < e.maxDecisionTries; try++ {
		decisionPrompt, err := render(decisionTmpl, data)
		if err != nil {
			return "", Decision{}, err
		}
		raw, err := e.gen.Generate(ctx, decisionPrompt)
		if err != nil {
			return "", Decision{}, fmt.Errorf("decision generation failed: %w", err)
		}
		decision = extractDecision(raw, team, logf)
		logf(team, fmt.Sprintf("%s team decision: %s, confidence: %d", team, decision.Decision, decision.Confidence))

		if len(decision.AdditionalQueries) == 0 {
			break
		}
		logf(team, fmt.Sprintf("%s team decided to make additional queries: %s",
			team, strings.Join(decision.AdditionalQueries, ", ")))
		extra, err := e.searchAndSynthesize(ctx, claim, team, decision.AdditionalQueries, logf)
		if err != nil {
			return "", Decision{}, err
		}
		extraJSON, _ := json.Marshal(decision.AdditionalQueries)
		data.Queries += "\n" + string(extraJSON)
		data.Synthesis += "\n" + extra
	}
	logf(team, fmt.Sprintf("%s team decision completed", team))

	return data.Synthesis, decision, nil
}

func (e *Engine) aggregate(ctx context.Context, claim, blueInfo string, blueDecision Decision, redInfo string, redDecision Decision, logf LogFunc) (Decision, error) {
	logf(TeamFinal, fmt.Sprintf("Starting final aggregation for claim: %q", claim))

	prompt, err := render(aggregatorTmpl, aggregatorData{
		AgentName:       agentName,
		Claim:           claim,
		CurrentDate:     currentDate(),
		BlueInformation: blueInfo,
		BlueDecision:    blueDecision.Decision,
		BlueReason:      blueDecision.Reason,
		RedInformation:  redInfo,
		RedDecision:     redDecision.Decision,
		RedReason:       redDecision.Reason,
	})
	if err != nil {
		return Decision{}, err
	}

	logf(TeamFinal, "Processing team decisions and evidence...")
	raw, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		return Decision{}, fmt.Errorf("aggregator generation failed: %w", err)
	}
	final := extractDecision(raw, TeamFinal, logf)
	logf(TeamFinal, fmt.Sprintf("Final decision: %s, confidence: %d", final.Decision, final.Confidence))
	logf(TeamFinal, "Claim verification completed successfully")
	return final, nil
}

type queryFindings struct {
	query string
	text  string
}

// searchAndSynthesize fans each query out to all registered providers,
// formats every query's evidence and asks the generator to synthesize the
// lot. Search failures degrade to a marker block, never abort the team.
func (e *Engine) searchAndSynthesize(ctx context.Context, claim, team string, queries []string, logf LogFunc) (string, error) {
	findings := make([]queryFindings, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			logf(team, fmt.Sprintf("Executing %s team query: %q", team, q))
			findings[i] = queryFindings{query: q, text: e.runQuery(ctx, q, team, logf)}
		}(i, q)
	}
	wg.Wait()

	blocks := make([]string, len(findings))
	for i, f := range findings {
		blocks[i] = fmt.Sprintf("## Query\n%s\n## Result\n%s", f.query, f.text)
	}
	queriesResult := strings.Join(blocks, "\n\n\n\n")

	prompt, err := render(synthesisTmpl, synthesisData{
		AgentName:     agentName,
		Claim:         claim,
		Team:          team,
		QueriesResult: queriesResult,
	})
	if err != nil {
		return "", err
	}
	synthesis, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("synthesis generation failed: %w", err)
	}
	return synthesis, nil
}

func (e *Engine) runQuery(ctx context.Context, query, team string, logf LogFunc) string {
	resp, err := e.search.Search(ctx, query, search.Options{
		Tavily:  search.TavilyOptions{IncludeAnswer: true},
		Twitter: search.TwitterOptions{Count: 5, Mode: "top"},
	})
	if err != nil {
		logf(team, fmt.Sprintf("Error during search for %q: %v", query, err))
		return "ERROR DURING SEARCH"
	}
	logf(team, fmt.Sprintf("Search completed for %q using provider(s): %s",
		query, strings.Join(resp.UsedProviders, ", ")))

	if len(resp.CombinedResults) == 0 {
		logf(team, fmt.Sprintf("No relevant results found for %q", query))
		return "NO RESULTS FOUND"
	}

	var b strings.Builder
	if tav, ok := resp.Responses[search.ProviderTavily]; ok && tav.Answer != "" {
		fmt.Fprintf(&b, "##### Result from tavily #####\n%s\n", tav.Answer)
	}
	for _, r := range resp.CombinedResults {
		if r.Source == search.ProviderTwitter {
			fmt.Fprintf(&b, "##### Tweet from %v (@%v) | Likes: %v | Retweets: %v | URL: %s #####\n%s\n",
				r.Metadata["name"], r.Metadata["username"], r.Metadata["likes"], r.Metadata["retweets"], r.URL, r.Content)
			continue
		}
		fmt.Fprintf(&b, "##### Result from %s | Title: %s | URL: %s #####\n%s\n",
			r.Source, r.Title, r.URL, e.expandContent(ctx, r))
	}
	return b.String()
}

// expandContent scrapes the source page when the snippet looks too thin to
// reason over. Best effort; the snippet always remains the fallback.
func (e *Engine) expandContent(ctx context.Context, r search.Result) string {
	const thinSnippet = 200
	if e.scraper == nil || r.URL == "" || len(r.Content) >= thinSnippet {
		return r.Content
	}
	page, err := e.scraper.Scrape(ctx, r.URL)
	if err != nil {
		return r.Content
	}
	const maxPage = 2000
	if len(page) > maxPage {
		page = page[:maxPage]
	}
	if r.Content == "" {
		return page
	}
	return r.Content + "\n" + page
}

func extractQueries(raw string) []string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil
	}
	var parsed struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil
	}
	return parsed.Queries
}
