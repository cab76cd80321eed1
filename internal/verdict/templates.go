package verdict

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/truthseekerlabs/truthseeker/prompts"
)

const (
	agentName  = "TruthSeeker"
	minQueries = 3
	maxQueries = 5
)

var (
	queryTmpl      = template.Must(template.New("query").Parse(prompts.Query))
	decisionTmpl   = template.Must(template.New("decision").Parse(prompts.Decision))
	synthesisTmpl  = template.Must(template.New("synthesis").Parse(prompts.Synthesis))
	aggregatorTmpl = template.Must(template.New("aggregator").Parse(prompts.Aggregator))
)

// teamData parameterizes the query and decision templates for one team.
type teamData struct {
	AgentName          string
	Claim              string
	Team               string
	Assumption         string
	NegativeAssumption string
	Goal               string
	MinQueries         int
	MaxQueries         int
	CurrentDate        string

	Queries   string
	Synthesis string

	PrevTeam        string
	PrevInformation string
	PrevDecision    string
	PrevReason      string
}

func newTeamData(claim, team string, prev *Decision, prevInformation string) teamData {
	d := teamData{
		AgentName:   agentName,
		Claim:       claim,
		Team:        team,
		MinQueries:  minQueries,
		MaxQueries:  maxQueries,
		CurrentDate: currentDate(),
	}
	if team == TeamBlue {
		d.Assumption, d.NegativeAssumption = "true", "false"
		d.Goal = "support and prove"
	} else {
		d.Assumption, d.NegativeAssumption = "false", "true"
		d.Goal = "debunk and disprove"
	}
	if prev != nil {
		if team == TeamBlue {
			d.PrevTeam = TeamRed
		} else {
			d.PrevTeam = TeamBlue
		}
		d.PrevInformation = prevInformation
		d.PrevDecision = prev.Decision
		d.PrevReason = prev.Reason
	}
	return d
}

type synthesisData struct {
	AgentName     string
	Claim         string
	Team          string
	QueriesResult string
}

type aggregatorData struct {
	AgentName   string
	Claim       string
	CurrentDate string

	BlueInformation string
	BlueDecision    string
	BlueReason      string
	RedInformation  string
	RedDecision     string
	RedReason       string
}

func currentDate() string {
	return time.Now().Format("2006-01-02")
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", t.Name(), err)
	}
	return b.String(), nil
}
