package prompts

import (
	_ "embed"
)

//go:embed query.txt
var Query string

//go:embed decision.txt
var Decision string

//go:embed synthesis.txt
var Synthesis string

//go:embed aggregator.txt
var Aggregator string
