package factorycheck

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
)

type Result struct {
	Scenario string   `json:"scenario"`
	Passed   bool     `json:"passed"`
	Factory  string   `json:"factory,omitempty"`
	Duration string   `json:"duration"`
	Error    string   `json:"error,omitempty"`
	Notes    []string `json:"notes,omitempty"`
}

type Report struct {
	RunID      string    `json:"runId"`
	ChainID    string    `json:"chainId,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Results    []Result  `json:"results"`
}

func (r *Report) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed {
			n++
		}
	}
	return n
}

func (r *Report) Failed() int { return len(r.Results) - r.Passed() }

func (r *Report) OK() bool { return len(r.Results) > 0 && r.Failed() == 0 }

// Save writes the report as indented JSON.
func (r *Report) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create report")
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return errors.Wrap(err, "encode report")
	}
	return nil
}
