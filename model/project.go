package model

import (
	"encoding/json"
)

// Project is the persisted document. Stores read and write it wholesale.
type Project struct {
	Id                  string       `json:"project_id"`
	Name                string       `json:"name"`
	Description         string       `json:"description,omitempty"`
	CommonVariableNames []string     `json:"common_variable_names,omitempty"`
	Workflows           []Workflow   `json:"workflows"`
	Evaluations         []Evaluation `json:"evaluations,omitempty"`
}

func (p *Project) GetWorkflow(id string) (*Workflow, bool) {
	for i := range p.Workflows {
		if p.Workflows[i].Id == id {
			return &p.Workflows[i], true
		}
	}
	return nil, false
}

func (p *Project) GetEvaluation(id string) (*Evaluation, bool) {
	for i := range p.Evaluations {
		if p.Evaluations[i].Id == id {
			return &p.Evaluations[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy that shares no maps or slices with p.
func (p Project) Clone() (Project, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return Project{}, err
	}
	var out Project
	if err := json.Unmarshal(data, &out); err != nil {
		return Project{}, err
	}
	return out, nil
}

type VariableSet struct {
	Variables   map[string]any `json:"variables"`
	NumRuns     int            `json:"num_runs"`
	IdealOutput any            `json:"ideal_output,omitempty"`
}

func (v *VariableSet) UnmarshalJSON(data []byte) error {
	type alias VariableSet
	a := alias{NumRuns: 1}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*v = VariableSet(a)
	if v.NumRuns < 0 {
		v.NumRuns = 0
	}
	return nil
}

type Comparison struct {
	MatchScore  float64 `json:"match_score"`
	Differences string  `json:"differences"`
}

type RunRecord struct {
	VariableSetId string       `json:"variable_set_id"`
	RunIndex      int          `json:"run_index"`
	Output        []StepReport `json:"output"`
	Comparison    *Comparison  `json:"comparison,omitempty"`
	Notes         string       `json:"notes,omitempty"`
}

type Evaluation struct {
	Id           string                 `json:"evaluation_id"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description,omitempty"`
	VariableSets map[string]VariableSet `json:"variable_sets"`
	Results      map[string][]RunRecord `json:"results,omitempty"`
}

// CompletedRuns counts the records already stored for one workflow and variable set.
func (e *Evaluation) CompletedRuns(workflowId string, variableSetId string) int {
	n := 0
	for _, r := range e.Results[workflowId] {
		if r.VariableSetId == variableSetId {
			n++
		}
	}
	return n
}
