/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package task holds the contract between pipeline tasks and the
// orchestrator that schedules them. The orchestrator itself lives elsewhere;
// tasks only consume a stage context and produce a result.
package task

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

type Status string

const (
	StatusSucceeded Status = "SUCCEEDED"
	StatusTerminal  Status = "TERMINAL"
)

// Stage is the slice of pipeline state a task executes against.
type Stage struct {
	Context map[string]any `json:"context"`
}

// MapTo decodes the stage context into a typed configuration via a JSON
// round-trip, so tasks can declare their inputs as plain structs.
func (s *Stage) MapTo(out any) error {
	data, err := json.Marshal(s.Context)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// Result carries a task's outcome. Context entries update the stage;
// Outputs become globally visible to downstream stages.
type Result struct {
	Status  Status         `json:"status"`
	Context map[string]any `json:"context,omitempty"`
	Outputs map[string]any `json:"outputs,omitempty"`
}

type Task interface {
	Execute(ctx context.Context, stage *Stage) (*Result, error)
}

// RetryableTask declares scheduling policy the orchestrator applies when a
// task fails transiently or overruns. The task itself never retries.
type RetryableTask interface {
	Task
	BackoffPeriod() time.Duration
	Timeout() time.Duration
}
