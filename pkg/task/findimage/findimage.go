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

package findimage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"k8s.io/klog/v2"

	"github.com/kevinheins/orca/pkg/operator/options"
	"github.com/kevinheins/orca/pkg/providers/imageresolver"
	"github.com/kevinheins/orca/pkg/task"
)

const (
	backoffPeriod = 10 * time.Second
	timeout       = 10 * time.Minute
)

// Task resolves which machine image a cluster's active server groups run in
// each configured location and publishes the flattened deployment details
// for downstream deploy stages.
type Task struct {
	resolver imageresolver.Provider
}

func NewTask(resolver imageresolver.Provider) *Task {
	return &Task{resolver: resolver}
}

func (t *Task) Execute(ctx context.Context, stage *task.Stage) (*task.Result, error) {
	config := imageresolver.FindImageConfiguration{}
	if err := stage.MapTo(&config); err != nil {
		return nil, fmt.Errorf("decoding stage context, %w", err)
	}
	if config.Cluster == "" {
		return nil, fmt.Errorf("missing cluster in stage context")
	}
	if !config.Strategy().Valid() {
		return nil, fmt.Errorf("unknown selection strategy %q", config.SelectionStrategy)
	}
	if config.ResolveMissingLocations == nil {
		if opts := options.FromContext(ctx); opts != nil {
			config.ResolveMissingLocations = aws.Bool(opts.DefaultResolveMissingLocations)
		}
	}

	cloudProvider := task.CloudProvider(stage)
	account := task.Account(stage)
	klog.V(2).Infof("Resolving images for cluster %s (%s/%s)", config.Cluster, cloudProvider, account)

	details, err := t.resolver.Resolve(ctx, config.Cluster, cloudProvider, account, config)
	if err != nil {
		return nil, err
	}

	// amiDetails and deploymentDetails carry the same records; both names
	// are consumed in the wild.
	return &task.Result{
		Status:  task.StatusSucceeded,
		Context: map[string]any{"amiDetails": details},
		Outputs: map[string]any{"deploymentDetails": details},
	}, nil
}

func (t *Task) BackoffPeriod() time.Duration { return backoffPeriod }

func (t *Task) Timeout() time.Duration { return timeout }
