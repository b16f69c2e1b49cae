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

// findimage runs the find-image task once against a live clouddriver: it
// reads a stage context as JSON from a file (or stdin), resolves the images,
// and prints the task result as JSON.
package main

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/samber/lo"
	"k8s.io/klog/v2"

	"github.com/kevinheins/orca/pkg/clouddriver"
	"github.com/kevinheins/orca/pkg/operator/options"
	"github.com/kevinheins/orca/pkg/providers/imageresolver"
	"github.com/kevinheins/orca/pkg/task"
	"github.com/kevinheins/orca/pkg/task/findimage"
)

func main() {
	fs := flag.NewFlagSet("findimage", flag.ContinueOnError)
	stageFile := fs.String("stage-file", "-", "Path to a JSON file holding the stage context, or - for stdin.")
	opts := &options.Options{}
	opts.AddFlags(fs)
	if err := opts.Parse(fs, os.Args[1:]...); err != nil {
		klog.Fatalf("Failed to parse options: %v", err)
	}
	ctx := opts.ToContext(context.Background())

	stage, err := readStage(*stageFile)
	if err != nil {
		klog.Fatalf("Failed to read stage context: %v", err)
	}

	client := clouddriver.NewDefaultClient(opts.ClouddriverEndpoint, opts.RequestTimeout)
	resolver := imageresolver.NewDefaultProvider(client, nil)

	result, err := findimage.NewTask(resolver).Execute(ctx, stage)
	if err != nil {
		klog.Fatalf("Task failed: %v", err)
	}

	encoded := lo.Must(json.MarshalIndent(result, "", "  "))
	lo.Must(os.Stdout.Write(append(encoded, '\n')))
}

func readStage(path string) (*task.Stage, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	stageContext := map[string]any{}
	if err := json.Unmarshal(data, &stageContext); err != nil {
		return nil, err
	}
	return &task.Stage{Context: stageContext}, nil
}
