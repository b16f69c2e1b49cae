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

package options

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kevinheins/orca/pkg/utils"
)

const (
	clouddriverEndpointEnvVarName = "CLOUDDRIVER_ENDPOINT"
	clouddriverEndpointFlagName   = "clouddriver-endpoint"

	requestTimeoutEnvVarName = "CLOUDDRIVER_REQUEST_TIMEOUT"
	requestTimeoutFlagName   = "clouddriver-request-timeout"

	resolveMissingEnvVarName = "DEFAULT_RESOLVE_MISSING_LOCATIONS"
	resolveMissingFlagName   = "default-resolve-missing-locations"

	configFileEnvVarName = "FIND_IMAGE_CONFIG_FILE"
	configFileFlagName   = "config-file"
)

type optionsKey struct{}

type Options struct {
	// ClouddriverEndpoint is the base URL of the inventory service that
	// serves server group summaries and the image catalog search.
	ClouddriverEndpoint string
	RequestTimeout      time.Duration
	// DefaultResolveMissingLocations applies when a stage does not carry
	// its own resolveMissingLocations flag.
	DefaultResolveMissingLocations bool
	ConfigFile                     string
}

// fileOptions is the YAML schema of the optional config file.
type fileOptions struct {
	ClouddriverEndpoint            string `yaml:"clouddriverEndpoint"`
	RequestTimeout                 string `yaml:"requestTimeout"`
	DefaultResolveMissingLocations *bool  `yaml:"defaultResolveMissingLocations"`
}

func (o *Options) AddFlags(fs *flag.FlagSet) {
	fs.StringVar(&o.ClouddriverEndpoint, clouddriverEndpointFlagName, utils.WithDefaultString(clouddriverEndpointEnvVarName, ""), "Base URL of the clouddriver inventory service.")
	fs.DurationVar(&o.RequestTimeout, requestTimeoutFlagName, utils.WithDefaultDuration(requestTimeoutEnvVarName, 30*time.Second), "Timeout applied to each clouddriver request.")
	fs.BoolVar(&o.DefaultResolveMissingLocations, resolveMissingFlagName, utils.WithDefaultBool(resolveMissingEnvVarName, false), "Backfill images from the catalog for locations without a server group when the stage does not say otherwise.")
	fs.StringVar(&o.ConfigFile, configFileFlagName, utils.WithDefaultString(configFileEnvVarName, ""), "Optional YAML file with the same settings. Flags and env vars take precedence.")
}

func (o *Options) Parse(fs *flag.FlagSet, args ...string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		return fmt.Errorf("parsing flags, %w", err)
	}
	if o.ConfigFile != "" {
		if err := o.applyConfigFile(fs); err != nil {
			return err
		}
	}
	if err := o.Validate(); err != nil {
		return fmt.Errorf("validating options, %w", err)
	}
	return nil
}

// applyConfigFile fills in fields that neither a command-line flag nor an
// environment variable populated. Flags and env vars always win over the file.
func (o *Options) applyConfigFile(fs *flag.FlagSet) error {
	data, err := os.ReadFile(o.ConfigFile)
	if err != nil {
		return fmt.Errorf("reading config file, %w", err)
	}
	fromFile := &fileOptions{}
	if err := yaml.Unmarshal(data, fromFile); err != nil {
		return fmt.Errorf("parsing config file %s, %w", o.ConfigFile, err)
	}

	setOnCommandLine := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { setOnCommandLine[f.Name] = true })
	fixed := func(flagName, envVarName string) bool {
		_, fromEnv := os.LookupEnv(envVarName)
		return setOnCommandLine[flagName] || fromEnv
	}

	if !fixed(clouddriverEndpointFlagName, clouddriverEndpointEnvVarName) && fromFile.ClouddriverEndpoint != "" {
		o.ClouddriverEndpoint = fromFile.ClouddriverEndpoint
	}
	if !fixed(requestTimeoutFlagName, requestTimeoutEnvVarName) && fromFile.RequestTimeout != "" {
		timeout, err := time.ParseDuration(fromFile.RequestTimeout)
		if err != nil {
			return fmt.Errorf("parsing requestTimeout in config file %s, %w", o.ConfigFile, err)
		}
		o.RequestTimeout = timeout
	}
	if !fixed(resolveMissingFlagName, resolveMissingEnvVarName) && fromFile.DefaultResolveMissingLocations != nil {
		o.DefaultResolveMissingLocations = *fromFile.DefaultResolveMissingLocations
	}
	return nil
}

func (o *Options) ToContext(ctx context.Context) context.Context {
	return ToContext(ctx, o)
}

func ToContext(ctx context.Context, opts *Options) context.Context {
	return context.WithValue(ctx, optionsKey{}, opts)
}

func FromContext(ctx context.Context) *Options {
	retval := ctx.Value(optionsKey{})
	if retval == nil {
		return nil
	}
	return retval.(*Options)
}
