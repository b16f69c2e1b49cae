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
	"fmt"
	"net/url"

	"go.uber.org/multierr"
)

func (o *Options) Validate() error {
	return multierr.Combine(
		o.validateRequiredFields(),
		o.validateEndpoint(),
	)
}

func (o *Options) validateRequiredFields() error {
	if o.ClouddriverEndpoint == "" {
		return fmt.Errorf("missing required flag %s or env var %s", clouddriverEndpointFlagName, clouddriverEndpointEnvVarName)
	}
	return nil
}

func (o *Options) validateEndpoint() error {
	if o.ClouddriverEndpoint == "" {
		return nil
	}
	u, err := url.Parse(o.ClouddriverEndpoint)
	if err != nil {
		return fmt.Errorf("invalid %s %q, %w", clouddriverEndpointFlagName, o.ClouddriverEndpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s %q, expected an http(s) URL", clouddriverEndpointFlagName, o.ClouddriverEndpoint)
	}
	return nil
}
