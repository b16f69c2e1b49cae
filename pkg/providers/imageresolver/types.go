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

package imageresolver

import (
	"github.com/go-openapi/swag"
	"github.com/samber/lo"

	"github.com/kevinheins/orca/pkg/utils"
)

// LocationType distinguishes the two granularities a cluster can be looked
// up at. The value doubles as the deployment detail field name.
type LocationType string

const (
	LocationTypeRegion LocationType = "region"
	LocationTypeZone   LocationType = "zone"
)

// Location identifies one region or zone. Comparable, so it can key the
// per-location summary mapping.
type Location struct {
	Type  LocationType
	Value string
}

// Strategy selects which server group of a cluster the inventory service
// should summarize. Passed through verbatim; the selection logic lives
// server-side.
type Strategy string

const (
	StrategyLargest Strategy = "LARGEST"
	StrategyNewest  Strategy = "NEWEST"
	StrategyOldest  Strategy = "OLDEST"
	StrategyFail    Strategy = "FAIL"
)

var knownStrategies = []Strategy{StrategyLargest, StrategyNewest, StrategyOldest, StrategyFail}

func (s Strategy) Valid() bool {
	return lo.Contains(knownStrategies, s)
}

type FindImageConfiguration struct {
	Cluster                 string   `json:"cluster"`
	Regions                 []string `json:"regions,omitempty"`
	Zones                   []string `json:"zones,omitempty"`
	OnlyEnabled             *bool    `json:"onlyEnabled,omitempty"`
	ResolveMissingLocations *bool    `json:"resolveMissingLocations,omitempty"`
	SelectionStrategy       Strategy `json:"selectionStrategy,omitempty"`
}

func (c FindImageConfiguration) AppName() string {
	return utils.AppNameFromCluster(c.Cluster)
}

// RequiredLocations returns the locations the cluster must resolve in.
// Regions take precedence over zones when both are configured.
func (c FindImageConfiguration) RequiredLocations() []Location {
	if len(c.Regions) > 0 {
		return lo.Map(c.Regions, func(region string, _ int) Location {
			return Location{Type: LocationTypeRegion, Value: region}
		})
	}
	return lo.Map(c.Zones, func(zone string, _ int) Location {
		return Location{Type: LocationTypeZone, Value: zone}
	})
}

func (c FindImageConfiguration) Strategy() Strategy {
	if c.SelectionStrategy == "" {
		return StrategyNewest
	}
	return c.SelectionStrategy
}

func (c FindImageConfiguration) Enabled() bool {
	if c.OnlyEnabled == nil {
		return true
	}
	return swag.BoolValue(c.OnlyEnabled)
}

func (c FindImageConfiguration) resolveMissing() bool {
	return swag.BoolValue(c.ResolveMissingLocations)
}

// DeploymentDetail is the flattened per-location output record. Beyond the
// fixed identity keys it carries whatever image and build metadata the
// summary held, so it stays an open map.
type DeploymentDetail map[string]any
