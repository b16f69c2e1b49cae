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

package clouddriver

// SummaryTypeImage asks the inventory service to reduce the server group to
// its machine image fields.
const SummaryTypeImage = "image"

type ServerGroupSummaryRequest struct {
	Application       string
	Account           string
	Cluster           string
	CloudProvider     string
	Location          string
	SelectionStrategy string
	SummaryType       string
	OnlyEnabled       bool
}

// ServerGroupSummary is the per-location lookup result. Image and BuildInfo
// carry provider- and bake-specific metadata of no fixed shape; they are kept
// loosely typed and merged into deployment details downstream.
type ServerGroupSummary struct {
	ServerGroupName string `json:"serverGroupName"`
	ImageName       string `json:"imageName"`
	ImageID         string `json:"imageId"`
	Image           any    `json:"image,omitempty"`
	BuildInfo       any    `json:"buildInfo,omitempty"`
}

type FindImagesRequest struct {
	CloudProvider string
	Pattern       string
	Account       string
	// Region is accepted by the catalog but never set by this task; images
	// are matched per location through the Amis mapping instead.
	Region string
}

// FoundImage is one image catalog entry. Amis maps a location value (region
// or zone) to the image ids registered there.
type FoundImage struct {
	ImageName string              `json:"imageName"`
	Amis      map[string][]string `json:"amis,omitempty"`
}
