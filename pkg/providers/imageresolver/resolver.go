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
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"k8s.io/klog/v2"

	"github.com/kevinheins/orca/pkg/clouddriver"
	pkgcache "github.com/kevinheins/orca/pkg/cache"
)

// failStrategyMarker appears in the inventory service's 404 body when a FAIL
// selection strategy matched more than one server group.
const failStrategyMarker = "target.fail.strategy"

type Provider interface {
	Resolve(ctx context.Context, cluster, cloudProvider, account string, config FindImageConfiguration) ([]DeploymentDetail, error)
}

type DefaultProvider struct {
	client clouddriver.Client

	basePattern      *regexp.Regexp
	foundImagesCache *cache.Cache
}

// NewDefaultProvider builds a resolver over the given inventory client.
// baseImageSuffixes may be nil to use DefaultBaseImageSuffixes.
func NewDefaultProvider(client clouddriver.Client, baseImageSuffixes []string) *DefaultProvider {
	if len(baseImageSuffixes) == 0 {
		baseImageSuffixes = DefaultBaseImageSuffixes
	}
	return &DefaultProvider{
		client:           client,
		basePattern:      baseImagePattern(baseImageSuffixes),
		foundImagesCache: cache.New(pkgcache.FoundImagesExpirationPeriod, pkgcache.DefaultCleanupInterval),
	}
}

// Resolve looks up the image each location's active server group runs,
// backfills locations without a server group from the image catalog when
// configured to, and flattens the result into deployment details ordered by
// the configured locations.
func (p *DefaultProvider) Resolve(ctx context.Context, cluster, cloudProvider, account string, config FindImageConfiguration) ([]DeploymentDetail, error) {
	locations := config.RequiredLocations()

	summaries := map[Location]*clouddriver.ServerGroupSummary{}
	var imageNames []string
	var missing []Location
	for _, location := range locations {
		summary, err := p.client.GetServerGroupSummary(ctx, clouddriver.ServerGroupSummaryRequest{
			Application:       config.AppName(),
			Account:           account,
			Cluster:           cluster,
			CloudProvider:     cloudProvider,
			Location:          location.Value,
			SelectionStrategy: string(config.Strategy()),
			SummaryType:       clouddriver.SummaryTypeImage,
			OnlyEnabled:       config.Enabled(),
		})
		if err != nil {
			if !clouddriver.IsNotFound(err) {
				// Transient transport faults stay untouched so the
				// orchestrator's retry policy can apply.
				return nil, err
			}
			reason, ok := clouddriver.ErrorReason(err)
			if !ok {
				return nil, fmt.Errorf("unexpected response from API, %w", err)
			}
			if strings.Contains(reason, failStrategyMarker) {
				return nil, fmt.Errorf("multiple possible server groups present in %s", location.Value)
			}
			if !config.resolveMissing() {
				return nil, fmt.Errorf("could not find cluster %s for %s in %s", cluster, account, location.Value)
			}
			missing = append(missing, location)
			summaries[location] = nil
			continue
		}
		summaries[location] = summary
		imageNames = append(imageNames, summary.ImageName)
	}

	if len(missing) > 0 {
		if err := p.backfillMissing(ctx, cluster, cloudProvider, account, imageNames, locations, missing, summaries); err != nil {
			return nil, err
		}
	}

	details := make([]DeploymentDetail, 0, len(locations))
	for _, location := range locations {
		details = append(details, flatten(location, summaries[location]))
	}
	return details, nil
}

func (p *DefaultProvider) backfillMissing(ctx context.Context, cluster, cloudProvider, account string,
	imageNames []string, locations, missing []Location, summaries map[Location]*clouddriver.ServerGroupSummary) error {
	baseNames := extractBaseNames(p.basePattern, imageNames)
	if len(baseNames) != 1 {
		return fmt.Errorf("resolving images for missing locations requires exactly one image, found %v", baseNames)
	}

	// The first resolved location in configured order serves as the metadata
	// template, keeping repeated runs deterministic.
	templateLocation, ok := lo.Find(locations, func(location Location) bool {
		return summaries[location] != nil
	})
	if !ok {
		return fmt.Errorf("resolving images for missing locations requires at least one resolved location")
	}
	template := summaries[templateLocation]
	templateImage, imageOK := asMetadata(template.Image)
	templateBuildInfo, buildOK := asMetadata(template.BuildInfo)
	if !imageOK || len(templateImage) == 0 || !buildOK || len(templateBuildInfo) == 0 {
		return fmt.Errorf("missing image or buildInfo on %+v", template)
	}

	images, err := p.findImages(ctx, clouddriver.FindImagesRequest{
		CloudProvider: cloudProvider,
		Pattern:       baseNames[0] + "*",
		Account:       account,
	})
	if err != nil {
		return err
	}

	for _, image := range images {
		if len(image.Amis) == 0 {
			continue
		}
		for _, location := range missing {
			// First catalog entry to supply a location wins.
			if summaries[location] != nil {
				continue
			}
			imageIDs, found := image.Amis[location.Value]
			if !found || len(imageIDs) == 0 {
				continue
			}
			summaries[location] = &clouddriver.ServerGroupSummary{
				ServerGroupName: cluster,
				ImageName:       image.ImageName,
				ImageID:         imageIDs[0],
				Image: mergeMetadata(templateImage, map[string]any{
					"imageId": imageIDs[0],
					"name":    image.ImageName,
				}),
				BuildInfo: template.BuildInfo,
			}
		}
	}

	stillMissing := lo.Filter(missing, func(location Location, _ int) bool {
		return summaries[location] == nil
	})
	if len(stillMissing) > 0 {
		values := lo.Map(stillMissing, func(location Location, _ int) string { return location.Value })
		return fmt.Errorf("still missing images in %v", values)
	}
	return nil
}

func (p *DefaultProvider) findImages(ctx context.Context, req clouddriver.FindImagesRequest) ([]clouddriver.FoundImage, error) {
	hash, err := hashstructure.Hash(req, hashstructure.FormatV2, nil)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%d", hash)
	if images, ok := p.foundImagesCache.Get(key); ok {
		return images.([]clouddriver.FoundImage), nil
	}

	images, err := p.client.FindImages(ctx, req)
	if err != nil {
		return nil, err
	}
	p.foundImagesCache.SetDefault(key, images)
	return images, nil
}

// flatten builds the output record for one location. Metadata that cannot be
// merged is logged and skipped; the identity fields are already populated and
// partial metadata beats failing the whole task at this point.
func flatten(location Location, summary *clouddriver.ServerGroupSummary) DeploymentDetail {
	detail := DeploymentDetail{
		// imageId is duplicated under ami for older consumers.
		"imageId":           summary.ImageID,
		"ami":               summary.ImageID,
		"imageName":         summary.ImageName,
		"sourceServerGroup": summary.ServerGroupName,
	}
	detail[string(location.Type)] = location.Value
	for _, metadata := range []any{summary.Image, summary.BuildInfo} {
		if metadata == nil {
			continue
		}
		fields, ok := asMetadata(metadata)
		if !ok {
			klog.Errorf("Unable to merge metadata %v into deployment details for %s", metadata, location.Value)
			continue
		}
		for key, value := range fields {
			detail[key] = value
		}
	}
	return detail
}

func asMetadata(value any) (map[string]any, bool) {
	if value == nil {
		return nil, true
	}
	fields, ok := value.(map[string]any)
	return fields, ok
}

func mergeMetadata(maps ...map[string]any) map[string]any {
	merged := map[string]any{}
	for _, fields := range maps {
		for key, value := range fields {
			merged[key] = value
		}
	}
	return merged
}
