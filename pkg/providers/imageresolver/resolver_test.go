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
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinheins/orca/pkg/clouddriver"
)

type fakeClient struct {
	summaries   map[string]*clouddriver.ServerGroupSummary
	summaryErrs map[string]error

	images    []clouddriver.FoundImage
	findErr   error
	findCalls int

	summaryRequests []clouddriver.ServerGroupSummaryRequest
}

func (f *fakeClient) GetServerGroupSummary(_ context.Context, req clouddriver.ServerGroupSummaryRequest) (*clouddriver.ServerGroupSummary, error) {
	f.summaryRequests = append(f.summaryRequests, req)
	if err, ok := f.summaryErrs[req.Location]; ok {
		return nil, err
	}
	if summary, ok := f.summaries[req.Location]; ok {
		return summary, nil
	}
	return nil, notFoundErr(`{"error":"Not Found","message":"no server group"}`)
}

func (f *fakeClient) FindImages(_ context.Context, _ clouddriver.FindImagesRequest) ([]clouddriver.FoundImage, error) {
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.images, nil
}

func notFoundErr(body string) error {
	return &clouddriver.APIError{
		StatusCode: http.StatusNotFound,
		Method:     http.MethodGet,
		URL:        "http://clouddriver/serverGroups",
		Body:       []byte(body),
	}
}

func summaryFixture(serverGroup, imageName, imageID string) *clouddriver.ServerGroupSummary {
	return &clouddriver.ServerGroupSummary{
		ServerGroupName: serverGroup,
		ImageName:       imageName,
		ImageID:         imageID,
		Image:           map[string]any{"foo": 1, "job": "from-image"},
		BuildInfo:       map[string]any{"job": "x"},
	}
}

func TestResolveEmptyLocationsSucceedsWithEmptyResult(t *testing.T) {
	client := &fakeClient{}
	resolver := NewDefaultProvider(client, nil)

	details, err := resolver.Resolve(context.Background(), "myapp-main", "aws", "prod", FindImageConfiguration{Cluster: "myapp-main"})

	require.NoError(t, err)
	assert.Empty(t, details)
	assert.Empty(t, client.summaryRequests)
	assert.Zero(t, client.findCalls)
}

func TestResolvePopulatesDetailsPerRegion(t *testing.T) {
	client := &fakeClient{
		summaries: map[string]*clouddriver.ServerGroupSummary{
			"us-east-1": summaryFixture("myapp-main-v003", "myapp-ebs", "ami-east"),
			"us-west-2": summaryFixture("myapp-main-v004", "myapp-ebs", "ami-west"),
		},
	}
	resolver := NewDefaultProvider(client, nil)

	details, err := resolver.Resolve(context.Background(), "myapp-main", "aws", "prod", FindImageConfiguration{
		Cluster: "myapp-main",
		Regions: []string{"us-east-1", "us-west-2"},
	})

	require.NoError(t, err)
	require.Len(t, details, 2)

	east := details[0]
	assert.Equal(t, "ami-east", east["imageId"])
	assert.Equal(t, "ami-east", east["ami"], "imageId must be duplicated under ami")
	assert.Equal(t, "myapp-ebs", east["imageName"])
	assert.Equal(t, "myapp-main-v003", east["sourceServerGroup"])
	assert.Equal(t, "us-east-1", east["region"])
	assert.NotContains(t, east, "zone")
	assert.Equal(t, 1, east["foo"])
	assert.Equal(t, "x", east["job"], "buildInfo keys win over image metadata keys")

	assert.Equal(t, "us-west-2", details[1]["region"])
}

func TestResolveRequestParameters(t *testing.T) {
	client := &fakeClient{
		summaries: map[string]*clouddriver.ServerGroupSummary{
			"us-east-1": summaryFixture("myapp-main-v003", "myapp-ebs", "ami-east"),
		},
	}
	resolver := NewDefaultProvider(client, nil)

	_, err := resolver.Resolve(context.Background(), "myapp-main", "titus", "prod", FindImageConfiguration{
		Cluster:           "myapp-main",
		Regions:           []string{"us-east-1"},
		OnlyEnabled:       aws.Bool(false),
		SelectionStrategy: StrategyOldest,
	})

	require.NoError(t, err)
	require.Len(t, client.summaryRequests, 1)
	req := client.summaryRequests[0]
	assert.Equal(t, "myapp", req.Application)
	assert.Equal(t, "prod", req.Account)
	assert.Equal(t, "myapp-main", req.Cluster)
	assert.Equal(t, "titus", req.CloudProvider)
	assert.Equal(t, "us-east-1", req.Location)
	assert.Equal(t, "OLDEST", req.SelectionStrategy)
	assert.Equal(t, "image", req.SummaryType)
	assert.False(t, req.OnlyEnabled)
}

func TestResolveZoneLocationsPopulateZoneField(t *testing.T) {
	client := &fakeClient{
		summaries: map[string]*clouddriver.ServerGroupSummary{
			"us-central1-a": summaryFixture("myapp-main-v001", "myapp-ebs", "ami-1"),
		},
	}
	resolver := NewDefaultProvider(client, nil)

	details, err := resolver.Resolve(context.Background(), "myapp-main", "gce", "prod", FindImageConfiguration{
		Cluster: "myapp-main",
		Zones:   []string{"us-central1-a"},
	})

	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "us-central1-a", details[0]["zone"])
	assert.NotContains(t, details[0], "region")
}

func TestResolveRegionsTakePrecedenceOverZones(t *testing.T) {
	client := &fakeClient{
		summaries: map[string]*clouddriver.ServerGroupSummary{
			"us-east-1": summaryFixture("myapp-main-v001", "myapp-ebs", "ami-1"),
		},
	}
	resolver := NewDefaultProvider(client, nil)

	details, err := resolver.Resolve(context.Background(), "myapp-main", "aws", "prod", FindImageConfiguration{
		Cluster: "myapp-main",
		Regions: []string{"us-east-1"},
		Zones:   []string{"us-east-1a"},
	})

	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "us-east-1", details[0]["region"])
}

func TestResolveFailStrategyConflictAbortsBeforeCatalogSearch(t *testing.T) {
	client := &fakeClient{
		summaryErrs: map[string]error{
			"us-east-1": notFoundErr(`{"error":"target.fail.strategy","message":"more than one server group"}`),
		},
	}
	resolver := NewDefaultProvider(client, nil)

	_, err := resolver.Resolve(context.Background(), "myapp-main", "aws", "prod", FindImageConfiguration{
		Cluster:                 "myapp-main",
		Regions:                 []string{"us-east-1"},
		SelectionStrategy:       StrategyFail,
		ResolveMissingLocations: aws.Bool(true),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple possible server groups present in us-east-1")
	assert.Zero(t, client.findCalls)
}

func TestResolveMissingLocationDisallowedFails(t *testing.T) {
	client := &fakeClient{}
	resolver := NewDefaultProvider(client, nil)

	_, err := resolver.Resolve(context.Background(), "myapp-main", "aws", "prod", FindImageConfiguration{
		Cluster: "myapp-main",
		Regions: []string{"eu-west-1"},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not find cluster myapp-main for prod in eu-west-1")
}

func TestResolveUnparseable404Fails(t *testing.T) {
	client := &fakeClient{
		summaryErrs: map[string]error{
			"us-east-1": notFoundErr("<html>gateway error</html>"),
		},
	}
	resolver := NewDefaultProvider(client, nil)

	_, err := resolver.Resolve(context.Background(), "myapp-main", "aws", "prod", FindImageConfiguration{
		Cluster:                 "myapp-main",
		Regions:                 []string{"us-east-1"},
		ResolveMissingLocations: aws.Bool(true),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected response from API")
}

func TestResolveNon404ErrorPropagatesUnchanged(t *testing.T) {
	transportErr := errors.New("connection refused")
	client := &fakeClient{
		summaryErrs: map[string]error{"us-east-1": transportErr},
	}
	resolver := NewDefaultProvider(client, nil)

	_, err := resolver.Resolve(context.Background(), "myapp-main", "aws", "prod", FindImageConfiguration{
		Cluster:                 "myapp-main",
		Regions:                 []string{"us-east-1"},
		ResolveMissingLocations: aws.Bool(true),
	})

	require.ErrorIs(t, err, transportErr)
}

func TestResolveBackfillsMissingLocationFromCatalog(t *testing.T) {
	client := &fakeClient{
		summaries: map[string]*clouddriver.ServerGroupSummary{
			"us-east-1": summaryFixture("myapp-main-v003", "myapp-ebs3", "ami-east"),
		},
		images: []clouddriver.FoundImage{
			{ImageName: "myapp-ebs4", Amis: map[string][]string{"us-west-2": {"ami-123", "ami-456"}}},
			{ImageName: "myapp-ebs5", Amis: map[string][]string{"us-west-2": {"ami-999"}}},
		},
	}
	resolver := NewDefaultProvider(client, nil)

	details, err := resolver.Resolve(context.Background(), "myapp-main", "aws", "prod", FindImageConfiguration{
		Cluster:                 "myapp-main",
		Regions:                 []string{"us-east-1", "us-west-2"},
		ResolveMissingLocations: aws.Bool(true),
	})

	require.NoError(t, err)
	require.Len(t, details, 2)

	west := details[1]
	assert.Equal(t, "ami-123", west["imageId"], "first id of the first matching catalog entry wins")
	assert.Equal(t, "ami-123", west["ami"])
	assert.Equal(t, "myapp-ebs4", west["imageName"])
	assert.Equal(t, "myapp-main", west["sourceServerGroup"], "synthesized summary uses the cluster name")
	assert.Equal(t, "us-west-2", west["region"])
	assert.Equal(t, 1, west["foo"], "template image metadata carries over")
	assert.Equal(t, "x", west["job"], "template buildInfo carries over unchanged")
	assert.Equal(t, "myapp-ebs4", west["name"], "merged image metadata overrides name")
}

func TestResolveBackfillSynthesizedImageMetadata(t *testing.T) {
	client := &fakeClient{
		summaries: map[string]*clouddriver.ServerGroupSummary{
			"us-east-1": summaryFixture("myapp-main-v003", "myapp-ebs3", "ami-east"),
		},
		images: []clouddriver.FoundImage{
			{ImageName: "myapp-ebs4", Amis: map[string][]string{"us-west-2": {"ami-123"}}},
		},
	}
	resolver := NewDefaultProvider(client, nil)

	details, err := resolver.Resolve(context.Background(), "myapp-main", "aws", "prod", FindImageConfiguration{
		Cluster:                 "myapp-main",
		Regions:                 []string{"us-east-1", "us-west-2"},
		ResolveMissingLocations: aws.Bool(true),
	})

	require.NoError(t, err)
	west := details[1]
	assert.Equal(t, "ami-123", west["imageId"])
	assert.Equal(t, "myapp-ebs4", west["name"])
	assert.Equal(t, 1, west["foo"])
}

func TestResolveBackfillRequiresExactlyOneBaseName(t *testing.T) {
	client := &fakeClient{
		summaries: map[string]*clouddriver.ServerGroupSummary{
			"us-east-1": summaryFixture("myapp-main-v003", "myapp-ebs", "ami-east"),
			"eu-west-1": summaryFixture("myapp-main-v002", "other-s3", "ami-eu"),
		},
	}
	resolver := NewDefaultProvider(client, nil)

	_, err := resolver.Resolve(context.Background(), "myapp-main", "aws", "prod", FindImageConfiguration{
		Cluster:                 "myapp-main",
		Regions:                 []string{"us-east-1", "eu-west-1", "us-west-2"},
		ResolveMissingLocations: aws.Bool(true),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires exactly one image")
	assert.Zero(t, client.findCalls)
}

func TestResolveBaseNameAmbiguityIgnoredWithoutMissingLocations(t *testing.T) {
	client := &fakeClient{
		summaries: map[string]*clouddriver.ServerGroupSummary{
			"us-east-1": summaryFixture("myapp-main-v003", "myapp-ebs", "ami-east"),
			"eu-west-1": summaryFixture("myapp-main-v002", "other-s3", "ami-eu"),
		},
	}
	resolver := NewDefaultProvider(client, nil)

	details, err := resolver.Resolve(context.Background(), "myapp-main", "aws", "prod", FindImageConfiguration{
		Cluster: "myapp-main",
		Regions: []string{"us-east-1", "eu-west-1"},
	})

	require.NoError(t, err, "the base-name check only applies when locations are missing")
	assert.Len(t, details, 2)
}

func TestResolveBackfillRequiresTemplateMetadata(t *testing.T) {
	client := &fakeClient{
		summaries: map[string]*clouddriver.ServerGroupSummary{
			"us-east-1": {
				ServerGroupName: "myapp-main-v003",
				ImageName:       "myapp-ebs",
				ImageID:         "ami-east",
				Image:           map[string]any{"foo": 1},
			},
		},
	}
	resolver := NewDefaultProvider(client, nil)

	_, err := resolver.Resolve(context.Background(), "myapp-main", "aws", "prod", FindImageConfiguration{
		Cluster:                 "myapp-main",
		Regions:                 []string{"us-east-1", "us-west-2"},
		ResolveMissingLocations: aws.Bool(true),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing image or buildInfo on")
}

func TestResolveBackfillStillMissingFails(t *testing.T) {
	client := &fakeClient{
		summaries: map[string]*clouddriver.ServerGroupSummary{
			"us-east-1": summaryFixture("myapp-main-v003", "myapp-ebs", "ami-east"),
		},
		images: []clouddriver.FoundImage{
			{ImageName: "myapp-ebs4", Amis: map[string][]string{"eu-west-1": {"ami-eu"}}},
		},
	}
	resolver := NewDefaultProvider(client, nil)

	_, err := resolver.Resolve(context.Background(), "myapp-main", "aws", "prod", FindImageConfiguration{
		Cluster:                 "myapp-main",
		Regions:                 []string{"us-east-1", "us-west-2"},
		ResolveMissingLocations: aws.Bool(true),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "still missing images in [us-west-2]")
}

func TestResolveIsIdempotentAndMemoizesCatalogSearch(t *testing.T) {
	client := &fakeClient{
		summaries: map[string]*clouddriver.ServerGroupSummary{
			"us-east-1": summaryFixture("myapp-main-v003", "myapp-ebs3", "ami-east"),
		},
		images: []clouddriver.FoundImage{
			{ImageName: "myapp-ebs4", Amis: map[string][]string{"us-west-2": {"ami-123"}}},
		},
	}
	resolver := NewDefaultProvider(client, nil)
	config := FindImageConfiguration{
		Cluster:                 "myapp-main",
		Regions:                 []string{"us-east-1", "us-west-2"},
		ResolveMissingLocations: aws.Bool(true),
	}

	first, err := resolver.Resolve(context.Background(), "myapp-main", "aws", "prod", config)
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), "myapp-main", "aws", "prod", config)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, client.findCalls, "the catalog search is served from cache on the second run")
}

func TestResolveSkipsUnmergeableMetadata(t *testing.T) {
	client := &fakeClient{
		summaries: map[string]*clouddriver.ServerGroupSummary{
			"us-east-1": {
				ServerGroupName: "myapp-main-v003",
				ImageName:       "myapp-ebs",
				ImageID:         "ami-east",
				Image:           "not-a-map",
				BuildInfo:       map[string]any{"job": "x"},
			},
		},
	}
	resolver := NewDefaultProvider(client, nil)

	details, err := resolver.Resolve(context.Background(), "myapp-main", "aws", "prod", FindImageConfiguration{
		Cluster: "myapp-main",
		Regions: []string{"us-east-1"},
	})

	require.NoError(t, err, "a metadata merge failure must not fail the task")
	require.Len(t, details, 1)
	assert.Equal(t, "ami-east", details[0]["imageId"])
	assert.Equal(t, "x", details[0]["job"])
}
