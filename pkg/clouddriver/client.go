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

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"k8s.io/klog/v2"
)

type Client interface {
	GetServerGroupSummary(ctx context.Context, req ServerGroupSummaryRequest) (*ServerGroupSummary, error)
	FindImages(ctx context.Context, req FindImagesRequest) ([]FoundImage, error)
}

type DefaultClient struct {
	endpoint   string
	httpClient *http.Client
}

func NewDefaultClient(endpoint string, timeout time.Duration) *DefaultClient {
	return &DefaultClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *DefaultClient) GetServerGroupSummary(ctx context.Context, req ServerGroupSummaryRequest) (*ServerGroupSummary, error) {
	path := fmt.Sprintf("/applications/%s/clusters/%s/%s/%s/%s/serverGroups/target/%s/%s",
		url.PathEscape(req.Application),
		url.PathEscape(req.Account),
		url.PathEscape(req.Cluster),
		url.PathEscape(req.CloudProvider),
		url.PathEscape(req.Location),
		url.PathEscape(req.SelectionStrategy),
		url.PathEscape(req.SummaryType))
	query := url.Values{"onlyEnabled": []string{strconv.FormatBool(req.OnlyEnabled)}}

	summary := &ServerGroupSummary{}
	if err := c.get(ctx, path, query, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func (c *DefaultClient) FindImages(ctx context.Context, req FindImagesRequest) ([]FoundImage, error) {
	query := url.Values{
		"provider": []string{req.CloudProvider},
		"q":        []string{req.Pattern},
		"account":  []string{req.Account},
	}
	if req.Region != "" {
		query.Set("region", req.Region)
	}

	var images []FoundImage
	if err := c.get(ctx, "/images/find", query, &images); err != nil {
		return nil, err
	}
	return images, nil
}

func (c *DefaultClient) get(ctx context.Context, path string, query url.Values, out any) error {
	requestURL := c.endpoint + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("building request for %s, %w", path, err)
	}
	httpReq.Header.Set("Accept", "application/json")

	klog.V(2).Infof("GET %s", requestURL)
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response from %s, %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Method:     http.MethodGet,
			URL:        requestURL,
			Body:       body,
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response from %s, %w", path, err)
	}
	return nil
}
