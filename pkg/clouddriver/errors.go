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
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/samber/lo"
)

// APIError is returned for any non-2xx clouddriver response. The raw body is
// preserved so callers can give specific statuses their own interpretation;
// this package does not decide what a 404 means.
type APIError struct {
	StatusCode int
	Method     string
	URL        string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clouddriver: %s %s returned %d", e.Method, e.URL, e.StatusCode)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ErrorReason extracts the error and message texts from a structured error
// body. The second return is false when the body is not a JSON object, in
// which case the response cannot be interpreted.
func ErrorReason(err error) (string, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return "", false
	}
	reason := map[string]any{}
	if jsonErr := json.Unmarshal(apiErr.Body, &reason); jsonErr != nil {
		return "", false
	}
	texts := lo.FilterMap([]string{"error", "message"}, func(key string, _ int) (string, bool) {
		text, ok := reason[key].(string)
		return text, ok && text != ""
	})
	return strings.Join(texts, ": "), true
}
