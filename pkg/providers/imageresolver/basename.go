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
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// DefaultBaseImageSuffixes are the store-type tokens bake pipelines append
// to image names. Concurrent bakes for the same application disambiguate by
// appending trailing characters after the token, e.g. "app-ebs2".
var DefaultBaseImageSuffixes = []string{"-ebs", "-s3"}

func baseImagePattern(suffixes []string) *regexp.Regexp {
	quoted := lo.Map(suffixes, func(suffix string, _ int) string {
		return regexp.QuoteMeta(suffix)
	})
	return regexp.MustCompile(fmt.Sprintf(`^(.*(%s)).*$`, strings.Join(quoted, "|")))
}

// extractBaseNames reduces image names to the distinct base names up to and
// including the store-type suffix, dropping names that carry no suffix:
// {"foo-ebs", "foo-ebs2", "bar-s3-9"} -> {"foo-ebs", "bar-s3"}. The result
// is sorted for stable output.
func extractBaseNames(pattern *regexp.Regexp, imageNames []string) []string {
	baseNames := lo.FilterMap(imageNames, func(name string, _ int) (string, bool) {
		match := pattern.FindStringSubmatch(name)
		if match == nil {
			return "", false
		}
		return match[1], true
	})
	baseNames = lo.Uniq(baseNames)
	sort.Strings(baseNames)
	return baseNames
}
