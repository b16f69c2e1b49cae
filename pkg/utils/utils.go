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

package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// AppNameFromCluster returns the application a cluster belongs to: the
// leading token of the cluster name, e.g. "myapp" for "myapp-main-v2".
func AppNameFromCluster(cluster string) string {
	if idx := strings.Index(cluster, "-"); idx >= 0 {
		return cluster[:idx]
	}
	return cluster
}

// WithDefaultString returns the value of the supplied environment variable
// or, if not present, the supplied default value.
func WithDefaultString(key string, def string) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return val
}

// WithDefaultBool returns the bool value of the supplied environment variable
// or, if not present, the supplied default value. If the bool conversion
// fails, returns the default
func WithDefaultBool(key string, def bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}

// WithDefaultDuration returns the duration value of the supplied environment
// variable or, if not present, the supplied default value. If the duration
// conversion fails, returns the default
func WithDefaultDuration(key string, def time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}
