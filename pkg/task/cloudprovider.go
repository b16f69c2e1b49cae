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

package task

const DefaultCloudProvider = "aws"

// CloudProvider resolves the cloud provider a stage targets.
func CloudProvider(stage *Stage) string {
	if provider, ok := stage.Context["cloudProvider"].(string); ok && provider != "" {
		return provider
	}
	return DefaultCloudProvider
}

// Account resolves the account credentials a stage targets. Stages may carry
// either key; credentials is the older spelling and wins.
func Account(stage *Stage) string {
	if account, ok := stage.Context["credentials"].(string); ok && account != "" {
		return account
	}
	account, _ := stage.Context["account"].(string)
	return account
}
