package deployer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skylift/skylift/pkg/telemetry"
)

// Environment keys with platform-side or buildpack-side meaning.
const (
	// CombinedPropertiesKey holds the application properties as one JSON
	// blob when combined mode is on.
	CombinedPropertiesKey = "SPRING_APPLICATION_JSON"

	// TaskDefinitionKey names the owning task definition inside the
	// combined blob. Schedule listing reads it back.
	TaskDefinitionKey = "spring-task-definition-name"

	// serverPortKey is stripped in discrete mode: the platform assigns
	// ports and a literal value would collide with the expanded token.
	serverPortKey = "server.port"

	// argumentsKey carries command-line arguments through the buildpack.
	argumentsKey = "JBP_CONFIG_JAVA_MAIN"

	// groupKey exposes the deployment group to the running application.
	groupKey = "SPRING_CLOUD_APPLICATION_GROUP"

	// guidKey and indexKey are platform-expanded tokens, resolved per
	// instance by the platform at start time, never locally.
	guidKey  = "SPRING_CLOUD_APPLICATION_GUID"
	indexKey = "SPRING_APPLICATION_INDEX"

	guidToken  = "${vcap.application.name}:${vcap.application.instance_index}"
	indexToken = "${vcap.application.instance_index}"
)

// buildEnvironment constructs the full environment for a deployment or
// staging request.
//
// Application properties arrive either combined into one JSON blob under
// CombinedPropertiesKey (default) or as discrete entries; discrete mode
// strips serverPortKey with a warning. Command-line arguments travel via
// the buildpack argument convention. Group, guid, and index entries use
// platform-expanded tokens.
func buildEnvironment(def Definition, args []string, combined bool, logger *telemetry.Logger) (map[string]string, error) {
	env := make(map[string]string)

	if combined {
		if len(def.Properties) > 0 {
			blob, err := json.Marshal(def.Properties)
			if err != nil {
				return nil, NewInvalidInputError("encoding combined application properties", err).WithResource(def.Name)
			}
			env[CombinedPropertiesKey] = string(blob)
		}
	} else {
		for k, v := range def.Properties {
			if k == serverPortKey {
				logger.Warnf("ignoring %s=%s: the platform assigns ports", serverPortKey, v)
				continue
			}
			env[k] = v
		}
	}

	if len(args) > 0 {
		env[argumentsKey] = fmt.Sprintf("{arguments: %q}", strings.Join(args, " "))
	}

	if def.Group != "" {
		env[groupKey] = def.Group
	}
	env[guidKey] = guidToken
	env[indexKey] = indexToken

	return env, nil
}

// withTaskDefinition returns a copy of properties carrying the owning task
// definition name, for embedding into a schedule's staging environment.
func withTaskDefinition(properties map[string]string, taskDefinition string) map[string]string {
	merged := make(map[string]string, len(properties)+1)
	for k, v := range properties {
		merged[k] = v
	}
	merged[TaskDefinitionKey] = taskDefinition
	return merged
}

// decodeTaskDefinition extracts the task definition name from a remote
// environment. Combined mode stores it inside the blob, discrete mode as
// its own entry; both are checked. A present blob that fails to decode is
// an invariant violation; an absent name returns empty.
func decodeTaskDefinition(env map[string]string) (string, error) {
	if blob, ok := env[CombinedPropertiesKey]; ok {
		var properties map[string]string
		if err := json.Unmarshal([]byte(blob), &properties); err != nil {
			return "", NewInvariantError(fmt.Sprintf("malformed %s blob", CombinedPropertiesKey), err)
		}
		if name := properties[TaskDefinitionKey]; name != "" {
			return name, nil
		}
	}
	return env[TaskDefinitionKey], nil
}
