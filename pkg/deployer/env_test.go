package deployer

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/skylift/skylift/pkg/telemetry"
)

func testLogger() *telemetry.Logger {
	return telemetry.NewNop().Logger
}

func TestBuildEnvironmentCombinedRoundTrip(t *testing.T) {
	props := map[string]string{
		"spring.datasource.url": "jdbc:postgresql://db/flow",
		"logging.level.root":    "WARN",
		"server.port":           "8080",
	}
	def := Definition{Name: "time", Properties: props}

	env, err := buildEnvironment(def, nil, true, testLogger())
	if err != nil {
		t.Fatalf("buildEnvironment failed: %v", err)
	}

	blob, ok := env[CombinedPropertiesKey]
	if !ok {
		t.Fatalf("combined key missing from env: %v", env)
	}
	var decoded map[string]string
	if err := json.Unmarshal([]byte(blob), &decoded); err != nil {
		t.Fatalf("combined blob not valid JSON: %v", err)
	}
	if !reflect.DeepEqual(decoded, props) {
		t.Errorf("round trip mismatch: got %v, want %v", decoded, props)
	}

	// Discrete entries must not leak alongside the blob.
	if _, ok := env["logging.level.root"]; ok {
		t.Error("discrete property leaked in combined mode")
	}
}

func TestBuildEnvironmentDiscreteStripsPort(t *testing.T) {
	def := Definition{
		Name: "time",
		Properties: map[string]string{
			"logging.level.root": "WARN",
			"server.port":        "8080",
		},
	}

	env, err := buildEnvironment(def, nil, false, testLogger())
	if err != nil {
		t.Fatalf("buildEnvironment failed: %v", err)
	}
	if _, ok := env[CombinedPropertiesKey]; ok {
		t.Error("combined key emitted in discrete mode")
	}
	if got := env["logging.level.root"]; got != "WARN" {
		t.Errorf("discrete property = %q, want WARN", got)
	}
	if _, ok := env["server.port"]; ok {
		t.Error("port property was not stripped in discrete mode")
	}
}

func TestBuildEnvironmentArgsAndTokens(t *testing.T) {
	def := Definition{Name: "time", Group: "ticktock"}

	env, err := buildEnvironment(def, []string{"--spring.profiles.active=cloud", "--debug"}, true, testLogger())
	if err != nil {
		t.Fatalf("buildEnvironment failed: %v", err)
	}
	if got := env[argumentsKey]; got != `{arguments: "--spring.profiles.active=cloud --debug"}` {
		t.Errorf("arguments entry = %q", got)
	}
	if got := env[groupKey]; got != "ticktock" {
		t.Errorf("group entry = %q, want ticktock", got)
	}
	// Tokens are expanded by the platform, never locally.
	if got := env[guidKey]; got != guidToken {
		t.Errorf("guid entry = %q, want the unexpanded token", got)
	}
	if got := env[indexKey]; got != indexToken {
		t.Errorf("index entry = %q, want the unexpanded token", got)
	}
}

func TestDecodeTaskDefinition(t *testing.T) {
	env := map[string]string{
		CombinedPropertiesKey: `{"spring-task-definition-name":"report-task","other":"x"}`,
	}
	got, err := decodeTaskDefinition(env)
	if err != nil {
		t.Fatalf("decodeTaskDefinition failed: %v", err)
	}
	if got != "report-task" {
		t.Errorf("task definition = %q, want report-task", got)
	}
}

func TestDecodeTaskDefinitionAbsent(t *testing.T) {
	got, err := decodeTaskDefinition(map[string]string{"OTHER": "x"})
	if err != nil || got != "" {
		t.Errorf("expected empty result for absent blob, got %q err=%v", got, err)
	}
}

func TestDecodeTaskDefinitionDiscreteEntry(t *testing.T) {
	// Discrete mode stores the name as its own entry, no combined blob.
	env := map[string]string{
		TaskDefinitionKey:    "report-task",
		"logging.level.root": "WARN",
	}
	got, err := decodeTaskDefinition(env)
	if err != nil {
		t.Fatalf("decodeTaskDefinition failed: %v", err)
	}
	if got != "report-task" {
		t.Errorf("task definition = %q, want report-task", got)
	}

	// A blob without the name still falls back to the discrete entry.
	env[CombinedPropertiesKey] = `{"other":"x"}`
	got, err = decodeTaskDefinition(env)
	if err != nil || got != "report-task" {
		t.Errorf("fallback = %q err=%v, want report-task", got, err)
	}
}

func TestDecodeTaskDefinitionMalformedIsFatal(t *testing.T) {
	env := map[string]string{CombinedPropertiesKey: "{not json"}
	if _, err := decodeTaskDefinition(env); err == nil || !IsInvariant(err) {
		t.Errorf("expected invariant error for malformed blob, got %v", err)
	}
}

func TestWithTaskDefinitionDoesNotMutate(t *testing.T) {
	original := map[string]string{"a": "1"}
	merged := withTaskDefinition(original, "report-task")
	if merged[TaskDefinitionKey] != "report-task" || merged["a"] != "1" {
		t.Errorf("unexpected merged map: %v", merged)
	}
	if _, ok := original[TaskDefinitionKey]; ok {
		t.Error("input map was mutated")
	}
}
