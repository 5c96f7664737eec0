package events

import (
	"os"
	"path/filepath"
	"testing"
)

func writeEventsFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write events file: %v", err)
	}
	return path
}

func TestLoadRegistryYAML(t *testing.T) {
	path := writeEventsFile(t, "events.yaml", `
sinks:
  - id: " hook "
    type: HTTP
    http:
      url: https://example.com/events
      headers:
        X-Key: " abc "
        Empty: ""
  - id: queue
    type: sqs
    enabled: false
    sqs:
      uri: https://sqs.us-east-1.amazonaws.com/123/ads
      region: us-east-1
  - id: topic
    type: gcp_pubsub
    gcp_pubsub:
      project_id: proj
      topic: ads
`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.All()) != 3 {
		t.Fatalf("expected 3 sinks, got %d", len(reg.All()))
	}

	hook, ok := reg.ByID("hook")
	if !ok {
		t.Fatalf("hook sink not found")
	}
	if hook.Type != TypeHTTP || hook.HTTP.Method != httpDefaultMethod || hook.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("http defaults not applied: %+v", hook.HTTP)
	}
	if len(hook.HTTP.Headers) != 1 || hook.HTTP.Headers["X-Key"] != "abc" {
		t.Fatalf("headers not sanitized: %v", hook.HTTP.Headers)
	}

	queue, _ := reg.ByID("queue")
	if queue.SQS.Region != "us-east-1" || queue.EnabledValue() {
		t.Fatalf("unexpected sqs config %+v", queue)
	}

	enabled := reg.Enabled()
	if len(enabled) != 2 {
		t.Fatalf("expected 2 enabled sinks, got %d", len(enabled))
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := writeEventsFile(t, "events.json", `{"sinks":[{"id":"t","type":"sns","sns":{"topic_arn":"arn:aws:sns:eu-west-1:1:t","region":"eu-west-1"}}]}`)
	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	cfg, ok := reg.ByID("t")
	if !ok || cfg.SNS.TopicARN != "arn:aws:sns:eu-west-1:1:t" {
		t.Fatalf("unexpected sns config %+v", cfg)
	}
}

func TestLoadRegistryValidation(t *testing.T) {
	cases := map[string]string{
		"duplicate": `
sinks:
  - {id: a, type: http, http: {url: "https://x"}}
  - {id: a, type: http, http: {url: "https://y"}}
`,
		"missing region": `
sinks:
  - {id: q, type: sqs, sqs: {uri: "https://q"}}
`,
		"unknown type": `
sinks:
  - {id: k, type: kafka}
`,
		"empty": `sinks: []`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadRegistry(writeEventsFile(t, "events.yaml", body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadRegistryEmptyPath(t *testing.T) {
	if _, err := LoadRegistry("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
