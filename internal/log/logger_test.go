// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestConfigureAttachesServiceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "voxdesk-test", Version: "v1.2.3"})

	logger := WithComponent("engine")
	logger.Info().Str("event", "turn.completed").Msg("done")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["service"] != "voxdesk-test" {
		t.Errorf("service = %v, want voxdesk-test", entry["service"])
	}
	if entry["version"] != "v1.2.3" {
		t.Errorf("version = %v, want v1.2.3", entry["version"])
	}
	if entry["component"] != "engine" {
		t.Errorf("component = %v, want engine", entry["component"])
	}
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithConversationID(ctx, "conv-1")

	ctxLogger := WithContext(ctx, Base())
	ctxLogger.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want req-1", entry["request_id"])
	}
	if entry["conv_id"] != "conv-1" {
		t.Errorf("conv_id = %v, want conv-1", entry["conv_id"])
	}
}
