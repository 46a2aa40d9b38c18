//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	ctx := WithTransactionID(WithTraceID(context.Background(), "req-1"), "txn-9")

	With(ctx, &base).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if line["trace_id"] != "req-1" || line["transaction_id"] != "txn-9" {
		t.Errorf("missing context fields: %v", line)
	}
	if _, ok := line["account_id"]; ok {
		t.Error("account_id should be absent when unset")
	}
}

func TestRedactEmail(t *testing.T) {
	cases := map[string]string{
		"dana@example.com": "d***@example.com",
		"nope":             "***",
		"@x.com":           "***",
	}
	for in, want := range cases {
		if got := RedactEmail(in, false); got != want {
			t.Errorf("RedactEmail(%q) = %q, want %q", in, got, want)
		}
	}
	if RedactEmail("dana@example.com", true) != "dana@example.com" {
		t.Error("dev mode should not redact")
	}
}
