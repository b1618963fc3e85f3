package oracle

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"
)

func TestWireCodec_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := newWireEncoder(&buf)

	req := scoreRequest{
		ID: 7,
		Snapshot: Snapshot{
			Facts: []Fact{{Key: "light", Value: "off"}},
			Aux:   []AuxField{{Key: "h_add", Value: 1}},
		},
	}
	if err := enc.encode(messageTypeScore, &req); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	dec := newWireDecoder(&buf)
	msg, err := dec.decode()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if msg.Type != messageTypeScore {
		t.Errorf("Type = %s, want SCORE", msg.Type)
	}

	var got scoreRequest
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got.ID != 7 {
		t.Errorf("ID = %d, want 7", got.ID)
	}
	if len(got.Snapshot.Facts) != 1 || got.Snapshot.Facts[0].Value != "off" {
		t.Errorf("Facts = %v, want light=off", got.Snapshot.Facts)
	}
}

func TestWireDecoder_MultipleMessages(t *testing.T) {
	var buf bytes.Buffer
	enc := newWireEncoder(&buf)

	if err := enc.encode(messageTypeReady, &readyMessage{Version: "1"}); err != nil {
		t.Fatalf("encode READY failed: %v", err)
	}
	if err := enc.encode(messageTypeResult, &scoreResult{ID: 1, Value: 3.5}); err != nil {
		t.Fatalf("encode RESULT failed: %v", err)
	}

	dec := newWireDecoder(&buf)

	msg, err := dec.decode()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if msg.Type != messageTypeReady {
		t.Errorf("First message type = %s, want READY", msg.Type)
	}

	msg, err = dec.decode()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if msg.Type != messageTypeResult {
		t.Errorf("Second message type = %s, want RESULT", msg.Type)
	}
	var res scoreResult
	if err := json.Unmarshal(msg.Data, &res); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if res.Value != 3.5 {
		t.Errorf("Value = %g, want 3.5", res.Value)
	}

	if _, err := dec.decode(); err != io.EOF {
		t.Errorf("Expected io.EOF after last message, got: %v", err)
	}
}

func TestWireDecoder_MalformedLine(t *testing.T) {
	dec := newWireDecoder(bytes.NewBufferString("not json\n"))
	if _, err := dec.decode(); err == nil {
		t.Error("Expected error for malformed message")
	}
}
