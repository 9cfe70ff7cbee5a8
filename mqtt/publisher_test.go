package mqtt

import (
	"encoding/json"
	"testing"

	"taglink/config"
)

func testPublisher() *Publisher {
	return NewPublisher(config.MQTTConfig{
		Broker:    "localhost",
		Port:      1883,
		ClientID:  "test",
		RootTopic: "taglink",
	}, nil)
}

func TestBuildTopic(t *testing.T) {
	p := testPublisher()

	tests := []struct {
		tag  string
		want string
	}{
		{"Motor1_Speed", "taglink/tags/Motor1_Speed"},
		{"Line.Counts", "taglink/tags/Line.Counts"},
	}

	for _, tc := range tests {
		if got := p.BuildTopic(tc.tag); got != tc.want {
			t.Errorf("BuildTopic(%q) = %q, want %q", tc.tag, got, tc.want)
		}
	}
}

func TestPublishNotRunning(t *testing.T) {
	p := testPublisher()
	if p.Publish("Motor1_Speed", "DINT", 42, false) {
		t.Error("Publish() on a stopped publisher should return false")
	}
	if p.IsRunning() {
		t.Error("IsRunning() should be false before Start")
	}
}

func TestTagMessageJSON(t *testing.T) {
	msg := TagMessage{
		Topic:     "taglink/tags/Tank_Level",
		Tag:       "Tank_Level",
		Value:     73.5,
		Type:      "REAL",
		Timestamp: "2026-01-02T15:04:05Z",
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["tag"] != "Tank_Level" {
		t.Errorf("tag = %v", decoded["tag"])
	}
	if decoded["value"] != 73.5 {
		t.Errorf("value = %v", decoded["value"])
	}
	if decoded["type"] != "REAL" {
		t.Errorf("type = %v", decoded["type"])
	}
}
