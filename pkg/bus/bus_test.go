package bus

import (
	"errors"
	"testing"
)

func TestTopicName(t *testing.T) {
	cases := []struct {
		kind Kind
		want string
	}{
		{KindCommand, "scheduler_command_enable"},
		{KindEvent, "scheduler_logevent_enable"},
		{KindTelemetry, "scheduler_enable"},
	}
	for _, tc := range cases {
		if got := TopicName("scheduler", tc.kind, "enable"); got != tc.want {
			t.Errorf("TopicName(%s) = %q, want %q", tc.kind, got, tc.want)
		}
	}
}

func TestParseTopic(t *testing.T) {
	t.Run("Command", func(t *testing.T) {
		key, err := ParseTopic("scheduler_command_start")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := TopicKey{Subsystem: "scheduler", Kind: KindCommand, Name: "start"}
		if key != want {
			t.Errorf("got %+v, want %+v", key, want)
		}
	})

	t.Run("Event", func(t *testing.T) {
		key, err := ParseTopic("scheduler_logevent_summaryState")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key.Kind != KindEvent || key.Name != "summaryState" {
			t.Errorf("got %+v", key)
		}
	})

	t.Run("Telemetry", func(t *testing.T) {
		key, err := ParseTopic("scheduler_seeing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key.Kind != KindTelemetry || key.Name != "seeing" {
			t.Errorf("got %+v", key)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		bad := []string{"", "_seeing", "scheduler_", "a_b_c_d", "scheduler_midword_x"}
		for _, topic := range bad {
			if _, err := ParseTopic(topic); err == nil {
				t.Errorf("ParseTopic(%q) should fail", topic)
			}
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		key := TopicKey{Subsystem: "mtm1m3", Kind: KindEvent, Name: "forceActuatorState"}
		parsed, err := ParseTopic(key.FullName())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if parsed != key {
			t.Errorf("round trip: got %+v, want %+v", parsed, key)
		}
	})
}

func TestPayloadSchema(t *testing.T) {
	schema := NewSchema("configure", "timeout", "configure")
	if got := len(schema.Fields()); got != 2 {
		t.Fatalf("duplicate field not collapsed: %d fields", got)
	}

	p := NewPayload(schema)
	if err := p.Set("configure", "settings.yaml"); err != nil {
		t.Fatalf("Set known field: %v", err)
	}

	err := p.Set("nonsense", 1)
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("Set unknown field: got %v, want ErrUnknownField", err)
	}
	if _, ok := p.Get("nonsense"); ok {
		t.Error("rejected field must not be stored")
	}

	v, ok := p.Get("configure")
	if !ok || v != "settings.yaml" {
		t.Errorf("Get = %v, %v", v, ok)
	}
}

func TestPayloadNilSchema(t *testing.T) {
	p := NewPayload(nil)
	if err := p.Set("anything", 42); err != nil {
		t.Fatalf("nil schema must accept any field: %v", err)
	}
}

func TestPayloadCopyReset(t *testing.T) {
	src := NewPayload(nil)
	_ = src.Set("a", 1)
	_ = src.Set("b", "two")

	dst := NewPayload(nil)
	_ = dst.Set("stale", true)
	dst.CopyFrom(src)

	if _, ok := dst.Get("stale"); ok {
		t.Error("CopyFrom must drop previous fields")
	}
	if v, _ := dst.Get("b"); v != "two" {
		t.Errorf("CopyFrom missing field: %v", v)
	}

	dst.Reset()
	if len(dst.Fields()) != 0 {
		t.Error("Reset must clear all fields")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	key := TopicKey{Subsystem: "scheduler", Kind: KindCommand, Name: "enable"}

	if _, err := r.Command(key); !errors.Is(err, ErrTopicNotRegistered) {
		t.Fatalf("lookup before registration: got %v", err)
	}

	schema := NewSchema("value")
	r.RegisterCommand(key, nil, schema)

	if _, err := r.Command(key); err != nil {
		t.Fatalf("lookup after registration: %v", err)
	}
	if got := r.Schema(key); got != schema {
		t.Error("Schema lookup mismatch")
	}

	p := r.NewPayload(key)
	if err := p.Set("value", 1); err != nil {
		t.Errorf("payload must use registered schema: %v", err)
	}
	if err := p.Set("other", 1); !errors.Is(err, ErrUnknownField) {
		t.Errorf("payload must reject unknown field: %v", err)
	}
}
