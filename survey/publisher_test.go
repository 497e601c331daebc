package survey

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func testSolution() *Solution {
	return &Solution{
		LandmarkCount: 79,
		MaxDistance:   3621,
		Poses: map[int]Pose{
			0: {Origin: Landmark{}, Orientation: 0},
			1: {Origin: Landmark{68, -1246, -43}, Orientation: 6},
		},
		SolvedAt: time.Unix(1706140800, 0),
	}
}

func TestNewPublisher(t *testing.T) {
	publisher := NewPublisher(nil)
	if publisher == nil {
		t.Fatal("NewPublisher() returned nil")
	}
	if publisher.publishPrefix != "beaconmesh" {
		t.Errorf("default prefix = %s, want beaconmesh", publisher.publishPrefix)
	}
	if publisher.qos != 0 {
		t.Errorf("default QoS = %d, want 0", publisher.qos)
	}
	if !publisher.retain {
		t.Error("default retain should be true")
	}
}

func TestPublisher_NilClient(t *testing.T) {
	publisher := NewPublisher(nil)
	if err := publisher.PublishSolution(testSolution()); err == nil {
		t.Error("PublishSolution() with nil client should fail")
	}
}

func TestPublisher_NilSolution(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)

	publisher := NewPublisher(mock)
	if err := publisher.PublishSolution(nil); err == nil {
		t.Error("PublishSolution(nil) should fail")
	}
}

func TestPublisher_PublishSolution(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)

	publisher := NewPublisher(mock)
	publisher.SetPrefix("survey")

	if err := publisher.PublishSolution(testSolution()); err != nil {
		t.Fatalf("PublishSolution() error = %v", err)
	}

	// One map summary plus one pose per sensor.
	messages := mock.PublishedMessages()
	if len(messages) != 3 {
		t.Fatalf("published %d messages, want 3", len(messages))
	}

	mapMsgs := mock.PublishedTo("survey/map")
	if len(mapMsgs) != 1 {
		t.Fatalf("map messages = %d, want 1", len(mapMsgs))
	}
	if !mapMsgs[0].Retain {
		t.Error("map message should be retained")
	}

	var mm MapMessage
	if err := json.Unmarshal(mapMsgs[0].Payload, &mm); err != nil {
		t.Fatalf("map payload: %v", err)
	}
	if mm.LandmarkCount != 79 || mm.MaxDistance != 3621 {
		t.Errorf("map message = %+v", mm)
	}

	poseMsgs := mock.PublishedTo("survey/sensors/1/pose")
	if len(poseMsgs) != 1 {
		t.Fatalf("pose messages for sensor 1 = %d, want 1", len(poseMsgs))
	}
	var pm PoseMessage
	if err := json.Unmarshal(poseMsgs[0].Payload, &pm); err != nil {
		t.Fatalf("pose payload: %v", err)
	}
	if pm.Sensor != 1 || pm.Origin != [3]int64{68, -1246, -43} || pm.Orientation != 6 {
		t.Errorf("pose message = %+v", pm)
	}
}

func TestPublisher_PublishError(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)
	mock.SetPublishError(errors.New("broker refused"))

	publisher := NewPublisher(mock)
	if err := publisher.PublishSolution(testSolution()); err == nil {
		t.Error("PublishSolution() should propagate broker errors")
	}
}

func TestPublisher_SetQoS(t *testing.T) {
	publisher := NewPublisher(nil)

	tests := []struct {
		name     string
		qos      byte
		expected byte
	}{
		{"QoS 0", 0, 0},
		{"QoS 1", 1, 1},
		{"QoS 2", 2, 2},
		{"invalid QoS 3", 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher.qos = 0
			publisher.SetQoS(tt.qos)
			if publisher.qos != tt.expected {
				t.Errorf("after SetQoS(%d), qos = %d, want %d", tt.qos, publisher.qos, tt.expected)
			}
		})
	}
}

func TestPublisher_SetRetain(t *testing.T) {
	publisher := NewPublisher(nil)

	publisher.SetRetain(false)
	if publisher.retain {
		t.Error("SetRetain(false) did not clear retain flag")
	}
	publisher.SetRetain(true)
	if !publisher.retain {
		t.Error("SetRetain(true) did not set retain flag")
	}
}

func TestPublisher_SetPrefix(t *testing.T) {
	publisher := NewPublisher(nil)

	publisher.SetPrefix("custom")
	if publisher.publishPrefix != "custom" {
		t.Errorf("prefix = %s, want custom", publisher.publishPrefix)
	}

	// Empty prefix is ignored, keeping the previous value.
	publisher.SetPrefix("")
	if publisher.publishPrefix != "custom" {
		t.Errorf("prefix = %s, want custom after empty SetPrefix", publisher.publishPrefix)
	}
}
