package survey

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MapMessage is the JSON payload published to the map topic after each
// successful solve.
type MapMessage struct {
	LandmarkCount int          `json:"landmarkCount"`
	MaxDistance   int64        `json:"maxDistance"`
	Poses         map[int]Pose `json:"poses"`
	SolvedAt      int64        `json:"solvedAt"`
}

// PoseMessage is the JSON payload published per sensor after a solve.
type PoseMessage struct {
	Sensor      int      `json:"sensor"`
	Origin      [3]int64 `json:"origin"`
	Orientation int      `json:"orientation"`
	SolvedAt    int64    `json:"solvedAt"`
}

// Publisher publishes solved maps and recovered sensor poses to MQTT.
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
}

// NewPublisher creates a map publisher.
// If client is nil, publishing is disabled (for testing).
func NewPublisher(client mqtt.Client) *Publisher {
	prefix := os.Getenv("MQTT_PUBLISH_PREFIX")
	if prefix == "" {
		prefix = "beaconmesh"
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,    // QoS 0: a newer solve supersedes a lost one
		retain:        true, // retain latest map for late subscribers
	}
}

// SetPrefix overrides the publish topic prefix.
func (p *Publisher) SetPrefix(prefix string) {
	if prefix != "" {
		p.publishPrefix = prefix
	}
}

// PublishSolution publishes the solve summary to {prefix}/map and each
// sensor's pose to {prefix}/sensors/{id}/pose.
func (p *Publisher) PublishSolution(sol *Solution) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}
	if sol == nil {
		return fmt.Errorf("no solution to publish")
	}

	if err := p.publishMap(sol); err != nil {
		log.Printf("Error publishing map: %v", err)
		return err
	}

	for _, id := range sortedPoseIDs(sol.Poses) {
		if err := p.publishPose(id, sol.Poses[id], sol.SolvedAt); err != nil {
			log.Printf("Error publishing pose for sensor %d: %v", id, err)
			return err
		}
	}

	return nil
}

func (p *Publisher) publishMap(sol *Solution) error {
	topic := fmt.Sprintf("%s/map", p.publishPrefix)

	payload, err := json.Marshal(MapMessage{
		LandmarkCount: sol.LandmarkCount,
		MaxDistance:   sol.MaxDistance,
		Poses:         sol.Poses,
		SolvedAt:      sol.SolvedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshaling map message: %w", err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}

	log.Printf("Published map: %d landmarks, max distance %d",
		sol.LandmarkCount, sol.MaxDistance)
	return nil
}

func (p *Publisher) publishPose(id int, pose Pose, solvedAt time.Time) error {
	topic := fmt.Sprintf("%s/sensors/%d/pose", p.publishPrefix, id)

	payload, err := json.Marshal(PoseMessage{
		Sensor:      id,
		Origin:      [3]int64{pose.Origin.X, pose.Origin.Y, pose.Origin.Z},
		Orientation: pose.Orientation,
		SolvedAt:    solvedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshaling pose message: %w", err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}

	return nil
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2).
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker.
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}

func sortedPoseIDs(m map[int]Pose) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
