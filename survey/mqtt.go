package survey

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ReadingMessage is the JSON payload a sensor publishes to its readings
// topic: the sensor id and its landmark cloud in the sensor's local frame.
type ReadingMessage struct {
	Sensor    int        `json:"sensor"`
	Landmarks [][3]int64 `json:"landmarks"`
}

// ReadingHandler is called when a reading message arrives.
// Parameters: sensorID, landmarks, decode error.
type ReadingHandler func(sensorID int, landmarks []Landmark, err error)

// MQTTClient manages the MQTT connection and per-sensor reading
// subscriptions.
type MQTTClient struct {
	client      mqtt.Client
	config      *Config
	handler     ReadingHandler
	isConnected bool
	mu          sync.RWMutex
}

// InitMQTT initializes an MQTT client with the provided configuration.
// If neither MQTT_BROKER nor config.MQTT.Broker is set, MQTT is disabled and
// this returns (nil, nil).
func InitMQTT(config *Config, handler ReadingHandler) (*MQTTClient, error) {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" && config != nil && config.MQTT.Broker != "" {
		broker = config.MQTT.Broker
	}
	if broker == "" {
		log.Println("MQTT disabled: MQTT_BROKER not set")
		return nil, nil
	}
	if config == nil || len(config.Sensors) == 0 {
		return nil, fmt.Errorf("MQTT enabled but no sensor configuration provided")
	}

	c := &MQTTClient{
		config:  config,
		handler: handler,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)

	clientID := config.MQTT.ClientID
	if clientID == "" {
		clientID = "beaconmesh"
	}
	opts.SetClientID(clientID)

	if config.MQTT.Username != "" {
		opts.SetUsername(config.MQTT.Username)
		opts.SetPassword(config.MQTT.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false)
	opts.SetOrderMatters(false)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Printf("MQTT connected to %s", broker)
		c.mu.Lock()
		c.isConnected = true
		c.mu.Unlock()
		if err := c.subscribeAll(); err != nil {
			log.Printf("MQTT subscribe error: %v", err)
		}
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v", err)
		c.mu.Lock()
		c.isConnected = false
		c.mu.Unlock()
	})

	c.client = mqtt.NewClient(opts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return c, nil
}

// subscribeAll subscribes to every configured sensor's reading topic.
func (c *MQTTClient) subscribeAll() error {
	for _, sc := range c.config.Sensors {
		topic := sc.Topic
		if token := c.client.Subscribe(topic, 1, c.handleMessage); token.Wait() && token.Error() != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, token.Error())
		}
		log.Printf("MQTT subscribed to %s for sensor %d", topic, sc.ID)
	}
	return nil
}

// handleMessage decodes a reading payload and forwards it to the handler.
func (c *MQTTClient) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	id, landmarks, err := DecodeReading(msg.Payload())
	if c.handler != nil {
		c.handler(id, landmarks, err)
	}
}

// DecodeReading parses a ReadingMessage payload into landmarks.
func DecodeReading(payload []byte) (int, []Landmark, error) {
	var rm ReadingMessage
	if err := json.Unmarshal(payload, &rm); err != nil {
		return 0, nil, fmt.Errorf("parsing reading payload: %w", err)
	}
	landmarks := make([]Landmark, len(rm.Landmarks))
	for i, c := range rm.Landmarks {
		landmarks[i] = Landmark{X: c[0], Y: c[1], Z: c[2]}
	}
	return rm.Sensor, landmarks, nil
}

// EncodeReading builds a ReadingMessage payload, the inverse of
// DecodeReading. Used by tools and tests that simulate sensors.
func EncodeReading(sensorID int, landmarks []Landmark) ([]byte, error) {
	rm := ReadingMessage{Sensor: sensorID, Landmarks: make([][3]int64, len(landmarks))}
	for i, l := range landmarks {
		rm.Landmarks[i] = [3]int64{l.X, l.Y, l.Z}
	}
	return json.Marshal(rm)
}

// IsConnected reports the connection state.
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

// Client exposes the underlying paho client, for the publisher.
func (c *MQTTClient) Client() mqtt.Client {
	return c.client
}

// Disconnect closes the connection after flushing in-flight messages.
func (c *MQTTClient) Disconnect() {
	if c.client != nil {
		c.client.Disconnect(250)
	}
	c.mu.Lock()
	c.isConnected = false
	c.mu.Unlock()
}
