package scene

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ControlHandler is called when a pose override arrives on the control topic
type ControlHandler func(pose Pose)

// MQTTClient manages the broker connection and the optional control subscription
type MQTTClient struct {
	client         mqtt.Client
	config         MQTTConfig
	controlHandler ControlHandler
	isConnected    bool
	mu             sync.RWMutex
}

// ResolveMQTTConfig applies MQTT_* environment overrides to the file settings
func ResolveMQTTConfig(cfg MQTTConfig) MQTTConfig {
	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		cfg.Broker = broker
	}
	if clientID := os.Getenv("MQTT_CLIENT_ID"); clientID != "" {
		cfg.ClientID = clientID
	}
	if username := os.Getenv("MQTT_USERNAME"); username != "" {
		cfg.Username = username
	}
	if password := os.Getenv("MQTT_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if prefix := os.Getenv("MQTT_PUBLISH_PREFIX"); prefix != "" {
		cfg.PublishPrefix = prefix
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "planebox"
	}
	if cfg.PublishPrefix == "" {
		cfg.PublishPrefix = "planebox"
	}
	if cfg.CloudTopic == "" {
		cfg.CloudTopic = "cloud"
	}
	return cfg
}

// InitMQTT creates the MQTT client and starts connecting in the background.
// Without a broker (config or MQTT_BROKER) MQTT is disabled and this returns nil.
func InitMQTT(config MQTTConfig, handler ControlHandler) (*MQTTClient, error) {
	config = ResolveMQTTConfig(config)
	if config.Broker == "" {
		log.Println("[MQTT] Disabled: MQTT_BROKER not set")
		return nil, nil
	}
	if config.QoS > 2 {
		return nil, fmt.Errorf("invalid MQTT QoS %d", config.QoS)
	}

	client := &MQTTClient{
		config:         config,
		controlHandler: handler,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(false)
	// Frames are ephemeral; a slow broker must not back up the generator
	opts.SetWriteTimeout(2 * time.Second)

	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)
	opts.SetReconnectingHandler(client.onReconnecting)

	client.client = mqtt.NewClient(opts)

	go client.connectWithRetry()

	return client, nil
}

// connectWithRetry attempts to connect to the MQTT broker with exponential backoff
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		log.Printf("[MQTT] Connecting to %s...", c.config.Broker)

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("[MQTT] Connected to broker")
				c.setConnected(true)
				return
			}
			log.Printf("[MQTT] Connection failed: %v", token.Error())
		} else {
			log.Println("[MQTT] Connection timeout")
		}

		log.Printf("[MQTT] Retrying connection in %v...", retryDelay)
		time.Sleep(retryDelay)
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

// onConnect is called when the MQTT connection is established
func (c *MQTTClient) onConnect(client mqtt.Client) {
	c.setConnected(true)

	topic := c.ControlTopic()
	if topic == "" {
		log.Println("[MQTT] Connected, no control topic configured")
		return
	}

	log.Printf("[MQTT] Subscribing to control topic %s", topic)
	token := client.Subscribe(topic, 0, c.createControlHandler())
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		log.Printf("[MQTT] Error subscribing to %s: %v", topic, token.Error())
	} else {
		log.Printf("[MQTT] Subscribed to %s", topic)
	}
}

// onConnectionLost is called when the MQTT connection is lost
// Auto-reconnect is enabled, so this is typically a transient event
func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("[MQTT] Connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

// onReconnecting is called when the client attempts to reconnect
func (c *MQTTClient) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	log.Println("[MQTT] Reconnecting...")
}

// ParseControlPayload decodes a pose override: {"x": 1, "y": 1, "yaw": 0}.
// Missing fields default to zero; non-finite values are rejected.
func ParseControlPayload(payload []byte) (Pose, error) {
	var pose Pose
	if err := json.Unmarshal(payload, &pose); err != nil {
		return Pose{}, fmt.Errorf("decoding pose: %w", err)
	}
	for _, v := range []float64{pose.X, pose.Y, pose.Yaw} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Pose{}, fmt.Errorf("pose has non-finite value")
		}
	}
	return pose, nil
}

// createControlHandler decodes pose overrides from the control topic
func (c *MQTTClient) createControlHandler() mqtt.MessageHandler {
	return func(client mqtt.Client, msg mqtt.Message) {
		pose, err := ParseControlPayload(msg.Payload())
		if err != nil {
			log.Printf("[MQTT] Ignoring control message on %s: %v", msg.Topic(), err)
			return
		}

		log.Printf("[MQTT] Pose override (%.3f, %.3f) yaw=%.1f° from %s",
			pose.X, pose.Y, pose.YawDegrees(), msg.Topic())
		if c.controlHandler != nil {
			c.controlHandler(pose)
		}
	}
}

// ControlTopic returns the fully qualified control topic, or "" when disabled
func (c *MQTTClient) ControlTopic() string {
	if c.config.ControlTopic == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", c.config.PublishPrefix, c.config.ControlTopic)
}

// IsConnected returns true if the MQTT client is connected
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

// setConnected updates the connection status
func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect gracefully closes the MQTT connection
func (c *MQTTClient) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		log.Println("[MQTT] Disconnecting from broker...")
		c.client.Disconnect(250) // 250ms quiesce time
		c.setConnected(false)
	}
}

// Config returns the resolved MQTT settings
func (c *MQTTClient) Config() MQTTConfig {
	return c.config
}

// GetClient returns the underlying MQTT client for publishing
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}

// newMQTTClientWithMock creates an MQTTClient with a provided mqtt.Client
// This is used for testing with mock clients
func newMQTTClientWithMock(client mqtt.Client, config MQTTConfig, handler ControlHandler) *MQTTClient {
	return &MQTTClient{
		client:         client,
		config:         ResolveMQTTConfig(config),
		controlHandler: handler,
	}
}
