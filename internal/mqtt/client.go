package mqtt

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Client owns the broker connection shared by the sample subscriber and the
// note publisher. It only manages connectivity; topic handling lives in
// Subscriber and Publisher.
type Client struct {
	client mqtt.Client
	config ClientConfig
}

// ClientConfig holds the broker connection settings.
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// NewClient connects to the broker with auto-reconnect enabled and blocks
// until the first connection succeeds or fails.
func NewClient(config ClientConfig) (*Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetOnConnectHandler(onConnect)
	opts.SetConnectionLostHandler(onConnectionLost)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", config.Broker, token.Error())
	}
	log.Printf("MQTT Client: connected to %s as %s", config.Broker, config.ClientID)

	return &Client{client: client, config: config}, nil
}

// GetNativeClient exposes the underlying paho client for the subscriber and
// publisher, which register their own topic handlers on it.
func (c *Client) GetNativeClient() mqtt.Client {
	return c.client
}

// IsConnected reports whether the broker connection is currently up.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects from the broker, allowing in-flight messages a short
// grace period.
func (c *Client) Close() {
	c.client.Disconnect(250)
	log.Println("MQTT Client: disconnected")
}

// Reconnects are handled by paho; these handlers only make the transitions
// visible in the log, since a flapping broker silently drops samples.
var onConnect mqtt.OnConnectHandler = func(client mqtt.Client) {
	log.Println("MQTT Client: connection established")
}

var onConnectionLost mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Printf("MQTT Client: connection lost: %v", err)
}
