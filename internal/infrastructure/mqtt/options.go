package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/graydb/internal/infrastructure/config"
)

const (
	connectTimeout  = 10 * time.Second
	publishTimeout  = 5 * time.Second
	keepAlive       = 60 * time.Second
	disconnectGrace = 1000 // milliseconds, as paho expects

	maxQoS = 2

	// maxPayloadSize caps a single message. Query events carry bound
	// parameters, so a bulk insert could otherwise exceed broker limits.
	maxPayloadSize = 1 << 20
)

// brokerURL returns tcp://host:port, or ssl://host:port when TLS is enabled.
func brokerURL(b config.MQTTBrokerConfig) string {
	scheme := "tcp"
	if b.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, b.Host, b.Port)
}

// buildClientOptions translates the mqtt config section into paho options.
//
// graydb only publishes, so the session is always clean: there is nothing
// for the broker to queue for us while we are away.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg.Broker)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive).
		SetOrderMatters(false)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}

// configureWill registers the retained offline message the broker sends if
// graydb drops off without calling Close.
func configureWill(opts *pahomqtt.ClientOptions, topics Topics, clientID string) {
	opts.SetBinaryWill(topics.SystemStatus(), statusPayload(StatusOffline, clientID, reasonCrashed), 1, true)
}
