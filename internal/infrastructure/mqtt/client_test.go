package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/graydb/internal/infrastructure/config"
)

const testBrokerAddr = "127.0.0.1:1883"

// testConfig returns a valid MQTT configuration for testing.
// Broker tests require a running broker at 127.0.0.1:1883 and are skipped otherwise.
func testConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS:         1,
		TopicPrefix: "graydb-test",
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// skipIfNoBroker skips the test if no broker is listening locally.
func skipIfNoBroker(t *testing.T) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", testBrokerAddr, 500*time.Millisecond)
	if err != nil {
		t.Skip("MQTT broker not available, skipping integration test")
	}
	conn.Close()
}

func connectTest(t *testing.T, clientID string) *Client {
	t.Helper()
	skipIfNoBroker(t)
	client, err := Connect(testConfig(clientID))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // test cleanup
	return client
}

// =============================================================================
// Topic Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := NewTopics("graydb")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"QueryEvent", topics.QueryEvent("sqlite", "select"), "graydb/query/sqlite/select"},
		{"Stats", topics.Stats(), "graydb/stats"},
		{"SystemStatus", topics.SystemStatus(), "graydb/system/status"},
		{"custom prefix", NewTopics("site-a/db").QueryEvent("mysql", "write"), "site-a/db/query/mysql/write"},
		{"zero value", Topics{}.SystemStatus(), "graydb/system/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestStatusPayload(t *testing.T) {
	tests := []struct {
		name   string
		status string
		reason string
	}{
		{"online", StatusOnline, ""},
		{"shutdown", StatusOffline, reasonShutdown},
		{"will", StatusOffline, reasonCrashed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg StatusMessage
			if err := json.Unmarshal(statusPayload(tt.status, "graydb-01", tt.reason), &msg); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if msg.Status != tt.status || msg.ClientID != "graydb-01" || msg.Reason != tt.reason {
				t.Errorf("payload = %+v", msg)
			}
			if msg.Timestamp.IsZero() {
				t.Error("timestamp not set")
			}
		})
	}

	if strings.Contains(string(statusPayload(StatusOnline, "x", "")), `"reason"`) {
		t.Error("online payload should omit reason")
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig("graydb-opts")
	cfg.Broker.TLS = true
	cfg.Auth = config.MQTTAuthConfig{Username: "u", Password: "p"}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want ssl://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "graydb-opts" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "u" || opts.Password != "p" {
		t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig not set with TLS enabled")
	}
	if !opts.CleanSession {
		t.Error("CleanSession = false")
	}

	configureWill(opts, NewTopics(cfg.TopicPrefix), cfg.Broker.ClientID)
	if opts.WillTopic != "graydb-test/system/status" || !opts.WillRetained {
		t.Errorf("will topic = %q retained = %v", opts.WillTopic, opts.WillRetained)
	}
	if !strings.Contains(string(opts.WillPayload), reasonCrashed) {
		t.Errorf("will payload = %s", opts.WillPayload)
	}
}

func TestBrokerURL(t *testing.T) {
	plain := config.MQTTBrokerConfig{Host: "broker.local", Port: 1883}
	if got := brokerURL(plain); got != "tcp://broker.local:1883" {
		t.Errorf("brokerURL() = %q", got)
	}
	plain.TLS = true
	plain.Port = 8883
	if got := brokerURL(plain); got != "ssl://broker.local:8883" {
		t.Errorf("brokerURL(tls) = %q", got)
	}
}

// =============================================================================
// Disconnected Client Tests
// =============================================================================

func TestDisconnectedClient(t *testing.T) {
	c := &Client{}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"empty topic", c.Publish("", nil, 1, false), ErrInvalidTopic},
		{"invalid qos", c.Publish("t", nil, 3, false), ErrInvalidQoS},
		{"oversize", c.Publish("t", make([]byte, maxPayloadSize+1), 1, false), ErrPublishFailed},
		{"not connected", c.Publish("t", []byte("x"), 1, false), ErrNotConnected},
		{"health check", c.HealthCheck(context.Background()), ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}

	// Validation errors are not delivery failures.
	if got := c.Delivery(); got != (DeliveryStats{Failed: 2}) {
		t.Errorf("Delivery() = %+v, want 2 failed", got)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true on unconnected client")
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	c := &Client{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestCloseNil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v", err)
	}
}

func TestCallbacks(t *testing.T) {
	c := &Client{}
	c.SetLogger(nil)
	if c.getLogger() == nil {
		t.Fatal("getLogger() = nil after SetLogger(nil)")
	}

	var lost error
	c.SetOnDisconnect(func(err error) { lost = err })
	c.connected.Store(true)

	c.handleConnectionLost(errors.New("eof"))
	if c.connected.Load() {
		t.Error("connected still set after connection lost")
	}
	if lost == nil || lost.Error() != "eof" {
		t.Errorf("onDisconnect got %v", lost)
	}
}

// =============================================================================
// Broker Tests
// =============================================================================

func TestConnect(t *testing.T) {
	client := connectTest(t, "graydb-test-connect")

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestPublishCountsDeliveries(t *testing.T) {
	client := connectTest(t, "graydb-test-publish")
	topics := client.Topics()

	if err := client.Publish(topics.QueryEvent("sqlite", "select"), []byte(`{"query":"SELECT 1"}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := client.Publish(topics.Stats(), []byte(`{"queries":1}`), 1, true); err != nil {
		t.Fatalf("Publish(retained) error = %v", err)
	}

	if got := client.Delivery(); got.Published != 2 || got.Failed != 0 {
		t.Errorf("Delivery() = %+v, want 2 published", got)
	}
}

func TestOnConnectCallback(t *testing.T) {
	skipIfNoBroker(t)
	client, err := Connect(testConfig("graydb-test-callback"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // test cleanup

	var mu sync.Mutex
	called := false
	client.SetOnConnect(func() {
		mu.Lock()
		called = true
		mu.Unlock()
	})
	client.handleConnect()

	mu.Lock()
	defer mu.Unlock()
	if !called {
		t.Error("onConnect callback not invoked")
	}
}
