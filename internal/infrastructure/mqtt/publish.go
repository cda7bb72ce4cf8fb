package mqtt

import "fmt"

// DeliveryStats counts Publish outcomes since Connect.
type DeliveryStats struct {
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
}

// Publish sends payload to topic and waits for the broker acknowledgement
// required by qos.
//
// Parameters:
//   - topic: e.g. Topics().QueryEvent("pgsql", "write")
//   - payload: at most 1 MiB
//   - qos: 0, 1 or 2
//   - retained: true for state topics such as stats and system status
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS or ErrNotConnected before
//     anything is sent, ErrPublishFailed when the broker does not accept it
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case len(payload) > maxPayloadSize:
		c.failed.Add(1)
		return fmt.Errorf("%w: %d byte payload on %s exceeds %d", ErrPublishFailed, len(payload), topic, maxPayloadSize)
	case !c.IsConnected():
		c.failed.Add(1)
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		c.failed.Add(1)
		return fmt.Errorf("%w: %s not acknowledged within %v", ErrPublishFailed, topic, publishTimeout)
	}
	if err := token.Error(); err != nil {
		c.failed.Add(1)
		c.getLogger().Warn("MQTT publish rejected", "topic", topic, "error", err)
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	c.published.Add(1)
	return nil
}

// Delivery returns the publish counters.
func (c *Client) Delivery() DeliveryStats {
	return DeliveryStats{
		Published: c.published.Load(),
		Failed:    c.failed.Load(),
	}
}
