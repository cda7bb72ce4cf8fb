package influxdb

import "errors"

var (
	ErrDisabled         = errors.New("influxdb: export disabled")
	ErrConnectionFailed = errors.New("influxdb: server unreachable")
	ErrNotConnected     = errors.New("influxdb: client closed")
	ErrUnhealthy        = errors.New("influxdb: server reports unhealthy")
)
