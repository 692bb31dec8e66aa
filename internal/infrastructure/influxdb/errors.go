package influxdb

import "errors"

var (
	ErrDisabled         = errors.New("influxdb: mirror disabled")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrNotConnected     = errors.New("influxdb: client closed or never connected")
	ErrUnhealthy        = errors.New("influxdb: server reports unhealthy")
)
