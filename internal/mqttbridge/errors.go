package mqttbridge

import "errors"

var (
	ErrConnectionFailed = errors.New("mqttbridge: connection failed")
	ErrSubscribeFailed  = errors.New("mqttbridge: subscribe failed")
	ErrPublishFailed    = errors.New("mqttbridge: publish failed")
)
