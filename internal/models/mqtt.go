package models

import "time"

type MQTTUser struct {
	ClientID string `json:"clientId"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type MQTTConfig struct {
	Host               string   `json:"mqtthost"`
	Port               int32    `json:"mqttport"`
	User               MQTTUser `json:"mqttuser"`
	Topic              string   `json:"topic"`
	QoS                byte     `json:"qos"`
	KeepAliveSec       int32    `json:"keepAliveSec"`
	ConnectTimeoutMs   int32    `json:"connectTimeoutMs"`
	SubscribeTimeoutMs int32    `json:"subscribeTimeoutMs"`
	PublishTimeoutMs   int32    `json:"publishTimeoutMs"`
}

func (c MQTTConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}

func (c MQTTConfig) SubscribeTimeout() time.Duration {
	return time.Duration(c.SubscribeTimeoutMs) * time.Millisecond
}

func (c MQTTConfig) PublishTimeout() time.Duration {
	return time.Duration(c.PublishTimeoutMs) * time.Millisecond
}
