package autopush

type messageType string

const (
	typeHello        messageType = "hello"
	typeRegister     messageType = "register"
	typeNotification messageType = "notification"
	typeAck          messageType = "ack"
	typePing         messageType = "ping"
)

const statusOK = 200

// envelope is decoded first to dispatch on messageType.
type envelope struct {
	Type messageType `json:"messageType"`
}

type helloRequest struct {
	Type       messageType `json:"messageType"`
	UAID       string      `json:"uaid"`
	ChannelIDs []string    `json:"channelIDs"`
	UseWebPush bool        `json:"use_webpush,omitempty"`
}

type helloResponse struct {
	Type   messageType `json:"messageType"`
	UAID   string      `json:"uaid"`
	Status int         `json:"status"`
}

type registerRequest struct {
	Type      messageType `json:"messageType"`
	ChannelID string      `json:"channelID"`
	Key       string      `json:"key"`
}

type registerResponse struct {
	Type         messageType `json:"messageType"`
	ChannelID    string      `json:"channelID"`
	Status       int         `json:"status"`
	PushEndpoint string      `json:"pushEndpoint"`
}

type notification struct {
	Type      messageType `json:"messageType"`
	ChannelID string      `json:"channelID"`
	Version   string      `json:"version"`
	Data      string      `json:"data"`
}

type ack struct {
	Type    messageType `json:"messageType"`
	Updates []ackUpdate `json:"updates"`
}

type ackUpdate struct {
	ChannelID string `json:"channelID"`
	Version   string `json:"version"`
}
