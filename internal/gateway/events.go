package gateway

import "encoding/json"

// Gateway opcodes we use
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatACK   = 11
)

// Dispatch event types the engine cares about
const (
	EventGuildBanAdd    = "GUILD_BAN_ADD"
	EventGuildBanRemove = "GUILD_BAN_REMOVE"
)

// Intent bits: GUILDS and GUILD_MODERATION (ban add/remove events)
const identifyIntents = 1<<0 | 1<<2

type payload struct {
	Op       int             `json:"op"`
	Data     json.RawMessage `json:"d,omitempty"`
	Sequence *int64          `json:"s,omitempty"`
	Type     string          `json:"t,omitempty"`
}

type helloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

type identifyData struct {
	Token      string             `json:"token"`
	Intents    int                `json:"intents"`
	Properties identifyProperties `json:"properties"`
}

type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

// banEventData is the payload of GUILD_BAN_ADD and GUILD_BAN_REMOVE
type banEventData struct {
	GuildID string `json:"guild_id"`
	User    struct {
		ID string `json:"id"`
	} `json:"user"`
}
