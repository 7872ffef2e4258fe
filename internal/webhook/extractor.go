package webhook

import (
	"encoding/json"
	"strings"
	"time"
)

// InboundMessage is the normalized form of one webhook delivery.
// Transient: it is never persisted as its own entity.
type InboundMessage struct {
	Phone             string
	Body              string
	DisplayName       string
	Provider          string
	InstanceID        string
	ProviderMessageID string
	ReceivedAt        time.Time
}

// evolutionPayload is the nested message-object-with-key shape.
type evolutionPayload struct {
	Instance string `json:"instance"`
	Data     struct {
		Key struct {
			RemoteJID string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
			ID        string `json:"id"`
		} `json:"key"`
		PushName string `json:"pushName"`
		Message  struct {
			Conversation        string `json:"conversation"`
			ExtendedTextMessage struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
		} `json:"message"`
	} `json:"data"`
}

// zapiPayload is the flat phone/body shape.
type zapiPayload struct {
	InstanceID string `json:"instanceId"`
	MessageID  string `json:"messageId"`
	Phone      string `json:"phone"`
	FromMe     bool   `json:"fromMe"`
	SenderName string `json:"senderName"`
	Text       struct {
		Message string `json:"message"`
	} `json:"text"`
	Body string `json:"body"`
}

// ParsePayload inspects the raw webhook body for one of the two known
// provider shapes and normalizes it. Neither shape matching is a
// malformed payload; echoes of our own messages are flagged separately.
func ParsePayload(raw []byte, receivedAt time.Time) (*InboundMessage, error) {
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	var evo evolutionPayload
	if err := json.Unmarshal(raw, &evo); err == nil && evo.Data.Key.RemoteJID != "" {
		if evo.Data.Key.FromMe {
			return nil, ErrSelfMessage
		}
		body := evo.Data.Message.Conversation
		if body == "" {
			body = evo.Data.Message.ExtendedTextMessage.Text
		}
		phone := normalizePhone(evo.Data.Key.RemoteJID)
		if phone == "" || body == "" {
			return nil, ErrMalformedPayload
		}
		return &InboundMessage{
			Phone:             phone,
			Body:              body,
			DisplayName:       evo.Data.PushName,
			Provider:          "evolution",
			InstanceID:        evo.Instance,
			ProviderMessageID: evo.Data.Key.ID,
			ReceivedAt:        receivedAt,
		}, nil
	}

	var zapi zapiPayload
	if err := json.Unmarshal(raw, &zapi); err == nil && zapi.Phone != "" {
		if zapi.FromMe {
			return nil, ErrSelfMessage
		}
		body := zapi.Text.Message
		if body == "" {
			body = zapi.Body
		}
		phone := normalizePhone(zapi.Phone)
		if phone == "" || body == "" {
			return nil, ErrMalformedPayload
		}
		return &InboundMessage{
			Phone:             phone,
			Body:              body,
			DisplayName:       zapi.SenderName,
			Provider:          "zapi",
			InstanceID:        zapi.InstanceID,
			ProviderMessageID: zapi.MessageID,
			ReceivedAt:        receivedAt,
		}, nil
	}

	return nil, ErrMalformedPayload
}

// normalizePhone keeps digits only, drops WhatsApp JID suffixes and
// strips the Brazilian country prefix when present.
func normalizePhone(value string) string {
	if at := strings.IndexByte(value, '@'); at >= 0 {
		value = value[:at]
	}
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "55") && (len(digits) == 12 || len(digits) == 13) {
		digits = digits[2:]
	}
	return digits
}
