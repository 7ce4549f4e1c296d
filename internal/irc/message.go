package irc

import "strings"

// Literal command prefixes recognized by Parse, in match order.
const (
	privmsgPrefix         = "PRIVMSG "
	globalUserStatePrefix = "GLOBALUSERSTATE"
	capAckPrefix          = "CAP * ACK"

	// PingLiteral is the exact server ping record Twitch sends with a prefix.
	PingLiteral = "PING :tmi.twitch.tv\r\n"
)

// Tags holds the IRCv3 message tags of a line, e.g. display-name or color.
type Tags map[string]string

// Get returns the value of tag, or "" when it is not set.
func (t Tags) Get(tag string) string {
	return t[tag]
}

// Clone returns an independent copy of t. A nil Tags clones to an empty map.
func (t Tags) Clone() Tags {
	out := make(Tags, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Prefix is the origin of a message. Nick and User are empty when the
// prefix carries only a host (":tmi.twitch.tv").
type Prefix struct {
	Nick string
	User string
	Host string
}

// Command is one of ChatMessage, CapabilityAck, GlobalUserState, Ping or
// Unrecognized.
type Command interface {
	command()
}

// ChatMessage is a PRIVMSG. Text keeps the line terminator if one was read.
type ChatMessage struct {
	Channel string
	Text    string
}

// CapabilityAck acknowledges the capability request sent during the handshake.
type CapabilityAck struct{}

// GlobalUserState carries, through the message tags, the authenticated user's
// own metadata.
type GlobalUserState struct{}

// Ping is a prefixed server ping.
type Ping struct{}

// Unrecognized is any command outside the chat subset. Raw is the text
// following the prefix.
type Unrecognized struct {
	Raw string
}

func (ChatMessage) command()     {}
func (CapabilityAck) command()   {}
func (GlobalUserState) command() {}
func (Ping) command()            {}
func (Unrecognized) command()    {}

// Message is a parsed protocol line. It is not modified after Parse returns it.
type Message struct {
	Tags    Tags
	Prefix  Prefix
	Command Command
}

// Parse parses one raw protocol line. It returns nil when the line is
// malformed: an unterminated tag block, a missing or unterminated prefix, or
// a PRIVMSG without channel or text.
func Parse(raw string) *Message {
	pos := 0

	tags, ok := parseTags(raw, &pos)
	if !ok {
		return nil
	}

	prefix, ok := parsePrefix(raw, &pos)
	if !ok {
		return nil
	}

	cmd, ok := parseCommand(raw, &pos)
	if !ok {
		return nil
	}

	return &Message{Tags: tags, Prefix: prefix, Command: cmd}
}

// parseTags consumes an optional "@k=v;k2=v2 " block starting at *pos. A
// missing block yields empty tags. Pieces without '=' are skipped.
func parseTags(raw string, pos *int) (Tags, bool) {
	tags := Tags{}
	rest := raw[*pos:]
	if !strings.HasPrefix(rest, "@") {
		return tags, true
	}

	end := strings.IndexByte(rest, ' ')
	if end == -1 {
		return nil, false
	}

	for _, piece := range strings.Split(rest[1:end], ";") {
		key, value, found := strings.Cut(piece, "=")
		if !found || key == "" {
			continue
		}
		tags[key] = unescapeTagValue(value)
	}

	*pos += end + 1
	return tags, true
}

// unescapeTagValue reverses IRCv3 tag value escaping.
func unescapeTagValue(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}

	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i == len(v) {
			break
		}
		switch v[i] {
		case ':':
			b.WriteByte(';')
		case 's':
			b.WriteByte(' ')
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		default:
			b.WriteByte(v[i])
		}
	}
	return b.String()
}

// parsePrefix consumes ":nick!user@host " or ":host " starting at *pos.
func parsePrefix(raw string, pos *int) (Prefix, bool) {
	rest := raw[*pos:]
	if !strings.HasPrefix(rest, ":") {
		return Prefix{}, false
	}

	end := strings.IndexByte(rest, ' ')
	if end == -1 {
		return Prefix{}, false
	}

	span := rest[1:end]
	var p Prefix
	if bang := strings.IndexByte(span, '!'); bang != -1 {
		at := strings.IndexByte(span[bang+1:], '@')
		if at == -1 {
			return Prefix{}, false
		}
		at += bang + 1
		p.Nick = span[:bang]
		p.User = span[bang+1 : at]
		p.Host = span[at+1:]
	} else {
		p.Host = span
	}

	*pos += end + 1
	return p, true
}

// parseCommand matches the text at *pos against the known command literals.
func parseCommand(raw string, pos *int) (Command, bool) {
	rest := raw[*pos:]

	switch {
	case strings.HasPrefix(rest, privmsgPrefix):
		body := rest[len(privmsgPrefix):]
		hash := strings.IndexByte(body, '#')
		colon := strings.IndexByte(body, ':')
		if hash == -1 || colon == -1 || colon <= hash {
			return nil, false
		}
		*pos = len(raw)
		return ChatMessage{
			Channel: strings.TrimRight(body[hash+1:colon], " "),
			Text:    body[colon+1:],
		}, true

	case strings.HasPrefix(rest, globalUserStatePrefix):
		*pos += len(globalUserStatePrefix)
		return GlobalUserState{}, true

	case strings.HasPrefix(rest, capAckPrefix):
		*pos += len(capAckPrefix)
		return CapabilityAck{}, true

	case strings.HasPrefix(rest, PingLiteral):
		*pos += len(PingLiteral)
		return Ping{}, true
	}

	*pos = len(raw)
	return Unrecognized{Raw: rest}, true
}
