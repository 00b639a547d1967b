// Package chatws connects to the streaming platform's chat over a websocket
// speaking IRC-shaped lines, turns PRIVMSG traffic into identities and
// message text, and writes replies back on the same socket.
package chatws

import (
	"strings"

	"chatcraft/internal/domain/stream"
)

// line is one parsed IRC-style frame.
type line struct {
	Tags    map[string]string
	Prefix  string
	Command string
	Params  []string
	Text    string // trailing parameter
}

// parseLine splits an IRC frame: optional @tags, optional :prefix, command,
// params, optional :trailing. Malformed frames come back ok=false.
func parseLine(raw string) (line, bool) {
	l := line{Tags: map[string]string{}}
	rest := strings.TrimRight(raw, "\r\n")

	if strings.HasPrefix(rest, "@") {
		cut := strings.IndexByte(rest, ' ')
		if cut < 0 {
			return l, false
		}
		parseTags(rest[1:cut], l.Tags)
		rest = rest[cut+1:]
	}
	if strings.HasPrefix(rest, ":") {
		cut := strings.IndexByte(rest, ' ')
		if cut < 0 {
			return l, false
		}
		l.Prefix = rest[1:cut]
		rest = rest[cut+1:]
	}

	if trail := strings.Index(rest, " :"); trail >= 0 {
		l.Text = rest[trail+2:]
		rest = rest[:trail]
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return l, false
	}
	l.Command = strings.ToUpper(fields[0])
	l.Params = fields[1:]
	return l, true
}

func parseTags(s string, into map[string]string) {
	for _, pair := range strings.Split(s, ";") {
		if pair == "" {
			continue
		}
		key, val, _ := strings.Cut(pair, "=")
		into[key] = unescapeTag(val)
	}
}

// unescapeTag undoes IRCv3 tag-value escaping.
func unescapeTag(v string) string {
	if !strings.ContainsRune(v, '\\') {
		return v
	}
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		if v[i] != '\\' || i+1 == len(v) {
			b.WriteByte(v[i])
			continue
		}
		i++
		switch v[i] {
		case 's':
			b.WriteByte(' ')
		case ':':
			b.WriteByte(';')
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte(v[i])
		}
	}
	return b.String()
}

// identityFromTags builds the sender identity for a PRIVMSG.
func identityFromTags(tags map[string]string, prefix string) stream.Identity {
	id := stream.Identity{
		UserID:      tags["user-id"],
		DisplayName: tags["display-name"],
		Role:        roleFromTags(tags),
	}
	if id.DisplayName == "" {
		if nick, _, ok := strings.Cut(prefix, "!"); ok {
			id.DisplayName = nick
		} else {
			id.DisplayName = prefix
		}
	}
	if id.UserID == "" {
		id.UserID = strings.ToLower(id.DisplayName)
	}
	return id
}

// roleFromTags maps badge and shortcut tags onto the highest matching role.
func roleFromTags(tags map[string]string) stream.Role {
	role := stream.RoleEveryone
	raise := func(r stream.Role) {
		if r > role {
			role = r
		}
	}
	for _, badge := range strings.Split(tags["badges"], ",") {
		name, _, _ := strings.Cut(badge, "/")
		switch name {
		case "broadcaster":
			raise(stream.RoleBroadcaster)
		case "moderator":
			raise(stream.RoleModerator)
		case "vip":
			raise(stream.RoleVIP)
		case "subscriber", "founder":
			raise(stream.RoleSubscriber)
		}
	}
	if tags["mod"] == "1" {
		raise(stream.RoleModerator)
	}
	if tags["subscriber"] == "1" {
		raise(stream.RoleSubscriber)
	}
	return role
}
