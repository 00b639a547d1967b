package chatws

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatcraft/internal/domain/stream"
)

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 5 * time.Second
	maxBackoff       = 30 * time.Second
	outboundDepth    = 64
)

type Config struct {
	URL     string
	Token   string // platform auth token, sent as PASS
	Nick    string
	Channel string // joined without the leading '#'
}

// MessageFunc receives every inbound chat line. It runs on the read
// goroutine and must hand work off quickly.
type MessageFunc func(id stream.Identity, channel, text string)

// Client keeps one chat connection alive, reconnecting with backoff. Reply
// never blocks: outbound lines go through a bounded queue and are dropped
// with a log line when the queue is full.
type Client struct {
	cfg       Config
	onMessage MessageFunc

	outbound chan string

	startOnce sync.Once
	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewClient(cfg Config, onMessage MessageFunc) *Client {
	return &Client{
		cfg:       cfg,
		onMessage: onMessage,
		outbound:  make(chan string, outboundDepth),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (c *Client) Start() {
	c.startOnce.Do(func() {
		go c.run()
	})
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
		c.disconnect()
		<-c.done
	})
}

// Reply queues a PRIVMSG for channel. Implements the replier port.
func (c *Client) Reply(channel, message string) {
	if channel == "" {
		channel = "#" + c.cfg.Channel
	}
	c.enqueue(fmt.Sprintf("PRIVMSG %s :%s", channel, sanitizeOutbound(message)))
}

// enqueue hands a line to the write pump, the only goroutine that touches
// the socket for writing once the login handshake is done.
func (c *Client) enqueue(lineOut string) {
	select {
	case c.outbound <- lineOut:
	default:
		log.Printf("chat: outbound queue full, dropping %q", lineOut)
	}
}

// sanitizeOutbound keeps a reply to a single IRC line.
func sanitizeOutbound(msg string) string {
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return msg
}

func (c *Client) run() {
	defer close(c.done)

	backoff := 200 * time.Millisecond
	for {
		select {
		case <-c.stop:
			return
		default:
		}

		err := c.connectAndReadLoop()
		select {
		case <-c.stop:
			return
		default:
		}
		log.Printf("chat: connection lost: %v (retrying in %s)", err, backoff)
		select {
		case <-c.stop:
			return
		case <-time.After(backoff):
		}
		if backoff < maxBackoff {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

func (c *Client) connectAndReadLoop() error {
	d := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := d.Dial(c.cfg.URL, http.Header{})
	if err != nil {
		return err
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	for _, lineOut := range c.loginLines() {
		if err := c.write(conn, lineOut); err != nil {
			c.disconnect()
			return err
		}
	}
	log.Printf("chat: connected to %s as %s", c.cfg.URL, c.cfg.Nick)

	writerStop := make(chan struct{})
	go c.writePump(conn, writerStop)
	defer close(writerStop)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.disconnect()
			return err
		}
		for _, raw := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			c.handleLine(raw)
		}
	}
}

func (c *Client) loginLines() []string {
	lines := make([]string, 0, 4)
	if c.cfg.Token != "" {
		lines = append(lines, "PASS oauth:"+c.cfg.Token)
	}
	lines = append(lines,
		"NICK "+c.cfg.Nick,
		"CAP REQ :twitch.tv/tags twitch.tv/commands",
		"JOIN #"+c.cfg.Channel,
	)
	return lines
}

func (c *Client) handleLine(raw string) {
	l, ok := parseLine(raw)
	if !ok {
		return
	}
	switch l.Command {
	case "PING":
		c.enqueue("PONG :" + l.Text)
	case "PRIVMSG":
		if len(l.Params) == 0 || c.onMessage == nil {
			return
		}
		c.onMessage(identityFromTags(l.Tags, l.Prefix), l.Params[0], l.Text)
	case "RECONNECT":
		c.disconnect()
	}
}

func (c *Client) writePump(conn *websocket.Conn, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case lineOut := <-c.outbound:
			if err := c.write(conn, lineOut); err != nil {
				log.Printf("chat: write: %v", err)
				c.disconnect()
				return
			}
		}
	}
}

func (c *Client) write(conn *websocket.Conn, lineOut string) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, []byte(lineOut+"\r\n"))
}

func (c *Client) disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}
