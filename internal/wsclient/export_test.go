package wsclient

import (
	"time"

	"github.com/gorilla/websocket"
)

// Test hooks.

func (c *Client) SetDial(fn func(url string) (*websocket.Conn, error)) { c.dial = fn }

func (c *Client) SetAfter(fn func(d time.Duration, f func()) *time.Timer) { c.after = fn }
