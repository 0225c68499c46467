package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

const (
	tokenIssuer   = "taxyield-monitor"
	tokenLifetime = 5 * time.Minute
	writeTimeout  = 10 * time.Second
)

// WebSocketSink pushes alerts as JSON text frames to a collector. Each dial
// carries an HS256 bearer token signed with the shared secret. The connection
// is opened lazily and redialed once when a write fails.
type WebSocketSink struct {
	url    string
	secret []byte
	runID  string
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWebSocketSink(url, secret, runID string) *WebSocketSink {
	return &WebSocketSink{
		url:    url,
		secret: []byte(secret),
		runID:  runID,
		dialer: &websocket.Dialer{HandshakeTimeout: writeTimeout},
	}
}

var _ domain.AlertSink = (*WebSocketSink)(nil)

// BearerToken signs a short-lived token identifying this run.
func (s *WebSocketSink) BearerToken(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   s.runID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *WebSocketSink) Notify(ctx context.Context, a domain.Alert) error {
	msg, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		if s.conn == nil {
			if err = s.dial(ctx); err != nil {
				return err
			}
		}
		s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err = s.conn.WriteMessage(websocket.TextMessage, msg); err == nil {
			return nil
		}
		s.conn.Close()
		s.conn = nil
	}
	return fmt.Errorf("websocket write: %w", err)
}

func (s *WebSocketSink) dial(ctx context.Context) error {
	token, err := s.BearerToken(time.Now())
	if err != nil {
		return fmt.Errorf("failed to sign alert token: %w", err)
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := s.dialer.DialContext(ctx, s.url, header)
	if err != nil {
		return fmt.Errorf("websocket dial %s: %w", s.url, err)
	}
	s.conn = conn
	return nil
}

// Close sends a close frame and releases the connection.
func (s *WebSocketSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := s.conn.Close()
	s.conn = nil
	return err
}
