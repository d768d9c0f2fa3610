package broker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"broker-gateway/internal/errors"
)

const (
	fyersDataSocket   = "wss://api-t1.fyers.in/socket/v2/dataSock"
	fyersPingInterval = 30 * time.Second
	fyersReadTimeout  = 60 * time.Second
)

type fyersSubMessage struct {
	T     string   `json:"T"`
	TList []string `json:"TLIST"`
	SubT  int      `json:"SUB_T"`
}

type fyersTickMessage struct {
	S string `json:"s"`
	D struct {
		SymbolData []struct {
			V struct {
				fyersQuotePayload
				Symbol string `json:"symbol"`
			} `json:"v"`
		} `json:"7208"`
	} `json:"d"`
}

// StreamQuotes opens the Fyers data socket for the given broker-native
// symbols. Ticks are JSON symbol updates; the reader publishes converted
// quotes until the subscription closes or the socket drops.
func (f *FyersDriver) StreamQuotes(ctx context.Context, syms []string) (*Subscription, error) {
	if !f.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	f.sessionMu.Lock()
	token := f.cfg.APIKey + ":" + f.accessToken
	f.sessionMu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx,
		fyersDataSocket+"?access_token="+token+"&user-agent=fyers-api&type=symbolUpdate", nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConnectionFailed, err.Error())
	}

	// Concurrent writers: the ping loop and the close path share the socket.
	var writeMu sync.Mutex
	writeJSON := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	sub := NewSubscription(defaultStreamBuffer, func() error {
		_ = writeJSON(fyersSubMessage{T: "SUB_DATA", TList: syms, SubT: 0})
		return conn.Close()
	})

	if err := writeJSON(fyersSubMessage{T: "SUB_DATA", TList: syms, SubT: 1}); err != nil {
		sub.Close()
		return nil, errors.Wrap(errors.ErrConnectionFailed, err.Error())
	}

	go func() {
		ticker := time.NewTicker(fyersPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				writeMu.Lock()
				err := conn.WriteMessage(websocket.TextMessage, []byte("ping"))
				writeMu.Unlock()
				if err != nil {
					return
				}
			case <-sub.Done():
				return
			case <-ctx.Done():
				sub.Close()
				return
			}
		}
	}()

	go func() {
		defer sub.Close()
		for {
			_ = conn.SetReadDeadline(time.Now().Add(fyersReadTimeout))
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var msg fyersTickMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			for _, item := range msg.D.SymbolData {
				if item.V.Symbol == "" {
					continue
				}
				sub.Publish(*item.V.fyersQuotePayload.toQuote(item.V.Symbol))
			}
		}
	}()

	return sub, nil
}
