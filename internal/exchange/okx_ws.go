package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

// Горячий путь: parsing потока котировок через jsoniter
var jsonFast = jsoniter.ConfigCompatibleWithStandardLibrary

// Лимит OKX на число каналов в одном subscribe запросе
const wsSubscribeBatchSize = 20

// wsSubArg - аргумент подписки на канал
type wsSubArg struct {
	Channel  string `json:"channel"`
	InstID   string `json:"instId,omitempty"`
	InstType string `json:"instType,omitempty"`
}

type wsOpRequest struct {
	Op   string     `json:"op"`
	Args []wsSubArg `json:"args"`
}

// subKey формирует ключ подписки для восстановления после reconnect
func subKey(channel, instID string) string {
	return channel + ":" + instID
}

// ============================================================
// ПУБЛИЧНЫЙ WEBSOCKET: котировки и сделки
// ============================================================

// wsReconnectConfig возвращает конфигурацию переподключения
// с учетом настроек ping/pong из конфига биржи
func (o *OKX) wsReconnectConfig() WSReconnectConfig {
	cfg := DefaultWSReconnectConfig()
	if o.cfg.WSPingInterval > 0 {
		cfg.PingInterval = o.cfg.WSPingInterval
	}
	if o.cfg.WSReadTimeout > 0 {
		cfg.PongTimeout = o.cfg.WSReadTimeout
	}
	return cfg
}

// ensurePublicWS лениво устанавливает публичное соединение
func (o *OKX) ensurePublicWS() error {
	if o.wsPublic != nil {
		return nil
	}

	wsURL := o.cfg.WSPublicURL
	if wsURL == "" {
		if o.cfg.Simulated {
			wsURL = "wss://wspap.okx.com:8443/ws/v5/public"
		} else {
			wsURL = "wss://ws.okx.com:8443/ws/v5/public"
		}
	}

	mgr := NewWSReconnectManager("okx-public", wsURL, o.wsReconnectConfig())
	mgr.SetOnMessage(o.handlePublicMessage)
	mgr.SetOnDisconnect(func(err error) {
		if err != nil {
			log.Printf("[okx] ⚠️ Public WS disconnected: %v", err)
		}
	})

	if err := mgr.Connect(); err != nil {
		return fmt.Errorf("public ws connect: %w", err)
	}

	o.wsPublic = mgr
	return nil
}

// SubscribeMarket подписывается на bbo-tbt (best bid/offer) и trades
// для списка инструментов. Подписки отправляются батчами.
func (o *OKX) SubscribeMarket(instIDs []string) error {
	if len(instIDs) == 0 {
		return nil
	}
	if err := o.ensurePublicWS(); err != nil {
		return err
	}

	args := make([]wsSubArg, 0, len(instIDs)*2)
	for _, id := range instIDs {
		bbo := wsSubArg{Channel: "bbo-tbt", InstID: id}
		trd := wsSubArg{Channel: "trades", InstID: id}
		args = append(args, bbo, trd)
		o.wsPublic.AddSubscription(subKey("bbo-tbt", id), wsOpRequest{Op: "subscribe", Args: []wsSubArg{bbo}})
		o.wsPublic.AddSubscription(subKey("trades", id), wsOpRequest{Op: "subscribe", Args: []wsSubArg{trd}})
	}

	for i := 0; i < len(args); i += wsSubscribeBatchSize {
		end := i + wsSubscribeBatchSize
		if end > len(args) {
			end = len(args)
		}
		if err := o.wsPublic.Send(wsOpRequest{Op: "subscribe", Args: args[i:end]}); err != nil {
			return fmt.Errorf("subscribe batch: %w", err)
		}
	}

	log.Printf("[okx] ✓ Subscribed to %d instruments (bbo-tbt + trades)", len(instIDs))
	return nil
}

// UnsubscribeMarket отписывается от каналов инструментов
// и убирает их из списка восстановления
func (o *OKX) UnsubscribeMarket(instIDs []string) error {
	if len(instIDs) == 0 || o.wsPublic == nil {
		return nil
	}

	args := make([]wsSubArg, 0, len(instIDs)*2)
	for _, id := range instIDs {
		args = append(args,
			wsSubArg{Channel: "bbo-tbt", InstID: id},
			wsSubArg{Channel: "trades", InstID: id})
		o.wsPublic.RemoveSubscription(subKey("bbo-tbt", id))
		o.wsPublic.RemoveSubscription(subKey("trades", id))
	}

	for i := 0; i < len(args); i += wsSubscribeBatchSize {
		end := i + wsSubscribeBatchSize
		if end > len(args) {
			end = len(args)
		}
		if err := o.wsPublic.Send(wsOpRequest{Op: "unsubscribe", Args: args[i:end]}); err != nil {
			return fmt.Errorf("unsubscribe batch: %w", err)
		}
	}

	return nil
}

// wsPushMessage - общая обертка push сообщений OKX
type wsPushMessage struct {
	Event string `json:"event,omitempty"`
	Code  string `json:"code,omitempty"`
	Msg   string `json:"msg,omitempty"`
	Arg   struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data jsoniter.RawMessage `json:"data"`
}

// handlePublicMessage разбирает push с публичного соединения
func (o *OKX) handlePublicMessage(raw []byte) {
	var msg wsPushMessage
	if err := jsonFast.Unmarshal(raw, &msg); err != nil {
		wsParseErrorsTotal.Inc()
		return
	}

	if msg.Event != "" {
		if msg.Event == "error" {
			log.Printf("[okx] ⚠️ Public WS error: code=%s msg=%s", msg.Code, msg.Msg)
		}
		return
	}
	if len(msg.Data) == 0 {
		return
	}

	wsMessagesTotal.WithLabelValues(msg.Arg.Channel).Inc()

	switch msg.Arg.Channel {
	case "bbo-tbt":
		o.handleBookPush(msg.Arg.InstID, msg.Data)
	case "trades":
		o.handleTradesPush(msg.Data)
	}
}

func (o *OKX) handleBookPush(instID string, data jsoniter.RawMessage) {
	var items []struct {
		Asks [][]string `json:"asks"`
		Bids [][]string `json:"bids"`
		Ts   string     `json:"ts"`
	}
	if err := jsonFast.Unmarshal(data, &items); err != nil {
		wsParseErrorsTotal.Inc()
		return
	}

	o.handlersMu.RLock()
	onBook := o.handlers.OnBook
	o.handlersMu.RUnlock()
	if onBook == nil {
		return
	}

	for _, it := range items {
		if len(it.Asks) == 0 || len(it.Bids) == 0 {
			continue
		}
		if len(it.Asks[0]) < 2 || len(it.Bids[0]) < 2 {
			continue
		}

		askPx, _ := strconv.ParseFloat(it.Asks[0][0], 64)
		askSz, _ := strconv.ParseFloat(it.Asks[0][1], 64)
		bidPx, _ := strconv.ParseFloat(it.Bids[0][0], 64)
		bidSz, _ := strconv.ParseFloat(it.Bids[0][1], 64)
		ms, _ := strconv.ParseInt(it.Ts, 10, 64)

		if askPx <= 0 || bidPx <= 0 {
			continue
		}

		onBook(&BookUpdate{
			Instrument: instID,
			BidPrice:   bidPx,
			BidQty:     bidSz,
			AskPrice:   askPx,
			AskQty:     askSz,
			Timestamp:  time.UnixMilli(ms),
		})
	}
}

func (o *OKX) handleTradesPush(data jsoniter.RawMessage) {
	var items []struct {
		InstID string `json:"instId"`
		Px     string `json:"px"`
		Sz     string `json:"sz"`
		Side   string `json:"side"`
		Ts     string `json:"ts"`
	}
	if err := jsonFast.Unmarshal(data, &items); err != nil {
		wsParseErrorsTotal.Inc()
		return
	}

	o.handlersMu.RLock()
	onTrade := o.handlers.OnTrade
	o.handlersMu.RUnlock()
	if onTrade == nil {
		return
	}

	for _, it := range items {
		px, _ := strconv.ParseFloat(it.Px, 64)
		sz, _ := strconv.ParseFloat(it.Sz, 64)
		ms, _ := strconv.ParseInt(it.Ts, 10, 64)

		if px <= 0 || sz <= 0 {
			continue
		}

		onTrade(&TradePrint{
			Instrument: it.InstID,
			Price:      px,
			Size:       sz,
			Side:       it.Side,
			Timestamp:  time.UnixMilli(ms),
		})
	}
}

// ============================================================
// ПРИВАТНЫЙ WEBSOCKET: обновления ордеров
// ============================================================

// SubscribePrivate подключает приватное соединение (login + канал orders)
func (o *OKX) SubscribePrivate() error {
	if o.wsPrivate != nil {
		return nil
	}

	wsURL := o.cfg.WSPrivateURL
	if wsURL == "" {
		if o.cfg.Simulated {
			wsURL = "wss://wspap.okx.com:8443/ws/v5/private"
		} else {
			wsURL = "wss://ws.okx.com:8443/ws/v5/private"
		}
	}

	mgr := NewWSReconnectManager("okx-private", wsURL, o.wsReconnectConfig())
	mgr.SetAuthFunc(o.wsLogin)
	mgr.SetOnMessage(o.handlePrivateMessage)
	mgr.SetOnDisconnect(func(err error) {
		if err != nil {
			log.Printf("[okx] ⚠️ Private WS disconnected: %v", err)
		}
	})

	// Канал orders восстанавливается автоматически после reconnect
	mgr.AddSubscription(subKey("orders", "SPOT"), wsOpRequest{
		Op:   "subscribe",
		Args: []wsSubArg{{Channel: "orders", InstType: "SPOT"}},
	})

	if err := mgr.Connect(); err != nil {
		return fmt.Errorf("private ws connect: %w", err)
	}

	o.wsPrivate = mgr
	log.Printf("[okx] ✓ Private WS connected (orders channel)")
	return nil
}

// wsLogin аутентифицирует приватное соединение.
// Подпись: base64(HMAC-SHA256(secret, ts + "GET" + "/users/self/verify")),
// где ts - unix секунды.
func (o *OKX) wsLogin(conn *websocket.Conn) error {
	ts := strconv.FormatInt(o.Now().Unix(), 10)

	h := hmac.New(sha256.New, []byte(o.cfg.APISecret))
	h.Write([]byte(ts + "GET" + "/users/self/verify"))
	sign := base64.StdEncoding.EncodeToString(h.Sum(nil))

	loginReq := map[string]interface{}{
		"op": "login",
		"args": []map[string]string{{
			"apiKey":     o.cfg.APIKey,
			"passphrase": o.cfg.Passphrase,
			"timestamp":  ts,
			"sign":       sign,
		}},
	}

	if err := conn.WriteJSON(loginReq); err != nil {
		return err
	}

	// Ждем подтверждение login до отправки подписок
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	defer conn.SetReadDeadline(time.Time{})

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("login response read: %w", err)
	}

	var resp struct {
		Event string `json:"event"`
		Code  string `json:"code"`
		Msg   string `json:"msg"`
	}
	if err := jsonFast.Unmarshal(raw, &resp); err != nil {
		return err
	}
	if resp.Event != "login" || resp.Code != "0" {
		return fmt.Errorf("login failed: event=%s code=%s msg=%s", resp.Event, resp.Code, resp.Msg)
	}

	return nil
}

// handlePrivateMessage разбирает push с приватного соединения
func (o *OKX) handlePrivateMessage(raw []byte) {
	var msg wsPushMessage
	if err := jsonFast.Unmarshal(raw, &msg); err != nil {
		wsParseErrorsTotal.Inc()
		return
	}

	if msg.Event != "" {
		if msg.Event == "error" {
			log.Printf("[okx] ⚠️ Private WS error: code=%s msg=%s", msg.Code, msg.Msg)
		}
		return
	}
	if msg.Arg.Channel != "orders" || len(msg.Data) == 0 {
		return
	}

	wsMessagesTotal.WithLabelValues("orders").Inc()

	var items []struct {
		InstID      string `json:"instId"`
		OrdID       string `json:"ordId"`
		ClOrdID     string `json:"clOrdId"`
		AlgoClOrdID string `json:"algoClOrdId"`
		State       string `json:"state"`
		AvgPx       string `json:"avgPx"`
		AccFillSz   string `json:"accFillSz"`
		LastPx      string `json:"lastPx"`
		Fee         string `json:"fee"`
		UTime       string `json:"uTime"`
	}
	if err := jsonFast.Unmarshal(msg.Data, &items); err != nil {
		wsParseErrorsTotal.Inc()
		return
	}

	o.handlersMu.RLock()
	onOrder := o.handlers.OnOrder
	onAlgo := o.handlers.OnAlgo
	o.handlersMu.RUnlock()

	for _, it := range items {
		avgPx, _ := strconv.ParseFloat(it.AvgPx, 64)
		fillSz, _ := strconv.ParseFloat(it.AccFillSz, 64)
		lastPx, _ := strconv.ParseFloat(it.LastPx, 64)
		fee, _ := strconv.ParseFloat(it.Fee, 64)
		ms, _ := strconv.ParseInt(it.UTime, 10, 64)
		ts := time.UnixMilli(ms)

		if onOrder != nil {
			onOrder(&OrderUpdate{
				Instrument:   it.InstID,
				OrderID:      it.OrdID,
				ClientID:     it.ClOrdID,
				AlgoID:       it.AlgoClOrdID,
				State:        it.State,
				AvgFillPrice: avgPx,
				FilledSize:   fillSz,
				Fee:          absFloat(fee),
				Timestamp:    ts,
			})
		}

		// Исполнение прикрепленного TP/SL приходит в том же канале orders:
		// у такого ордера заполнен algoClOrdId
		if onAlgo != nil && it.AlgoClOrdID != "" && it.State == OrderStateFilled {
			exitPx := lastPx
			if exitPx <= 0 {
				exitPx = avgPx
			}
			onAlgo(&AlgoFill{
				Instrument: it.InstID,
				AlgoID:     it.AlgoClOrdID,
				LastPrice:  exitPx,
				Fee:        absFloat(fee),
				Size:       fillSz,
				Timestamp:  ts,
			})
		}
	}
}
