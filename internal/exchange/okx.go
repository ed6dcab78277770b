package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"sniper/pkg/ratelimit"
	"sniper/pkg/retry"
)

// OKXConfig - параметры подключения к OKX
type OKXConfig struct {
	APIKey     string
	APISecret  string
	Passphrase string
	Simulated  bool // demo trading (заголовок x-simulated-trading: 1)

	RESTBaseURL  string
	WSPublicURL  string
	WSPrivateURL string

	RateLimit    float64
	RateBurst    float64
	TimeSyncFreq time.Duration

	WSPingInterval time.Duration // ноль = значение по умолчанию
	WSReadTimeout  time.Duration // таймаут ожидания pong
}

// OKX реализует интерфейс Exchange для спотового рынка OKX
type OKX struct {
	cfg OKXConfig

	httpClient *http.Client
	limiter    *ratelimit.RateLimiter

	// Смещение серверных часов биржи в наносекундах (serverTime - localTime).
	// Используется и для подписи запросов, и для выравнивания свечей.
	timeOffsetNs int64 // atomic

	// Кеш метаданных инструментов
	meta   map[string]*InstrumentMeta
	metaMu sync.RWMutex

	// WebSocket managers с автоматическим переподключением
	wsPublic  *WSReconnectManager
	wsPrivate *WSReconnectManager

	handlers   Handlers
	handlersMu sync.RWMutex

	idGen *ClientIDGenerator

	connected bool
	closeChan chan struct{}
	closeOnce sync.Once
}

// NewOKX создает новый экземпляр OKX клиента
// Использует глобальный HTTP клиент с connection pooling
func NewOKX(cfg OKXConfig) *OKX {
	if cfg.RESTBaseURL == "" {
		cfg.RESTBaseURL = "https://www.okx.com"
	}
	if cfg.TimeSyncFreq <= 0 {
		cfg.TimeSyncFreq = 5 * time.Minute
	}

	return &OKX{
		cfg:        cfg,
		httpClient: GetGlobalHTTPClient().GetClient(),
		limiter:    ratelimit.NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		meta:       make(map[string]*InstrumentMeta),
		idGen:      NewClientIDGenerator("snpr"),
		closeChan:  make(chan struct{}),
	}
}

func (o *OKX) GetName() string {
	return "okx"
}

// Now возвращает текущее время по часам биржи
func (o *OKX) Now() time.Time {
	return time.Now().Add(time.Duration(atomic.LoadInt64(&o.timeOffsetNs)))
}

// Connect синхронизирует время, проверяет учетные данные
// и запускает периодическую пересинхронизацию часов
func (o *OKX) Connect(ctx context.Context) error {
	if err := o.syncServerTime(ctx); err != nil {
		// Не фатально: работаем по системным часам до следующей попытки
		log.Printf("[okx] ⚠️ Time sync failed, using system clock: %v", err)
	}

	if _, err := o.GetBalance(ctx, "USDT"); err != nil {
		return fmt.Errorf("failed to connect to OKX: %w", err)
	}

	go o.timeSyncLoop()

	o.connected = true
	return nil
}

// timeSyncLoop периодически пересинхронизирует серверное время
func (o *OKX) timeSyncLoop() {
	ticker := time.NewTicker(o.cfg.TimeSyncFreq)
	defer ticker.Stop()

	for {
		select {
		case <-o.closeChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := o.syncServerTime(ctx); err != nil {
				log.Printf("[okx] ⚠️ Time re-sync failed: %v", err)
			}
			cancel()
		}
	}
}

// syncServerTime получает серверное время и сохраняет смещение
func (o *OKX) syncServerTime(ctx context.Context) error {
	body, err := o.doRequest(ctx, http.MethodGet, "/api/v5/public/time", nil, nil, false)
	if err != nil {
		return err
	}

	var resp struct {
		Data []struct {
			Ts string `json:"ts"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}
	if len(resp.Data) == 0 {
		return fmt.Errorf("empty time response")
	}

	ms, err := strconv.ParseInt(resp.Data[0].Ts, 10, 64)
	if err != nil {
		return fmt.Errorf("bad server timestamp %q: %w", resp.Data[0].Ts, err)
	}

	offset := time.UnixMilli(ms).Sub(time.Now())
	atomic.StoreInt64(&o.timeOffsetNs, int64(offset))
	log.Printf("[okx] ✓ Server time synced (offset: %v)", offset.Round(time.Millisecond))
	return nil
}

// isoTimestamp возвращает серверное время в формате подписи OKX
// (ISO-8601 UTC с миллисекундами)
func (o *OKX) isoTimestamp() string {
	return o.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// sign создает подпись запроса: base64(HMAC-SHA256(ts + METHOD + path + body))
func (o *OKX) sign(timestamp, method, requestPath, body string) string {
	h := hmac.New(sha256.New, []byte(o.cfg.APISecret))
	h.Write([]byte(timestamp + method + requestPath + body))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// doRequest выполняет HTTP запрос к OKX API
//
// params кодируются в query string (сортированно, для стабильной подписи),
// body сериализуется в JSON. Ответы с code != "0" превращаются в ExchangeError.
func (o *OKX) doRequest(ctx context.Context, method, endpoint string, params map[string]string, reqBody interface{}, signed bool) ([]byte, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	requestPath := endpoint
	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		query := url.Values{}
		for _, k := range keys {
			query.Set(k, params[k])
		}
		requestPath = endpoint + "?" + query.Encode()
	}

	var bodyStr string
	if reqBody != nil {
		jsonBytes, err := json.Marshal(reqBody)
		if err != nil {
			return nil, err
		}
		bodyStr = string(jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, o.cfg.RESTBaseURL+requestPath, bytes.NewReader([]byte(bodyStr)))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if o.cfg.Simulated {
		req.Header.Set("x-simulated-trading", "1")
	}

	if signed {
		ts := o.isoTimestamp()
		req.Header.Set("OK-ACCESS-KEY", o.cfg.APIKey)
		req.Header.Set("OK-ACCESS-SIGN", o.sign(ts, method, requestPath, bodyStr))
		req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
		req.Header.Set("OK-ACCESS-PASSPHRASE", o.cfg.Passphrase)
	}

	start := time.Now()
	resp, err := o.httpClient.Do(req)
	observeRESTLatency(endpoint, time.Since(start))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ExchangeError{
			Exchange: "okx",
			Code:     strconv.Itoa(resp.StatusCode),
			Message:  fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(respBody, 200)),
		}
	}

	var baseResp struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(respBody, &baseResp); err != nil {
		return nil, err
	}

	if baseResp.Code != "0" {
		return nil, &ExchangeError{
			Exchange: "okx",
			Code:     baseResp.Code,
			Message:  baseResp.Msg,
		}
	}

	return respBody, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func (o *OKX) GetBalance(ctx context.Context, currency string) (float64, error) {
	body, err := o.doRequest(ctx, http.MethodGet, "/api/v5/account/balance", nil, nil, true)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Data []struct {
			Details []struct {
				Ccy      string `json:"ccy"`
				AvailBal string `json:"availBal"`
			} `json:"details"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, err
	}

	for _, acc := range resp.Data {
		for _, d := range acc.Details {
			if d.Ccy == currency {
				bal, _ := strconv.ParseFloat(d.AvailBal, 64)
				return bal, nil
			}
		}
	}

	return 0, nil
}

func (o *OKX) GetInstrumentMeta(ctx context.Context, instID string) (*InstrumentMeta, error) {
	o.metaMu.RLock()
	if m, ok := o.meta[instID]; ok {
		o.metaMu.RUnlock()
		return m, nil
	}
	o.metaMu.RUnlock()

	params := map[string]string{
		"instType": "SPOT",
		"instId":   instID,
	}

	body, err := o.doRequest(ctx, http.MethodGet, "/api/v5/public/instruments", params, nil, false)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []struct {
			InstID string `json:"instId"`
			TickSz string `json:"tickSz"`
			LotSz  string `json:"lotSz"`
			MinSz  string `json:"minSz"`
			State  string `json:"state"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	for _, d := range resp.Data {
		if d.InstID != instID || d.State != "live" {
			continue
		}

		tickSz, _ := strconv.ParseFloat(d.TickSz, 64)
		lotSz, _ := strconv.ParseFloat(d.LotSz, 64)
		minSz, _ := strconv.ParseFloat(d.MinSz, 64)

		m := &InstrumentMeta{
			Instrument: instID,
			TickSize:   tickSz,
			LotSize:    lotSz,
			MinSize:    minSz,
		}

		o.metaMu.Lock()
		o.meta[instID] = m
		o.metaMu.Unlock()

		return m, nil
	}

	return nil, fmt.Errorf("instrument %s not found or not live", instID)
}

func (o *OKX) GetTickers24h(ctx context.Context) ([]*Ticker24h, error) {
	params := map[string]string{"instType": "SPOT"}

	body, err := o.doRequest(ctx, http.MethodGet, "/api/v5/market/tickers", params, nil, false)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []struct {
			InstID    string `json:"instId"`
			Last      string `json:"last"`
			High24h   string `json:"high24h"`
			Low24h    string `json:"low24h"`
			VolCcy24h string `json:"volCcy24h"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	tickers := make([]*Ticker24h, 0, len(resp.Data))
	for _, d := range resp.Data {
		last, _ := strconv.ParseFloat(d.Last, 64)
		high, _ := strconv.ParseFloat(d.High24h, 64)
		low, _ := strconv.ParseFloat(d.Low24h, 64)
		vol, _ := strconv.ParseFloat(d.VolCcy24h, 64)

		tickers = append(tickers, &Ticker24h{
			Instrument: d.InstID,
			Last:       last,
			High24h:    high,
			Low24h:     low,
			VolUSDT:    vol,
		})
	}

	return tickers, nil
}

// fmtSize форматирует объём с округлением вниз до lot size
func fmtSize(size, lotSize float64) string {
	if lotSize > 0 {
		steps := int64(size / lotSize)
		size = float64(steps) * lotSize
	}
	return strconv.FormatFloat(size, 'f', -1, 64)
}

// fmtPrice форматирует цену с округлением до tick size
func fmtPrice(price, tickSize float64) string {
	if tickSize > 0 {
		steps := int64(price/tickSize + 0.5)
		price = float64(steps) * tickSize
	}
	return strconv.FormatFloat(price, 'f', -1, 64)
}

// PlaceEntryWithExits размещает рыночный вход с прикрепленным OCO (TP+SL).
// OCO создается атомарно с ордером через attachAlgoOrds: биржа активирует
// его сама после исполнения входа.
func (o *OKX) PlaceEntryWithExits(ctx context.Context, req *EntryRequest) (string, string, error) {
	md, err := o.GetInstrumentMeta(ctx, req.Instrument)
	if err != nil {
		return "", "", err
	}

	clOrdID := req.ClientID
	if clOrdID == "" {
		clOrdID = o.idGen.Generate(req.Instrument)
	}
	algoClOrdID := o.idGen.Generate(req.Instrument)

	payload := map[string]interface{}{
		"instId":  req.Instrument,
		"tdMode":  "cash",
		"side":    req.Side,
		"ordType": "market",
		"sz":      fmtSize(req.Size, md.LotSize),
		"tgtCcy":  "base_ccy", // sz в базовой валюте, не в USDT
		"clOrdId": clOrdID,
		"attachAlgoOrds": []map[string]string{{
			"attachAlgoClOrdId": algoClOrdID,
			"tpTriggerPx":       fmtPrice(req.TPPrice, md.TickSize),
			"tpOrdPx":           "-1", // -1: исполнение по рынку
			"slTriggerPx":       fmtPrice(req.SLPrice, md.TickSize),
			"slOrdPx":           "-1",
		}},
	}

	log.Printf("[okx] 📤 Placing MARKET %s %s | sz=%s tp=%s sl=%s",
		req.Side, req.Instrument, fmtSize(req.Size, md.LotSize),
		fmtPrice(req.TPPrice, md.TickSize), fmtPrice(req.SLPrice, md.TickSize))

	body, err := o.doRequest(ctx, http.MethodPost, "/api/v5/trade/order", nil, payload, true)
	if err != nil {
		return "", "", err
	}

	ordID, err := parseOrderAck(body)
	if err != nil {
		return "", "", err
	}

	return ordID, algoClOrdID, nil
}

// parseOrderAck извлекает ordId из ответа на размещение ордера,
// проверяя пер-ордерный sCode
func parseOrderAck(body []byte) (string, error) {
	var resp struct {
		Data []struct {
			OrdID string `json:"ordId"`
			SCode string `json:"sCode"`
			SMsg  string `json:"sMsg"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("empty order response")
	}
	if resp.Data[0].SCode != "0" {
		return "", &ExchangeError{
			Exchange: "okx",
			Code:     resp.Data[0].SCode,
			Message:  resp.Data[0].SMsg,
		}
	}
	return resp.Data[0].OrdID, nil
}

// PlaceMarketExit размещает рыночную продажу всей позиции.
// Критичная операция: применяется агрессивный retry.
func (o *OKX) PlaceMarketExit(ctx context.Context, instID string, size float64) (string, error) {
	md, err := o.GetInstrumentMeta(ctx, instID)
	if err != nil {
		return "", err
	}

	payload := map[string]interface{}{
		"instId":  instID,
		"tdMode":  "cash",
		"side":    SideSell,
		"ordType": "market",
		"sz":      fmtSize(size, md.LotSize),
		"clOrdId": o.idGen.Generate(instID),
	}

	return retry.DoWithResult(ctx, func() (string, error) {
		body, err := o.doRequest(ctx, http.MethodPost, "/api/v5/trade/order", nil, payload, true)
		if err != nil {
			return "", err
		}
		return parseOrderAck(body)
	}, retry.AggressiveConfig())
}

// CancelAlgo отменяет attach-algo (OCO) по клиентскому ID
func (o *OKX) CancelAlgo(ctx context.Context, instID, algoID string) error {
	if algoID == "" {
		return fmt.Errorf("empty algo id")
	}

	payload := []map[string]string{{
		"instId":      instID,
		"algoClOrdId": algoID,
	}}

	return retry.Do(ctx, func() error {
		body, err := o.doRequest(ctx, http.MethodPost, "/api/v5/trade/cancel-algos", nil, payload, true)
		if err != nil {
			return err
		}

		var resp struct {
			Data []struct {
				SCode string `json:"sCode"`
				SMsg  string `json:"sMsg"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return err
		}
		if len(resp.Data) > 0 && resp.Data[0].SCode != "0" {
			// 51300-серия: algo уже исполнен или отменен - не ошибка для нас
			if resp.Data[0].SCode == "51300" || resp.Data[0].SCode == "51301" {
				return nil
			}
			return retry.Permanent(&ExchangeError{
				Exchange: "okx",
				Code:     resp.Data[0].SCode,
				Message:  resp.Data[0].SMsg,
			})
		}
		return nil
	}, retry.NetworkConfig())
}

// CancelOrder отменяет обычный ордер
func (o *OKX) CancelOrder(ctx context.Context, instID, orderID string) error {
	payload := map[string]string{
		"instId": instID,
		"ordId":  orderID,
	}

	_, err := o.doRequest(ctx, http.MethodPost, "/api/v5/trade/cancel-order", nil, payload, true)
	return err
}

// GetOrderState запрашивает состояние ордера по REST
func (o *OKX) GetOrderState(ctx context.Context, instID, orderID string) (*OrderUpdate, error) {
	params := map[string]string{
		"instId": instID,
		"ordId":  orderID,
	}

	body, err := o.doRequest(ctx, http.MethodGet, "/api/v5/trade/order", params, nil, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []struct {
			InstID    string `json:"instId"`
			OrdID     string `json:"ordId"`
			ClOrdID   string `json:"clOrdId"`
			State     string `json:"state"`
			AvgPx     string `json:"avgPx"`
			AccFillSz string `json:"accFillSz"`
			Fee       string `json:"fee"`
			UTime     string `json:"uTime"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("order %s not found", orderID)
	}

	d := resp.Data[0]
	avgPx, _ := strconv.ParseFloat(d.AvgPx, 64)
	fillSz, _ := strconv.ParseFloat(d.AccFillSz, 64)
	fee, _ := strconv.ParseFloat(d.Fee, 64)
	ms, _ := strconv.ParseInt(d.UTime, 10, 64)

	return &OrderUpdate{
		Instrument:   d.InstID,
		OrderID:      d.OrdID,
		ClientID:     d.ClOrdID,
		State:        d.State,
		AvgFillPrice: avgPx,
		FilledSize:   fillSz,
		Fee:          absFloat(fee), // OKX отдает комиссию отрицательной
		Timestamp:    time.UnixMilli(ms),
	}, nil
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// SetHandlers устанавливает обработчики асинхронных событий
func (o *OKX) SetHandlers(h Handlers) {
	o.handlersMu.Lock()
	o.handlers = h
	o.handlersMu.Unlock()
}

// Close закрывает WebSocket соединения и фоновые горутины
func (o *OKX) Close() error {
	o.closeOnce.Do(func() {
		close(o.closeChan)
	})

	if o.wsPublic != nil {
		o.wsPublic.Close()
	}
	if o.wsPrivate != nil {
		o.wsPrivate.Close()
	}

	o.connected = false
	return nil
}
