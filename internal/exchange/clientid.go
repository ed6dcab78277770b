package exchange

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// maxClientIDLen - лимит OKX на длину clOrdId
const maxClientIDLen = 32

// ClientIDGenerator генерирует уникальные клиентские ID ордеров.
// Формат: <prefix><код пары (4 символа)><мс timestamp><счетчик 3 цифры>,
// усеченный до 32 символов. Счетчик защищает от коллизий внутри одной мс.
type ClientIDGenerator struct {
	prefix  string
	counter uint64
}

func NewClientIDGenerator(prefix string) *ClientIDGenerator {
	return &ClientIDGenerator{prefix: prefix}
}

// Generate создает новый ID для инструмента вида "BTC-USDT"
func (g *ClientIDGenerator) Generate(instID string) string {
	base := instID
	if idx := strings.IndexByte(instID, '-'); idx > 0 {
		base = instID[:idx]
	}
	if len(base) > 4 {
		base = base[:4]
	}

	n := atomic.AddUint64(&g.counter, 1) % 1000
	ms := time.Now().UnixMilli()

	var b strings.Builder
	b.WriteString(g.prefix)
	b.WriteString(base)
	b.WriteString(strconv.FormatInt(ms, 10))
	// всегда 3 цифры
	if n < 10 {
		b.WriteString("00")
	} else if n < 100 {
		b.WriteString("0")
	}
	b.WriteString(strconv.FormatUint(n, 10))

	id := b.String()
	if len(id) > maxClientIDLen {
		id = id[:maxClientIDLen]
	}
	return id
}
