package common

const (
	KEY_CANDLE_PANEL   = "candle_panel:%s:%s:%s"
	KEY_SYMBOL_CANDLES = "symbol_candles:%s:%s"
)

const (
	EXCHANGE_IDX    = "IDX"
	EXCHANGE_NASDAQ = "NASDAQ"
	EXCHANGE_NYSE   = "NYSE"
)

func GetExchangeList() []string {
	return []string{
		EXCHANGE_IDX,
		EXCHANGE_NASDAQ,
		EXCHANGE_NYSE,
	}
}
