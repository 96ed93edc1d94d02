package pg

const schema = `
CREATE TABLE IF NOT EXISTS positions (
	symbol            TEXT PRIMARY KEY,
	exchange          TEXT NOT NULL,
	instrument_token  BIGINT NOT NULL DEFAULT 0,
	product           TEXT NOT NULL,
	quantity          INTEGER NOT NULL,
	entry_price       DOUBLE PRECISION NOT NULL,
	entry_timestamp   TIMESTAMPTZ NOT NULL,
	entry_candle_at   TIMESTAMPTZ,
	ltp               DOUBLE PRECISION NOT NULL DEFAULT 0,
	signal            TEXT NOT NULL,
	reason            TEXT NOT NULL DEFAULT '',
	entry_order_id    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS trades (
	id                BIGSERIAL PRIMARY KEY,
	symbol            TEXT NOT NULL,
	exchange          TEXT NOT NULL,
	instrument_token  BIGINT NOT NULL DEFAULT 0,
	product           TEXT NOT NULL,
	quantity          INTEGER NOT NULL,
	entry_price       DOUBLE PRECISION NOT NULL,
	entry_timestamp   TIMESTAMPTZ NOT NULL,
	exit_price        DOUBLE PRECISION NOT NULL,
	exit_timestamp    TIMESTAMPTZ NOT NULL,
	entry_candle_at   TIMESTAMPTZ,
	exit_candle_at    TIMESTAMPTZ,
	signal            TEXT NOT NULL,
	reason            TEXT NOT NULL DEFAULT '',
	entry_order_id    TEXT NOT NULL DEFAULT '',
	exit_order_id     TEXT NOT NULL,
	pnl               DOUBLE PRECISION NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

ALTER TABLE positions ADD COLUMN IF NOT EXISTS entry_candle_at TIMESTAMPTZ;
ALTER TABLE trades ADD COLUMN IF NOT EXISTS entry_candle_at TIMESTAMPTZ;
ALTER TABLE trades ADD COLUMN IF NOT EXISTS exit_candle_at TIMESTAMPTZ;

CREATE INDEX IF NOT EXISTS trades_symbol_idx ON trades (symbol, exit_timestamp);
CREATE INDEX IF NOT EXISTS trades_entry_order_idx ON trades (entry_order_id) WHERE entry_order_id <> '';

CREATE TABLE IF NOT EXISTS logs (
	id          TEXT PRIMARY KEY,
	log_type    TEXT NOT NULL,
	message     TEXT NOT NULL,
	details     JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS candles (
	id          BIGSERIAL PRIMARY KEY,
	symbol      TEXT NOT NULL,
	time_frame  INTEGER NOT NULL,
	candle_at   TIMESTAMPTZ NOT NULL,
	open        DOUBLE PRECISION NOT NULL,
	high        DOUBLE PRECISION NOT NULL,
	low         DOUBLE PRECISION NOT NULL,
	close       DOUBLE PRECISION NOT NULL,
	volume      BIGINT NOT NULL DEFAULT 0,
	indicators  JSONB NOT NULL DEFAULT '{}'::jsonb,
	signal      TEXT NOT NULL DEFAULT '',
	outcome     TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS candles_symbol_idx ON candles (symbol, candle_at);
`

const getPosition = `
SELECT symbol, exchange, instrument_token, product, quantity, entry_price, entry_timestamp,
       coalesce(entry_candle_at, entry_timestamp), ltp, signal, reason, entry_order_id
FROM positions
WHERE symbol = $1`

const insertPosition = `
INSERT INTO positions (symbol, exchange, instrument_token, product, quantity, entry_price,
                       entry_timestamp, entry_candle_at, ltp, signal, reason, entry_order_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const updateLTP = `UPDATE positions SET ltp = $2 WHERE symbol = $1`

const deletePosition = `DELETE FROM positions WHERE symbol = $1`

const insertTrade = `
INSERT INTO trades (symbol, exchange, instrument_token, product, quantity, entry_price, entry_timestamp,
                    exit_price, exit_timestamp, entry_candle_at, exit_candle_at,
                    signal, reason, entry_order_id, exit_order_id, pnl)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

const tradeColumns = `
SELECT symbol, exchange, instrument_token, product, quantity, entry_price, entry_timestamp,
       exit_price, exit_timestamp, coalesce(entry_candle_at, entry_timestamp), coalesce(exit_candle_at, exit_timestamp),
       signal, reason, entry_order_id, exit_order_id, pnl
FROM trades`

const listTrades = tradeColumns + `
WHERE $1 = '' OR symbol = $1
ORDER BY exit_timestamp`

const tradeByEntryOrder = tradeColumns + `
WHERE entry_order_id = $1 AND entry_order_id <> ''
ORDER BY id
LIMIT 1`

const insertLog = `
INSERT INTO logs (id, log_type, message, details, created_at)
VALUES ($1, $2, $3, $4, $5)`

const insertCandle = `
INSERT INTO candles (symbol, time_frame, candle_at, open, high, low, close, volume,
                     indicators, signal, outcome, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
