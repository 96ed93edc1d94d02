package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"intraday_trader/internal/models"
	"intraday_trader/internal/store"
	"intraday_trader/pkg/db"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// Repository is the Postgres ledger. Each write runs in its own transaction.
type Repository struct {
	db db.TxManager
}

var _ store.Store = (*Repository)(nil)

func New(tm db.TxManager) *Repository {
	return &Repository{db: tm}
}

// Migrate creates the tables if they do not exist.
func (r *Repository) Migrate(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Repository.Migrate: %w", err)
		}
	}()
	_, err = r.db.Conn().Exec(ctx, schema)
	return err
}

func (r *Repository) GetPosition(ctx context.Context, symbol string) (p models.Position, ok bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Repository.GetPosition: %w", err)
		}
	}()

	var signal string
	err = r.db.Conn().QueryRow(ctx, getPosition, symbol).Scan(
		&p.Symbol, &p.Exchange, &p.InstrumentToken, &p.Product, &p.Quantity, &p.EntryPrice,
		&p.EntryTimestamp, &p.From, &p.LastTradedPrice, &signal, &p.Reason, &p.OrderID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Position{}, false, nil
	}
	if err != nil {
		return models.Position{}, false, err
	}
	p.Signal = models.SignalKind(signal)
	return p, true, nil
}

func (r *Repository) CreatePosition(ctx context.Context, p models.Position) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Repository.CreatePosition: %w", err)
		}
	}()
	err = r.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, insertPosition,
			p.Symbol, p.Exchange, p.InstrumentToken, p.Product, p.Quantity, p.EntryPrice,
			p.EntryTimestamp, nullTime(p.From), p.LastTradedPrice, string(p.Signal), p.Reason, p.OrderID,
		)
		return err
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", p.Symbol, store.ErrPositionExists)
	}
	return writeErr(err)
}

func (r *Repository) UpdateLastTradedPrice(ctx context.Context, symbol string, ltp float64) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Repository.UpdateLastTradedPrice: %w", err)
		}
	}()
	return r.execOne(ctx, symbol, updateLTP, symbol, ltp)
}

func (r *Repository) DeletePosition(ctx context.Context, symbol string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Repository.DeletePosition: %w", err)
		}
	}()
	return r.execOne(ctx, symbol, deletePosition, symbol)
}

// execOne runs a statement that must touch exactly the row for symbol.
func (r *Repository) execOne(ctx context.Context, symbol, query string, args ...any) error {
	var affected int64
	err := r.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctxTx, query, args...)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return writeErr(err)
	}
	if affected == 0 {
		return fmt.Errorf("position %s: %w", symbol, store.ErrNotFound)
	}
	return nil
}

func (r *Repository) InsertTrade(ctx context.Context, t models.Trade) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Repository.InsertTrade: %w", err)
		}
	}()
	err = r.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, insertTrade,
			t.Symbol, t.Exchange, t.InstrumentToken, t.Product, t.Quantity, t.EntryPrice, t.EntryTimestamp,
			t.ExitPrice, t.ExitTimestamp, nullTime(t.From), nullTime(t.To),
			string(t.Signal), t.Reason, t.OrderID, t.ExitOrderID, t.PnL,
		)
		return err
	})
	return writeErr(err)
}

func (r *Repository) ListTrades(ctx context.Context, symbol string) (out []models.Trade, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Repository.ListTrades: %w", err)
		}
	}()

	rows, err := r.db.Conn().Query(ctx, listTrades, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) TradeByEntryOrder(ctx context.Context, entryOrderID string) (t models.Trade, ok bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Repository.TradeByEntryOrder: %w", err)
		}
	}()
	t, err = scanTrade(r.db.Conn().QueryRow(ctx, tradeByEntryOrder, entryOrderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Trade{}, false, nil
	}
	if err != nil {
		return models.Trade{}, false, err
	}
	return t, true, nil
}

func scanTrade(row pgx.Row) (models.Trade, error) {
	var (
		t      models.Trade
		signal string
	)
	err := row.Scan(
		&t.Symbol, &t.Exchange, &t.InstrumentToken, &t.Product, &t.Quantity, &t.EntryPrice, &t.EntryTimestamp,
		&t.ExitPrice, &t.ExitTimestamp, &t.From, &t.To, &signal, &t.Reason, &t.OrderID, &t.ExitOrderID, &t.PnL,
	)
	if err != nil {
		return models.Trade{}, err
	}
	t.Signal = models.SignalKind(signal)
	t.LastTradedPrice = t.ExitPrice
	return t, nil
}

func (r *Repository) InsertLog(ctx context.Context, e models.LogEntry) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Repository.InsertLog: %w", err)
		}
	}()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	details, err := sonic.Marshal(e.Details)
	if err != nil {
		return err
	}
	err = r.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, insertLog, e.ID, string(e.Kind), e.Message, details, e.CreatedAt)
		return err
	})
	return writeErr(err)
}

func (r *Repository) InsertCandleSnapshot(ctx context.Context, c models.CandleSnapshot) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Repository.InsertCandleSnapshot: %w", err)
		}
	}()

	if c.Indicators == nil {
		c.Indicators = map[string]float64{}
	}
	indicators, err := sonic.Marshal(c.Indicators)
	if err != nil {
		return err
	}
	err = r.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, insertCandle,
			c.Symbol, c.TimeFrame, c.Candle.Timestamp, c.Candle.Open, c.Candle.High, c.Candle.Low, c.Candle.Close,
			c.Candle.Volume, indicators, string(c.Signal), c.Outcome, c.CreatedAt,
		)
		return err
	})
	return writeErr(err)
}

// nullTime stores a zero time as NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func writeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", store.ErrWriteFailed, err)
}
