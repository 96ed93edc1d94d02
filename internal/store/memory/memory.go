package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"intraday_trader/internal/models"
	"intraday_trader/internal/store"

	"github.com/google/uuid"
)

// Store keeps the ledger in process memory. Used for paper runs and tests.
type Store struct {
	mu        sync.RWMutex
	positions map[string]models.Position
	trades    []models.Trade
	logs      []models.LogEntry
	snapshots []models.CandleSnapshot
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{positions: make(map[string]models.Position)}
}

func (s *Store) GetPosition(_ context.Context, symbol string) (models.Position, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[symbol]
	return p, ok, nil
}

func (s *Store) CreatePosition(_ context.Context, p models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[p.Symbol]; ok {
		return fmt.Errorf("memory.CreatePosition %s: %w", p.Symbol, store.ErrPositionExists)
	}
	s.positions[p.Symbol] = p
	return nil
}

func (s *Store) UpdateLastTradedPrice(_ context.Context, symbol string, ltp float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[symbol]
	if !ok {
		return fmt.Errorf("memory.UpdateLastTradedPrice %s: %w", symbol, store.ErrNotFound)
	}
	p.LastTradedPrice = ltp
	s.positions[symbol] = p
	return nil
}

func (s *Store) DeletePosition(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[symbol]; !ok {
		return fmt.Errorf("memory.DeletePosition %s: %w", symbol, store.ErrNotFound)
	}
	delete(s.positions, symbol)
	return nil
}

func (s *Store) InsertTrade(_ context.Context, t models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, t)
	return nil
}

func (s *Store) ListTrades(_ context.Context, symbol string) ([]models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Trade
	for _, t := range s.trades {
		if symbol == "" || t.Symbol == symbol {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) TradeByEntryOrder(_ context.Context, entryOrderID string) (models.Trade, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.trades {
		if entryOrderID != "" && t.OrderID == entryOrderID {
			return t, true, nil
		}
	}
	return models.Trade{}, false, nil
}

func (s *Store) InsertLog(_ context.Context, e models.LogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Details = maps.Clone(e.Details)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, e)
	return nil
}

func (s *Store) InsertCandleSnapshot(_ context.Context, snap models.CandleSnapshot) error {
	snap.Indicators = maps.Clone(snap.Indicators)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snap)
	return nil
}

func (s *Store) Snapshots() []models.CandleSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CandleSnapshot(nil), s.snapshots...)
}

// Logs returns a copy of the journal in insertion order.
func (s *Store) Logs() []models.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.LogEntry(nil), s.logs...)
}

func (s *Store) PositionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions)
}
