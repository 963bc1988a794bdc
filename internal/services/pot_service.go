package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"finance/internal/amqp"
	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/store"
)

// PotInput is the client-writable part of a pot. Total only changes through
// AddMoney and Withdraw.
type PotInput struct {
	Name   string
	Target core.Money
	Theme  core.Theme
}

type PotService struct {
	pots   store.PotStore
	notify notifier
	logger *log.Logger

	// serializes read-modify-write of pot totals within this process
	mu sync.Mutex
}

func NewPotService(pots store.PotStore, pub EventPublisher, logger *log.Logger) *PotService {
	logger = logger.WithComponent(log.ComponentPot)
	return &PotService{
		pots:   pots,
		notify: notifier{publisher: pub, logger: logger},
		logger: logger,
	}
}

func (s *PotService) List(ctx context.Context) ([]core.Pot, error) {
	pots, err := s.pots.ListPots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pots: %w", err)
	}
	return pots, nil
}

func (s *PotService) Get(ctx context.Context, id string) (core.Pot, error) {
	p, err := s.pots.GetPot(ctx, id)
	if err != nil {
		return core.Pot{}, fmt.Errorf("get pot %s: %w", id, err)
	}
	return p, nil
}

// Create stores a new empty pot.
func (s *PotService) Create(ctx context.Context, in PotInput) (core.Pot, error) {
	p := core.Pot{
		ID:     uuid.NewString(),
		Name:   strings.TrimSpace(in.Name),
		Target: in.Target,
		Theme:  in.Theme,
	}
	if err := p.Validate(); err != nil {
		return core.Pot{}, err
	}
	if err := s.pots.CreatePot(ctx, p); err != nil {
		return core.Pot{}, fmt.Errorf("create pot %q: %w", p.Name, err)
	}

	s.logWrite(ctx, log.OpCreate, p, p.Target.Cents)
	s.notify.publish(ctx, amqp.EventPotSaved, p.ID)
	return p, nil
}

// Update changes name, target and theme and keeps the saved total.
func (s *PotService) Update(ctx context.Context, id string, in PotInput) (core.Pot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.pots.GetPot(ctx, id)
	if err != nil {
		return core.Pot{}, fmt.Errorf("get pot %s: %w", id, err)
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Target = in.Target
	p.Theme = in.Theme
	if err := p.Validate(); err != nil {
		return core.Pot{}, err
	}
	if err := s.pots.UpdatePot(ctx, p); err != nil {
		return core.Pot{}, fmt.Errorf("update pot %s: %w", id, err)
	}

	s.logWrite(ctx, log.OpUpdate, p, p.Target.Cents)
	s.notify.publish(ctx, amqp.EventPotSaved, p.ID)
	return p, nil
}

func (s *PotService) Delete(ctx context.Context, id string) error {
	if err := s.pots.DeletePot(ctx, id); err != nil {
		return fmt.Errorf("delete pot %s: %w", id, err)
	}
	s.logger.InfoContext(ctx, "Pot deleted", log.FieldPotID, id, log.FieldOperation, log.OpDelete)
	s.notify.publish(ctx, amqp.EventPotDeleted, id)
	return nil
}

// AddMoney moves amount into the pot.
func (s *PotService) AddMoney(ctx context.Context, id string, amount core.Money) (core.Pot, error) {
	return s.move(ctx, id, amount, log.OpDeposit, core.Pot.AddMoney)
}

// Withdraw moves amount out of the pot. It fails with core.ErrInvalidAmount
// when amount exceeds the saved total, leaving the pot unchanged.
func (s *PotService) Withdraw(ctx context.Context, id string, amount core.Money) (core.Pot, error) {
	return s.move(ctx, id, amount, log.OpWithdraw, core.Pot.Withdraw)
}

func (s *PotService) move(ctx context.Context, id string, amount core.Money, op string, apply func(core.Pot, core.Money) (core.Pot, error)) (core.Pot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.pots.GetPot(ctx, id)
	if err != nil {
		return core.Pot{}, fmt.Errorf("get pot %s: %w", id, err)
	}
	updated, err := apply(p, amount)
	if err != nil {
		return p, err
	}
	if err := s.pots.UpdatePot(ctx, updated); err != nil {
		return p, fmt.Errorf("%s pot %s: %w", op, id, err)
	}

	s.logWrite(ctx, op, updated, amount.Cents)
	s.notify.publish(ctx, amqp.EventPotSaved, id)
	return updated, nil
}

func (s *PotService) logWrite(ctx context.Context, op string, p core.Pot, cents int64) {
	log.NewStructuredLogger(s.logger).LogLedgerWrite(ctx, log.ComponentPot, op, "", p.ID, cents)
}
