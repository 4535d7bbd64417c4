package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/btcsuite/btcutil/base58"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"subledger/core/events"
	"subledger/core/state"
	"subledger/core/types"
	"subledger/observability"
)

// Program is native code the runtime dispatches instructions to.
type Program interface {
	ID() types.Pubkey
	Name() string
	Process(ctx InvokeContext, accounts []AccountMeta, data []byte) error
}

// InstructionNamer is optionally implemented by programs so metrics and logs
// can label instructions.
type InstructionNamer interface {
	InstructionName(data []byte) string
}

// Processor executes transactions against ledger state. Transactions are
// serialized: each one runs to completion against its own overlay and is
// committed in a single storage batch or discarded entirely.
type Processor struct {
	mu       sync.Mutex
	state    *state.Manager
	programs map[types.Pubkey]Program
	rent     Rent
	nowFn    func() int64
	logger   *slog.Logger
	metrics  *observability.LedgerMetrics
	tracer   trace.Tracer
}

// NewProcessor constructs a processor with the system program registered.
func NewProcessor(manager *state.Manager) *Processor {
	p := &Processor{
		state:    manager,
		programs: make(map[types.Pubkey]Program),
		rent:     DefaultRent(),
		nowFn:    func() int64 { return time.Now().Unix() },
		logger:   slog.Default(),
		metrics:  observability.Ledger(),
		tracer:   otel.Tracer("subledger/core/runtime"),
	}
	p.programs[types.SystemProgramID] = systemProgram{}
	return p
}

// Register installs a program. Registering the same id twice replaces it.
func (p *Processor) Register(program Program) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.programs[program.ID()] = program
}

// SetRent overrides the storage pricing.
func (p *Processor) SetRent(rent Rent) { p.rent = rent }

// Rent returns the storage pricing in use.
func (p *Processor) Rent() Rent { return p.rent }

// SetNowFunc overrides the clock used for slot timestamps.
func (p *Processor) SetNowFunc(now func() int64) {
	if now == nil {
		p.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	p.nowFn = now
}

// SetLogger configures the logger used for transaction outcomes.
func (p *Processor) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	p.logger = logger
}

// Account returns the committed account at key.
func (p *Processor) Account(key types.Pubkey) (*types.Account, error) {
	return p.state.Account(key)
}

// Balance returns the committed lamport balance of key.
func (p *Processor) Balance(_ context.Context, key types.Pubkey) (uint64, error) {
	acc, err := p.state.Account(key)
	if err != nil {
		return 0, err
	}
	return acc.Lamports, nil
}

// Airdrop credits lamports to key out of thin air, the way a local test
// validator's faucet does.
func (p *Processor) Airdrop(ctx context.Context, key types.Pubkey, lamports uint64) (*Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, span := p.tracer.Start(ctx, "runtime.Airdrop")
	defer span.End()

	slot, err := p.state.Slot()
	if err != nil {
		return nil, err
	}
	slot++
	overlay := p.state.Begin()
	acc, err := overlay.Account(key)
	if err != nil {
		overlay.Discard()
		return nil, err
	}
	sum, ok := addLamports(acc.Lamports, lamports)
	if !ok {
		overlay.Discard()
		return nil, ErrLamportOverflow
	}
	acc.Lamports = sum
	if err := overlay.PutAccount(key, acc); err != nil {
		overlay.Discard()
		return nil, err
	}
	overlay.SetSlot(slot)
	if err := overlay.Commit(); err != nil {
		return nil, err
	}
	p.metrics.SetSlot(slot)
	p.metrics.AddTransferred("faucet", lamports)
	return &Receipt{
		Signature: fmt.Sprintf("airdrop-%d", slot),
		Slot:      slot,
		Logs:      []string{fmt.Sprintf("Airdrop %d lamports to %s", lamports, key)},
	}, nil
}

// Execute runs tx and commits its effects. On failure nothing is committed and
// the returned receipt still carries the logs produced up to the failure.
func (p *Processor) Execute(ctx context.Context, tx *Transaction) (*Receipt, error) {
	return p.run(ctx, tx, true)
}

// Simulate runs tx and always discards its effects. Read-only instructions use
// it to obtain return data without advancing the slot.
func (p *Processor) Simulate(ctx context.Context, tx *Transaction) (*Receipt, error) {
	return p.run(ctx, tx, false)
}

func (p *Processor) run(ctx context.Context, tx *Transaction, commit bool) (receipt *Receipt, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	started := time.Now()
	_, span := p.tracer.Start(ctx, "runtime.Execute", trace.WithAttributes(
		attribute.Int("tx.instructions", len(tx.Instructions)),
		attribute.Bool("tx.commit", commit),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if commit {
			p.metrics.ObserveTransaction(err, time.Since(started))
		}
	}()

	if tx == nil || len(tx.Instructions) == 0 {
		return nil, ErrEmptyTransaction
	}
	signers := tx.signerSet()
	if _, ok := signers[tx.FeePayer]; !ok {
		return nil, fmt.Errorf("%w: fee payer %s", ErrMissingRequiredSignature, tx.FeePayer)
	}

	committed, err := p.state.Slot()
	if err != nil {
		return nil, err
	}
	slot := committed + 1
	digest, err := tx.digest(slot)
	if err != nil {
		return nil, fmt.Errorf("runtime: encode transaction: %w", err)
	}
	receipt = &Receipt{Signature: base58.Encode(digest[:]), Slot: slot}
	span.SetAttributes(attribute.String("tx.signature", receipt.Signature))

	overlay := p.state.Begin()
	recorder := &events.Recorder{}
	now := p.nowFn()
	for i, ix := range tx.Instructions {
		program, ok := p.programs[ix.ProgramID]
		if !ok {
			overlay.Discard()
			return receipt, &TransactionError{Instruction: i, Program: ix.ProgramID.String(), Err: ErrUnknownProgram}
		}
		ictx := &invokeContext{
			processor:  p,
			overlay:    overlay,
			program:    program.ID(),
			name:       program.Name(),
			metas:      make(map[types.Pubkey]AccountMeta, len(ix.Accounts)),
			signers:    signers,
			now:        now,
			logs:       &receipt.Logs,
			returnData: &receipt.ReturnData,
			recorder:   recorder,
		}
		for _, meta := range ix.Accounts {
			if meta.IsSigner {
				if _, signed := signers[meta.Pubkey]; !signed {
					overlay.Discard()
					return receipt, &TransactionError{Instruction: i, Program: program.Name(), Err: fmt.Errorf("%w: %s", ErrMissingRequiredSignature, meta.Pubkey)}
				}
			}
			merged := ictx.metas[meta.Pubkey]
			merged.Pubkey = meta.Pubkey
			merged.IsSigner = merged.IsSigner || meta.IsSigner
			merged.IsWritable = merged.IsWritable || meta.IsWritable
			ictx.metas[meta.Pubkey] = merged
		}

		instruction := ""
		if namer, ok := program.(InstructionNamer); ok {
			instruction = namer.InstructionName(ix.Data)
		}
		receipt.Logs = append(receipt.Logs, fmt.Sprintf("Program %s invoke [1]", program.ID()))
		if instruction != "" {
			receipt.Logs = append(receipt.Logs, "Program log: Instruction: "+instruction)
		}
		if perr := program.Process(ictx, ix.Accounts, ix.Data); perr != nil {
			overlay.Discard()
			code := ErrorCode(perr)
			receipt.Logs = append(receipt.Logs, fmt.Sprintf("Program %s failed: %v", program.ID(), perr))
			p.metrics.ObserveInstruction(program.Name(), instruction, perr, code)
			p.logger.Warn("transaction rejected",
				slog.String("signature", receipt.Signature),
				slog.String("program", program.Name()),
				slog.String("instruction", instruction),
				slog.Any("error", perr))
			return receipt, &TransactionError{Instruction: i, Program: program.Name(), Err: perr}
		}
		receipt.Logs = append(receipt.Logs, fmt.Sprintf("Program %s success", program.ID()))
		p.metrics.ObserveInstruction(program.Name(), instruction, nil, 0)
		p.metrics.AddTransferred(program.Name(), ictx.moved)
	}

	receipt.Events = recorder.Events()
	if !commit {
		overlay.Discard()
		receipt.Slot = committed
		return receipt, nil
	}
	overlay.SetSlot(slot)
	if err := overlay.Commit(); err != nil {
		return receipt, fmt.Errorf("runtime: commit slot %d: %w", slot, err)
	}
	p.metrics.SetSlot(slot)
	for _, evt := range receipt.Events {
		observability.Events().Record(evt.Type)
	}
	p.logger.Debug("transaction committed",
		slog.String("signature", receipt.Signature),
		slog.Uint64("slot", slot),
		slog.Int("instructions", len(tx.Instructions)))
	return receipt, nil
}
