package subscription

import (
	"time"

	"subledger/core/events"
	"subledger/core/types"
)

// engineState is the slice of the runtime invoke context the engine needs.
// runtime.InvokeContext satisfies it.
type engineState interface {
	ProgramID() types.Pubkey
	Account(key types.Pubkey) (*types.Account, error)
	Allocate(payer, key types.Pubkey, space uint64) error
	SetData(key types.Pubkey, data []byte) error
	Transfer(from, to types.Pubkey, lamports uint64) error
}

// Engine wires subscription marketplace business logic with ledger state and
// event emission. One engine serves a single instruction.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs a subscription engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(events.Envelope{Payload: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}
