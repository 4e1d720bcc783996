package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nexiro/internal/credit"
	"nexiro/internal/domain"
	"nexiro/internal/imagegen"
	"nexiro/internal/infra"
	"nexiro/internal/providers/analysis"
	"nexiro/internal/providers/prompt"
)

// CreditGate debits credits for one generation.
type CreditGate interface {
	Attempt(ctx context.Context, identity string, account domain.CreditAccount, cost int) (domain.CreditAccount, error)
}

// ImageGenerator turns a compiled request into an image.
type ImageGenerator interface {
	Invoke(ctx context.Context, req imagegen.CompiledRequest) (domain.Image, error)
}

type Options struct {
	Analyzer  analysis.Analyzer
	Resolver  prompt.Resolver
	Gate      CreditGate
	Generator ImageGenerator
	Ledger    domain.Ledger
	Accounts  domain.AccountStore
	Logger    *infra.Logger
}

// Orchestrator runs one enhancement request through analysis, style
// resolution, the credit gate and generation.
type Orchestrator struct {
	analyzer  analysis.Analyzer
	resolver  prompt.Resolver
	gate      CreditGate
	generator ImageGenerator
	ledger    domain.Ledger
	accounts  domain.AccountStore
	logger    infra.Logger
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Gate == nil {
		return nil, errors.New("pipeline: credit gate is required")
	}
	if opts.Generator == nil {
		return nil, errors.New("pipeline: image generator is required")
	}
	if opts.Ledger == nil {
		return nil, errors.New("pipeline: ledger is required")
	}
	o := &Orchestrator{
		analyzer:  opts.Analyzer,
		resolver:  opts.Resolver,
		gate:      opts.Gate,
		generator: opts.Generator,
		ledger:    opts.Ledger,
		accounts:  opts.Accounts,
		logger:    infra.NopLogger(),
	}
	if o.analyzer == nil {
		o.analyzer = analysis.StaticAnalyzer{}
	}
	if o.resolver == nil {
		o.resolver = prompt.NewStaticResolver()
	}
	if opts.Logger != nil {
		o.logger = *opts.Logger
	}
	return o, nil
}

// Request is one enhancement. Account is the caller's current view of the
// balance, usually from Account.
type Request struct {
	Identity string
	Source   domain.Image
	Style    domain.StyleInput
	Options  domain.EnhancementOptions
	Account  domain.CreditAccount
}

func (r Request) validate() error {
	if strings.TrimSpace(r.Identity) == "" {
		return domain.ErrUnauthorized
	}
	if r.Source.Empty() {
		return fmt.Errorf("%w: source image is empty", domain.ErrInvalidOptions)
	}
	if err := r.Style.Validate(); err != nil {
		return err
	}
	return r.Options.Validate()
}

type run struct {
	o        *Orchestrator
	req      Request
	observer Observer
	result   Result
}

func (r *run) enter(state State, message string) {
	r.result.State = state
	r.o.logger.Debug().
		Str("identity", r.req.Identity).
		Str("state", string(state)).
		Bool("charged", r.result.Charged).
		Msg("pipeline: transition")
	if r.observer != nil {
		r.observer(Event{State: state, Account: r.result.Account, Charged: r.result.Charged, Message: message})
	}
}

func (r *run) fail(err error) Result {
	r.result.Err = err
	r.enter(StateError, r.result.Message())
	return r.result
}

// Run executes the request and returns its terminal result. The returned
// Account is the balance after the gate, whether or not generation succeeded.
func (o *Orchestrator) Run(ctx context.Context, req Request, observer Observer) Result {
	req.Options = req.Options.WithDefaults()
	r := &run{o: o, req: req, observer: observer}
	r.result.Account = req.Account
	r.result.Cost = credit.Cost(req.Style)
	r.enter(StateIdle, "")

	if err := req.validate(); err != nil {
		return r.fail(&StageError{Stage: StateIdle, Err: err})
	}
	tool := req.Options.ToolType

	r.enter(StateAnalyzing, "")
	subject := domain.EmptyAnalysis()
	if strings.TrimSpace(req.Options.DetectedSubjectDetails) == "" {
		subject = o.analyzer.Analyze(ctx, req.Source, tool)
	}

	style := domain.Passthrough(req.Style)
	if req.Style.Kind() == domain.StyleText {
		r.enter(StateStyleResolving, "")
		style = o.resolver.Resolve(ctx, req.Style, tool)
	}

	r.enter(StateCreditCheck, "")
	account, err := o.gate.Attempt(ctx, req.Identity, req.Account, r.result.Cost)
	if err != nil {
		r.result.Account = account
		if errors.Is(err, domain.ErrInsufficientCredits) {
			r.result.UpgradeRequired = true
			if account != req.Account {
				o.persist(ctx, req.Identity, account)
			}
			return r.fail(err)
		}
		return r.fail(&StageError{Stage: StateCreditCheck, Err: err})
	}
	r.result.Account = account
	r.result.Charged = true
	o.persist(ctx, req.Identity, account)

	instruction := imagegen.Compile(tool, subject, style, req.Options)
	r.result.Instruction = instruction
	compiled := imagegen.Assemble(req.Source, style, req.Options, instruction)

	r.enter(StateGenerating, "")
	img, err := o.generator.Invoke(ctx, compiled)
	if err != nil {
		o.logger.Warn().Err(err).
			Str("identity", req.Identity).
			Int("credits", account.Credits).
			Msg("pipeline: generation failed after debit")
		return r.fail(&StageError{Stage: StateGenerating, Charged: true, Err: err})
	}
	r.result.Image = img
	r.enter(StateSuccess, "")
	return r.result
}

func (o *Orchestrator) persist(ctx context.Context, identity string, account domain.CreditAccount) {
	if o.accounts == nil {
		return
	}
	if err := o.accounts.Save(ctx, identity, account); err != nil {
		o.logger.Warn().Err(err).Str("identity", identity).Msg("pipeline: save account snapshot")
	}
}

// Account returns the last known account for identity. A missing snapshot
// opens the account on the ledger with the FREE plan.
func (o *Orchestrator) Account(ctx context.Context, identity string) (domain.CreditAccount, error) {
	if o.accounts != nil {
		account, ok, err := o.accounts.Load(ctx, identity)
		if err != nil {
			o.logger.Warn().Err(err).Str("identity", identity).Msg("pipeline: load account snapshot")
		} else if ok {
			return account, nil
		}
	}
	account, err := o.ledger.Open(ctx, identity, domain.PlanFree)
	if err != nil {
		return domain.CreditAccount{}, err
	}
	o.persist(ctx, identity, account)
	return account, nil
}

// Reconcile replaces the stored snapshot with the ledger balance.
func (o *Orchestrator) Reconcile(ctx context.Context, identity string) (domain.CreditAccount, error) {
	account, err := o.ledger.Balance(ctx, identity)
	if errors.Is(err, domain.ErrNotFound) {
		account, err = o.ledger.Open(ctx, identity, domain.PlanFree)
	}
	if err != nil {
		return domain.CreditAccount{}, err
	}
	o.persist(ctx, identity, account)
	return account, nil
}

// ChangePlan switches plans; the balance resets to the new allotment.
func (o *Orchestrator) ChangePlan(ctx context.Context, identity string, plan domain.Plan) (domain.CreditAccount, error) {
	if !plan.Valid() {
		return domain.CreditAccount{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedPlan, plan)
	}
	account, err := o.ledger.ChangePlan(ctx, identity, plan)
	if err != nil {
		return domain.CreditAccount{}, err
	}
	o.persist(ctx, identity, account)
	return account, nil
}

// Preview is the compiled instruction for a request, built without any model
// call or debit.
type Preview struct {
	Instruction string   `json:"instruction"`
	Negative    []string `json:"negative"`
	Cost        int      `json:"cost"`
}

// Compile builds the instruction document offline. Subject details come only
// from the hand edit and TEXT styles are not rewritten.
func Compile(req Request) (Preview, error) {
	opts := req.Options.WithDefaults()
	if err := req.Style.Validate(); err != nil {
		return Preview{}, err
	}
	if err := opts.Validate(); err != nil {
		return Preview{}, err
	}
	return Preview{
		Instruction: imagegen.Compile(opts.ToolType, domain.EmptyAnalysis(), domain.Passthrough(req.Style), opts),
		Negative:    imagegen.NegativeConstraints(opts.ToolType),
		Cost:        credit.Cost(req.Style),
	}, nil
}
