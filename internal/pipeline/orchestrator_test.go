package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"nexiro/internal/adapter/ledger"
	"nexiro/internal/adapter/session"
	"nexiro/internal/credit"
	"nexiro/internal/domain"
	"nexiro/internal/imagegen"
)

const testIdentity = "chef@example.com"

type countingLedger struct {
	domain.Ledger
	debits int
}

func (c *countingLedger) Debit(ctx context.Context, identity string, amount int) (domain.CreditAccount, error) {
	c.debits++
	return c.Ledger.Debit(ctx, identity, amount)
}

type stubAnalyzer struct {
	result domain.AnalysisResult
	calls  int
}

func (s *stubAnalyzer) Analyze(context.Context, domain.Image, domain.ToolType) domain.AnalysisResult {
	s.calls++
	return s.result
}

func (s *stubAnalyzer) ReferenceProps(context.Context, domain.Image) []string {
	return []string{}
}

type stubResolver struct {
	text  string
	calls int
}

func (s *stubResolver) Resolve(_ context.Context, style domain.StyleInput, _ domain.ToolType) domain.ResolvedStyle {
	s.calls++
	if s.text == "" {
		return domain.Passthrough(style)
	}
	return domain.ResolvedStyle{Kind: domain.StyleText, Text: s.text}
}

type stubGenerator struct {
	img   domain.Image
	err   error
	calls int
	last  imagegen.CompiledRequest
}

func (s *stubGenerator) Invoke(_ context.Context, req imagegen.CompiledRequest) (domain.Image, error) {
	s.calls++
	s.last = req
	return s.img, s.err
}

type failingStore struct{}

func (failingStore) Load(context.Context, string) (domain.CreditAccount, bool, error) {
	return domain.CreditAccount{}, false, errors.New("redis down")
}

func (failingStore) Save(context.Context, string, domain.CreditAccount) error {
	return errors.New("redis down")
}

type fixture struct {
	ledger    *countingLedger
	analyzer  *stubAnalyzer
	resolver  *stubResolver
	generator *stubGenerator
	store     *session.MemoryStore
	orch      *Orchestrator
}

func newFixture(t *testing.T, account domain.CreditAccount) *fixture {
	t.Helper()
	f := &fixture{
		ledger:    &countingLedger{Ledger: ledger.NewMemory(map[string]domain.CreditAccount{testIdentity: account})},
		analyzer:  &stubAnalyzer{result: domain.AnalysisResult{Details: "rice, fried egg", Props: []string{}}},
		resolver:  &stubResolver{},
		generator: &stubGenerator{img: domain.Image{Data: []byte("png"), MIMEType: "image/png"}},
		store:     session.NewMemoryStore(),
	}
	orch, err := New(Options{
		Analyzer:  f.analyzer,
		Resolver:  f.resolver,
		Gate:      credit.NewGate(f.ledger),
		Generator: f.generator,
		Ledger:    f.ledger,
		Accounts:  f.store,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	f.orch = orch
	return f
}

func textRequest(account domain.CreditAccount) Request {
	return Request{
		Identity: testIdentity,
		Source:   domain.Image{Data: []byte("jpeg"), MIMEType: "image/jpeg"},
		Style:    domain.NewTextStyle("rustic wooden table"),
		Options:  domain.DefaultOptions(domain.ToolFood),
		Account:  account,
	}
}

func collect(events *[]State) Observer {
	return func(e Event) { *events = append(*events, e.State) }
}

func TestRunSuccessTextStyle(t *testing.T) {
	start := domain.CreditAccount{Plan: domain.PlanStarter, Credits: 10}
	f := newFixture(t, start)
	f.resolver.text = "moody rustic table, softbox key light"

	var states []State
	res := f.orch.Run(context.Background(), textRequest(start), collect(&states))

	if res.State != StateSuccess || res.Err != nil {
		t.Fatalf("Run = %s (%v), want SUCCESS", res.State, res.Err)
	}
	if string(res.Image.Data) != "png" {
		t.Fatalf("Image = %q, want generated bytes", res.Image.Data)
	}
	if res.Account.Credits != 9 || !res.Charged {
		t.Fatalf("Account = %+v charged=%t, want 9 credits charged", res.Account, res.Charged)
	}
	want := []State{StateIdle, StateAnalyzing, StateStyleResolving, StateCreditCheck, StateGenerating, StateSuccess}
	if strings.Join(statesToStrings(states), ",") != strings.Join(statesToStrings(want), ",") {
		t.Fatalf("states = %v, want %v", states, want)
	}
	if !strings.Contains(f.generator.last.Instruction(), "moody rustic table") {
		t.Fatal("instruction does not carry the resolved style text")
	}
	if !strings.Contains(f.generator.last.Instruction(), "rice, fried egg") {
		t.Fatal("instruction does not carry the analysis details")
	}
	saved, ok, _ := f.store.Load(context.Background(), testIdentity)
	if !ok || saved.Credits != 9 {
		t.Fatalf("stored snapshot = %+v (%t), want 9 credits", saved, ok)
	}
}

func TestRunImageStyleSkipsResolver(t *testing.T) {
	start := domain.CreditAccount{Plan: domain.PlanStarter, Credits: 40}
	f := newFixture(t, start)
	req := textRequest(start)
	req.Style = domain.NewImageStyle(domain.Image{Data: []byte("ref"), MIMEType: "image/png"})

	var states []State
	res := f.orch.Run(context.Background(), req, collect(&states))
	if res.State != StateSuccess {
		t.Fatalf("Run = %s (%v), want SUCCESS", res.State, res.Err)
	}
	if f.resolver.calls != 0 {
		t.Fatalf("resolver calls = %d, want 0", f.resolver.calls)
	}
	for _, s := range states {
		if s == StateStyleResolving {
			t.Fatal("STYLE_RESOLVING emitted for an IMAGE style")
		}
	}
	if res.Account.Credits != 36 {
		t.Fatalf("Credits = %d, want 36", res.Account.Credits)
	}
	if got := len(f.generator.last.Images()); got != 2 {
		t.Fatalf("images sent = %d, want source and reference", got)
	}
}

func TestRunHandEditSkipsAnalysis(t *testing.T) {
	start := domain.CreditAccount{Plan: domain.PlanStarter, Credits: 5}
	f := newFixture(t, start)
	req := textRequest(start)
	req.Options.DetectedSubjectDetails = "ramen, soft egg"

	res := f.orch.Run(context.Background(), req, nil)
	if res.State != StateSuccess {
		t.Fatalf("Run = %s (%v), want SUCCESS", res.State, res.Err)
	}
	if f.analyzer.calls != 0 {
		t.Fatalf("analyzer calls = %d, want 0", f.analyzer.calls)
	}
	if !strings.Contains(f.generator.last.Instruction(), "ramen, soft egg") {
		t.Fatal("instruction does not carry the hand-edited details")
	}
}

func TestRunSoftFailuresStillGenerate(t *testing.T) {
	start := domain.CreditAccount{Plan: domain.PlanStarter, Credits: 3}
	f := newFixture(t, start)
	f.analyzer.result = domain.EmptyAnalysis()

	res := f.orch.Run(context.Background(), textRequest(start), nil)
	if res.State != StateSuccess {
		t.Fatalf("Run = %s (%v), want SUCCESS", res.State, res.Err)
	}
	instruction := f.generator.last.Instruction()
	if !strings.Contains(instruction, "Preserve visible ingredients.") {
		t.Fatal("instruction missing the empty-analysis ingredients clause")
	}
	if !strings.Contains(instruction, "rustic wooden table") {
		t.Fatal("instruction missing the original style text")
	}
}

func TestRunDeniedMakesNoLedgerOrGenerationCall(t *testing.T) {
	start := domain.CreditAccount{Plan: domain.PlanFree, Credits: 2}
	f := newFixture(t, start)
	req := textRequest(start)
	req.Style = domain.NewImageStyle(domain.Image{Data: []byte("ref")})

	var states []State
	res := f.orch.Run(context.Background(), req, collect(&states))
	if res.State != StateError {
		t.Fatalf("State = %s, want ERROR", res.State)
	}
	if !res.UpgradeRequired || res.Charged {
		t.Fatalf("UpgradeRequired=%t Charged=%t, want true/false", res.UpgradeRequired, res.Charged)
	}
	if !errors.Is(res.Err, domain.ErrInsufficientCredits) {
		t.Fatalf("Err = %v, want ErrInsufficientCredits", res.Err)
	}
	if f.ledger.debits != 0 || f.generator.calls != 0 {
		t.Fatalf("debits=%d generations=%d, want none", f.ledger.debits, f.generator.calls)
	}
	if res.Account.Credits != 2 || res.Cost != 4 {
		t.Fatalf("Account = %+v cost %d, want unchanged 2 and cost 4", res.Account, res.Cost)
	}
	if !strings.Contains(res.Message(), "Upgrade") {
		t.Fatalf("Message = %q, want upgrade prompt", res.Message())
	}
	if states[len(states)-1] != StateError || states[len(states)-2] != StateCreditCheck {
		t.Fatalf("states = %v, want ... CREDIT_CHECK, ERROR", states)
	}
}

func TestRunNoImageDataAfterDebit(t *testing.T) {
	start := domain.CreditAccount{Plan: domain.PlanStarter, Credits: 10}
	f := newFixture(t, start)
	f.generator.img = domain.Image{}
	f.generator.err = domain.ErrNoImageData

	res := f.orch.Run(context.Background(), textRequest(start), nil)
	if res.State != StateError {
		t.Fatalf("State = %s, want ERROR", res.State)
	}
	if !strings.Contains(res.Message(), "no image data returned") {
		t.Fatalf("Message = %q, want mention of missing image data", res.Message())
	}
	if res.Account.Credits != 9 || !res.Charged {
		t.Fatalf("Account = %+v charged=%t, want 9 credits charged", res.Account, res.Charged)
	}
	se, ok := IsStageError(res.Err)
	if !ok || se.Stage != StateGenerating || !se.Charged {
		t.Fatalf("Err = %#v, want charged GENERATING StageError", res.Err)
	}
	if !errors.Is(res.Err, domain.ErrNoImageData) {
		t.Fatal("StageError does not unwrap to ErrNoImageData")
	}
	saved, ok, _ := f.store.Load(context.Background(), testIdentity)
	if !ok || saved.Credits != 9 {
		t.Fatalf("stored snapshot = %+v (%t), want 9 credits", saved, ok)
	}
}

type brokenLedger struct {
	domain.Ledger
}

func (brokenLedger) Debit(context.Context, string, int) (domain.CreditAccount, error) {
	return domain.CreditAccount{}, errors.New("connection reset")
}

func TestRunLedgerFailureIsNotCharged(t *testing.T) {
	start := domain.CreditAccount{Plan: domain.PlanStarter, Credits: 10}
	gen := &stubGenerator{}
	l := brokenLedger{Ledger: ledger.NewMemory(nil)}
	orch, err := New(Options{Gate: credit.NewGate(l), Generator: gen, Ledger: l})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	res := orch.Run(context.Background(), textRequest(start), nil)
	if !errors.Is(res.Err, domain.ErrLedgerUnavailable) {
		t.Fatalf("Err = %v, want ErrLedgerUnavailable", res.Err)
	}
	se, ok := IsStageError(res.Err)
	if !ok || se.Charged || se.Stage != StateCreditCheck {
		t.Fatalf("Err = %#v, want uncharged CREDIT_CHECK StageError", res.Err)
	}
	if gen.calls != 0 {
		t.Fatal("generation ran after a ledger failure")
	}
	if res.Account.Credits != 10 {
		t.Fatalf("Credits = %d, want untouched 10", res.Account.Credits)
	}
}

func TestRunSnapshotFailureDoesNotFailRequest(t *testing.T) {
	start := domain.CreditAccount{Plan: domain.PlanStarter, Credits: 10}
	l := ledger.NewMemory(map[string]domain.CreditAccount{testIdentity: start})
	orch, err := New(Options{
		Gate:      credit.NewGate(l),
		Generator: &stubGenerator{img: domain.Image{Data: []byte("png")}},
		Ledger:    l,
		Accounts:  failingStore{},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	res := orch.Run(context.Background(), textRequest(start), nil)
	if res.State != StateSuccess {
		t.Fatalf("State = %s (%v), want SUCCESS", res.State, res.Err)
	}
}

func TestRunRejectsInvalidRequest(t *testing.T) {
	start := domain.CreditAccount{Plan: domain.PlanStarter, Credits: 10}
	f := newFixture(t, start)
	req := textRequest(start)
	req.Options.BackgroundMode = domain.BackgroundCustom

	res := f.orch.Run(context.Background(), req, nil)
	if !errors.Is(res.Err, domain.ErrInvalidOptions) {
		t.Fatalf("Err = %v, want ErrInvalidOptions", res.Err)
	}
	if f.analyzer.calls != 0 || f.ledger.debits != 0 {
		t.Fatal("invalid request reached analysis or the ledger")
	}
}

func TestAccountOpensAndCaches(t *testing.T) {
	f := newFixture(t, domain.CreditAccount{Plan: domain.PlanPro, Credits: 150})

	account, err := f.orch.Account(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("Account returned error: %v", err)
	}
	if account.Plan != domain.PlanFree || account.Credits != 0 {
		t.Fatalf("Account = %+v, want fresh FREE account", account)
	}
	if _, ok, _ := f.store.Load(context.Background(), "new@example.com"); !ok {
		t.Fatal("opened account was not stored")
	}
}

func TestChangePlanResetsAndStores(t *testing.T) {
	f := newFixture(t, domain.CreditAccount{Plan: domain.PlanFree, Credits: 0})

	account, err := f.orch.ChangePlan(context.Background(), testIdentity, domain.PlanPro)
	if err != nil {
		t.Fatalf("ChangePlan returned error: %v", err)
	}
	if account.Credits != 150 {
		t.Fatalf("Credits = %d, want 150", account.Credits)
	}
	saved, _, _ := f.store.Load(context.Background(), testIdentity)
	if saved != account {
		t.Fatalf("stored = %+v, want %+v", saved, account)
	}
	if _, err := f.orch.ChangePlan(context.Background(), testIdentity, domain.Plan("GOLD")); !errors.Is(err, domain.ErrUnsupportedPlan) {
		t.Fatalf("ChangePlan(GOLD) error = %v, want ErrUnsupportedPlan", err)
	}
}

func TestReconcileReadsLedger(t *testing.T) {
	f := newFixture(t, domain.CreditAccount{Plan: domain.PlanStarter, Credits: 12})
	_ = f.store.Save(context.Background(), testIdentity, domain.CreditAccount{Plan: domain.PlanStarter, Credits: 40})

	account, err := f.orch.Reconcile(context.Background(), testIdentity)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if account.Credits != 12 {
		t.Fatalf("Credits = %d, want ledger value 12", account.Credits)
	}
	saved, _, _ := f.store.Load(context.Background(), testIdentity)
	if saved.Credits != 12 {
		t.Fatalf("stored credits = %d, want 12", saved.Credits)
	}
}

func TestCompilePreview(t *testing.T) {
	req := textRequest(domain.CreditAccount{})
	req.Options = domain.EnhancementOptions{ToolType: domain.ToolProduct}

	preview, err := Compile(req)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if preview.Cost != credit.TextStyleCost {
		t.Fatalf("Cost = %d, want %d", preview.Cost, credit.TextStyleCost)
	}
	if !strings.Contains(preview.Instruction, "rustic wooden table") {
		t.Fatal("preview instruction missing the style text")
	}
	if len(preview.Negative) == 0 {
		t.Fatal("preview has no negative constraints")
	}
}

func statesToStrings(states []State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

func TestLedgerDenialCorrectsStaleSnapshot(t *testing.T) {
	f := newFixture(t, domain.CreditAccount{Plan: domain.PlanFree, Credits: 0})
	stale := domain.CreditAccount{Plan: domain.PlanStarter, Credits: 10}
	if err := f.store.Save(context.Background(), testIdentity, stale); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	res := f.orch.Run(context.Background(), textRequest(stale), nil)
	if res.State != StateError || !res.UpgradeRequired || res.Charged {
		t.Fatalf("result = %+v, want uncharged upgrade prompt", res)
	}
	want := domain.CreditAccount{Plan: domain.PlanFree, Credits: 0}
	if res.Account != want {
		t.Fatalf("Account = %+v, want ledger balance %+v", res.Account, want)
	}
	if f.ledger.debits != 1 || f.generator.calls != 0 {
		t.Fatalf("debits = %d, generator calls = %d, want 1 and 0", f.ledger.debits, f.generator.calls)
	}
	saved, ok, _ := f.store.Load(context.Background(), testIdentity)
	if !ok || saved != want {
		t.Fatalf("snapshot = %+v (%t), want %+v", saved, ok, want)
	}
	if !strings.Contains(res.Message(), "you have 0") {
		t.Fatalf("Message = %q, want current balance", res.Message())
	}
}
