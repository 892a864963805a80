package nfn

import (
	"errors"

	enc "github.com/usi-icn/nfnd/encoding"
)

// ErrNoExecutor is returned when fetched function code names a language
// with no registered Executor.
var ErrNoExecutor = errors.New("nfn: no executor registered for code's language")

// ErrEvaluatorCancelled is returned from an in-flight await when the
// evaluator is stopped before all requested data arrives (§5's
// cancellation contract: "A cancelled evaluator must not write further to
// NFN inbound/outbound queues").
var ErrEvaluatorCancelled = errors.New("nfn: evaluator cancelled")

// Result is what a compute-local Evaluator produces once finished: either
// the computed Content payload, or an error to translate into a
// COMP_EXCEPTION Nack (§7).
type Result struct {
	Err     error
	Content []byte
}

// Evaluator runs the compute_local half of §4.6 for a single NFN
// Interest: it is spawned by the NFN layer once the ToDataFirst optimizer
// decides the computation cannot be pushed remotely (or once it has
// collected everything it needs to run here). Its content table has no
// eviction (§9) — it lives exactly as long as this Evaluator's Run call,
// and is discarded with it.
type Evaluator struct {
	Ast       AST
	Executors ExecutorRegistry

	// RequestOut carries sub-Interest names this evaluator needs
	// resolved; the NFN layer turns each into a local Interest forwarded
	// into the ICN layer.
	RequestOut chan<- enc.Name
	// ContentIn carries Content the NFN layer has matched against a name
	// this evaluator is awaiting. Content for names outside the request
	// table is the NFN layer's concern, never sent here.
	ContentIn <-chan *enc.Content

	done chan struct{}

	contentTable map[string]*enc.Content
}

// NewEvaluator constructs an Evaluator for ast, wired to the given
// request/content channels.
func NewEvaluator(ast AST, executors ExecutorRegistry, requestOut chan<- enc.Name, contentIn <-chan *enc.Content) *Evaluator {
	return &Evaluator{
		Ast:          ast,
		Executors:    executors,
		RequestOut:   requestOut,
		ContentIn:    contentIn,
		done:         make(chan struct{}),
		contentTable: make(map[string]*enc.Content),
	}
}

func (e *Evaluator) String() string { return "nfn-evaluator" }

// Stop cancels the evaluator; any in-flight awaitAll calls return
// ErrEvaluatorCancelled instead of blocking forever.
func (e *Evaluator) Stop() {
	select {
	case <-e.done:
	default:
		close(e.done)
	}
}

// Run executes the compute_local strategy (§4.6 point 2) and returns its
// Result. It must only be called when the ToDataFirst optimizer has
// already decided this computation runs locally.
func (e *Evaluator) Run() Result {
	fc, ok := e.Ast.(*FuncCallNode)
	if !ok {
		// A bare Name is data, not a computation; nothing to evaluate.
		return Result{Err: errors.New("nfn: nothing to evaluate for a bare name")}
	}

	type slot struct {
		literal []byte
		name    enc.Name
		pending bool
	}
	slots := make([]slot, len(fc.Params))
	var names []enc.Name
	for i, p := range fc.Params {
		switch v := p.(type) {
		case *NameNode:
			n, err := enc.NameFromStr(v.Value)
			if err != nil {
				return Result{Err: err}
			}
			slots[i] = slot{name: n, pending: true}
			names = append(names, n)
			e.request(n)
		case *FuncCallNode:
			n, err := NfnStrToNetworkName(v.String())
			if err != nil {
				return Result{Err: err}
			}
			slots[i] = slot{name: n, pending: true}
			names = append(names, n)
			e.request(n)
		default:
			slots[i] = slot{literal: []byte(p.String())}
		}
	}

	if len(names) > 0 {
		contents, err := e.awaitAll(names)
		if err != nil {
			return Result{Err: err}
		}
		byName := make(map[string]*enc.Content, len(contents))
		for _, c := range contents {
			byName[c.NameV.String()] = c
		}
		for i := range slots {
			if !slots[i].pending {
				continue
			}
			c, ok := byName[slots[i].name.String()]
			if !ok {
				return Result{Err: errors.New("nfn: missing resolved parameter " + slots[i].name.String())}
			}
			slots[i].literal = c.ContentV
		}
	}

	params := make([][]byte, len(slots))
	for i, s := range slots {
		params[i] = s.literal
	}

	fnName, err := enc.NameFromStr(fc.Element)
	if err != nil {
		return Result{Err: err}
	}
	e.request(fnName)
	codeContents, err := e.awaitAll([]enc.Name{fnName})
	if err != nil {
		return Result{Err: err}
	}
	code := string(codeContents[0].ContentV)

	executor, ok := e.Executors[Language(code)]
	if !ok {
		return Result{Err: ErrNoExecutor}
	}
	out, err := executor.Execute(code, params)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Content: out}
}

func (e *Evaluator) request(name enc.Name) {
	select {
	case e.RequestOut <- name:
	case <-e.done:
	}
}

// awaitAll blocks until every requested name in names has a matching
// Content in the content table, draining ContentIn meanwhile and
// dropping anything not currently requested (§4.6: "Unsolicited messages
// ... are dropped").
func (e *Evaluator) awaitAll(names []enc.Name) ([]*enc.Content, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n.String()] = true
	}

	for !e.haveAll(want) {
		select {
		case c, ok := <-e.ContentIn:
			if !ok {
				return nil, ErrEvaluatorCancelled
			}
			key := c.NameV.String()
			if want[key] {
				e.contentTable[key] = c
			}
		case <-e.done:
			return nil, ErrEvaluatorCancelled
		}
	}

	out := make([]*enc.Content, len(names))
	for i, n := range names {
		out[i] = e.contentTable[n.String()]
	}
	return out, nil
}

func (e *Evaluator) haveAll(want map[string]bool) bool {
	for k := range want {
		if _, ok := e.contentTable[k]; !ok {
			return false
		}
	}
	return true
}
